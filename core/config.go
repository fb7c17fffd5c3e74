package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageBackend  = "backend"

	DraftsMemory = "memory"
	DraftsRedis  = "redis"
)

type (
	Config struct {
		Env              string
		Build            string
		AppName          string
		Debug            bool
		TestMode         bool
		SecretKey        string
		RollbarToken     string
		SendgridApiKey   string
		FrontendBaseURL  string
		WorkDir          string
		StorageDriver    string
		DraftsDriver     string
		OwnerEmails      []string
		defaultFromEmail string

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Backend  BackendConfig
		Plans    PlansConfig
	}

	ServerConfig struct {
		Host            string
		Addr            string
		DebugHost       string
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
		DraftTTL time.Duration
	}

	BackendConfig struct {
		BaseURL string
		Token   string
		Timeout time.Duration
	}

	PlansConfig struct {
		ReferralStep    bool
		DefaultCurrency string
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// DefaultFromEmail parses the configured sender, falling back to a bare address.
func (c *Config) DefaultFromEmail() mail.Address {
	if addr, err := mail.ParseAddress(c.defaultFromEmail); err == nil {
		return *addr
	}
	return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
}

// NewConfig loads the configuration for the current ENV (DEV by default) from the environment,
// optionally seeded by `config/.env.<env>`.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Masomo")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Masomo <noreply@localhost>")
	v.SetDefault("ownerEmails", []string{})
	v.SetDefault("storageDriver", StorageMemory)
	v.SetDefault("draftsDriver", DraftsMemory)

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddr", ":8000")
	v.SetDefault("serverDebugHost", ":4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("serverDisableReqLogs", false)

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbName", "masomo_admin")
	v.SetDefault("dbUser", "masomo")
	v.SetDefault("dbPassword", "masomo")
	v.SetDefault("dbAdminUser", "postgres")
	v.SetDefault("dbAdminPassword", "postgres")
	v.SetDefault("dbDisableTLS", true)

	v.SetDefault("redisAddr", "localhost:6379")
	v.SetDefault("redisPassword", "")
	v.SetDefault("redisDB", 0)
	v.SetDefault("redisDraftTTL", 24*time.Hour)

	v.SetDefault("backendBaseURL", "http://localhost:8080/api")
	v.SetDefault("backendToken", "")
	v.SetDefault("backendTimeout", 15*time.Second)

	v.SetDefault("plansReferralStep", false)
	v.SetDefault("plansDefaultCurrency", "USD")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	workDir := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:              env,
		Build:            v.GetString("build"),
		AppName:          v.GetString("appName"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		SecretKey:        v.GetString("secretKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		WorkDir:          workDir,
		StorageDriver:    v.GetString("storageDriver"),
		DraftsDriver:     v.GetString("draftsDriver"),
		OwnerEmails:      splitList(v.GetStringSlice("ownerEmails")),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:            v.GetString("serverHost"),
			Addr:            v.GetString("serverAddr"),
			DebugHost:       v.GetString("serverDebugHost"),
			ShutdownTimeout: v.GetDuration("serverShutdownTimeout"),
			DisableReqLogs:  v.GetBool("serverDisableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redisAddr"),
			Password: v.GetString("redisPassword"),
			DB:       v.GetInt("redisDB"),
			DraftTTL: v.GetDuration("redisDraftTTL"),
		},
		Backend: BackendConfig{
			BaseURL: v.GetString("backendBaseURL"),
			Token:   v.GetString("backendToken"),
			Timeout: v.GetDuration("backendTimeout"),
		},
		Plans: PlansConfig{
			ReferralStep:    v.GetBool("plansReferralStep"),
			DefaultCurrency: strings.ToUpper(v.GetString("plansDefaultCurrency")),
		},
	}
}

// NewTestConfig returns a Config suitable for tests: no files, no network services.
func NewTestConfig() *Config {
	return &Config{
		Env:              "TEST",
		Build:            "test",
		AppName:          "Masomo",
		TestMode:         true,
		SecretKey:        "secret",
		FrontendBaseURL:  "http://localhost:3000",
		StorageDriver:    StorageMemory,
		DraftsDriver:     DraftsMemory,
		OwnerEmails:      []string{"owner@test.cd"},
		defaultFromEmail: "Masomo <noreply@test.cd>",
		Server:           ServerConfig{Addr: ":0", ShutdownTimeout: time.Second, DisableReqLogs: true},
		Redis:            RedisConfig{DraftTTL: time.Hour},
		Backend:          BackendConfig{Timeout: time.Second},
		Plans:            PlansConfig{DefaultCurrency: "USD"},
	}
}

// splitList flattens comma separated env values, e.g. `DEV_OWNEREMAILS=a@b.cd,c@d.cd`.
func splitList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (c *Config) String() string {
	return fmt.Sprintf("%s (%s) env=%s storage=%s drafts=%s", c.AppName, c.Build, c.Env, c.StorageDriver, c.DraftsDriver)
}
