package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
)

const (
	contextTokenKey = "staffToken"
	tokenAudience   = "Masomo Admin"
)

// Claims represents the authorization claims of a staff token, issued by the platform.
// Only the institute scope is read here.
type Claims struct {
	jwt.StandardClaims
	InstituteID string `json:"institute_id"`
	Username    string `json:"username,omitempty"`
	Email       string `json:"email,omitempty"`
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// NewStaffClaims returns the claims of a token scoped to the person's institute, valid for `ttl`.
func NewStaffClaims(conf *core.Config, person core.Person, ttl time.Duration) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   person.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
		InstituteID: person.InstituteID,
		Username:    person.Username,
		Email:       person.Email,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	jwtConf := newJWTConfig(conf)
	token := jwt.NewWithClaims(jwt.GetSigningMethod(jwtConf.SigningMethod), claims)

	ss, err := token.SignedString(jwtConf.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// contextPerson identifies the token bearer in logs.
func contextPerson(ctx echo.Context) (core.Person, bool) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return core.Person{}, false
	}
	return core.Person{
		ID:          claims.Subject,
		Username:    claims.Username,
		Email:       claims.Email,
		InstituteID: claims.InstituteID,
	}, true
}

// contextInstitute returns the institute the request is scoped to; see instituteMiddleware.
func contextInstitute(ctx echo.Context) string {
	claims, _ := getContextClaims(ctx)
	return claims.InstituteID
}
