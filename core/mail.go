package core

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	htmltmpl "html/template"
	"io"
	"io/fs"
	"net/http"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

//go:embed templates/email/*
var emailFS embed.FS

var (
	templates tmplCache
	tmplMu    sync.RWMutex
)

const emailTemplatesDir = "templates/email"

type (
	tmplCacheEntry map[string]interface{}    // {ext: *Template}
	tmplCache      map[string]tmplCacheEntry // {name: {tmplCacheEntry}}

	Attachment struct {
		Content     *bytes.Buffer
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // simple text/plain, non-templated content
		Attachments []Attachment

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		AppName         string
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// NewContextData returns the data every email template is rendered with.
func NewContextData(conf *Config) ContextData {
	return ContextData{AppName: conf.AppName, FrontendBaseURL: conf.FrontendBaseURL}
}

// Addresses converts plain email strings into mail addresses, skipping invalid ones.
func Addresses(emails ...string) []mail.Address {
	addrs := make([]mail.Address, 0, len(emails))
	for _, e := range emails {
		if addr, err := mail.ParseAddress(e); err == nil {
			addrs = append(addrs, *addr)
		}
	}
	return addrs
}

func (m *EmailMessage) getTemplate(ext string) (interface{}, bool) {
	tmplMu.RLock()
	defer tmplMu.RUnlock()

	cache, ok := templates[m.TemplateName]
	if !ok {
		return nil, ok
	}
	tmplEntry, ok := cache[ext]
	return tmplEntry, ok
}

func (m *EmailMessage) renderText(data ContextData) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	} else if m.TemplateName == "" {
		return nil
	}

	tmplEntry, ok := m.getTemplate(".txt")
	if !ok {
		return errors.Errorf("unknown email template %q", m.TemplateName)
	}
	tmpl, ok := tmplEntry.(*texttmpl.Template)
	if !ok {
		return errors.Errorf("email template %q is not a text template", m.TemplateName)
	}

	var buff bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buff, "base", data); err != nil {
		return err
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) renderHTML(data ContextData) error {
	if m.TemplateName == "" {
		return nil
	}

	tmplEntry, ok := m.getTemplate(".gohtml")
	if !ok {
		return errors.Errorf("unknown email template %q", m.TemplateName)
	}
	tmpl, ok := tmplEntry.(*htmltmpl.Template)
	if !ok {
		return errors.Errorf("email template %q is not an html template", m.TemplateName)
	}

	var buff bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buff, "base", data); err != nil {
		return err
	}
	m.HTMLContent = buff.String()
	return nil
}

// Render fills TextContent and HTMLContent from the message template, if any.
func (m *EmailMessage) Render(base ContextData) error {
	base.Data = m.TemplateData
	if err := m.renderText(base); err != nil {
		return errors.Wrap(err, "rendering text")
	}
	return errors.Wrap(m.renderHTML(base), "rendering html")
}

// Attach base64 encodes the content of `r` as a new attachment.
func (m *EmailMessage) Attach(r io.Reader, filename string, ct ...string) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "reading attachment")
	}

	at := Attachment{Filename: filename, Content: new(bytes.Buffer)}
	encoder := base64.NewEncoder(base64.StdEncoding, at.Content)
	if _, err = encoder.Write(content); err != nil {
		return errors.Wrap(err, "encoding attachment")
	}
	if err = encoder.Close(); err != nil {
		return errors.Wrap(err, "encoding attachment")
	}

	if len(ct) > 0 {
		at.ContentType = ct[0]
	} else {
		at.ContentType = http.DetectContentType(content)
	}
	m.Attachments = append(m.Attachments, at)
	return nil
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return (m.TextContent != "") || (m.HTMLContent != "") }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }

// ParseEmailTemplates parses the embedded email templates once at startup.
// Every `<name>.txt` / `<name>.gohtml` is parsed along with its `_base` layout.
func ParseEmailTemplates(logger Logger, strict bool) {
	cache := make(tmplCache)

	fps, err := fs.Glob(emailFS, path.Join(emailTemplatesDir, "*"))
	if err != nil {
		logger.Error(fmt.Sprintf("core.ParseEmailTemplates: %v", err), err)
		return
	}

	for _, fp := range fps {
		fname := path.Base(fp)
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		entry, ok := cache[name]
		if !ok {
			entry = make(tmplCacheEntry)
			cache[name] = entry
		}
		base := path.Join(emailTemplatesDir, "_base"+ext)
		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFS(emailFS, base, fp)
			if err != nil {
				logger.Error(fmt.Sprintf("core.ParseEmailTemplates(%s): %v", fname, err), err)
				continue
			}
			if strict {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry[ext] = tmpl
		} else {
			tmpl, err := htmltmpl.ParseFS(emailFS, base, fp)
			if err != nil {
				logger.Error(fmt.Sprintf("core.ParseEmailTemplates(%s): %v", fname, err), err)
				continue
			}
			if strict {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry[ext] = tmpl
		}
	}

	tmplMu.Lock()
	templates = cache
	tmplMu.Unlock()
}
