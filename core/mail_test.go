package core

import (
	"encoding/base64"
	"io/fs"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmailMessage_Render(t *testing.T) {
	ParseEmailTemplates(NopLogger{}, true)
	base := NewContextData(NewTestConfig())

	t.Run("template", func(t *testing.T) {
		msg := &EmailMessage{
			TemplateName: "report_export",
			TemplateData: map[string]interface{}{"Kind": "leaderboard", "Format": "csv", "Period": "March"},
		}
		assert.NoError(t, msg.Render(base))
		assert.Contains(t, msg.TextContent, "Please find attached the leaderboard report (csv) for March.")
		assert.Contains(t, msg.TextContent, "The Masomo team")
		assert.Contains(t, msg.HTMLContent, "leaderboard")
		assert.True(t, msg.HasContent())
	})

	t.Run("plain body", func(t *testing.T) {
		msg := &EmailMessage{BodyStr: "hi"}
		assert.NoError(t, msg.Render(base))
		assert.Equal(t, "hi", msg.TextContent)
		assert.Empty(t, msg.HTMLContent)
	})

	t.Run("unknown template", func(t *testing.T) {
		msg := &EmailMessage{TemplateName: "nope"}
		assert.EqualError(t, msg.Render(base), `rendering text: unknown email template "nope"`)
		assert.False(t, msg.HasContent())
	})

	for _, name := range []string{"plan_saved", "plan_default", "report_export"} {
		t.Run("cached "+name, func(t *testing.T) {
			msg := &EmailMessage{TemplateName: name}
			_, ok := msg.getTemplate(".txt")
			assert.True(t, ok)
			_, ok = msg.getTemplate(".gohtml")
			assert.True(t, ok)
		})
	}

	t.Run("missing key", func(t *testing.T) {
		msg := &EmailMessage{TemplateName: "report_export", TemplateData: map[string]interface{}{"Kind": "progress"}}
		assert.Error(t, msg.Render(base))
	})
}

func TestEmailFS_layouts(t *testing.T) {
	fps, err := fs.Glob(emailFS, path.Join(emailTemplatesDir, "_base.*"))
	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"templates/email/_base.gohtml", "templates/email/_base.txt"}, fps)
}

func TestEmailMessage_Attach(t *testing.T) {
	msg := &EmailMessage{}
	assert.NoError(t, msg.Attach(strings.NewReader("a,b\n1,2\n"), "report.csv", "text/csv"))
	assert.NoError(t, msg.Attach(strings.NewReader("%PDF-1.4"), "report.pdf"))

	if assert.Len(t, msg.Attachments, 2) {
		content, err := base64.StdEncoding.DecodeString(msg.Attachments[0].Content.String())
		assert.NoError(t, err)
		assert.Equal(t, "a,b\n1,2\n", string(content))
		assert.Equal(t, "text/csv", msg.Attachments[0].ContentType)
		assert.Equal(t, "application/pdf", msg.Attachments[1].ContentType)
	}
	assert.True(t, msg.HasAttachments())
}

func TestAddresses(t *testing.T) {
	addrs := Addresses("owner@test.cd", "not an email", "Jane <jane@test.cd>")
	if assert.Len(t, addrs, 2) {
		assert.Equal(t, "owner@test.cd", addrs[0].Address)
		assert.Equal(t, "Jane", addrs[1].Name)
	}
}

func TestConfig(t *testing.T) {
	conf := NewTestConfig()
	assert.Equal(t, "noreply@test.cd", conf.DefaultFromEmail().Address)
	assert.Equal(t, "Masomo", conf.DefaultFromEmail().Name)

	conf.defaultFromEmail = "bare"
	assert.Equal(t, "bare", conf.DefaultFromEmail().Address)

	assert.Equal(t, []string{"a@b.cd", "c@d.cd", "e@f.cd"}, splitList([]string{"a@b.cd, c@d.cd", " ", "e@f.cd"}))
	assert.Equal(t, "localhost:5432", DatabaseConfig{Host: "localhost", Port: "5432"}.Address())
}

func TestValidationError(t *testing.T) {
	err := NewValidationError(nil, FieldError{Field: "name", Error: "required"}, FieldError{Field: "name", Error: "too long"})
	vErr, ok := AsValidationError(err)
	if assert.True(t, ok) {
		assert.Equal(t, map[string]string{"name": "required"}, vErr.FieldMap())
		assert.True(t, vErr.HasField("name"))
		assert.False(t, vErr.HasField("type"))
		assert.Empty(t, vErr.Error())
	}

	assert.True(t, IsShutdown(NewShutdownError("bye")))
	assert.False(t, IsShutdown(err))
}

func TestFilterOrderings(t *testing.T) {
	ords := FilterOrderings(
		[]DBOrdering{{Field: "name", Ascending: true}, {Field: "password"}, {Field: "createdAt"}},
		map[string]string{"name": "name", "createdAt": "created_at"},
	)
	assert.Equal(t, []DBOrdering{{Field: "name", Ascending: true}, {Field: "created_at"}}, ords)
	assert.Equal(t, "created_at DESC", ords[1].String())
}
