package templates

import (
	"bytes"
	"embed"
	"fmt"
	htmpl "html/template"
	"io"
	"reflect"
	"strings"
	"sync"
	texttpl "text/template"
)

//go:embed *.tmpl
var files embed.FS

// Template names. Each has <name>.subject.tmpl, <name>.text.tmpl and <name>.html.tmpl.
const (
	LoginOTP       = "login_otp"
	ForgotPassword = "forgot_password"
)

// Known reports whether name is a template set shipped with the binary.
func Known(name string) bool {
	return name == LoginOTP || name == ForgotPassword
}

var funcs = map[string]any{
	"upper":   strings.ToUpper,
	"default": defaultFn,
}

// defaultFn is used as a pipe: {{ .Name | default "there" }}.
func defaultFn(fallback, value any) any {
	if value == nil {
		return fallback
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return fallback
	}
	if reflect.ValueOf(value).IsZero() {
		return fallback
	}
	return value
}

type parsedSet struct {
	text *texttpl.Template
	html *htmpl.Template
}

var parsed = sync.OnceValues(func() (*parsedSet, error) {
	text, err := texttpl.New("mail").Funcs(funcs).ParseFS(files, "*.subject.tmpl", "*.text.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}
	html, err := htmpl.New("mail").Funcs(funcs).ParseFS(files, "*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	return &parsedSet{text: text, html: html}, nil
})

type executor interface {
	ExecuteTemplate(w io.Writer, name string, data any) error
}

func execute(t executor, file string, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, file, data); err != nil {
		return "", fmt.Errorf("exec %q: %w", file, err)
	}
	return buf.String(), nil
}

// Render produces the subject, plain text and HTML bodies for name.
func Render(name string, data any) (subject, text, html string, err error) {
	if !Known(name) {
		return "", "", "", fmt.Errorf("unknown template %q", name)
	}
	set, err := parsed()
	if err != nil {
		return "", "", "", err
	}
	if subject, err = execute(set.text, name+".subject.tmpl", data); err != nil {
		return "", "", "", err
	}
	if text, err = execute(set.text, name+".text.tmpl", data); err != nil {
		return "", "", "", err
	}
	if html, err = execute(set.html, name+".html.tmpl", data); err != nil {
		return "", "", "", err
	}
	return strings.TrimSpace(subject), text, html, nil
}
