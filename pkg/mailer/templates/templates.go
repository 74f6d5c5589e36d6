package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	htmpl "html/template"
	"reflect"
	"strings"
	"sync"
	texttpl "text/template"
	"time"
)

//go:embed *.tmpl
var FS embed.FS

const ContactCard = "contact_card"

// CardData defines the fields of the contact_card template.
type CardData struct {
	// The card being shared
	Name    string `json:"Name"`
	Role    string `json:"Role"`
	Company string `json:"Company"`
	Phone   string `json:"Phone"`
	Email   string `json:"Email"`

	RecipientEmail string `json:"RecipientEmail"`
	Message        string `json:"Message"`

	AppName    string `json:"AppName"`
	EventName  string `json:"EventName"`
	SupportURL string `json:"SupportURL"`

	Time   string    `json:"Time"`
	TimeAt time.Time `json:"TimeAt"`
}

// ToMap flattens d for EmailJob.Data, which travels as JSON through the queue.
func ToMap(d CardData) map[string]any {
	b, _ := json.Marshal(d)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// {{ .AppName | default "NTC Networking" }}
func defaultFn(fallback, value any) any {
	if s, ok := value.(string); ok {
		if strings.TrimSpace(s) == "" {
			return fallback
		}
		return s
	}
	if rv := reflect.ValueOf(value); !rv.IsValid() || rv.IsZero() {
		return fallback
	}
	return value
}

var funcs = map[string]any{"default": defaultFn}

type parsed struct {
	text *texttpl.Template // *.subject.tmpl and *.text.tmpl
	html *htmpl.Template
}

var load = sync.OnceValues(func() (parsed, error) {
	text, err := texttpl.New("").Funcs(funcs).ParseFS(FS, "*.subject.tmpl", "*.text.tmpl")
	if err != nil {
		return parsed{}, fmt.Errorf("parse text templates: %w", err)
	}
	html, err := htmpl.New("").Funcs(funcs).ParseFS(FS, "*.html.tmpl")
	if err != nil {
		return parsed{}, fmt.Errorf("parse html templates: %w", err)
	}
	return parsed{text: text, html: html}, nil
})

func execute(name string, exec func(*bytes.Buffer) error) (string, error) {
	var buf bytes.Buffer
	if err := exec(&buf); err != nil {
		return "", fmt.Errorf("exec %q: %w", name, err)
	}
	return buf.String(), nil
}

func renderText(set *texttpl.Template, name string, data any) (string, error) {
	tpl := set.Lookup(name)
	if tpl == nil {
		return "", fmt.Errorf("template %q not found", name)
	}
	return execute(name, func(b *bytes.Buffer) error { return tpl.Execute(b, data) })
}

// Render produces subject, text and html bodies from <name>.subject.tmpl,
// <name>.text.tmpl and <name>.html.tmpl. The subject is trimmed.
func Render(name string, data any) (subject, text, html string, err error) {
	set, err := load()
	if err != nil {
		return "", "", "", err
	}
	if subject, err = renderText(set.text, name+".subject.tmpl", data); err != nil {
		return "", "", "", err
	}
	if text, err = renderText(set.text, name+".text.tmpl", data); err != nil {
		return "", "", "", err
	}
	tpl := set.html.Lookup(name + ".html.tmpl")
	if tpl == nil {
		return "", "", "", fmt.Errorf("template %q not found", name+".html.tmpl")
	}
	if html, err = execute(name+".html.tmpl", func(b *bytes.Buffer) error { return tpl.Execute(b, data) }); err != nil {
		return "", "", "", err
	}
	return strings.TrimSpace(subject), text, html, nil
}
