package events

import (
	"bytes"
	"fmt"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

const identityPartial = `{{define "identity"}}{{.Name}}@{{.UserID | trunc 8}}{{with .Instance}}/{{.}}{{end}}{{end}}`

var defaultTemplates = map[EventReason]string{
	ReasonListening:            `listening with {{.Running}} running {{if eq .Running 1}}instance{{else}}instances{{end}}`,
	ReasonServiceCreated:       `{{template "identity" .}} created`,
	ReasonServiceStarted:       `{{template "identity" .}} started{{if .PID}} (pid {{.PID}}){{end}}`,
	ReasonServiceFailedToStart: `{{template "identity" .}} failed to start`,
	ReasonServiceStopped:       `{{template "identity" .}} stopped`,
}

// MessageTemplateEngine renders event messages from text/template sources
// with the sprig function library.
type MessageTemplateEngine struct {
	mu        sync.RWMutex
	templates map[EventReason]*template.Template
}

// NewMessageTemplateEngine creates an engine with the default templates.
func NewMessageTemplateEngine() *MessageTemplateEngine {
	engine := &MessageTemplateEngine{
		templates: make(map[EventReason]*template.Template),
	}
	for reason, src := range defaultTemplates {
		if err := engine.SetTemplate(reason, src); err != nil {
			panic(fmt.Sprintf("default template for %s: %v", reason, err))
		}
	}
	return engine
}

// SetTemplate replaces the template used for reason. The "identity"
// template is available to every source.
func (e *MessageTemplateEngine) SetTemplate(reason EventReason, src string) error {
	tmpl, err := template.New(string(reason)).Funcs(sprig.TxtFuncMap()).Parse(identityPartial)
	if err != nil {
		return err
	}
	if _, err := tmpl.Parse(src); err != nil {
		return fmt.Errorf("failed to parse template for %s: %w", reason, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[reason] = tmpl
	return nil
}

// Render generates a message for the given event reason and data.
func (e *MessageTemplateEngine) Render(reason EventReason, data EventData) string {
	e.mu.RLock()
	tmpl, exists := e.templates[reason]
	e.mu.RUnlock()
	if !exists {
		// Fallback for unknown event reasons
		return fmt.Sprintf("Event: %s for %s", reason, data.Name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("Event: %s for %s (template error: %v)", reason, data.Name, err)
	}
	return buf.String()
}
