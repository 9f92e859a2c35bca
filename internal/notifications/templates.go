package notifications

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"text/template"

	"github.com/adrg/frontmatter"

	"github.com/goliatone/go-order-tracker/internal/domain"
)

//go:embed templates/*.md
var embeddedTemplates embed.FS

// MessageData is the value templates are executed against.
type MessageData struct {
	FirstName        string
	CustomerName     string
	OrderNumber      string
	StageName        string
	StageDisplayName string
	StageDescription string
	TrackingURL      string
}

// Rendered is a template output ready to be queued.
type Rendered struct {
	Subject string
	Body    string
}

// Template renders one channel's message.
type Template struct {
	Channel domain.Channel
	subject *template.Template
	body    *template.Template
}

type templateFrontMatter struct {
	Channel string `yaml:"channel"`
	Subject string `yaml:"subject"`
}

// TemplateSet holds one template per channel.
type TemplateSet struct {
	templates map[domain.Channel]*Template
}

// DefaultTemplates returns the embedded sms and email templates.
func DefaultTemplates() (*TemplateSet, error) {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return nil, err
	}
	return LoadTemplates(sub)
}

// LoadTemplates parses every *.md file at the root of fsys. The channel comes
// from the front matter, falling back to the file name.
func LoadTemplates(fsys fs.FS) (*TemplateSet, error) {
	names, err := fs.Glob(fsys, "*.md")
	if err != nil {
		return nil, err
	}
	set := &TemplateSet{templates: make(map[domain.Channel]*Template, len(names))}
	for _, name := range names {
		source, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("notifications: read template %s: %w", name, err)
		}
		tpl, err := ParseTemplate(strings.TrimSuffix(path.Base(name), ".md"), source)
		if err != nil {
			return nil, err
		}
		set.templates[tpl.Channel] = tpl
	}
	return set, nil
}

// ParseTemplate parses a single markdown template with YAML front matter.
func ParseTemplate(name string, source []byte) (*Template, error) {
	var meta templateFrontMatter
	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		return nil, fmt.Errorf("notifications: parse template %s front matter: %w", name, err)
	}
	channel := domain.Channel(strings.ToLower(strings.TrimSpace(meta.Channel)))
	if channel == "" {
		channel = domain.Channel(strings.ToLower(name))
	}
	if !channel.IsValid() {
		return nil, fmt.Errorf("notifications: template %s has unknown channel %q", name, channel)
	}

	bodyTpl, err := template.New(name).Option("missingkey=zero").Parse(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, fmt.Errorf("notifications: parse template %s: %w", name, err)
	}
	tpl := &Template{Channel: channel, body: bodyTpl}
	if strings.TrimSpace(meta.Subject) != "" {
		tpl.subject, err = template.New(name + ".subject").Parse(meta.Subject)
		if err != nil {
			return nil, fmt.Errorf("notifications: parse template %s subject: %w", name, err)
		}
	}
	return tpl, nil
}

// Render executes the channel's template.
func (s *TemplateSet) Render(channel domain.Channel, data MessageData) (Rendered, error) {
	if s == nil {
		return Rendered{}, fmt.Errorf("%w: %s", ErrTemplateMissing, channel)
	}
	tpl, ok := s.templates[channel]
	if !ok {
		return Rendered{}, fmt.Errorf("%w: %s", ErrTemplateMissing, channel)
	}
	return tpl.Render(data)
}

func (t *Template) Render(data MessageData) (Rendered, error) {
	var out Rendered
	var buf bytes.Buffer
	if err := t.body.Execute(&buf, data); err != nil {
		return Rendered{}, fmt.Errorf("notifications: render %s body: %w", t.Channel, err)
	}
	out.Body = strings.TrimSpace(buf.String())
	if t.subject != nil {
		buf.Reset()
		if err := t.subject.Execute(&buf, data); err != nil {
			return Rendered{}, fmt.Errorf("notifications: render %s subject: %w", t.Channel, err)
		}
		out.Subject = strings.TrimSpace(buf.String())
	}
	return out, nil
}
