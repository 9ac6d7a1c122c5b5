package notification

import (
	"bytes"
	"text/template"

	"github.com/storefront/backend/internal/domain/shared"
)

// Template is a message template keyed by (Type, Channel). Subject and Body
// are text/template sources rendered against a per-type data struct.
type Template struct {
	shared.BaseEntity
	Type    Type    `gorm:"type:varchar(30);not null;uniqueIndex:idx_template_type_channel,priority:1"`
	Channel Channel `gorm:"type:varchar(10);not null;uniqueIndex:idx_template_type_channel,priority:2"`
	Subject string  `gorm:"type:varchar(255)"`
	Body    string  `gorm:"type:text;not null"`
	Active  bool    `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM.
func (Template) TableName() string {
	return "notification_templates"
}

// NewTemplate creates a template after checking that both sources parse.
func NewTemplate(typ Type, channel Channel, subject, body string) (*Template, error) {
	if !channel.IsValid() {
		return nil, shared.NewDomainError("INVALID_CHANNEL", "Unknown notification channel")
	}
	if body == "" {
		return nil, shared.NewDomainError("INVALID_BODY", "Template body cannot be empty")
	}

	t := &Template{
		BaseEntity: shared.NewBaseEntity(),
		Type:       typ,
		Channel:    channel,
		Subject:    subject,
		Body:       body,
		Active:     true,
	}
	if _, _, err := t.Render(map[string]any{}); err != nil {
		return nil, shared.NewDomainError("INVALID_TEMPLATE", "Template does not parse: "+err.Error())
	}

	return t, nil
}

// UpdateContent replaces subject and body after a parse check.
func (t *Template) UpdateContent(subject, body string) error {
	if body == "" {
		return shared.NewDomainError("INVALID_BODY", "Template body cannot be empty")
	}

	probe := Template{Subject: subject, Body: body}
	if _, _, err := probe.Render(map[string]any{}); err != nil {
		return shared.NewDomainError("INVALID_TEMPLATE", "Template does not parse: "+err.Error())
	}

	t.Subject = subject
	t.Body = body
	t.Touch()

	return nil
}

// Render executes the subject and body templates against data.
func (t *Template) Render(data any) (subject, body string, err error) {
	subject, err = render("subject", t.Subject, data)
	if err != nil {
		return "", "", err
	}
	body, err = render("body", t.Body, data)
	if err != nil {
		return "", "", err
	}
	return subject, body, nil
}

func render(name, src string, data any) (string, error) {
	if src == "" {
		return "", nil
	}
	tmpl, err := template.New(name).Option("missingkey=zero").Parse(src)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
