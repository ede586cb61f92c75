package gateway

import (
	"strings"
	"text/template"
)

// DefaultTemplate is the acknowledgement sent for every inquiry.
const DefaultTemplate = "[포용적 금융서비스, 프리즘지점]\n" +
	"{{.Name}}님, {{.Inquiry}} 문의 감사합니다. 곧 연락드리겠습니다.\n\n" +
	"프리즘지점 드림"

// Renderer fills the notification template.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses text; an empty text selects DefaultTemplate.
func NewRenderer(text string) (*Renderer, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultTemplate
	}
	tmpl, err := template.New("sms").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl}, nil
}

func (r *Renderer) Render(name, inquiry string) (string, error) {
	var sb strings.Builder
	err := r.tmpl.Execute(&sb, struct {
		Name    string
		Inquiry string
	}{Name: name, Inquiry: inquiry})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}
