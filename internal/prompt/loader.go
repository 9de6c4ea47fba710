package prompt

import (
	"strings"
	"text/template"

	"github.com/Conceptual-Machines/journey-api/pkg/embedded"
)

var (
	journeyTemplate    = template.Must(template.New("journey").Option("missingkey=error").Parse(string(embedded.JourneyPromptTmpl)))
	painPointsTemplate = template.Must(template.New("pain_points").Option("missingkey=error").Parse(string(embedded.PainPointsPromptTmpl)))
)

// Loader reads embedded prompt assets
type Loader struct{}

// NewPromptLoader creates a new prompt loader
func NewPromptLoader() *Loader {
	return &Loader{}
}

// GetSystemPrompt loads the system prompt sent with every generation
func (l *Loader) GetSystemPrompt() string {
	return strings.TrimSpace(string(embedded.SystemPromptTxt))
}
