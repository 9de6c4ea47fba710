package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/journey-api/internal/contract"
	"github.com/Conceptual-Machines/journey-api/internal/models"
)

// DefaultJourneySteps is how many steps a journey prompt asks for
const DefaultJourneySteps = 10

// ErrNoSteps is returned when a pain-points prompt has no journey to analyze
var ErrNoSteps = errors.New("at least one journey step is required")

// MissingFieldsError lists required form fields that were blank
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

type journeyView struct {
	TargetCustomers     string
	PersonaName         string
	BusinessProposition string
	CustomerScenario    string
	StepCount           int
}

type painPointsView struct {
	Steps        []models.JourneyStep
	PainsPerStep int
}

// BuildJourneyPrompt renders the journey prompt from a persona brief
func BuildJourneyPrompt(form models.JourneyFormData) (string, error) {
	view := journeyView{
		TargetCustomers:     strings.TrimSpace(form.TargetCustomers),
		PersonaName:         strings.TrimSpace(form.PersonaName),
		BusinessProposition: strings.TrimSpace(form.BusinessProposition),
		CustomerScenario:    strings.TrimSpace(form.CustomerScenario),
		StepCount:           DefaultJourneySteps,
	}

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"target_customers", view.TargetCustomers},
		{"persona_name", view.PersonaName},
		{"business_proposition", view.BusinessProposition},
		{"customer_scenario", view.CustomerScenario},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return "", &MissingFieldsError{Fields: missing}
	}

	var sb strings.Builder
	if err := journeyTemplate.Execute(&sb, view); err != nil {
		return "", fmt.Errorf("failed to render journey prompt: %w", err)
	}
	return strings.TrimSpace(sb.String()), nil
}

// BuildPainPointsPrompt renders the follow-on prompt that asks for pain points per step
func BuildPainPointsPrompt(steps []models.JourneyStep) (string, error) {
	if len(steps) == 0 {
		return "", ErrNoSteps
	}

	cleaned := make([]models.JourneyStep, 0, len(steps))
	for i, s := range steps {
		s.Title = strings.TrimSpace(s.Title)
		s.Description = strings.TrimSpace(s.Description)
		if s.Title == "" && s.Description == "" {
			return "", fmt.Errorf("journey step %d has neither title nor description", i+1)
		}
		cleaned = append(cleaned, s)
	}

	// One pain point per field of the pain-points record
	view := painPointsView{Steps: cleaned, PainsPerStep: len(contract.PainPoints.Record())}

	var sb strings.Builder
	err := painPointsTemplate.Execute(&sb, view)
	if err != nil {
		return "", fmt.Errorf("failed to render pain points prompt: %w", err)
	}
	return strings.TrimSpace(sb.String()), nil
}
