package models

// JourneyFormData is the persona brief a customer journey is generated from
type JourneyFormData struct {
	TargetCustomers     string `json:"target_customers" binding:"required"`
	PersonaName         string `json:"persona_name" binding:"required"`
	BusinessProposition string `json:"business_proposition" binding:"required"`
	CustomerScenario    string `json:"customer_scenario" binding:"required"`
}

// JourneyStep is one generated step of a customer journey
type JourneyStep struct {
	Step          float64 `json:"step"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	ResponseTitle string  `json:"responseTitle,omitempty"`
}

// PainPointsRequest carries the journey steps pain points are derived from
type PainPointsRequest struct {
	Steps []JourneyStep `json:"steps" binding:"required"`
}

// GenerationRequest is the raw prompt body accepted by the generation routes
type GenerationRequest struct {
	FormattedPrompt string `json:"formattedPrompt"`
}

// GenerationResponse wraps the generated records
type GenerationResponse struct {
	Data []map[string]any `json:"data"`
}
