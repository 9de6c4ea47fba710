package observability

import (
	"strconv"
	"strings"

	"github.com/Conceptual-Machines/journey-api/internal/llm"
)

// Pricing constants
const (
	tokensPerKilo       = 1000.0
	costFormatPrecision = 6
	defaultPricingModel = "gpt-4"
)

// ModelPricing contains pricing information per 1K tokens
type ModelPricing struct {
	InputPricePer1K  float64 // Price per 1K input tokens in USD
	OutputPricePer1K float64 // Price per 1K output tokens in USD
}

// PricingTable contains pricing for known chat models
var PricingTable = map[string]ModelPricing{
	"gpt-4":            {InputPricePer1K: 0.03, OutputPricePer1K: 0.06},
	"gpt-4-turbo":      {InputPricePer1K: 0.01, OutputPricePer1K: 0.03},
	"gpt-4o":           {InputPricePer1K: 0.0025, OutputPricePer1K: 0.01},
	"gpt-4o-mini":      {InputPricePer1K: 0.00015, OutputPricePer1K: 0.0006},
	"gpt-3.5-turbo":    {InputPricePer1K: 0.0005, OutputPricePer1K: 0.0015},
	"gemini-2.5-flash": {InputPricePer1K: 0.0003, OutputPricePer1K: 0.0025},
	"gemini-2.5-pro":   {InputPricePer1K: 0.00125, OutputPricePer1K: 0.01},
}

// PricingFor returns the pricing for model. Dated snapshots such as
// gpt-4o-2024-08-06 match their base name; unknown models use gpt-4 pricing.
func PricingFor(model string) ModelPricing {
	if pricing, ok := PricingTable[model]; ok {
		return pricing
	}
	best := ""
	for name := range PricingTable {
		if strings.HasPrefix(model, name+"-") && len(name) > len(best) {
			best = name
		}
	}
	if best != "" {
		return PricingTable[best]
	}
	return PricingTable[defaultPricingModel]
}

// CalculateCost calculates the cost in USD for one invocation
func CalculateCost(model string, usage llm.Usage) float64 {
	pricing := PricingFor(model)
	inputCost := (float64(usage.InputTokens) / tokensPerKilo) * pricing.InputPricePer1K
	outputCost := (float64(usage.OutputTokens) / tokensPerKilo) * pricing.OutputPricePer1K
	return inputCost + outputCost
}

// FormatCost formats a cost value as a USD string
func FormatCost(cost float64) string {
	return "$" + strconv.FormatFloat(cost, 'f', costFormatPrecision, 64)
}
