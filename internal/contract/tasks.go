package contract

import (
	"fmt"
	"sort"
)

const (
	TaskCustomerJourney = "customer-journey"
	TaskCustomerPains   = "customer-pains"

	painPointsPerStep = 3
)

// Journey asks for ordered customer journey steps plus a shared title.
var Journey = MustNew(Spec{
	TaskName:       TaskCustomerJourney,
	FunctionName:   "createJourneySteps",
	Description:    "Create customer journey steps",
	ArrayFieldName: "journeySteps",
	Record: RecordShape{
		{Name: "step", Type: FieldNumber},
		{Name: "title", Type: FieldString},
		{Name: "description", Type: FieldString},
	},
	SiblingField: "responseTitle",
})

// PainPoints asks for three customer pain points per journey step.
var PainPoints = MustNew(Spec{
	TaskName:       TaskCustomerPains,
	FunctionName:   "createPainPoints",
	Description:    "Create three customer pain points per journey step",
	ArrayFieldName: "painPoints",
	Record:         AnonymousFields("customer-pain", painPointsPerStep, FieldString),
})

// Registry resolves contracts by task name. It is filled at startup and only
// read afterwards.
type Registry struct {
	contracts map[string]*GenerationContract
}

// NewRegistry indexes the given contracts by task name.
func NewRegistry(contracts ...*GenerationContract) (*Registry, error) {
	r := &Registry{contracts: make(map[string]*GenerationContract, len(contracts))}
	for _, c := range contracts {
		if _, dup := r.contracts[c.TaskName()]; dup {
			return nil, fmt.Errorf("contract: task %q registered twice", c.TaskName())
		}
		r.contracts[c.TaskName()] = c
	}
	return r, nil
}

// DefaultRegistry holds the built-in journey and pain point contracts.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(Journey, PainPoints)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the contract for task, if registered.
func (r *Registry) Lookup(task string) (*GenerationContract, bool) {
	c, ok := r.contracts[task]
	return c, ok
}

// Names lists registered task names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.contracts))
	for name := range r.contracts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
