package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	base := Spec{
		TaskName:       "task",
		FunctionName:   "fn",
		ArrayFieldName: "items",
		Record:         RecordShape{{Name: "a", Type: FieldString}},
	}

	tests := []struct {
		name    string
		mutate  func(s *Spec)
		wantErr error
	}{
		{name: "valid", mutate: func(*Spec) {}},
		{name: "missing task", mutate: func(s *Spec) { s.TaskName = " " }, wantErr: ErrMissingTaskName},
		{name: "missing function", mutate: func(s *Spec) { s.FunctionName = "" }, wantErr: ErrMissingFunctionName},
		{name: "missing array field", mutate: func(s *Spec) { s.ArrayFieldName = "" }, wantErr: ErrMissingArrayField},
		{name: "empty record", mutate: func(s *Spec) { s.Record = nil }, wantErr: ErrEmptyRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := base
			tt.mutate(&spec)
			c, err := New(spec)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "task", c.TaskName())
		})
	}
}

func TestNew_RejectsBadFields(t *testing.T) {
	_, err := New(Spec{
		TaskName: "t", FunctionName: "f", ArrayFieldName: "items",
		Record: RecordShape{{Name: "a", Type: "boolean"}},
	})
	assert.Error(t, err)

	_, err = New(Spec{
		TaskName: "t", FunctionName: "f", ArrayFieldName: "items",
		Record: RecordShape{{Name: "a", Type: FieldString}, {Name: "a", Type: FieldNumber}},
	})
	assert.Error(t, err)

	_, err = New(Spec{
		TaskName: "t", FunctionName: "f", ArrayFieldName: "items",
		Record:       RecordShape{{Name: "a", Type: FieldString}},
		SiblingField: "items",
	})
	assert.Error(t, err)
}

func TestJourneySchema(t *testing.T) {
	schema := Journey.OutputSchema()

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"journeySteps", "responseTitle"}, schema["required"])

	props := schema["properties"].(map[string]any)
	require.Contains(t, props, "journeySteps")
	require.Contains(t, props, "responseTitle")

	items := props["journeySteps"].(map[string]any)["items"].(map[string]any)
	assert.Equal(t, []string{"step", "title", "description"}, items["required"])
	itemProps := items["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "number"}, itemProps["step"])
	assert.Equal(t, map[string]any{"type": "string"}, itemProps["title"])
}

func TestPainPointsShape(t *testing.T) {
	assert.False(t, PainPoints.HasSibling())
	assert.Equal(t, []string{"customer-pain-1", "customer-pain-2", "customer-pain-3"}, PainPoints.FieldNames())
	assert.Equal(t, []string{"painPoints"}, PainPoints.OutputSchema()["required"])
}

func TestContractIsImmutable(t *testing.T) {
	record := Journey.Record()
	record[0].Name = "mutated"
	assert.Equal(t, "step", Journey.Record()[0].Name)

	schema := Journey.OutputSchema()
	schema["type"] = "array"
	assert.Equal(t, "object", Journey.OutputSchema()["type"])
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{TaskCustomerJourney, TaskCustomerPains}, r.Names())

	c, ok := r.Lookup(TaskCustomerPains)
	require.True(t, ok)
	assert.Equal(t, "createPainPoints", c.FunctionName())

	_, ok = r.Lookup("unknown")
	assert.False(t, ok)

	_, err := NewRegistry(Journey, Journey)
	assert.Error(t, err)
}
