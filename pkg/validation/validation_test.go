package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/trysourcetool/sourcetool/pkg/validation"
	"github.com/trysourcetool/sourcetool/pkg/widget"
)

func TestValidate(t *testing.T) {
	some := widget.Some[string]
	tests := []struct {
		name    string
		content widget.Content
		ok      bool
	}{
		{"text required unset", &widget.TextInput{Required: true}, false},
		{"text required empty", &widget.TextInput{Required: true, Value: some("")}, false},
		{"text optional empty ignores min", &widget.TextInput{MinLength: widget.Some(3)}, true},
		{"text too short", &widget.TextInput{Value: some("ab"), MinLength: widget.Some(3)}, false},
		{"text counts runes", &widget.TextArea{Value: some("héé"), MaxLength: widget.Some(3)}, true},
		{"text too long", &widget.TextArea{Value: some("abcd"), MaxLength: widget.Some(3)}, false},

		{"number required unset", &widget.NumberInput{Required: true}, false},
		{"number zero is present", &widget.NumberInput{Required: true, Value: widget.Some(0.0)}, true},
		{"number bounds skip unset", &widget.NumberInput{MinValue: widget.Some(1.0)}, true},
		{"number below min", &widget.NumberInput{Value: widget.Some(0.5), MinValue: widget.Some(1.0)}, false},
		{"number above max", &widget.NumberInput{Value: widget.Some(11.0), MaxValue: widget.Some(10.0)}, false},

		{"date required", &widget.DateInput{Required: true}, false},
		{"date malformed", &widget.DateInput{Value: some("09/03/2024")}, false},
		{"date before min", &widget.DateInput{Value: some("2024-01-01"), MinValue: some("2024-02-01")}, false},
		{"date in range", &widget.DateInput{Value: some("2024-02-10"), MinValue: some("2024-02-01"), MaxValue: some("2024-03-01")}, true},
		{"datetime after max", &widget.DateTimeInput{Value: some("2024-03-01 10:00:01"), MaxValue: some("2024-03-01 10:00:00")}, false},
		{"time has no range", &widget.TimeInput{Value: some("23:59:59")}, true},
		{"time required", &widget.TimeInput{Required: true}, false},

		{"checkbox required false", &widget.Checkbox{Required: true}, false},
		{"checkbox required true", &widget.Checkbox{Required: true, Value: true}, true},
		{"group required empty", &widget.CheckboxGroup{Required: true, Options: []string{"a"}}, false},
		{"multiselect out of range", &widget.MultiSelect{Value: []int{3}, Options: []string{"a"}}, false},
		{"radio required unset", &widget.Radio{Required: true, Options: []string{"a"}}, false},
		{"selectbox index zero", &widget.Selectbox{Required: true, Value: widget.Some(0), Options: []string{"a"}}, true},

		{"markdown always valid", &widget.Markdown{Body: "x"}, true},
		{"form always valid", &widget.Form{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := validation.Validate(tt.content)
			assert.Equal(t, tt.ok, res.OK)
			if !tt.ok {
				assert.NotEmpty(t, res.Message)
			}
		})
	}
}

func TestValidate_RequiredMessage(t *testing.T) {
	res := validation.Validate(&widget.TextInput{Required: true})
	assert.Equal(t, validation.MsgRequired, res.Message)
}

func TestValidateTree(t *testing.T) {
	widgets := []*widget.Widget{
		widget.New("a", widget.Path{0}, &widget.TextInput{Required: true}),
		widget.New("b", widget.Path{1}, &widget.TextInput{Value: widget.Some("ok")}),
		nil,
	}
	failures := validation.ValidateTree(widgets)
	assert.Len(t, failures, 1)
	assert.Contains(t, failures, "a")
}
