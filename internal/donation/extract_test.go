package donation

import "testing"

func TestExtractParametersFromSlotMatch(t *testing.T) {
	method := &MethodDonation{
		MethodName: "set",
		Parameters: []ParameterSpec{
			{Name: "minutes", Type: ParamInteger, Required: true},
		},
	}
	entities, err := ExtractParameters(method, nil, map[string]string{"minutes": "10"})
	if err != nil {
		t.Fatal(err)
	}
	if entities["minutes"] != int64(10) {
		t.Fatalf("expected minutes=10, got %v", entities["minutes"])
	}
}

func TestExtractParametersRequiredMissing(t *testing.T) {
	method := &MethodDonation{
		MethodName: "set",
		Parameters: []ParameterSpec{
			{Name: "minutes", Type: ParamInteger, Required: true},
		},
	}
	_, err := ExtractParameters(method, nil, nil)
	if err == nil {
		t.Fatal("expected error for missing required parameter")
	}
}

func TestExtractParametersDefaultValue(t *testing.T) {
	method := &MethodDonation{
		MethodName: "set",
		Parameters: []ParameterSpec{
			{Name: "unit", Type: ParamString, DefaultValue: "minutes"},
		},
	}
	entities, err := ExtractParameters(method, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if entities["unit"] != "minutes" {
		t.Fatalf("expected default value applied, got %v", entities["unit"])
	}
}

func TestExtractParametersChoiceValidation(t *testing.T) {
	method := &MethodDonation{
		MethodName: "set",
		Parameters: []ParameterSpec{
			{Name: "mode", Type: ParamChoice, Choices: []string{"on", "off"}, Required: true},
		},
	}
	if _, err := ExtractParameters(method, nil, map[string]string{"mode": "maybe"}); err == nil {
		t.Fatal("expected error for value outside choices")
	}
	entities, err := ExtractParameters(method, nil, map[string]string{"mode": "on"})
	if err != nil {
		t.Fatal(err)
	}
	if entities["mode"] != "on" {
		t.Fatalf("expected mode=on, got %v", entities["mode"])
	}
}

func TestExtractParametersRangeValidation(t *testing.T) {
	min := 1.0
	max := 60.0
	method := &MethodDonation{
		MethodName: "set",
		Parameters: []ParameterSpec{
			{Name: "minutes", Type: ParamInteger, MinValue: &min, MaxValue: &max, Required: true},
		},
	}
	if _, err := ExtractParameters(method, nil, map[string]string{"minutes": "0"}); err == nil {
		t.Fatal("expected range validation error below min")
	}
	if _, err := ExtractParameters(method, nil, map[string]string{"minutes": "61"}); err == nil {
		t.Fatal("expected range validation error above max")
	}
}

func TestExtractParametersAlias(t *testing.T) {
	method := &MethodDonation{
		MethodName: "set",
		Parameters: []ParameterSpec{
			{Name: "minutes", Type: ParamInteger, Aliases: []string{"duration"}, Required: true},
		},
	}
	entities, err := ExtractParameters(method, nil, map[string]string{"duration": "5"})
	if err != nil {
		t.Fatal(err)
	}
	if entities["minutes"] != int64(5) {
		t.Fatalf("expected alias lookup to populate minutes, got %v", entities["minutes"])
	}
}
