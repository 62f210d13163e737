package domain

import "testing"

func TestDecodeSettings(t *testing.T) {
	settings, err := DecodeSettings(map[string]any{
		"submitButtonText": "Send",
		"allowBack":        "false",
		"responseLimit":    "25",
		"closed":           true,
		"primaryColor":     "#ff0000",
	})
	if err != nil {
		t.Fatalf("DecodeSettings() error = %v", err)
	}

	if settings.SubmitButtonText != "Send" {
		t.Errorf("SubmitButtonText = %q", settings.SubmitButtonText)
	}
	if settings.AllowBack {
		t.Error("AllowBack should be decoded from string")
	}
	if settings.ResponseLimit != 25 {
		t.Errorf("ResponseLimit = %d, want 25", settings.ResponseLimit)
	}
	if !settings.Closed {
		t.Error("Closed should be true")
	}
	// значения по умолчанию сохраняются
	if settings.SuccessMessage != "Thank you!" || !settings.ShowProgressBar {
		t.Errorf("defaults lost: %+v", settings)
	}
}

func TestDecodeSettings_Empty(t *testing.T) {
	settings, err := DecodeSettings(nil)
	if err != nil {
		t.Fatalf("DecodeSettings(nil) error = %v", err)
	}
	if settings != DefaultFormSettings() {
		t.Errorf("settings = %+v, want defaults", settings)
	}
}

func TestFlow_FormSettings_InvalidFallsBack(t *testing.T) {
	f := &Flow{Settings: map[string]any{"responseLimit": "many"}}

	if got := f.FormSettings(); got != DefaultFormSettings() {
		t.Errorf("FormSettings() = %+v, want defaults", got)
	}
}

func TestFlowStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    FlowStatus
		accepts bool
	}{
		{"draft", FlowStatusDraft, false},
		{"published", FlowStatusPublished, true},
		{"archived", FlowStatusArchived, false},
		{"garbage", FlowStatusDraft, false},
	}

	for _, tt := range tests {
		got := ParseFlowStatus(tt.in)
		if got != tt.want {
			t.Errorf("ParseFlowStatus(%q) = %s, want %s", tt.in, got, tt.want)
		}
		if got.AcceptsResponses() != tt.accepts {
			t.Errorf("%s.AcceptsResponses() = %v", got, got.AcceptsResponses())
		}
	}
}

func TestFlowVersion_AsFlow(t *testing.T) {
	v := &FlowVersion{
		Version: 3,
		Content: FlowContent{Title: "Survey", Nodes: []Node{{ID: "a", Type: NodeTypeFlowStep}, {ID: "end", Type: "end"}}},
	}

	f := v.AsFlow()
	if f.Status != FlowStatusPublished || f.Version != 3 || f.Title != "Survey" {
		t.Errorf("AsFlow() = %+v", f)
	}
	if steps := f.Steps(); len(steps) != 1 || steps[0].ID != "a" {
		t.Errorf("Steps() = %+v", steps)
	}
}
