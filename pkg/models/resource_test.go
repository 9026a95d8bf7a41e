package models

import "testing"

func TestResourceKind_Valid(t *testing.T) {
	tests := []struct {
		name string
		kind ResourceKind
		want bool
	}{
		{"worker is valid", ResourceWorker, true},
		{"computational is valid", ResourceComputational, true},
		{"memory is valid", ResourceMemory, true},
		{"token_budget is valid", ResourceTokenBudget, true},
		{"external_api is valid", ResourceExternalAPI, true},
		{"empty string is invalid", ResourceKind(""), false},
		{"unknown kind is invalid", ResourceKind("gpu"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.kind.Valid(); got != tt.want {
				t.Errorf("ResourceKind(%q).Valid() = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestResourceEntry_Utilization(t *testing.T) {
	entry := &ResourceEntry{ID: "tokens", Kind: ResourceTokenBudget, Capacity: 1000, Allocated: 250}
	if got := entry.Utilization(); got != 0.25 {
		t.Errorf("Utilization() = %v, want 0.25", got)
	}

	empty := &ResourceEntry{ID: "empty", Capacity: 0}
	if got := empty.Utilization(); got != 0 {
		t.Errorf("Utilization() with zero capacity = %v, want 0", got)
	}
}

func TestWorker_HasTool(t *testing.T) {
	w := &Worker{ID: "w1", Tools: []string{"search", "filesystem"}}
	if !w.HasTool("search") {
		t.Error("HasTool(search) = false, want true")
	}
	if w.HasTool("browser") {
		t.Error("HasTool(browser) = true, want false")
	}
}
