package entity

import (
	"reflect"
	"testing"
)

func TestMergeScalars(t *testing.T) {
	base := &Record{Name: "Optum", Type: "Provider", Parent: "UnitedHealth Group", Revenue: "226B"}

	tests := []struct {
		name   string
		update *Record
		want   *Record
	}{
		{
			name:   "empty update keeps base",
			update: &Record{},
			want:   &Record{Name: "Optum", Type: "Provider", Parent: "UnitedHealth Group", Revenue: "226B", Subsidiaries: []string{}, Relationships: []Relationship{}},
		},
		{
			name:   "non-empty fields overwrite",
			update: &Record{Type: "Integrated", Revenue: "250B"},
			want:   &Record{Name: "Optum", Type: "Integrated", Parent: "UnitedHealth Group", Revenue: "250B", Subsidiaries: []string{}, Relationships: []Relationship{}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(base, tt.update)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Merge() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMergeSubsidiaries(t *testing.T) {
	base := &Record{Name: "CVS Health", Subsidiaries: []string{"Aetna", "Caremark"}}
	update := &Record{Subsidiaries: []string{"Caremark", "Oak Street Health", ""}}

	got := Merge(base, update)
	want := []string{"Aetna", "Caremark", "Oak Street Health"}
	if !reflect.DeepEqual(got.Subsidiaries, want) {
		t.Errorf("Subsidiaries = %v, want %v", got.Subsidiaries, want)
	}
}

func TestMergeRelationships(t *testing.T) {
	base := &Record{
		Name: "Cigna",
		Relationships: []Relationship{
			{Target: "Express Scripts", Type: "owns"},
			{Target: "Humana", Type: "competitor"},
		},
	}
	update := &Record{
		Relationships: []Relationship{
			{Target: "Humana", Type: "competitor"},
			{Target: "Humana", Type: "partner"},
			{Target: "", Type: "vendor"},
		},
	}

	got := Merge(base, update)
	want := []Relationship{
		{Target: "Express Scripts", Type: "owns"},
		{Target: "Humana", Type: "competitor"},
		{Target: "Humana", Type: "partner"},
	}
	if !reflect.DeepEqual(got.Relationships, want) {
		t.Errorf("Relationships = %v, want %v", got.Relationships, want)
	}
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	base := &Record{Name: "Epic", Subsidiaries: []string{"a"}}
	update := &Record{Revenue: "4.9B", Subsidiaries: []string{"b"}}

	_ = Merge(base, update)

	if len(base.Subsidiaries) != 1 || base.Revenue != "" {
		t.Errorf("base mutated: %+v", base)
	}
	if len(update.Subsidiaries) != 1 {
		t.Errorf("update mutated: %+v", update)
	}
}
