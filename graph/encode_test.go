package graph

import "testing"

func TestClassifyType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Payer", TypePayer},
		{"payer", TypePayer},
		{"PAYER", TypePayer},
		{" Provider ", TypeProvider},
		{"vendor", TypeVendor},
		{"Integrated", TypeIntegrated},
		{"Unknown", TypeUnknown},
		{"", TypeUnknown},
		{"Nonsense", TypeUnknown},
		{"Cooperative", TypeUnknown},
	}
	for _, tt := range tests {
		if got := ClassifyType(tt.in); got != tt.want {
			t.Errorf("ClassifyType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestColorFor(t *testing.T) {
	// Same color for a type regardless of letter case.
	if ColorFor("Payer") != ColorFor("payer") || ColorFor("Payer") != ColorFor("PAYER") {
		t.Error("payer color varies with letter case")
	}

	// Unrecognized and empty types share one default color.
	if ColorFor("Nonsense") != ColorFor("") {
		t.Errorf("ColorFor(%q) = %q, ColorFor(\"\") = %q, want equal", "Nonsense", ColorFor("Nonsense"), ColorFor(""))
	}

	// The four known categories and the default are pairwise distinct.
	colors := map[string]string{
		TypePayer:      ColorFor(TypePayer),
		TypeProvider:   ColorFor(TypeProvider),
		TypeVendor:     ColorFor(TypeVendor),
		TypeIntegrated: ColorFor(TypeIntegrated),
		TypeUnknown:    ColorFor(TypeUnknown),
	}
	seen := make(map[string]string)
	for typ, c := range colors {
		if prev, ok := seen[c]; ok {
			t.Errorf("types %q and %q share color %q", prev, typ, c)
		}
		seen[c] = typ
	}
}

func TestSizeFor(t *testing.T) {
	tests := []struct {
		revenue string
		want    float64
	}{
		{"", SizeDefault},
		{"abc", SizeDefault},
		{"$4B", SizeDefault},
		{".", SizeDefault},
		{"300B", SizeMax},
		{"324.2B", SizeMax},
		{"50B", 50},
		{" 50B ", 50},
		{"80M", 8},
		{"100M", 10},
		{"5M", SizeMin},
		{"1.5B", SizeMin},
		{"500", 10},
		{"300b", 6},
	}
	for _, tt := range tests {
		if got := SizeFor(tt.revenue); got != tt.want {
			t.Errorf("SizeFor(%q) = %g, want %g", tt.revenue, got, tt.want)
		}
	}
}

func TestSizeForOrdersMagnitudeTiers(t *testing.T) {
	// 300B > 50B > 80M > 5M, and nothing renders below the bare-node size.
	revenues := []string{"300B", "50B", "80M", "5M"}
	sizes := make([]float64, len(revenues))
	for i, r := range revenues {
		sizes[i] = SizeFor(r)
		if sizes[i] < SizeDefault {
			t.Errorf("SizeFor(%q) = %g, below the default %g", r, sizes[i], SizeDefault)
		}
	}
	for i := 1; i < len(sizes); i++ {
		if sizes[i-1] <= sizes[i] {
			t.Errorf("SizeFor(%q) = %g not greater than SizeFor(%q) = %g",
				revenues[i-1], sizes[i-1], revenues[i], sizes[i])
		}
	}
}
