package domain

import "testing"

func TestClampScore(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{name: "above range", in: 137, want: 100},
		{name: "below range", in: -5, want: 0},
		{name: "upper bound", in: 100, want: 100},
		{name: "lower bound", in: 0, want: 0},
		{name: "in range", in: 72, want: 72},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClampScore(tc.in); got != tc.want {
				t.Fatalf("ClampScore(%d) = %d, want %d", tc.in, got, tc.want)
			}
		})
	}
}

func TestAnalysisResultNormalizeClampsAndCoerces(t *testing.T) {
	result := AnalysisResult{
		ProductName:  "  Vitamin D3 5000 IU ",
		Score:        137,
		TotalSavings: -12.5,
		Ingredients: []Ingredient{
			{Name: "Vitamin D3", Percentage: 250, Efficacy: "HIGH"},
			{Name: "", Percentage: -40, Efficacy: "unknown"},
		},
		OnlineAlternatives: []AlternativeProduct{
			{Name: "Alt A", Score: -5, Price: -1},
		},
		LocalAlternatives: []AlternativeProduct{
			{Name: "Alt B", Score: 101, Savings: -3},
		},
	}

	result.Normalize()

	if result.ProductName != "Vitamin D3 5000 IU" {
		t.Fatalf("ProductName = %q", result.ProductName)
	}
	if result.Score != 100 {
		t.Fatalf("Score = %d, want 100", result.Score)
	}
	if result.TotalSavings != 0 {
		t.Fatalf("TotalSavings = %v, want 0", result.TotalSavings)
	}
	if result.Ingredients[0].Percentage != 100 || result.Ingredients[0].Efficacy != EfficacyHigh {
		t.Fatalf("first ingredient = %+v", result.Ingredients[0])
	}
	if result.Ingredients[1].Name != "Unknown Ingredient" {
		t.Fatalf("blank ingredient name not defaulted: %q", result.Ingredients[1].Name)
	}
	if result.Ingredients[1].Percentage != 0 || result.Ingredients[1].Efficacy != EfficacyMedium {
		t.Fatalf("second ingredient = %+v", result.Ingredients[1])
	}
	if result.OnlineAlternatives[0].Score != 0 || result.OnlineAlternatives[0].Price != 0 {
		t.Fatalf("online alternative = %+v", result.OnlineAlternatives[0])
	}
	if result.LocalAlternatives[0].Score != 100 || result.LocalAlternatives[0].Savings != 0 {
		t.Fatalf("local alternative = %+v", result.LocalAlternatives[0])
	}
}

func TestAnalysisResultNormalizeDefaultsProductName(t *testing.T) {
	result := AnalysisResult{Score: 50}
	result.Normalize()
	if result.ProductName != "Unknown Product" {
		t.Fatalf("ProductName = %q, want Unknown Product", result.ProductName)
	}
}

func TestValidInputType(t *testing.T) {
	for _, valid := range []string{"photo", "text", "voice"} {
		if !ValidInputType(valid) {
			t.Fatalf("ValidInputType(%q) = false", valid)
		}
	}
	for _, invalid := range []string{"", "video", "TEXT"} {
		if ValidInputType(invalid) {
			t.Fatalf("ValidInputType(%q) = true", invalid)
		}
	}
}
