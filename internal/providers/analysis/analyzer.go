package analysis

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"nutrascan/internal/domain"
)

// Analyzer turns raw supplement-label text into a structured verdict.
type Analyzer interface {
	Analyze(ctx context.Context, content string) (*domain.AnalysisResult, error)
}

// Recommender produces a free-text supplement recommendation for a stated
// fitness or health goal.
type Recommender interface {
	Recommend(ctx context.Context, goal string) (string, error)
}

// StaticAnalyzer is the deterministic fallback used when no model provider is
// configured or the provider call fails. It produces a conservative
// mid-range verdict derived from the label text alone.
type StaticAnalyzer struct{}

func NewStaticAnalyzer() *StaticAnalyzer {
	return &StaticAnalyzer{}
}

func (s *StaticAnalyzer) Analyze(_ context.Context, content string) (*domain.AnalysisResult, error) {
	name := guessProductName(content)
	result := &domain.AnalysisResult{
		ProductName: name,
		Brand:       "Unknown",
		Score:       55,
		Ingredients: []domain.Ingredient{{
			Name:         name,
			ActualDosage: "per label",
			IdealDosage:  "per clinical reference",
			Percentage:   55,
			Efficacy:     domain.EfficacyMedium,
			Explanation:  "Automatic scoring was unavailable; dosage could not be compared against clinical references.",
		}},
		TotalSavings: 0,
		OnlineAlternatives: []domain.AlternativeProduct{{
			Name:  fmt.Sprintf("%s (third-party tested)", name),
			Brand: "NutraScan Picks",
			Score: 80,
			Price: 24.99,
			URL:   "https://nutrascan.example/picks",
		}},
		LocalAlternatives: []domain.AlternativeProduct{{
			Name:     fmt.Sprintf("%s (store brand)", name),
			Brand:    "Local Pharmacy",
			Score:    72,
			Price:    19.99,
			Location: "nearby pharmacy",
		}},
	}
	result.Normalize()
	return result, nil
}

func (s *StaticAnalyzer) Recommend(_ context.Context, goal string) (string, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		goal = "general wellness"
	}
	return fmt.Sprintf("For %s, prioritize a third-party tested multivitamin, vitamin D3 (1000-2000 IU) and omega-3 (1g EPA/DHA daily). Review dosages against clinical references before buying.", goal), nil
}

// guessProductName lifts a display name from the first line of the label
// text. Labels usually open with the product name before the facts panel.
func guessProductName(content string) string {
	line := strings.TrimSpace(content)
	if idx := strings.IndexAny(line, "\n,;"); idx > 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "Unknown Product"
	}
	words := strings.Fields(line)
	if len(words) > 6 {
		words = words[:6]
	}
	c := cases.Title(language.Und, cases.NoLower)
	return c.String(strings.Join(words, " "))
}

var (
	_ Analyzer    = (*StaticAnalyzer)(nil)
	_ Recommender = (*StaticAnalyzer)(nil)
)
