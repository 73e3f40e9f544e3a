package domain

import (
	"strings"
	"time"
)

// InputType enumerates the accepted label submission channels. Photo and
// voice submissions arrive pre-transcribed to text by the client.
type InputType string

const (
	InputTypePhoto InputType = "photo"
	InputTypeText  InputType = "text"
	InputTypeVoice InputType = "voice"
)

// ValidInputType reports whether t is one of the accepted submission channels.
func ValidInputType(t string) bool {
	switch InputType(t) {
	case InputTypePhoto, InputTypeText, InputTypeVoice:
		return true
	}
	return false
}

// Efficacy enumerates how well an ingredient dose matches clinical evidence.
type Efficacy string

const (
	EfficacyHigh   Efficacy = "high"
	EfficacyMedium Efficacy = "medium"
	EfficacyLow    Efficacy = "low"
)

// Ingredient is a single row of the dosage breakdown.
type Ingredient struct {
	Name         string   `json:"name"`
	ActualDosage string   `json:"actualDosage"`
	IdealDosage  string   `json:"idealDosage"`
	Percentage   int      `json:"percentage"`
	Efficacy     Efficacy `json:"efficacy"`
	Explanation  string   `json:"explanation"`
}

// AlternativeProduct is a suggested replacement, online or from a local store.
type AlternativeProduct struct {
	Name         string  `json:"name"`
	Brand        string  `json:"brand"`
	Score        int     `json:"score"`
	Price        float64 `json:"price"`
	CurrentPrice float64 `json:"currentPrice,omitempty"`
	Savings      float64 `json:"savings,omitempty"`
	Location     string  `json:"location,omitempty"`
	Distance     string  `json:"distance,omitempty"`
	URL          string  `json:"url,omitempty"`
}

// AnalysisResult is the structured verdict for one supplement label.
type AnalysisResult struct {
	ProductName        string               `json:"productName"`
	Brand              string               `json:"brand"`
	Score              int                  `json:"score"`
	Ingredients        []Ingredient         `json:"ingredients"`
	TotalSavings       float64              `json:"totalSavings"`
	OnlineAlternatives []AlternativeProduct `json:"onlineAlternatives"`
	LocalAlternatives  []AlternativeProduct `json:"localAlternatives"`
}

// Analysis is a persisted AnalysisResult.
type Analysis struct {
	ID        string
	UserID    string // empty for anonymous callers
	Result    AnalysisResult
	CreatedAt time.Time
}

// ClampScore forces a model-produced score into the [0,100] contract.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Normalize coerces a result coming from the model boundary into the shape
// the rest of the service may trust: scores and percentages clamped into
// [0,100], efficacy reduced to the known enum, blank names defaulted.
// Model output is untrusted input and must pass through here before it is
// persisted or returned.
func (r *AnalysisResult) Normalize() {
	if strings.TrimSpace(r.ProductName) == "" {
		r.ProductName = "Unknown Product"
	}
	r.ProductName = strings.TrimSpace(r.ProductName)
	r.Brand = strings.TrimSpace(r.Brand)
	r.Score = ClampScore(r.Score)
	if r.TotalSavings < 0 {
		r.TotalSavings = 0
	}
	for i := range r.Ingredients {
		ing := &r.Ingredients[i]
		ing.Name = strings.TrimSpace(ing.Name)
		if ing.Name == "" {
			ing.Name = "Unknown Ingredient"
		}
		ing.Percentage = ClampScore(ing.Percentage)
		ing.Efficacy = normalizeEfficacy(ing.Efficacy)
	}
	normalizeAlternatives(r.OnlineAlternatives)
	normalizeAlternatives(r.LocalAlternatives)
}

func normalizeAlternatives(items []AlternativeProduct) {
	for i := range items {
		alt := &items[i]
		alt.Name = strings.TrimSpace(alt.Name)
		alt.Score = ClampScore(alt.Score)
		if alt.Price < 0 {
			alt.Price = 0
		}
		if alt.Savings < 0 {
			alt.Savings = 0
		}
	}
}

func normalizeEfficacy(e Efficacy) Efficacy {
	switch Efficacy(strings.ToLower(strings.TrimSpace(string(e)))) {
	case EfficacyHigh:
		return EfficacyHigh
	case EfficacyLow:
		return EfficacyLow
	default:
		return EfficacyMedium
	}
}
