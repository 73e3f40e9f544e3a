package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"nutrascan/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func geminiCandidateResponse(text string) *http.Response {
	body := fmt.Sprintf(`{"candidates":[{"content":{"role":"model","parts":[{"text":%q}]}}]}`, text)
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func newTestAnalyzer(t *testing.T, transport roundTripFunc) *GeminiAnalyzer {
	t.Helper()
	analyzer, err := NewGeminiAnalyzer(GeminiOptions{
		APIKey:     "dummy",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("NewGeminiAnalyzer: %v", err)
	}
	return analyzer
}

func TestGeminiAnalyzerParsesAndClamps(t *testing.T) {
	payload := `{"productName":"Vitamin D3 5000 IU","brand":"SunCo","score":137,` +
		`"ingredients":[{"name":"Vitamin D3","actualDosage":"5000 IU","idealDosage":"2000 IU","percentage":250,"efficacy":"High","explanation":"above reference"}],` +
		`"totalSavings":12.5,"onlineAlternatives":[{"name":"Alt","brand":"B","score":-5,"price":9.99,"url":"https://example.com"}],"localAlternatives":[]}`

	analyzer := newTestAnalyzer(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s", r.Method)
		}
		return geminiCandidateResponse(payload), nil
	})

	result, err := analyzer.Analyze(context.Background(), "Vitamin D3 5000 IU")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.ProductName != "Vitamin D3 5000 IU" || result.Brand != "SunCo" {
		t.Fatalf("result header = %q / %q", result.ProductName, result.Brand)
	}
	if result.Score != 100 {
		t.Fatalf("Score = %d, want clamped 100", result.Score)
	}
	if len(result.Ingredients) != 1 || result.Ingredients[0].Percentage != 100 {
		t.Fatalf("ingredients = %+v", result.Ingredients)
	}
	if result.Ingredients[0].Efficacy != domain.EfficacyHigh {
		t.Fatalf("efficacy = %q", result.Ingredients[0].Efficacy)
	}
	if len(result.OnlineAlternatives) != 1 || result.OnlineAlternatives[0].Score != 0 {
		t.Fatalf("alternatives = %+v", result.OnlineAlternatives)
	}
}

func TestGeminiAnalyzerStripsCodeFence(t *testing.T) {
	fenced := "```json\n{\"productName\":\"Magnesium Glycinate\",\"score\":88,\"ingredients\":[]}\n```"
	analyzer := newTestAnalyzer(t, func(*http.Request) (*http.Response, error) {
		return geminiCandidateResponse(fenced), nil
	})

	result, err := analyzer.Analyze(context.Background(), "Magnesium Glycinate 200mg")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.ProductName != "Magnesium Glycinate" || result.Score != 88 {
		t.Fatalf("result = %+v", result)
	}
}

func TestGeminiAnalyzerFallsBackOnTransportError(t *testing.T) {
	analyzer := newTestAnalyzer(t, func(*http.Request) (*http.Response, error) {
		return nil, errors.New("boom")
	})

	result, err := analyzer.Analyze(context.Background(), "Zinc Picolinate")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.ProductName != "Zinc Picolinate" {
		t.Fatalf("fallback product name = %q", result.ProductName)
	}
	if result.Score < 0 || result.Score > 100 {
		t.Fatalf("fallback score out of range: %d", result.Score)
	}
}

func TestGeminiAnalyzerFallsBackOnMalformedJSON(t *testing.T) {
	analyzer := newTestAnalyzer(t, func(*http.Request) (*http.Response, error) {
		return geminiCandidateResponse("not json at all"), nil
	})

	result, err := analyzer.Analyze(context.Background(), "Creatine Monohydrate")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.ProductName != "Creatine Monohydrate" {
		t.Fatalf("fallback product name = %q", result.ProductName)
	}
}

func TestGeminiRecommend(t *testing.T) {
	analyzer := newTestAnalyzer(t, func(*http.Request) (*http.Response, error) {
		return geminiCandidateResponse(`{"recommendation":"Take creatine 5g daily."}`), nil
	})

	rec, err := analyzer.Recommend(context.Background(), "muscle gain")
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec != "Take creatine 5g daily." {
		t.Fatalf("recommendation = %q", rec)
	}
}

func TestGeminiRecommendFallsBack(t *testing.T) {
	analyzer := newTestAnalyzer(t, func(*http.Request) (*http.Response, error) {
		return nil, errors.New("boom")
	})

	rec, err := analyzer.Recommend(context.Background(), "sleep quality")
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if !strings.Contains(rec, "sleep quality") {
		t.Fatalf("fallback recommendation = %q", rec)
	}
}

func TestNewGeminiAnalyzerRequiresKey(t *testing.T) {
	if _, err := NewGeminiAnalyzer(GeminiOptions{}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestGuessProductName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"vitamin d3 5000 iu\nServing size: 1 softgel", "Vitamin D3 5000 Iu"},
		{"", "Unknown Product"},
		{"omega 3 fish oil concentrate extra strength softgels 1000mg", "Omega 3 Fish Oil Concentrate Extra"},
	}
	for _, tc := range tests {
		if got := guessProductName(tc.in); got != tc.want {
			t.Fatalf("guessProductName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
