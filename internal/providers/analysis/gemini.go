package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nutrascan/internal/domain"
)

type GeminiOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Fallback   Analyzer
}

// GeminiAnalyzer scores supplement labels through the Gemini generateContent
// API in JSON mode. Any failure along the way falls back to the static
// analyzer rather than surfacing a provider error to the caller.
type GeminiAnalyzer struct {
	apiKey   string
	model    string
	baseURL  string
	client   *http.Client
	fallback Analyzer
}

const geminiDefaultTimeout = 20 * time.Second

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	CandidateCount   int     `json:"candidateCount,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// geminiAnalysisPayload mirrors the JSON schema requested from the model.
// Every field is optional on the wire; Normalize fills the gaps afterwards.
type geminiAnalysisPayload struct {
	ProductName string `json:"productName"`
	Brand       string `json:"brand"`
	Score       int    `json:"score"`
	Ingredients []struct {
		Name         string `json:"name"`
		ActualDosage string `json:"actualDosage"`
		IdealDosage  string `json:"idealDosage"`
		Percentage   int    `json:"percentage"`
		Efficacy     string `json:"efficacy"`
		Explanation  string `json:"explanation"`
	} `json:"ingredients"`
	TotalSavings       float64                    `json:"totalSavings"`
	OnlineAlternatives []geminiAlternativePayload `json:"onlineAlternatives"`
	LocalAlternatives  []geminiAlternativePayload `json:"localAlternatives"`
}

type geminiAlternativePayload struct {
	Name         string  `json:"name"`
	Brand        string  `json:"brand"`
	Score        int     `json:"score"`
	Price        float64 `json:"price"`
	CurrentPrice float64 `json:"currentPrice"`
	Savings      float64 `json:"savings"`
	Location     string  `json:"location"`
	Distance     string  `json:"distance"`
	URL          string  `json:"url"`
}

func NewGeminiAnalyzer(opts GeminiOptions) (*GeminiAnalyzer, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-1.5-flash"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: geminiDefaultTimeout}
	}
	fallback := opts.Fallback
	if fallback == nil {
		fallback = NewStaticAnalyzer()
	}
	return &GeminiAnalyzer{
		apiKey:   opts.APIKey,
		model:    model,
		baseURL:  baseURL,
		client:   client,
		fallback: fallback,
	}, nil
}

func (g *GeminiAnalyzer) Analyze(ctx context.Context, content string) (*domain.AnalysisResult, error) {
	text, err := g.generate(ctx, buildAnalysisPrompt(content), 0.3)
	if err != nil {
		return g.fallback.Analyze(ctx, content)
	}
	parsed, err := parseGeminiPayload[geminiAnalysisPayload](text)
	if err != nil {
		return g.fallback.Analyze(ctx, content)
	}
	result := payloadToResult(parsed)
	result.Normalize()
	return result, nil
}

func (g *GeminiAnalyzer) Recommend(ctx context.Context, goal string) (string, error) {
	text, err := g.generate(ctx, buildRecommendPrompt(goal), 0.6)
	if err != nil {
		return g.fallbackRecommend(ctx, goal, err)
	}
	parsed, err := parseGeminiPayload[geminiRecommendPayload](text)
	if err != nil || strings.TrimSpace(parsed.Recommendation) == "" {
		return g.fallbackRecommend(ctx, goal, err)
	}
	return strings.TrimSpace(parsed.Recommendation), nil
}

type geminiRecommendPayload struct {
	Recommendation string `json:"recommendation"`
}

func (g *GeminiAnalyzer) fallbackRecommend(ctx context.Context, goal string, err error) (string, error) {
	if rec, ok := g.fallback.(Recommender); ok {
		return rec.Recommend(ctx, goal)
	}
	return "", fmt.Errorf("gemini recommend: %w", err)
}

func (g *GeminiAnalyzer) generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	payload := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:      temperature,
			CandidateCount:   1,
			ResponseMimeType: "application/json",
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(), &buf)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call gemini: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("gemini status %d", resp.StatusCode)
	}
	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	text := extractText(out)
	if text == "" {
		return "", errors.New("empty candidate text")
	}
	return text, nil
}

func (g *GeminiAnalyzer) endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(g.baseURL, "/"), url.PathEscape(g.model), url.QueryEscape(g.apiKey))
}

func buildAnalysisPrompt(content string) string {
	sb := &strings.Builder{}
	sb.WriteString("You are a supplement quality analyst. Given the text of a supplement label, score the product and compare every ingredient dose against clinical references. Respond strictly with JSON matching this schema: ")
	sb.WriteString(`{"productName":string,"brand":string,"score":integer 0-100,"ingredients":[{"name":string,"actualDosage":string,"idealDosage":string,"percentage":integer 0-100,"efficacy":"high"|"medium"|"low","explanation":string}],"totalSavings":number,"onlineAlternatives":[{"name":string,"brand":string,"score":integer,"price":number,"currentPrice":number,"savings":number,"url":string}],"localAlternatives":[{"name":string,"brand":string,"score":integer,"price":number,"location":string,"distance":string}]}`)
	fmt.Fprintf(sb, ". Keep explanations short and factual. Label text: %q", content)
	return sb.String()
}

func buildRecommendPrompt(goal string) string {
	return fmt.Sprintf("You are a supplement advisor. Recommend a concise supplement routine for the goal %q. Respond strictly as JSON: {\"recommendation\":string}. Keep it under 120 words and mention dosages.", goal)
}

func payloadToResult(p geminiAnalysisPayload) *domain.AnalysisResult {
	result := &domain.AnalysisResult{
		ProductName:  p.ProductName,
		Brand:        p.Brand,
		Score:        p.Score,
		TotalSavings: p.TotalSavings,
	}
	for _, ing := range p.Ingredients {
		result.Ingredients = append(result.Ingredients, domain.Ingredient{
			Name:         ing.Name,
			ActualDosage: ing.ActualDosage,
			IdealDosage:  ing.IdealDosage,
			Percentage:   ing.Percentage,
			Efficacy:     domain.Efficacy(ing.Efficacy),
			Explanation:  ing.Explanation,
		})
	}
	result.OnlineAlternatives = alternativesFromPayload(p.OnlineAlternatives)
	result.LocalAlternatives = alternativesFromPayload(p.LocalAlternatives)
	return result
}

func alternativesFromPayload(items []geminiAlternativePayload) []domain.AlternativeProduct {
	var out []domain.AlternativeProduct
	for _, item := range items {
		out = append(out, domain.AlternativeProduct{
			Name:         item.Name,
			Brand:        item.Brand,
			Score:        item.Score,
			Price:        item.Price,
			CurrentPrice: item.CurrentPrice,
			Savings:      item.Savings,
			Location:     item.Location,
			Distance:     item.Distance,
			URL:          item.URL,
		})
	}
	return out
}

func extractText(resp geminiResponse) string {
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return part.Text
			}
		}
	}
	return ""
}

func parseGeminiPayload[T any](raw string) (T, error) {
	var zero T
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return zero, errors.New("empty payload")
	}
	var decoded T
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return zero, err
	}
	return decoded, nil
}

func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

var (
	_ Analyzer    = (*GeminiAnalyzer)(nil)
	_ Recommender = (*GeminiAnalyzer)(nil)
)
