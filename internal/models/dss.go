package models

// Scoring modes of the decision support tool.
const (
	ModeRules = "rules"
	ModeML    = "ml"
)

// ScoreResult covers both scorers: the rule scorer fills Explanation, the ML
// scorer fills Prob.
type ScoreResult struct {
	Score       int      `json:"score"`
	Priority    string   `json:"priority"`
	Explanation string   `json:"explanation,omitempty"`
	Prob        *float64 `json:"prob,omitempty"`
}

type ScoreResponse struct {
	Input  Claim       `json:"input"`
	Result ScoreResult `json:"result"`
}

type BatchRequest struct {
	Claims []Claim `json:"claims"`
}

type BatchItem struct {
	ID     string      `json:"id,omitempty"`
	Input  Claim       `json:"input"`
	Result ScoreResult `json:"result"`
}

type BatchResponse struct {
	Results []BatchItem `json:"results"`
	Count   int         `json:"count"`
}

type Recommendation struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Impact string `json:"impact"`
}

type RecommendationsResponse struct {
	Input           map[string]string `json:"input,omitempty"`
	Recommendations []Recommendation  `json:"recommendations"`
}
