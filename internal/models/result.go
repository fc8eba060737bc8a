package models

// NeighboursResponse lists the entities closest to a query vector.
type NeighboursResponse struct {
	Query       string         `json:"query"`
	Targets     []ScoredEntity `json:"similar_targets"`
	Contexts    []ScoredEntity `json:"strong_contexts"`
	QueryTimeMS int64          `json:"query_time_ms"`
}

// ScoreResponse lists the best completions of a link-prediction query.
type ScoreResponse struct {
	Head        string         `json:"head"`
	Relation    string         `json:"relation"`
	Results     []ScoredEntity `json:"results"`
	QueryTimeMS int64          `json:"query_time_ms"`
}

// SimResponse is the cosine of two expression vectors.
type SimResponse struct {
	Left       string  `json:"left"`
	Right      string  `json:"right"`
	Similarity float64 `json:"similarity"`
}

// ScoredRelation is a directed relation name with a similarity.
type ScoredRelation struct {
	Relation string  `json:"relation"`
	Score    float64 `json:"score"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error       string   `json:"error"`
	Suggestions []string `json:"suggestions,omitempty"`
}
