package models

// RankingDetail is the per-instance record written to ranking_detail_<split>.json.
type RankingDetail struct {
	Instance       Triple     `json:"instance"`
	TailPrediction Prediction `json:"tail_prediction"`
	HeadPrediction Prediction `json:"head_prediction"`
}

// Prediction is one direction of a ranking instance.
type Prediction struct {
	Target Target         `json:"target"`
	Top10  []ScoredEntity `json:"top10"`
}

// Target is the true answer's score and filtered rank. Score is nil when the
// target is out of vocabulary.
type Target struct {
	Score *float64 `json:"score"`
	Rank  int      `json:"rank"`
}

// ScoredEntity is an entity name with its score.
type ScoredEntity struct {
	Entity string  `json:"ent"`
	Score  float64 `json:"score"`
}

// Ranks returns the head and tail ranks of every detail, in that order per instance.
func Ranks(details []RankingDetail) []int {
	out := make([]int, 0, 2*len(details))
	for _, d := range details {
		out = append(out, d.HeadPrediction.Target.Rank, d.TailPrediction.Target.Rank)
	}
	return out
}
