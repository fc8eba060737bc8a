package models

import (
	"time"

	"github.com/hyperjump/kbeval/internal/ranking"
)

// Run is a stored evaluation of one model directory on one split.
type Run struct {
	ID        string          `json:"id" db:"id"`
	ModelDir  string          `json:"model_dir" db:"model_dir"`
	Split     string          `json:"split" db:"split"`
	Adjust    bool            `json:"adjust" db:"adjust"`
	Metrics   ranking.Metrics `json:"metrics"`
	Skipped   int             `json:"skipped" db:"skipped"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// RunRank is one stored rank of a run, in evaluation order.
type RunRank struct {
	RunID     string `json:"run_id" db:"run_id"`
	Position  int    `json:"position" db:"position"`
	Triple    Triple `json:"instance"`
	Direction string `json:"direction" db:"direction"`
	Rank      int    `json:"rank" db:"rank"`
}

// Rank directions stored with each RunRank.
const (
	DirectionTail = "tail"
	DirectionHead = "head"
)

// RunRanksFromDetails flattens ranking detail into stored ranks: the tail
// prediction then the head prediction of each instance.
func RunRanksFromDetails(details []RankingDetail) []RunRank {
	out := make([]RunRank, 0, 2*len(details))
	for _, d := range details {
		out = append(out,
			RunRank{Position: len(out), Triple: d.Instance, Direction: DirectionTail, Rank: d.TailPrediction.Target.Rank},
			RunRank{Position: len(out) + 1, Triple: d.Instance, Direction: DirectionHead, Rank: d.HeadPrediction.Target.Rank},
		)
	}
	return out
}
