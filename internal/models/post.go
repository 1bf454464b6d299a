package models

import (
	"math"
	"time"
)

// Post is a channel publication within a run. Transient: it only exists
// between fetching and persistence of the ranked rows.
type Post struct {
	Text       string
	Link       string
	Date       time.Time
	VideoLink  string
	Views      int
	Reactions  int
	Comments   int
	Forwards   int
	Engagement float64
}

// EngagementScore computes the normalized interaction rate of a post:
// (reactions+forwards+comments)/views*100, rounded to 2 decimals.
// Defined as 0 when there are no views.
func EngagementScore(views, reactions, comments, forwards int) float64 {
	if views <= 0 {
		return 0
	}
	score := float64(reactions+forwards+comments) / float64(views) * 100
	return math.Round(score*100) / 100
}
