package models

// SuggestionRow is one ranked post persisted into the tenant's
// suggestions sheet. Enrichment fields are filled progressively and left
// blank when the producing stage fails for that row.
type SuggestionRow struct {
	Channel Channel
	Post    Post

	// AI-derived fields
	Rewritten       string
	VideoSuggestion string
	Topic           string
	Format          string
	Style           string
	CTA             string
	Title           string
	TitleLen        string
	Fact            string
	Benefit         string
	CommentCall     string
	Insight         string
	Filter          string
}
