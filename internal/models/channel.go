package models

// Channel is a resolved source account on the monitored platform.
// Rebuilt per tenant per run; the channels sheet is overwritten wholesale.
type Channel struct {
	ID          string
	Title       string
	Link        string
	Subscribers int
}
