// Package types contains read shapes shared by the service and the HTTP API.
package types

// Entry is one scoreboard row.
type Entry struct {
	Rank      int    `json:"rank"`
	AccountID string `json:"account_id"`
	Score     int64  `json:"score"`
}

// ScoreSummary breaks an account's total into its ledger parts.
type ScoreSummary struct {
	AccountID string `json:"account_id"`
	// Solves is the summed value of solved challenges.
	Solves int64 `json:"solves"`
	// Awards is the signed sum of every ledger entry, penalties included.
	Awards int64 `json:"awards"`
	Total  int64 `json:"total"`
}
