package models

import "time"

// AggregateStats mirrors the flat key/value stats file at the root of
// the monitored tree. The whole value is replaced on each successful
// reload; on parse failure the previous value is retained.
type AggregateStats struct {
	SessionCount int64            `json:"session_count"`
	MessageCount int64            `json:"message_count"`
	InputTokens  int64            `json:"input_tokens"`
	OutputTokens int64            `json:"output_tokens"`
	ByModel      map[string]int64 `json:"by_model,omitempty"`
	ByDate       map[string]int64 `json:"by_date,omitempty"`
	UpdatedAt    time.Time        `json:"updated_at,omitempty"`
}
