// Package audit keeps an optional history of relayed questions: who asked,
// over which platform, and how the prediction service responded.
package audit

import "time"

// Exchange is a single relayed question and its outcome. The answer text is
// not stored, only its length.
type Exchange struct {
	ID          string    `json:"id"`
	RequestID   string    `json:"request_id"`
	Timestamp   time.Time `json:"timestamp"`
	Platform    string    `json:"platform"`
	ChannelID   string    `json:"channel_id"`
	UserID      string    `json:"user_id"`
	Question    string    `json:"question"`
	Outcome     string    `json:"outcome"`
	StatusCode  int       `json:"status_code"`
	AnswerChars int       `json:"answer_chars"`
	ElapsedMS   int64     `json:"elapsed_ms"`
}

// Stats summarises exchanges per outcome.
type Stats struct {
	Total        int                     `json:"total"`
	ByOutcome    map[string]OutcomeStats `json:"by_outcome"`
	AvgElapsedMS float64                 `json:"avg_elapsed_ms"`
}

// OutcomeStats aggregates exchanges sharing an outcome.
type OutcomeStats struct {
	Count        int     `json:"count"`
	AvgElapsedMS float64 `json:"avg_elapsed_ms"`
}
