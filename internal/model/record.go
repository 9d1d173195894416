package model

import "time"

// Record is a judged submission as reported by the judging pipeline. This
// core only consumes records; producing and storing them is the host
// platform's job.
type Record struct {
	DomainID  string `json:"domain_id"`
	RecordID  string `json:"record_id"`
	UserID    int64  `json:"user_id"`
	ProblemID int64  `json:"problem_id"`
	Score     int    `json:"score"`
	Status    int    `json:"status"`
}

// RecordSummary is a display-oriented view of a stored record.
type RecordSummary struct {
	RecordID  string    `db:"id" json:"record_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ProblemID int64     `db:"problem_id" json:"problem_id"`
	Score     int       `db:"score" json:"score"`
	Status    int       `db:"status" json:"status"`
	JudgedAt  time.Time `db:"judged_at" json:"judged_at"`
}

// UserSummary resolves a user id for display.
type UserSummary struct {
	UserID      int64  `db:"id" json:"user_id"`
	Username    string `db:"username" json:"username"`
	DisplayName string `db:"display_name" json:"display_name"`
}

// ProblemSummary resolves a problem id for display.
type ProblemSummary struct {
	ProblemID int64  `db:"id" json:"problem_id"`
	Title     string `db:"title" json:"title"`
	Hidden    bool   `db:"hidden" json:"hidden"`
}

// Group is a named set of users inside a domain (a class, in legacy terms).
type Group struct {
	DomainID string  `db:"domain_id" json:"domain_id"`
	Name     string  `db:"name" json:"name"`
	UserIDs  []int64 `db:"user_ids" json:"user_ids"`
}
