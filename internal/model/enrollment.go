package model

import "time"

// Enrollment is a student's committed membership in a course. One row per
// (domain, course, user); created by the first successful enroll and only
// removed when the course is deleted.
type Enrollment struct {
	DomainID   string    `db:"domain_id" json:"domain_id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	UserID     int64     `db:"user_id" json:"user_id"`
	Attend     bool      `db:"attend" json:"attend"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// JournalEntry is one append-only record of a judged submission for a problem.
// Later entries for the same problem supersede earlier ones by append order.
type JournalEntry struct {
	Seq       int64  `db:"seq" json:"seq"`
	ProblemID int64  `db:"problem_id" json:"problem_id"`
	RecordID  string `db:"record_id" json:"record_id"`
	Score     int    `db:"score" json:"score"`
	Status    int    `db:"status" json:"status"`
}

// ProblemProgress is the effective state of one course problem for a student.
type ProblemProgress struct {
	ProblemID int64  `json:"problem_id"`
	RecordID  string `json:"record_id"`
	Score     int    `json:"score"`
	Status    int    `json:"status"`
	Attempted bool   `json:"attempted"`
}

// ScoreboardRow is one student's derived line on the course scoreboard.
type ScoreboardRow struct {
	UserID int64 `json:"user_id"`
	// Scores is aligned with the course's current problem list.
	Scores []int `json:"scores"`
	Total  int   `json:"total"`
}
