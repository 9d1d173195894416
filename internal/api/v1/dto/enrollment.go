package dto

import "time"

// EnrollResponseDTO confirms a successful enrollment
type EnrollResponseDTO struct {
	CourseID   string    `json:"course_id"`
	UserID     int64     `json:"user_id"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// ProgressEntryDTO is one problem's effective state for a student
type ProgressEntryDTO struct {
	ProblemID int64  `json:"problem_id"`
	RecordID  string `json:"record_id,omitempty"`
	Score     int    `json:"score"`
	Status    int    `json:"status"`
	Attempted bool   `json:"attempted"`
}

// StatusResponseDTO is a student's course status: enrollment plus effective
// per-problem progress
type StatusResponseDTO struct {
	Enrolled   bool               `json:"enrolled"`
	EnrolledAt *time.Time         `json:"enrolled_at,omitempty"`
	Progress   []ProgressEntryDTO `json:"progress"`
}

// ScoreboardRowDTO is one student's line on the course scoreboard
type ScoreboardRowDTO struct {
	UserID int64 `json:"user_id"`
	Scores []int `json:"scores"`
	Total  int   `json:"total"`
}

// ScoreboardResponseDTO pairs the problem-list header with the rows
type ScoreboardResponseDTO struct {
	ProblemIDs []int64            `json:"problem_ids"`
	Rows       []ScoreboardRowDTO `json:"rows"`
}

// RecordSummaryDTO is one judged submission in a course records listing
type RecordSummaryDTO struct {
	RecordID  string    `json:"record_id"`
	UserID    int64     `json:"user_id"`
	ProblemID int64     `json:"problem_id"`
	Score     int       `json:"score"`
	Status    int       `json:"status"`
	JudgedAt  time.Time `json:"judged_at"`
}
