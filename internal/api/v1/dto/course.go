package dto

import (
	"time"

	"app/internal/model"
)

// CourseCreateDTO is used for incoming course creation requests
type CourseCreateDTO struct {
	Title          string    `json:"title" validate:"required"`
	Content        string    `json:"content"`
	BeginAt        time.Time `json:"begin_at" validate:"required"`
	EndAt          time.Time `json:"end_at" validate:"required"`
	ProblemIDs     string    `json:"problem_ids"`
	MaintainerIDs  []int64   `json:"maintainer_ids"`
	TeacherIDs     []int64   `json:"teacher_ids"`
	AssignedGroups []string  `json:"assigned_groups"`
}

// CourseUpdateDTO is used for incoming course update requests
type CourseUpdateDTO struct {
	Title          *string    `json:"title,omitempty"`
	Content        *string    `json:"content,omitempty"`
	BeginAt        *time.Time `json:"begin_at,omitempty"`
	EndAt          *time.Time `json:"end_at,omitempty"`
	ProblemIDs     *string    `json:"problem_ids,omitempty"`
	MaintainerIDs  *[]int64   `json:"maintainer_ids,omitempty"`
	TeacherIDs     *[]int64   `json:"teacher_ids,omitempty"`
	AssignedGroups *[]string  `json:"assigned_groups,omitempty"`
}

// CourseResponseDTO is returned in API responses for courses
type CourseResponseDTO struct {
	CourseID       string    `json:"course_id"`
	DomainID       string    `json:"domain_id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	BeginAt        time.Time `json:"begin_at"`
	EndAt          time.Time `json:"end_at"`
	OwnerID        int64     `json:"owner_id"`
	MaintainerIDs  []int64   `json:"maintainer_ids"`
	TeacherIDs     []int64   `json:"teacher_ids"`
	AssignedGroups []string  `json:"assigned_groups"`
	ProblemIDs     []int64   `json:"problem_ids"`
	Attendance     int       `json:"attendance"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewCourseResponseDTO maps a course model into its API shape
func NewCourseResponseDTO(c *model.Course) CourseResponseDTO {
	return CourseResponseDTO{
		CourseID:       c.ID,
		DomainID:       c.DomainID,
		Title:          c.Title,
		Content:        c.Content,
		BeginAt:        c.BeginAt,
		EndAt:          c.EndAt,
		OwnerID:        c.OwnerID,
		MaintainerIDs:  c.MaintainerIDs,
		TeacherIDs:     c.TeacherIDs,
		AssignedGroups: c.AssignedGroups,
		ProblemIDs:     c.ProblemIDs,
		Attendance:     c.Attendance,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// CourseListResponseDTO wraps a visible-course listing
type CourseListResponseDTO struct {
	Courses []CourseResponseDTO `json:"courses"`
}
