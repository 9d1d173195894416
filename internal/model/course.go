package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Course represents a time-bounded bundle of problems, materials and a roster
// inside a judging domain.
type Course struct {
	ID             string         `db:"id" json:"id"`
	DomainID       string         `db:"domain_id" json:"domain_id"`
	Title          string         `db:"title" json:"title"`
	Content        string         `db:"content" json:"content"` // rich text, may embed relative file references
	BeginAt        time.Time      `db:"begin_at" json:"begin_at"`
	EndAt          time.Time      `db:"end_at" json:"end_at"`
	OwnerID        int64          `db:"owner_id" json:"owner_id"`
	MaintainerIDs  []int64        `db:"maintainer_ids" json:"maintainer_ids"`
	TeacherIDs     []int64        `db:"teacher_ids" json:"teacher_ids"`
	AssignedGroups []string       `db:"assigned_groups" json:"assigned_groups"` // empty means public
	LegacyClasses  []string       `db:"legacy_classes" json:"legacy_classes"`
	ProblemIDs     []int64        `db:"problem_ids" json:"problem_ids"`
	Attendance     int            `db:"attendance" json:"attendance"`
	Files          AttachmentList `db:"files" json:"files"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// HasProblem reports whether pid is in the course's current problem list.
func (c *Course) HasProblem(pid int64) bool {
	for _, p := range c.ProblemIDs {
		if p == pid {
			return true
		}
	}
	return false
}

// Attachment is the metadata of one uploaded course file. The blob itself
// lives in object storage under the course's prefix.
type Attachment struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	Etag         string    `json:"etag"`
}

// AttachmentList is the course's file metadata list, stored as JSONB.
type AttachmentList []Attachment

// TotalSize is the aggregate byte size of all attachments. It is derived at
// quota-check time, never stored.
func (l AttachmentList) TotalSize() int64 {
	var total int64
	for _, f := range l {
		total += f.Size
	}
	return total
}

// Get returns the attachment with the given name, or nil.
func (l AttachmentList) Get(name string) *Attachment {
	for i := range l {
		if l[i].Name == name {
			return &l[i]
		}
	}
	return nil
}

// Without returns a copy of the list with the named attachments removed,
// preserving the order of the remainder.
func (l AttachmentList) Without(names ...string) AttachmentList {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	out := make(AttachmentList, 0, len(l))
	for _, f := range l {
		if !drop[f.Name] {
			out = append(out, f)
		}
	}
	return out
}

// Value implements the driver.Valuer interface for JSONB
func (l AttachmentList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]Attachment{})
	}
	return json.Marshal(l)
}

// Scan implements the sql.Scanner interface for JSONB
func (l *AttachmentList) Scan(value interface{}) error {
	if value == nil {
		*l = AttachmentList{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*l = AttachmentList{}
		return fmt.Errorf("cannot scan %T into AttachmentList", value)
	}

	if len(bytes) == 0 {
		*l = AttachmentList{}
		return nil
	}

	return json.Unmarshal(bytes, l)
}

// CourseUpdate carries a partial course update; nil fields are left untouched.
type CourseUpdate struct {
	Title          *string
	Content        *string
	BeginAt        *time.Time
	EndAt          *time.Time
	MaintainerIDs  *[]int64
	TeacherIDs     *[]int64
	AssignedGroups *[]string
	ProblemIDs     *[]int64
}
