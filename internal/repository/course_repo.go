package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const courseColumns = `id, domain_id, title, content, begin_at, end_at, owner_id,
	maintainer_ids, teacher_ids, assigned_groups, legacy_classes, problem_ids,
	attendance, files, created_at, updated_at`

// CourseRepository defines the interface for interacting with course data
type CourseRepository interface {
	CreateCourse(ctx context.Context, c *model.Course) error
	// GetCourse retrieves a course by its (domain, id) pair, or nil.
	GetCourse(ctx context.Context, domainID, courseID string) (*model.Course, error)
	// ListCourses returns all courses of a domain ordered by start time
	// descending, newest identity first on ties.
	ListCourses(ctx context.Context, domainID string) ([]model.Course, error)
	UpdateCourse(ctx context.Context, domainID, courseID string, upd model.CourseUpdate) error
	DeleteCourse(ctx context.Context, domainID, courseID string) error
	// IncAttendance bumps the cached attendance counter. The enrollment rows
	// remain the source of truth.
	IncAttendance(ctx context.Context, domainID, courseID string, delta int) error
	SetFiles(ctx context.Context, domainID, courseID string, files model.AttachmentList) error
}

type courseRepo struct {
	pool *pgxpool.Pool
}

// NewCourseRepo creates a new CourseRepository
func NewCourseRepo(pool *pgxpool.Pool) CourseRepository {
	return &courseRepo{pool: pool}
}

func scanCourse(row pgx.Row, c *model.Course) error {
	return row.Scan(
		&c.ID,
		&c.DomainID,
		&c.Title,
		&c.Content,
		&c.BeginAt,
		&c.EndAt,
		&c.OwnerID,
		&c.MaintainerIDs,
		&c.TeacherIDs,
		&c.AssignedGroups,
		&c.LegacyClasses,
		&c.ProblemIDs,
		&c.Attendance,
		&c.Files,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
}

// CreateCourse inserts a new course and fills in the stored timestamps
func (r *courseRepo) CreateCourse(ctx context.Context, c *model.Course) error {
	query := `
		INSERT INTO courses (id, domain_id, title, content, begin_at, end_at, owner_id,
			maintainer_ids, teacher_ids, assigned_groups, legacy_classes, problem_ids, files)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING attendance, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		c.ID, c.DomainID, c.Title, c.Content, c.BeginAt, c.EndAt, c.OwnerID,
		c.MaintainerIDs, c.TeacherIDs, c.AssignedGroups, c.LegacyClasses, c.ProblemIDs, c.Files,
	).Scan(&c.Attendance, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating course: %w", err)
	}
	return nil
}

// GetCourse retrieves a course by its (domain, id) pair
func (r *courseRepo) GetCourse(ctx context.Context, domainID, courseID string) (*model.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE domain_id = $1 AND id = $2`
	var c model.Course
	err := scanCourse(r.pool.QueryRow(ctx, query, domainID, courseID), &c)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting course %s: %w", courseID, err)
	}
	return &c, nil
}

// ListCourses retrieves all courses in a domain, newest start time first
func (r *courseRepo) ListCourses(ctx context.Context, domainID string) ([]model.Course, error) {
	query := `
		SELECT ` + courseColumns + `
		FROM courses
		WHERE domain_id = $1
		ORDER BY begin_at DESC, id DESC
	`
	rows, err := r.pool.Query(ctx, query, domainID)
	if err != nil {
		return nil, fmt.Errorf("querying courses for domain %s: %w", domainID, err)
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := scanCourse(rows, &c); err != nil {
			return nil, fmt.Errorf("scanning course row: %w", err)
		}
		courses = append(courses, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating course rows: %w", err)
	}

	// If no courses found, return an empty slice, not nil
	if len(courses) == 0 {
		return []model.Course{}, nil
	}
	return courses, nil
}

// UpdateCourse applies a partial update; nil fields are left untouched
func (r *courseRepo) UpdateCourse(ctx context.Context, domainID, courseID string, upd model.CourseUpdate) error {
	var set []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Content != nil {
		add("content", *upd.Content)
	}
	if upd.BeginAt != nil {
		add("begin_at", *upd.BeginAt)
	}
	if upd.EndAt != nil {
		add("end_at", *upd.EndAt)
	}
	if upd.MaintainerIDs != nil {
		add("maintainer_ids", *upd.MaintainerIDs)
	}
	if upd.TeacherIDs != nil {
		add("teacher_ids", *upd.TeacherIDs)
	}
	if upd.AssignedGroups != nil {
		add("assigned_groups", *upd.AssignedGroups)
	}
	if upd.ProblemIDs != nil {
		add("problem_ids", *upd.ProblemIDs)
	}
	if len(set) == 0 {
		return nil
	}
	set = append(set, "updated_at = NOW()")

	args = append(args, domainID, courseID)
	query := fmt.Sprintf(
		`UPDATE courses SET %s WHERE domain_id = $%d AND id = $%d`,
		strings.Join(set, ", "), len(args)-1, len(args),
	)
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("updating course %s: %w", courseID, err)
	}
	return nil
}

// DeleteCourse deletes a course row; enrollment and journal cleanup is the
// service's job.
func (r *courseRepo) DeleteCourse(ctx context.Context, domainID, courseID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM courses WHERE domain_id = $1 AND id = $2`, domainID, courseID)
	if err != nil {
		return fmt.Errorf("deleting course %s: %w", courseID, err)
	}
	return nil
}

func (r *courseRepo) IncAttendance(ctx context.Context, domainID, courseID string, delta int) error {
	query := `UPDATE courses SET attendance = attendance + $3 WHERE domain_id = $1 AND id = $2`
	if _, err := r.pool.Exec(ctx, query, domainID, courseID, delta); err != nil {
		return fmt.Errorf("incrementing attendance for course %s: %w", courseID, err)
	}
	return nil
}

func (r *courseRepo) SetFiles(ctx context.Context, domainID, courseID string, files model.AttachmentList) error {
	query := `UPDATE courses SET files = $3, updated_at = NOW() WHERE domain_id = $1 AND id = $2`
	if _, err := r.pool.Exec(ctx, query, domainID, courseID, files); err != nil {
		return fmt.Errorf("updating files for course %s: %w", courseID, err)
	}
	return nil
}
