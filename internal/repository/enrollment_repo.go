package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnrollmentRepository stores per-student course status: the enrollment flag
// and the append-only progress journal.
type EnrollmentRepository interface {
	// SetAttendIfAbsent is the conditional write backing enrollment
	// uniqueness: it creates or flips the enrollment row to attending, but
	// only if no attending row exists yet. Returns false when the student
	// was already attending. Safe under concurrent calls for the same triple.
	SetAttendIfAbsent(ctx context.Context, domainID, courseID string, userID int64) (bool, error)
	// GetEnrollment retrieves a student's enrollment row, or nil.
	GetEnrollment(ctx context.Context, domainID, courseID string, userID int64) (*model.Enrollment, error)
	// ListEnrolled returns attending students in enrollment order.
	ListEnrolled(ctx context.Context, domainID, courseID string) ([]model.Enrollment, error)
	// CountEnrolled recomputes the true attendance from enrollment rows.
	CountEnrolled(ctx context.Context, domainID, courseID string) (int, error)
	// AppendJournal appends one judged-submission entry to the student's journal.
	AppendJournal(ctx context.Context, domainID, courseID string, userID int64, e model.JournalEntry) error
	// GetJournal returns a student's journal in append order.
	GetJournal(ctx context.Context, domainID, courseID string, userID int64) ([]model.JournalEntry, error)
	// GetJournals returns the journals of multiple students, each in append order.
	GetJournals(ctx context.Context, domainID, courseID string, userIDs []int64) (map[int64][]model.JournalEntry, error)
	// DeleteByCourse removes all enrollment and journal rows of a course
	// (cascading course deletion).
	DeleteByCourse(ctx context.Context, domainID, courseID string) error
}

type enrollmentRepo struct {
	pool *pgxpool.Pool
}

// NewEnrollmentRepo creates a new EnrollmentRepository
func NewEnrollmentRepo(pool *pgxpool.Pool) EnrollmentRepository {
	return &enrollmentRepo{pool: pool}
}

// SetAttendIfAbsent relies on the unique (domain_id, course_id, user_id)
// constraint: the upsert only takes effect when the row is new or not yet
// attending, so concurrent duplicate enrolls resolve to a single winner.
func (r *enrollmentRepo) SetAttendIfAbsent(ctx context.Context, domainID, courseID string, userID int64) (bool, error) {
	query := `
		INSERT INTO enrollments (domain_id, course_id, user_id, attend, enrolled_at)
		VALUES ($1, $2, $3, TRUE, NOW())
		ON CONFLICT (domain_id, course_id, user_id)
		DO UPDATE SET attend = TRUE, enrolled_at = NOW()
		WHERE enrollments.attend = FALSE
	`
	tag, err := r.pool.Exec(ctx, query, domainID, courseID, userID)
	if err != nil {
		return false, fmt.Errorf("enrolling user %d in course %s: %w", userID, courseID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *enrollmentRepo) GetEnrollment(ctx context.Context, domainID, courseID string, userID int64) (*model.Enrollment, error) {
	query := `
		SELECT domain_id, course_id, user_id, attend, enrolled_at
		FROM enrollments
		WHERE domain_id = $1 AND course_id = $2 AND user_id = $3
	`
	var e model.Enrollment
	err := r.pool.QueryRow(ctx, query, domainID, courseID, userID).Scan(
		&e.DomainID, &e.CourseID, &e.UserID, &e.Attend, &e.EnrolledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting enrollment for user %d: %w", userID, err)
	}
	return &e, nil
}

func (r *enrollmentRepo) ListEnrolled(ctx context.Context, domainID, courseID string) ([]model.Enrollment, error) {
	query := `
		SELECT domain_id, course_id, user_id, attend, enrolled_at
		FROM enrollments
		WHERE domain_id = $1 AND course_id = $2 AND attend = TRUE
		ORDER BY enrolled_at ASC, user_id ASC
	`
	rows, err := r.pool.Query(ctx, query, domainID, courseID)
	if err != nil {
		return nil, fmt.Errorf("querying enrollments for course %s: %w", courseID, err)
	}
	defer rows.Close()

	var enrollments []model.Enrollment
	for rows.Next() {
		var e model.Enrollment
		if err := rows.Scan(&e.DomainID, &e.CourseID, &e.UserID, &e.Attend, &e.EnrolledAt); err != nil {
			return nil, fmt.Errorf("scanning enrollment row: %w", err)
		}
		enrollments = append(enrollments, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating enrollment rows: %w", err)
	}

	if len(enrollments) == 0 {
		return []model.Enrollment{}, nil
	}
	return enrollments, nil
}

func (r *enrollmentRepo) CountEnrolled(ctx context.Context, domainID, courseID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM enrollments
		WHERE domain_id = $1 AND course_id = $2 AND attend = TRUE
	`
	var count int
	if err := r.pool.QueryRow(ctx, query, domainID, courseID).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting enrollments for course %s: %w", courseID, err)
	}
	return count, nil
}

// AppendJournal creates the enrollment row on first contact so judged
// submissions are tracked even before the student formally enrolls.
func (r *enrollmentRepo) AppendJournal(ctx context.Context, domainID, courseID string, userID int64, e model.JournalEntry) error {
	ensure := `
		INSERT INTO enrollments (domain_id, course_id, user_id, attend, enrolled_at)
		VALUES ($1, $2, $3, FALSE, NOW())
		ON CONFLICT (domain_id, course_id, user_id) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, ensure, domainID, courseID, userID); err != nil {
		return fmt.Errorf("ensuring enrollment row for user %d: %w", userID, err)
	}

	query := `
		INSERT INTO course_journal (domain_id, course_id, user_id, problem_id, record_id, score, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.pool.Exec(ctx, query, domainID, courseID, userID, e.ProblemID, e.RecordID, e.Score, e.Status); err != nil {
		return fmt.Errorf("appending journal entry for user %d: %w", userID, err)
	}
	return nil
}

func (r *enrollmentRepo) GetJournal(ctx context.Context, domainID, courseID string, userID int64) ([]model.JournalEntry, error) {
	query := `
		SELECT seq, problem_id, record_id, score, status
		FROM course_journal
		WHERE domain_id = $1 AND course_id = $2 AND user_id = $3
		ORDER BY seq ASC
	`
	rows, err := r.pool.Query(ctx, query, domainID, courseID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying journal for user %d: %w", userID, err)
	}
	defer rows.Close()

	var journal []model.JournalEntry
	for rows.Next() {
		var e model.JournalEntry
		if err := rows.Scan(&e.Seq, &e.ProblemID, &e.RecordID, &e.Score, &e.Status); err != nil {
			return nil, fmt.Errorf("scanning journal row: %w", err)
		}
		journal = append(journal, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal rows: %w", err)
	}
	return journal, nil
}

func (r *enrollmentRepo) GetJournals(ctx context.Context, domainID, courseID string, userIDs []int64) (map[int64][]model.JournalEntry, error) {
	journals := make(map[int64][]model.JournalEntry, len(userIDs))
	if len(userIDs) == 0 {
		return journals, nil
	}

	query := `
		SELECT user_id, seq, problem_id, record_id, score, status
		FROM course_journal
		WHERE domain_id = $1 AND course_id = $2 AND user_id = ANY($3)
		ORDER BY seq ASC
	`
	rows, err := r.pool.Query(ctx, query, domainID, courseID, userIDs)
	if err != nil {
		return nil, fmt.Errorf("querying journals for course %s: %w", courseID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var uid int64
		var e model.JournalEntry
		if err := rows.Scan(&uid, &e.Seq, &e.ProblemID, &e.RecordID, &e.Score, &e.Status); err != nil {
			return nil, fmt.Errorf("scanning journal row: %w", err)
		}
		journals[uid] = append(journals[uid], e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal rows: %w", err)
	}
	return journals, nil
}

func (r *enrollmentRepo) DeleteByCourse(ctx context.Context, domainID, courseID string) error {
	if _, err := r.pool.Exec(ctx,
		`DELETE FROM course_journal WHERE domain_id = $1 AND course_id = $2`, domainID, courseID); err != nil {
		return fmt.Errorf("deleting journal for course %s: %w", courseID, err)
	}
	if _, err := r.pool.Exec(ctx,
		`DELETE FROM enrollments WHERE domain_id = $1 AND course_id = $2`, domainID, courseID); err != nil {
		return fmt.Errorf("deleting enrollments for course %s: %w", courseID, err)
	}
	return nil
}
