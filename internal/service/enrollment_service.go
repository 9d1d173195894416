package service

import (
	"context"
	"time"

	"app/internal/errdefs"
	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// EnrollmentService handles course enrollment and per-student status.
type EnrollmentService interface {
	// Enroll transitions the student to enrolled exactly once. Duplicate
	// calls (including concurrent ones) fail with ErrAlreadyEnrolled;
	// enrolling after the course's end time fails with ErrCourseEnded.
	Enroll(ctx context.Context, domainID, courseID string, userID int64) error
	// GetStatus returns the student's enrollment row (nil if never touched)
	// and journal in append order.
	GetStatus(ctx context.Context, domainID, courseID string, userID int64) (*model.Enrollment, []model.JournalEntry, error)
}

type enrollmentService struct {
	courseRepo   repository.CourseRepository
	enrollRepo   repository.EnrollmentRepository
	now          func() time.Time
	enrollLogger zerolog.Logger
}

// NewEnrollmentService creates a new EnrollmentService
func NewEnrollmentService(
	courseRepo repository.CourseRepository,
	enrollRepo repository.EnrollmentRepository,
	logger zerolog.Logger,
) EnrollmentService {
	return &enrollmentService{
		courseRepo:   courseRepo,
		enrollRepo:   enrollRepo,
		now:          time.Now,
		enrollLogger: logger.With().Str("service", "EnrollmentService").Logger(),
	}
}

// Enroll runs the course-ended precheck, then the conditional write that is
// the single source of truth for enrollment uniqueness, then the attendance
// counter bump. The counter may transiently lag the enrollment set if the
// final step fails; it is a cached aggregate, recoverable via CountEnrolled.
func (s *enrollmentService) Enroll(ctx context.Context, domainID, courseID string, userID int64) error {
	course, err := s.courseRepo.GetCourse(ctx, domainID, courseID)
	if err != nil {
		s.enrollLogger.Error().Err(err).Str("course_id", courseID).Msg("Failed to get course for enrollment")
		return err
	}
	if course == nil {
		return errdefs.ErrCourseNotFound
	}
	if !s.now().Before(course.EndAt) {
		return errdefs.ErrCourseEnded
	}

	created, err := s.enrollRepo.SetAttendIfAbsent(ctx, domainID, courseID, userID)
	if err != nil {
		s.enrollLogger.Error().Err(err).Str("course_id", courseID).Int64("user_id", userID).Msg("Failed conditional enrollment write")
		return err
	}
	if !created {
		return errdefs.ErrAlreadyEnrolled
	}

	if err := s.courseRepo.IncAttendance(ctx, domainID, courseID, 1); err != nil {
		// The enrollment itself succeeded; the counter catches up on recount.
		s.enrollLogger.Error().Err(err).Str("course_id", courseID).Msg("Failed to increment attendance counter")
	}
	return nil
}

func (s *enrollmentService) GetStatus(ctx context.Context, domainID, courseID string, userID int64) (*model.Enrollment, []model.JournalEntry, error) {
	enrollment, err := s.enrollRepo.GetEnrollment(ctx, domainID, courseID, userID)
	if err != nil {
		s.enrollLogger.Error().Err(err).Str("course_id", courseID).Int64("user_id", userID).Msg("Failed to get enrollment")
		return nil, nil, err
	}
	if enrollment == nil {
		return nil, nil, nil
	}
	journal, err := s.enrollRepo.GetJournal(ctx, domainID, courseID, userID)
	if err != nil {
		s.enrollLogger.Error().Err(err).Str("course_id", courseID).Int64("user_id", userID).Msg("Failed to get journal")
		return nil, nil, err
	}
	return enrollment, journal, nil
}
