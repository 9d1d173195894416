package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"app/internal/errdefs"
	"app/internal/model"
	"app/internal/repository"
	"app/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CourseService defines course-related operations
type CourseService interface {
	CreateCourse(ctx context.Context, c *model.Course) (*model.Course, error)
	// GetCourse retrieves a course the viewer is allowed to see. A missing
	// course and an invisible course are the same error.
	GetCourse(ctx context.Context, domainID, courseID string, viewer Viewer) (*model.Course, error)
	// ListCourses returns the courses of a domain visible to the viewer,
	// optionally narrowed by a title search query.
	ListCourses(ctx context.Context, domainID string, viewer Viewer, query string) ([]model.Course, error)
	UpdateCourse(ctx context.Context, domainID, courseID string, upd model.CourseUpdate) (*model.Course, error)
	// DeleteCourse deletes a course and cascades to enrollments, journals
	// and attachment blobs.
	DeleteCourse(ctx context.Context, domainID, courseID string) error
}

// courseService is the implementation of CourseService
type courseService struct {
	repo         repository.CourseRepository
	enrollRepo   repository.EnrollmentRepository
	blob         storage.BlobStore
	courseLogger zerolog.Logger
}

// NewCourseService creates a new CourseService
func NewCourseService(
	repo repository.CourseRepository,
	enrollRepo repository.EnrollmentRepository,
	blob storage.BlobStore,
	logger zerolog.Logger,
) CourseService {
	return &courseService{
		repo:         repo,
		enrollRepo:   enrollRepo,
		blob:         blob,
		courseLogger: logger.With().Str("service", "CourseService").Logger(),
	}
}

// CreateCourse validates and creates a new course record
func (s *courseService) CreateCourse(ctx context.Context, c *model.Course) (*model.Course, error) {
	if strings.TrimSpace(c.Title) == "" {
		return nil, errdefs.Validationf("title is required")
	}
	if !c.BeginAt.Before(c.EndAt) {
		return nil, errdefs.Validationf("begin time must be before end time")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := s.repo.CreateCourse(ctx, c); err != nil {
		s.courseLogger.Error().Err(err).Str("domain_id", c.DomainID).Msg("Failed to create course")
		return nil, err
	}
	return c, nil
}

// GetCourse retrieves a course by id, enforcing visibility
func (s *courseService) GetCourse(ctx context.Context, domainID, courseID string, viewer Viewer) (*model.Course, error) {
	course, err := s.repo.GetCourse(ctx, domainID, courseID)
	if err != nil {
		s.courseLogger.Error().Err(err).Str("course_id", courseID).Msg("Failed to get course by ID")
		return nil, err
	}
	if course == nil || !Visible(viewer, course) {
		return nil, errdefs.ErrCourseNotFound
	}
	return course, nil
}

// ListCourses lists visible courses, preserving the repository's ordering
// (start time descending, newest identity first on ties)
func (s *courseService) ListCourses(ctx context.Context, domainID string, viewer Viewer, query string) ([]model.Course, error) {
	courses, err := s.repo.ListCourses(ctx, domainID)
	if err != nil {
		s.courseLogger.Error().Err(err).Str("domain_id", domainID).Msg("Failed to list courses")
		return nil, err
	}

	visible := make([]model.Course, 0, len(courses))
	for _, c := range courses {
		if !Visible(viewer, &c) {
			continue
		}
		if !MatchTitle(c.Title, query) {
			continue
		}
		visible = append(visible, c)
	}
	return visible, nil
}

// UpdateCourse applies a partial update after revalidating the time window
func (s *courseService) UpdateCourse(ctx context.Context, domainID, courseID string, upd model.CourseUpdate) (*model.Course, error) {
	existing, err := s.repo.GetCourse(ctx, domainID, courseID)
	if err != nil {
		s.courseLogger.Error().Err(err).Str("course_id", courseID).Msg("Failed to get course for update")
		return nil, err
	}
	if existing == nil {
		return nil, errdefs.ErrCourseNotFound
	}

	begin, end := existing.BeginAt, existing.EndAt
	if upd.BeginAt != nil {
		begin = *upd.BeginAt
	}
	if upd.EndAt != nil {
		end = *upd.EndAt
	}
	if !begin.Before(end) {
		return nil, errdefs.Validationf("begin time must be before end time")
	}
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return nil, errdefs.Validationf("title is required")
	}

	if err := s.repo.UpdateCourse(ctx, domainID, courseID, upd); err != nil {
		s.courseLogger.Error().Err(err).Str("course_id", courseID).Msg("Failed to update course")
		return nil, err
	}
	return s.repo.GetCourse(ctx, domainID, courseID)
}

// DeleteCourse removes a course together with its roster, journals and
// attachment blobs
func (s *courseService) DeleteCourse(ctx context.Context, domainID, courseID string) error {
	existing, err := s.repo.GetCourse(ctx, domainID, courseID)
	if err != nil {
		s.courseLogger.Error().Err(err).Str("course_id", courseID).Msg("Failed to get course for deletion")
		return fmt.Errorf("failed to get course for deletion: %w", err)
	}
	if existing == nil {
		return errdefs.ErrCourseNotFound
	}

	if err := s.enrollRepo.DeleteByCourse(ctx, domainID, courseID); err != nil {
		s.courseLogger.Error().Err(err).Str("course_id", courseID).Msg("Failed to delete enrollments during course deletion")
		return err
	}

	if len(existing.Files) > 0 {
		keys := make([]string, 0, len(existing.Files))
		for _, f := range existing.Files {
			keys = append(keys, FileKey(courseID, f.Name))
		}
		if err := s.blob.Del(ctx, keys...); err != nil {
			// Blob cleanup is best-effort; a stranded blob is preferable to a
			// half-deleted course.
			s.courseLogger.Error().Err(err).Str("course_id", courseID).Msg("Failed to delete attachment blobs during course deletion")
		}
	}

	if err := s.repo.DeleteCourse(ctx, domainID, courseID); err != nil {
		s.courseLogger.Error().Err(err).Str("course_id", courseID).Msg("Failed to delete course record")
		return err
	}
	return nil
}

// ParseProblemIDs parses a user-supplied problem-id list (comma, whitespace
// or newline separated). Non-numeric entries are a validation error.
func ParseProblemIDs(raw string) ([]int64, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\r' || r == '\n'
	})
	ids := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, errdefs.Validationf("invalid problem id %q", f)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
