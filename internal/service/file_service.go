package service

import (
	"context"
	"fmt"
	"io"
	"sync"

	"app/internal/errdefs"
	"app/internal/model"
	"app/internal/repository"
	"app/internal/storage"

	"github.com/rs/zerolog"
)

// FileQuota holds the per-course attachment ceilings.
type FileQuota struct {
	// MaxCount is the maximum number of attachments per course.
	MaxCount int
	// MaxTotalSize is the aggregate byte ceiling across all attachments.
	MaxTotalSize int64
}

// FileService manages course attachments and their quota.
type FileService interface {
	// ListFiles returns the course's attachment list in stored order.
	ListFiles(ctx context.Context, domainID, courseID string) (model.AttachmentList, error)
	// Upload stores the blob and, only after the blob write succeeds,
	// commits the metadata entry. Quota checks run before any write. A file
	// with the same name replaces the previous entry.
	Upload(ctx context.Context, domainID, courseID, name string, size int64, contentType string, body io.Reader) (*model.Attachment, error)
	// DeleteFiles removes named attachments; metadata and blob deletion are
	// issued concurrently, each best-effort.
	DeleteFiles(ctx context.Context, domainID, courseID string, names []string) error
	// SignDownload returns a short-lived download URL for one attachment.
	SignDownload(ctx context.Context, domainID, courseID, name string, inline bool) (string, error)
}

type fileService struct {
	courseRepo repository.CourseRepository
	blob       storage.BlobStore
	quota      FileQuota
	fileLogger zerolog.Logger
}

// NewFileService creates a new FileService
func NewFileService(
	courseRepo repository.CourseRepository,
	blob storage.BlobStore,
	quota FileQuota,
	logger zerolog.Logger,
) FileService {
	return &fileService{
		courseRepo: courseRepo,
		blob:       blob,
		quota:      quota,
		fileLogger: logger.With().Str("service", "FileService").Logger(),
	}
}

// FileKey is the blob key of a course attachment.
func FileKey(courseID, name string) string {
	return fmt.Sprintf("course/%s/%s", courseID, name)
}

func (s *fileService) ListFiles(ctx context.Context, domainID, courseID string) (model.AttachmentList, error) {
	course, err := s.getCourse(ctx, domainID, courseID)
	if err != nil {
		return nil, err
	}
	return course.Files, nil
}

// Upload enforces the quota against the current attachment list. The check
// and the later list write are a read-modify-write on the course row, so two
// racing uploads can both pass against a stale count; the ceiling is a soft
// limit.
func (s *fileService) Upload(ctx context.Context, domainID, courseID, name string, size int64, contentType string, body io.Reader) (*model.Attachment, error) {
	if name == "" {
		return nil, errdefs.Validationf("file name is required")
	}
	course, err := s.getCourse(ctx, domainID, courseID)
	if err != nil {
		return nil, err
	}

	existing := course.Files
	replacing := existing.Get(name)
	count := len(existing)
	total := existing.TotalSize()
	if replacing != nil {
		// Overwriting an existing name frees its slot and bytes.
		count--
		total -= replacing.Size
	}

	if count >= s.quota.MaxCount {
		return nil, &errdefs.QuotaError{Kind: errdefs.QuotaCount, Limit: int64(s.quota.MaxCount)}
	}
	if total+size >= s.quota.MaxTotalSize {
		return nil, &errdefs.QuotaError{Kind: errdefs.QuotaSize, Limit: s.quota.MaxTotalSize}
	}

	key := FileKey(courseID, name)
	if err := s.blob.Put(ctx, key, body, size, contentType); err != nil {
		s.fileLogger.Error().Err(err).Str("key", key).Msg("Failed to store attachment blob")
		return nil, fmt.Errorf("storing attachment %s: %w", name, err)
	}

	meta, err := s.blob.GetMeta(ctx, key)
	if err != nil || meta == nil {
		// Blob write reported success but the object is unreadable; leave
		// the metadata list untouched.
		s.fileLogger.Error().Err(err).Str("key", key).Msg("Failed to read back attachment metadata")
		return nil, errdefs.ErrUploadFailure
	}

	attachment := model.Attachment{
		Name:         name,
		Size:         meta.Size,
		LastModified: meta.LastModified,
		Etag:         meta.Etag,
	}
	files := append(existing.Without(name), attachment)
	if err := s.courseRepo.SetFiles(ctx, domainID, courseID, files); err != nil {
		s.fileLogger.Error().Err(err).Str("course_id", courseID).Msg("Failed to commit attachment metadata")
		return nil, fmt.Errorf("%w: %v", errdefs.ErrUploadFailure, err)
	}
	return &attachment, nil
}

// DeleteFiles issues the metadata removal and the blob deletion concurrently.
// Each side is best-effort: a stranded blob after a metadata-only success is
// accepted and logged.
func (s *fileService) DeleteFiles(ctx context.Context, domainID, courseID string, names []string) error {
	if len(names) == 0 {
		return nil
	}
	course, err := s.getCourse(ctx, domainID, courseID)
	if err != nil {
		return err
	}
	for _, name := range names {
		if course.Files.Get(name) == nil {
			return fmt.Errorf("%w: %s", errdefs.ErrFileNotFound, name)
		}
	}

	remaining := course.Files.Without(names...)
	keys := make([]string, 0, len(names))
	for _, name := range names {
		keys = append(keys, FileKey(courseID, name))
	}

	var wg sync.WaitGroup
	var metaErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		metaErr = s.courseRepo.SetFiles(ctx, domainID, courseID, remaining)
	}()
	go func() {
		defer wg.Done()
		if err := s.blob.Del(ctx, keys...); err != nil {
			s.fileLogger.Error().Err(err).Str("course_id", courseID).Msg("Failed to delete attachment blobs")
		}
	}()
	wg.Wait()

	if metaErr != nil {
		s.fileLogger.Error().Err(metaErr).Str("course_id", courseID).Msg("Failed to remove attachment metadata")
		return metaErr
	}
	return nil
}

func (s *fileService) SignDownload(ctx context.Context, domainID, courseID, name string, inline bool) (string, error) {
	course, err := s.getCourse(ctx, domainID, courseID)
	if err != nil {
		return "", err
	}
	if course.Files.Get(name) == nil {
		return "", fmt.Errorf("%w: %s", errdefs.ErrFileNotFound, name)
	}
	return s.blob.SignDownloadLink(ctx, FileKey(courseID, name), name, inline)
}

func (s *fileService) getCourse(ctx context.Context, domainID, courseID string) (*model.Course, error) {
	course, err := s.courseRepo.GetCourse(ctx, domainID, courseID)
	if err != nil {
		s.fileLogger.Error().Err(err).Str("course_id", courseID).Msg("Failed to get course")
		return nil, err
	}
	if course == nil {
		return nil, errdefs.ErrCourseNotFound
	}
	return course, nil
}
