package service

import (
	"context"
	"sort"

	"app/internal/errdefs"
	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// ProgressService folds judged submissions into per-student journals and
// derives progress and scoreboard views from them.
type ProgressService interface {
	// RecordJudged applies one judge result to every course in the domain
	// that lists the problem and has a status row for the student.
	RecordJudged(ctx context.Context, rec model.Record) error
	// CurrentProgress returns the effective per-problem state for the
	// student, aligned with the course's current problem list.
	CurrentProgress(ctx context.Context, domainID, courseID string, userID int64) ([]model.ProblemProgress, error)
	// Scoreboard reduces every enrolled student's journal into a row,
	// ordered by total descending (roster order on ties).
	Scoreboard(ctx context.Context, domainID, courseID string) ([]model.ScoreboardRow, error)
}

type progressService struct {
	courseRepo     repository.CourseRepository
	enrollRepo     repository.EnrollmentRepository
	progressLogger zerolog.Logger
}

// NewProgressService creates a new ProgressService
func NewProgressService(
	courseRepo repository.CourseRepository,
	enrollRepo repository.EnrollmentRepository,
	logger zerolog.Logger,
) ProgressService {
	return &progressService{
		courseRepo:     courseRepo,
		enrollRepo:     enrollRepo,
		progressLogger: logger.With().Str("service", "ProgressService").Logger(),
	}
}

// RecordJudged appends a journal entry per affected course. Appends are the
// only mutation the journal ever sees; resubmissions supersede by order, so
// no read-modify-write is needed here.
func (s *progressService) RecordJudged(ctx context.Context, rec model.Record) error {
	courses, err := s.courseRepo.ListCourses(ctx, rec.DomainID)
	if err != nil {
		s.progressLogger.Error().Err(err).Str("domain_id", rec.DomainID).Msg("Failed to list courses for judged record")
		return err
	}

	for _, c := range courses {
		if !c.HasProblem(rec.ProblemID) {
			continue
		}
		enrollment, err := s.enrollRepo.GetEnrollment(ctx, rec.DomainID, c.ID, rec.UserID)
		if err != nil {
			s.progressLogger.Error().Err(err).Str("course_id", c.ID).Msg("Failed to check enrollment for judged record")
			return err
		}
		if enrollment == nil || !enrollment.Attend {
			continue
		}
		entry := model.JournalEntry{
			ProblemID: rec.ProblemID,
			RecordID:  rec.RecordID,
			Score:     rec.Score,
			Status:    rec.Status,
		}
		if err := s.enrollRepo.AppendJournal(ctx, rec.DomainID, c.ID, rec.UserID, entry); err != nil {
			s.progressLogger.Error().Err(err).Str("course_id", c.ID).Str("record_id", rec.RecordID).Msg("Failed to append journal entry")
			return err
		}
	}
	return nil
}

func (s *progressService) CurrentProgress(ctx context.Context, domainID, courseID string, userID int64) ([]model.ProblemProgress, error) {
	course, err := s.courseRepo.GetCourse(ctx, domainID, courseID)
	if err != nil {
		s.progressLogger.Error().Err(err).Str("course_id", courseID).Msg("Failed to get course for progress")
		return nil, err
	}
	if course == nil {
		return nil, errdefs.ErrCourseNotFound
	}
	journal, err := s.enrollRepo.GetJournal(ctx, domainID, courseID, userID)
	if err != nil {
		s.progressLogger.Error().Err(err).Str("course_id", courseID).Int64("user_id", userID).Msg("Failed to get journal for progress")
		return nil, err
	}
	return EffectiveProgress(course.ProblemIDs, journal), nil
}

func (s *progressService) Scoreboard(ctx context.Context, domainID, courseID string) ([]model.ScoreboardRow, error) {
	course, err := s.courseRepo.GetCourse(ctx, domainID, courseID)
	if err != nil {
		s.progressLogger.Error().Err(err).Str("course_id", courseID).Msg("Failed to get course for scoreboard")
		return nil, err
	}
	if course == nil {
		return nil, errdefs.ErrCourseNotFound
	}

	roster, err := s.enrollRepo.ListEnrolled(ctx, domainID, courseID)
	if err != nil {
		s.progressLogger.Error().Err(err).Str("course_id", courseID).Msg("Failed to list roster for scoreboard")
		return nil, err
	}
	userIDs := make([]int64, 0, len(roster))
	for _, e := range roster {
		userIDs = append(userIDs, e.UserID)
	}
	journals, err := s.enrollRepo.GetJournals(ctx, domainID, courseID, userIDs)
	if err != nil {
		s.progressLogger.Error().Err(err).Str("course_id", courseID).Msg("Failed to load journals for scoreboard")
		return nil, err
	}

	return BuildScoreboard(course.ProblemIDs, roster, journals), nil
}

// EffectiveProgress reduces a journal to one effective entry per course
// problem: the LAST entry by append order, regardless of score. Problems the
// student never submitted for come back with Attempted=false.
func EffectiveProgress(problemIDs []int64, journal []model.JournalEntry) []model.ProblemProgress {
	effective := make(map[int64]model.JournalEntry, len(problemIDs))
	for _, e := range journal {
		effective[e.ProblemID] = e
	}

	progress := make([]model.ProblemProgress, 0, len(problemIDs))
	for _, pid := range problemIDs {
		p := model.ProblemProgress{ProblemID: pid}
		if e, ok := effective[pid]; ok {
			p.RecordID = e.RecordID
			p.Score = e.Score
			p.Status = e.Status
			p.Attempted = true
		}
		progress = append(progress, p)
	}
	return progress
}

// BuildScoreboard is the pure reduction behind Scoreboard. Totals only count
// the course's current problem list; a problem removed from the course stops
// contributing even if journal entries for it remain. The sort is stable so
// equal totals keep the roster order.
func BuildScoreboard(problemIDs []int64, roster []model.Enrollment, journals map[int64][]model.JournalEntry) []model.ScoreboardRow {
	rows := make([]model.ScoreboardRow, 0, len(roster))
	for _, e := range roster {
		progress := EffectiveProgress(problemIDs, journals[e.UserID])
		row := model.ScoreboardRow{
			UserID: e.UserID,
			Scores: make([]int, len(progress)),
		}
		for i, p := range progress {
			row.Scores[i] = p.Score
			row.Total += p.Score
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Total > rows[j].Total
	})
	return rows
}
