package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"app/internal/errdefs"
	"app/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enrollFixture(t *testing.T) (*fakeCourseRepo, *fakeEnrollmentRepo, *enrollmentService) {
	t.Helper()
	repo := newFakeCourseRepo(newCourse("c1", "system", "Algorithms", nil))
	enrollRepo := newFakeEnrollmentRepo()
	svc := NewEnrollmentService(repo, enrollRepo, testLogger).(*enrollmentService)
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC) }
	return repo, enrollRepo, svc
}

func TestEnroll(t *testing.T) {
	t.Run("FirstEnrollSucceeds", func(t *testing.T) {
		repo, enrollRepo, svc := enrollFixture(t)

		require.NoError(t, svc.Enroll(context.Background(), "system", "c1", 42))

		e, err := enrollRepo.GetEnrollment(context.Background(), "system", "c1", 42)
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.True(t, e.Attend)
		assert.Equal(t, 1, repo.attendance("system", "c1"))
	})

	t.Run("DuplicateEnrollConflicts", func(t *testing.T) {
		repo, _, svc := enrollFixture(t)

		require.NoError(t, svc.Enroll(context.Background(), "system", "c1", 42))
		err := svc.Enroll(context.Background(), "system", "c1", 42)
		assert.ErrorIs(t, err, errdefs.ErrAlreadyEnrolled)
		assert.Equal(t, 1, repo.attendance("system", "c1"))
	})

	t.Run("ConcurrentEnrollsHaveOneWinner", func(t *testing.T) {
		const workers = 32
		repo, _, svc := enrollFixture(t)

		errs := make([]error, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = svc.Enroll(context.Background(), "system", "c1", 42)
			}(i)
		}
		wg.Wait()

		var won, lost int
		for _, err := range errs {
			switch {
			case err == nil:
				won++
			case errors.Is(err, errdefs.ErrAlreadyEnrolled):
				lost++
			default:
				t.Fatalf("unexpected enroll error: %v", err)
			}
		}
		assert.Equal(t, 1, won)
		assert.Equal(t, workers-1, lost)
		assert.Equal(t, 1, repo.attendance("system", "c1"))
	})

	t.Run("EndedCourseRefuses", func(t *testing.T) {
		_, enrollRepo, svc := enrollFixture(t)
		svc.now = func() time.Time { return time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC) }

		err := svc.Enroll(context.Background(), "system", "c1", 42)
		assert.ErrorIs(t, err, errdefs.ErrCourseEnded)

		e, err := enrollRepo.GetEnrollment(context.Background(), "system", "c1", 42)
		require.NoError(t, err)
		assert.Nil(t, e)
	})

	t.Run("EndInstantRefuses", func(t *testing.T) {
		_, _, svc := enrollFixture(t)
		svc.now = func() time.Time { return time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC) }

		err := svc.Enroll(context.Background(), "system", "c1", 42)
		assert.ErrorIs(t, err, errdefs.ErrCourseEnded)
	})

	t.Run("MissingCourse", func(t *testing.T) {
		_, _, svc := enrollFixture(t)
		err := svc.Enroll(context.Background(), "system", "no-such", 42)
		assert.ErrorIs(t, err, errdefs.ErrCourseNotFound)
	})

	t.Run("CounterFailureDoesNotUndoEnrollment", func(t *testing.T) {
		repo, enrollRepo, svc := enrollFixture(t)
		repo.incErr = errors.New("counter unavailable")

		require.NoError(t, svc.Enroll(context.Background(), "system", "c1", 42))

		e, err := enrollRepo.GetEnrollment(context.Background(), "system", "c1", 42)
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.True(t, e.Attend)
		// The counter lags; the enrollment rows remain authoritative.
		n, err := enrollRepo.CountEnrolled(context.Background(), "system", "c1")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestGetStatus(t *testing.T) {
	t.Run("NeverTouched", func(t *testing.T) {
		_, _, svc := enrollFixture(t)

		e, journal, err := svc.GetStatus(context.Background(), "system", "c1", 42)
		require.NoError(t, err)
		assert.Nil(t, e)
		assert.Nil(t, journal)
	})

	t.Run("EnrolledWithJournal", func(t *testing.T) {
		_, enrollRepo, svc := enrollFixture(t)
		require.NoError(t, svc.Enroll(context.Background(), "system", "c1", 42))
		require.NoError(t, enrollRepo.AppendJournal(context.Background(), "system", "c1", 42,
			model.JournalEntry{ProblemID: 7, RecordID: "r1", Score: 100}))

		e, journal, err := svc.GetStatus(context.Background(), "system", "c1", 42)
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.True(t, e.Attend)
		require.Len(t, journal, 1)
		assert.Equal(t, "r1", journal[0].RecordID)
	})
}
