package service

import (
	"context"
	"testing"
	"time"

	"app/internal/errdefs"
	"app/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCourse(id, domainID, title string, mutate func(c *model.Course)) *model.Course {
	c := &model.Course{
		ID:       id,
		DomainID: domainID,
		Title:    title,
		BeginAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndAt:    time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		OwnerID:  1,
	}
	if mutate != nil {
		mutate(c)
	}
	return c
}

func TestCreateCourse(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo := newFakeCourseRepo()
		svc := NewCourseService(repo, newFakeEnrollmentRepo(), newFakeBlobStore(), testLogger)

		created, err := svc.CreateCourse(context.Background(), newCourse("", "system", "Algorithms", nil))
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)

		got, err := repo.GetCourse(context.Background(), "system", created.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Algorithms", got.Title)
	})

	t.Run("BlankTitleRejected", func(t *testing.T) {
		svc := NewCourseService(newFakeCourseRepo(), newFakeEnrollmentRepo(), newFakeBlobStore(), testLogger)

		_, err := svc.CreateCourse(context.Background(), newCourse("", "system", "   ", nil))
		assert.ErrorIs(t, err, errdefs.ErrValidation)
	})

	t.Run("InvertedTimeWindowRejected", func(t *testing.T) {
		svc := NewCourseService(newFakeCourseRepo(), newFakeEnrollmentRepo(), newFakeBlobStore(), testLogger)

		c := newCourse("", "system", "Algorithms", func(c *model.Course) {
			c.BeginAt, c.EndAt = c.EndAt, c.BeginAt
		})
		_, err := svc.CreateCourse(context.Background(), c)
		assert.ErrorIs(t, err, errdefs.ErrValidation)
	})
}

func TestGetCourse(t *testing.T) {
	owner := Viewer{UserID: 1}
	stranger := Viewer{UserID: 99, Groups: []string{"class-b"}}

	restricted := newCourse("c1", "system", "Algorithms", func(c *model.Course) {
		c.AssignedGroups = []string{"class-a"}
	})
	repo := newFakeCourseRepo(restricted)
	svc := NewCourseService(repo, newFakeEnrollmentRepo(), newFakeBlobStore(), testLogger)

	t.Run("OwnerGetsCourse", func(t *testing.T) {
		got, err := svc.GetCourse(context.Background(), "system", "c1", owner)
		require.NoError(t, err)
		assert.Equal(t, "Algorithms", got.Title)
	})

	t.Run("InvisibleReadsAsNotFound", func(t *testing.T) {
		_, err := svc.GetCourse(context.Background(), "system", "c1", stranger)
		assert.ErrorIs(t, err, errdefs.ErrCourseNotFound)
	})

	t.Run("MissingReadsAsNotFound", func(t *testing.T) {
		_, err := svc.GetCourse(context.Background(), "system", "no-such", owner)
		assert.ErrorIs(t, err, errdefs.ErrCourseNotFound)
	})
}

func TestListCourses(t *testing.T) {
	courses := []*model.Course{
		newCourse("c1", "system", "Intro to Graphs", func(c *model.Course) {
			c.BeginAt = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		}),
		newCourse("c2", "system", "Graph Theory II", func(c *model.Course) {
			c.BeginAt = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
			c.AssignedGroups = []string{"class-a"}
		}),
		newCourse("c3", "system", "Number Theory", func(c *model.Course) {
			c.BeginAt = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
		}),
	}
	repo := newFakeCourseRepo(courses...)
	svc := NewCourseService(repo, newFakeEnrollmentRepo(), newFakeBlobStore(), testLogger)

	t.Run("FiltersInvisibleKeepsOrder", func(t *testing.T) {
		got, err := svc.ListCourses(context.Background(), "system", Viewer{UserID: 99}, "")
		require.NoError(t, err)
		require.Len(t, got, 2)
		// start time descending; c2 is group-restricted and filtered out
		assert.Equal(t, "c3", got[0].ID)
		assert.Equal(t, "c1", got[1].ID)
	})

	t.Run("TitleSearchNarrows", func(t *testing.T) {
		got, err := svc.ListCourses(context.Background(), "system", Viewer{UserID: 1}, "graph")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "c2", got[0].ID)
		assert.Equal(t, "c1", got[1].ID)
	})

	t.Run("OtherDomainIsEmpty", func(t *testing.T) {
		got, err := svc.ListCourses(context.Background(), "other", Viewer{UserID: 1}, "")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestUpdateCourse(t *testing.T) {
	t.Run("PartialUpdate", func(t *testing.T) {
		repo := newFakeCourseRepo(newCourse("c1", "system", "Old Title", nil))
		svc := NewCourseService(repo, newFakeEnrollmentRepo(), newFakeBlobStore(), testLogger)

		title := "New Title"
		got, err := svc.UpdateCourse(context.Background(), "system", "c1", model.CourseUpdate{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, "New Title", got.Title)
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), got.BeginAt)
	})

	t.Run("WindowRevalidatedAgainstExisting", func(t *testing.T) {
		repo := newFakeCourseRepo(newCourse("c1", "system", "Algorithms", nil))
		svc := NewCourseService(repo, newFakeEnrollmentRepo(), newFakeBlobStore(), testLogger)

		// New begin lands after the kept end.
		begin := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
		_, err := svc.UpdateCourse(context.Background(), "system", "c1", model.CourseUpdate{BeginAt: &begin})
		assert.ErrorIs(t, err, errdefs.ErrValidation)
	})

	t.Run("MissingCourse", func(t *testing.T) {
		svc := NewCourseService(newFakeCourseRepo(), newFakeEnrollmentRepo(), newFakeBlobStore(), testLogger)

		title := "X"
		_, err := svc.UpdateCourse(context.Background(), "system", "nope", model.CourseUpdate{Title: &title})
		assert.ErrorIs(t, err, errdefs.ErrCourseNotFound)
	})
}

func TestDeleteCourse(t *testing.T) {
	t.Run("CascadesRosterAndBlobs", func(t *testing.T) {
		course := newCourse("c1", "system", "Algorithms", func(c *model.Course) {
			c.Files = model.AttachmentList{{Name: "notes.pdf", Size: 10}}
		})
		repo := newFakeCourseRepo(course)
		enrollRepo := newFakeEnrollmentRepo()
		blob := newFakeBlobStore()
		_, err := enrollRepo.SetAttendIfAbsent(context.Background(), "system", "c1", 5)
		require.NoError(t, err)

		svc := NewCourseService(repo, enrollRepo, blob, testLogger)
		require.NoError(t, svc.DeleteCourse(context.Background(), "system", "c1"))

		got, err := repo.GetCourse(context.Background(), "system", "c1")
		require.NoError(t, err)
		assert.Nil(t, got)

		e, err := enrollRepo.GetEnrollment(context.Background(), "system", "c1", 5)
		require.NoError(t, err)
		assert.Nil(t, e)

		require.Len(t, blob.delCalls, 1)
		assert.Equal(t, []string{FileKey("c1", "notes.pdf")}, blob.delCalls[0])
	})

	t.Run("MissingCourse", func(t *testing.T) {
		svc := NewCourseService(newFakeCourseRepo(), newFakeEnrollmentRepo(), newFakeBlobStore(), testLogger)
		err := svc.DeleteCourse(context.Background(), "system", "nope")
		assert.ErrorIs(t, err, errdefs.ErrCourseNotFound)
	})
}

func TestParseProblemIDs(t *testing.T) {
	t.Run("MixedSeparators", func(t *testing.T) {
		ids, err := ParseProblemIDs("1, 2\n3\t4  5")
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids)
	})

	t.Run("Empty", func(t *testing.T) {
		ids, err := ParseProblemIDs("")
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("NonNumericRejected", func(t *testing.T) {
		_, err := ParseProblemIDs("1, two, 3")
		assert.ErrorIs(t, err, errdefs.ErrValidation)
	})
}
