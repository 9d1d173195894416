package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"app/internal/model"
	"app/internal/storage"

	"github.com/rs/zerolog"
)

var testLogger = zerolog.Nop()

// fakeCourseRepo is an in-memory CourseRepository keyed by (domain, id).
type fakeCourseRepo struct {
	mu      sync.Mutex
	courses map[string]*model.Course

	getErr        error
	incErr        error
	setFilesErr   error
	setFilesCalls int
}

func newFakeCourseRepo(courses ...*model.Course) *fakeCourseRepo {
	r := &fakeCourseRepo{courses: make(map[string]*model.Course)}
	for _, c := range courses {
		cc := *c
		r.courses[c.DomainID+"/"+c.ID] = &cc
	}
	return r
}

func (r *fakeCourseRepo) CreateCourse(_ context.Context, c *model.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := c.DomainID + "/" + c.ID
	if _, ok := r.courses[key]; ok {
		return fmt.Errorf("duplicate course %s", key)
	}
	cc := *c
	r.courses[key] = &cc
	return nil
}

func (r *fakeCourseRepo) GetCourse(_ context.Context, domainID, courseID string) (*model.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	c, ok := r.courses[domainID+"/"+courseID]
	if !ok {
		return nil, nil
	}
	cc := *c
	return &cc, nil
}

func (r *fakeCourseRepo) ListCourses(_ context.Context, domainID string) ([]model.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Course
	for _, c := range r.courses {
		if c.DomainID == domainID {
			out = append(out, *c)
		}
	}
	// Mirror the SQL ordering: begin_at descending, newest id first on ties.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0; j-- {
			a, b := out[j-1], out[j]
			if b.BeginAt.After(a.BeginAt) || (b.BeginAt.Equal(a.BeginAt) && b.ID > a.ID) {
				out[j-1], out[j] = b, a
			}
		}
	}
	return out, nil
}

func (r *fakeCourseRepo) UpdateCourse(_ context.Context, domainID, courseID string, upd model.CourseUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[domainID+"/"+courseID]
	if !ok {
		return fmt.Errorf("course %s not found", courseID)
	}
	if upd.Title != nil {
		c.Title = *upd.Title
	}
	if upd.Content != nil {
		c.Content = *upd.Content
	}
	if upd.BeginAt != nil {
		c.BeginAt = *upd.BeginAt
	}
	if upd.EndAt != nil {
		c.EndAt = *upd.EndAt
	}
	if upd.MaintainerIDs != nil {
		c.MaintainerIDs = *upd.MaintainerIDs
	}
	if upd.TeacherIDs != nil {
		c.TeacherIDs = *upd.TeacherIDs
	}
	if upd.AssignedGroups != nil {
		c.AssignedGroups = *upd.AssignedGroups
	}
	if upd.ProblemIDs != nil {
		c.ProblemIDs = *upd.ProblemIDs
	}
	return nil
}

func (r *fakeCourseRepo) DeleteCourse(_ context.Context, domainID, courseID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.courses, domainID+"/"+courseID)
	return nil
}

func (r *fakeCourseRepo) IncAttendance(_ context.Context, domainID, courseID string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.incErr != nil {
		return r.incErr
	}
	c, ok := r.courses[domainID+"/"+courseID]
	if !ok {
		return fmt.Errorf("course %s not found", courseID)
	}
	c.Attendance += delta
	return nil
}

func (r *fakeCourseRepo) SetFiles(_ context.Context, domainID, courseID string, files model.AttachmentList) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setFilesCalls++
	if r.setFilesErr != nil {
		return r.setFilesErr
	}
	c, ok := r.courses[domainID+"/"+courseID]
	if !ok {
		return fmt.Errorf("course %s not found", courseID)
	}
	c.Files = files
	return nil
}

func (r *fakeCourseRepo) attendance(domainID, courseID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.courses[domainID+"/"+courseID].Attendance
}

func (r *fakeCourseRepo) files(domainID, courseID string) model.AttachmentList {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.courses[domainID+"/"+courseID].Files
}

// fakeEnrollmentRepo is an in-memory EnrollmentRepository. SetAttendIfAbsent
// holds the same conditional-write contract as the SQL implementation, so it
// is safe to hammer from concurrent goroutines in tests.
type fakeEnrollmentRepo struct {
	mu          sync.Mutex
	enrollments map[string]*model.Enrollment
	journals    map[string][]model.JournalEntry
	nextSeq     int64

	setAttendErr error
	appendErr    error
}

func newFakeEnrollmentRepo() *fakeEnrollmentRepo {
	return &fakeEnrollmentRepo{
		enrollments: make(map[string]*model.Enrollment),
		journals:    make(map[string][]model.JournalEntry),
	}
}

func enrollKey(domainID, courseID string, userID int64) string {
	return fmt.Sprintf("%s/%s/%d", domainID, courseID, userID)
}

func (r *fakeEnrollmentRepo) SetAttendIfAbsent(_ context.Context, domainID, courseID string, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setAttendErr != nil {
		return false, r.setAttendErr
	}
	key := enrollKey(domainID, courseID, userID)
	e, ok := r.enrollments[key]
	if ok && e.Attend {
		return false, nil
	}
	r.enrollments[key] = &model.Enrollment{
		DomainID:   domainID,
		CourseID:   courseID,
		UserID:     userID,
		Attend:     true,
		EnrolledAt: time.Now(),
	}
	return true, nil
}

func (r *fakeEnrollmentRepo) GetEnrollment(_ context.Context, domainID, courseID string, userID int64) (*model.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enrollments[enrollKey(domainID, courseID, userID)]
	if !ok {
		return nil, nil
	}
	ee := *e
	return &ee, nil
}

func (r *fakeEnrollmentRepo) ListEnrolled(_ context.Context, domainID, courseID string) ([]model.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Enrollment
	for _, e := range r.enrollments {
		if e.DomainID == domainID && e.CourseID == courseID && e.Attend {
			out = append(out, *e)
		}
	}
	// enrolled_at ascending, user id breaking ties
	for i := 1; i < len(out); i++ {
		for j := i; j > 0; j-- {
			a, b := out[j-1], out[j]
			if b.EnrolledAt.Before(a.EnrolledAt) || (b.EnrolledAt.Equal(a.EnrolledAt) && b.UserID < a.UserID) {
				out[j-1], out[j] = b, a
			}
		}
	}
	return out, nil
}

func (r *fakeEnrollmentRepo) CountEnrolled(_ context.Context, domainID, courseID string) (int, error) {
	enrolled, _ := r.ListEnrolled(context.Background(), domainID, courseID)
	return len(enrolled), nil
}

func (r *fakeEnrollmentRepo) AppendJournal(_ context.Context, domainID, courseID string, userID int64, e model.JournalEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	key := enrollKey(domainID, courseID, userID)
	if _, ok := r.enrollments[key]; !ok {
		r.enrollments[key] = &model.Enrollment{
			DomainID: domainID,
			CourseID: courseID,
			UserID:   userID,
		}
	}
	r.nextSeq++
	e.Seq = r.nextSeq
	r.journals[key] = append(r.journals[key], e)
	return nil
}

func (r *fakeEnrollmentRepo) GetJournal(_ context.Context, domainID, courseID string, userID int64) ([]model.JournalEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j := r.journals[enrollKey(domainID, courseID, userID)]
	out := make([]model.JournalEntry, len(j))
	copy(out, j)
	return out, nil
}

func (r *fakeEnrollmentRepo) GetJournals(_ context.Context, domainID, courseID string, userIDs []int64) (map[int64][]model.JournalEntry, error) {
	out := make(map[int64][]model.JournalEntry, len(userIDs))
	for _, uid := range userIDs {
		j, _ := r.GetJournal(context.Background(), domainID, courseID, uid)
		if len(j) > 0 {
			out[uid] = j
		}
	}
	return out, nil
}

func (r *fakeEnrollmentRepo) DeleteByCourse(_ context.Context, domainID, courseID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, e := range r.enrollments {
		if e.DomainID == domainID && e.CourseID == courseID {
			delete(r.enrollments, key)
			delete(r.journals, key)
		}
	}
	return nil
}

// fakeBlobStore is an in-memory BlobStore with per-call failure injection.
type fakeBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte

	putErr     error
	metaErr    error
	metaAbsent bool
	delErr     error
	delCalls   [][]string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (b *fakeBlobStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return b.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	b.blobs[key] = data
	return nil
}

func (b *fakeBlobStore) GetMeta(_ context.Context, key string) (*storage.BlobMeta, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.metaErr != nil {
		return nil, b.metaErr
	}
	data, ok := b.blobs[key]
	if !ok || b.metaAbsent {
		return nil, nil
	}
	return &storage.BlobMeta{
		Size:         int64(len(data)),
		LastModified: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Etag:         fmt.Sprintf("etag-%d", len(data)),
	}, nil
}

func (b *fakeBlobStore) Del(_ context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delCalls = append(b.delCalls, keys)
	if b.delErr != nil {
		return b.delErr
	}
	for _, k := range keys {
		delete(b.blobs, k)
	}
	return nil
}

func (b *fakeBlobStore) SignDownloadLink(_ context.Context, key, filename string, inline bool) (string, error) {
	return fmt.Sprintf("https://blobs.test/%s?filename=%s&inline=%t", key, filename, inline), nil
}

func (b *fakeBlobStore) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.blobs[key]
	return ok
}
