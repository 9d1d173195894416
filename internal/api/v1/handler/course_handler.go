package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/repository"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// CourseHandler handles course-related endpoints
type CourseHandler struct {
	courseService   service.CourseService
	enrollService   service.EnrollmentService
	progressService service.ProgressService
	platformRepo    repository.PlatformRepository
	validate        *validator.Validate
	logger          zerolog.Logger
}

// NewCourseHandler creates a new CourseHandler
func NewCourseHandler(
	courseService service.CourseService,
	enrollService service.EnrollmentService,
	progressService service.ProgressService,
	platformRepo repository.PlatformRepository,
	validate *validator.Validate,
	logger zerolog.Logger,
) *CourseHandler {
	return &CourseHandler{
		courseService:   courseService,
		enrollService:   enrollService,
		progressService: progressService,
		platformRepo:    platformRepo,
		validate:        validate,
		logger:          logger.With().Str("handler", "CourseHandler").Logger(),
	}
}

// RegisterRoutes mounts course routes
func (h *CourseHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("POST /d/{domainId}/courses", authMw(http.HandlerFunc(h.createCourse)))
	mux.Handle("GET /d/{domainId}/courses", authMw(http.HandlerFunc(h.listCourses)))
	mux.Handle("GET /d/{domainId}/courses/{courseId}", authMw(http.HandlerFunc(h.getCourse)))
	mux.Handle("PATCH /d/{domainId}/courses/{courseId}", authMw(http.HandlerFunc(h.updateCourse)))
	mux.Handle("DELETE /d/{domainId}/courses/{courseId}", authMw(http.HandlerFunc(h.deleteCourse)))
	mux.Handle("POST /d/{domainId}/courses/{courseId}/enroll", authMw(http.HandlerFunc(h.enroll)))
	mux.Handle("GET /d/{domainId}/courses/{courseId}/status", authMw(http.HandlerFunc(h.getStatus)))
	mux.Handle("GET /d/{domainId}/courses/{courseId}/scoreboard", authMw(http.HandlerFunc(h.getScoreboard)))
	mux.Handle("GET /d/{domainId}/courses/{courseId}/records", authMw(http.HandlerFunc(h.listRecords)))
}

func (h *CourseHandler) viewerFor(r *http.Request, domainID string) (service.Viewer, bool) {
	return viewerFrom(r, domainID, h.platformRepo, h.logger)
}

// createCourse godoc
// @Summary Create a new course
// @Tags courses
// @Accept json
// @Produce json
// @Param course body dto.CourseCreateDTO true "Course creation request"
// @Success 201 {object} dto.CourseResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Router /d/{domainId}/courses [post]
func (h *CourseHandler) createCourse(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: user not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.CourseCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	problemIDs, err := service.ParseProblemIDs(req.ProblemIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	course := &model.Course{
		DomainID:       r.PathValue("domainId"),
		Title:          req.Title,
		Content:        req.Content,
		BeginAt:        req.BeginAt,
		EndAt:          req.EndAt,
		OwnerID:        uid,
		MaintainerIDs:  req.MaintainerIDs,
		TeacherIDs:     req.TeacherIDs,
		AssignedGroups: req.AssignedGroups,
		ProblemIDs:     problemIDs,
	}
	created, err := h.courseService.CreateCourse(r.Context(), course)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.NewCourseResponseDTO(created))
}

// listCourses godoc
// @Summary List courses visible to the viewer
// @Tags courses
// @Produce json
// @Param q query string false "Title search query"
// @Param group query string false "Exact group filter"
// @Success 200 {object} dto.CourseListResponseDTO
// @Router /d/{domainId}/courses [get]
func (h *CourseHandler) listCourses(w http.ResponseWriter, r *http.Request) {
	domainID := r.PathValue("domainId")
	viewer, ok := h.viewerFor(r, domainID)
	if !ok {
		http.Error(w, "Unauthorized: user not found in context", http.StatusUnauthorized)
		return
	}
	courses, err := h.courseService.ListCourses(r.Context(), domainID, viewer, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	resp := dto.CourseListResponseDTO{Courses: make([]dto.CourseResponseDTO, 0, len(courses))}
	for i := range courses {
		resp.Courses = append(resp.Courses, dto.NewCourseResponseDTO(&courses[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// getCourse godoc
// @Summary Get a course
// @Tags courses
// @Produce json
// @Success 200 {object} dto.CourseResponseDTO
// @Failure 404 {string} string "Course not found"
// @Router /d/{domainId}/courses/{courseId} [get]
func (h *CourseHandler) getCourse(w http.ResponseWriter, r *http.Request) {
	domainID := r.PathValue("domainId")
	viewer, ok := h.viewerFor(r, domainID)
	if !ok {
		http.Error(w, "Unauthorized: user not found in context", http.StatusUnauthorized)
		return
	}
	course, err := h.courseService.GetCourse(r.Context(), domainID, r.PathValue("courseId"), viewer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewCourseResponseDTO(course))
}

// updateCourse godoc
// @Summary Update a course
// @Tags courses
// @Accept json
// @Produce json
// @Param course body dto.CourseUpdateDTO true "Course update request"
// @Success 200 {object} dto.CourseResponseDTO
// @Router /d/{domainId}/courses/{courseId} [patch]
func (h *CourseHandler) updateCourse(w http.ResponseWriter, r *http.Request) {
	domainID := r.PathValue("domainId")
	courseID := r.PathValue("courseId")
	if !h.canManage(w, r, domainID, courseID) {
		return
	}

	var req dto.CourseUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	upd := model.CourseUpdate{
		Title:          req.Title,
		Content:        req.Content,
		BeginAt:        req.BeginAt,
		EndAt:          req.EndAt,
		MaintainerIDs:  req.MaintainerIDs,
		TeacherIDs:     req.TeacherIDs,
		AssignedGroups: req.AssignedGroups,
	}
	if req.ProblemIDs != nil {
		problemIDs, err := service.ParseProblemIDs(*req.ProblemIDs)
		if err != nil {
			writeError(w, err)
			return
		}
		upd.ProblemIDs = &problemIDs
	}

	updated, err := h.courseService.UpdateCourse(r.Context(), domainID, courseID, upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewCourseResponseDTO(updated))
}

// deleteCourse godoc
// @Summary Delete a course and everything it owns
// @Tags courses
// @Success 204 {string} string "No Content"
// @Router /d/{domainId}/courses/{courseId} [delete]
func (h *CourseHandler) deleteCourse(w http.ResponseWriter, r *http.Request) {
	domainID := r.PathValue("domainId")
	courseID := r.PathValue("courseId")
	if !h.canManage(w, r, domainID, courseID) {
		return
	}
	if err := h.courseService.DeleteCourse(r.Context(), domainID, courseID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// enroll godoc
// @Summary Enroll the authenticated user in a course
// @Tags courses
// @Produce json
// @Success 201 {object} dto.EnrollResponseDTO
// @Failure 403 {string} string "Course has ended"
// @Failure 409 {string} string "Already enrolled"
// @Router /d/{domainId}/courses/{courseId}/enroll [post]
func (h *CourseHandler) enroll(w http.ResponseWriter, r *http.Request) {
	domainID := r.PathValue("domainId")
	courseID := r.PathValue("courseId")
	viewer, ok := h.viewerFor(r, domainID)
	if !ok {
		http.Error(w, "Unauthorized: user not found in context", http.StatusUnauthorized)
		return
	}
	// Visibility gate first: enrolling in an invisible course reads as 404.
	if _, err := h.courseService.GetCourse(r.Context(), domainID, courseID, viewer); err != nil {
		writeError(w, err)
		return
	}
	if err := h.enrollService.Enroll(r.Context(), domainID, courseID, viewer.UserID); err != nil {
		writeError(w, err)
		return
	}
	enrollment, _, err := h.enrollService.GetStatus(r.Context(), domainID, courseID, viewer.UserID)
	if err != nil || enrollment == nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.EnrollResponseDTO{
		CourseID:   courseID,
		UserID:     viewer.UserID,
		EnrolledAt: enrollment.EnrolledAt,
	})
}

// getStatus godoc
// @Summary Get the authenticated user's progress in a course
// @Tags courses
// @Produce json
// @Success 200 {object} dto.StatusResponseDTO
// @Router /d/{domainId}/courses/{courseId}/status [get]
func (h *CourseHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	domainID := r.PathValue("domainId")
	courseID := r.PathValue("courseId")
	viewer, ok := h.viewerFor(r, domainID)
	if !ok {
		http.Error(w, "Unauthorized: user not found in context", http.StatusUnauthorized)
		return
	}
	if _, err := h.courseService.GetCourse(r.Context(), domainID, courseID, viewer); err != nil {
		writeError(w, err)
		return
	}

	enrollment, _, err := h.enrollService.GetStatus(r.Context(), domainID, courseID, viewer.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	progress, err := h.progressService.CurrentProgress(r.Context(), domainID, courseID, viewer.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := dto.StatusResponseDTO{Progress: make([]dto.ProgressEntryDTO, 0, len(progress))}
	if enrollment != nil && enrollment.Attend {
		resp.Enrolled = true
		resp.EnrolledAt = &enrollment.EnrolledAt
	}
	for _, p := range progress {
		resp.Progress = append(resp.Progress, dto.ProgressEntryDTO{
			ProblemID: p.ProblemID,
			RecordID:  p.RecordID,
			Score:     p.Score,
			Status:    p.Status,
			Attempted: p.Attempted,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// getScoreboard godoc
// @Summary Get the course scoreboard
// @Tags courses
// @Produce json
// @Success 200 {object} dto.ScoreboardResponseDTO
// @Router /d/{domainId}/courses/{courseId}/scoreboard [get]
func (h *CourseHandler) getScoreboard(w http.ResponseWriter, r *http.Request) {
	domainID := r.PathValue("domainId")
	courseID := r.PathValue("courseId")
	viewer, ok := h.viewerFor(r, domainID)
	if !ok {
		http.Error(w, "Unauthorized: user not found in context", http.StatusUnauthorized)
		return
	}
	course, err := h.courseService.GetCourse(r.Context(), domainID, courseID, viewer)
	if err != nil {
		writeError(w, err)
		return
	}
	rows, err := h.progressService.Scoreboard(r.Context(), domainID, courseID)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := dto.ScoreboardResponseDTO{
		ProblemIDs: course.ProblemIDs,
		Rows:       make([]dto.ScoreboardRowDTO, 0, len(rows)),
	}
	for _, row := range rows {
		resp.Rows = append(resp.Rows, dto.ScoreboardRowDTO{
			UserID: row.UserID,
			Scores: row.Scores,
			Total:  row.Total,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// listRecords godoc
// @Summary List judged submissions for the course's problems
// @Tags courses
// @Produce json
// @Param user query int false "Restrict to one user id"
// @Success 200 {array} dto.RecordSummaryDTO
// @Router /d/{domainId}/courses/{courseId}/records [get]
func (h *CourseHandler) listRecords(w http.ResponseWriter, r *http.Request) {
	domainID := r.PathValue("domainId")
	courseID := r.PathValue("courseId")
	viewer, ok := h.viewerFor(r, domainID)
	if !ok {
		http.Error(w, "Unauthorized: user not found in context", http.StatusUnauthorized)
		return
	}
	course, err := h.courseService.GetCourse(r.Context(), domainID, courseID, viewer)
	if err != nil {
		writeError(w, err)
		return
	}

	var userID *int64
	if raw := r.URL.Query().Get("user"); raw != "" {
		uid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "Invalid user id", http.StatusBadRequest)
			return
		}
		userID = &uid
	}
	limit, offset := pagination(r, 50)

	records, err := h.platformRepo.ListRecords(r.Context(), domainID, course.ProblemIDs, userID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]dto.RecordSummaryDTO, 0, len(records))
	for _, rec := range records {
		resp = append(resp, dto.RecordSummaryDTO{
			RecordID:  rec.RecordID,
			UserID:    rec.UserID,
			ProblemID: rec.ProblemID,
			Score:     rec.Score,
			Status:    rec.Status,
			JudgedAt:  rec.JudgedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// canManage gates course mutations to the owner, maintainers or admins. It
// writes the response itself when access is denied.
func (h *CourseHandler) canManage(w http.ResponseWriter, r *http.Request, domainID, courseID string) bool {
	viewer, ok := h.viewerFor(r, domainID)
	if !ok {
		http.Error(w, "Unauthorized: user not found in context", http.StatusUnauthorized)
		return false
	}
	course, err := h.courseService.GetCourse(r.Context(), domainID, courseID, viewer)
	if err != nil {
		writeError(w, err)
		return false
	}
	if viewer.ViewHidden || course.OwnerID == viewer.UserID {
		return true
	}
	for _, id := range course.MaintainerIDs {
		if id == viewer.UserID {
			return true
		}
	}
	http.Error(w, "Forbidden: not a course maintainer", http.StatusForbidden)
	return false
}

func pagination(r *http.Request, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}
