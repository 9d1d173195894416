package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/repository"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// FileHandler handles course attachment endpoints
type FileHandler struct {
	fileService   service.FileService
	courseService service.CourseService
	platformRepo  repository.PlatformRepository
	validate      *validator.Validate
	logger        zerolog.Logger
}

// NewFileHandler creates a new FileHandler
func NewFileHandler(
	fileService service.FileService,
	courseService service.CourseService,
	platformRepo repository.PlatformRepository,
	validate *validator.Validate,
	logger zerolog.Logger,
) *FileHandler {
	return &FileHandler{
		fileService:   fileService,
		courseService: courseService,
		platformRepo:  platformRepo,
		validate:      validate,
		logger:        logger.With().Str("handler", "FileHandler").Logger(),
	}
}

// RegisterRoutes mounts attachment routes
func (h *FileHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("GET /d/{domainId}/courses/{courseId}/files", authMw(http.HandlerFunc(h.listFiles)))
	mux.Handle("POST /d/{domainId}/courses/{courseId}/files", authMw(http.HandlerFunc(h.uploadFile)))
	mux.Handle("DELETE /d/{domainId}/courses/{courseId}/files", authMw(http.HandlerFunc(h.deleteFiles)))
	mux.Handle("GET /d/{domainId}/courses/{courseId}/files/{name}/url", authMw(http.HandlerFunc(h.signDownload)))
}

// gate enforces course visibility for the file endpoints; an invisible
// course reads as 404 here like everywhere else.
func (h *FileHandler) gate(w http.ResponseWriter, r *http.Request) bool {
	domainID := r.PathValue("domainId")
	viewer, ok := viewerFrom(r, domainID, h.platformRepo, h.logger)
	if !ok {
		http.Error(w, "Unauthorized: user not found in context", http.StatusUnauthorized)
		return false
	}
	if _, err := h.courseService.GetCourse(r.Context(), domainID, r.PathValue("courseId"), viewer); err != nil {
		writeError(w, err)
		return false
	}
	return true
}

// listFiles godoc
// @Summary List course attachments
// @Tags files
// @Produce json
// @Success 200 {object} dto.FileListResponseDTO
// @Router /d/{domainId}/courses/{courseId}/files [get]
func (h *FileHandler) listFiles(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r) {
		return
	}
	files, err := h.fileService.ListFiles(r.Context(), r.PathValue("domainId"), r.PathValue("courseId"))
	if err != nil {
		writeError(w, err)
		return
	}
	resp := dto.FileListResponseDTO{Files: make([]dto.FileDTO, 0, len(files))}
	for _, f := range files {
		resp.Files = append(resp.Files, dto.FileDTO{
			Name:         f.Name,
			Size:         f.Size,
			LastModified: f.LastModified,
			Etag:         f.Etag,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// uploadFile godoc
// @Summary Upload a course attachment
// @Tags files
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File to upload"
// @Success 201 {object} dto.FileDTO
// @Failure 413 {string} string "Attachment quota exceeded"
// @Router /d/{domainId}/courses/{courseId}/files [post]
func (h *FileHandler) uploadFile(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r) {
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file field: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	attachment, err := h.fileService.Upload(
		r.Context(),
		r.PathValue("domainId"),
		r.PathValue("courseId"),
		name,
		header.Size,
		header.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.FileDTO{
		Name:         attachment.Name,
		Size:         attachment.Size,
		LastModified: attachment.LastModified,
		Etag:         attachment.Etag,
	})
}

// deleteFiles godoc
// @Summary Delete course attachments
// @Tags files
// @Accept json
// @Param names body dto.FileDeleteDTO true "Attachment names to remove"
// @Success 204 {string} string "No Content"
// @Router /d/{domainId}/courses/{courseId}/files [delete]
func (h *FileHandler) deleteFiles(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r) {
		return
	}
	var req dto.FileDeleteDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.fileService.DeleteFiles(r.Context(), r.PathValue("domainId"), r.PathValue("courseId"), req.Names); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// signDownload godoc
// @Summary Get a short-lived download URL for an attachment
// @Tags files
// @Produce json
// @Param inline query bool false "Serve inline instead of as attachment"
// @Success 200 {object} dto.SignedURLResponseDTO
// @Router /d/{domainId}/courses/{courseId}/files/{name}/url [get]
func (h *FileHandler) signDownload(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r) {
		return
	}
	inline := r.URL.Query().Get("inline") == "true"
	url, err := h.fileService.SignDownload(
		r.Context(),
		r.PathValue("domainId"),
		r.PathValue("courseId"),
		r.PathValue("name"),
		inline,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SignedURLResponseDTO{URL: url})
}
