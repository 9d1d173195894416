package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"app/internal/errdefs"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/service"

	"github.com/rs/zerolog"
)

// viewerFrom builds the visibility identity for the authenticated user,
// resolving group memberships from the host platform. Group resolution
// failures degrade to an empty group set rather than failing the request.
func viewerFrom(r *http.Request, domainID string, platformRepo repository.PlatformRepository, logger zerolog.Logger) (service.Viewer, bool) {
	uid, ok := middleware.UserID(r.Context())
	if !ok {
		return service.Viewer{}, false
	}
	groups, err := platformRepo.GroupsForUser(r.Context(), domainID, uid)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", uid).Msg("Failed to resolve viewer groups")
		groups = nil
	}
	return service.Viewer{
		UserID:      uid,
		Groups:      groups,
		ViewHidden:  middleware.Role(r.Context()) == "admin",
		GroupFilter: r.URL.Query().Get("group"),
	}, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError maps the service error taxonomy onto HTTP statuses. Internal
// store/blob errors stay opaque to the client.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errdefs.ErrCourseNotFound), errors.Is(err, errdefs.ErrFileNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, errdefs.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, errdefs.ErrAlreadyEnrolled):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, errdefs.ErrCourseEnded):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, errdefs.ErrQuotaExceeded):
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
	case errors.Is(err, errdefs.ErrUploadFailure):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
