package dto

import "time"

// FileDTO is one course attachment's metadata
type FileDTO struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	Etag         string    `json:"etag"`
}

// FileListResponseDTO wraps a course's attachment list
type FileListResponseDTO struct {
	Files []FileDTO `json:"files"`
}

// FileDeleteDTO names the attachments to remove
type FileDeleteDTO struct {
	Names []string `json:"names" validate:"required,min=1"`
}

// SignedURLResponseDTO carries a short-lived download URL
type SignedURLResponseDTO struct {
	URL string `json:"url"`
}
