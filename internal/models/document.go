package models

// Document is an uploaded file as described by the assistant API.
type Document struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Path       string `json:"path,omitempty"`
	Size       int64  `json:"size"`
	Type       string `json:"type"`
	UploadDate string `json:"uploadDate"`
	Content    string `json:"content,omitempty"`
}
