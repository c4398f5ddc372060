package domain

import "time"

// Document is an uploaded reference document in the shared knowledge base.
// Documents are created on upload and never updated or deleted.
type Document struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Content    string    `json:"content"`
	Analysis   string    `json:"analysis"`
	Token      string    `json:"uploaded_at"`
	UploadedAt time.Time `json:"-"`
}
