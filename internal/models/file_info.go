package models

import "time"

// Spooled upload statuses.
const (
	FileStatusSpooled   = "spooled"
	FileStatusIngesting = "ingesting"
	FileStatusIngested  = "ingested"
	FileStatusError     = "error"
)

// FileInfo represents metadata about a spooled upload.
type FileInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
	Status     string    `json:"status"`
}

// Clone returns a copy that can be handed out without sharing the original.
func (f *FileInfo) Clone() *FileInfo {
	c := *f
	return &c
}
