package model

import "time"

// Document represents one uploaded object.
// This is a pure domain model with no database-specific dependencies or tags.
// OwnerID is fixed at creation; there are no update operations.
// StoragePath is the object key and is never serialized to clients.
type Document struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	OriginalName string    `json:"original_name"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	StoragePath  string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// OwnedBy reports whether subject uploaded the document.
func (d *Document) OwnedBy(subject string) bool {
	return d != nil && subject != "" && d.OwnerID == subject
}
