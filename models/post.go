package models

import "time"

// MediaKind is the type of file attached to a post
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Valid reports whether k is a known media kind
func (k MediaKind) Valid() bool {
	return k == MediaImage || k == MediaVideo
}

// Post represents a media post owned by one account
type Post struct {
	ID          string    `json:"_id"`
	OwnerID     string    `json:"userId"`
	Description string    `json:"description"`
	MediaKind   MediaKind `json:"mediaType"`
	MediaRef    string    `json:"mediaUrl"`
	IsPublic    bool      `json:"isPublic"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PostUpdate carries the post fields an owner may change.
// Nil fields are left untouched.
type PostUpdate struct {
	Description *string
	IsPublic    *bool
	MediaKind   MediaKind
	MediaRef    string
}
