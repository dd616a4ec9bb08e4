package services

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"myfeedsave/database"
	"myfeedsave/models"
)

// CreatePostInput is a new post whose media file is already stored
type CreatePostInput struct {
	Description string           `validate:"required,max=2000"`
	MediaKind   models.MediaKind `validate:"required,oneof=image video"`
	MediaRef    string           `validate:"required"`
	IsPublic    bool
}

// UpdatePostInput changes a post. Nil fields and an empty description are
// left untouched; MediaRef replaces the media when set.
type UpdatePostInput struct {
	Description *string
	IsPublic    *bool
	MediaKind   models.MediaKind
	MediaRef    string
}

// Posts manages the caller's media posts
type Posts struct {
	store database.Store
	media MediaRemover
	log   logrus.FieldLogger
}

func NewPosts(store database.Store, media MediaRemover, log logrus.FieldLogger) *Posts {
	return &Posts{store: store, media: media, log: log}
}

// Create stores a post owned by ownerID
func (s *Posts) Create(ctx context.Context, ownerID string, in CreatePostInput) (*models.Post, error) {
	in.Description = strings.TrimSpace(in.Description)
	if in.MediaRef == "" {
		return nil, newError(ValidationError, "No media file uploaded")
	}
	if err := checkInput(in); err != nil {
		return nil, err
	}

	post := &models.Post{
		OwnerID:     ownerID,
		Description: in.Description,
		MediaKind:   in.MediaKind,
		MediaRef:    in.MediaRef,
		IsPublic:    in.IsPublic,
	}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, serverError("Failed to create post", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": ownerID, "post_id": post.ID}).Info("Post created")
	return post, nil
}

// ListByOwner returns ownerID's posts, newest first
func (s *Posts) ListByOwner(ctx context.Context, ownerID string) ([]models.Post, error) {
	posts, err := s.store.GetPostsByOwner(ctx, ownerID)
	if err != nil {
		return nil, serverError("Failed to fetch posts", err)
	}
	return posts, nil
}

// Update changes a post owned by ownerID. Replaced media is removed from
// disk afterwards.
func (s *Posts) Update(ctx context.Context, ownerID, postID string, in UpdatePostInput) (*models.Post, error) {
	existing, err := s.owned(ctx, ownerID, postID)
	if err != nil {
		return nil, err
	}

	var update models.PostUpdate
	if in.Description != nil {
		if d := strings.TrimSpace(*in.Description); d != "" {
			update.Description = &d
		}
	}
	update.IsPublic = in.IsPublic
	if in.MediaRef != "" {
		if !in.MediaKind.Valid() {
			return nil, newError(ValidationError, "Validation failed: mediaType must be one of: image video")
		}
		update.MediaKind = in.MediaKind
		update.MediaRef = in.MediaRef
	}

	post, err := s.store.UpdatePost(ctx, ownerID, postID, update)
	if errors.Is(err, database.ErrNotFound) {
		return nil, newError(NotFound, "Post not found or unauthorized")
	}
	if err != nil {
		return nil, serverError("Failed to update post", err)
	}

	if in.MediaRef != "" && existing.MediaRef != in.MediaRef {
		removeBestEffort(s.log, s.media, existing.MediaRef)
	}
	return post, nil
}

// Delete removes a post owned by ownerID and then its media file
func (s *Posts) Delete(ctx context.Context, ownerID, postID string) error {
	existing, err := s.owned(ctx, ownerID, postID)
	if err != nil {
		return err
	}

	err = s.store.DeletePost(ctx, ownerID, postID)
	if errors.Is(err, database.ErrNotFound) {
		return newError(NotFound, "Post not found or unauthorized")
	}
	if err != nil {
		return serverError("Failed to delete post", err)
	}

	removeBestEffort(s.log, s.media, existing.MediaRef)
	s.log.WithFields(logrus.Fields{"user_id": ownerID, "post_id": postID}).Info("Post deleted")
	return nil
}

func (s *Posts) owned(ctx context.Context, ownerID, postID string) (*models.Post, error) {
	post, err := s.store.GetPost(ctx, ownerID, postID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, newError(NotFound, "Post not found or unauthorized")
	}
	if err != nil {
		return nil, serverError("Failed to load post", err)
	}
	return post, nil
}
