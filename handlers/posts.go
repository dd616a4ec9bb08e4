package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"myfeedsave/services"
)

// CreatePost stores a new post with its uploaded media
func (api *API) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := accountID(w, r)
	if !ok {
		return
	}

	f, err := parseForm(w, r, api.PostMedia.MaxSize())
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	defer f.cleanup(r)

	file, err := saveUpload(api.PostMedia, f, "media")
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	isPublic := f.flag("isPublic")
	post, err := api.Posts.Create(r.Context(), userID, services.CreatePostInput{
		Description: f.get("description"),
		MediaKind:   file.mediaKind(),
		MediaRef:    file.fileName(),
		IsPublic:    isPublic != nil && *isPublic,
	})
	if err != nil {
		file.discard(api.Log)
		api.writeError(w, r, err)
		return
	}

	api.Metrics.PostsCreated.Inc()
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Post created successfully",
		"post":    post,
	})
}

// GetPosts returns the caller's posts, newest first
func (api *API) GetPosts(w http.ResponseWriter, r *http.Request) {
	userID, ok := accountID(w, r)
	if !ok {
		return
	}

	posts, err := api.Posts.ListByOwner(r.Context(), userID)
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

// UpdatePost changes the description, visibility or media of a post
func (api *API) UpdatePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := accountID(w, r)
	if !ok {
		return
	}
	postID := mux.Vars(r)["postId"]

	f, err := parseForm(w, r, api.PostMedia.MaxSize())
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	defer f.cleanup(r)

	file, err := saveUpload(api.PostMedia, f, "media")
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	in := services.UpdatePostInput{
		IsPublic:  f.flag("isPublic"),
		MediaKind: file.mediaKind(),
		MediaRef:  file.fileName(),
	}
	if f.has("description") {
		d := f.get("description")
		in.Description = &d
	}

	post, err := api.Posts.Update(r.Context(), userID, postID, in)
	if err != nil {
		file.discard(api.Log)
		api.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Post updated successfully",
		"post":    post,
	})
}

// DeletePost removes one of the caller's posts
func (api *API) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := accountID(w, r)
	if !ok {
		return
	}
	if err := api.Posts.Delete(r.Context(), userID, mux.Vars(r)["postId"]); err != nil {
		api.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Post deleted successfully")
}
