package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"myfeedsave/models"
)

// GetFriends returns all friends of the caller
func (api *API) GetFriends(w http.ResponseWriter, r *http.Request) {
	userID, ok := accountID(w, r)
	if !ok {
		return
	}

	friends, err := api.Friends.ListFriends(r.Context(), userID)
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"friends": friends})
}

// GetFriendRequests returns the requests waiting for the caller
func (api *API) GetFriendRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := accountID(w, r)
	if !ok {
		return
	}

	requests, err := api.Friends.ListReceivedRequests(r.Context(), userID)
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

// SearchUsers finds other accounts by name or email
func (api *API) SearchUsers(w http.ResponseWriter, r *http.Request) {
	userID, ok := accountID(w, r)
	if !ok {
		return
	}

	users, err := api.Friends.Search(r.Context(), userID, r.URL.Query().Get("q"))
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// SendFriendRequest sends a friend request to the account in the path
func (api *API) SendFriendRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := accountID(w, r)
	if !ok {
		return
	}
	receiverID, ok := pathID(w, r, "receiverId")
	if !ok {
		return
	}

	if err := api.Friends.SendRequest(r.Context(), userID, receiverID); err != nil {
		api.writeError(w, r, err)
		return
	}

	api.Metrics.FriendRequests.WithLabelValues("sent").Inc()
	writeMessage(w, http.StatusOK, "Friend request sent successfully")
}

// AcceptFriendRequest accepts the request from the account in the path
func (api *API) AcceptFriendRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := accountID(w, r)
	if !ok {
		return
	}
	senderID, ok := pathID(w, r, "senderId")
	if !ok {
		return
	}

	if err := api.Friends.AcceptRequest(r.Context(), userID, senderID); err != nil {
		api.writeError(w, r, err)
		return
	}

	api.Metrics.FriendRequests.WithLabelValues("accepted").Inc()
	writeMessage(w, http.StatusOK, "Friend request accepted")
}

// RejectFriendRequest drops the request from the account in the path
func (api *API) RejectFriendRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := accountID(w, r)
	if !ok {
		return
	}
	senderID, ok := pathID(w, r, "senderId")
	if !ok {
		return
	}

	removed, err := api.Friends.RejectRequest(r.Context(), userID, senderID)
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	if !removed {
		writeMessage(w, http.StatusOK, "Friend request removed or already processed")
		return
	}
	api.Metrics.FriendRequests.WithLabelValues("rejected").Inc()
	writeMessage(w, http.StatusOK, "Friend request rejected")
}

// pathID reads an account id path variable, answering 400 when it is not
// a well-formed id
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := mux.Vars(r)[name]
	if !models.ValidID(id) {
		writeMessage(w, http.StatusBadRequest, "Invalid user ID")
		return "", false
	}
	return id, true
}
