package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SendMessage sends a direct message to a friend
func (api *API) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := accountID(w, r)
	if !ok {
		return
	}

	f, err := parseForm(w, r, 0)
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	msg, err := api.Messages.Send(r.Context(), userID, f.get("receiverId"), f.get("content"))
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	api.Metrics.MessagesSent.Inc()
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Message sent successfully",
		"data":    msg,
	})
}

// GetConversation returns the messages exchanged with another account and
// marks the ones addressed to the caller as read
func (api *API) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := accountID(w, r)
	if !ok {
		return
	}

	msgs, err := api.Messages.GetConversation(r.Context(), userID, mux.Vars(r)["otherUserId"])
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

// GetConversations returns one summary per conversation of the caller
func (api *API) GetConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := accountID(w, r)
	if !ok {
		return
	}

	conversations, err := api.Messages.ListConversations(r.Context(), userID)
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}
