package models

import "time"

// Account represents a registered user in the system
type Account struct {
	ID               string    `json:"_id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Mobile           string    `json:"mobile"`
	Password         string    `json:"-"` // Never send password hash in JSON
	ProfilePicture   string    `json:"profilePicture"`
	Friends          []string  `json:"friends"`
	SentRequests     []string  `json:"sentFriendRequests"`
	ReceivedRequests []string  `json:"receivedFriendRequests"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// AccountSummary is the public view of an account used in lists
type AccountSummary struct {
	ID             string `json:"_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profilePicture"`
}

// AccountView is what an account owner gets back from signup and login
type AccountView struct {
	ID             string `json:"_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Mobile         string `json:"mobile"`
	ProfilePicture string `json:"profilePicture"`
}

// AccountUpdate carries the profile fields a caller may change.
// Nil fields are left untouched.
type AccountUpdate struct {
	Name           *string
	Mobile         *string
	ProfilePicture *string
}

// View converts Account to the owner's AccountView
func (a *Account) View() AccountView {
	return AccountView{
		ID:             a.ID,
		Name:           a.Name,
		Email:          a.Email,
		Mobile:         a.Mobile,
		ProfilePicture: a.ProfilePicture,
	}
}

// Normalize replaces nil relationship sets with empty ones so that
// responses always carry JSON arrays.
func (a *Account) Normalize() {
	if a.Friends == nil {
		a.Friends = []string{}
	}
	if a.SentRequests == nil {
		a.SentRequests = []string{}
	}
	if a.ReceivedRequests == nil {
		a.ReceivedRequests = []string{}
	}
}

