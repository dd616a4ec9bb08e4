package handlers

import (
	"net/http"

	"myfeedsave/services"
)

// Signup handles account registration
func (api *API) Signup(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(w, r, api.Pictures.MaxSize())
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	defer f.cleanup(r)

	picture, err := saveUpload(api.Pictures, f, "profilePicture")
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	account, err := api.Accounts.Register(r.Context(), services.RegisterInput{
		Name:           f.get("name"),
		Email:          f.get("email"),
		Mobile:         f.get("mobile"),
		Password:       f.get("password"),
		ProfilePicture: picture.fileName(),
	})
	if err != nil {
		picture.discard(api.Log)
		api.writeError(w, r, err)
		return
	}

	api.Metrics.Registrations.Inc()
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"user":    account.View(),
	})
}

// Login handles authentication and returns a bearer token
func (api *API) Login(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(w, r, 0)
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	res, err := api.Accounts.Login(r.Context(), f.get("email"), f.get("password"))
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": res.Token,
		"user":  res.Account.View(),
	})
}

// GetProfile returns the caller's account
func (api *API) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := accountID(w, r)
	if !ok {
		return
	}

	account, err := api.Accounts.GetProfile(r.Context(), userID)
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": account})
}

// UpdateProfile changes the caller's name, mobile or picture
func (api *API) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := accountID(w, r)
	if !ok {
		return
	}

	f, err := parseForm(w, r, api.Pictures.MaxSize())
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	defer f.cleanup(r)

	picture, err := saveUpload(api.Pictures, f, "profilePicture")
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	account, err := api.Accounts.UpdateProfile(r.Context(), userID, services.ProfileInput{
		Name:           f.get("name"),
		Mobile:         f.get("mobile"),
		ProfilePicture: picture.fileName(),
	})
	if err != nil {
		picture.discard(api.Log)
		api.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Profile updated successfully",
		"user":    account,
	})
}

// DeleteProfile removes the caller's account and everything it owns
func (api *API) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := accountID(w, r)
	if !ok {
		return
	}

	if err := api.Accounts.DeleteProfile(r.Context(), userID); err != nil {
		api.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Account deleted successfully")
}
