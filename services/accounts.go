package services

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"myfeedsave/auth"
	"myfeedsave/database"
	"myfeedsave/models"
)

// RegisterInput is the signup form
type RegisterInput struct {
	Name           string `validate:"required,max=100"`
	Email          string `validate:"required,email"`
	Mobile         string `validate:"omitempty,max=32"`
	Password       string `validate:"required,min=6"`
	ProfilePicture string
}

// ProfileInput is a partial profile update. Empty values are ignored.
type ProfileInput struct {
	Name           string `validate:"omitempty,max=100"`
	Mobile         string `validate:"omitempty,max=32"`
	ProfilePicture string
}

// LoginResult is a fresh bearer token and the account it belongs to
type LoginResult struct {
	Token   string
	Account *models.Account
}

// Accounts handles signup, login and the caller's own profile
type Accounts struct {
	store     database.Store
	tokens    *auth.Tokens
	pictures  MediaRemover
	postMedia MediaRemover
	log       logrus.FieldLogger
}

func NewAccounts(store database.Store, tokens *auth.Tokens, pictures, postMedia MediaRemover, log logrus.FieldLogger) *Accounts {
	return &Accounts{store: store, tokens: tokens, pictures: pictures, postMedia: postMedia, log: log}
}

// Register creates a new account
func (s *Accounts) Register(ctx context.Context, in RegisterInput) (*models.Account, error) {
	// Validate input
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Mobile = strings.TrimSpace(in.Mobile)
	if err := checkInput(in); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, serverError("Registration failed", err)
	}

	account := &models.Account{
		Name:           in.Name,
		Email:          in.Email,
		Mobile:         in.Mobile,
		Password:       hash,
		ProfilePicture: in.ProfilePicture,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			return nil, newError(Conflict, "User already exists")
		}
		return nil, serverError("Registration failed", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": account.ID}).Info("Account registered")
	account.Normalize()
	return account, nil
}

// Login checks the credentials and issues a token
func (s *Accounts) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, newError(InvalidCredentials, "Invalid credentials")
	}

	account, err := s.store.GetAccountByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		return nil, newError(InvalidCredentials, "Invalid credentials")
	}
	if err != nil {
		return nil, serverError("Login failed", err)
	}

	if !auth.CheckPassword(password, account.Password) {
		return nil, newError(InvalidCredentials, "Invalid credentials")
	}

	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, serverError("Login failed", err)
	}
	account.Normalize()
	return &LoginResult{Token: token, Account: account}, nil
}

// GetProfile returns the account with the given id
func (s *Accounts) GetProfile(ctx context.Context, id string) (*models.Account, error) {
	account, err := s.store.GetAccountByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, newError(NotFound, "User not found")
	}
	if err != nil {
		return nil, serverError("Failed to load profile", err)
	}
	account.Normalize()
	return account, nil
}

// UpdateProfile applies the non-empty fields of in. A new picture replaces
// the old one, whose file is removed afterwards.
func (s *Accounts) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*models.Account, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Mobile = strings.TrimSpace(in.Mobile)
	if err := checkInput(in); err != nil {
		return nil, err
	}

	current, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	var update models.AccountUpdate
	if in.Name != "" {
		update.Name = &in.Name
	}
	if in.Mobile != "" {
		update.Mobile = &in.Mobile
	}
	if in.ProfilePicture != "" {
		update.ProfilePicture = &in.ProfilePicture
	}

	account, err := s.store.UpdateAccount(ctx, id, update)
	if errors.Is(err, database.ErrNotFound) {
		return nil, newError(NotFound, "User not found")
	}
	if err != nil {
		return nil, serverError("Failed to update profile", err)
	}

	if in.ProfilePicture != "" && current.ProfilePicture != "" && current.ProfilePicture != in.ProfilePicture {
		removeBestEffort(s.log, s.pictures, current.ProfilePicture)
	}
	account.Normalize()
	return account, nil
}

// DeleteProfile removes the account together with its posts, its messages
// and every reference other accounts hold to it
func (s *Accounts) DeleteProfile(ctx context.Context, id string) error {
	account, err := s.GetProfile(ctx, id)
	if err != nil {
		return err
	}

	// Collect media before the rows are gone
	posts, err := s.store.GetPostsByOwner(ctx, id)
	if err != nil {
		return serverError("Failed to delete account", err)
	}

	if err := s.store.DeleteAccount(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return newError(NotFound, "User not found")
		}
		return serverError("Failed to delete account", err)
	}

	for _, p := range posts {
		removeBestEffort(s.log, s.postMedia, p.MediaRef)
	}
	if account.ProfilePicture != "" {
		removeBestEffort(s.log, s.pictures, account.ProfilePicture)
	}

	s.log.WithFields(logrus.Fields{"user_id": id, "posts": len(posts)}).Info("Account deleted")
	return nil
}

// removeBestEffort deletes a stored file and only logs a failure
func removeBestEffort(log logrus.FieldLogger, files MediaRemover, name string) {
	if files == nil || name == "" {
		return
	}
	if err := files.Remove(name); err != nil {
		log.WithError(err).WithField("file", name).Warn("Failed to remove media file")
	}
}
