package model

import (
	"strings"
	"time"

	"ai-image-studio/internal/domain"
)

// User is the stable identity behind every subscription, payment and training job.
type User struct {
	ID             string // UUID
	ExternalAuthID string // subject of the identity provider token
	Email          string
	DisplayName    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewUser builds a user on first sign-in.
func NewUser(id, externalAuthID, email, displayName string) (*User, error) {
	if id == "" || strings.TrimSpace(externalAuthID) == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now().UTC()
	return &User{
		ID:             id,
		ExternalAuthID: externalAuthID,
		Email:          NormalizeEmail(email),
		DisplayName:    strings.TrimSpace(displayName),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// UpdateProfile changes the mutable profile fields and reports whether anything changed.
func (u *User) UpdateProfile(email, displayName string) bool {
	email = NormalizeEmail(email)
	displayName = strings.TrimSpace(displayName)
	changed := false
	if email != "" && email != u.Email {
		u.Email = email
		changed = true
	}
	if displayName != "" && displayName != u.DisplayName {
		u.DisplayName = displayName
		changed = true
	}
	if changed {
		u.UpdatedAt = time.Now().UTC()
	}
	return changed
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
