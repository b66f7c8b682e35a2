// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"errors"
)

// Identity is the user record returned by the backend.
//
// The backend names the id "id" in most payloads and "user_id" in the
// login and verification responses; both decode into ID.
type Identity struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	IsVerified bool   `json:"is_verified,omitempty"`
	IsAdmin    bool   `json:"is_admin,omitempty"`
}

// UnmarshalJSON accepts either "id" or "user_id".
func (i *Identity) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID         string `json:"id"`
		UserID     string `json:"user_id"`
		Name       string `json:"name"`
		Email      string `json:"email"`
		IsVerified bool   `json:"is_verified"`
		IsAdmin    bool   `json:"is_admin"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.ID == "" {
		raw.ID = raw.UserID
	}
	*i = Identity{
		ID:         raw.ID,
		Name:       raw.Name,
		Email:      raw.Email,
		IsVerified: raw.IsVerified,
		IsAdmin:    raw.IsAdmin,
	}
	return nil
}

// DisplayName returns the name, falling back to the email, then the id.
func (i Identity) DisplayName() string {
	switch {
	case i.Name != "":
		return i.Name
	case i.Email != "":
		return i.Email
	default:
		return i.ID
	}
}

// Session is one authenticated identity and its bearer token.
type Session struct {
	User  Identity
	Token string
}

// UserID returns the identity's id.
func (s Session) UserID() string {
	return s.User.ID
}

var errNullIdentity = errors.New("identity is null")

// decodeIdentity parses the persisted user record.
func decodeIdentity(data string) (Identity, error) {
	if data == "null" {
		return Identity{}, errNullIdentity
	}
	var id Identity
	if err := json.Unmarshal([]byte(data), &id); err != nil {
		return Identity{}, err
	}
	return id, nil
}
