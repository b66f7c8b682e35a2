// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ecosort/ecosort-tui/internal/gateway"
	"github.com/ecosort/ecosort-tui/internal/session"
)

// =============================================================================
// AUTH TYPES
// =============================================================================

// AuthResult is the identity and token pair returned by a successful
// authentication. It is what session.Store.Login takes.
type AuthResult struct {
	User  session.Identity
	Token string
}

// RegisterResult describes a new account awaiting verification.
type RegisterResult struct {
	Message string
	User    session.Identity
}

// tokenResponse covers login, google-login and microsoft-login.
type tokenResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Token   string           `json:"token"`
	User    session.Identity `json:"user"`
}

type verifyResponse struct {
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// errMissingToken is returned when a 2xx auth response lacks credentials.
var errMissingToken = &gateway.ClientError{
	Type:    gateway.ErrTypeInvalidResponse,
	Message: "response is missing the access token or user id",
}

// =============================================================================
// AUTH OPERATIONS
// =============================================================================

// Login exchanges an email and password for a session.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	req := map[string]string{
		"email":    strings.TrimSpace(strings.ToLower(email)),
		"password": password,
	}
	return c.tokenExchange(ctx, "/auth/login", req)
}

// GoogleLogin exchanges a Google ID token for a session.
func (c *Client) GoogleLogin(ctx context.Context, idToken string) (AuthResult, error) {
	return c.tokenExchange(ctx, "/auth/google-login", map[string]string{"token": idToken})
}

// MicrosoftLogin exchanges a Microsoft access token for a session.
func (c *Client) MicrosoftLogin(ctx context.Context, accessToken string) (AuthResult, error) {
	return c.tokenExchange(ctx, "/auth/microsoft-login", map[string]string{"token": accessToken})
}

func (c *Client) tokenExchange(ctx context.Context, path string, req any) (AuthResult, error) {
	var resp tokenResponse
	if err := c.post(ctx, path, req, &resp, false); err != nil {
		return AuthResult{}, err
	}
	if resp.Token == "" {
		return AuthResult{}, errMissingToken
	}
	c.log.Debug("authenticated", zap.String("path", path), zap.String("user_id", resp.User.ID))
	return AuthResult{User: resp.User, Token: resp.Token}, nil
}

// Register creates an account. The backend emails a verification code;
// no session is started until VerifyEmail succeeds.
func (c *Client) Register(ctx context.Context, name, email, password string) (RegisterResult, error) {
	req := map[string]string{
		"name":     strings.TrimSpace(name),
		"email":    strings.TrimSpace(strings.ToLower(email)),
		"password": password,
	}
	var resp tokenResponse
	if err := c.post(ctx, "/auth/register", req, &resp, false); err != nil {
		return RegisterResult{}, err
	}
	return RegisterResult{Message: resp.Message, User: resp.User}, nil
}

// VerifyEmail submits the emailed code and returns the resulting session.
func (c *Client) VerifyEmail(ctx context.Context, email, code string) (AuthResult, error) {
	req := map[string]string{
		"email": strings.TrimSpace(email),
		"code":  strings.TrimSpace(code),
	}
	var resp verifyResponse
	if err := c.post(ctx, "/auth/verify-email", req, &resp, false); err != nil {
		return AuthResult{}, err
	}
	if resp.AccessToken == "" || resp.UserID == "" {
		return AuthResult{}, errMissingToken
	}
	return AuthResult{
		User:  session.Identity{ID: resp.UserID, Email: resp.Email, IsVerified: true},
		Token: resp.AccessToken,
	}, nil
}

// ForgotPassword asks the backend to email a reset token.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var resp messageResponse
	err := c.post(ctx, "/auth/forgot-password",
		map[string]string{"email": strings.TrimSpace(strings.ToLower(email))}, &resp, false)
	return resp.Message, err
}

// ResetPassword sets a new password using an emailed reset token.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	var resp messageResponse
	err := c.post(ctx, "/auth/reset-password",
		map[string]string{"token": strings.TrimSpace(token), "new_password": newPassword}, &resp, false)
	return resp.Message, err
}

// Me fetches the signed-in user's profile.
func (c *Client) Me(ctx context.Context) (session.Identity, error) {
	var id session.Identity
	if err := c.get(ctx, "/auth/me", &id); err != nil {
		return session.Identity{}, err
	}
	return id, nil
}
