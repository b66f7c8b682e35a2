// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"unicode/utf8"

	"github.com/ecosort/ecosort-tui/internal/gateway"
)

// Feedback limits enforced by the backend and checked before sending.
const (
	MinRating        = 1
	MaxRating        = 5
	MaxFeedbackRunes = 2500
)

// ErrInvalidFeedback is returned for input rejected before any request.
var ErrInvalidFeedback = errors.New("invalid feedback")

// Feedback is one stored rating.
type Feedback struct {
	ID       string  `json:"id"`
	UserID   string  `json:"user_id,omitempty"`
	UserName string  `json:"user_name,omitempty"`
	Rating   float64 `json:"rating"`
	Text     string  `json:"feedback_text"`

	// Timestamp is kept as sent; the backend omits the zone offset.
	Timestamp string `json:"timestamp"`
}

// ValidateFeedback checks rating and text against the backend limits.
func ValidateFeedback(rating float64, text string) error {
	if rating < MinRating || rating > MaxRating {
		return fmt.Errorf("%w: rating must be between %d and %d", ErrInvalidFeedback, MinRating, MaxRating)
	}
	if n := utf8.RuneCountInString(text); n > MaxFeedbackRunes {
		return fmt.Errorf("%w: text is %d characters, limit is %d", ErrInvalidFeedback, n, MaxFeedbackRunes)
	}
	return nil
}

// SubmitFeedback stores a rating for the signed-in user.
func (c *Client) SubmitFeedback(ctx context.Context, rating float64, text string) (Feedback, error) {
	if err := ValidateFeedback(rating, text); err != nil {
		return Feedback{}, err
	}
	req := struct {
		Rating float64 `json:"rating"`
		Text   string  `json:"feedback_text,omitempty"`
	}{rating, text}

	var fb Feedback
	if err := c.post(ctx, "/feedback", req, &fb, true); err != nil {
		return Feedback{}, err
	}
	return fb, nil
}

// ListFeedback returns the signed-in user's feedback.
func (c *Client) ListFeedback(ctx context.Context) ([]Feedback, error) {
	var out []Feedback
	if err := c.get(ctx, "/feedback", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAllFeedback returns every user's feedback, newest first.
func (c *Client) ListAllFeedback(ctx context.Context) ([]Feedback, error) {
	var out []Feedback
	if err := c.get(ctx, "/feedback/all", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteFeedback removes one feedback entry by id.
func (c *Client) DeleteFeedback(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidFeedback)
	}
	ctx, cancel := c.withTimeout(ctx, false)
	defer cancel()
	return c.gw.Do(ctx, gateway.Request{
		Method:     http.MethodDelete,
		Path:       "/feedback/" + url.PathEscape(id),
		Authorized: true,
	}, nil)
}
