// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway provides the authorized HTTP client shared by every
// backend call.
//
// The session package pushes the current bearer token into the Client
// (SetAuthToken / ClearAuthToken). Requests flagged Authorized carry it as
// "Authorization: Bearer <token>" and are refused locally with
// ErrUnauthenticated while no token is installed.
//
// Failures are returned as *ClientError with an ErrorType:
//
//	err := gw.Post(ctx, "/nlp/predict", req, &resp, true)
//	switch {
//	case gateway.IsUnauthenticated(err): // no session
//	case gateway.IsUnauthorized(err):    // 401/403
//	case gateway.IsTimeout(err):
//	}
//
// Every request is rate limited (golang.org/x/time/rate) and tagged with
// an X-Request-ID (github.com/google/uuid). Headers and bodies are never
// logged.
package gateway
