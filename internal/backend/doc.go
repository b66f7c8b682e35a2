// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend wraps the classification backend's HTTP endpoints.
//
// Every call goes through a gateway.Client and is bounded by the
// configured timeout (uploads get their own, longer one). Errors are the
// gateway's *ClientError values, plus ErrInvalidFeedback for input
// rejected before any request is made.
//
// # Endpoints
//
//   - auth:     /auth/login, /auth/register, /auth/verify-email,
//     /auth/google-login, /auth/microsoft-login, /auth/forgot-password,
//     /auth/reset-password, /auth/me
//   - nlp:      /nlp/predict
//   - waste:    /waste/classify (multipart field "file")
//   - feedback: /feedback, /feedback/all, /feedback/{id}
package backend
