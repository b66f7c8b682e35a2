// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package orchestrator runs one user submission end to end.
//
// A submission may carry text, an image, or both. Text is sent to the
// language model endpoint and image bytes to the waste classifier. Each
// branch appends the user's entry, waits for the backend, builds an answer
// payload and reveals it before the next branch starts. Backend failures
// never surface as errors; they become fixed fallback replies.
//
// Only one submission runs at a time. A second Submit while one is in
// flight returns ErrBusy.
package orchestrator
