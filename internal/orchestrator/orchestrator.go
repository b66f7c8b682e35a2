// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/ecosort/ecosort-tui/internal/answer"
	"github.com/ecosort/ecosort-tui/internal/backend"
	"github.com/ecosort/ecosort-tui/internal/logging"
	"github.com/ecosort/ecosort-tui/internal/transcript"
)

// Errors returned by Submit.
var (
	ErrEmptySubmission = errors.New("nothing to send: enter a message or attach an image")
	ErrBusy            = errors.New("a previous message is still being answered")
)

// =============================================================================
// INTERFACES
// =============================================================================

// Backend is the subset of backend.Client the orchestrator calls.
type Backend interface {
	Predict(ctx context.Context, text string) (backend.Prediction, error)
	Classify(ctx context.Context, img backend.Image) (backend.ClassifyResult, error)
}

// Revealer streams a payload and commits it.
type Revealer interface {
	Reveal(ctx context.Context, p answer.Payload) (transcript.Entry, error)
}

// Submission is one send from the chat surface.
type Submission struct {
	Text  string
	Image *Upload
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator composes the text and image branches of a submission.
type Orchestrator struct {
	api Backend
	tr  *transcript.Transcript
	rv  Revealer
	log *zap.Logger

	busy atomic.Bool
}

// New creates an orchestrator. Replies are revealed by rv into tr.
func New(api Backend, tr *transcript.Transcript, rv Revealer, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		api: api,
		tr:  tr,
		rv:  rv,
		log: logging.OrNop(logger).Named("orchestrator"),
	}
}

// Busy reports whether a submission is in flight.
func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}

// Normalize applies the text cleanup Submit uses: NFC then trim.
func Normalize(text string) string {
	return strings.TrimSpace(norm.NFC.String(text))
}

// Submit runs the submission to completion. It returns ErrEmptySubmission
// or ErrBusy before doing anything, or the context error if ctx ends while
// a reply is being revealed. Backend failures are answered in the
// transcript instead.
func (o *Orchestrator) Submit(ctx context.Context, s Submission) error {
	text := Normalize(s.Text)
	img := s.Image
	if img != nil && len(img.Data) == 0 {
		img = nil
	}
	if text == "" && img == nil {
		return ErrEmptySubmission
	}
	if !o.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer o.busy.Store(false)

	if text != "" {
		o.tr.Append(transcript.Entry{Author: transcript.User, Text: text})
		if _, err := o.rv.Reveal(ctx, o.ask(ctx, text)); err != nil {
			return err
		}
	}

	if img != nil {
		o.tr.Append(transcript.Entry{Author: transcript.User, Image: img.Ref()})
		if _, err := o.rv.Reveal(ctx, o.classify(ctx, img)); err != nil {
			return err
		}
	}
	return nil
}

// ask resolves the text branch to a payload. It never retries.
func (o *Orchestrator) ask(ctx context.Context, text string) answer.Payload {
	pred, err := o.api.Predict(ctx, text)
	if err != nil {
		o.log.Warn("text query failed", zap.Error(err))
		return answer.Fallback(answer.TextQueryFailed)
	}
	return answer.FromText(pred.Response)
}

// classify resolves the image branch to a payload.
func (o *Orchestrator) classify(ctx context.Context, img *Upload) answer.Payload {
	res, err := o.api.Classify(ctx, img.backendImage())
	if err != nil {
		o.log.Warn("classification failed", zap.String("file", img.Name), zap.Error(err))
		return answer.Fallback(answer.ClassifyFailed)
	}
	if len(res.Classification) == 0 {
		o.log.Info("classification returned no results", zap.String("file", img.Name))
	}
	return answer.FromClassification(res)
}
