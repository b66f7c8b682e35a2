// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ecosort/ecosort-tui/internal/gateway"
	"github.com/ecosort/ecosort-tui/internal/logging"
)

// Options configures a Client. Zero durations take the defaults.
type Options struct {
	RequestTimeout time.Duration
	UploadTimeout  time.Duration
	Logger         *zap.Logger
}

const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultUploadTimeout  = 60 * time.Second
)

// Client calls the backend endpoints through a shared gateway.
type Client struct {
	gw             *gateway.Client
	requestTimeout time.Duration
	uploadTimeout  time.Duration
	log            *zap.Logger
}

// New creates a backend client over gw.
func New(gw *gateway.Client, opts Options) *Client {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = DefaultUploadTimeout
	}
	return &Client{
		gw:             gw,
		requestTimeout: opts.RequestTimeout,
		uploadTimeout:  opts.UploadTimeout,
		log:            logging.OrNop(opts.Logger).Named("backend"),
	}
}

// Gateway returns the underlying gateway client.
func (c *Client) Gateway() *gateway.Client {
	return c.gw
}

func (c *Client) withTimeout(ctx context.Context, upload bool) (context.Context, context.CancelFunc) {
	d := c.requestTimeout
	if upload {
		d = c.uploadTimeout
	}
	return context.WithTimeout(ctx, d)
}

// post is a bounded JSON POST.
func (c *Client) post(ctx context.Context, path string, in, out any, authorized bool) error {
	ctx, cancel := c.withTimeout(ctx, false)
	defer cancel()
	return c.gw.Post(ctx, path, in, out, authorized)
}

// get is a bounded authorized GET.
func (c *Client) get(ctx context.Context, path string, out any) error {
	ctx, cancel := c.withTimeout(ctx, false)
	defer cancel()
	return c.gw.Get(ctx, path, out)
}
