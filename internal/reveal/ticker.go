// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

import "time"

// Ticker drives a reveal. Each receive from C advances it by one step.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// NewTickerFunc creates a Ticker with the given period.
type NewTickerFunc func(period time.Duration) Ticker

// timeTicker adapts time.Ticker.
type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// Periodic is the default driver: a time.Ticker.
func Periodic(period time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(period)}
}

// closedTick is always ready.
var closedTick = func() chan time.Time {
	c := make(chan time.Time)
	close(c)
	return c
}()

type instantTicker struct{}

func (instantTicker) C() <-chan time.Time { return closedTick }
func (instantTicker) Stop()               {}

// Instant returns a driver that never waits. Used when output is not a
// terminal and the animation would only slow things down.
func Instant(time.Duration) Ticker {
	return instantTicker{}
}
