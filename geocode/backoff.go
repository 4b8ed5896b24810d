// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// BackoffOptions tune the adaptive delay between requests.
type BackoffOptions struct {
	// Min is the smallest delay, and the starting one.
	Min time.Duration
	// Max caps the delay.
	Max time.Duration
	// Growth multiplies the delay after each throttled attempt of a request.
	Growth float64
	// Learning is the share of (delay + last retry delay) added to the delay
	// after a request that got throttled.
	Learning float64
	// Decay is the share of the delay dropped after a request that was
	// never throttled.
	Decay float64
}

// DefaultBackoffOptions returns the settings used by the command line.
func DefaultBackoffOptions() BackoffOptions {
	return BackoffOptions{
		Min:      time.Second,
		Max:      time.Minute,
		Growth:   1.75,
		Learning: 0.1,
		Decay:    0.1,
	}
}

// Validate checks the options are usable.
func (o BackoffOptions) Validate() error {
	switch {
	case o.Min < 0:
		return fmt.Errorf("backoff minimum %v is negative", o.Min)
	case o.Max < o.Min:
		return fmt.Errorf("backoff maximum %v is below the minimum %v", o.Max, o.Min)
	case o.Growth < 1:
		return fmt.Errorf("backoff growth factor %v is below 1", o.Growth)
	case o.Learning < 0 || o.Learning > 1:
		return fmt.Errorf("backoff learning factor %v is not between 0 and 1", o.Learning)
	case o.Decay < 0 || o.Decay > 1:
		return fmt.Errorf("backoff decay factor %v is not between 0 and 1", o.Decay)
	}

	return nil
}

// Backoff paces requests to a rate limited service. It remembers how hard
// the service pushed back on earlier requests so later ones start slower, and
// relaxes again while requests go through cleanly.
type Backoff struct {
	opts    BackoffOptions
	limiter *rate.Limiter

	mu      sync.Mutex
	current time.Duration

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewBackoff returns a Backoff starting at opts.Min. The optional limiter is
// a hard ceiling on the request rate, applied before every attempt.
func NewBackoff(opts BackoffOptions, limiter *rate.Limiter) *Backoff {
	return &Backoff{
		opts:    opts,
		limiter: limiter,
		current: opts.Min,
		sleep:   sleepContext,
	}
}

// Current returns the delay that will be used for the next request.
func (b *Backoff) Current() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.current
}

// SendFunc performs one attempt of a request. It reports throttled when the
// service asked to slow down; any error aborts the request.
type SendFunc func(ctx context.Context) (throttled bool, err error)

// Do calls send until it is not throttled, sleeping between attempts. There
// is no limit on the number of attempts: a throttled request is retried
// until it goes through or ctx is done. With wait set, Do also sleeps the
// current delay once the request is over, whatever its outcome.
func (b *Backoff) Do(ctx context.Context, wait bool, send SendFunc) error {
	delay := b.Current()

	var lastSleep time.Duration

	throttledOnce := false

	for {
		if b.limiter != nil {
			if err := b.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("waiting for rate limiter: %w", err)
			}
		}

		throttled, err := send(ctx)
		if err != nil {
			if wait {
				_ = b.sleep(ctx, b.Current())
			}

			return err
		}

		if !throttled {
			break
		}

		throttledOnce = true

		log.Printf("Throttled by the geocoding service, retrying in %v\n", delay)

		if err := b.sleep(ctx, delay); err != nil {
			return err
		}

		lastSleep = delay
		delay = min(time.Duration(float64(delay)*b.opts.Growth), b.opts.Max)
	}

	if throttledOnce {
		b.learn(lastSleep)
	} else {
		b.relax()
	}

	if wait {
		return b.sleep(ctx, b.Current())
	}

	return nil
}

// learn raises the delay for good after a throttled request. lastSleep is
// the longest retry delay the request needed.
func (b *Backoff) learn(lastSleep time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := b.current + time.Duration(float64(b.current+lastSleep)*b.opts.Learning)
	b.current = b.clamp(next)
}

func (b *Backoff) relax() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = b.clamp(time.Duration(float64(b.current) * (1 - b.opts.Decay)))
}

func (b *Backoff) clamp(d time.Duration) time.Duration {
	return max(b.opts.Min, min(d, b.opts.Max))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
