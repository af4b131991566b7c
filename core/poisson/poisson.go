// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

// Package poisson provides a timer which fires at intervals drawn from a
// Poisson process.
package poisson

import (
	"math"
	mrand "math/rand"
	"time"

	"github.com/katzenpost/hpqc/rand"
)

// Descriptor describes a Poisson process.
type Descriptor struct {
	// Lambda is the rate parameter of the exponential inter-arrival
	// distribution, in 1/milliseconds.
	Lambda float64

	// Max is the maximum inter-arrival time in milliseconds; samples above
	// it are clamped.
	Max uint64
}

// Equals returns true if the given Descriptor s is equal to d.
func (d *Descriptor) Equals(s *Descriptor) bool {
	return d.Lambda == s.Lambda && d.Max == s.Max
}

// Timer is used to produce channel events after delays drawn from a Poisson
// process.
type Timer struct {
	Timer *time.Timer
	rng   *mrand.Rand
	desc  *Descriptor
}

// SetPoisson sets a new Descriptor.
func (t *Timer) SetPoisson(desc *Descriptor) {
	t.desc = desc
}

func (t *Timer) nextInterval() time.Duration {
	wakeMsec := uint64(rand.Exp(t.rng, t.desc.Lambda))
	if wakeMsec > t.desc.Max {
		wakeMsec = t.desc.Max
	}
	return time.Duration(wakeMsec) * time.Millisecond
}

// Next resets the timer to the next Poisson process value.  This MUST NOT be
// called unless the timer has fired.
func (t *Timer) Next() {
	t.Timer.Reset(t.nextInterval())
}

// NextMax resets the timer to the maximum possible value.
func (t *Timer) NextMax() {
	t.Timer.Reset(math.MaxInt64)
}

// Start initializes and starts the timer after timer creation.
func (t *Timer) Start() {
	t.Timer = time.NewTimer(t.nextInterval())
}

// Stop stops the timer.
func (t *Timer) Stop() {
	t.Timer.Stop()
}

// NewTimer creates a new Timer.  A subsequent call to the Start method is
// used to activate it.
func NewTimer(desc *Descriptor) *Timer {
	return &Timer{
		rng:  rand.NewMath(),
		desc: desc,
	}
}
