// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import "sync/atomic"

// Slot is a one-element handoff between exactly one writer and one reader.
// Send never blocks and replaces whatever is still waiting; TryReceive never
// blocks and empties the slot. It serves as the telemetry channel (reader ->
// consumer) and as the command mailbox (consumer -> reader).
type Slot[T any] struct {
	p atomic.Pointer[T]
}

// Send stores v and reports whether an undelivered value was replaced.
func (s *Slot[T]) Send(v T) (replaced bool) {
	return s.p.Swap(&v) != nil
}

// TryReceive takes the pending value, if any.
func (s *Slot[T]) TryReceive() (T, bool) {
	p := s.p.Swap(nil)
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}
