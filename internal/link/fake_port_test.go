// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"sync"
	"time"
)

// readStep is one scripted Read result.
type readStep struct {
	data []byte
	err  error
}

// fakePort replays scripted reads and records writes. Once the script is
// used up every Read returns exhausted (ErrTimeout unless set).
type fakePort struct {
	mu        sync.Mutex
	steps     []readStep
	exhausted error
	writes    [][]byte
	writeErr  error
	closed    bool
}

func newFakePort(steps ...readStep) *fakePort {
	return &fakePort{steps: steps, exhausted: ErrTimeout}
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrClosed
	}
	if len(p.steps) == 0 {
		p.mu.Unlock()
		time.Sleep(time.Millisecond)
		p.mu.Lock()
		return 0, p.exhausted
	}
	s := p.steps[0]
	n := copy(b, s.data)
	if n < len(s.data) {
		p.steps[0].data = s.data[n:]
		return n, nil
	}
	p.steps = p.steps[1:]
	return n, s.err
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.writes = append(p.writes, append([]byte(nil), b...))
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePort) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *fakePort) Writes() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.writes...)
}

func data(b []byte) readStep { return readStep{data: b} }
func fail(err error) readStep { return readStep{err: err} }

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
