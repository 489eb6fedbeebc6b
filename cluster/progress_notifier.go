// Copyright 2026 The EventStore Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cluster

import (
	"context"
	"sync"
)

// Attempt identifies one BeginAttempt/RecordSuccess|RecordFailure cycle.
type Attempt int

// ProgressNotifier lets a caller block until a chaser-catch-up attempt that
// began after the call to Wait succeeds, or until its context expires. It
// is the same synchronization shape the teacher's replication pipeline uses
// to let a caller wait on an asynchronous success (see
// go/libraries/doltcore/sqle/cluster's ProgressNotifier), adapted here to
// notify on ChaserCaughtUp instead of a completed replication round. The
// zero value is ready to use.
type ProgressNotifier struct {
	mu          sync.Mutex
	seq         int
	lastSuccess int
	ch          chan struct{}
}

// BeginAttempt records the start of a new attempt and returns its token.
func (p *ProgressNotifier) BeginAttempt() Attempt {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	return Attempt(p.seq)
}

// RecordSuccess marks a as having succeeded and wakes any waiter whose Wait
// call predates a.
func (p *ProgressNotifier) RecordSuccess(a Attempt) {
	p.mu.Lock()
	if int(a) > p.lastSuccess {
		p.lastSuccess = int(a)
	}
	ch := p.ch
	p.ch = nil
	p.mu.Unlock()
	if ch != nil {
		close(ch)
	}
}

// RecordFailure marks a as having failed. It does not wake waiters; a
// failed attempt is not progress.
func (p *ProgressNotifier) RecordFailure(a Attempt) {}

// Wait captures the current attempt sequence and returns a function that
// blocks until a later attempt succeeds or ctx is done.
func (p *ProgressNotifier) Wait() func(context.Context) error {
	p.mu.Lock()
	generation := p.seq
	p.mu.Unlock()

	return func(ctx context.Context) error {
		for {
			p.mu.Lock()
			if p.lastSuccess > generation {
				p.mu.Unlock()
				return nil
			}
			if p.ch == nil {
				p.ch = make(chan struct{})
			}
			ch := p.ch
			p.mu.Unlock()

			select {
			case <-ch:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
