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

package bus

import (
	"sync"
	"time"
)

// Queue is the main, single-consumer queue a controller re-enters itself
// through. Posts made directly are FIFO; messages scheduled via Schedule
// are ordered only by fire time, never by the order Schedule was called in
// (§5), since they are realized as independent timers.
type Queue interface {
	// Post enqueues msg for immediate FIFO delivery. A no-op after Stop.
	Post(msg Message)
	// Schedule enqueues msg for delivery after d elapses. A no-op after
	// Stop, including for timers that were already running: their fire
	// is silently dropped rather than posted.
	Schedule(d time.Duration, msg Message)
	// Messages is the channel the single consumer drains.
	Messages() <-chan Message
	// RequestStop asks the queue to stop accepting new messages and
	// closes Messages() once any already-buffered messages are drained.
	RequestStop()
}

type queue struct {
	ch chan Message

	mu     sync.Mutex
	closed bool
}

// NewQueue returns a ready-to-use Queue with the given channel buffer size.
func NewQueue(buffer int) Queue {
	return &queue{ch: make(chan Message, buffer)}
}

func (q *queue) Post(msg Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.ch <- msg
}

func (q *queue) Schedule(d time.Duration, msg Message) {
	time.AfterFunc(d, func() {
		q.Post(msg)
	})
}

func (q *queue) Messages() <-chan Message {
	return q.ch
}

func (q *queue) RequestStop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}
