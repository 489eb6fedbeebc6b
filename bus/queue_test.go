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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(8)
	q.Post(fakeMsg("a"))
	q.Post(fakeMsg("b"))
	q.Post(fakeMsg("c"))

	require.Equal(t, fakeMsg("a"), <-q.Messages())
	require.Equal(t, fakeMsg("b"), <-q.Messages())
	require.Equal(t, fakeMsg("c"), <-q.Messages())
}

func TestQueueSchedule(t *testing.T) {
	q := NewQueue(8)
	start := time.Now()
	q.Schedule(20*time.Millisecond, fakeMsg("timer"))

	msg := <-q.Messages()
	require.Equal(t, fakeMsg("timer"), msg)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestQueueRequestStopDrainsThenCloses(t *testing.T) {
	q := NewQueue(8)
	q.Post(fakeMsg("a"))
	q.RequestStop()

	msg, ok := <-q.Messages()
	require.True(t, ok)
	require.Equal(t, fakeMsg("a"), msg)

	_, ok = <-q.Messages()
	require.False(t, ok)
}

func TestQueuePostAfterStopIsNoop(t *testing.T) {
	q := NewQueue(8)
	q.RequestStop()
	require.NotPanics(t, func() { q.Post(fakeMsg("dropped")) })
}

func TestQueueScheduleFiringAfterStopIsDropped(t *testing.T) {
	q := NewQueue(8)
	q.Schedule(10*time.Millisecond, fakeMsg("late"))
	q.RequestStop()

	_, ok := <-q.Messages()
	require.False(t, ok)
}
