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

package svcs

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestControllerEmptyServices(t *testing.T) {
	c := NewController()
	ctx := context.Background()

	go func() {
		require.NoError(t, c.WaitForStart())
		c.Stop()
	}()

	require.NoError(t, c.Start(ctx))
	require.NoError(t, c.WaitForStop())
}

func TestControllerCalledBeforeStart(t *testing.T) {
	c := NewController()
	c.Stop()

	require.Error(t, c.Start(context.Background()))
	require.NoError(t, c.WaitForStart())
	require.NoError(t, c.WaitForStop())
}

func TestControllerCallsInitInOrder(t *testing.T) {
	c := NewController()
	ctx := context.Background()

	var mu sync.Mutex
	var inited []int
	for i := 0; i < 3; i++ {
		i := i
		require.NoError(t, c.Register(&AnonService{
			InitF: func(context.Context) error {
				mu.Lock()
				defer mu.Unlock()
				inited = append(inited, i)
				return nil
			},
		}))
	}

	go func() {
		require.NoError(t, c.WaitForStart())
		c.Stop()
	}()

	require.NoError(t, c.Start(ctx))
	require.Equal(t, []int{0, 1, 2}, inited)
}

func TestControllerStopsCallingInitOnFirstError(t *testing.T) {
	c := NewController()
	ctx := context.Background()
	err := errors.New("writer init failed")

	var mu sync.Mutex
	var inited []int
	require.NoError(t, c.Register(&AnonService{InitF: func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		inited = append(inited, 0)
		return nil
	}}))
	require.NoError(t, c.Register(&AnonService{InitF: func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		inited = append(inited, 1)
		return nil
	}}))
	require.NoError(t, c.Register(&AnonService{InitF: func(context.Context) error {
		return err
	}}))
	require.NoError(t, c.Register(&AnonService{InitF: func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		inited = append(inited, 3)
		return nil
	}}))

	go func() {
		require.ErrorIs(t, c.WaitForStart(), err)
		c.Stop()
	}()

	require.ErrorIs(t, c.Start(ctx), err)
	require.ErrorIs(t, c.WaitForStop(), err)
	require.Equal(t, []int{0, 1}, inited)
}

func TestControllerCallsStopWhenInitErrors(t *testing.T) {
	c := NewController()
	ctx := context.Background()
	err := errors.New("replication init failed")

	var mu sync.Mutex
	var stopped []int
	require.NoError(t, c.Register(&AnonService{StopF: func() error {
		mu.Lock()
		defer mu.Unlock()
		stopped = append(stopped, 0)
		return nil
	}}))
	require.NoError(t, c.Register(&AnonService{StopF: func() error {
		mu.Lock()
		defer mu.Unlock()
		stopped = append(stopped, 1)
		return nil
	}}))
	require.NoError(t, c.Register(&AnonService{InitF: func(context.Context) error {
		return err
	}}))
	require.NoError(t, c.Register(&AnonService{StopF: func() error {
		mu.Lock()
		defer mu.Unlock()
		stopped = append(stopped, 3)
		return nil
	}}))

	require.ErrorIs(t, c.Start(ctx), err)
	require.Equal(t, []int{1, 0}, stopped)
}

func TestControllerRunsServices(t *testing.T) {
	c := NewController()
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	require.NoError(t, c.Register(&AnonService{RunF: func(context.Context) { wg.Done() }, StopF: func() error { return nil }}))
	require.NoError(t, c.Register(&AnonService{RunF: func(context.Context) { wg.Done() }, StopF: func() error { return nil }}))

	go func() {
		require.NoError(t, c.WaitForStart())
		wg.Wait()
		c.Stop()
	}()

	require.NoError(t, c.Start(ctx))
}

func TestControllerStopsAllServicesAndReturnsFirstError(t *testing.T) {
	c := NewController()
	ctx := context.Background()
	errFirst := errors.New("first error")
	errSecond := errors.New("second error")

	var wg sync.WaitGroup
	wg.Add(2)
	require.NoError(t, c.Register(&AnonService{StopF: func() error {
		wg.Done()
		return errSecond
	}}))
	require.NoError(t, c.Register(&AnonService{StopF: func() error {
		wg.Done()
		return errFirst
	}}))

	go func() {
		require.NoError(t, c.WaitForStart())
		c.Stop()
	}()

	require.ErrorIs(t, c.Start(ctx), errFirst)
	wg.Wait()
}

func TestControllerRegisterAfterStartIsRejected(t *testing.T) {
	c := NewController()
	ctx := context.Background()
	started := make(chan struct{})

	require.NoError(t, c.Register(&AnonService{RunF: func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	}}))

	go c.Start(ctx)
	require.NoError(t, c.WaitForStart())
	<-started

	err := c.Register(&AnonService{})
	require.ErrorIs(t, err, ErrAlreadyStarted)

	c.Stop()
	require.NoError(t, c.WaitForStop())
}

func TestControllerRunStoppingItselfUnblocksStart(t *testing.T) {
	c := NewController()
	ctx := context.Background()
	expectedErr := errors.New("chaser lost the leader connection")
	errCh := make(chan error)
	var runWG sync.WaitGroup
	runWG.Add(1)

	require.NoError(t, c.Register(&AnonService{
		RunF: func(context.Context) {
			err := <-errCh
			go c.Stop()
			runWG.Done()
			_ = err
		},
		StopF: func() error {
			runWG.Wait()
			return expectedErr
		},
	}))

	var cwg sync.WaitGroup
	cwg.Add(1)
	go func() {
		defer cwg.Done()
		require.ErrorIs(t, c.Start(ctx), expectedErr)
	}()

	require.NoError(t, c.WaitForStart())
	errCh <- expectedErr
	require.ErrorIs(t, c.WaitForStop(), expectedErr)
	cwg.Wait()
}
