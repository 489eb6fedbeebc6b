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

// Package svcs supervises the node's subordinate services (chaser, reader,
// writer, index committer, replication, HTTP) the way cmd/eventstored
// starts and stops them: initialize every registered service in
// registration order, run each concurrently once every Init succeeds, and
// on Stop tear them down in reverse order. It says nothing about cluster
// role; the cluster controller learns about progress only through the
// ServiceInitialized/ServiceShutdown messages each Service posts to the
// main queue from inside its own Init/Stop.
package svcs

import (
	"context"
	"errors"
	"sync"
)

// Service is one subordinate the node process supervises.
type Service interface {
	Init(ctx context.Context) error
	Run(ctx context.Context)
	Stop() error
}

// AnonService adapts plain functions to Service, for tests and for small
// services that do not warrant their own named type.
type AnonService struct {
	InitF func(context.Context) error
	RunF  func(context.Context)
	StopF func() error
}

func (a *AnonService) Init(ctx context.Context) error {
	if a.InitF == nil {
		return nil
	}
	return a.InitF(ctx)
}

func (a *AnonService) Run(ctx context.Context) {
	if a.RunF != nil {
		a.RunF(ctx)
	}
}

func (a *AnonService) Stop() error {
	if a.StopF == nil {
		return nil
	}
	return a.StopF()
}

// ErrAlreadyStarted is returned by Register once Start has begun.
var ErrAlreadyStarted = errors.New("svcs: Register called after Start")

// ErrStartAfterStop is returned by Start if Stop was already requested.
var ErrStartAfterStop = errors.New("svcs: Start called after Stop")

// errFuture is a single-value, multi-waiter future: the first call to set
// wins, and every call to wait blocks until it happens.
type errFuture struct {
	once sync.Once
	ch   chan struct{}
	err  error
}

func newErrFuture() *errFuture {
	return &errFuture{ch: make(chan struct{})}
}

func (f *errFuture) set(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.ch)
	})
}

func (f *errFuture) wait() error {
	<-f.ch
	return f.err
}

// Controller runs a fixed set of Services through a common Init/Run/Stop
// lifecycle.
type Controller struct {
	mu       sync.Mutex
	services []Service
	started  bool

	stopOnce      sync.Once
	stopRequested chan struct{}

	startedFuture *errFuture
	stoppedFuture *errFuture
}

// NewController returns an empty, ready-to-use Controller.
func NewController() *Controller {
	return &Controller{
		stopRequested: make(chan struct{}),
		startedFuture: newErrFuture(),
		stoppedFuture: newErrFuture(),
	}
}

// Register adds svc to the set Start will initialize and run. It returns
// ErrAlreadyStarted once Start has begun consuming the service list.
func (c *Controller) Register(svc Service) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return ErrAlreadyStarted
	}
	c.services = append(c.services, svc)
	return nil
}

// Stop requests an orderly shutdown. It is safe to call before Start, after
// Start has returned, or more than once.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() { close(c.stopRequested) })
}

// WaitForStart blocks until every registered service has been initialized
// (or until the first Init failure), returning that outcome.
func (c *Controller) WaitForStart() error {
	return c.startedFuture.wait()
}

// WaitForStop blocks until every service has been told to stop, returning
// the first non-nil error any Stop call produced (or the Init failure that
// prevented the controller from ever starting, if any).
func (c *Controller) WaitForStop() error {
	return c.stoppedFuture.wait()
}

// Start initializes every registered service in order, then runs each
// concurrently until Stop is called (from any goroutine, including from
// within a service's own Run), then stops every service in reverse
// registration order. It blocks until shutdown completes.
func (c *Controller) Start(ctx context.Context) error {
	select {
	case <-c.stopRequested:
		c.startedFuture.set(nil)
		c.stoppedFuture.set(nil)
		return ErrStartAfterStop
	default:
	}

	c.mu.Lock()
	c.started = true
	services := append([]Service(nil), c.services...)
	c.mu.Unlock()

	inited := 0
	var initErr error
	for _, s := range services {
		if err := s.Init(ctx); err != nil {
			initErr = err
			break
		}
		inited++
	}

	if initErr != nil {
		for i := inited - 1; i >= 0; i-- {
			services[i].Stop()
		}
		c.startedFuture.set(initErr)
		c.stoppedFuture.set(initErr)
		return initErr
	}

	runCtx, cancel := context.WithCancel(ctx)
	var runWG sync.WaitGroup
	for _, s := range services {
		runWG.Add(1)
		go func(s Service) {
			defer runWG.Done()
			s.Run(runCtx)
		}(s)
	}

	c.startedFuture.set(nil)

	<-c.stopRequested
	cancel()

	var stopErr error
	for i := len(services) - 1; i >= 0; i-- {
		if err := services[i].Stop(); err != nil && stopErr == nil {
			stopErr = err
		}
	}

	runWG.Wait()

	c.stoppedFuture.set(stopErr)
	return stopErr
}
