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

// LogCloser is the event log's shutdown collaborator: §4.4 steps 3-4 call
// it once every subordinate service has acknowledged (or the bounded
// shutdown window has forced the issue), before BecomeShutdown is
// published. Its implementation, an on-disk log/chunker, lives outside this
// module.
type LogCloser interface {
	Close() error
}

// noopLogCloser is the default LogCloser when none is supplied, so tests
// that do not care about the log database do not have to provide one.
type noopLogCloser struct{}

func (noopLogCloser) Close() error { return nil }
