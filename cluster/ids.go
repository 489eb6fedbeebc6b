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

import "github.com/google/uuid"

// ID is a correlation identifier: a transition attempt, a leader connection
// attempt, or a replication subscription. The empty ID means "unset" and is
// never a value handed out by newID.
type ID string

// newID returns a freshly generated, globally unique correlation id
// (invariant 5 of the role state machine: ids are never reused).
func newID() ID {
	return ID(uuid.NewString())
}

// empty reports whether the id is unset.
func (id ID) empty() bool {
	return id == ""
}
