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

// actionKind is one of the four dispatcher entry shapes of §4.1.
type actionKind int

const (
	actionHandle actionKind = iota
	actionForward
	actionIgnore
	actionDeny
)

// HandlerFunc is a role handler: it mutates controller state, publishes to
// the output bus, and schedules further messages on the main queue.
type HandlerFunc func(c *Controller, msg Message)

type rule struct {
	kind    actionKind
	handler HandlerFunc
	reason  DenyReason
}

func handle(fn HandlerFunc) rule { return rule{kind: actionHandle, handler: fn} }

var forward = rule{kind: actionForward}
var ignore = rule{kind: actionIgnore}

func deny(reason DenyReason) rule { return rule{kind: actionDeny, reason: reason} }

// allRoles lists every role the dispatcher table must cover, used to build
// the "any role" and "all roles except ..." scopes.
var allRoles = []Role{
	RoleInitializing, RoleDiscoverLeader, RoleUnknown, RolePreReplica,
	RoleCatchingUp, RoleClone, RoleFollower, RolePreLeader, RoleLeader,
	RoleResigningLeader, RoleShuttingDown, RoleShutdown,
	RoleReadOnlyLeaderless, RolePreReadOnlyReplica, RoleReadOnlyReplica,
}

// dispatcher is the compiled (role, kind) -> rule table. Construction
// applies the layered rule scopes of §4.1 in increasing precedence:
// any-role, all-roles-except, role-set, then single-role; each stage
// overwrites entries the previous stage set, and a later registration
// within the same call site wins over an earlier one at the same scope,
// because both are plain map writes into the same stage's working set.
type dispatcher struct {
	table       map[Role]map[Kind]rule
	whenOther   map[Role]rule // per-role WhenOther override; absent means the global default
	defaultRule rule
}

func newDispatcherBuilder() *dispatcherBuilder {
	b := &dispatcherBuilder{
		any:       map[Kind]rule{},
		allExcept: []scopedRules{},
		roleSet:   []scopedRules{},
		single:    map[Role]map[Kind]rule{},
		whenOther: map[Role]rule{},
	}
	return b
}

type scopedRules struct {
	roles []Role
	rules map[Kind]rule
}

// dispatcherBuilder accumulates rule registrations before compiling them
// into a flat dispatcher table. It exists so the role-handler files
// (handlers_*.go) can each register their own slice of the table without
// needing to know about every other role's rules.
type dispatcherBuilder struct {
	any       map[Kind]rule
	allExcept []scopedRules
	roleSet   []scopedRules
	single    map[Role]map[Kind]rule
	whenOther map[Role]rule
}

// OnAny registers the lowest-precedence "any role" fallback for kind.
func (b *dispatcherBuilder) OnAny(kind Kind, r rule) *dispatcherBuilder {
	b.any[kind] = r
	return b
}

// OnAllExcept registers a fallback for every role not in excluded.
func (b *dispatcherBuilder) OnAllExcept(excluded []Role, kind Kind, r rule) *dispatcherBuilder {
	excl := map[Role]bool{}
	for _, role := range excluded {
		excl[role] = true
	}
	var roles []Role
	for _, role := range allRoles {
		if !excl[role] {
			roles = append(roles, role)
		}
	}
	b.allExcept = append(b.allExcept, scopedRules{roles: roles, rules: map[Kind]rule{kind: r}})
	return b
}

// OnRoles registers a rule for a named set of roles.
func (b *dispatcherBuilder) OnRoles(roles []Role, kind Kind, r rule) *dispatcherBuilder {
	b.roleSet = append(b.roleSet, scopedRules{roles: roles, rules: map[Kind]rule{kind: r}})
	return b
}

// On registers a rule for exactly one role, the highest precedence tier.
func (b *dispatcherBuilder) On(role Role, kind Kind, r rule) *dispatcherBuilder {
	if b.single[role] == nil {
		b.single[role] = map[Kind]rule{}
	}
	b.single[role][kind] = r
	return b
}

// WhenOtherForRole overrides the default action (normally Forward) applied
// when role has no rule at all, explicit or fallen-through, for a kind.
func (b *dispatcherBuilder) WhenOtherForRole(role Role, r rule) *dispatcherBuilder {
	b.whenOther[role] = r
	return b
}

func (b *dispatcherBuilder) build() *dispatcher {
	table := map[Role]map[Kind]rule{}
	for _, role := range allRoles {
		table[role] = map[Kind]rule{}
	}
	for kind, r := range b.any {
		for _, role := range allRoles {
			table[role][kind] = r
		}
	}
	for _, sr := range b.allExcept {
		for _, role := range sr.roles {
			for kind, r := range sr.rules {
				table[role][kind] = r
			}
		}
	}
	for _, sr := range b.roleSet {
		for _, role := range sr.roles {
			for kind, r := range sr.rules {
				table[role][kind] = r
			}
		}
	}
	for role, kinds := range b.single {
		for kind, r := range kinds {
			table[role][kind] = r
		}
	}
	return &dispatcher{
		table:       table,
		whenOther:   b.whenOther,
		defaultRule: forward,
	}
}

// resolve returns the rule to apply for (role, kind). It is the single
// place the Fatal-on-unhandled-StateChange condition of §4.1 is enforced.
func (d *dispatcher) resolve(role Role, kind Kind) rule {
	if r, ok := d.table[role][kind]; ok {
		return r
	}
	if stateChangeKinds[kind] {
		return rule{kind: actionHandle, handler: fatalUnhandledStateChange}
	}
	if r, ok := d.whenOther[role]; ok {
		return r
	}
	return d.defaultRule
}

func fatalUnhandledStateChange(c *Controller, msg Message) {
	c.fatalf("no transition registered for state-change kind %q in role %s", msg.Kind(), c.st.role)
}
