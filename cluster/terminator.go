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

import "fmt"

// ProcessTerminator is the injected process-exit seam Design Notes §9 asks
// for: it keeps the controller's fatal paths (invariant violations,
// successful shutdown with exitProcess=true) testable without the test
// binary itself exiting.
type ProcessTerminator interface {
	// Fatal is called on an invariant violation. Implementations log and
	// terminate the process with a non-zero exit code; they must not
	// return, but tests may install a ProcessTerminator whose Fatal
	// panics/records instead so assertions can run afterward.
	Fatal(msg string)
	// Exit is called once the node reaches Shutdown with
	// exitProcessOnShutdown set, whether or not every service acknowledged
	// the shutdown. Implementations terminate the process with a zero exit
	// code.
	Exit()
}

// osTerminator is a ProcessTerminator that ends the process through exit.
// Nothing in this module constructs it: cmd/eventstored defines its own
// terminator, and tests install recording fakes.
type osTerminator struct {
	exit func(code int)
}

func (t osTerminator) Fatal(msg string) {
	t.exit(1)
}

func (t osTerminator) Exit() {
	t.exit(0)
}

// fatalf formats an invariant violation, logs it at Error level, then
// reports it through the controller's ProcessTerminator. Callers do not return
// control after invoking it on a production terminator, but must still
// `return` immediately afterward, since a test terminator may not actually
// stop execution.
func (c *Controller) fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	c.log.Error(msg)
	c.terminator.Fatal(msg)
}
