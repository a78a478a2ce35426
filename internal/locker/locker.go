// Copyright 2024 Google Inc. All Rights Reserved.
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

// Package locker provides a mutex that optionally checks caller-supplied
// invariants on every lock and unlock, and optionally traces its own
// lock/unlock calls. The buffer cache and inode layer use it in place of a
// bare sync.Mutex so a broken invariant is caught at the site that broke it
// instead of surfacing as a baffling corruption report later. It wraps
// github.com/jacobsa/syncutil.InvariantMutex, the same type the teacher's
// fs/inode and internal/fs/inode packages guard their mutable state with.
package locker

import (
	"fmt"

	"github.com/jacobsa/syncutil"
)

var (
	invariantsEnabled = false
	debugMessagesOn   = false
	debugLog          = func(format string, v ...any) {}
)

// EnableInvariantsCheck turns on invariant checking for every Mutex created
// after this call. Checking a broken invariant panics immediately, which is
// what you want in tests and in debug runs of the storage engine: it is
// better to crash at the offending Lock/Unlock call than to keep running
// with a corrupted buffer cache or inode tree.
func EnableInvariantsCheck() {
	invariantsEnabled = true
	syncutil.EnableInvariantChecking()
}

// EnableDebugMessages causes every Lock and Unlock call on every Mutex to be
// traced through SetDebugLogger's logging function.
func EnableDebugMessages() {
	debugMessagesOn = true
}

// SetDebugLogger installs the function used to trace lock/unlock calls when
// EnableDebugMessages has been called. internal/logger wires this to
// logger.Tracef so the trace shares the rest of the engine's log stream.
func SetDebugLogger(f func(format string, v ...any)) {
	debugLog = f
}

// Mutex is a syncutil.InvariantMutex that additionally traces lock/unlock
// calls by name when debug messages are enabled, and checks its invariant
// function on Lock as well as Unlock: syncutil only wires the check into
// Unlock, and a broken invariant is just as interesting to catch on the way
// in as on the way out.
type Mutex struct {
	name            string
	mu              syncutil.InvariantMutex
	checkInvariants func()
}

// NewMutex returns an unlocked Mutex identified by name in trace messages.
// If checkInvariants is non-nil, it runs on every Lock and Unlock while
// invariant checking is enabled (see EnableInvariantsCheck); a nil
// checkInvariants leaves mu a plain zero-value InvariantMutex, the same
// pattern the teacher's tests construct directly (syncutil.InvariantMutex{}).
func NewMutex(name string, checkInvariants func()) *Mutex {
	m := &Mutex{name: name, checkInvariants: checkInvariants}
	if checkInvariants != nil {
		m.mu = syncutil.NewInvariantMutex(checkInvariants)
	}
	return m
}

func (m *Mutex) Lock() {
	if debugMessagesOn {
		debugLog("locker: %s: locking", m.name)
	}

	m.mu.Lock()

	if invariantsEnabled && m.checkInvariants != nil {
		m.checkInvariants()
	}

	if debugMessagesOn {
		debugLog("locker: %s: locked", m.name)
	}
}

func (m *Mutex) Unlock() {
	m.mu.Unlock()

	if debugMessagesOn {
		debugLog("locker: %s: unlocked", m.name)
	}
}

// Assert panics with msg if ok is false and invariant checking is enabled.
// Callers use this from within a checkInvariants function, one Assert per
// invariant, mirroring the panic-per-invariant style of the storage
// engine's teacher codebase.
func Assert(ok bool, msg string, args ...any) {
	if ok || !invariantsEnabled {
		return
	}
	panic(fmt.Sprintf(msg, args...))
}
