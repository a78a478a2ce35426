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

package main

import (
	"github.com/essandess/blockfs/cfg"
	"github.com/essandess/blockfs/internal/locker"
)

// enableInvariantChecking wires the --debug-invariants / --debug-mutex
// flags into internal/locker, the same call sites the teacher's
// legacy_main.go used to arm its own invariant mutex ahead of any locking.
func enableInvariantChecking(c *cfg.Config) {
	locker.EnableInvariantsCheck()
	if c.Debug.LogMutex {
		locker.EnableDebugMessages()
	}
}
