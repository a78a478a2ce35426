// Copyright 2024 Google LLC
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

package cfg

// IsFileLoggingEnabled reports whether log output should go to a file
// instead of stderr.
func IsFileLoggingEnabled(config *Config) bool {
	return string(config.Logging.FilePath) != ""
}

// IsInvariantCheckingEnabled reports whether internal/locker's invariant
// checking should be turned on.
func IsInvariantCheckingEnabled(config *Config) bool {
	return config.Debug.ExitOnInvariantViolation || config.Debug.LogMutex
}
