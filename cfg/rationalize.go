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

package cfg

// Rationalize updates config fields based on the values of other fields,
// after flags/env/config-file decoding and before validation.
func Rationalize(c *Config) error {
	if c.Debug.LogMutex {
		c.Logging.Severity = TraceLogSeverity
	}

	if c.Device.Path != "" {
		resolved, err := resolveAbsolutePath(string(c.Device.Path))
		if err != nil {
			return err
		}
		c.Device.Path = ResolvedPath(resolved)
	}

	if c.Logging.FilePath != "" {
		resolved, err := resolveAbsolutePath(string(c.Logging.FilePath))
		if err != nil {
			return err
		}
		c.Logging.FilePath = ResolvedPath(resolved)
	}

	return nil
}
