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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFileLoggingEnabled(t *testing.T) {
	config := DefaultConfig()
	assert.False(t, IsFileLoggingEnabled(config))

	config.Logging.FilePath = "/var/log/blockfs.log"
	assert.True(t, IsFileLoggingEnabled(config))
}

func TestIsInvariantCheckingEnabled(t *testing.T) {
	config := DefaultConfig()
	assert.False(t, IsInvariantCheckingEnabled(config))

	config.Debug.LogMutex = true
	assert.True(t, IsInvariantCheckingEnabled(config))
}
