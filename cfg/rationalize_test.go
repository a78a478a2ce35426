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

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRationalizeEscalatesSeverityOnLogMutex(t *testing.T) {
	config := DefaultConfig()
	config.Debug.LogMutex = true

	require.NoError(t, Rationalize(config))

	assert.Equal(t, TraceLogSeverity, config.Logging.Severity)
}

func TestRationalizeLeavesSeverityAlone(t *testing.T) {
	config := DefaultConfig()

	require.NoError(t, Rationalize(config))

	assert.Equal(t, InfoLogSeverity, config.Logging.Severity)
}

func TestRationalizeResolvesDevicePath(t *testing.T) {
	config := DefaultConfig()
	config.Device.Path = "relative/device.img"

	require.NoError(t, Rationalize(config))

	assert.True(t, filepath.IsAbs(string(config.Device.Path)))
}

func TestRationalizeResolvesLogFilePath(t *testing.T) {
	config := DefaultConfig()
	config.Logging.FilePath = "relative/engine.log"

	require.NoError(t, Rationalize(config))

	assert.True(t, filepath.IsAbs(string(config.Logging.FilePath)))
}
