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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateConfigAcceptsDefault(t *testing.T) {
	assert.NoError(t, ValidateConfig(DefaultConfig()))
}

func TestValidateConfigRejectsBadSectorSize(t *testing.T) {
	config := DefaultConfig()
	config.Device.SectorSize = 4096

	err := ValidateConfig(config)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sector-size")
}

func TestValidateConfigRejectsZeroFrames(t *testing.T) {
	config := DefaultConfig()
	config.Cache.Frames = 0

	err := ValidateConfig(config)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cache")
}

func TestValidateConfigRejectsBadLogRotate(t *testing.T) {
	config := DefaultConfig()
	config.Logging.LogRotate.MaxFileSizeMb = 0

	err := ValidateConfig(config)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "log-rotate")
}

func TestValidateConfigRejectsNegativeBackupCount(t *testing.T) {
	config := DefaultConfig()
	config.Logging.LogRotate.BackupFileCount = -1

	assert.Error(t, ValidateConfig(config))
}
