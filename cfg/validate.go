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

import "fmt"

// diskInodeSize is the byte size of the on-disk inode record: a 32-bit
// length, a 32-bit is_dir flag, DirectPointerCount direct sector numbers,
// one indirect pointer, one doubly-indirect pointer and the magic number,
// all 32-bit. Every field is exactly four bytes, matching the on-disk
// layout described by the storage engine's inode package.
const diskInodeSize = 4*2 + DirectPointerCount*4 + 4*2 + 4

func isValidLogRotateConfig(config *LogRotateConfig) error {
	if config.MaxFileSizeMb <= 0 {
		return fmt.Errorf("max-file-size-mb should be atleast 1")
	}
	if config.BackupFileCount < 0 {
		return fmt.Errorf("backup-file-count should be 0 (to retain all backup files) or a positive value")
	}
	return nil
}

func isValidCacheConfig(config *CacheConfig) error {
	if config.Frames < 1 {
		return fmt.Errorf("cache.frames must be at least 1, got %d", config.Frames)
	}
	return nil
}

func isValidDeviceConfig(config *DeviceConfig) error {
	if config.SectorSize != diskInodeSize {
		return fmt.Errorf("device.sector-size must be %d bytes so the on-disk inode record fits in exactly one sector, got %d", diskInodeSize, config.SectorSize)
	}
	return nil
}

// ValidateConfig returns a non-nil error if the config is invalid.
func ValidateConfig(config *Config) error {
	if err := isValidLogRotateConfig(&config.Logging.LogRotate); err != nil {
		return fmt.Errorf("error parsing log-rotate config: %w", err)
	}

	if err := isValidCacheConfig(&config.Cache); err != nil {
		return fmt.Errorf("error parsing cache config: %w", err)
	}

	if err := isValidDeviceConfig(&config.Device); err != nil {
		return fmt.Errorf("error parsing device config: %w", err)
	}

	return nil
}
