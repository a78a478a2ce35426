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

// Package cfg holds the configuration surface for the storage engine and
// the cobra/viper command line that drives it: device geometry, buffer
// cache sizing, logging, and the debug knobs that gate the invariant
// checker in internal/locker.
package cfg

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Logging LoggingConfig `yaml:"logging"`

	Cache CacheConfig `yaml:"cache"`

	Device DeviceConfig `yaml:"device"`

	Debug DebugConfig `yaml:"debug"`
}

type LoggingConfig struct {
	Severity LogSeverity `yaml:"severity"`

	Format CacheFormat `yaml:"format"`

	FilePath ResolvedPath `yaml:"file-path"`

	LogRotate LogRotateConfig `yaml:"log-rotate"`
}

type LogRotateConfig struct {
	MaxFileSizeMb int `yaml:"max-file-size-mb"`

	BackupFileCount int `yaml:"backup-file-count"`

	Compress bool `yaml:"compress"`
}

// CacheConfig sizes the buffer cache of internal/cache. Frames defaults to
// the spec's C = 64 but may be shrunk for tests that want to observe
// eviction without a large device.
type CacheConfig struct {
	Frames int `yaml:"frames"`
}

// DeviceConfig names the backing file and its sector geometry.
type DeviceConfig struct {
	Path ResolvedPath `yaml:"path"`

	SectorSize int `yaml:"sector-size"`

	SectorCount uint32 `yaml:"sector-count"`
}

type DebugConfig struct {
	// ExitOnInvariantViolation turns on internal/locker's invariant
	// checking, which panics on a broken invariant. LogMutex turns the
	// checking on as well; with neither set, invariants are not checked.
	ExitOnInvariantViolation bool `yaml:"exit-on-invariant-violation"`

	// LogMutex traces every lock/unlock of an internal/locker.Mutex at
	// TRACE severity.
	LogMutex bool `yaml:"log-mutex"`
}

// BindFlags registers the command-line flags for every field above and
// binds them into viper under the dotted keys matching the yaml tags.
func BindFlags(flagSet *pflag.FlagSet) error {
	var err error

	flagSet.String("logging-severity", string(DefaultConfig().Logging.Severity), "Log severity: TRACE, DEBUG, INFO, WARNING, ERROR, OFF.")
	if err = viper.BindPFlag("logging.severity", flagSet.Lookup("logging-severity")); err != nil {
		return err
	}

	flagSet.String("logging-format", string(DefaultConfig().Logging.Format), "Log format: text or json.")
	if err = viper.BindPFlag("logging.format", flagSet.Lookup("logging-format")); err != nil {
		return err
	}

	flagSet.String("log-file", "", "Path to the log file. Empty means stderr.")
	if err = viper.BindPFlag("logging.file-path", flagSet.Lookup("log-file")); err != nil {
		return err
	}

	flagSet.Int("log-rotate-max-size-mb", DefaultLogMaxFileSizeMb, "Max size in MiB before the log file is rotated.")
	if err = viper.BindPFlag("logging.log-rotate.max-file-size-mb", flagSet.Lookup("log-rotate-max-size-mb")); err != nil {
		return err
	}

	flagSet.Int("log-rotate-backups", DefaultLogBackupFileCount, "Number of rotated log files to keep. 0 keeps them all.")
	if err = viper.BindPFlag("logging.log-rotate.backup-file-count", flagSet.Lookup("log-rotate-backups")); err != nil {
		return err
	}

	flagSet.Bool("log-rotate-compress", DefaultLogCompress, "Compress rotated log files.")
	if err = viper.BindPFlag("logging.log-rotate.compress", flagSet.Lookup("log-rotate-compress")); err != nil {
		return err
	}

	flagSet.Int("cache-frames", DefaultCacheFrames, "Number of buffer-cache frames.")
	if err = viper.BindPFlag("cache.frames", flagSet.Lookup("cache-frames")); err != nil {
		return err
	}

	flagSet.String("device", "", "Path to the backing device file.")
	if err = viper.BindPFlag("device.path", flagSet.Lookup("device")); err != nil {
		return err
	}

	flagSet.Int("sector-size", DefaultSectorSize, "Sector size in bytes.")
	if err = viper.BindPFlag("device.sector-size", flagSet.Lookup("sector-size")); err != nil {
		return err
	}

	flagSet.Uint32("sector-count", 0, "Number of sectors in the device.")
	if err = viper.BindPFlag("device.sector-count", flagSet.Lookup("sector-count")); err != nil {
		return err
	}

	flagSet.Bool("debug-invariants", false, "Exit the process when an internal invariant check fails.")
	if err = viper.BindPFlag("debug.exit-on-invariant-violation", flagSet.Lookup("debug-invariants")); err != nil {
		return err
	}

	flagSet.Bool("debug-mutex", false, "Trace every internal/locker.Mutex lock and unlock.")
	if err = viper.BindPFlag("debug.log-mutex", flagSet.Lookup("debug-mutex")); err != nil {
		return err
	}

	return nil
}

// Decode unmarshals viper's resolved settings (flags, env, config file) into
// a Config, applying DecodeHook for the custom text-unmarshalling types
// above, then rationalizes and validates the result.
func Decode(v *viper.Viper) (*Config, error) {
	config := DefaultConfig()
	if err := v.Unmarshal(config, viper.DecodeHook(DecodeHook())); err != nil {
		return nil, err
	}

	if err := Rationalize(config); err != nil {
		return nil, err
	}

	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}
