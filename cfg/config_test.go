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

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindFlagsRegistersEveryFlag(t *testing.T) {
	viper.Reset()
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)

	require.NoError(t, BindFlags(flagSet))

	for _, name := range []string{
		"logging-severity", "logging-format", "log-file",
		"log-rotate-max-size-mb", "log-rotate-backups", "log-rotate-compress",
		"cache-frames", "device", "sector-size", "sector-count",
		"debug-invariants", "debug-mutex",
	} {
		assert.NotNil(t, flagSet.Lookup(name), "flag %s was not registered", name)
	}
}

func TestDecodeAppliesFlagOverrides(t *testing.T) {
	viper.Reset()
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, BindFlags(flagSet))
	require.NoError(t, flagSet.Parse([]string{"--cache-frames=128", "--device=/tmp/disk.img"}))

	config, err := Decode(viper.GetViper())

	require.NoError(t, err)
	assert.Equal(t, 128, config.Cache.Frames)
	assert.Equal(t, "/tmp/disk.img", string(config.Device.Path))
}

func TestDecodeRejectsInvalidConfig(t *testing.T) {
	viper.Reset()
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, BindFlags(flagSet))
	require.NoError(t, flagSet.Parse([]string{"--cache-frames=0"}))

	_, err := Decode(viper.GetViper())

	assert.Error(t, err)
}
