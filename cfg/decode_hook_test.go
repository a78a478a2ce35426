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

	"github.com/mitchellh/mapstructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHookDecodesLogSeverity(t *testing.T) {
	var config Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: DecodeHook(),
		Result:     &config,
	})
	require.NoError(t, err)

	require.NoError(t, decoder.Decode(map[string]any{
		"logging": map[string]any{"severity": "warning"},
	}))

	assert.Equal(t, WarningLogSeverity, config.Logging.Severity)
}

func TestDecodeHookRejectsBadCacheFormat(t *testing.T) {
	var config Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: DecodeHook(),
		Result:     &config,
	})
	require.NoError(t, err)

	err = decoder.Decode(map[string]any{
		"logging": map[string]any{"format": "xml"},
	})

	assert.Error(t, err)
}
