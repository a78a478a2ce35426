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

package device

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deviceImplementations(t *testing.T) map[string]Device {
	mem := NewMemDevice(512, 16)

	file, err := CreateFileDevice(filepath.Join(t.TempDir(), "disk.img"), 512, 16)
	require.NoError(t, err)
	t.Cleanup(func() { file.Close() })

	return map[string]Device{
		"mem":  mem,
		"file": file,
	}
}

func TestNewDeviceIsZeroFilled(t *testing.T) {
	for name, d := range deviceImplementations(t) {
		t.Run(name, func(t *testing.T) {
			buf := make([]byte, d.SectorSize())
			require.NoError(t, d.ReadSector(0, buf))
			assert.True(t, bytes.Equal(buf, make([]byte, d.SectorSize())))
		})
	}
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	for name, d := range deviceImplementations(t) {
		t.Run(name, func(t *testing.T) {
			want := bytes.Repeat([]byte{0xAB}, d.SectorSize())
			require.NoError(t, d.WriteSector(3, want))

			got := make([]byte, d.SectorSize())
			require.NoError(t, d.ReadSector(3, got))
			assert.Equal(t, want, got)
		})
	}
}

func TestOutOfRangeSectorErrors(t *testing.T) {
	for name, d := range deviceImplementations(t) {
		t.Run(name, func(t *testing.T) {
			buf := make([]byte, d.SectorSize())
			err := d.ReadSector(d.SectorCount(), buf)
			assert.Error(t, err)
			var rangeErr *ErrSectorOutOfRange
			assert.ErrorAs(t, err, &rangeErr)
		})
	}
}

func TestWrongBufferSizeErrors(t *testing.T) {
	for name, d := range deviceImplementations(t) {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, d.ReadSector(0, make([]byte, d.SectorSize()-1)))
			assert.Error(t, d.WriteSector(0, make([]byte, d.SectorSize()+1)))
		})
	}
}

func TestSectorsAreIndependent(t *testing.T) {
	for name, d := range deviceImplementations(t) {
		t.Run(name, func(t *testing.T) {
			a := bytes.Repeat([]byte{0x11}, d.SectorSize())
			b := bytes.Repeat([]byte{0x22}, d.SectorSize())
			require.NoError(t, d.WriteSector(0, a))
			require.NoError(t, d.WriteSector(1, b))

			got0 := make([]byte, d.SectorSize())
			got1 := make([]byte, d.SectorSize())
			require.NoError(t, d.ReadSector(0, got0))
			require.NoError(t, d.ReadSector(1, got1))

			assert.Equal(t, a, got0)
			assert.Equal(t, b, got1)
		})
	}
}
