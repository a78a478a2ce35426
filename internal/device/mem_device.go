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

import "sync"

// MemDevice is an in-memory Device, used by tests that want to exercise the
// buffer cache and inode layer without touching the filesystem.
type MemDevice struct {
	mu         sync.Mutex
	sectorSize int
	sectors    [][]byte
}

// NewMemDevice returns a MemDevice with sectorCount zero-filled sectors.
func NewMemDevice(sectorSize int, sectorCount uint32) *MemDevice {
	sectors := make([][]byte, sectorCount)
	for i := range sectors {
		sectors[i] = make([]byte, sectorSize)
	}
	return &MemDevice{sectorSize: sectorSize, sectors: sectors}
}

func (d *MemDevice) ReadSector(sector uint32, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := checkSector(sector, uint32(len(d.sectors))); err != nil {
		return err
	}
	if err := checkBufLen(buf, d.sectorSize); err != nil {
		return err
	}

	copy(buf, d.sectors[sector])
	recordRead()
	return nil
}

func (d *MemDevice) WriteSector(sector uint32, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := checkSector(sector, uint32(len(d.sectors))); err != nil {
		return err
	}
	if err := checkBufLen(buf, d.sectorSize); err != nil {
		return err
	}

	copy(d.sectors[sector], buf)
	recordWrite()
	return nil
}

func (d *MemDevice) SectorSize() int     { return d.sectorSize }
func (d *MemDevice) SectorCount() uint32 { return uint32(len(d.sectors)) }
func (d *MemDevice) Close() error        { return nil }

var _ Device = (*MemDevice)(nil)
