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

// Package device is the bottom of the storage engine: a sector-addressed
// block device, the thing the buffer cache reads misses from and flushes
// dirty frames to. It corresponds to the Pintos block layer that sits below
// the filesystem's buffer cache and inode code.
package device

import (
	"fmt"

	"github.com/essandess/blockfs/internal/metrics"
)

// Device is a fixed-size array of fixed-size sectors, addressed by sector
// number starting at 0.
type Device interface {
	ReadSector(sector uint32, buf []byte) error
	WriteSector(sector uint32, buf []byte) error
	SectorSize() int
	SectorCount() uint32
	Close() error
}

// ErrSectorOutOfRange is returned when a sector number is >= SectorCount.
type ErrSectorOutOfRange struct {
	Sector uint32
	Count  uint32
}

func (e *ErrSectorOutOfRange) Error() string {
	return fmt.Sprintf("sector %d out of range for device with %d sectors", e.Sector, e.Count)
}

func checkSector(sector, count uint32) error {
	if sector >= count {
		return &ErrSectorOutOfRange{Sector: sector, Count: count}
	}
	return nil
}

func checkBufLen(buf []byte, sectorSize int) error {
	if len(buf) != sectorSize {
		return fmt.Errorf("buffer has length %d, want sector size %d", len(buf), sectorSize)
	}
	return nil
}

func recordRead()  { metrics.DeviceReads.Inc() }
func recordWrite() { metrics.DeviceWrites.Inc() }
