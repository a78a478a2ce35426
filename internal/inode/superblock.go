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

package inode

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/essandess/blockfs/internal/cache"
	"github.com/google/uuid"
)

const (
	// SuperblockSector holds the volume header; RootSector holds the root
	// directory's inode. Both are reserved at format time, the Go
	// counterpart of ROOT_DIR_SECTOR in the original free-map layout.
	SuperblockSector = 0
	RootSector       = 1

	superblockMagic = 0x424C4B46 // "BLKF"
)

// Superblock is the volume header written to SuperblockSector by format.
// It exists only to make two images distinguishable from one another and
// to let `stat` report the geometry an image was formatted with, since
// FileDevice itself treats sector size and count as caller-supplied.
type Superblock struct {
	VolumeID    uuid.UUID
	SectorSize  uint32
	SectorCount uint32
}

type rawSuperblock struct {
	Magic       uint32
	VolumeID    [16]byte
	SectorSize  uint32
	SectorCount uint32
}

// WriteSuperblock stamps sb into SuperblockSector.
func WriteSuperblock(c *cache.Cache, sb Superblock) error {
	raw := rawSuperblock{
		Magic:       superblockMagic,
		SectorSize:  sb.SectorSize,
		SectorCount: sb.SectorCount,
	}
	copy(raw.VolumeID[:], sb.VolumeID[:])

	h, err := c.Acquire(SuperblockSector, true)
	if err != nil {
		return err
	}
	defer c.Release(h)

	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, &raw); err != nil {
		return fmt.Errorf("encoding superblock: %w", err)
	}
	if buf.Len() > len(h.Data()) {
		return fmt.Errorf("superblock record is %d bytes, sector is only %d", buf.Len(), len(h.Data()))
	}
	for i := range h.Data() {
		h.Data()[i] = 0
	}
	copy(h.Data(), buf.Bytes())
	h.MarkDirty()
	return nil
}

// ReadSuperblock reads and validates the superblock at SuperblockSector.
func ReadSuperblock(c *cache.Cache) (Superblock, error) {
	h, err := c.Acquire(SuperblockSector, false)
	if err != nil {
		return Superblock{}, err
	}
	defer c.Release(h)

	var raw rawSuperblock
	if err := binary.Read(bytes.NewReader(h.Data()), binary.LittleEndian, &raw); err != nil {
		return Superblock{}, fmt.Errorf("decoding superblock: %w", err)
	}
	if raw.Magic != superblockMagic {
		return Superblock{}, fmt.Errorf("superblock has bad magic %#x, want %#x", raw.Magic, uint32(superblockMagic))
	}

	id, err := uuid.FromBytes(raw.VolumeID[:])
	if err != nil {
		return Superblock{}, fmt.Errorf("decoding volume UUID: %w", err)
	}

	return Superblock{
		VolumeID:    id,
		SectorSize:  raw.SectorSize,
		SectorCount: raw.SectorCount,
	}, nil
}
