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

// Package inode is the storage engine's inode layer: a fixed on-disk
// record addressed through a three-level pointer tree of direct, indirect
// and doubly-indirect sectors, plus the in-memory bookkeeping (open count,
// deny-write count, the open-inodes registry) that lets the same inode be
// opened from more than one place at once. It is the Go counterpart of
// inode.c's struct inode_disk, struct inode and the open_inodes list.
package inode

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/essandess/blockfs/cfg"
)

const (
	magic = 0x494E4F44

	directPointerCount = cfg.DirectPointerCount
	indirectEntryCount = cfg.IndirectEntryCount

	// maxSize is the largest byte length addressable by the pointer tree:
	// direct blocks, plus one indirect block's worth, plus one doubly
	// indirect block's worth.
	maxSize = int64(directPointerCount+indirectEntryCount+indirectEntryCount*indirectEntryCount) * int64(cfg.DefaultSectorSize)
)

// diskInode is the fixed-size record stored at an inode's own sector.
// Every field is 4 bytes so the record is exactly cfg.DefaultSectorSize
// bytes long, the same constraint inode.c asserts with
// ASSERT(sizeof *disk_inode == BLOCK_SECTOR_SIZE).
type diskInode struct {
	Length uint32
	IsDir  uint32
	DP     [directPointerCount]uint32
	IP     uint32
	DIP    uint32
	Magic  uint32
}

func newDiskInode() *diskInode {
	return &diskInode{Magic: magic}
}

func decodeDiskInode(sector []byte) (*diskInode, error) {
	d := &diskInode{}
	if err := binary.Read(bytes.NewReader(sector), binary.LittleEndian, d); err != nil {
		return nil, fmt.Errorf("decoding inode record: %w", err)
	}
	if d.Magic != magic {
		return nil, fmt.Errorf("inode record has bad magic %#x, want %#x", d.Magic, uint32(magic))
	}
	return d, nil
}

func (d *diskInode) encodeInto(sector []byte) error {
	buf := new(bytes.Buffer)
	buf.Grow(len(sector))
	if err := binary.Write(buf, binary.LittleEndian, d); err != nil {
		return fmt.Errorf("encoding inode record: %w", err)
	}
	if buf.Len() != len(sector) {
		return fmt.Errorf("encoded inode record is %d bytes, want %d", buf.Len(), len(sector))
	}
	copy(sector, buf.Bytes())
	return nil
}

// pointerBlock is a sector's worth of sector numbers, used for both the
// indirect and doubly-indirect blocks.
type pointerBlock [indirectEntryCount]uint32

func decodePointerBlock(sector []byte) (*pointerBlock, error) {
	p := &pointerBlock{}
	if err := binary.Read(bytes.NewReader(sector), binary.LittleEndian, p); err != nil {
		return nil, fmt.Errorf("decoding pointer block: %w", err)
	}
	return p, nil
}

func (p *pointerBlock) encodeInto(sector []byte) error {
	buf := new(bytes.Buffer)
	buf.Grow(len(sector))
	if err := binary.Write(buf, binary.LittleEndian, p); err != nil {
		return fmt.Errorf("encoding pointer block: %w", err)
	}
	copy(sector, buf.Bytes())
	return nil
}
