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
	"fmt"

	"github.com/essandess/blockfs/cfg"
	"github.com/essandess/blockfs/internal/allocator"
	"github.com/essandess/blockfs/internal/cache"
	"github.com/essandess/blockfs/internal/locker"
)

// Handle is an open reference to one inode, the Go counterpart of struct
// inode in inode.c. Multiple Opens of the same sector share one Handle, the
// same way Pintos's open_inodes list folds a second inode_open of an
// already-open sector into the existing struct inode and bumps its
// open_cnt.
type Handle struct {
	registry *Inodes
	sector   uint32

	mu           *locker.Mutex
	d            *diskInode
	openCount    int
	removed      bool
	denyWriteCnt int
}

func (h *Handle) checkInvariants() {
	locker.Assert(h.openCount >= 0, "inode %d: negative openCount %d", h.sector, h.openCount)
	locker.Assert(h.denyWriteCnt >= 0, "inode %d: negative denyWriteCnt %d", h.sector, h.denyWriteCnt)
	locker.Assert(h.denyWriteCnt <= h.openCount, "inode %d: denyWriteCnt %d exceeds openCount %d", h.sector, h.denyWriteCnt, h.openCount)
}

// Inodes is the open-inodes registry: it deduplicates concurrent opens of
// the same sector onto one Handle and owns the cache and allocator every
// Handle reads and writes through. It replaces open_inodes, the intrusive
// linked list inode.c scans on every inode_open, with a map.
type Inodes struct {
	mu    *locker.Mutex
	open  map[uint32]*Handle
	c     *cache.Cache
	alloc *allocator.Allocator
}

func (r *Inodes) checkInvariants() {
	locker.Assert(len(r.open) <= 1<<20, "inode registry: implausible open count %d", len(r.open))
	seen := make(map[uint32]bool, len(r.open))
	for sector, h := range r.open {
		locker.Assert(h.sector == sector, "inode registry: sector %d maps to handle for sector %d", sector, h.sector)
		locker.Assert(!seen[sector], "inode registry: sector %d open under more than one handle", sector)
		seen[sector] = true
	}
}

// NewInodes returns a registry backed by c and alloc.
func NewInodes(c *cache.Cache, alloc *allocator.Allocator) *Inodes {
	r := &Inodes{
		open:  make(map[uint32]*Handle),
		c:     c,
		alloc: alloc,
	}
	r.mu = locker.NewMutex("inodes", r.checkInvariants)
	return r
}

func (r *Inodes) resizer() *resizer {
	return &resizer{alloc: r.alloc, c: r.c}
}

// Create allocates sector (which the caller must already own, typically
// via Allocator.Reserve or Allocate) as a fresh inode of the given length
// and directory-ness, zero-filling every data sector up to length. It is
// the Go counterpart of inode_create.
func (r *Inodes) Create(sector uint32, length int64, isDir bool) error {
	if length < 0 || length > maxSize {
		return fmt.Errorf("length %d out of range [0, %d]", length, maxSize)
	}

	d := newDiskInode()
	if isDir {
		d.IsDir = 1
	}
	if err := r.resizer().resize(d, length); err != nil {
		// Roll back whatever direct/indirect/doubly-indirect sectors the
		// failed resize already allocated, the same "resize(staging, 0)"
		// cleanup inode_create's staging-inode discipline requires.
		r.resizer().resize(d, 0)
		return err
	}

	h, err := r.c.Acquire(sector, true)
	if err != nil {
		return err
	}
	defer r.c.Release(h)
	return d.encodeInto(h.Data())
}

// Open returns the Handle for sector, reading its on-disk record if it is
// not already open. It is the Go counterpart of inode_open.
func (r *Inodes) Open(sector uint32) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.open[sector]; ok {
		h.mu.Lock()
		h.openCount++
		h.mu.Unlock()
		return h, nil
	}

	ch, err := r.c.Acquire(sector, false)
	if err != nil {
		return nil, err
	}
	d, err := decodeDiskInode(ch.Data())
	r.c.Release(ch)
	if err != nil {
		return nil, err
	}

	h := &Handle{registry: r, sector: sector, d: d, openCount: 1}
	h.mu = locker.NewMutex(fmt.Sprintf("inode-%d", sector), h.checkInvariants)
	r.open[sector] = h
	return h, nil
}

// Reopen bumps h's open count and returns h itself, the Go counterpart of
// inode_reopen.
func (r *Inodes) Reopen(h *Handle) *Handle {
	h.mu.Lock()
	h.openCount++
	h.mu.Unlock()
	return h
}

// Close drops one reference to h. Once the open count reaches zero, the
// inode's sectors are released to the allocator if Remove was ever called
// on it, and the registry forgets the sector. It is the Go counterpart of
// inode_close.
func (r *Inodes) Close(h *Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h.mu.Lock()
	h.openCount--
	count := h.openCount
	removed := h.removed
	h.mu.Unlock()

	if count > 0 {
		return nil
	}

	delete(r.open, h.sector)

	if !removed {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := r.resizer().resize(h.d, 0); err != nil {
		return err
	}
	return r.alloc.Release(h.sector)
}

// Remove marks h for deletion once its last Close runs, the Go
// counterpart of inode_remove.
func (r *Inodes) Remove(h *Handle) {
	h.mu.Lock()
	h.removed = true
	h.mu.Unlock()
}

// flushLocked writes h's in-memory disk record back to its own cache
// frame. Callers must hold h.mu.
func (r *Inodes) flushLocked(h *Handle) error {
	ch, err := r.c.Acquire(h.sector, false)
	if err != nil {
		return err
	}
	defer r.c.Release(ch)
	if err := h.d.encodeInto(ch.Data()); err != nil {
		return err
	}
	ch.MarkDirty()
	return nil
}

// byteToSector returns the sector number holding byte offset pos of h,
// without allocating. It is the Go counterpart of byte_to_sector, assuming
// (as that function does) that the range has already been grown to
// include pos via a prior Resize.
func (r *Inodes) byteToSector(h *Handle, pos int64) (uint32, error) {
	if pos < 0 || pos >= int64(h.d.Length) {
		return 0, fmt.Errorf("offset %d out of range for inode of length %d", pos, h.d.Length)
	}

	idx := uint32(pos / cfg.DefaultSectorSize)

	if idx < directPointerCount {
		return h.d.DP[idx], nil
	}
	idx -= directPointerCount

	if idx < indirectEntryCount {
		return r.lookupIndirect(h.d.IP, idx)
	}
	idx -= indirectEntryCount

	outerIdx := idx / indirectEntryCount
	innerIdx := idx % indirectEntryCount
	ip, err := r.lookupIndirect(h.d.DIP, outerIdx)
	if err != nil {
		return 0, err
	}
	return r.lookupIndirect(ip, innerIdx)
}

func (r *Inodes) lookupIndirect(blockSector uint32, idx uint32) (uint32, error) {
	ch, err := r.c.Acquire(blockSector, false)
	if err != nil {
		return 0, err
	}
	defer r.c.Release(ch)
	block, err := decodePointerBlock(ch.Data())
	if err != nil {
		return 0, err
	}
	return block[idx], nil
}

// ReadAt reads into buf starting at offset, stopping at the inode's
// current length, and returns the number of bytes actually read. It is
// the Go counterpart of inode_read_at.
func (r *Inodes) ReadAt(h *Handle, buf []byte, offset int64) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	length := int64(h.d.Length)
	read := 0
	for read < len(buf) && offset+int64(read) < length {
		pos := offset + int64(read)
		sector, err := r.byteToSector(h, pos)
		if err != nil {
			return read, err
		}

		sectorOfs := int(pos % cfg.DefaultSectorSize)
		chunk := cfg.DefaultSectorSize - sectorOfs
		if remaining := int(length - pos); chunk > remaining {
			chunk = remaining
		}
		if chunk > len(buf)-read {
			chunk = len(buf) - read
		}

		ch, err := r.c.Acquire(sector, false)
		if err != nil {
			return read, err
		}
		copy(buf[read:read+chunk], ch.Data()[sectorOfs:sectorOfs+chunk])
		r.c.Release(ch)

		read += chunk
	}
	return read, nil
}

// WriteAt writes buf at offset, growing the inode (zero-filling any gap)
// if offset+len(buf) extends past the current length. It is the Go
// counterpart of inode_write_at, including its deny_write_cnt check.
func (r *Inodes) WriteAt(h *Handle, buf []byte, offset int64) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.denyWriteCnt > 0 {
		return 0, fmt.Errorf("inode %d: write denied", h.sector)
	}

	end := offset + int64(len(buf))
	if end > int64(h.d.Length) {
		originalLength := int64(h.d.Length)
		if err := r.resizer().resize(h.d, end); err != nil {
			// Roll back to the pre-resize length so the allocations the
			// failed grow already made don't leak, mirroring inode_write_at's
			// "resize(staging, current_length)" failure path.
			r.resizer().resize(h.d, originalLength)
			return 0, err
		}
		if err := r.flushLocked(h); err != nil {
			return 0, err
		}
	}

	written := 0
	for written < len(buf) {
		pos := offset + int64(written)
		sector, err := r.byteToSector(h, pos)
		if err != nil {
			return written, err
		}

		sectorOfs := int(pos % cfg.DefaultSectorSize)
		chunk := cfg.DefaultSectorSize - sectorOfs
		if chunk > len(buf)-written {
			chunk = len(buf) - written
		}

		write := chunk == cfg.DefaultSectorSize
		ch, err := r.c.Acquire(sector, write)
		if err != nil {
			return written, err
		}
		copy(ch.Data()[sectorOfs:sectorOfs+chunk], buf[written:written+chunk])
		ch.MarkDirty()
		r.c.Release(ch)

		written += chunk
	}
	return written, nil
}

// Resize grows or shrinks h to exactly newSize bytes, zero-filling any
// newly exposed range on growth.
func (r *Inodes) Resize(h *Handle, newSize int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	// A shrink that ends mid-sector zeroes the kept sector's tail, so a
	// later grow exposes zeros there rather than the truncated bytes.
	if newSize >= 0 && newSize < int64(h.d.Length) && newSize%cfg.DefaultSectorSize != 0 {
		sector, err := r.byteToSector(h, newSize)
		if err != nil {
			return err
		}
		ch, err := r.c.Acquire(sector, true)
		if err != nil {
			return err
		}
		clear(ch.Data()[newSize%cfg.DefaultSectorSize:])
		r.c.Release(ch)
	}

	if err := r.resizer().resize(h.d, newSize); err != nil {
		return err
	}
	return r.flushLocked(h)
}

// Length returns h's current length in bytes.
func (h *Handle) Length() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return int64(h.d.Length)
}

// IsDir reports whether h was created as a directory inode.
func (h *Handle) IsDir() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.d.IsDir != 0
}

// SetIsDir sets h's directory flag and marks its on-disk record dirty,
// the Go counterpart of inode_set_isdir.
func (r *Inodes) SetIsDir(h *Handle, v bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if v {
		h.d.IsDir = 1
	} else {
		h.d.IsDir = 0
	}
	return r.flushLocked(h)
}

// Inumber returns h's sector number, its stable identity.
func (h *Handle) Inumber() uint32 {
	return h.sector
}

// OpenCount returns how many times h has been opened or reopened without a
// matching Close.
func (h *Handle) OpenCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.openCount
}

// DenyWrite increments h's deny-write count; WriteAt fails while it is
// above zero. It is the Go counterpart of inode_deny_write.
func (h *Handle) DenyWrite() {
	h.mu.Lock()
	h.denyWriteCnt++
	h.mu.Unlock()
}

// AllowWrite decrements h's deny-write count. It is the Go counterpart of
// inode_allow_write.
func (h *Handle) AllowWrite() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.denyWriteCnt <= 0 {
		return fmt.Errorf("inode %d: AllowWrite called without matching DenyWrite", h.sector)
	}
	h.denyWriteCnt--
	return nil
}
