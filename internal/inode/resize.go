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
)

// sectorCountFor returns how many sectors are needed to hold size bytes,
// the Go equivalent of inode.c's bytes_to_sectors.
func sectorCountFor(size int64) uint32 {
	return uint32((size + cfg.DefaultSectorSize - 1) / cfg.DefaultSectorSize)
}

// resizer grows or shrinks a diskInode's pointer tree to match a target
// size, allocating and zeroing new sectors on growth and releasing sectors
// on shrink. It mirrors inode_file_resize, which performs the same walk
// but panics PANIC ("out of disk space") where this returns an error.
type resizer struct {
	alloc *allocator.Allocator
	c     *cache.Cache
}

func (r *resizer) resize(d *diskInode, newSize int64) error {
	if newSize < 0 || newSize > maxSize {
		return fmt.Errorf("size %d out of range [0, %d]", newSize, maxSize)
	}

	oldSectors := sectorCountFor(int64(d.Length))
	newSectors := sectorCountFor(newSize)

	// Direct blocks.
	lo, hi := uint32(0), uint32(directPointerCount)
	if err := r.resizeRange(d.DP[:], oldSectors, newSectors, lo, hi); err != nil {
		return err
	}

	// Indirect block.
	lo, hi = hi, hi+indirectEntryCount
	if err := r.resizeIndirect(&d.IP, oldSectors, newSectors, lo, hi); err != nil {
		return err
	}

	// Doubly indirect block.
	lo, hi = hi, hi+indirectEntryCount*indirectEntryCount
	if err := r.resizeDoublyIndirect(&d.DIP, oldSectors, newSectors, lo, hi); err != nil {
		return err
	}

	d.Length = uint32(newSize)
	return nil
}

// resizeRange allocates or releases entries idx in [lo, hi) of ptrs whose
// global sector index falls in [oldSectors, newSectors), zeroing newly
// allocated sectors.
func (r *resizer) resizeRange(ptrs []uint32, oldSectors, newSectors, lo, hi uint32) error {
	for idx := lo; idx < hi; idx++ {
		i := idx - lo
		switch {
		case idx < oldSectors && idx >= newSectors:
			// Shrinking: release this sector.
			if err := r.alloc.Release(ptrs[i]); err != nil {
				return err
			}
			ptrs[i] = 0
		case idx >= oldSectors && idx < newSectors:
			// Growing: allocate and zero-fill this sector.
			sector, ok := r.alloc.Allocate()
			if !ok {
				return fmt.Errorf("out of disk space")
			}
			if err := r.zeroSector(sector); err != nil {
				return err
			}
			ptrs[i] = sector
		}
	}
	return nil
}

func (r *resizer) zeroSector(sector uint32) error {
	h, err := r.c.Acquire(sector, true)
	if err != nil {
		return err
	}
	for i := range h.Data() {
		h.Data()[i] = 0
	}
	r.c.Release(h)
	return nil
}

// resizeIndirect handles the single indirect block covering global sector
// indices [lo, hi).
func (r *resizer) resizeIndirect(ip *uint32, oldSectors, newSectors, lo, hi uint32) error {
	if oldSectors >= hi && newSectors >= hi {
		return nil // Already fully allocated on both sides; nothing changes here.
	}
	if oldSectors <= lo && newSectors <= lo {
		return nil // Not reached by either size; nothing to do.
	}

	if *ip == 0 {
		sector, ok := r.alloc.Allocate()
		if !ok {
			return fmt.Errorf("out of disk space")
		}
		if err := r.zeroSector(sector); err != nil {
			return err
		}
		*ip = sector
	}

	h, err := r.c.Acquire(*ip, false)
	if err != nil {
		return err
	}
	block, err := decodePointerBlock(h.Data())
	if err != nil {
		r.c.Release(h)
		return err
	}

	if err := r.resizeRange(block[:], oldSectors, newSectors, lo, hi); err != nil {
		r.c.Release(h)
		return err
	}

	if err := block.encodeInto(h.Data()); err != nil {
		r.c.Release(h)
		return err
	}
	h.MarkDirty()
	r.c.Release(h)

	if newSectors <= lo {
		// Shrunk back below this block's range: free the indirect block
		// itself.
		if err := r.alloc.Release(*ip); err != nil {
			return err
		}
		*ip = 0
	}
	return nil
}

// resizeDoublyIndirect handles the doubly-indirect block covering global
// sector indices [lo, hi).
func (r *resizer) resizeDoublyIndirect(dip *uint32, oldSectors, newSectors, lo, hi uint32) error {
	if oldSectors >= hi && newSectors >= hi {
		return nil
	}
	if oldSectors <= lo && newSectors <= lo {
		return nil
	}

	if *dip == 0 {
		sector, ok := r.alloc.Allocate()
		if !ok {
			return fmt.Errorf("out of disk space")
		}
		if err := r.zeroSector(sector); err != nil {
			return err
		}
		*dip = sector
	}

	h, err := r.c.Acquire(*dip, false)
	if err != nil {
		return err
	}
	outer, err := decodePointerBlock(h.Data())
	if err != nil {
		r.c.Release(h)
		return err
	}

	for i := uint32(0); i < indirectEntryCount; i++ {
		innerLo := lo + i*indirectEntryCount
		innerHi := innerLo + indirectEntryCount
		if err := r.resizeIndirect(&outer[i], oldSectors, newSectors, innerLo, innerHi); err != nil {
			r.c.Release(h)
			return err
		}
	}

	if err := outer.encodeInto(h.Data()); err != nil {
		r.c.Release(h)
		return err
	}
	h.MarkDirty()
	r.c.Release(h)

	if newSectors <= lo {
		if err := r.alloc.Release(*dip); err != nil {
			return err
		}
		*dip = 0
	}
	return nil
}
