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

// Package cache is the storage engine's buffer cache: a fixed number of
// sector-sized frames shared by every inode, backed by a device.Device. It
// is the Go counterpart of the Pintos buffer_cache_* functions in
// inode.c: a fully-associative, LRU-evicted cache where a frame currently
// pinned by a reader or writer can't be evicted out from under them.
package cache

import (
	"container/list"
	"sync"

	"github.com/essandess/blockfs/internal/device"
	"github.com/essandess/blockfs/internal/locker"
	"github.com/essandess/blockfs/internal/metrics"
)

// frame is one cache slot. Its cond is signaled whenever refCnt drops, so a
// concurrent Acquire of the same block that found refCnt > 0 can wake up
// and retry instead of busy-waiting.
type frame struct {
	blockID uint32
	valid   bool
	dirty   bool
	refCnt  int
	data    []byte
	cond    *sync.Cond
}

// Cache is a fixed-size buffer cache over a single device.Device.
type Cache struct {
	mu        *locker.Mutex
	dev       device.Device
	order     *list.List // of *frame; front = most recently used
	byBlock   map[uint32]*list.Element
	numFrames int
	access    int
	hits      int
}

// New returns a Cache of numFrames frames over dev, all initially invalid.
func New(dev device.Device, numFrames int) *Cache {
	c := &Cache{
		dev:       dev,
		order:     list.New(),
		byBlock:   make(map[uint32]*list.Element, numFrames),
		numFrames: numFrames,
	}
	c.mu = locker.NewMutex("cache", c.checkInvariants)

	for i := 0; i < numFrames; i++ {
		f := &frame{data: make([]byte, dev.SectorSize())}
		f.cond = sync.NewCond(c.mu)
		c.order.PushBack(f)
	}

	return c
}

func (c *Cache) checkInvariants() {
	seen := make(map[uint32]bool)
	count := 0
	for e := c.order.Front(); e != nil; e = e.Next() {
		f := e.Value.(*frame)
		count++
		locker.Assert(f.refCnt >= 0, "cache: frame for block %d has negative refCnt %d", f.blockID, f.refCnt)
		if !f.valid {
			continue
		}
		locker.Assert(!seen[f.blockID], "cache: block %d cached in more than one frame", f.blockID)
		seen[f.blockID] = true
		elem, ok := c.byBlock[f.blockID]
		locker.Assert(ok && elem.Value.(*frame) == f, "cache: byBlock index out of sync for block %d", f.blockID)
	}
	locker.Assert(count == c.numFrames, "cache: LRU list length changed, want %d got %d", c.numFrames, count)
	locker.Assert(len(c.byBlock) == len(seen), "cache: byBlock has stale entries")
}

// Handle is a pinned reference to one cached sector, returned by Acquire.
// The caller must call Release exactly once.
type Handle struct {
	cache *Cache
	frame *frame
}

// Data returns the sector's bytes. It is the cache's own backing buffer,
// not a copy: callers must not retain the slice past Release.
func (h *Handle) Data() []byte { return h.frame.data }

// MarkDirty flags the sector for write-back even when Acquire was not
// called with write set, for code paths that decide to modify a block
// only after inspecting it.
func (h *Handle) MarkDirty() {
	h.cache.mu.Lock()
	h.frame.dirty = true
	h.cache.mu.Unlock()
}

// Acquire pins the frame holding blockID, reading it from the device on a
// miss and evicting the least-recently-used frame if every frame is full.
// write marks the frame dirty immediately, for callers about to overwrite
// the whole sector without reading it first.
func (c *Cache) Acquire(blockID uint32, write bool) (*Handle, error) {
	c.mu.Lock()
	c.access++

	// A frame's cond is per-frame, not per-block: while this goroutine
	// waits out a pin, the same frame can be repurposed for a different
	// block by a concurrent miss-path Acquire also waiting on it. Re-check
	// byBlock after every wake instead of trusting the elem/f found before
	// waiting.
	for {
		elem, ok := c.byBlock[blockID]
		if !ok {
			break
		}
		f := elem.Value.(*frame)
		if f.refCnt > 0 {
			f.cond.Wait()
			continue
		}

		c.hits++
		metrics.CacheAccesses.Inc()
		metrics.CacheHits.Inc()

		c.order.MoveToFront(elem)
		if write {
			f.dirty = true
		}
		f.refCnt++
		c.mu.Unlock()
		return &Handle{cache: c, frame: f}, nil
	}

	metrics.CacheAccesses.Inc()

	victim := c.order.Back()
	f := victim.Value.(*frame)
	for f.refCnt > 0 {
		f.cond.Wait()
		victim = c.order.Back()
		f = victim.Value.(*frame)
	}

	if f.valid && f.dirty {
		if err := c.dev.WriteSector(f.blockID, f.data); err != nil {
			c.mu.Unlock()
			return nil, err
		}
	}
	if f.valid {
		delete(c.byBlock, f.blockID)
		metrics.CacheEvictions.Inc()
	}

	if err := c.dev.ReadSector(blockID, f.data); err != nil {
		c.mu.Unlock()
		return nil, err
	}

	f.blockID = blockID
	f.valid = true
	f.dirty = write
	f.refCnt = 1

	c.order.MoveToFront(victim)
	c.byBlock[blockID] = victim

	c.mu.Unlock()
	return &Handle{cache: c, frame: f}, nil
}

// Release unpins a Handle. The frame becomes eligible for eviction (if its
// refCnt reaches zero) and one Acquire waiting on this frame's condition
// variable, if any, wakes.
func (c *Cache) Release(h *Handle) {
	c.mu.Lock()
	h.frame.refCnt--
	h.frame.cond.Signal()
	c.mu.Unlock()
}

// Flush writes every dirty, valid frame back to the device.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushLocked()
}

func (c *Cache) flushLocked() error {
	for e := c.order.Front(); e != nil; e = e.Next() {
		f := e.Value.(*frame)
		if f.valid && f.dirty {
			if err := c.dev.WriteSector(f.blockID, f.data); err != nil {
				return err
			}
			f.dirty = false
		}
	}
	return nil
}

// Reset flushes the cache, then invalidates every frame and zeroes the
// hit-rate counters. It mirrors buffer_cache_reset, used between benchmark
// runs so one run's hits don't pollute the next's hit rate.
func (c *Cache) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.flushLocked(); err != nil {
		return err
	}
	for e := c.order.Front(); e != nil; e = e.Next() {
		e.Value.(*frame).valid = false
	}
	c.access = 0
	c.hits = 0
	return nil
}

// HitRate returns hits/accesses since the cache was created or last Reset,
// or 0 if there have been no accesses yet.
func (c *Cache) HitRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.access == 0 {
		return 0
	}
	return float64(c.hits) / float64(c.access)
}

// Close flushes the cache and closes the underlying device.
func (c *Cache) Close() error {
	if err := c.Flush(); err != nil {
		return err
	}
	return c.dev.Close()
}
