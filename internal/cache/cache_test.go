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

package cache_test

import (
	"bytes"
	"testing"

	"github.com/essandess/blockfs/internal/cache"
	"github.com/essandess/blockfs/internal/device"
	"github.com/essandess/blockfs/internal/locker"
	. "github.com/jacobsa/oglematchers"
	. "github.com/jacobsa/ogletest"
)

func TestCache(t *testing.T) { RunTests(t) }

////////////////////////////////////////////////////////////////////////
// Boilerplate
////////////////////////////////////////////////////////////////////////

func init() {
	locker.EnableInvariantsCheck()
	RegisterTestSuite(&CacheTest{})
}

const sectorSize = 512

type CacheTest struct {
	dev *device.MemDevice
	c   *cache.Cache
}

func (t *CacheTest) SetUp(ti *TestInfo) {
	t.dev = device.NewMemDevice(sectorSize, 16)
	t.c = cache.New(t.dev, 4)
}

func sectorOf(b byte) []byte {
	return bytes.Repeat([]byte{b}, sectorSize)
}

////////////////////////////////////////////////////////////////////////
// Tests
////////////////////////////////////////////////////////////////////////

func (t *CacheTest) MissReadsFromDevice() {
	AssertEq(nil, t.dev.WriteSector(2, sectorOf(0x42)))

	h, err := t.c.Acquire(2, false)
	AssertEq(nil, err)
	ExpectThat(h.Data(), DeepEquals(sectorOf(0x42)))
	t.c.Release(h)
}

func (t *CacheTest) HitDoesNotRereadFromDevice() {
	h, err := t.c.Acquire(0, true)
	AssertEq(nil, err)
	copy(h.Data(), sectorOf(0x11))
	t.c.Release(h)

	// Mutate the device directly; a hit must not see this.
	AssertEq(nil, t.dev.WriteSector(0, sectorOf(0x99)))

	h, err = t.c.Acquire(0, false)
	AssertEq(nil, err)
	ExpectThat(h.Data(), DeepEquals(sectorOf(0x11)))
	t.c.Release(h)
}

func (t *CacheTest) HitRateTracksAccessesAndHits() {
	ExpectEq(0, t.c.HitRate())

	h, _ := t.c.Acquire(0, false)
	t.c.Release(h)
	h, _ = t.c.Acquire(0, false)
	t.c.Release(h)

	ExpectEq(0.5, t.c.HitRate())
}

func (t *CacheTest) WriteIsNotVisibleOnDeviceUntilFlush() {
	h, err := t.c.Acquire(0, true)
	AssertEq(nil, err)
	copy(h.Data(), sectorOf(0x55))
	t.c.Release(h)

	buf := make([]byte, sectorSize)
	AssertEq(nil, t.dev.ReadSector(0, buf))
	ExpectThat(buf, DeepEquals(sectorOf(0x00)))

	AssertEq(nil, t.c.Flush())

	AssertEq(nil, t.dev.ReadSector(0, buf))
	ExpectThat(buf, DeepEquals(sectorOf(0x55)))
}

func (t *CacheTest) EvictionWritesBackDirtyFrame() {
	// Dirty block 0, then touch 1, 2, 3 so block 0 becomes the LRU frame
	// among the cache's four slots.
	h, err := t.c.Acquire(0, true)
	AssertEq(nil, err)
	copy(h.Data(), sectorOf(0x77))
	t.c.Release(h)

	for i := uint32(1); i < 4; i++ {
		h, err := t.c.Acquire(i, false)
		AssertEq(nil, err)
		t.c.Release(h)
	}

	// A fifth distinct block forces eviction of block 0, the LRU frame.
	h, err = t.c.Acquire(4, false)
	AssertEq(nil, err)
	t.c.Release(h)

	// Eviction must have written block 0 back to the device even though
	// nobody called Flush.
	buf := make([]byte, sectorSize)
	AssertEq(nil, t.dev.ReadSector(0, buf))
	ExpectThat(buf, DeepEquals(sectorOf(0x77)))
}

func (t *CacheTest) ResetClearsHitRateAndInvalidatesFrames() {
	h, _ := t.c.Acquire(0, true)
	copy(h.Data(), sectorOf(0x33))
	t.c.Release(h)
	h, _ = t.c.Acquire(0, false)
	t.c.Release(h)
	AssertEq(0.5, t.c.HitRate())

	AssertEq(nil, t.c.Reset())

	ExpectEq(0, t.c.HitRate())

	// The dirty block was flushed by Reset.
	buf := make([]byte, sectorSize)
	AssertEq(nil, t.dev.ReadSector(0, buf))
	ExpectThat(buf, DeepEquals(sectorOf(0x33)))
}

func (t *CacheTest) ConcurrentAcquireOfSameBlockSerializes() {
	const goroutines = 8
	done := make(chan struct{}, goroutines)

	for i := 0; i < goroutines; i++ {
		go func() {
			h, err := t.c.Acquire(0, true)
			AssertEq(nil, err)
			h.Data()[0]++
			t.c.Release(h)
			done <- struct{}{}
		}()
	}
	for i := 0; i < goroutines; i++ {
		<-done
	}

	h, err := t.c.Acquire(0, false)
	AssertEq(nil, err)
	ExpectEq(byte(goroutines), h.Data()[0])
	t.c.Release(h)
}
