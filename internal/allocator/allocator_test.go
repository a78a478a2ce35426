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

package allocator

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAllocatorAllFree(t *testing.T) {
	a := New(100)
	assert.Equal(t, 100, a.FreeCount())
}

func TestAllocateDecrementsFreeCount(t *testing.T) {
	a := New(10)
	_, ok := a.Allocate()
	require.True(t, ok)
	assert.Equal(t, 9, a.FreeCount())
}

func TestAllocateNeverReturnsSameSectorTwice(t *testing.T) {
	a := New(8)
	seen := make(map[uint32]bool)
	for i := 0; i < 8; i++ {
		sector, ok := a.Allocate()
		require.True(t, ok)
		assert.False(t, seen[sector], "sector %d allocated twice", sector)
		seen[sector] = true
	}
}

func TestAllocateFailsWhenExhausted(t *testing.T) {
	a := New(4)
	for i := 0; i < 4; i++ {
		_, ok := a.Allocate()
		require.True(t, ok)
	}
	_, ok := a.Allocate()
	assert.False(t, ok)
}

func TestReleaseMakesSectorAvailableAgain(t *testing.T) {
	a := New(4)
	sector, ok := a.Allocate()
	require.True(t, ok)

	require.NoError(t, a.Release(sector))
	assert.Equal(t, 4, a.FreeCount())

	again, ok := a.Allocate()
	require.True(t, ok)
	assert.Equal(t, sector, again)
}

func TestReserveMarksSectorUsedWithoutAllocating(t *testing.T) {
	a := New(4)
	require.NoError(t, a.Reserve(0))
	assert.Equal(t, 3, a.FreeCount())

	for i := 0; i < 3; i++ {
		sector, ok := a.Allocate()
		require.True(t, ok)
		assert.NotEqual(t, uint32(0), sector)
	}
}

func TestReleaseOutOfRangeErrors(t *testing.T) {
	a := New(4)
	assert.Error(t, a.Release(4))
}

func TestAllocateNotMultipleOf64DoesNotExceedCount(t *testing.T) {
	a := New(70)
	assert.Equal(t, 70, a.FreeCount())
	for i := 0; i < 70; i++ {
		_, ok := a.Allocate()
		require.True(t, ok)
	}
	_, ok := a.Allocate()
	assert.False(t, ok)
}

func TestConcurrentAllocateIsRace_Free(t *testing.T) {
	a := New(1000)
	var wg sync.WaitGroup
	results := make(chan uint32, 1000)

	for i := 0; i < 1000; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sector, ok := a.Allocate()
			if ok {
				results <- sector
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[uint32]bool)
	for sector := range results {
		assert.False(t, seen[sector])
		seen[sector] = true
	}
	assert.Equal(t, 1000, len(seen))
}
