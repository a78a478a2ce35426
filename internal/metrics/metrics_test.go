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

package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestCounterValueOfFreshCounterIsZero(t *testing.T) {
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_fresh_counter"})
	assert.Equal(t, float64(0), counterValue(c))
}

func TestCounterValueTracksAdd(t *testing.T) {
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter_add"})
	c.Add(3)
	c.Add(2)
	assert.Equal(t, float64(5), counterValue(c))
}

func TestHitRateReflectsAccessesAndHits(t *testing.T) {
	before := counterValue(CacheAccesses)
	hitsBefore := counterValue(CacheHits)
	CacheAccesses.Add(4)
	CacheHits.Add(3)

	assert.Equal(t, (hitsBefore+3)/(before+4), HitRate())
}

func TestHandlerServesRegisteredCollectors(t *testing.T) {
	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()

	Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "blockfs_cache_accesses_total")
}
