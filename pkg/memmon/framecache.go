// Copyright 2022 Intel Corporation. All Rights Reserved.
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

package memmon

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// frameCache avoids repeated frame state lookups for the same frame
// within a single sampling round. Many regions' sampling addresses can
// resolve to the same frame, or to frames whose state was already
// computed as a side effect of checking a huge mapping.
//
// The cache is purely an optimization: every entry can be dropped or
// overwritten at any time without changing monitoring results, only
// the number of frame source calls. Slots are reused in place, so a
// round produces no allocations, and starting a round is O(1): the
// generation counter is advanced and all old entries turn stale.
const (
	frameCacheBits   = 8
	frameCacheSize   = 1 << frameCacheBits
	frameCacheProbes = 4
)

type frameCacheEntry struct {
	gen        uint64
	frame      uint64
	sizeSeen   uint64 // 0 means hotness not computed yet this round
	accessed   bool
	coldMarked bool
}

type frameCache struct {
	gen     uint64
	entries [frameCacheSize]frameCacheEntry
}

func frameCacheIndex(frame uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], frame)
	return xxhash.Sum64(buf[:]) & (frameCacheSize - 1)
}

// beginRound invalidates all entries without touching them. Generation
// 0 is never active, so zero-valued entries are stale from the start.
func (c *frameCache) beginRound() {
	c.gen++
	if c.gen == 0 {
		c.gen = 1
	}
}

// lookup returns the live entry of the frame, if any.
func (c *frameCache) lookup(frame uint64) *frameCacheEntry {
	idx := frameCacheIndex(frame)
	for i := uint64(0); i < frameCacheProbes; i++ {
		e := &c.entries[(idx+i)&(frameCacheSize-1)]
		if e.gen != c.gen {
			continue
		}
		if e.frame == frame {
			return e
		}
	}
	return nil
}

// claimSlot returns a slot for storing the state of the frame. A stale
// slot in the probe window is preferred; if all slots in the window
// are live, the first one is overwritten. The caller must fill in all
// fields of the returned entry.
func (c *frameCache) claimSlot(frame uint64) *frameCacheEntry {
	idx := frameCacheIndex(frame)
	for i := uint64(0); i < frameCacheProbes; i++ {
		e := &c.entries[(idx+i)&(frameCacheSize-1)]
		if e.gen != c.gen {
			e.gen = c.gen
			e.frame = frame
			return e
		}
	}
	stats.Store(StatsFrameCacheEviction{})
	e := &c.entries[idx&(frameCacheSize-1)]
	e.gen = c.gen
	e.frame = frame
	return e
}
