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
	"fmt"
	"sort"
)

// FrameHandle is a reference to a physical memory frame. Handles are
// obtained from a FrameSource and must be Released when no longer
// used, except for handles passed to FrameSource.Reclaim, which takes
// ownership of them.
//
// All operations are best effort and non-blocking. An implementation
// must not wait for a contended frame: TestHotAndSize reports
// (false, pagesize) and TryIsolate reports false instead.
type FrameHandle interface {
	// MarkCold clears the recently-accessed state of the frame so
	// that later accesses can be detected.
	MarkCold()
	// TestHotAndSize reports whether the frame was accessed since
	// it was marked cold, and the size of the mapping through
	// which the access was observed. The size is the base page
	// size unless the frame is mapped as part of a huge mapping,
	// in which case it is the size of the whole mapping.
	TestHotAndSize() (bool, uint64)
	// ClearReferenceSignal clears the reclaim-visible reference
	// state of the frame.
	ClearReferenceSignal()
	// TryIsolate removes the frame from active use lists for
	// reclamation. Returns false if the frame is busy.
	TryIsolate() bool
	// Evictable reports whether an isolated frame can be evicted.
	Evictable() bool
	// RestoreToActiveList undoes a successful TryIsolate.
	RestoreToActiveList()
	// Release drops the handle.
	Release()
}

// FrameSource resolves frame numbers into frame handles and reclaims
// isolated frames. Lookup failures are normal: unmapped, nonexistent
// and transiently unavailable frames simply resolve to (nil, false).
type FrameSource interface {
	// LookupFrame returns a handle to the frame, if resolvable.
	LookupFrame(frame uint64) (FrameHandle, bool)
	// Reclaim evicts as many of the isolated frames as it can and
	// returns the number of frames reclaimed. Reclaim releases
	// all handles in the batch, reclaimed or not.
	Reclaim(batch []FrameHandle) uint64
}

// FrameSourceCreator constructs a frame source. Creation fails if the
// platform support that the source needs is missing.
type FrameSourceCreator func() (FrameSource, error)

// frameSources is a map of frame source name -> creator
var frameSources map[string]FrameSourceCreator = make(map[string]FrameSourceCreator, 0)

func FrameSourceRegister(name string, creator FrameSourceCreator) {
	frameSources[name] = creator
}

func FrameSources() []string {
	keys := make([]string, 0, len(frameSources))
	for key := range frameSources {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func NewFrameSource(name string) (FrameSource, error) {
	if creator, ok := frameSources[name]; ok {
		return creator()
	}
	return nil, fmt.Errorf("invalid frame source name %q", name)
}
