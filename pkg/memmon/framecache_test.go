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
	"testing"
)

// framesInBucket returns count frame numbers that hash to the same
// cache bucket.
func framesInBucket(t *testing.T, count int) []uint64 {
	t.Helper()
	buckets := make(map[uint64][]uint64)
	for frame := uint64(1); frame < 1000000; frame++ {
		idx := frameCacheIndex(frame)
		buckets[idx] = append(buckets[idx], frame)
		if len(buckets[idx]) == count {
			return buckets[idx]
		}
	}
	t.Fatalf("could not find %d frames hashing to the same bucket", count)
	return nil
}

func TestFrameCacheRoundReset(t *testing.T) {
	c := &frameCache{}
	c.beginRound()
	if e := c.lookup(42); e != nil {
		t.Errorf("lookup on an empty round: expected no entry, got %+v", e)
	}
	e := c.claimSlot(42)
	e.sizeSeen = constUPagesize
	e.accessed = true
	e.coldMarked = true
	if e := c.lookup(42); e == nil || !e.accessed {
		t.Errorf("lookup after claim: expected accessed entry, got %+v", e)
	}
	c.beginRound()
	if e := c.lookup(42); e != nil {
		t.Errorf("lookup after new round: expected no entry, got %+v", e)
	}
}

func TestFrameCacheGenerationWrap(t *testing.T) {
	c := &frameCache{}
	c.gen = ^uint64(0)
	c.beginRound()
	if c.gen == 0 {
		t.Errorf("generation 0 must never be active")
	}
}

func TestFrameCacheProbeWindowEviction(t *testing.T) {
	frames := framesInBucket(t, frameCacheProbes+1)
	c := &frameCache{}
	c.beginRound()
	// The first frameCacheProbes frames fill the probe window.
	for _, frame := range frames[:frameCacheProbes] {
		e := c.claimSlot(frame)
		e.sizeSeen = constUPagesize
		e.accessed = false
		e.coldMarked = true
	}
	for _, frame := range frames[:frameCacheProbes] {
		if c.lookup(frame) == nil {
			t.Fatalf("frame %d not found after filling the probe window", frame)
		}
	}
	// One more claim in the same bucket overwrites the first slot.
	e := c.claimSlot(frames[frameCacheProbes])
	e.sizeSeen = constUPagesize
	e.accessed = true
	e.coldMarked = true
	if c.lookup(frames[0]) != nil {
		t.Errorf("frame %d still found, expected eviction", frames[0])
	}
	for _, frame := range frames[1 : frameCacheProbes+1] {
		if c.lookup(frame) == nil {
			t.Errorf("frame %d not found after eviction of an older entry", frame)
		}
	}
}

func TestFrameCacheEvictionForcesRecomputation(t *testing.T) {
	frames := framesInBucket(t, frameCacheProbes+1)
	src, _ := NewFrameSourceStub()
	stub := src.(*FrameSourceStub)
	backend, _ := NewBackendPaddr()
	ctx := NewContext(src)

	target := NewTarget("evict")
	for _, frame := range frames {
		stub.MapFrame(frame)
		stub.Touch(frame)
		target.AddRegion(NewRegion(frame*constUPagesize, (frame+1)*constUPagesize))
	}
	ctx.AddTarget(target)
	ctx.SetSamplingRand(func(start, stop uint64) uint64 { return start })

	backend.PrepareAccessChecks(ctx)
	for _, frame := range frames {
		stub.Touch(frame)
	}
	if max := backend.CheckAccesses(ctx); max != 1 {
		t.Errorf("expected max accesses 1, got %d", max)
	}
	// All sample frames collide in one bucket, so the last claims
	// evicted earlier results. A second check pass re-resolves the
	// evicted frames but reuses the still-cached ones.
	hotTestsAfterFirst := stub.HotTestCalls()
	if hotTestsAfterFirst != len(frames) {
		t.Errorf("expected %d hot tests in the first pass, got %d", len(frames), hotTestsAfterFirst)
	}
	for _, r := range target.Regions() {
		r.ResetNrAccesses()
	}
	if max := backend.CheckAccesses(ctx); max != 1 {
		t.Errorf("expected max accesses 1 on recheck, got %d", max)
	}
	recomputed := stub.HotTestCalls() - hotTestsAfterFirst
	if recomputed == 0 || recomputed >= len(frames) {
		t.Errorf("expected some but not all of %d frames re-resolved, got %d",
			len(frames), recomputed)
	}
}
