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

// newPaddrTest returns a paddr backend and a context on a stub frame
// source. Sampling always picks the first address of a region so that
// tests control which frame gets sampled.
func newPaddrTest(t *testing.T) (Backend, *Context, *FrameSourceStub) {
	t.Helper()
	src, err := NewFrameSourceStub()
	if err != nil {
		t.Fatalf("creating stub frame source failed: %v", err)
	}
	backend, err := NewBackend("paddr")
	if err != nil {
		t.Fatalf("creating paddr backend failed: %v", err)
	}
	ctx := NewContext(src)
	ctx.SetSamplingRand(func(start, stop uint64) uint64 { return start })
	return backend, ctx, src.(*FrameSourceStub)
}

func frameRegion(frame uint64) *Region {
	return NewRegion(frame*constUPagesize, (frame+1)*constUPagesize)
}

func TestPrepareColdMarkDedup(t *testing.T) {
	backend, ctx, stub := newPaddrTest(t)
	stub.MapFrame(100)
	ctx.AddTarget(NewTarget("a", frameRegion(100)))
	ctx.AddTarget(NewTarget("b", frameRegion(100)))

	backend.PrepareAccessChecks(ctx)
	if calls := stub.ColdMarkCalls(); calls != 1 {
		t.Errorf("two regions sampling the same frame: expected 1 cold mark, got %d", calls)
	}

	// The dedup holds within a round only.
	backend.PrepareAccessChecks(ctx)
	if calls := stub.ColdMarkCalls(); calls != 2 {
		t.Errorf("second round: expected 2 cold marks in total, got %d", calls)
	}
}

func TestCheckAccessResultReuse(t *testing.T) {
	backend, ctx, stub := newPaddrTest(t)
	stub.MapFrame(100)
	target := NewTarget("t", frameRegion(100), frameRegion(100))
	ctx.AddTarget(target)

	backend.PrepareAccessChecks(ctx)
	stub.Touch(100)
	max := backend.CheckAccesses(ctx)

	if calls := stub.HotTestCalls(); calls != 1 {
		t.Errorf("two regions sampling the same frame: expected 1 hot test, got %d", calls)
	}
	if max != 1 {
		t.Errorf("expected max accesses 1, got %d", max)
	}
	for _, r := range target.Regions() {
		if r.NrAccesses() != 1 {
			t.Errorf("region %s: expected 1 access, got %d", r, r.NrAccesses())
		}
	}
}

func TestCheckAccessHugeMappingShared(t *testing.T) {
	backend, ctx, stub := newPaddrTest(t)
	stub.MapHuge(512, 512)
	target := NewTarget("t", frameRegion(600), frameRegion(700))
	ctx.AddTarget(target)

	backend.PrepareAccessChecks(ctx)
	stub.Touch(600)
	max := backend.CheckAccesses(ctx)

	// Frames 600 and 700 map to the same huge mapping: the result of
	// the first test covers the second sample.
	if calls := stub.HotTestCalls(); calls != 1 {
		t.Errorf("two samples in one huge mapping: expected 1 hot test, got %d", calls)
	}
	if max != 1 {
		t.Errorf("expected max accesses 1, got %d", max)
	}
	for _, r := range target.Regions() {
		if r.NrAccesses() != 1 {
			t.Errorf("region %s: expected 1 access, got %d", r, r.NrAccesses())
		}
	}
}

func TestCheckAccessHugeMappingCold(t *testing.T) {
	backend, ctx, stub := newPaddrTest(t)
	stub.MapHuge(512, 512)
	target := NewTarget("t", frameRegion(600), frameRegion(700))
	ctx.AddTarget(target)

	backend.PrepareAccessChecks(ctx)
	if max := backend.CheckAccesses(ctx); max != 0 {
		t.Errorf("untouched huge mapping: expected max accesses 0, got %d", max)
	}
	if calls := stub.HotTestCalls(); calls != 1 {
		t.Errorf("expected the cold result to be shared, got %d hot tests", calls)
	}
}

func TestUnresolvableFramesAreCold(t *testing.T) {
	backend, ctx, stub := newPaddrTest(t)
	target := NewTarget("t", NewRegion(0x1000, 0x5000))
	ctx.AddTarget(target)

	backend.PrepareAccessChecks(ctx)
	if calls := stub.ColdMarkCalls(); calls != 0 {
		t.Errorf("unmapped frame: expected 0 cold marks, got %d", calls)
	}
	if max := backend.CheckAccesses(ctx); max != 0 {
		t.Errorf("unmapped frame: expected max accesses 0, got %d", max)
	}
	if n := target.Regions()[0].NrAccesses(); n != 0 {
		t.Errorf("unmapped frame: expected 0 accesses, got %d", n)
	}
}

func TestAccessCountersAccumulateOverRounds(t *testing.T) {
	backend, ctx, stub := newPaddrTest(t)
	stub.MapFrame(10)
	stub.MapFrame(20)
	hotRegion := frameRegion(10)
	coldRegion := frameRegion(20)
	ctx.AddTarget(NewTarget("t", hotRegion, coldRegion))

	for round := 1; round <= 2; round++ {
		backend.PrepareAccessChecks(ctx)
		stub.Touch(10)
		if max := backend.CheckAccesses(ctx); max != round {
			t.Errorf("round %d: expected max accesses %d, got %d", round, round, max)
		}
	}
	if n := hotRegion.NrAccesses(); n != 2 {
		t.Errorf("hot region: expected 2 accesses, got %d", n)
	}
	if n := coldRegion.NrAccesses(); n != 0 {
		t.Errorf("cold region: expected 0 accesses, got %d", n)
	}
}

// TestCheckAccessesWithoutCache verifies that the frame cache only
// saves frame source calls: counters come out the same when every
// cached result is thrown away mid-round.
func TestCheckAccessesWithoutCache(t *testing.T) {
	run := func(dropCache bool) []int {
		backend, ctx, stub := newPaddrTest(t)
		stub.MapFrame(10)
		stub.MapHuge(512, 512)
		target := NewTarget("t",
			frameRegion(10), frameRegion(10),
			frameRegion(600), frameRegion(700),
			frameRegion(9999))
		ctx.AddTarget(target)

		backend.PrepareAccessChecks(ctx)
		if dropCache {
			ctx.cache = frameCache{}
		}
		stub.Touch(10)
		stub.Touch(600)
		backend.CheckAccesses(ctx)

		counters := []int{}
		for _, r := range target.Regions() {
			counters = append(counters, r.NrAccesses())
		}
		return counters
	}

	cached := run(false)
	uncached := run(true)
	for i := range cached {
		if cached[i] != uncached[i] {
			t.Errorf("region %d: %d accesses with cache, %d without",
				i, cached[i], uncached[i])
		}
	}
}

func TestApplySchemeNonPageout(t *testing.T) {
	backend, ctx, stub := newPaddrTest(t)
	stub.MapFrame(1)
	target := NewTarget("t", frameRegion(1))
	ctx.AddTarget(target)
	scheme, err := NewScheme(&SchemeConfig{Action: "stat", MaxAccesses: -1})
	if err != nil {
		t.Fatalf("creating scheme failed: %v", err)
	}

	affected := backend.ApplyScheme(ctx, target, target.Regions()[0], scheme)
	if affected != 0 {
		t.Errorf("stat action: expected 0 bytes affected, got %d", affected)
	}
	if calls := stub.IsolateCalls(); calls != 0 {
		t.Errorf("stat action: expected 0 isolations, got %d", calls)
	}
}

func TestApplySchemePageout(t *testing.T) {
	backend, ctx, stub := newPaddrTest(t)
	// Frame 1: evictable, 2: busy, 3: unevictable, 4: unmapped.
	stub.MapFrame(1)
	stub.MapFrame(2)
	stub.MapFrame(3)
	stub.SetBusy(2, true)
	stub.SetUnevictable(3, true)
	region := NewRegion(1*constUPagesize, 5*constUPagesize)
	target := NewTarget("t", region)
	ctx.AddTarget(target)
	scheme, err := NewScheme(&SchemeConfig{Action: "pageout", MaxAccesses: -1})
	if err != nil {
		t.Fatalf("creating scheme failed: %v", err)
	}

	affected := backend.ApplyScheme(ctx, target, region, scheme)
	if affected != constUPagesize {
		t.Errorf("expected %d bytes reclaimed, got %d", constUPagesize, affected)
	}
	if n := stub.ReclaimedFrames(); n != 1 {
		t.Errorf("expected 1 frame reclaimed, got %d", n)
	}
	// The busy frame fails isolation, the unevictable frame is
	// isolated but put back.
	if calls := stub.IsolateCalls(); calls != 3 {
		t.Errorf("expected 3 isolation attempts, got %d", calls)
	}
	if stub.frames[3].isolated {
		t.Errorf("unevictable frame left isolated")
	}
	if stub.frames[2].reclaimed || stub.frames[3].reclaimed {
		t.Errorf("busy or unevictable frame reclaimed")
	}
}

func TestApplySchemeYields(t *testing.T) {
	backend, ctx, _ := newPaddrTest(t)
	yields := 0
	ctx.yield = func() { yields++ }
	region := NewRegion(0, 2*reclaimYieldFrames*constUPagesize)
	target := NewTarget("t", region)
	ctx.AddTarget(target)
	scheme, err := NewScheme(&SchemeConfig{Action: "pageout", MaxAccesses: -1})
	if err != nil {
		t.Fatalf("creating scheme failed: %v", err)
	}

	backend.ApplyScheme(ctx, target, region, scheme)
	// Two yields during the scan, one before returning.
	if yields != 3 {
		t.Errorf("expected 3 yields over %d frames, got %d", 2*reclaimYieldFrames, yields)
	}
}

func TestSchemeScore(t *testing.T) {
	backend, ctx, stub := newPaddrTest(t)
	stub.MapFrame(1)
	target := NewTarget("t", frameRegion(1))
	ctx.AddTarget(target)
	region := target.Regions()[0]
	pageout, _ := NewScheme(&SchemeConfig{Action: "pageout", MaxAccesses: -1})
	stat, _ := NewScheme(&SchemeConfig{Action: "stat", MaxAccesses: -1})

	if score := backend.SchemeScore(ctx, target, region, pageout); score != MaxSchemeScore {
		t.Errorf("pageout without a scoring function: expected %d, got %d", MaxSchemeScore, score)
	}

	ctx.SetPageoutScore(func(ctx *Context, r *Region, s *Scheme) int {
		return 42
	})
	if score := backend.SchemeScore(ctx, target, region, pageout); score != 42 {
		t.Errorf("pageout with a scoring function: expected 42, got %d", score)
	}
	// Only pageout has a scoring function.
	if score := backend.SchemeScore(ctx, target, region, stat); score != MaxSchemeScore {
		t.Errorf("stat: expected %d, got %d", MaxSchemeScore, score)
	}
}

func TestTargetValid(t *testing.T) {
	backend, _, _ := newPaddrTest(t)
	if !backend.TargetValid(NewTarget("t")) {
		t.Errorf("physical address targets must always be valid")
	}
}
