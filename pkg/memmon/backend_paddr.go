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

// The paddr backend samples the physical address space. One page per
// region per round is marked cold, and on the next pass the page is
// tested for accesses. Frames that cannot be resolved are treated as
// cold; monitoring never fails, it only loses accuracy.

package memmon

// reclaimYieldFrames is the number of frames scanned in ApplyScheme
// between cooperative yields. Regions may span gigabytes.
const reclaimYieldFrames = 512

type BackendPaddr struct {
}

func init() {
	BackendRegister("paddr", NewBackendPaddr)
}

func NewBackendPaddr() (Backend, error) {
	return &BackendPaddr{}, nil
}

// markFrameCold marks the frame containing addr cold. Unresolvable
// frames are silently skipped.
func (b *BackendPaddr) markFrameCold(ctx *Context, addr uint64) {
	h, ok := ctx.frames.LookupFrame(addrToFrame(addr))
	if !ok {
		return
	}
	h.MarkCold()
	h.Release()
	stats.Store(StatsColdMark{})
}

// testFrameHot tests whether the frame containing addr was accessed
// since it was marked cold, and the size of the mapping the result
// applies to. Unresolvable frames report not accessed.
func (b *BackendPaddr) testFrameHot(ctx *Context, addr uint64) (bool, uint64) {
	h, ok := ctx.frames.LookupFrame(addrToFrame(addr))
	if !ok {
		return false, constUPagesize
	}
	accessed, size := h.TestHotAndSize()
	h.Release()
	stats.Store(StatsHotCheck{})
	if size < constUPagesize {
		// The cache uses size 0 as "not computed".
		size = constUPagesize
	}
	return accessed, size
}

func (b *BackendPaddr) prepareAccessCheck(ctx *Context, r *Region) {
	r.samplingAddr = ctx.randAddr(r.ar.Addr(), r.ar.EndAddr())
	frame := addrToFrame(r.samplingAddr)

	// Another region may have sampled the same frame this round.
	if e := ctx.cache.lookup(frame); e != nil && e.coldMarked {
		stats.Store(StatsFrameCacheHit{})
		return
	}

	b.markFrameCold(ctx, r.samplingAddr)

	e := ctx.cache.claimSlot(frame)
	e.sizeSeen = 0
	e.accessed = false
	e.coldMarked = true
}

func (b *BackendPaddr) PrepareAccessChecks(ctx *Context) {
	ctx.cache.beginRound()
	for _, t := range ctx.targets {
		for _, r := range t.regions {
			b.prepareAccessCheck(ctx, r)
		}
	}
}

// cachedAccess returns the access result already resolved for the
// frame this round, either under the frame itself or under the base
// of a huge mapping covering it.
func (b *BackendPaddr) cachedAccess(ctx *Context, frame uint64) (bool, bool) {
	if e := ctx.cache.lookup(frame); e != nil && e.sizeSeen != 0 {
		return e.accessed, true
	}
	baseFrame := frame &^ (constHugeFrames - 1)
	if baseFrame != frame {
		if e := ctx.cache.lookup(baseFrame); e != nil && e.sizeSeen > constUPagesize &&
			frame < baseFrame+e.sizeSeen/constUPagesize {
			return e.accessed, true
		}
	}
	return false, false
}

func (b *BackendPaddr) checkAccess(ctx *Context, r *Region) {
	frame := addrToFrame(r.samplingAddr)

	// Hotness may have been resolved for this frame this round
	// already, possibly while checking another region mapped by
	// the same huge page.
	if accessed, ok := b.cachedAccess(ctx, frame); ok {
		stats.Store(StatsFrameCacheHit{})
		if accessed {
			r.nrAccesses++
		}
		return
	}

	accessed, size := b.testFrameHot(ctx, r.samplingAddr)

	e := ctx.cache.lookup(frame)
	if e == nil {
		e = ctx.cache.claimSlot(frame)
		e.coldMarked = false
	}
	e.sizeSeen = size
	e.accessed = accessed

	// A result observed through a huge mapping holds for every
	// frame of the mapping. Store it also under the base-aligned
	// frame so that samples elsewhere in the same mapping reuse it.
	if size > constUPagesize {
		frames := size / constUPagesize
		baseFrame := frame &^ (frames - 1)
		if baseFrame != frame {
			be := ctx.cache.lookup(baseFrame)
			if be == nil {
				be = ctx.cache.claimSlot(baseFrame)
				be.coldMarked = false
			}
			be.sizeSeen = size
			be.accessed = accessed
		}
	}

	if accessed {
		r.nrAccesses++
	}
}

func (b *BackendPaddr) CheckAccesses(ctx *Context) int {
	maxNrAccesses := 0
	regions := 0
	for _, t := range ctx.targets {
		for _, r := range t.regions {
			b.checkAccess(ctx, r)
			regions++
			if r.nrAccesses > maxNrAccesses {
				maxNrAccesses = r.nrAccesses
			}
		}
	}
	stats.Store(StatsRound{regions: regions, maxAccesses: maxNrAccesses})
	return maxNrAccesses
}

// TargetValid always holds: the physical address space does not go
// away like a process address space does.
func (b *BackendPaddr) TargetValid(t *Target) bool {
	return true
}

// ApplyScheme pages out the frames of the region. Actions other than
// pageout would need virtual address context, so they report zero
// effect here.
func (b *BackendPaddr) ApplyScheme(ctx *Context, t *Target, r *Region, s *Scheme) uint64 {
	if s.Action() != ActionPageout {
		return 0
	}
	batch := []FrameHandle{}
	scanned := 0
	for addr := r.ar.Addr(); addr < r.ar.EndAddr(); addr += constUPagesize {
		scanned++
		if scanned%reclaimYieldFrames == 0 {
			ctx.yield()
		}
		h, ok := ctx.frames.LookupFrame(addrToFrame(addr))
		if !ok {
			continue
		}
		h.ClearReferenceSignal()
		if !h.TryIsolate() {
			// Busy frames are skipped, not waited for.
			h.Release()
			continue
		}
		if !h.Evictable() {
			h.RestoreToActiveList()
			h.Release()
			continue
		}
		batch = append(batch, h)
	}
	reclaimed := ctx.frames.Reclaim(batch)
	ctx.yield()
	reclaimedBytes := reclaimed * constUPagesize
	stats.Store(StatsReclaimScan{
		scanned:        scanned,
		isolated:       len(batch),
		reclaimedBytes: reclaimedBytes,
	})
	log.Debugf("BackendPaddr: pageout %s: scanned %d, isolated %d, reclaimed %d bytes\n",
		r.AddrRange(), scanned, len(batch), reclaimedBytes)
	return reclaimedBytes
}

func (b *BackendPaddr) SchemeScore(ctx *Context, t *Target, r *Region, s *Scheme) int {
	switch s.Action() {
	case ActionPageout:
		if ctx.pageoutScore != nil {
			return ctx.pageoutScore(ctx, r, s)
		}
	}
	return MaxSchemeScore
}
