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
	"sync"
)

// FrameSourceStub is an in-memory frame source. Tests and demos
// populate it with frames, touch them, and observe which operations
// the monitor performed on them.
type FrameSourceStub struct {
	mutex  sync.Mutex
	frames map[uint64]*stubFrame

	lookupCalls   int
	coldMarkCalls int
	hotTestCalls  int
	isolateCalls  int
	reclaimCalls  int
	reclaimedSum  uint64
}

type stubFrame struct {
	size        uint64 // mapping size in bytes
	hot         bool
	referenced  bool
	busy        bool
	unevictable bool
	isolated    bool
	reclaimed   bool
}

type stubFrameHandle struct {
	src *FrameSourceStub
	f   *stubFrame
}

func init() {
	FrameSourceRegister("stub", NewFrameSourceStub)
}

func NewFrameSourceStub() (FrameSource, error) {
	return &FrameSourceStub{
		frames: make(map[uint64]*stubFrame),
	}, nil
}

// MapFrame adds a base-page frame.
func (s *FrameSourceStub) MapFrame(frame uint64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.frames[frame] = &stubFrame{size: constUPagesize}
}

// MapHuge adds frames pages starting at baseFrame, all backed by one
// huge mapping: they share hotness, and hot tests on any of them
// report the whole mapping size.
func (s *FrameSourceStub) MapHuge(baseFrame, frames uint64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	f := &stubFrame{size: frames * constUPagesize}
	for i := uint64(0); i < frames; i++ {
		s.frames[baseFrame+i] = f
	}
}

// Touch records an access on the frame.
func (s *FrameSourceStub) Touch(frame uint64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if f, ok := s.frames[frame]; ok {
		f.hot = true
		f.referenced = true
	}
}

// SetBusy makes TryIsolate on the frame fail.
func (s *FrameSourceStub) SetBusy(frame uint64, busy bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if f, ok := s.frames[frame]; ok {
		f.busy = busy
	}
}

// SetUnevictable makes the frame isolatable but not evictable.
func (s *FrameSourceStub) SetUnevictable(frame uint64, unevictable bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if f, ok := s.frames[frame]; ok {
		f.unevictable = unevictable
	}
}

func (s *FrameSourceStub) LookupFrame(frame uint64) (FrameHandle, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lookupCalls++
	f, ok := s.frames[frame]
	if !ok || f.reclaimed {
		return nil, false
	}
	return &stubFrameHandle{src: s, f: f}, true
}

func (s *FrameSourceStub) Reclaim(batch []FrameHandle) uint64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.reclaimCalls++
	reclaimed := uint64(0)
	for _, h := range batch {
		sh, ok := h.(*stubFrameHandle)
		if !ok {
			continue
		}
		if sh.f.isolated && !sh.f.unevictable {
			sh.f.reclaimed = true
			sh.f.isolated = false
			reclaimed++
		}
	}
	s.reclaimedSum += reclaimed
	return reclaimed
}

func (s *FrameSourceStub) LookupCalls() int   { return s.counter(&s.lookupCalls) }
func (s *FrameSourceStub) ColdMarkCalls() int { return s.counter(&s.coldMarkCalls) }
func (s *FrameSourceStub) HotTestCalls() int  { return s.counter(&s.hotTestCalls) }
func (s *FrameSourceStub) IsolateCalls() int  { return s.counter(&s.isolateCalls) }
func (s *FrameSourceStub) ReclaimCalls() int  { return s.counter(&s.reclaimCalls) }

func (s *FrameSourceStub) ReclaimedFrames() uint64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.reclaimedSum
}

func (s *FrameSourceStub) counter(c *int) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return *c
}

func (h *stubFrameHandle) MarkCold() {
	h.src.mutex.Lock()
	defer h.src.mutex.Unlock()
	h.src.coldMarkCalls++
	h.f.hot = false
}

func (h *stubFrameHandle) TestHotAndSize() (bool, uint64) {
	h.src.mutex.Lock()
	defer h.src.mutex.Unlock()
	h.src.hotTestCalls++
	return h.f.hot, h.f.size
}

func (h *stubFrameHandle) ClearReferenceSignal() {
	h.src.mutex.Lock()
	defer h.src.mutex.Unlock()
	h.f.referenced = false
}

func (h *stubFrameHandle) TryIsolate() bool {
	h.src.mutex.Lock()
	defer h.src.mutex.Unlock()
	h.src.isolateCalls++
	if h.f.busy || h.f.isolated {
		return false
	}
	h.f.isolated = true
	return true
}

func (h *stubFrameHandle) Evictable() bool {
	h.src.mutex.Lock()
	defer h.src.mutex.Unlock()
	return !h.f.unevictable
}

func (h *stubFrameHandle) RestoreToActiveList() {
	h.src.mutex.Lock()
	defer h.src.mutex.Unlock()
	h.f.isolated = false
}

func (h *stubFrameHandle) Release() {
}
