//go:build linux
// +build linux

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

// The pageidle frame source uses /sys/kernel/mm/page_idle/bitmap for
// cold marking and hot testing frames, and /proc/kpageflags for frame
// existence and huge mapping detection. Frame isolation and reclaim
// are not reachable from user space, so pageout schemes report zero
// effect with this source.

package memmon

import (
	"fmt"
	"sync"
)

type FrameSourcePageIdle struct {
	mutex      sync.Mutex
	bitmap     *procPageIdleBitmapFile
	kpageflags *procKpageflagsFile
	hugeSize   uint64
}

type pageIdleFrameHandle struct {
	src   *FrameSourcePageIdle
	frame uint64
	flags uint64
}

func init() {
	FrameSourceRegister("pageidle", NewFrameSourcePageIdle)
}

func NewFrameSourcePageIdle() (FrameSource, error) {
	bitmap, err := ProcPageIdleBitmapOpen()
	if err != nil {
		return nil, fmt.Errorf("no idle page platform support: %s", err)
	}
	kpageflags, err := ProcKpageflagsOpen()
	if err != nil {
		bitmap.Close()
		return nil, fmt.Errorf("no kpageflags platform support: %s", err)
	}
	hugeSize, err := procReadUint64("/sys/kernel/mm/transparent_hugepage/hpage_pmd_size")
	if err != nil {
		hugeSize = 512 * constUPagesize
	}
	return &FrameSourcePageIdle{
		bitmap:     bitmap,
		kpageflags: kpageflags,
		hugeSize:   hugeSize,
	}, nil
}

func (s *FrameSourcePageIdle) Close() {
	s.bitmap.Close()
	s.kpageflags.Close()
}

func (s *FrameSourcePageIdle) LookupFrame(frame uint64) (FrameHandle, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	flags, err := s.kpageflags.ReadFlags(frame)
	if err != nil {
		return nil, false
	}
	if (flags>>KPFB_NOPAGE)&1 == 1 {
		return nil, false
	}
	return &pageIdleFrameHandle{src: s, frame: frame, flags: flags}, true
}

// Reclaim cannot evict frames from user space. Nothing gets isolated
// with this source, so batches are always empty.
func (s *FrameSourcePageIdle) Reclaim(batch []FrameHandle) uint64 {
	for _, h := range batch {
		h.Release()
	}
	return 0
}

// trackedFrame returns the frame whose idle bit carries the state of
// this frame, and the size of the mapping it covers. Compound tail
// frames never get the idle bit; their state lives in the head.
func (h *pageIdleFrameHandle) trackedFrame() (uint64, uint64) {
	if (h.flags>>KPFB_THP)&1 == 1 &&
		((h.flags>>KPFB_COMPOUND_HEAD)&1 == 1 || (h.flags>>KPFB_COMPOUND_TAIL)&1 == 1) {
		hugeFrames := h.src.hugeSize / constUPagesize
		return h.frame &^ (hugeFrames - 1), h.src.hugeSize
	}
	return h.frame, constUPagesize
}

func (h *pageIdleFrameHandle) MarkCold() {
	h.src.mutex.Lock()
	defer h.src.mutex.Unlock()
	frame, _ := h.trackedFrame()
	if err := h.src.bitmap.SetIdle(frame); err != nil {
		log.Debugf("FrameSourcePageIdle: set idle %d: %s\n", frame, err)
	}
}

func (h *pageIdleFrameHandle) TestHotAndSize() (bool, uint64) {
	h.src.mutex.Lock()
	defer h.src.mutex.Unlock()
	frame, size := h.trackedFrame()
	idle, err := h.src.bitmap.GetIdle(frame)
	if err != nil {
		return false, size
	}
	return !idle, size
}

func (h *pageIdleFrameHandle) ClearReferenceSignal() {
}

func (h *pageIdleFrameHandle) TryIsolate() bool {
	return false
}

func (h *pageIdleFrameHandle) Evictable() bool {
	return (h.flags>>KPFB_UNEVICTABLE)&1 == 0
}

func (h *pageIdleFrameHandle) RestoreToActiveList() {
}

func (h *pageIdleFrameHandle) Release() {
}
