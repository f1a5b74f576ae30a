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
	"os"
)

const (
	// Bit indices in /proc/kpageflags entries.
	KPFB_COMPOUND_HEAD = 15
	KPFB_COMPOUND_TAIL = 16
	KPFB_UNEVICTABLE   = 18
	KPFB_NOPAGE        = 20
	KPFB_THP           = 22
	KPFB_IDLE          = 25
)

var constPagesize int64 = int64(os.Getpagesize())
var constUPagesize uint64 = uint64(constPagesize)

// constHugeFrames is the number of base frames in a pmd-size huge
// mapping. Used only for finding cached huge mapping results; a wrong
// value on an exotic page size setup costs extra frame lookups, not
// correctness.
var constHugeFrames uint64 = 512

// addrToFrame returns the frame number of the page containing addr.
func addrToFrame(addr uint64) uint64 {
	return addr / constUPagesize
}
