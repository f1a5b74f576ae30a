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
)

// AddrRange is a physical address range [addr, addr+length*pagesize).
type AddrRange struct {
	addr   uint64
	length uint64 // length in pages
}

func NewAddrRange(startAddr, stopAddr uint64) *AddrRange {
	if stopAddr < startAddr {
		startAddr, stopAddr = stopAddr, startAddr
	}
	return &AddrRange{addr: startAddr, length: (stopAddr - startAddr) / constUPagesize}
}

func (r *AddrRange) Addr() uint64 {
	return r.addr
}

func (r *AddrRange) EndAddr() uint64 {
	return r.addr + r.length*constUPagesize
}

func (r *AddrRange) Length() uint64 {
	return r.length
}

func (r *AddrRange) Contains(addr uint64) bool {
	return addr >= r.addr && addr < r.EndAddr()
}

func (r *AddrRange) String() string {
	return fmt.Sprintf("%x-%x (%d pages)", r.addr, r.EndAddr(), r.length)
}
