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
	"strings"
)

// Region is a monitored address range. The backend picks one sampling
// address per round inside the range and accumulates the number of
// rounds on which the sampled page was accessed. The accumulated
// counter is reset by the aggregator that consumes it, never by the
// backend.
type Region struct {
	ar           AddrRange
	samplingAddr uint64
	nrAccesses   int
}

func NewRegion(startAddr, stopAddr uint64) *Region {
	return &Region{ar: *NewAddrRange(startAddr, stopAddr)}
}

func (r *Region) AddrRange() *AddrRange {
	return &r.ar
}

func (r *Region) SamplingAddr() uint64 {
	return r.samplingAddr
}

func (r *Region) NrAccesses() int {
	return r.nrAccesses
}

// ResetNrAccesses is for the aggregator that has consumed the counter.
func (r *Region) ResetNrAccesses() {
	r.nrAccesses = 0
}

func (r *Region) String() string {
	return fmt.Sprintf("%s a=%d", r.ar.String(), r.nrAccesses)
}

// Target is an ordered collection of monitored regions. Physical
// address monitoring typically has a single target covering the
// interesting parts of the address space.
type Target struct {
	name    string
	regions []*Region
}

func NewTarget(name string, regions ...*Region) *Target {
	return &Target{name: name, regions: regions}
}

func (t *Target) Name() string {
	return t.name
}

func (t *Target) AddRegion(r *Region) {
	t.regions = append(t.regions, r)
}

func (t *Target) Regions() []*Region {
	return t.regions
}

func (t *Target) String() string {
	lines := make([]string, 0, len(t.regions))
	for _, r := range t.regions {
		lines = append(lines, r.String())
	}
	return fmt.Sprintf("target %q\n%s", t.name, strings.Join(lines, "\n"))
}
