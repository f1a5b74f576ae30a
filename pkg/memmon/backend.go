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

// Backend implements access sampling and scheme actions for one kind
// of address space. Within a round, PrepareAccessChecks for all
// regions must complete before CheckAccesses is called: checking
// reads the cold marks that preparing wrote.
type Backend interface {
	// PrepareAccessChecks starts a new round: picks a sampling
	// address for every region of every target and marks the
	// sampled frames cold.
	PrepareAccessChecks(ctx *Context)
	// CheckAccesses tests the sampled frames for accesses,
	// accumulates per-region access counters and returns the
	// maximum counter value seen across all regions.
	CheckAccesses(ctx *Context) int
	// TargetValid reports whether the target can still be
	// monitored.
	TargetValid(t *Target) bool
	// ApplyScheme executes the scheme's action on the region and
	// returns the number of bytes the action affected.
	ApplyScheme(ctx *Context, t *Target, r *Region, s *Scheme) uint64
	// SchemeScore ranks the region for the scheme's action.
	SchemeScore(ctx *Context, t *Target, r *Region, s *Scheme) int
}

type BackendCreator func() (Backend, error)

// backends is a map of backend name -> backend creator
var backends map[string]BackendCreator = make(map[string]BackendCreator, 0)

func BackendRegister(name string, creator BackendCreator) {
	backends[name] = creator
}

func Backends() []string {
	keys := make([]string, 0, len(backends))
	for key := range backends {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func NewBackend(name string) (Backend, error) {
	if creator, ok := backends[name]; ok {
		return creator()
	}
	return nil, fmt.Errorf("invalid backend name %q", name)
}
