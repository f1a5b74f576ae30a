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

/*

	Package memmon implements sampling-based monitoring of memory
	access frequency over physical address ranges, and scheme
	actions, like paging out, on ranges that a policy selects.

	Component types

	1. The Monitor (monitor.go) runs sampling rounds on a
	monitoring context: prepare access checks, sleep for the
	sampling interval, check accesses. On aggregation intervals it
	applies schemes (scheme.go) on regions whose aggregated access
	counters match, and resets the counters.

	2. Backends (backend*.go) implement access sampling for one
	kind of address space. The paddr backend
	(backend_paddr.go) monitors the physical address space: it
	picks one sampling address per region per round, marks the
	containing frame cold, and later tests whether the frame was
	accessed. A fixed-size generation-stamped frame cache
	(framecache.go) deduplicates frame operations within a round;
	results observed through huge mappings are shared between all
	regions sampling the same mapping.

	3. Frame sources (framesource*.go) resolve frame numbers into
	frame handles that can be marked cold, tested for accesses,
	and isolated for reclamation. The pageidle source
	(framesource_pageidle_linux.go) is backed by
	/sys/kernel/mm/page_idle/bitmap and /proc/kpageflags. The stub
	source (framesource_stub.go) is an in-memory fake for tests
	and demos.

	Supporting modules

	1. Targets (region.go) have regions; a region is an address
	range (addrrange.go) with a sampling address and an access
	counter.
	2. Stats (stats.go) accumulate counters of monitor activity,
	exported to Prometheus by the collector in metrics.go.
	3. Config (config.go) builds monitors and targets from YAML.

*/

package memmon
