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
	"math/rand"
	"runtime"
)

// Context is the state of one monitoring context: the targets being
// monitored, the frame source that resolves physical frames, and the
// per-round frame cache. Contexts must not be shared between
// concurrently running monitors; each context owns its cache.
type Context struct {
	frames  FrameSource
	targets []*Target
	cache   frameCache

	randAddr     func(start, stop uint64) uint64
	yield        func()
	pageoutScore func(ctx *Context, r *Region, s *Scheme) int
}

func NewContext(frames FrameSource) *Context {
	return &Context{
		frames:   frames,
		randAddr: randomAddrIn,
		yield:    runtime.Gosched,
	}
}

func (ctx *Context) AddTarget(t *Target) {
	ctx.targets = append(ctx.targets, t)
}

func (ctx *Context) Targets() []*Target {
	return ctx.targets
}

func (ctx *Context) FrameSource() FrameSource {
	return ctx.frames
}

// SetSamplingRand replaces the sampling address generator. The
// function must return a uniformly distributed address in
// [start, stop).
func (ctx *Context) SetSamplingRand(f func(start, stop uint64) uint64) {
	ctx.randAddr = f
}

// SetPageoutScore sets the pageout priority function used for scoring
// regions against pageout schemes. The scoring formula belongs to the
// policy that ranks regions; without one, every region gets the
// maximum score.
func (ctx *Context) SetPageoutScore(f func(ctx *Context, r *Region, s *Scheme) int) {
	ctx.pageoutScore = f
}

func randomAddrIn(start, stop uint64) uint64 {
	if stop <= start {
		return start
	}
	return start + rand.Uint64()%(stop-start)
}
