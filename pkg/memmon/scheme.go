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
	"encoding/json"
	"fmt"
)

// SchemeAction is the operation a scheme applies to matching regions.
// A backend executes only the actions that make sense for its address
// space; the rest report zero effect so that another backend may
// support them.
type SchemeAction int

const (
	ActionPageout SchemeAction = iota
	ActionWillneed
	ActionCold
	ActionHugepage
	ActionNohugepage
	ActionStat
)

// MaxSchemeScore is the highest region priority for a scheme action.
const MaxSchemeScore = 99

var actionNames = map[SchemeAction]string{
	ActionPageout:    "pageout",
	ActionWillneed:   "willneed",
	ActionCold:       "cold",
	ActionHugepage:   "hugepage",
	ActionNohugepage: "nohugepage",
	ActionStat:       "stat",
}

func (a SchemeAction) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

func ParseSchemeAction(name string) (SchemeAction, error) {
	for action, actionName := range actionNames {
		if actionName == name {
			return action, nil
		}
	}
	return 0, fmt.Errorf("invalid scheme action %q", name)
}

type SchemeConfig struct {
	Action      string
	MinAccesses int    // smallest nr_accesses that matches, inclusive
	MaxAccesses int    // largest nr_accesses that matches, -1: unlimited
	QuotaBytes  uint64 // max bytes affected per aggregation, 0: unlimited
}

// Scheme selects regions by their aggregated access counters and
// applies an action on them through the backend.
type Scheme struct {
	config *SchemeConfig
	action SchemeAction
}

func NewScheme(config *SchemeConfig) (*Scheme, error) {
	action, err := ParseSchemeAction(config.Action)
	if err != nil {
		return nil, err
	}
	if config.MaxAccesses < -1 {
		return nil, fmt.Errorf("invalid MaxAccesses: %d, -1 or larger expected", config.MaxAccesses)
	}
	if config.MinAccesses < 0 {
		return nil, fmt.Errorf("invalid MinAccesses: %d, >= 0 expected", config.MinAccesses)
	}
	return &Scheme{config: config, action: action}, nil
}

func NewSchemeFromJson(configJson string) (*Scheme, error) {
	config := SchemeConfig{}
	if err := json.Unmarshal([]byte(configJson), &config); err != nil {
		return nil, err
	}
	return NewScheme(&config)
}

func (s *Scheme) Action() SchemeAction {
	return s.action
}

func (s *Scheme) QuotaBytes() uint64 {
	return s.config.QuotaBytes
}

// Matches reports whether a region's aggregated access counter is
// within the scheme's bounds.
func (s *Scheme) Matches(r *Region) bool {
	if r.NrAccesses() < s.config.MinAccesses {
		return false
	}
	if s.config.MaxAccesses >= 0 && r.NrAccesses() > s.config.MaxAccesses {
		return false
	}
	return true
}

func (s *Scheme) String() string {
	return fmt.Sprintf("%s accesses=[%d,%d] quota=%d",
		s.action, s.config.MinAccesses, s.config.MaxAccesses, s.config.QuotaBytes)
}
