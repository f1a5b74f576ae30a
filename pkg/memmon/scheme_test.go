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
	"testing"
)

func TestNewScheme(t *testing.T) {
	tcases := []struct {
		name        string
		config      SchemeConfig
		expectedErr bool
	}{
		{
			name:   "pageout",
			config: SchemeConfig{Action: "pageout", MaxAccesses: -1},
		},
		{
			name:   "stat with bounds",
			config: SchemeConfig{Action: "stat", MinAccesses: 1, MaxAccesses: 5},
		},
		{
			name:        "unknown action",
			config:      SchemeConfig{Action: "teleport", MaxAccesses: -1},
			expectedErr: true,
		},
		{
			name:        "negative MinAccesses",
			config:      SchemeConfig{Action: "pageout", MinAccesses: -1, MaxAccesses: -1},
			expectedErr: true,
		},
		{
			name:        "MaxAccesses below -1",
			config:      SchemeConfig{Action: "pageout", MaxAccesses: -2},
			expectedErr: true,
		},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewScheme(&tc.config)
			if tc.expectedErr && err == nil {
				t.Errorf("expected an error, got nil")
			}
			if !tc.expectedErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewSchemeFromJson(t *testing.T) {
	scheme, err := NewSchemeFromJson(`{"Action":"pageout","MinAccesses":0,"MaxAccesses":0,"QuotaBytes":1048576}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scheme.Action() != ActionPageout {
		t.Errorf("expected pageout action, got %s", scheme.Action())
	}
	if scheme.QuotaBytes() != 1048576 {
		t.Errorf("expected quota 1048576, got %d", scheme.QuotaBytes())
	}
	if _, err := NewSchemeFromJson(`{"Action":`); err == nil {
		t.Errorf("expected an error from broken json")
	}
}

func TestSchemeMatches(t *testing.T) {
	tcases := []struct {
		name            string
		min, max        int
		nrAccesses      int
		expectedMatches bool
	}{
		{"unbounded matches zero", 0, -1, 0, true},
		{"unbounded matches large", 0, -1, 1000, true},
		{"below min", 2, -1, 1, false},
		{"at min", 2, -1, 2, true},
		{"at max", 0, 3, 3, true},
		{"above max", 0, 3, 4, false},
		{"cold only", 0, 0, 0, true},
		{"cold only rejects warm", 0, 0, 1, false},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			scheme, err := NewScheme(&SchemeConfig{
				Action:      "pageout",
				MinAccesses: tc.min,
				MaxAccesses: tc.max,
			})
			if err != nil {
				t.Fatalf("creating scheme failed: %v", err)
			}
			r := NewRegion(0, constUPagesize)
			r.nrAccesses = tc.nrAccesses
			if matches := scheme.Matches(r); matches != tc.expectedMatches {
				t.Errorf("accesses=%d bounds=[%d,%d]: expected matches=%v, got %v",
					tc.nrAccesses, tc.min, tc.max, tc.expectedMatches, matches)
			}
		})
	}
}

func TestParseSchemeAction(t *testing.T) {
	for _, name := range []string{"pageout", "willneed", "cold", "hugepage", "nohugepage", "stat"} {
		action, err := ParseSchemeAction(name)
		if err != nil {
			t.Errorf("parsing %q failed: %v", name, err)
		}
		if action.String() != name {
			t.Errorf("round trip of %q gave %q", name, action.String())
		}
	}
	if _, err := ParseSchemeAction("none"); err == nil {
		t.Errorf("expected an error for unknown action")
	}
}
