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
	"strconv"

	"sigs.k8s.io/yaml"
)

// Config is the file configuration: the monitor and the monitored
// targets. Addresses are strings so that hexadecimal values can be
// used in configuration files.
type Config struct {
	Monitor MonitorConfig
	Targets []TargetConfig
}

type TargetConfig struct {
	Name        string
	Ranges      []RangeConfig
	RegionPages uint64 // pages per region, 0: one region per range
}

type RangeConfig struct {
	Start string
	End   string
}

func ParseConfigYaml(data []byte) (*Config, error) {
	config := Config{}
	if err := yaml.UnmarshalStrict(data, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

func parseAddr(s string) (uint64, error) {
	addr, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %s", s, err)
	}
	return addr, nil
}

// BuildTarget creates a target with its ranges split into fixed-size
// regions.
func BuildTarget(tc *TargetConfig) (*Target, error) {
	t := NewTarget(tc.Name)
	for _, rc := range tc.Ranges {
		start, err := parseAddr(rc.Start)
		if err != nil {
			return nil, err
		}
		end, err := parseAddr(rc.End)
		if err != nil {
			return nil, err
		}
		if end <= start {
			return nil, fmt.Errorf("invalid range %q-%q: end <= start", rc.Start, rc.End)
		}
		regionBytes := tc.RegionPages * constUPagesize
		if regionBytes == 0 {
			regionBytes = end - start
		}
		for addr := start; addr < end; addr += regionBytes {
			regionEnd := addr + regionBytes
			if regionEnd > end {
				regionEnd = end
			}
			t.AddRegion(NewRegion(addr, regionEnd))
		}
	}
	if len(t.Regions()) == 0 {
		return nil, fmt.Errorf("target %q has no regions", tc.Name)
	}
	return t, nil
}
