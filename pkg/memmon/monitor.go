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
	"sync"
	"time"
)

type MonitorConfig struct {
	Backend       string
	FrameSource   string
	SamplingUs    uint64 // sampling interval in microseconds
	AggregationUs uint64 // aggregation interval in microseconds
	Schemes       []SchemeConfig
}

const monitorDefaults string = `{"Backend":"paddr","FrameSource":"stub","SamplingUs":5000,"AggregationUs":100000}`

// Monitor runs sampling rounds on one monitoring context: prepare
// access checks, wait for the sampling interval, check accesses. On
// every aggregation interval it applies the configured schemes on
// matching regions and resets the per-region access counters. One
// goroutine per monitor; concurrent monitors get separate contexts.
type Monitor struct {
	mutex     sync.Mutex
	config    *MonitorConfig
	ctx       *Context
	backend   Backend
	schemes   []*Scheme
	toSampler chan byte
}

func NewMonitor() (*Monitor, error) {
	m := &Monitor{}
	if err := m.SetConfigJson(monitorDefaults); err != nil {
		return nil, fmt.Errorf("invalid monitor default configuration: %s", err)
	}
	return m, nil
}

func (m *Monitor) SetConfigJson(configJson string) error {
	config := MonitorConfig{}
	if err := json.Unmarshal([]byte(configJson), &config); err != nil {
		return err
	}
	return m.SetConfig(&config)
}

func (m *Monitor) SetConfig(config *MonitorConfig) error {
	if config.SamplingUs == 0 {
		return fmt.Errorf("invalid SamplingUs: 0, > 0 expected")
	}
	if config.AggregationUs < config.SamplingUs {
		return fmt.Errorf("invalid AggregationUs: %d, >= SamplingUs (%d) expected",
			config.AggregationUs, config.SamplingUs)
	}
	backend, err := NewBackend(config.Backend)
	if err != nil {
		return err
	}
	frames, err := NewFrameSource(config.FrameSource)
	if err != nil {
		return err
	}
	schemes := make([]*Scheme, 0, len(config.Schemes))
	for i := range config.Schemes {
		scheme, err := NewScheme(&config.Schemes[i])
		if err != nil {
			return fmt.Errorf("scheme %d: %s", i, err)
		}
		schemes = append(schemes, scheme)
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.toSampler != nil {
		return fmt.Errorf("cannot reconfigure a running monitor")
	}
	ctx := NewContext(frames)
	if m.ctx != nil {
		// Keep monitoring the same targets over reconfiguration.
		ctx.targets = m.ctx.targets
	}
	m.config = config
	m.ctx = ctx
	m.backend = backend
	m.schemes = schemes
	return nil
}

func (m *Monitor) GetConfigJson() string {
	if m.config == nil {
		return ""
	}
	if configStr, err := json.Marshal(m.config); err == nil {
		return string(configStr)
	}
	return ""
}

// Context gives access to the monitoring context, e.g. for adding
// targets before Start.
func (m *Monitor) Context() *Context {
	return m.ctx
}

func (m *Monitor) Backend() Backend {
	return m.backend
}

func (m *Monitor) Start() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.toSampler != nil {
		return fmt.Errorf("sampler already running")
	}
	if len(m.ctx.targets) == 0 {
		return fmt.Errorf("monitor has no targets")
	}
	m.toSampler = make(chan byte, 1)
	go m.sampler()
	return nil
}

func (m *Monitor) Stop() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.toSampler != nil {
		m.toSampler <- 0
	}
}

func (m *Monitor) sampler() {
	log.Debugf("Monitor: online\n")
	defer log.Debugf("Monitor: offline\n")
	ticker := time.NewTicker(time.Duration(m.config.SamplingUs) * time.Microsecond)
	defer ticker.Stop()
	samplesPerAggregation := m.config.AggregationUs / m.config.SamplingUs
	samples := uint64(0)
	for {
		m.backend.PrepareAccessChecks(m.ctx)
		select {
		case <-m.toSampler:
			close(m.toSampler)
			m.toSampler = nil
			return
		case <-ticker.C:
		}
		maxNrAccesses := m.backend.CheckAccesses(m.ctx)
		samples++
		if samples >= samplesPerAggregation {
			m.aggregate(maxNrAccesses)
			samples = 0
		}
	}
}

// aggregate applies schemes on regions that match them and resets the
// access counters for the next aggregation window.
func (m *Monitor) aggregate(maxNrAccesses int) {
	log.Debugf("Monitor: aggregate, max accesses %d\n", maxNrAccesses)
	for _, scheme := range m.schemes {
		appliedBytes := uint64(0)
		quota := scheme.QuotaBytes()
		for _, t := range m.ctx.targets {
			if !m.backend.TargetValid(t) {
				continue
			}
			for _, r := range t.regions {
				if quota != 0 && appliedBytes >= quota {
					break
				}
				if !scheme.Matches(r) {
					continue
				}
				appliedBytes += m.backend.ApplyScheme(m.ctx, t, r, scheme)
			}
		}
		if appliedBytes > 0 {
			log.Infof("Monitor: scheme %s applied to %d bytes\n", scheme, appliedBytes)
		}
	}
	for _, t := range m.ctx.targets {
		for _, r := range t.regions {
			r.ResetNrAccesses()
		}
	}
}
