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

package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/intel/memmon/pkg/memmon"
)

func exit(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, fmt.Sprintf("memmon: "+format+"\n", a...))
	os.Exit(1)
}

// parseOptRanges parses START-STOP[,START-STOP...] with hex addresses.
func parseOptRanges(rangeStr string) []memmon.RangeConfig {
	ranges := []memmon.RangeConfig{}
	for _, startStopStr := range strings.Split(rangeStr, ",") {
		startStopSlice := strings.Split(startStopStr, "-")
		if len(startStopSlice) != 2 {
			exit("invalid address range %q, expected STARTADDR-STOPADDR", startStopStr)
		}
		for _, s := range startStopSlice {
			if _, err := strconv.ParseUint(s, 16, 64); err != nil {
				exit("invalid address %q", s)
			}
		}
		ranges = append(ranges, memmon.RangeConfig{
			Start: "0x" + startStopSlice[0],
			End:   "0x" + startStopSlice[1],
		})
	}
	return ranges
}

func loadConfig(path string) *memmon.Config {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		exit("cannot read configuration: %v", err)
	}
	config, err := memmon.ParseConfigYaml(data)
	if err != nil {
		exit("invalid configuration %q: %v", path, err)
	}
	return config
}

func main() {
	optConfig := flag.String("config", "", "-config=FILE read monitor and target configuration from FILE")
	optRanges := flag.String("ranges", "", "-ranges=START-STOP[,START-STOP...] monitor given physical address ranges")
	optRegionPages := flag.Uint64("region-pages", 512, "-region-pages=N pages per monitoring region")
	optFrameSource := flag.String("frame-source", "pageidle", "-frame-source=<pageidle|stub>")
	optMetrics := flag.String("metrics-address", "", "-metrics-address=ADDR serve Prometheus metrics on ADDR")
	optDebug := flag.Bool("debug", false, "-debug enable debug logging")

	flag.Parse()

	memmon.SetLogger(stdlog.New(os.Stderr, "", stdlog.LstdFlags))
	memmon.SetLogDebug(*optDebug)

	var config *memmon.Config
	if *optConfig != "" {
		config = loadConfig(*optConfig)
	} else {
		if *optRanges == "" {
			exit("missing -config=FILE or -ranges=START-STOP")
		}
		config = &memmon.Config{
			Targets: []memmon.TargetConfig{
				{
					Name:        "cmdline",
					Ranges:      parseOptRanges(*optRanges),
					RegionPages: *optRegionPages,
				},
			},
		}
		config.Monitor.FrameSource = *optFrameSource
	}
	if config.Monitor.Backend == "" {
		config.Monitor.Backend = "paddr"
	}
	if config.Monitor.SamplingUs == 0 {
		config.Monitor.SamplingUs = 5000
	}
	if config.Monitor.AggregationUs == 0 {
		config.Monitor.AggregationUs = 100000
	}

	monitor, err := memmon.NewMonitor()
	if err != nil {
		exit("creating monitor failed: %v", err)
	}
	if err := monitor.SetConfig(&config.Monitor); err != nil {
		exit("invalid monitor configuration: %v", err)
	}
	for i := range config.Targets {
		target, err := memmon.BuildTarget(&config.Targets[i])
		if err != nil {
			exit("invalid target configuration: %v", err)
		}
		monitor.Context().AddTarget(target)
	}

	if *optMetrics != "" {
		collector, err := memmon.NewCollector()
		if err != nil {
			exit("creating metrics collector failed: %v", err)
		}
		prometheus.MustRegister(collector)
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*optMetrics, nil); err != nil {
				exit("metrics server failed: %v", err)
			}
		}()
	}

	if err := monitor.Start(); err != nil {
		exit("starting monitor failed: %v", err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	monitor.Stop()
	fmt.Printf("%s\n", memmon.GetStats().Dump())
}
