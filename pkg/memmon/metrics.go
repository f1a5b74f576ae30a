package memmon

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metric descriptor indices and descriptor table
const (
	roundsDesc = iota
	coldMarksDesc
	hotChecksDesc
	cacheHitsDesc
	cacheEvictionsDesc
	reclaimScannedDesc
	reclaimIsolatedDesc
	reclaimedBytesDesc
	numDescriptors
)

var descriptors = [numDescriptors]*prometheus.Desc{
	roundsDesc: prometheus.NewDesc(
		"memmon_sampling_rounds",
		"Number of completed sampling rounds.",
		nil, nil,
	),
	coldMarksDesc: prometheus.NewDesc(
		"memmon_cold_marks",
		"Number of frames marked cold.",
		nil, nil,
	),
	hotChecksDesc: prometheus.NewDesc(
		"memmon_hot_checks",
		"Number of frame hotness checks.",
		nil, nil,
	),
	cacheHitsDesc: prometheus.NewDesc(
		"memmon_frame_cache_hits",
		"Number of frame state lookups served from the round cache.",
		nil, nil,
	),
	cacheEvictionsDesc: prometheus.NewDesc(
		"memmon_frame_cache_evictions",
		"Number of live round cache entries overwritten under probe window pressure.",
		nil, nil,
	),
	reclaimScannedDesc: prometheus.NewDesc(
		"memmon_reclaim_scanned_frames",
		"Number of frames scanned by reclaim scheme applications.",
		nil, nil,
	),
	reclaimIsolatedDesc: prometheus.NewDesc(
		"memmon_reclaim_isolated_frames",
		"Number of frames isolated for reclamation.",
		nil, nil,
	),
	reclaimedBytesDesc: prometheus.NewDesc(
		"memmon_reclaimed_bytes",
		"Number of bytes reclaimed by pageout schemes.",
		nil, nil,
	),
}

type collector struct {
}

// NewCollector creates new Prometheus collector of monitor statistics
func NewCollector() (prometheus.Collector, error) {
	return &collector{}, nil
}

// Describe implements prometheus.Collector interface
func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range descriptors {
		ch <- d
	}
}

// Collect implements prometheus.Collector interface
func (c *collector) Collect(ch chan<- prometheus.Metric) {
	s := GetStats().snapshot()
	ch <- prometheus.MustNewConstMetric(descriptors[roundsDesc],
		prometheus.CounterValue, float64(s.sumRounds))
	ch <- prometheus.MustNewConstMetric(descriptors[coldMarksDesc],
		prometheus.CounterValue, float64(s.sumColdMarks))
	ch <- prometheus.MustNewConstMetric(descriptors[hotChecksDesc],
		prometheus.CounterValue, float64(s.sumHotChecks))
	ch <- prometheus.MustNewConstMetric(descriptors[cacheHitsDesc],
		prometheus.CounterValue, float64(s.sumCacheHits))
	ch <- prometheus.MustNewConstMetric(descriptors[cacheEvictionsDesc],
		prometheus.CounterValue, float64(s.sumEvictions))
	ch <- prometheus.MustNewConstMetric(descriptors[reclaimScannedDesc],
		prometheus.CounterValue, float64(s.sumScanned))
	ch <- prometheus.MustNewConstMetric(descriptors[reclaimIsolatedDesc],
		prometheus.CounterValue, float64(s.sumIsolated))
	ch <- prometheus.MustNewConstMetric(descriptors[reclaimedBytesDesc],
		prometheus.CounterValue, float64(s.sumReclaimedKb*1024))
}
