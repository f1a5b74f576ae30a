package memmon

import (
	"fmt"
	"strings"
	"sync"
)

type statsCounters struct {
	sumRounds       uint64
	sumRoundRegions uint64
	lastMaxAccesses int
	sumColdMarks    uint64
	sumHotChecks    uint64
	sumCacheHits    uint64
	sumEvictions    uint64
	sumScans        uint64
	sumScanned      uint64
	sumIsolated     uint64
	sumReclaimedKb  uint64
}

type Stats struct {
	mutex    sync.Mutex
	counters statsCounters
}

type StatsColdMark struct {
}

type StatsHotCheck struct {
}

type StatsFrameCacheHit struct {
}

type StatsFrameCacheEviction struct {
}

type StatsRound struct {
	regions     int
	maxAccesses int
}

type StatsReclaimScan struct {
	scanned        int
	isolated       int
	reclaimedBytes uint64
}

var stats *Stats = newStats()

func newStats() *Stats {
	return &Stats{}
}

func GetStats() *Stats {
	return stats
}

func (s *Stats) Store(entry interface{}) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	switch v := entry.(type) {
	case StatsColdMark:
		s.counters.sumColdMarks += 1
	case StatsHotCheck:
		s.counters.sumHotChecks += 1
	case StatsFrameCacheHit:
		s.counters.sumCacheHits += 1
	case StatsFrameCacheEviction:
		s.counters.sumEvictions += 1
	case StatsRound:
		s.counters.sumRounds += 1
		s.counters.sumRoundRegions += uint64(v.regions)
		s.counters.lastMaxAccesses = v.maxAccesses
	case StatsReclaimScan:
		s.counters.sumScans += 1
		s.counters.sumScanned += uint64(v.scanned)
		s.counters.sumIsolated += uint64(v.isolated)
		s.counters.sumReclaimedKb += v.reclaimedBytes / 1024
	}
}

func (s *Stats) snapshot() statsCounters {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.counters
}

func (s *Stats) Dump() string {
	c := s.snapshot()
	lines := []string{
		fmt.Sprintf("rounds: %d regions: %d last max accesses: %d",
			c.sumRounds, c.sumRoundRegions, c.lastMaxAccesses),
		fmt.Sprintf("cold marks: %d", c.sumColdMarks),
		fmt.Sprintf("hot checks: %d", c.sumHotChecks),
		fmt.Sprintf("frame cache hits: %d evictions: %d", c.sumCacheHits, c.sumEvictions),
		fmt.Sprintf("reclaim scans: %d scanned: %d isolated: %d reclaimed: %d kB",
			c.sumScans, c.sumScanned, c.sumIsolated, c.sumReclaimedKb),
	}
	return strings.Join(lines, "\n")
}
