package memmon

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCollectorDescribe(t *testing.T) {
	c, err := NewCollector()
	if err != nil {
		t.Fatalf("creating collector failed: %v", err)
	}
	ch := make(chan *prometheus.Desc, 2*numDescriptors)
	c.Describe(ch)
	close(ch)
	descs := 0
	for range ch {
		descs++
	}
	if descs != numDescriptors {
		t.Errorf("expected %d descriptors, got %d", numDescriptors, descs)
	}
}

func TestCollectorCollect(t *testing.T) {
	stats.Store(StatsColdMark{})
	stats.Store(StatsHotCheck{})
	stats.Store(StatsRound{regions: 4, maxAccesses: 1})
	stats.Store(StatsReclaimScan{scanned: 512, isolated: 8, reclaimedBytes: 8 * 4096})

	c, err := NewCollector()
	if err != nil {
		t.Fatalf("creating collector failed: %v", err)
	}
	ch := make(chan prometheus.Metric, 2*numDescriptors)
	c.Collect(ch)
	close(ch)
	metrics := 0
	for range ch {
		metrics++
	}
	if metrics != numDescriptors {
		t.Errorf("expected %d metrics, got %d", numDescriptors, metrics)
	}
}
