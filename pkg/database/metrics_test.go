package database

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func describe(c prometheus.Collector) []*prometheus.Desc {
	ch := make(chan *prometheus.Desc, 32)
	c.Describe(ch)
	close(ch)

	var descs []*prometheus.Desc
	for d := range ch {
		descs = append(descs, d)
	}
	return descs
}

func TestPoolStatsCollector_Describe(t *testing.T) {
	c := NewPoolStatsCollector(nil, "shop")
	descs := describe(c)
	assert.Len(t, descs, 8)

	var all strings.Builder
	for _, d := range descs {
		all.WriteString(d.String())
	}
	for _, name := range []string{
		"db_pool_acquired_connections",
		"db_pool_idle_connections",
		"db_pool_max_connections",
		"db_pool_acquire_count_total",
		"db_pool_canceled_acquire_count_total",
	} {
		assert.Contains(t, all.String(), name)
	}
}

func TestRegisterPoolMetrics_RejectsDuplicate(t *testing.T) {
	reg := prometheus.NewRegistry()
	assert.NoError(t, RegisterPoolMetrics(reg, nil, "shop"))
	assert.Error(t, RegisterPoolMetrics(reg, nil, "shop"))
}
