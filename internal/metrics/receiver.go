package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ayusman/fingerspell/internal/receiver"
)

// ReceiverCollector exports the counters of a frame receiver.
type ReceiverCollector struct {
	stats func() receiver.Stats

	received     *prometheus.Desc
	overwritten  *prometheus.Desc
	decodeErrors *prometheus.Desc
	readErrors   *prometheus.Desc
}

// NewReceiverCollector creates a collector that reads stats on every scrape.
func NewReceiverCollector(stats func() receiver.Stats) *ReceiverCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "receiver", name), help, nil, nil)
	}
	return &ReceiverCollector{
		stats:        stats,
		received:     desc("datagrams_total", "Total number of datagrams received"),
		overwritten:  desc("overwritten_total", "Total number of payloads replaced before they were read"),
		decodeErrors: desc("decode_errors_total", "Total number of datagrams dropped for invalid UTF-8"),
		readErrors:   desc("read_errors_total", "Total number of socket read errors"),
	}
}

// Describe implements prometheus.Collector.
func (c *ReceiverCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.received
	ch <- c.overwritten
	ch <- c.decodeErrors
	ch <- c.readErrors
}

// Collect implements prometheus.Collector.
func (c *ReceiverCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(c.received, prometheus.CounterValue, float64(s.Received))
	ch <- prometheus.MustNewConstMetric(c.overwritten, prometheus.CounterValue, float64(s.Overwritten))
	ch <- prometheus.MustNewConstMetric(c.decodeErrors, prometheus.CounterValue, float64(s.DecodeErrors))
	ch <- prometheus.MustNewConstMetric(c.readErrors, prometheus.CounterValue, float64(s.ReadErrors))
}
