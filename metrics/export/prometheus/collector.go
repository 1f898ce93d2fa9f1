package prometheus

import (
	"strconv"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/MrEthical07/authflow/metrics/export/internaldefs"
)

// Collector adapts a MetricsSource to client_golang so the flow counters
// can live in an application's own prometheus.Registry next to its other
// metrics. Names match the text exporter.
type Collector struct {
	source       MetricsSource
	counters     []*prom.Desc
	histograms   []*prom.Desc
	dropped      *prom.Desc
	droppedByTyp *prom.Desc
	bounds       []float64
}

// auditTypeSource is implemented by sources that break audit drops down by
// event type, as authflow.Telemetry does.
type auditTypeSource interface {
	AuditDroppedByType() map[string]uint64
}

var _ prom.Collector = (*Collector)(nil)

func NewCollector(source MetricsSource) *Collector {
	c := &Collector{
		source:  source,
		dropped: prom.NewDesc("authflow_audit_dropped_total", "Dropped audit events due to dispatcher backpressure.", nil, nil),
		droppedByTyp: prom.NewDesc("authflow_audit_dropped_by_type_total", "Dropped audit events by event type.",
			[]string{"event_type"}, nil),
	}
	for _, def := range internaldefs.CounterDefs {
		c.counters = append(c.counters, prom.NewDesc(def.Name, def.Help, nil, nil))
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histograms = append(c.histograms, prom.NewDesc(def.Name, def.Help, nil, nil))
	}
	// the last bound is +Inf, which client_golang adds itself
	for _, le := range internaldefs.HistogramBounds[:len(internaldefs.HistogramBounds)-1] {
		v, err := strconv.ParseFloat(le, 64)
		if err != nil {
			panic("internaldefs: bad histogram bound " + le)
		}
		c.bounds = append(c.bounds, v)
	}
	return c
}

func (c *Collector) Describe(ch chan<- *prom.Desc) {
	for _, d := range c.counters {
		ch <- d
	}
	for _, d := range c.histograms {
		ch <- d
	}
	ch <- c.dropped
	ch <- c.droppedByTyp
}

func (c *Collector) Collect(ch chan<- prom.Metric) {
	if c.source == nil {
		return
	}
	snapshot := c.source.MetricsSnapshot()

	for i, def := range internaldefs.CounterDefs {
		ch <- prom.MustNewConstMetric(c.counters[i], prom.CounterValue, float64(snapshot.Counters[def.ID]))
	}
	for i, def := range internaldefs.HistogramDefs {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID]))
		buckets := make(map[float64]uint64, len(c.bounds))
		for j, le := range c.bounds {
			buckets[le] = cumulative[j]
		}
		ch <- prom.MustNewConstHistogram(c.histograms[i], cumulative[len(cumulative)-1], 0, buckets)
	}
	ch <- prom.MustNewConstMetric(c.dropped, prom.CounterValue, float64(c.source.AuditDropped()))

	if typed, ok := c.source.(auditTypeSource); ok {
		for eventType, n := range typed.AuditDroppedByType() {
			ch <- prom.MustNewConstMetric(c.droppedByTyp, prom.CounterValue, float64(n), eventType)
		}
	}
}
