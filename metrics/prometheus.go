package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusProvider adapts Provider to real Prometheus collectors
// (github.com/prometheus/client_golang), registered against the supplied
// Registerer. Grounded on estuary-flow's direct dependency on
// prometheus/client_golang, wired here since the teacher ships no metrics
// exporter of its own (DESIGN.md).
type PrometheusProvider struct {
	reg        prometheus.Registerer
	namespace  string
	counters   map[string]*prometheus.CounterVec
	updowns    map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusProvider constructs a Provider backed by reg. namespace is
// prefixed to every metric name.
func NewPrometheusProvider(reg prometheus.Registerer, namespace string) *PrometheusProvider {
	return &PrometheusProvider{
		reg:        reg,
		namespace:  namespace,
		counters:   make(map[string]*prometheus.CounterVec),
		updowns:    make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func (p *PrometheusProvider) Counter(name string, opts ...InstrumentOption) Counter {
	cfg := applyOptions(opts)
	labelNames, labelValues := attrLabels(cfg.Attributes)
	cv, ok := p.counters[name]
	if !ok {
		cv = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      name,
			Help:      cfg.Description,
		}, labelNames)
		p.reg.MustRegister(cv)
		p.counters[name] = cv
	}
	return &promCounter{c: cv.WithLabelValues(labelValues...)}
}

func (p *PrometheusProvider) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	cfg := applyOptions(opts)
	labelNames, labelValues := attrLabels(cfg.Attributes)
	gv, ok := p.updowns[name]
	if !ok {
		gv = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Name:      name,
			Help:      cfg.Description,
		}, labelNames)
		p.reg.MustRegister(gv)
		p.updowns[name] = gv
	}
	return &promUpDown{g: gv.WithLabelValues(labelValues...)}
}

func (p *PrometheusProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	cfg := applyOptions(opts)
	labelNames, labelValues := attrLabels(cfg.Attributes)
	hv, ok := p.histograms[name]
	if !ok {
		hv = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Name:      name,
			Help:      cfg.Description,
			Buckets:   prometheus.DefBuckets,
		}, labelNames)
		p.reg.MustRegister(hv)
		p.histograms[name] = hv
	}
	return &promHistogram{h: hv.WithLabelValues(labelValues...)}
}

func attrLabels(attrs map[string]string) (names []string, values []string) {
	for k, v := range attrs {
		names = append(names, k)
		values = append(values, v)
	}
	return names, values
}

type promCounter struct{ c prometheus.Counter }

func (p *promCounter) Add(n int64) { p.c.Add(float64(n)) }

type promUpDown struct{ g prometheus.Gauge }

func (p *promUpDown) Add(n int64) { p.g.Add(float64(n)) }

type promHistogram struct{ h prometheus.Observer }

func (p *promHistogram) Record(v float64) { p.h.Observe(v) }
