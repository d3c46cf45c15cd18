package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"searchrank/internal/models"
)

const namespace = "searchrank"

var keywordScoreDesc = prometheus.NewDesc(
	namespace+"_keyword_score",
	"Current search count of the top ranked keywords",
	[]string{"keyword"},
	nil,
)

// TopSource exposes the ranked entries the collector reports.
type TopSource interface {
	Top(k int) []models.PopularityEntry
}

// KeywordCollector is a custom Prometheus collector that reads the top
// keyword scores from the live ranker on each scrape.
type KeywordCollector struct {
	src   TopSource
	limit int
}

// Describe sends the metric descriptor to the channel.
func (c *KeywordCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- keywordScoreDesc
}

// Collect emits one gauge per top keyword.
func (c *KeywordCollector) Collect(ch chan<- prometheus.Metric) {
	for _, e := range c.src.Top(c.limit) {
		ch <- prometheus.MustNewConstMetric(
			keywordScoreDesc,
			prometheus.GaugeValue,
			float64(e.Score),
			string(e.Keyword),
		)
	}
}

// Metrics holds the service counters. A nil *Metrics records nothing.
type Metrics struct {
	searches    *prometheus.CounterVec
	cacheReads  *prometheus.CounterVec
	forwards    *prometheus.CounterVec
	comparisons *prometheus.CounterVec
	evictions   *prometheus.CounterVec
}

// Search outcomes
const (
	SearchAccepted = "accepted"
	SearchRejected = "rejected"
)

// Forward outcomes
const (
	ForwardOK      = "ok"
	ForwardFailed  = "failed"
	ForwardDropped = "dropped"
)

// New creates the counters and registers them, plus a KeywordCollector over
// src reporting topN keywords, with reg.
func New(reg prometheus.Registerer, src TopSource, topN int) *Metrics {
	m := &Metrics{
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Search submissions by result",
		}, []string{"result"}),
		cacheReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_reads_total",
			Help:      "Popular/recent reads by view and serving source",
		}, []string{"view", "source"}),
		forwards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_forwards_total",
			Help:      "Persistent store forwards by result",
		}, []string{"result"}),
		comparisons: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comparisons_total",
			Help:      "Cache versus store comparisons by view and parity",
		}, []string{"view", "match"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evictions_total",
			Help:      "Keywords evicted by capacity, by structure",
		}, []string{"structure"}),
	}

	reg.MustRegister(m.searches, m.cacheReads, m.forwards, m.comparisons, m.evictions)
	if src != nil && topN > 0 {
		reg.MustRegister(&KeywordCollector{src: src, limit: topN})
	}
	return m
}

// RegisterKeywordCollector registers a KeywordCollector on its own, for
// when the ranker is created after the counters.
func RegisterKeywordCollector(reg prometheus.Registerer, src TopSource, topN int) {
	reg.MustRegister(&KeywordCollector{src: src, limit: topN})
}

// Search counts a search submission.
func (m *Metrics) Search(result string) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(result).Inc()
}

// CacheRead counts a read of view served by source.
func (m *Metrics) CacheRead(view models.View, source string) {
	if m == nil {
		return
	}
	m.cacheReads.WithLabelValues(string(view), source).Inc()
}

// Forward counts a persistent store forward outcome.
func (m *Metrics) Forward(result string) {
	if m == nil {
		return
	}
	m.forwards.WithLabelValues(result).Inc()
}

// Comparison counts a comparison result.
func (m *Metrics) Comparison(view models.View, match bool) {
	if m == nil {
		return
	}
	m.comparisons.WithLabelValues(string(view), strconv.FormatBool(match)).Inc()
}

// Eviction counts a capacity eviction from structure.
func (m *Metrics) Eviction(structure string) {
	if m == nil {
		return
	}
	m.evictions.WithLabelValues(structure).Inc()
}
