// Package metrics holds the Prometheus collectors of the geoview server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DecodeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoview_decode_total",
		Help: "File groups decoded, by format and result",
	}, []string{"format", "result"})
	DecodeDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geoview_decode_duration_ms",
		Help:    "File group decode duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	}, []string{"format"})
	FeaturesDecoded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoview_features_decoded_total",
		Help: "Features produced by the decoders",
	})
	DuplicateIDsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoview_duplicate_ids_total",
		Help: "Source feature ids seen more than once in one collection",
	})
	LayersActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geoview_layers",
		Help: "Layers currently in the registry",
	})
	SplitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoview_splits_total",
		Help: "Attribute splits applied",
	})
	SplitDroppedFeatures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoview_split_dropped_features_total",
		Help: "Non-polygonal features left out of a split",
	})
	TileCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoview_tile_cache_hits_total",
		Help: "Vector tiles served from cache",
	})
	TileCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoview_tile_cache_misses_total",
		Help: "Vector tiles rendered on demand",
	})
)

func init() {
	prometheus.MustRegister(DecodeTotal)
	prometheus.MustRegister(DecodeDurationMs)
	prometheus.MustRegister(FeaturesDecoded)
	prometheus.MustRegister(DuplicateIDsTotal)
	prometheus.MustRegister(LayersActive)
	prometheus.MustRegister(SplitsTotal)
	prometheus.MustRegister(SplitDroppedFeatures)
	prometheus.MustRegister(TileCacheHits)
	prometheus.MustRegister(TileCacheMisses)
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler { return promhttp.Handler() }
