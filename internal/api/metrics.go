package api

import (
	"fmt"
	"net/http"
)

// serveMetrics exposes cache counters in plaintext exposition format.
func (h *Handler) serveMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	snap := h.engine.Cache().Snapshot()
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric := func(name, pool string, value int64) {
		fmt.Fprintf(w, "%s{pool=%q} %d\n", name, pool, value)
	}
	writeMetric("webpods_cache_hits_total", "pods", snap.PodsHit)
	writeMetric("webpods_cache_hits_total", "streams", snap.StreamsHit)
	writeMetric("webpods_cache_hits_total", "singleRecords", snap.RecordsHit)
	writeMetric("webpods_cache_hits_total", "recordLists", snap.ListsHit)
	writeMetric("webpods_cache_misses_total", "pods", snap.PodsMiss)
	writeMetric("webpods_cache_misses_total", "streams", snap.StreamsMiss)
	writeMetric("webpods_cache_misses_total", "singleRecords", snap.RecordsMiss)
	writeMetric("webpods_cache_misses_total", "recordLists", snap.ListsMiss)
	writeMetric("webpods_cache_sets_total", "pods", snap.PodsSet)
	writeMetric("webpods_cache_sets_total", "streams", snap.StreamsSet)
	writeMetric("webpods_cache_sets_total", "singleRecords", snap.RecordsSet)
	writeMetric("webpods_cache_sets_total", "recordLists", snap.ListsSet)
}
