package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/paulmach/orb/maptile"

	"github.com/joeblew999/plat-geoview/internal/logger"
	"github.com/joeblew999/plat-geoview/internal/tiles"
)

// TilePattern is the mux pattern served by TileHandler. The last segment
// is "{y}.mvt"; ServeMux wildcards must fill a segment, so it is parsed here.
const TilePattern = "/tiles/{id}/{z}/{x}/{file}"

// TileHandler serves gzipped Mapbox vector tiles of registry layers. It is
// a plain handler rather than a Huma operation because tile bodies are
// binary and the route is hit once per visible tile.
func TileHandler(cache *tiles.Cache) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Encoding")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		t, ok := parseTile(r)
		if !ok {
			http.Error(w, "invalid tile address", http.StatusBadRequest)
			return
		}

		data, found, err := cache.Tile(r.PathValue("id"), t)
		switch {
		case err != nil:
			logger.L().Warn("tile failed", "layer", r.PathValue("id"), "z", t.Z, "x", t.X, "y", t.Y, "error", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		case !found:
			http.Error(w, "layer not found", http.StatusNotFound)
			return
		case data == nil:
			w.WriteHeader(http.StatusNoContent)
			return
		}

		w.Header().Set("Content-Type", "application/vnd.mapbox-vector-tile")
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Write(data)
	})
}

func parseTile(r *http.Request) (maptile.Tile, bool) {
	y, ok := strings.CutSuffix(r.PathValue("file"), ".mvt")
	if !ok {
		return maptile.Tile{}, false
	}
	z, err1 := strconv.ParseUint(r.PathValue("z"), 10, 32)
	x, err2 := strconv.ParseUint(r.PathValue("x"), 10, 32)
	yy, err3 := strconv.ParseUint(y, 10, 32)
	if err1 != nil || err2 != nil || err3 != nil {
		return maptile.Tile{}, false
	}
	return maptile.New(uint32(x), uint32(yy), maptile.Zoom(z)), true
}
