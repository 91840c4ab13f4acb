package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const zonesJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"zone":"a"},
  "geometry":{"type":"Polygon","coordinates":[[[1,1],[2,1],[2,2],[1,2],[1,1]]]}},
 {"type":"Feature","properties":{"zone":"b"},
  "geometry":{"type":"Polygon","coordinates":[[[3,1],[4,1],[4,2],[3,2],[3,1]]]}}
]}`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(Config{Host: "localhost", Port: "8086", MaxUploadMB: 1, TileCacheMB: 1})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func TestServerRoundTrip(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("files", "zones.geojson")
	fw.Write([]byte(zonesJSON))
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/layers/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := serve(s, req)
	if w.Code != http.StatusOK {
		t.Fatalf("upload status=%d body=%s", w.Code, w.Body.String())
	}
	var up struct {
		Layers []struct {
			ID string `json:"id"`
		} `json:"layers"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &up); err != nil || len(up.Layers) != 1 {
		t.Fatalf("upload body=%s err=%v", w.Body.String(), err)
	}
	id := up.Layers[0].ID

	w = serve(s, httptest.NewRequest(http.MethodGet, "/tiles/"+id+"/0/0/0.mvt", nil))
	if w.Code != http.StatusOK || w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("tile status=%d headers=%v", w.Code, w.Header())
	}

	w = serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "geoview_tile_cache_misses_total") {
		t.Fatalf("metrics status=%d", w.Code)
	}

	if s.Services().Catalog == nil {
		t.Fatal("catalog not opened")
	}
	// The catalog follows the registry asynchronously.
	deadline := time.Now().Add(5 * time.Second)
	for {
		q := strings.NewReader(`{"query":"SELECT count(*) AS n FROM attributes WHERE attr = 'zone'"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/query", q)
		req.Header.Set("Content-Type", "application/json")
		w = serve(s, req)
		if w.Code != http.StatusOK {
			t.Fatalf("query status=%d body=%s", w.Code, w.Body.String())
		}
		var out struct {
			Rows []map[string]any `json:"rows"`
		}
		json.Unmarshal(w.Body.Bytes(), &out)
		if len(out.Rows) == 1 && out.Rows[0]["n"] == float64(2) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("catalog never caught up: %s", w.Body.String())
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestOpenAPI(t *testing.T) {
	s := newTestServer(t)
	doc := s.OpenAPI()
	for _, path := range []string{
		"/api/v1/layers",
		"/api/v1/layers/upload",
		"/api/v1/layers/{id}/split",
		"/api/v1/layers/{id}/export.pmtiles",
		"/api/v1/select/point",
		"/api/v1/events",
		"/api/v1/tables",
		"/api/v1/info",
	} {
		if doc.Paths[path] == nil {
			t.Errorf("OpenAPI is missing %s", path)
		}
	}
}
