package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joeblew999/plat-geoview/internal/decode"
	"github.com/joeblew999/plat-geoview/internal/geo"
	"github.com/joeblew999/plat-geoview/internal/logger"
	"github.com/joeblew999/plat-geoview/internal/metrics"
)

// DefaultConcurrency bounds how many file groups of one batch decode at once.
const DefaultConcurrency = 4

// Upload is one file of a batch.
type Upload struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// BytesUpload wraps an in-memory file.
func BytesUpload(name string, data []byte) Upload {
	return Upload{Name: name, Open: func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}}
}

// FileUpload wraps a file on disk. The upload is named after the base name.
func FileUpload(path string) Upload {
	return Upload{Name: filepath.Base(path), Open: func() (io.ReadCloser, error) {
		return os.Open(path)
	}}
}

// Failure reports one file group that did not become a layer.
type Failure struct {
	Group string   `json:"group" yaml:"group" doc:"Base name of the file group"`
	Files []string `json:"files" yaml:"files" doc:"Files in the group"`
	Error string   `json:"error" yaml:"error" doc:"What went wrong"`

	Err error `json:"-" yaml:"-"`
}

// BatchResult is the outcome of one Ingest call. Layers appear in the order
// their groups finished.
type BatchResult struct {
	BatchID  string    `json:"batchId" yaml:"batchId" doc:"Identifier tagging the batch in logs"`
	Layers   []Layer   `json:"-" yaml:"-"`
	Failures []Failure `json:"failures,omitempty" yaml:"failures,omitempty" doc:"File groups that failed"`
}

// IngestService decodes upload batches into registry layers.
type IngestService struct {
	registry    *Registry
	concurrency int
	now         func() time.Time

	mu         sync.Mutex
	lastMillis int64
}

// NewIngestService creates an ingest service adding layers to registry.
// concurrency <= 0 selects DefaultConcurrency.
func NewIngestService(registry *Registry, concurrency int) *IngestService {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &IngestService{registry: registry, concurrency: concurrency, now: time.Now}
}

// Ingest groups uploads by base name and decodes each group into a layer.
// Layer colours and ids are fixed before any group starts, so the result
// does not depend on completion order. A failing group is reported and never
// affects the others or layers added earlier. Cancelling ctx stops groups
// that have not started; running decodes finish.
func (s *IngestService) Ingest(ctx context.Context, uploads []Upload) BatchResult {
	res := BatchResult{BatchID: uuid.NewString()}
	log := logger.L().With("batch", res.BatchID)

	byName := make(map[string]Upload, len(uploads))
	names := make([]string, 0, len(uploads))
	for _, u := range uploads {
		if _, dup := byName[u.Name]; dup {
			log.Warn("duplicate file in batch, keeping the first", "file", u.Name)
			continue
		}
		byName[u.Name] = u
		names = append(names, u.Name)
	}

	groups := decode.GroupFiles(names)
	existing := s.registry.Len()
	stamp := s.stamp()
	log.Info("ingest batch", "files", len(names), "groups", len(groups), "existing_layers", existing)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.concurrency)

	fail := func(grp decode.Group, err error) {
		log.Error("file group failed", "group", grp.Name, "files", grp.Files, "error", err)
		mu.Lock()
		res.Failures = append(res.Failures, Failure{Group: grp.Name, Files: grp.Files, Error: err.Error(), Err: err})
		mu.Unlock()
	}

	for _, grp := range groups {
		if err := ctx.Err(); err != nil {
			fail(grp, err)
			continue
		}
		g.Go(func() error {
			l, err := s.load(grp, byName, existing, stamp)
			if err != nil {
				fail(grp, err)
				return nil
			}

			s.registry.Add(l)
			log.Info("layer added", "layer", l.ID, "features", l.Base.Len(), "color", l.Color)
			mu.Lock()
			res.Layers = append(res.Layers, l)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return res
}

// load decodes one group into a layer.
func (s *IngestService) load(grp decode.Group, files map[string]Upload, existing int, stamp int64) (Layer, error) {
	format := grp.Format()
	start := time.Now()

	fc, err := decodeGroup(grp, files)
	metrics.DecodeDurationMs.WithLabelValues(format.String()).Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.DecodeTotal.WithLabelValues(format.String(), "error").Inc()
		return Layer{}, err
	}
	metrics.DecodeTotal.WithLabelValues(format.String(), "ok").Inc()
	metrics.FeaturesDecoded.Add(float64(fc.Len()))

	if dups := geo.DuplicateIDs(fc); len(dups) > 0 {
		metrics.DuplicateIDsTotal.Add(float64(len(dups)))
		logger.L().Warn("duplicate feature ids kept as-is", "group", grp.Name, "ids", dups)
	}

	return Layer{
		ID:      LayerID(grp.Name, stamp, grp.Index),
		Name:    grp.Name,
		Base:    fc,
		Visible: true,
		Color:   LayerColor(existing, grp.Index),
	}, nil
}

func decodeGroup(grp decode.Group, files map[string]Upload) (*geo.FeatureCollection, error) {
	switch grp.Format() {
	case decode.FormatShapefile:
		// The attribute table is read in full before the geometry.
		var dbf []byte
		if grp.Dbf != "" {
			var err error
			if dbf, err = readUpload(files[grp.Dbf]); err != nil {
				return nil, err
			}
		}
		shp, err := readUpload(files[grp.Shp])
		if err != nil {
			return nil, err
		}
		return decode.Shapefile(grp.Name, shp, dbf)

	case decode.FormatGeoJSON:
		data, err := readUpload(files[grp.Text])
		if err != nil {
			return nil, err
		}
		fc, err := decode.GeoJSON(grp.Text, data)
		if err != nil {
			return nil, err
		}
		fc.Name = grp.Name
		return fc, nil

	default:
		return nil, grp.Err()
	}
}

func readUpload(u Upload) ([]byte, error) {
	if u.Open == nil {
		return nil, fmt.Errorf("read %s: no content", u.Name)
	}
	rc, err := u.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", u.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u.Name, err)
	}
	return data, nil
}

// stamp returns a millisecond timestamp strictly greater than any earlier
// one from this service.
func (s *IngestService) stamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := s.now().UnixMilli()
	if ms <= s.lastMillis {
		ms = s.lastMillis + 1
	}
	s.lastMillis = ms
	return ms
}

// LayerID builds the id of a layer from its base name, batch timestamp and
// batch index.
func LayerID(name string, millis int64, index int) string {
	return fmt.Sprintf("%s-%d-%d", name, millis, index)
}
