package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-geoview/internal/api"
	"github.com/joeblew999/plat-geoview/internal/export"
	"github.com/joeblew999/plat-geoview/internal/logger"
	"github.com/joeblew999/plat-geoview/internal/server"
	"github.com/joeblew999/plat-geoview/internal/service"
)

// Options defines all CLI flags and env vars for the geoview server.
// Flags: --host, --port, --max-upload-mb, --tile-cache-mb
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_MAX_UPLOAD_MB, SERVICE_TILE_CACHE_MB
type Options struct {
	Host        string `doc:"Host to bind to" default:"0.0.0.0"`
	Port        int    `doc:"Port to listen on" short:"p" default:"8086"`
	MaxUploadMB int    `doc:"Largest accepted upload batch in MiB" default:"256"`
	TileCacheMB int    `doc:"Memory for rendered vector tiles in MiB" default:"64"`
}

func newServer(opts *Options) (*server.Server, error) {
	return server.New(server.Config{
		Host:             opts.Host,
		Port:             fmt.Sprintf("%d", opts.Port),
		MaxUploadMB:      opts.MaxUploadMB,
		TileCacheMB:      opts.TileCacheMB,
		DuckDBExtensions: []string{"spatial"},
	})
}

func main() {
	_ = godotenv.Load()
	log := logger.Setup()

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		var httpServer *http.Server

		hooks.OnStart(func() {
			srv, err := newServer(opts)
			if err != nil {
				log.Error("server setup failed", "error", err)
				os.Exit(1)
			}
			defer srv.Close()

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-geoview API server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Upload:  %s/api/v1/layers/upload (max %d MiB)\n", baseURL, opts.MaxUploadMB)
			fmt.Printf("  Tiles:   %s/tiles/{id}/{z}/{x}/{y}.mvt\n", baseURL)
			fmt.Printf("  Events:  %s/api/v1/events\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			httpServer = &http.Server{Addr: addr, Handler: srv, ReadHeaderTimeout: 10 * time.Second}
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("server error", "error", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			if httpServer == nil {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpServer.Shutdown(ctx)
		})
	})

	cli.Root().Use = "geoview"
	cli.Root().Short = "Load Shapefile and GeoJSON layers, split them by attribute, and select features"
	cli.Root().Version = api.Version

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv, err := newServer(opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error creating server: %v\n", err)
				os.Exit(1)
			}
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// inspect subcommand: ingest files locally and summarise the layers
	inspectCmd := &cobra.Command{
		Use:   "inspect FILE...",
		Short: "Load files as layers and print a YAML summary",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, res := ingestFiles(cmd.Context(), args)
			return printSummary(reg.List(), res.Failures)
		},
	}
	cli.Root().AddCommand(inspectCmd)

	// split subcommand: split every loaded layer by one attribute
	splitCmd := &cobra.Command{
		Use:   "split --by ATTR FILE...",
		Short: "Split every loaded layer by an attribute and print a YAML summary",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			by, _ := cmd.Flags().GetString("by")
			outDir, _ := cmd.Flags().GetString("output")
			format, _ := cmd.Flags().GetString("format")

			reg, res := ingestFiles(cmd.Context(), args)
			for _, l := range reg.List() {
				reg.SplitBy(l.ID, by)
			}
			layers := reg.List()
			if outDir != "" {
				for _, l := range layers {
					path, err := writeLayer(outDir, format, &l)
					if err != nil {
						return err
					}
					fmt.Fprintf(os.Stderr, "wrote %s\n", path)
				}
			}
			return printSummary(layers, res.Failures)
		},
	}
	splitCmd.Flags().String("by", "", "Attribute to split by")
	splitCmd.Flags().StringP("output", "o", "", "Directory to write the drawn collections to")
	splitCmd.Flags().String("format", "geojson", "Output format: geojson or fgb")
	splitCmd.MarkFlagRequired("by")
	cli.Root().AddCommand(splitCmd)

	cli.Run()
}

func ingestFiles(ctx context.Context, paths []string) (*service.Registry, service.BatchResult) {
	if ctx == nil {
		ctx = context.Background()
	}
	reg := service.NewRegistry(nil)
	uploads := make([]service.Upload, len(paths))
	for i, p := range paths {
		uploads[i] = service.FileUpload(p)
	}
	return reg, service.NewIngestService(reg, 0).Ingest(ctx, uploads)
}

type summary struct {
	Layers   []service.LayerSummary `yaml:"layers"`
	Failures []service.Failure      `yaml:"failures,omitempty"`
}

func printSummary(layers []service.Layer, failures []service.Failure) error {
	out := summary{Layers: make([]service.LayerSummary, len(layers)), Failures: failures}
	for i := range layers {
		out.Layers[i] = layers[i].Summary()
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if len(failures) > 0 {
		return fmt.Errorf("%d file group(s) failed", len(failures))
	}
	return nil
}

func writeLayer(dir, format string, l *service.Layer) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	var (
		path string
		data []byte
		err  error
	)
	switch format {
	case "geojson":
		path = filepath.Join(dir, l.Name+".geojson")
		data, err = l.Drawn().MarshalJSON()
	case "fgb":
		path = filepath.Join(dir, l.Name+".fgb")
		f, ferr := os.Create(path)
		if ferr != nil {
			return "", ferr
		}
		defer f.Close()
		err = export.WriteFlatGeobuf(f, l.Drawn(), export.FlatGeobufOptions{Name: l.Name, Index: true})
		return path, err
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", l.Name, err)
	}
	return path, os.WriteFile(path, data, 0o644)
}
