package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"

	"github.com/hupe1980/octogo"
	"github.com/hupe1980/octogo/ident"
	"github.com/hupe1980/octogo/octree"
	"github.com/hupe1980/octogo/snapshot"
)

// The octogo version number. Set at build.
var version = "v0.1.0"

type config struct {
	Mode         string      `cli:""        env:"OCTOGO_MODE"          help:"What to do (build|query|relate|models|drop)."`
	Model        string      `cli:""        env:"OCTOGO_MODEL"         help:"The model id."`
	Input        string      `cli:""        env:"OCTOGO_INPUT"         help:"JSON element file, - for stdin."`
	World        string      `cli:""        env:"OCTOGO_WORLD"         help:"World box as minX,minY,minZ,maxX,maxY,maxZ."`
	MaxDepth     int         `cli:""        env:"OCTOGO_MAX_DEPTH"     help:"Maximum cell depth."`
	Compression  string      `cli:",hidden" env:"OCTOGO_COMPRESSION"   help:"Snapshot compression (none|lz4|zstd)."`
	BuildWorkers int         `cli:",hidden" env:"OCTOGO_BUILD_WORKERS" help:"Concurrent subdivisions, 0 for GOMAXPROCS."`
	IOLimit      int64       `cli:",hidden" env:"OCTOGO_IO_LIMIT"      help:"Snapshot IO limit in bytes per second, 0 for unlimited."`
	Store        storeConfig `cli:""        env:"-"                    help:"Snapshot store configuration."`
	MetricsAddr  string      `cli:",hidden" env:"OCTOGO_METRICS_ADDR"  help:"Serve Prometheus metrics on this address while running."`
	LogLevel     string      `cli:""        env:"OCTOGO_LOG_LEVEL"     help:"Log level (debug|info|warning|error)."`
	LogIndent    bool        `cli:""        env:"OCTOGO_LOG_INDENT"    help:"Indent logs."`
	Version      bool        `cli:""        env:"-"                    help:"Show version."`
	Help         bool        `cli:""        env:"-"                    help:"Show help."`
}

func main() {
	conf := config{
		Mode:        "build",
		Input:       "-",
		World:       "0,0,0,1024,1024,1024",
		MaxDepth:    octogo.DefaultMaxDepth,
		Compression: snapshot.CompressionZSTD.String(),
		Store:       storeConfig{URL: "file://./data"},
		LogLevel:    logs.InfoLevel.String(),
	}

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Builds and queries octree cell indexes of building models.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}
	errors.Encoder = json.Marshal

	if err := run(ctx, conf, os.Stdout); err != nil {
		logs.Fatal(err)
	}
}

func run(ctx context.Context, conf config, out io.Writer) error {
	if err := validateConfig(conf); err != nil {
		return err
	}

	db, err := openDB(ctx, conf)
	if err != nil {
		return err
	}
	defer db.Close()

	start := time.Now()
	var res any
	switch conf.Mode {
	case "build":
		res, err = build(ctx, db, conf)
	case "query":
		res, err = query(ctx, db, conf)
	case "relate":
		res, err = relate(ctx, db, conf)
	case "models":
		res, err = db.Models(ctx)
	case "drop":
		err = db.Drop(ctx, conf.Model)
		res = map[string]string{"dropped": conf.Model}
	}
	if err != nil {
		return errors.New(conf.Mode+" failed").
			WithTag("model", conf.Model).
			Wrap(err)
	}

	logs.WithTag("mode", conf.Mode).
		WithTag("model", conf.Model).
		WithTag("duration", time.Since(start).String()).
		Info("done")

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func validateConfig(conf config) error {
	switch conf.Mode {
	case "models":
		return nil
	case "build", "query", "relate", "drop":
	default:
		return errors.New("unknown mode").WithTag("mode", conf.Mode)
	}
	if conf.Model == "" {
		return errors.New("model is required").WithTag("mode", conf.Mode)
	}
	if _, err := snapshot.ParseCompression(conf.Compression); err != nil {
		return errors.New("invalid compression").Wrap(err)
	}
	return nil
}

func openDB(ctx context.Context, conf config) (*octogo.DB, error) {
	space, err := parseWorld(conf.World)
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, conf.Store)
	if err != nil {
		return nil, err
	}
	compression, err := snapshot.ParseCompression(conf.Compression)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	if conf.MetricsAddr != "" {
		srv := &http.Server{
			Addr:    conf.MetricsAddr,
			Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logs.Warn(errors.New("metrics server stopped").Wrap(err))
			}
		}()
		go func() {
			<-ctx.Done()
			_ = srv.Close()
		}()
	}

	return octogo.Open(space,
		octogo.WithMaxDepth(conf.MaxDepth),
		octogo.WithBlobStore(store),
		octogo.WithCompression(compression),
		// A build replaces the model wholesale.
		octogo.WithSkipLoad(conf.Mode == "build"),
		octogo.WithResourceController(octogo.NewResourceController(octogo.ResourceConfig{
			MaxBuildWorkers:    int64(conf.BuildWorkers),
			IOLimitBytesPerSec: conf.IOLimit,
		})),
		octogo.WithMetricsCollector(octogo.NewPrometheusCollector(reg)),
		octogo.WithLogger(octogo.NewLogger(logHandler{})),
	)
}

type buildOutput struct {
	Model    string `json:"model"`
	Elements int    `json:"elements"`
	Cells    int    `json:"cells"`
	Version  uint64 `json:"version"`
}

func build(ctx context.Context, db *octogo.DB, conf config) (buildOutput, error) {
	items, err := readItems(conf.Input)
	if err != nil {
		return buildOutput{}, err
	}
	res, err := db.Build(ctx, conf.Model, items)
	if err != nil {
		return buildOutput{}, err
	}
	v, err := db.Save(ctx, conf.Model)
	if err != nil {
		return buildOutput{}, err
	}
	return buildOutput{
		Model:    conf.Model,
		Elements: res.Elements,
		Cells:    res.Cells,
		Version:  v,
	}, nil
}

type queryOutput struct {
	ID   ident.ID   `json:"id"`
	Hits []ident.ID `json:"hits"`
}

func query(ctx context.Context, db *octogo.DB, conf config) ([]queryOutput, error) {
	items, err := readItems(conf.Input)
	if err != nil {
		return nil, err
	}
	out := make([]queryOutput, 0, len(items))
	for _, it := range items {
		hits, err := db.Query(ctx, conf.Model, it.Solid)
		if err != nil {
			return nil, err
		}
		out = append(out, queryOutput{ID: it.Identity, Hits: hits})
	}
	return out, nil
}

type relateOutput struct {
	ID     ident.ID  `json:"id"`
	Cell   string    `json:"cell"`
	Depth  int       `json:"depth"`
	Kind   string    `json:"kind"`
	Border bool      `json:"border"`
	Min    [3]uint32 `json:"min"`
	Max    [3]uint32 `json:"max"`
}

func newRelateOutput(e octree.OverlayEntry) relateOutput {
	return relateOutput{
		ID:     e.Identity,
		Cell:   e.Address.String(),
		Depth:  e.Depth,
		Kind:   e.Kind.String(),
		Border: e.Border,
		Min:    e.Bounds.Min,
		Max:    e.Bounds.Max,
	}
}

func relate(ctx context.Context, db *octogo.DB, conf config) ([]relateOutput, error) {
	items, err := readItems(conf.Input)
	if err != nil {
		return nil, err
	}
	entries, err := db.Relate(ctx, conf.Model, items)
	if err != nil {
		return nil, err
	}
	out := make([]relateOutput, len(entries))
	for i, e := range entries {
		out[i] = newRelateOutput(e)
	}
	return out, nil
}
