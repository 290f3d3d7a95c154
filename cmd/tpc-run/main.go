// Command tpc-run drives the AT-TPC reconstruction pipeline (C1-C10) over a
// batch of decoded events, persisting point clouds, clusters, and solver
// results to a SQLite database.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/nscl-frib/spyralgo/internal/config"
	"github.com/nscl-frib/spyralgo/internal/rundriver"
	"github.com/nscl-frib/spyralgo/internal/store"
	"github.com/nscl-frib/spyralgo/internal/tpc"
)

var (
	configPath   = flag.String("config", "", "path to a JSON tuning overrides file")
	padMapPath   = flag.String("padmap", "padmap.csv", "path to the pad geometry CSV")
	garfieldPath = flag.String("garfield", "", "path to the Garfield electron-drift simulation table")
	gasPath      = flag.String("gas", "", "path to the gas dE/dx table")
	nuclearPath  = flag.String("nuclear", "", "path to the nuclear data CSV")
	cutPath      = flag.String("cut", "", "optional path to a Cut2D particle-ID gate JSON file")
	eventsPath   = flag.String("events", "", "path to a JSON-lines file of decoded event frames")
	dbPath       = flag.String("db", "spyral.db", "path to the output SQLite database")
	runID        = flag.String("run-id", "", "run identifier (default: a generated UUID)")
	workers      = flag.Int("workers", 4, "number of concurrent event workers")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		log.Fatalf("tpc-run: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	deps, err := loadDependencies(cfg)
	if err != nil {
		return err
	}

	st, err := store.Open(*dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	id := *runID
	if id == "" {
		id = uuid.New().String()
	}

	events, err := openEventStream(*eventsPath)
	if err != nil {
		return err
	}
	defer events.Close()

	frameCh := make(chan tpc.EventFrame)
	go func() {
		defer close(frameCh)
		if err := events.Each(ctx, func(f tpc.EventFrame) {
			frameCh <- f
		}); err != nil {
			log.Printf("tpc-run: event stream: %v", err)
		}
	}()

	driver := rundriver.New(deps, cfg, st, *workers)
	stats, err := driver.Run(ctx, id, frameCh)
	if err != nil {
		return fmt.Errorf("run %s: %w", id, err)
	}

	log.Printf("run %s complete: %d events, %d clusters accepted, %d rejected, %d solver failures",
		id, stats.EventsProcessed, stats.ClustersAccepted, stats.ClustersRejected, stats.SolverFailures)
	return nil
}

func loadConfig() (*config.RunConfig, error) {
	if *configPath == "" {
		return config.EmptyRunConfig(), nil
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func loadDependencies(cfg *config.RunConfig) (rundriver.Dependencies, error) {
	padMapFile, err := os.Open(*padMapPath)
	if err != nil {
		return rundriver.Dependencies{}, fmt.Errorf("open pad map: %w", err)
	}
	defer padMapFile.Close()
	padMap, err := tpc.LoadPadMapCSV(padMapFile)
	if err != nil {
		return rundriver.Dependencies{}, fmt.Errorf("load pad map: %w", err)
	}

	if *garfieldPath == "" {
		return rundriver.Dependencies{}, fmt.Errorf("-garfield is required")
	}
	garfieldFile, err := os.Open(*garfieldPath)
	if err != nil {
		return rundriver.Dependencies{}, fmt.Errorf("open garfield table: %w", err)
	}
	defer garfieldFile.Close()
	rows, err := tpc.ParseGarfieldFile(garfieldFile)
	if err != nil {
		return rundriver.Dependencies{}, fmt.Errorf("parse garfield table: %w", err)
	}
	det := cfg.DetectorParams()
	grid, err := tpc.BuildDriftCorrectionGrid(rows, tpc.DetectorDriftParams{
		DetectorLengthMM:     det.DetectorLengthMM,
		MicromegasTimeBucket: det.MicromegasTimeBucket,
		WindowTimeBucket:     det.WindowTimeBucket,
		GETFrequencyMHz:      det.GETFrequencyMHz,
	})
	if err != nil {
		return rundriver.Dependencies{}, fmt.Errorf("build drift correction grid: %w", err)
	}

	if *gasPath == "" {
		return rundriver.Dependencies{}, fmt.Errorf("-gas is required")
	}
	gasFile, err := os.Open(*gasPath)
	if err != nil {
		return rundriver.Dependencies{}, fmt.Errorf("open gas table: %w", err)
	}
	defer gasFile.Close()
	gasTable, err := tpc.LoadGasFile(gasFile)
	if err != nil {
		return rundriver.Dependencies{}, fmt.Errorf("load gas table: %w", err)
	}

	if *nuclearPath == "" {
		return rundriver.Dependencies{}, fmt.Errorf("-nuclear is required")
	}
	nuclearFile, err := os.Open(*nuclearPath)
	if err != nil {
		return rundriver.Dependencies{}, fmt.Errorf("open nuclear data: %w", err)
	}
	defer nuclearFile.Close()
	nuclearMap, err := tpc.LoadNuclearDataCSV(nuclearFile)
	if err != nil {
		return rundriver.Dependencies{}, fmt.Errorf("load nuclear data: %w", err)
	}
	z, a := cfg.GetNucleusZA()
	nucleus, ok := nuclearMap.Lookup(z, a)
	if !ok {
		return rundriver.Dependencies{}, fmt.Errorf("nucleus Z=%d A=%d not found in nuclear data", z, a)
	}

	var cut *tpc.Cut2D
	if *cutPath != "" {
		cutFile, err := os.Open(*cutPath)
		if err != nil {
			return rundriver.Dependencies{}, fmt.Errorf("open cut2d: %w", err)
		}
		defer cutFile.Close()
		c, err := tpc.LoadCut2D(cutFile)
		if err != nil {
			return rundriver.Dependencies{}, fmt.Errorf("load cut2d: %w", err)
		}
		cut = &c
	}

	return rundriver.Dependencies{
		PadMap:    padMap,
		DriftGrid: grid,
		GasTable:  gasTable,
		Nucleus:   nucleus,
		Cut:       cut,
	}, nil
}

// eventStream reads decoded EventFrames from a JSON-lines file.
type eventStream struct {
	file *os.File
}

func openEventStream(path string) (*eventStream, error) {
	if path == "" {
		return nil, fmt.Errorf("-events is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open events file: %w", err)
	}
	return &eventStream{file: f}, nil
}

func (e *eventStream) Close() error { return e.file.Close() }

// Each decodes one EventFrame per line and invokes fn for each, stopping
// early if ctx is cancelled.
func (e *eventStream) Each(ctx context.Context, fn func(tpc.EventFrame)) error {
	scanner := bufio.NewScanner(e.file)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var frame tpc.EventFrame
		if err := json.Unmarshal(line, &frame); err != nil {
			return fmt.Errorf("decode event frame: %w", err)
		}
		fn(frame)
	}
	return scanner.Err()
}
