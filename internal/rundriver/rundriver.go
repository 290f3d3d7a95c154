// Package rundriver orchestrates the per-event reconstruction pipeline
// (C4 -> C5 -> C7 -> C9 gate -> C8), fanning events out across a bounded
// worker pool and persisting results through a store.Store.
package rundriver

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/nscl-frib/spyralgo/internal/config"
	"github.com/nscl-frib/spyralgo/internal/store"
	"github.com/nscl-frib/spyralgo/internal/tpc"
)

// Dependencies bundles the static reference data the driver needs to
// process every event: pad geometry, the drift-correction grid, the gas
// stopping-power table, and the nucleus under reconstruction.
type Dependencies struct {
	PadMap    *tpc.PadMap
	DriftGrid *tpc.DriftCorrectionGrid
	GasTable  tpc.StoppingTable
	Nucleus   tpc.Nucleus
	Cut       *tpc.Cut2D // optional particle-ID gate; nil disables it
}

// Driver runs the reconstruction pipeline over a stream of event frames.
type Driver struct {
	deps   Dependencies
	cfg    *config.RunConfig
	store  store.Store
	Workers int
}

// New constructs a Driver. Workers <= 0 defaults to 4.
func New(deps Dependencies, cfg *config.RunConfig, st store.Store, workers int) *Driver {
	if workers <= 0 {
		workers = 4
	}
	return &Driver{deps: deps, cfg: cfg, store: st, Workers: workers}
}

// Stats summarizes one Run invocation.
type Stats struct {
	EventsProcessed   int
	ClustersAccepted  int
	ClustersRejected  int
	SolverFailures    int
}

// Run processes every event from the channel through the full pipeline
// using a bounded worker pool, stopping early if ctx is cancelled. Events
// are processed independently and out of order; Stats aggregates counts
// across all workers.
func (d *Driver) Run(ctx context.Context, runID string, events <-chan tpc.EventFrame) (Stats, error) {
	var (
		mu    sync.Mutex
		stats Stats
	)

	var wg sync.WaitGroup
	errCh := make(chan error, d.Workers)

	for i := 0; i < d.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case frame, ok := <-events:
					if !ok {
						return
					}
					eventStats, err := d.processEvent(ctx, runID, frame)
					mu.Lock()
					stats.EventsProcessed++
					stats.ClustersAccepted += eventStats.ClustersAccepted
					stats.ClustersRejected += eventStats.ClustersRejected
					stats.SolverFailures += eventStats.SolverFailures
					mu.Unlock()
					if err != nil {
						select {
						case errCh <- err:
						default:
						}
					}
				}
			}
		}()
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			return stats, err
		}
	}
	return stats, ctx.Err()
}

func (d *Driver) processEvent(ctx context.Context, runID string, frame tpc.EventFrame) (Stats, error) {
	var stats Stats

	traceParams := d.cfg.TraceParams()
	det := d.cfg.DetectorParams()
	clusterParams := d.cfg.ClusterParams()
	estimateParams := d.cfg.EstimateParams()
	solverParams := d.cfg.SolverParams()
	fribParams := d.cfg.FRIBParams()

	icCorr, hasICCorr := icCorrelationForFrame(frame, traceParams, det, fribParams)

	cloud := tpc.BuildPointCloud(frame, d.deps.PadMap, d.deps.DriftGrid, traceParams, det)
	if d.cfg.GetDoPointcloud() {
		if err := d.store.SavePointCloud(ctx, runID, cloud); err != nil {
			return stats, fmt.Errorf("rundriver: event %d: save point cloud: %w", frame.EventID, err)
		}
	}

	if !d.cfg.GetDoCluster() {
		return stats, nil
	}
	clusters := tpc.Cluster3D(cloud, clusterParams)
	if err := d.store.SaveClusters(ctx, runID, frame.EventID, clusters); err != nil {
		return stats, fmt.Errorf("rundriver: event %d: save clusters: %w", frame.EventID, err)
	}

	if !d.cfg.GetDoEstimate() {
		return stats, nil
	}
	for _, cluster := range clusters {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		initial, diag, err := tpc.Estimate(cluster, det, estimateParams)
		if err != nil {
			stats.ClustersRejected++
			log.Printf("rundriver: event %d cluster %d: estimate rejected: %v", frame.EventID, cluster.ClusterIndex, err)
			continue
		}
		stats.ClustersAccepted++

		if d.deps.Cut != nil && !d.deps.Cut.Contains(diag.DEdx, initial.Brho) {
			continue
		}

		if !d.cfg.GetDoSolve() {
			continue
		}

		result, err := tpc.Solve(cluster, initial, d.deps.Nucleus, det, d.deps.GasTable, solverParams)
		if err != nil {
			stats.SolverFailures++
			log.Printf("rundriver: event %d cluster %d: solve failed: %v", frame.EventID, cluster.ClusterIndex, err)
			continue
		}
		if hasICCorr {
			result.ICGoodMultiplicity = icCorr.GoodMultiplicity
			result.ICTimeCorrectionTB = icCorr.TimeCorrectionTB
		}
		if err := d.store.SaveResult(ctx, runID, result); err != nil {
			return stats, fmt.Errorf("rundriver: event %d cluster %d: save result: %w", frame.EventID, cluster.ClusterIndex, err)
		}
	}

	return stats, nil
}

// icCorrelationForFrame runs the ion-chamber/silicon fast-digitizer traces
// (if present) through C2, selects the "good" ion-chamber peak, and derives
// its GET time-bucket correction, so it can be recorded alongside every
// SolverResult produced for this event (supplemented feature: ion-chamber
// timing correlation).
func icCorrelationForFrame(frame tpc.EventFrame, traceParams tpc.TraceParams, det tpc.DetectorParams, fribParams tpc.FRIBParams) (tpc.ICCorrelation, bool) {
	if len(frame.FRIBTraces) == 0 || fribParams.IonChamberColumn < 0 || fribParams.IonChamberColumn >= len(frame.FRIBTraces) {
		return tpc.ICCorrelation{}, false
	}
	traces := tpc.AnalyzeTraceMatrix(frame.FRIBTraces, traceParams)

	var siPeaks []tpc.Peak
	if fribParams.SiliconColumn >= 0 && fribParams.SiliconColumn < len(traces) {
		siPeaks = traces[fribParams.SiliconColumn].Peaks
	}

	icPeaks := traces[fribParams.IonChamberColumn].Peaks
	corr, ok := tpc.GoodIonChamberPeak(icPeaks, siPeaks, fribParams)
	if !ok {
		return tpc.ICCorrelation{}, false
	}
	corr.EventID = frame.EventID
	corr.TimeCorrectionTB = tpc.CorrectIonChamberTime(corr.GoodPeak, icPeaks, det.GETFrequencyMHz, fribParams.SamplingFreqMHz)
	return corr, true
}
