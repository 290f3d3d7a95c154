// Package config holds the run-time tuning configuration for the
// reconstruction pipeline, loaded from an optional JSON overrides file and
// merged onto compiled-in defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nscl-frib/spyralgo/internal/tpc"
)

// RunConfig is the root tuning configuration. Every field is a pointer so a
// partial JSON file can override a subset of values while the rest fall
// back to the compiled-in tpc.Default*Params values. The schema intentionally mirrors the phase
// parameter structs in internal/tpc directly rather than inventing a
// parallel set of field names.
type RunConfig struct {
	WorkspacePath *string `json:"workspace_path,omitempty"`
	RunMin        *int    `json:"run_min,omitempty"`
	RunMax        *int    `json:"run_max,omitempty"`

	DoPointcloud *bool `json:"do_pointcloud,omitempty"`
	DoCluster    *bool `json:"do_cluster,omitempty"`
	DoEstimate   *bool `json:"do_estimate,omitempty"`
	DoSolve      *bool `json:"do_solve,omitempty"`

	NucleusZ *int `json:"nucleus_z,omitempty"`
	NucleusA *int `json:"nucleus_a,omitempty"`

	Trace     *TraceOverrides     `json:"trace,omitempty"`
	Cluster   *ClusterOverrides   `json:"cluster,omitempty"`
	Estimate  *EstimateOverrides  `json:"estimate,omitempty"`
	Solver    *SolverOverrides    `json:"solver,omitempty"`
	Detector  *DetectorOverrides  `json:"detector,omitempty"`
	FRIB      *FRIBOverrides      `json:"frib,omitempty"`
}

// TraceOverrides mirrors tpc.TraceParams (§C2) with optional fields.
type TraceOverrides struct {
	BaselineWindowScale *float64 `json:"baseline_window_scale,omitempty"`
	PeakHeight          *float64 `json:"peak_height,omitempty"`
	PeakProminence      *float64 `json:"peak_prominence,omitempty"`
	PeakSeparation      *int     `json:"peak_separation,omitempty"`
}

// ClusterOverrides mirrors tpc.ClusterParams (§C5) with optional fields.
type ClusterOverrides struct {
	Eps            *float64 `json:"eps,omitempty"`
	MinPts         *int     `json:"min_pts,omitempty"`
	ChargeWeight   *float64 `json:"charge_weight,omitempty"`
	MinClusterSize *int     `json:"min_cluster_size,omitempty"`
}

// EstimateOverrides mirrors tpc.EstimateParams (§C7) with optional fields.
type EstimateOverrides struct {
	MinTotalTrajectoryPoints *int     `json:"min_total_trajectory_points,omitempty"`
	BeamRegionContamination  *float64 `json:"beam_region_contamination,omitempty"`
	MaxDistanceFromBeamAxis  *float64 `json:"max_distance_from_beam_axis,omitempty"`
	EnergyLossCutoffMM       *float64 `json:"energy_loss_cutoff_mm,omitempty"`
}

// SolverOverrides mirrors tpc.SolverParams (§C8) with optional fields.
type SolverOverrides struct {
	MaxIterations          *int     `json:"max_iterations,omitempty"`
	Tolerance              *float64 `json:"tolerance,omitempty"`
	MaxStepSeconds         *float64 `json:"max_step_seconds,omitempty"`
	TimeSpanSeconds        *float64 `json:"time_span_seconds,omitempty"`
	EvalGridSpacingSeconds *float64 `json:"eval_grid_spacing_seconds,omitempty"`
}

// DetectorOverrides mirrors tpc.DetectorParams with optional fields.
type DetectorOverrides struct {
	MagneticFieldT       *float64 `json:"magnetic_field_t,omitempty"`
	ElectricFieldVPerM   *float64 `json:"electric_field_v_per_m,omitempty"`
	DetectorLengthMM     *float64 `json:"detector_length_mm,omitempty"`
	MicromegasTimeBucket *float64 `json:"micromegas_time_bucket,omitempty"`
	WindowTimeBucket     *float64 `json:"window_time_bucket,omitempty"`
	GETFrequencyMHz      *float64 `json:"get_frequency_mhz,omitempty"`
	BeamRegionRadiusMM   *float64 `json:"beam_region_radius_mm,omitempty"`
	GasDensityGPerCm3    *float64 `json:"gas_density_g_per_cm3,omitempty"`
}

// FRIBOverrides mirrors tpc.FRIBParams with optional fields.
type FRIBOverrides struct {
	IonChamberColumn  *int     `json:"ion_chamber_column,omitempty"`
	SiliconColumn     *int     `json:"silicon_column,omitempty"`
	MeshColumn        *int     `json:"mesh_column,omitempty"`
	SamplingFreqMHz   *float64 `json:"sampling_freq_mhz,omitempty"`
	ICMultiplicity    *int     `json:"ic_multiplicity,omitempty"`
	CoincidenceWindow *float64 `json:"coincidence_window,omitempty"`
}

// EmptyRunConfig returns a RunConfig with every field nil. Load merges a
// JSON overrides file onto this and then onto the compiled-in defaults.
func EmptyRunConfig() *RunConfig {
	return &RunConfig{}
}

// Load reads a JSON overrides file and merges it onto the compiled-in
// defaults. A missing optional field in the file falls back to the
// corresponding default value untouched.
func Load(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", cleanPath, err)
	}
	cfg := EmptyRunConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", cleanPath, err)
	}
	return cfg, nil
}

func (c *RunConfig) GetWorkspacePath() string {
	if c == nil || c.WorkspacePath == nil {
		return "."
	}
	return *c.WorkspacePath
}

func (c *RunConfig) GetRunMin() int {
	if c == nil || c.RunMin == nil {
		return 0
	}
	return *c.RunMin
}

func (c *RunConfig) GetRunMax() int {
	if c == nil || c.RunMax == nil {
		return 0
	}
	return *c.RunMax
}

func (c *RunConfig) GetDoPointcloud() bool { return c.getBool(func(rc *RunConfig) *bool { return rc.DoPointcloud }, true) }
func (c *RunConfig) GetDoCluster() bool    { return c.getBool(func(rc *RunConfig) *bool { return rc.DoCluster }, true) }
func (c *RunConfig) GetDoEstimate() bool   { return c.getBool(func(rc *RunConfig) *bool { return rc.DoEstimate }, true) }
func (c *RunConfig) GetDoSolve() bool      { return c.getBool(func(rc *RunConfig) *bool { return rc.DoSolve }, true) }

func (c *RunConfig) getBool(field func(*RunConfig) *bool, def bool) bool {
	if c == nil {
		return def
	}
	if v := field(c); v != nil {
		return *v
	}
	return def
}

func (c *RunConfig) GetNucleusZA() (z, a int) {
	z, a = 1, 1
	if c == nil {
		return z, a
	}
	if c.NucleusZ != nil {
		z = *c.NucleusZ
	}
	if c.NucleusA != nil {
		a = *c.NucleusA
	}
	return z, a
}

// TraceParams merges the TraceOverrides onto tpc.DefaultTraceParams.
func (c *RunConfig) TraceParams() tpc.TraceParams {
	p := tpc.DefaultTraceParams()
	if c == nil || c.Trace == nil {
		return p
	}
	o := c.Trace
	if o.BaselineWindowScale != nil {
		p.BaselineWindowScale = *o.BaselineWindowScale
	}
	if o.PeakHeight != nil {
		p.PeakHeight = *o.PeakHeight
	}
	if o.PeakProminence != nil {
		p.PeakProminence = *o.PeakProminence
	}
	if o.PeakSeparation != nil {
		p.PeakSeparation = *o.PeakSeparation
	}
	return p
}

// ClusterParams merges the ClusterOverrides onto tpc.DefaultClusterParams.
func (c *RunConfig) ClusterParams() tpc.ClusterParams {
	p := tpc.DefaultClusterParams()
	if c == nil || c.Cluster == nil {
		return p
	}
	o := c.Cluster
	if o.Eps != nil {
		p.Eps = *o.Eps
	}
	if o.MinPts != nil {
		p.MinPts = *o.MinPts
	}
	if o.ChargeWeight != nil {
		p.ChargeWeight = *o.ChargeWeight
	}
	if o.MinClusterSize != nil {
		p.MinClusterSize = *o.MinClusterSize
	}
	return p
}

// EstimateParams merges the EstimateOverrides onto tpc.DefaultEstimateParams.
func (c *RunConfig) EstimateParams() tpc.EstimateParams {
	p := tpc.DefaultEstimateParams()
	if c == nil || c.Estimate == nil {
		return p
	}
	o := c.Estimate
	if o.MinTotalTrajectoryPoints != nil {
		p.MinTotalTrajectoryPoints = *o.MinTotalTrajectoryPoints
	}
	if o.BeamRegionContamination != nil {
		p.BeamRegionContamination = *o.BeamRegionContamination
	}
	if o.MaxDistanceFromBeamAxis != nil {
		p.MaxDistanceFromBeamAxis = *o.MaxDistanceFromBeamAxis
	}
	if o.EnergyLossCutoffMM != nil {
		p.EnergyLossCutoffMM = *o.EnergyLossCutoffMM
	}
	return p
}

// SolverParams merges the SolverOverrides onto tpc.DefaultSolverParams.
func (c *RunConfig) SolverParams() tpc.SolverParams {
	p := tpc.DefaultSolverParams()
	if c == nil || c.Solver == nil {
		return p
	}
	o := c.Solver
	if o.MaxIterations != nil {
		p.MaxIterations = *o.MaxIterations
	}
	if o.Tolerance != nil {
		p.Tolerance = *o.Tolerance
	}
	if o.MaxStepSeconds != nil {
		p.MaxStepSeconds = *o.MaxStepSeconds
	}
	if o.TimeSpanSeconds != nil {
		p.TimeSpanSeconds = *o.TimeSpanSeconds
	}
	if o.EvalGridSpacingSeconds != nil {
		p.EvalGridSpacingSeconds = *o.EvalGridSpacingSeconds
	}
	return p
}

// DetectorParams merges the DetectorOverrides onto tpc.DefaultDetectorParams.
func (c *RunConfig) DetectorParams() tpc.DetectorParams {
	p := tpc.DefaultDetectorParams()
	if c == nil || c.Detector == nil {
		return p
	}
	o := c.Detector
	if o.MagneticFieldT != nil {
		p.MagneticFieldT = *o.MagneticFieldT
	}
	if o.ElectricFieldVPerM != nil {
		p.ElectricFieldVPerM = *o.ElectricFieldVPerM
	}
	if o.DetectorLengthMM != nil {
		p.DetectorLengthMM = *o.DetectorLengthMM
	}
	if o.MicromegasTimeBucket != nil {
		p.MicromegasTimeBucket = *o.MicromegasTimeBucket
	}
	if o.WindowTimeBucket != nil {
		p.WindowTimeBucket = *o.WindowTimeBucket
	}
	if o.GETFrequencyMHz != nil {
		p.GETFrequencyMHz = *o.GETFrequencyMHz
	}
	if o.BeamRegionRadiusMM != nil {
		p.BeamRegionRadiusMM = *o.BeamRegionRadiusMM
	}
	if o.GasDensityGPerCm3 != nil {
		p.GasDensityGPerCm3 = *o.GasDensityGPerCm3
	}
	return p
}

// FRIBParams merges the FRIBOverrides onto tpc.DefaultFRIBParams.
func (c *RunConfig) FRIBParams() tpc.FRIBParams {
	p := tpc.DefaultFRIBParams()
	if c == nil || c.FRIB == nil {
		return p
	}
	o := c.FRIB
	if o.IonChamberColumn != nil {
		p.IonChamberColumn = *o.IonChamberColumn
	}
	if o.SiliconColumn != nil {
		p.SiliconColumn = *o.SiliconColumn
	}
	if o.MeshColumn != nil {
		p.MeshColumn = *o.MeshColumn
	}
	if o.SamplingFreqMHz != nil {
		p.SamplingFreqMHz = *o.SamplingFreqMHz
	}
	if o.ICMultiplicity != nil {
		p.ICMultiplicity = *o.ICMultiplicity
	}
	if o.CoincidenceWindow != nil {
		p.CoincidenceWindow = *o.CoincidenceWindow
	}
	return p
}
