package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	ModeMoonpies = "moonpies"
	ModeCannon   = "cannon"
)

const (
	DefaultRunName  = "baseline"
	DefaultOutPath  = "out"
	DefaultTimestep = 10e6   // [yr]
	DefaultStart    = 4.25e9 // [yr]
)

var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrUnknownKey    = errors.New("unknown config key")
)

// Regime bounds a class of impactors. Min and Max are impactor diameters [m]
// for regime b and final crater diameters [m] for regimes c through e.
type Regime struct {
	Min  float64 `yaml:"min" toml:"min" json:"min"`
	Max  float64 `yaml:"max" toml:"max" json:"max"`
	Bins int     `yaml:"bins" toml:"bins" json:"bins"`
}

// SpeedComponent is one truncated normal in an impactor speed mixture.
type SpeedComponent struct {
	Mean   float64 `yaml:"mean" toml:"mean" json:"mean"`       // [m/s]
	SD     float64 `yaml:"sd" toml:"sd" json:"sd"`             // [m/s]
	Weight float64 `yaml:"weight" toml:"weight" json:"weight"` // [0-1]
}

// Config holds every parameter of a stratigraphy run.
type Config struct {
	RunName   string `yaml:"run_name" toml:"run_name" json:"run_name" env:"ICESTRAT_RUN_NAME"`
	Seed      int64  `yaml:"seed" toml:"seed" json:"seed" env:"ICESTRAT_SEED"`
	Mode      string `yaml:"mode" toml:"mode" json:"mode" env:"ICESTRAT_MODE"`
	OutPath   string `yaml:"out_path" toml:"out_path" json:"out_path" env:"ICESTRAT_OUT_PATH"`
	CraterCSV string `yaml:"crater_csv" toml:"crater_csv" json:"crater_csv" env:"ICESTRAT_CRATER_CSV"`
	BasinCSV  string `yaml:"basin_csv" toml:"basin_csv" json:"basin_csv" env:"ICESTRAT_BASIN_CSV"`
	BhopCSV   string `yaml:"bhop_csv" toml:"bhop_csv" json:"bhop_csv" env:"ICESTRAT_BHOP_CSV"`
	Verbose   bool   `yaml:"verbose" toml:"verbose" json:"verbose" env:"ICESTRAT_VERBOSE"`

	// Time grid, counted backwards from the present.
	TimeStart float64 `yaml:"time_start" toml:"time_start" json:"time_start"` // [yr]
	TimeEnd   float64 `yaml:"time_end" toml:"time_end" json:"time_end"`       // [yr]
	Timestep  float64 `yaml:"timestep" toml:"timestep" json:"timestep" env:"ICESTRAT_TIMESTEP"`

	// Lunar and material constants.
	RadMoon         float64 `yaml:"rad_moon" toml:"rad_moon" json:"rad_moon"`                         // [m]
	GravMoon        float64 `yaml:"grav_moon" toml:"grav_moon" json:"grav_moon"`                      // [m/s^2]
	BulkDensity     float64 `yaml:"bulk_density" toml:"bulk_density" json:"bulk_density"`             // [kg/m^3]
	IceDensity      float64 `yaml:"ice_density" toml:"ice_density" json:"ice_density"`                // [kg/m^3]
	TargetDensity   float64 `yaml:"target_density" toml:"target_density" json:"target_density"`       // [kg/m^3]
	ImpactorDensity float64 `yaml:"impactor_density" toml:"impactor_density" json:"impactor_density"` // [kg/m^3]
	CometDensity    float64 `yaml:"comet_density" toml:"comet_density" json:"comet_density"`          // [kg/m^3]

	// Cold traps.
	ColdtrapNames          []string `yaml:"coldtrap_names" toml:"coldtrap_names" json:"coldtrap_names"`
	ColdtrapArea           float64  `yaml:"coldtrap_area" toml:"coldtrap_area" json:"coldtrap_area"`                                  // [m^2]
	BallisticHopEfficiency float64  `yaml:"ballistic_hop_efficiency" toml:"ballistic_hop_efficiency" json:"ballistic_hop_efficiency"` // [0-1]
	// BallisticHopMoores scales delivered ice per cold trap by the
	// latitude-dependent hop efficiencies of bhop_csv.
	BallisticHopMoores bool `yaml:"ballistic_hop_moores" toml:"ballistic_hop_moores" json:"ballistic_hop_moores"`

	// Crater scaling.
	Simple2Complex   float64           `yaml:"simple2complex" toml:"simple2complex" json:"simple2complex"`       // [m]
	Complex2Peakring float64           `yaml:"complex2peakring" toml:"complex2peakring" json:"complex2peakring"` // [m]
	ImpactAngle      float64           `yaml:"impact_angle" toml:"impact_angle" json:"impact_angle"`             // [deg]
	ImpactRegimes    map[string]Regime `yaml:"impact_regimes" toml:"impact_regimes" json:"impact_regimes"`

	// Impactor speeds.
	ImpactSpeedMean float64          `yaml:"impact_speed_mean" toml:"impact_speed_mean" json:"impact_speed_mean"` // [m/s]
	ImpactSpeedSD   float64          `yaml:"impact_speed_sd" toml:"impact_speed_sd" json:"impact_speed_sd"`       // [m/s]
	EscapeVel       float64          `yaml:"escape_vel" toml:"escape_vel" json:"escape_vel"`                      // [m/s]
	CometSpeedMax   float64          `yaml:"comet_speed_max" toml:"comet_speed_max" json:"comet_speed_max"`       // [m/s]
	CometSpeeds     []SpeedComponent `yaml:"comet_speeds" toml:"comet_speeds" json:"comet_speeds"`

	// Impactor composition.
	CtypeFrac          float64 `yaml:"ctype_frac" toml:"ctype_frac" json:"ctype_frac"`                                  // hydrated asteroid fraction
	HydratedWtPct      float64 `yaml:"hydrated_wt_pct" toml:"hydrated_wt_pct" json:"hydrated_wt_pct"`                   // [0-1]
	CometHydratedWtPct float64 `yaml:"comet_hydrated_wt_pct" toml:"comet_hydrated_wt_pct" json:"comet_hydrated_wt_pct"` // [0-1]
	CometFrac          float64 `yaml:"comet_frac" toml:"comet_frac" json:"comet_frac"`                                  // [0-1]
	IsComet            bool    `yaml:"is_comet" toml:"is_comet" json:"is_comet"`
	ImpactMassRetained float64 `yaml:"impact_mass_retained" toml:"impact_mass_retained" json:"impact_mass_retained"` // [0-1]
	MMMassRate         float64 `yaml:"mm_mass_rate" toml:"mm_mass_rate" json:"mm_mass_rate"`                         // [kg/yr]
	SmallImpactorC0    float64 `yaml:"small_impactor_c0" toml:"small_impactor_c0" json:"small_impactor_c0"`
	SmallImpactorD0    float64 `yaml:"small_impactor_d0" toml:"small_impactor_d0" json:"small_impactor_d0"`
	EarthMoonRatio     float64 `yaml:"earth_moon_ratio" toml:"earth_moon_ratio" json:"earth_moon_ratio"`

	// Impact flux (Ivanov) and crater production (Neukum).
	FluxA     float64   `yaml:"flux_a" toml:"flux_a" json:"flux_a"`
	FluxB     float64   `yaml:"flux_b" toml:"flux_b" json:"flux_b"` // [1/Gyr]
	FluxC     float64   `yaml:"flux_c" toml:"flux_c" json:"flux_c"`
	NeukumPF  []float64 `yaml:"neukum_pf" toml:"neukum_pf" json:"neukum_pf"`
	NeukumMin float64   `yaml:"neukum_min" toml:"neukum_min" json:"neukum_min"` // [km]
	NeukumMax float64   `yaml:"neukum_max" toml:"neukum_max" json:"neukum_max"` // [km]

	// Ice sources.
	ImpactIce       bool       `yaml:"impact_ice" toml:"impact_ice" json:"impact_ice" env:"ICESTRAT_IMPACT_ICE"`
	ImpactIceBasins bool       `yaml:"impact_ice_basins" toml:"impact_ice_basins" json:"impact_ice_basins"`
	ImpactIceComets bool       `yaml:"impact_ice_comets" toml:"impact_ice_comets" json:"impact_ice_comets"`
	SolarWindIce    bool       `yaml:"solar_wind_ice" toml:"solar_wind_ice" json:"solar_wind_ice" env:"ICESTRAT_SOLAR_WIND_ICE"`
	SolarWindRate   float64    `yaml:"solar_wind_rate" toml:"solar_wind_rate" json:"solar_wind_rate"` // [g/s]
	VolcIce         bool       `yaml:"volc_ice" toml:"volc_ice" json:"volc_ice" env:"ICESTRAT_VOLC_ICE"`
	VolcTotalVol    float64    `yaml:"volc_total_vol" toml:"volc_total_vol" json:"volc_total_vol"` // [m^3]
	VolcMagmaDens   float64    `yaml:"volc_magma_density" toml:"volc_magma_density" json:"volc_magma_density"`
	VolcH2OPPM      float64    `yaml:"volc_h2o_ppm" toml:"volc_h2o_ppm" json:"volc_h2o_ppm"`
	VolcEarly       [2]float64 `yaml:"volc_early" toml:"volc_early" json:"volc_early"` // [yr] start, end
	VolcLate        [2]float64 `yaml:"volc_late" toml:"volc_late" json:"volc_late"`    // [yr] start, end
	VolcEarlyPct    float64    `yaml:"volc_early_pct" toml:"volc_early_pct" json:"volc_early_pct"`
	VolcLatePct     float64    `yaml:"volc_late_pct" toml:"volc_late_pct" json:"volc_late_pct"`
	VolcPolePct     float64    `yaml:"volc_pole_pct" toml:"volc_pole_pct" json:"volc_pole_pct"`

	// Ejecta and ballistic sedimentation.
	EjectaThreshold     float64 `yaml:"ejecta_threshold" toml:"ejecta_threshold" json:"ejecta_threshold"` // [crater radii], -1 unlimited
	EjectaA             float64 `yaml:"ejecta_a" toml:"ejecta_a" json:"ejecta_a"`
	EjectaB             float64 `yaml:"ejecta_b" toml:"ejecta_b" json:"ejecta_b"`
	EjectaC             float64 `yaml:"ejecta_c" toml:"ejecta_c" json:"ejecta_c"`
	MixingRatioA        float64 `yaml:"mixing_ratio_a" toml:"mixing_ratio_a" json:"mixing_ratio_a"`
	MixingRatioB        float64 `yaml:"mixing_ratio_b" toml:"mixing_ratio_b" json:"mixing_ratio_b"`
	BallisticSed        bool    `yaml:"ballistic_sed" toml:"ballistic_sed" json:"ballistic_sed" env:"ICESTRAT_BALLISTIC_SED"`
	BsedLossFrac        float64 `yaml:"bsed_loss_frac" toml:"bsed_loss_frac" json:"bsed_loss_frac"`                                        // -1 uses the thermal model
	PolarEjectaTemp     float64 `yaml:"polar_ejecta_temp_init" toml:"polar_ejecta_temp_init" json:"polar_ejecta_temp_init"`                // [K]
	BasinEjectaTempCold float64 `yaml:"basin_ejecta_temp_init_cold" toml:"basin_ejecta_temp_init_cold" json:"basin_ejecta_temp_init_cold"` // [K]
	BasinEjectaTempWarm float64 `yaml:"basin_ejecta_temp_init_warm" toml:"basin_ejecta_temp_init_warm" json:"basin_ejecta_temp_init_warm"` // [K]
	BasinWarm           bool    `yaml:"basin_warm" toml:"basin_warm" json:"basin_warm"`
	ColdtrapMaxTemp     float64 `yaml:"coldtrap_max_temp" toml:"coldtrap_max_temp" json:"coldtrap_max_temp"`          // [K]
	IceSublimationTemp  float64 `yaml:"ice_sublimation_temp" toml:"ice_sublimation_temp" json:"ice_sublimation_temp"` // [K]

	// Impact gardening.
	ImpactGardening bool      `yaml:"impact_gardening" toml:"impact_gardening" json:"impact_gardening" env:"ICESTRAT_IMPACT_GARDENING"`
	OverturnA       float64   `yaml:"overturn_a" toml:"overturn_a" json:"overturn_a"` // [m]
	OverturnB       float64   `yaml:"overturn_b" toml:"overturn_b" json:"overturn_b"`
	CannonOverturn  float64   `yaml:"cannon_overturn_rate" toml:"cannon_overturn_rate" json:"cannon_overturn_rate"` // [m/yr]
	SurfaceDepths   []float64 `yaml:"surface_depths" toml:"surface_depths" json:"surface_depths"`                   // [m]

	// Gridded outputs.
	GridRes      float64 `yaml:"grid_res" toml:"grid_res" json:"grid_res"`                // [m]
	GridMax      float64 `yaml:"grid_max" toml:"grid_max" json:"grid_max"`                // [m]
	ResurfaceMin float64 `yaml:"resurface_min" toml:"resurface_min" json:"resurface_min"` // [m]
}

// DefaultColdtraps lists the south polar cold traps tracked by default.
var DefaultColdtraps = []string{
	"Faustini", "Haworth", "Shoemaker", "Cabeus B", "Idel'son L", "Amundsen",
	"Cabeus", "de Gerlache", "Slater", "Sverdrup", "Wiechert J", "Shackleton",
}

func DefaultConfig() *Config {
	return &Config{
		RunName: DefaultRunName,
		Mode:    ModeMoonpies,
		OutPath: DefaultOutPath,

		TimeStart: DefaultStart,
		TimeEnd:   0,
		Timestep:  DefaultTimestep,

		RadMoon:         1737.4e3,
		GravMoon:        1.62,
		BulkDensity:     1500,
		IceDensity:      934,
		TargetDensity:   1500,
		ImpactorDensity: 1300,
		CometDensity:    600,

		ColdtrapNames:          append([]string(nil), DefaultColdtraps...),
		ColdtrapArea:           1.3e4 * 1e6,
		BallisticHopEfficiency: 0.054,
		BallisticHopMoores:     true,

		Simple2Complex:   18e3,
		Complex2Peakring: 140e3,
		ImpactAngle:      45,
		ImpactRegimes: map[string]Regime{
			"b": {Min: 0.01, Max: 3, Bins: 40},
			"c": {Min: 100, Max: 1.5e3, Bins: 40},
			"d": {Min: 1.5e3, Max: 15e3, Bins: 30},
			"e": {Min: 15e3, Max: 300e3, Bins: 30},
		},

		ImpactSpeedMean: 20e3,
		ImpactSpeedSD:   6e3,
		EscapeVel:       2.38e3,
		CometSpeedMax:   72e3,
		CometSpeeds: []SpeedComponent{
			{Mean: 20e3, SD: 5e3, Weight: 0.5},
			{Mean: 54e3, SD: 9e3, Weight: 0.5},
		},

		CtypeFrac:          0.36,
		HydratedWtPct:      0.1,
		CometHydratedWtPct: 0.2,
		CometFrac:          0.05,
		ImpactMassRetained: 0.165,
		MMMassRate:         1e6,
		SmallImpactorC0:    1.568,
		SmallImpactorD0:    2.7,
		EarthMoonRatio:     22.5,

		FluxA:     5.44e-14,
		FluxB:     6.93,
		FluxC:     8.38e-4,
		NeukumPF:  append([]float64(nil), neukum2001...),
		NeukumMin: 0.01,
		NeukumMax: 300,

		ImpactIce:       true,
		ImpactIceBasins: true,
		ImpactIceComets: true,
		SolarWindIce:    true,
		SolarWindRate:   2,
		VolcIce:         true,
		VolcTotalVol:    1e7 * 1e9,
		VolcMagmaDens:   3000,
		VolcH2OPPM:      10,
		VolcEarly:       [2]float64{4e9, 3e9},
		VolcLate:        [2]float64{3e9, 2e9},
		VolcEarlyPct:    0.75,
		VolcLatePct:     0.25,
		VolcPolePct:     0.1,

		EjectaThreshold:     4,
		EjectaA:             0.14,
		EjectaB:             0.74,
		EjectaC:             -3.0,
		MixingRatioA:        0.0183,
		MixingRatioB:        0.87,
		BallisticSed:        true,
		BsedLossFrac:        -1,
		PolarEjectaTemp:     140,
		BasinEjectaTempCold: 260,
		BasinEjectaTempWarm: 420,
		ColdtrapMaxTemp:     110,
		IceSublimationTemp:  200,

		ImpactGardening: true,
		OverturnA:       0.04,
		OverturnB:       0.45,
		CannonOverturn:  0.1 / 10e6,
		SurfaceDepths:   []float64{6, 100},

		GridRes:      10e3,
		GridMax:      400e3,
		ResurfaceMin: 1,
	}
}

// neukum2001 are the lunar production function coefficients a0..a11.
var neukum2001 = []float64{
	-3.0876, -3.557528, 0.781027, 1.021521, -0.156012, -0.444058,
	0.019977, 0.086850, -0.005874, -0.006809, 8.25e-4, 5.54e-5,
}

// Load reads a yaml, toml or json file over the defaults. Keys absent from the
// file keep their default value; keys unknown to Config are an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := decode(formatOf(path), data, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := Marshal(formatOf(path), cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return "toml"
	case ".json":
		return "json"
	default:
		return "yaml"
	}
}

func decode(format string, data []byte, cfg *Config) error {
	switch format {
	case "toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("%w: %s", ErrUnknownKey, undecoded[0].String())
		}
		return nil
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			if strings.Contains(err.Error(), "unknown field") {
				return fmt.Errorf("%w: %v", ErrUnknownKey, err)
			}
			return err
		}
		return nil
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if strings.Contains(err.Error(), "not found in type") {
				return fmt.Errorf("%w: %v", ErrUnknownKey, err)
			}
			return err
		}
		return nil
	}
}

// Marshal encodes cfg as "yaml", "toml" or "json"; anything else is yaml.
func Marshal(format string, cfg *Config) ([]byte, error) {
	switch format {
	case "toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case "json":
		return json.MarshalIndent(cfg, "", "  ")
	default:
		return yaml.Marshal(cfg)
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.ColdtrapNames = append([]string(nil), c.ColdtrapNames...)
	out.CometSpeeds = append([]SpeedComponent(nil), c.CometSpeeds...)
	out.NeukumPF = append([]float64(nil), c.NeukumPF...)
	out.SurfaceDepths = append([]float64(nil), c.SurfaceDepths...)
	out.ImpactRegimes = make(map[string]Regime, len(c.ImpactRegimes))
	for k, v := range c.ImpactRegimes {
		out.ImpactRegimes[k] = v
	}
	return &out
}

// CometConfig returns a copy describing the cometary share of impactors.
func (c *Config) CometConfig() *Config {
	out := c.Clone()
	out.IsComet = true
	out.CtypeFrac = 1
	out.HydratedWtPct = c.CometHydratedWtPct
	out.ImpactorDensity = c.CometDensity
	return out
}

// FluxScale is the share of the impact flux carried by this impactor population.
func (c *Config) FluxScale() float64 {
	if !c.ImpactIceComets {
		return 1
	}
	if c.IsComet {
		return c.CometFrac
	}
	return 1 - c.CometFrac
}

// OutDir is where a single seed of this run writes its outputs.
func (c *Config) OutDir() string {
	return filepath.Join(c.OutPath, c.RunName, fmt.Sprintf("%05d", c.Seed))
}

// NumSteps is the length of the time grid.
func (c *Config) NumSteps() int {
	n := int((c.TimeStart-c.TimeEnd)/c.Timestep + 0.5)
	if n < 1 {
		return 1
	}
	return n
}

// TimeArray returns the age at the start of each timestep, oldest first.
func (c *Config) TimeArray() []float64 {
	n := c.NumSteps()
	out := make([]float64, n)
	for i := range out {
		out[i] = c.TimeStart - float64(i)*c.Timestep
	}
	return out
}

// TimeIndex maps an age [yr] to its index in TimeArray, clamped to the grid.
func (c *Config) TimeIndex(age float64) int {
	idx := int((c.TimeStart-age)/c.Timestep + 0.5)
	if idx < 0 {
		return 0
	}
	if n := c.NumSteps(); idx >= n {
		return n - 1
	}
	return idx
}

// fileKeys lists the top-level keys set in a config file.
func fileKeys(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	m := make(map[string]any)
	switch formatOf(path) {
	case "toml":
		_, err = toml.Decode(string(data), &m)
	case "json":
		err = json.Unmarshal(data, &m)
	default:
		err = yaml.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return sortedKeys(m), nil
}
