// Package config reads experiment descriptions from YAML and builds the
// inducers, layouts and experiment they describe.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"platedesign/internal/blob"
	"platedesign/internal/experiment"
	"platedesign/pkg/domain"
)

// Config is a complete experiment description.
type Config struct {
	Name       string           `yaml:"name"`
	Generation GenerationConfig `yaml:"generation"`
	Logging    LoggingConfig    `yaml:"logging"`
	Storage    StorageConfig    `yaml:"storage"`
	Output     OutputConfig     `yaml:"output"`
	Inducers   []InducerConfig  `yaml:"inducers"`
	Plates     []PlateConfig    `yaml:"plates,omitempty"`
	Arrays     []ArrayConfig    `yaml:"arrays,omitempty"`
}

// GenerationConfig mirrors experiment.Options.
type GenerationConfig struct {
	Replicates        int      `yaml:"replicates"`
	Seed              uint64   `yaml:"seed"`
	RandomizeInducers bool     `yaml:"randomize_inducers"`
	RandomizePlates   bool     `yaml:"randomize_plates"`
	Resources         []string `yaml:"resources,omitempty"`
	MeasurementOrder  string   `yaml:"measurement_order,omitempty"`
	StrictRecipes     bool     `yaml:"strict_recipes"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// StorageConfig selects the blob driver receiving exports.
type StorageConfig struct {
	Driver string   `yaml:"driver"` // fs, s3, memory
	FSRoot string   `yaml:"fs_root,omitempty"`
	S3     S3Config `yaml:"s3,omitempty"`
}

// S3Config configures the S3 driver.
type S3Config struct {
	Bucket    string `yaml:"bucket,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	PathStyle bool   `yaml:"path_style,omitempty"`
}

// OutputConfig names where exports go.
type OutputConfig struct {
	Prefix string `yaml:"prefix,omitempty"`
	// Template is the blob prefix of a measurement template workbook.
	Template string `yaml:"template,omitempty"`
}

// GradientConfig describes evenly spaced values.
type GradientConfig struct {
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	N       int     `yaml:"n"`
	Scale   string  `yaml:"scale,omitempty"` // linear, log
	UseZero bool    `yaml:"use_zero,omitempty"`
}

// HillConfig describes a dose-response curve.
type HillConfig struct {
	Y0 float64 `yaml:"y0"`
	DY float64 `yaml:"dy"`
	K  float64 `yaml:"k"`
	N  float64 `yaml:"n"`
}

// Inducer types.
const (
	TypeChemical       = "chemical"
	TypeGeneExpression = "gene_expression"
	TypeAbstract       = "abstract"
)

// InducerConfig describes one inducer. Pipetting fields left unset keep
// their defaults.
type InducerConfig struct {
	Name           string          `yaml:"name"`
	Type           string          `yaml:"type"`
	Units          string          `yaml:"units"`
	IDPrefix       string          `yaml:"id_prefix,omitempty"`
	IDOffset       int             `yaml:"id_offset,omitempty"`
	Concentrations []float64       `yaml:"concentrations,omitempty"`
	Gradient       *GradientConfig `yaml:"gradient,omitempty"`

	StockConcentration float64  `yaml:"stock_concentration,omitempty"`
	ShotVolume         float64  `yaml:"shot_volume,omitempty"`
	SafetyFactor       *float64 `yaml:"safety_factor,omitempty"`
	MinStockVolume     *float64 `yaml:"min_stock_volume,omitempty"`
	MaxStockVolume     *float64 `yaml:"max_stock_volume,omitempty"`
	DilutionStep       *float64 `yaml:"dilution_step,omitempty"`
	InducerDecimals    *int     `yaml:"inducer_decimals,omitempty"`
	WaterDecimals      *int     `yaml:"water_decimals,omitempty"`
	MinReplicateVolume float64  `yaml:"min_replicate_volume,omitempty"`
	MinTotalVolume     float64  `yaml:"min_total_volume,omitempty"`

	Hill               *HillConfig     `yaml:"hill,omitempty"`
	ExpressionUnits    string          `yaml:"expression_units,omitempty"`
	ExpressionLevels   []float64       `yaml:"expression_levels,omitempty"`
	ExpressionGradient *GradientConfig `yaml:"expression_gradient,omitempty"`

	// SyncTo names the inducer whose shuffles this one follows.
	SyncTo string `yaml:"sync_to,omitempty"`
	// Shuffle defaults to true.
	Shuffle *bool `yaml:"shuffle,omitempty"`
}

// CellsConfig describes the culture each sample starts from.
type CellsConfig struct {
	Strain            string  `yaml:"strain,omitempty"`
	PredilutionFactor float64 `yaml:"predilution_factor,omitempty"`
	PredilutionVolume float64 `yaml:"predilution_volume,omitempty"`
	Inoculation       string  `yaml:"inoculation,omitempty"` // od, volume
	TargetOD          float64 `yaml:"target_od,omitempty"`
	ShotVolume        float64 `yaml:"shot_volume,omitempty"`
}

// ApplyConfig applies a named inducer in a mode.
type ApplyConfig struct {
	Inducer string `yaml:"inducer"`
	Mode    string `yaml:"mode"`
}

// PlateConfig describes a plate.
type PlateConfig struct {
	Name             string            `yaml:"name"`
	Rows             int               `yaml:"rows"`
	Cols             int               `yaml:"cols"`
	SamplesToMeasure int               `yaml:"samples_to_measure,omitempty"`
	MediaVolume      float64           `yaml:"media_volume"`
	IDPrefix         string            `yaml:"id_prefix,omitempty"`
	IDOffset         int               `yaml:"id_offset,omitempty"`
	Cells            CellsConfig       `yaml:"cells,omitempty"`
	Metadata         map[string]string `yaml:"metadata,omitempty"`
	Apply            []ApplyConfig     `yaml:"apply,omitempty"`
}

// ArrayConfig describes a plate array. Plates are listed in row-major order
// and may not carry applications of their own.
type ArrayConfig struct {
	Name      string        `yaml:"name"`
	ArrayRows int           `yaml:"array_rows"`
	ArrayCols int           `yaml:"array_cols"`
	IDPrefix  string        `yaml:"id_prefix,omitempty"`
	IDOffset  int           `yaml:"id_offset,omitempty"`
	Plates    []PlateConfig `yaml:"plates"`
	Apply     []ApplyConfig `yaml:"apply,omitempty"`
}

// DefaultConfig returns a description with every default filled in.
func DefaultConfig() *Config {
	return &Config{
		Name:       "experiment",
		Generation: GenerationConfig{Replicates: 1},
		Logging:    LoggingConfig{Level: "info", Format: "json"},
		Storage:    StorageConfig{Driver: string(blob.DriverFilesystem), FSRoot: "./plates"},
	}
}

// Load reads path over the defaults and applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and applies environment overrides.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides lets PLATEDESIGN_* variables win over the file.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("PLATEDESIGN_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("PLATEDESIGN_SEED: %w", err)
		}
		c.Generation.Seed = seed
	}
	if v := os.Getenv("PLATEDESIGN_REPLICATES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PLATEDESIGN_REPLICATES: %w", err)
		}
		c.Generation.Replicates = n
	}
	if v := os.Getenv("PLATEDESIGN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PLATEDESIGN_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	env := blob.SettingsFromEnv()
	if env.Driver != "" {
		c.Storage.Driver = string(env.Driver)
	}
	if env.FSRoot != "" {
		c.Storage.FSRoot = env.FSRoot
	}
	if env.S3.Bucket != "" {
		c.Storage.S3.Bucket = env.S3.Bucket
	}
	if env.S3.Region != "" {
		c.Storage.S3.Region = env.S3.Region
	}
	if env.S3.Endpoint != "" {
		c.Storage.S3.Endpoint = env.S3.Endpoint
	}
	if env.S3.PathStyle {
		c.Storage.S3.PathStyle = true
	}
	return nil
}

// Validate checks references between inducers and layouts.
func (c *Config) Validate() error {
	if c.Generation.Replicates < 1 {
		return domain.Configf("config", "replicates must be positive, got %d", c.Generation.Replicates)
	}
	names := make(map[string]bool, len(c.Inducers))
	for _, ind := range c.Inducers {
		if ind.Name == "" {
			return domain.Configf("config", "inducer without a name")
		}
		if names[ind.Name] {
			return domain.Configf("config", "duplicate inducer %q", ind.Name)
		}
		names[ind.Name] = true
		switch ind.Type {
		case TypeChemical, TypeAbstract:
		case TypeGeneExpression:
			if ind.Hill == nil {
				return domain.Configf(ind.Name, "gene_expression inducers need a hill curve")
			}
		default:
			return domain.Configf(ind.Name, "unknown inducer type %q", ind.Type)
		}
	}
	for _, ind := range c.Inducers {
		if ind.SyncTo != "" && !names[ind.SyncTo] {
			return domain.Configf(ind.Name, "sync_to references unknown inducer %q", ind.SyncTo)
		}
	}
	checkApply := func(owner string, apps []ApplyConfig) error {
		for _, a := range apps {
			if !names[a.Inducer] {
				return domain.Configf(owner, "applies unknown inducer %q", a.Inducer)
			}
			if _, err := domain.ParseMode(a.Mode); err != nil {
				return fmt.Errorf("%s: %w", owner, err)
			}
		}
		return nil
	}
	layouts := make(map[string]bool)
	for _, p := range c.Plates {
		if layouts[p.Name] {
			return domain.Configf("config", "duplicate layout %q", p.Name)
		}
		layouts[p.Name] = true
		if err := checkApply(p.Name, p.Apply); err != nil {
			return err
		}
	}
	for _, a := range c.Arrays {
		if layouts[a.Name] {
			return domain.Configf("config", "duplicate layout %q", a.Name)
		}
		layouts[a.Name] = true
		for _, p := range a.Plates {
			if len(p.Apply) > 0 {
				return domain.Configf(a.Name, "plate %s inside an array may not apply inducers", p.Name)
			}
		}
		if err := checkApply(a.Name, a.Apply); err != nil {
			return err
		}
	}
	if len(layouts) == 0 {
		return domain.Configf("config", "no plates or arrays")
	}
	return nil
}

// BlobSettings converts the storage section.
func (c *Config) BlobSettings() blob.Settings {
	return blob.Settings{
		Driver: blob.Driver(c.Storage.Driver),
		FSRoot: c.Storage.FSRoot,
		S3: blob.S3Config{
			Bucket:    c.Storage.S3.Bucket,
			Region:    c.Storage.S3.Region,
			Endpoint:  c.Storage.S3.Endpoint,
			PathStyle: c.Storage.S3.PathStyle,
		},
	}
}

// ExperimentOptions converts the generation section.
func (c *Config) ExperimentOptions() experiment.Options {
	g := c.Generation
	return experiment.Options{
		Replicates:        g.Replicates,
		Seed:              g.Seed,
		RandomizeInducers: g.RandomizeInducers,
		RandomizePlates:   g.RandomizePlates,
		Resources:         append([]string(nil), g.Resources...),
		MeasurementOrder:  g.MeasurementOrder,
		StrictRecipes:     g.StrictRecipes,
	}
}
