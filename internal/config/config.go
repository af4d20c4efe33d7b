package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the config file looked up in the config directory.
const FileName = "config.toml"

// Config holds application configuration.
type Config struct {
	// TakeoutDir is the Takeout archive root, or its "Semantic Location History" directory.
	TakeoutDir string `toml:"takeout_dir"`

	// OutputDir is the directory output files are written into.
	OutputDir string `toml:"output_dir"`

	// OutputName is the base file name; page numbers and extensions are appended.
	OutputName string `toml:"output_name"`

	// EntriesPerFile caps the number of features per output file. 0 means a single file.
	EntriesPerFile int `toml:"entries_per_file"`

	GenerateKML    bool `toml:"generate_kml"`
	ExcludeGeoJSON bool `toml:"exclude_geojson"`
	PrettyOutput   bool `toml:"pretty_output"`

	// IncludeAllWaypoints adds waypoint paths between segment endpoints.
	IncludeAllWaypoints bool `toml:"include_all_waypoints"`

	// IncludeTimestamps adds a "timestamp" property with the record start time.
	IncludeTimestamps bool `toml:"include_timestamps"`

	// Metadata lists extra properties to project onto each feature.
	// Known keys: placeId, activityType, durationInMS, address.
	Metadata []string `toml:"metadata,omitempty"`

	// MaxParallelLoads bounds concurrent month file reads.
	MaxParallelLoads int `toml:"max_parallel_loads"`

	// MaxParallelWrites bounds concurrent output file writes.
	MaxParallelWrites int `toml:"max_parallel_writes"`

	// LogLevel is a logrus level name (debug, info, warn, error).
	LogLevel string `toml:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `toml:"log_format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		OutputDir:         ".",
		OutputName:        "out",
		MaxParallelLoads:  8,
		MaxParallelWrites: 4,
		LogLevel:          "warn",
		LogFormat:         "text",
	}
}

// DefaultDir returns the user-level config directory (~/.config/takeoutgeo).
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "takeoutgeo"), nil
}

// Load loads configuration from baseDir/config.toml.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.config/takeoutgeo.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, FileName))
}

// LoadWithOverride loads the global config from baseDir and then layers an
// explicit config file on top. The override file must exist.
func LoadWithOverride(baseDir, overridePath string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(baseDir, FileName))
	if err != nil {
		return nil, err
	}
	result := Merge(DefaultConfig(), global)

	if overridePath == "" {
		return result, nil
	}
	if _, err := os.Stat(overridePath); err != nil {
		return nil, fmt.Errorf("config %s: %w", overridePath, err)
	}
	override, err := loadFileRaw(overridePath)
	if err != nil {
		return nil, err
	}
	return Merge(result, override), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", configPath, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse config %s: unknown keys %v", configPath, undecoded)
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.TakeoutDir = firstNonEmpty(overlay.TakeoutDir, base.TakeoutDir)
	result.OutputDir = firstNonEmpty(overlay.OutputDir, base.OutputDir)
	result.OutputName = firstNonEmpty(overlay.OutputName, base.OutputName)
	result.LogLevel = firstNonEmpty(overlay.LogLevel, base.LogLevel)
	result.LogFormat = firstNonEmpty(overlay.LogFormat, base.LogFormat)

	result.EntriesPerFile = overlay.EntriesPerFile
	if result.EntriesPerFile == 0 {
		result.EntriesPerFile = base.EntriesPerFile
	}

	result.MaxParallelLoads = overlay.MaxParallelLoads
	if result.MaxParallelLoads == 0 {
		result.MaxParallelLoads = base.MaxParallelLoads
	}

	result.MaxParallelWrites = overlay.MaxParallelWrites
	if result.MaxParallelWrites == 0 {
		result.MaxParallelWrites = base.MaxParallelWrites
	}

	// Booleans: overlay wins if true, else base
	result.GenerateKML = base.GenerateKML || overlay.GenerateKML
	result.ExcludeGeoJSON = base.ExcludeGeoJSON || overlay.ExcludeGeoJSON
	result.PrettyOutput = base.PrettyOutput || overlay.PrettyOutput
	result.IncludeAllWaypoints = base.IncludeAllWaypoints || overlay.IncludeAllWaypoints
	result.IncludeTimestamps = base.IncludeTimestamps || overlay.IncludeTimestamps

	// Arrays: merge and deduplicate
	result.Metadata = mergeStringSlice(base.Metadata, overlay.Metadata)

	return result
}

// Validate checks values that have no meaningful zero fallback.
func (c *Config) Validate() error {
	if c.EntriesPerFile < 0 {
		return fmt.Errorf("entries_per_file must be non-negative, got %d", c.EntriesPerFile)
	}
	if c.MaxParallelLoads < 1 {
		return fmt.Errorf("max_parallel_loads must be at least 1, got %d", c.MaxParallelLoads)
	}
	if c.MaxParallelWrites < 1 {
		return fmt.Errorf("max_parallel_writes must be at least 1, got %d", c.MaxParallelWrites)
	}
	if strings.TrimSpace(c.OutputName) == "" {
		return fmt.Errorf("output_name must not be empty")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
