// config.go: settings struct and loading for the screener application.
package conf

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed config.yaml
var configFiles embed.FS

// ROISettings is a fractional region-of-interest rectangle, all fields in [0,1].
type ROISettings struct {
	Left   float64 // fractional left edge
	Top    float64 // fractional top edge
	Width  float64 // fractional width
	Height float64 // fractional height
}

// DetectorSettings contains the complete set of motion detector tunables.
// No parameters outside this set are recognized.
type DetectorSettings struct {
	AnalysisWidth           int         // downsample target width for analysis
	AnalysisHeight          int         // downsample target height for analysis
	FrameSkip               int         // analyze every Nth frame
	ComparisonGap           int         // compare frame i against frame i+gap
	SmoothingAlpha          float64     // EMA smoothing factor, in (0,1)
	SpikeMultiplier         float64     // spike when score > ema * multiplier
	MinSpikeFloor           int64       // absolute minimum spike threshold
	ROI                     ROISettings // region of interest analyzed for motion
	IdleSimilarityThreshold int64       // SAD below this vs idle reference counts as idle
	ConsecutiveIdleFrames   int         // idle frames required to confirm a reset
}

// AutoCutSettings contains the auto-cut controller timing policy.
type AutoCutSettings struct {
	Enabled                     bool    // enable golf mode auto switching at startup
	MaxSimulatorDurationSeconds float64 // failsafe cap on time spent following a shot
	PostLandingDelaySeconds     float64 // linger on the simulator after reset confirms
	CooldownDurationSeconds     float64 // pause after a completed or discarded swing
	PracticeSwingTimeoutSeconds float64 // swings resolving faster than this are practice swings
}

// TransitionSettings configures the on-air transition engine.
type TransitionSettings struct {
	DurationMs float64 // auto transition duration in milliseconds
	Workers    int     // blend worker count, 0 = auto from CPU topology
}

// VideoSettings describes the two capture streams.
type VideoSettings struct {
	Width           int     // frame width in pixels
	Height          int     // frame height in pixels
	FPS             float64 // nominal capture rate
	BufferSeconds   int     // clip capture buffer depth per source
	GolferSource    string  // name of the golfer camera source
	SimulatorSource string  // name of the simulator screen source
}

// ExportSettings configures clip extraction for completed swing sequences.
type ExportSettings struct {
	Enabled         bool    // export clips for completed sequences
	Path            string  // clip export directory
	PreRollSeconds  float64 // seconds of video kept before the in-point
	PostRollSeconds float64 // seconds of video kept after the out-point
}

// MQTTSettings configures the optional event publisher.
type MQTTSettings struct {
	Enabled     bool   // enable MQTT publishing of switch/sequence events
	Broker      string // broker URL, e.g. tcp://localhost:1883
	TopicPrefix string // topic prefix, e.g. screener
	Username    string // broker username
	Password    string // broker password
}

// TelemetrySettings configures the Prometheus endpoint and Sentry reporting.
type TelemetrySettings struct {
	Enabled    bool   // enable Prometheus metrics endpoint
	Listen     string // metrics listen address, e.g. 0.0.0.0:8090
	SentryDSN  string // sentry DSN, empty disables error reporting
	SentryOptI bool   `mapstructure:"sentryoptin"` // opt in to sentry error reporting
}

// HTTPSettings configures the control API.
type HTTPSettings struct {
	Enabled bool   // enable the HTTP control API
	Listen  string // listen address, e.g. 0.0.0.0:8080
}

// RealtimeSettings contains all settings for the realtime switching loop.
type RealtimeSettings struct {
	Video      VideoSettings
	Detector   DetectorSettings
	AutoCut    AutoCutSettings
	Transition TransitionSettings
	Export     ExportSettings
	MQTT       MQTTSettings
	Telemetry  TelemetrySettings
	HTTP       HTTPSettings
}

// SQLiteSettings configures the sequence/session datastore.
type SQLiteSettings struct {
	Enabled bool   // store sessions and sequences in SQLite
	Path    string // database file path
}

// OutputSettings contains datastore configuration.
type OutputSettings struct {
	SQLite SQLiteSettings
}

// Settings is the root configuration object.
type Settings struct {
	Debug   bool   // enable debug logging
	Version string // build version, set at link time

	Main struct {
		Name    string // node name, used as MQTT client id and log attribute
		LogFile string // rotating log file path, empty logs to stdout only
	}

	Realtime RealtimeSettings
	Output   OutputSettings
}

// Load reads configuration from the given path (or the default search paths
// when empty), applies defaults, and validates the result.
func Load(configPath string) (*Settings, error) {
	settings, err := loadSettings(configPath)
	if err != nil {
		return nil, err
	}
	if err := Validate(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func loadSettings(configPath string) (*Settings, error) {
	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		for _, path := range configPaths() {
			viper.AddConfigPath(path)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !asConfigFileNotFound(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No user config; fall back to the embedded defaults.
		defaultConfig, readErr := configFiles.ReadFile("config.yaml")
		if readErr != nil {
			return nil, fmt.Errorf("error reading embedded config: %w", readErr)
		}
		if readErr := viper.ReadConfig(bytes.NewReader(defaultConfig)); readErr != nil {
			return nil, fmt.Errorf("error parsing embedded config: %w", readErr)
		}
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return settings, nil
}

func asConfigFileNotFound(err error, target *viper.ConfigFileNotFoundError) bool {
	if nf, ok := err.(viper.ConfigFileNotFoundError); ok {
		*target = nf
		return true
	}
	return false
}

// SaveYAMLConfig writes the effective settings to a YAML config file. The
// write goes through a temporary file in the same directory so a crash never
// leaves a truncated config behind.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}

// configPaths returns the config file search order: working directory first,
// then the user config directory, then the system directory.
func configPaths() []string {
	paths := []string{"."}
	if homeDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, "screener"))
	}
	paths = append(paths, "/etc/screener")
	return paths
}
