// Package settings loads run configuration from, in ascending priority,
// built-in defaults, an optional JSONC settings file, environment
// variables prefixed RAYZOR_, and command-line flags.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/muhammadmuzzammil1998/jsonc"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/draco-tlw/rayzor/internal/constants"
)

// Settings holds every tunable knob of a latency-testing run.
type Settings struct {
	InputFile       string `mapstructure:"input_file"`
	ResultsFile     string `mapstructure:"results_file"`
	ActiveLinksFile string `mapstructure:"active_links_file"`
	CorePath        string `mapstructure:"core_path"`
	WorkDir         string `mapstructure:"work_dir"`
	BasePort        int    `mapstructure:"base_port"`
	BatchSize       int    `mapstructure:"batch_size"`
	TestURL         string `mapstructure:"test_url"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	MaxWorkers      int    `mapstructure:"max_workers"`
	MaxRetries      int    `mapstructure:"max_retries"`
	LogLevel        string `mapstructure:"log_level"`
	LogFormat       string `mapstructure:"log_format"`
}

const envPrefix = "RAYZOR"

func setDefaults(v *viper.Viper) {
	v.SetDefault("input_file", "links.txt")
	v.SetDefault("results_file", "results.csv")
	v.SetDefault("active_links_file", "active.txt")
	v.SetDefault("core_path", constants.SingBoxExecName)
	v.SetDefault("work_dir", ".")
	v.SetDefault("base_port", 11000)
	v.SetDefault("batch_size", 500)
	v.SetDefault("test_url", "http://connectivitycheck.gstatic.com/generate_204")
	v.SetDefault("timeout_seconds", 5)
	v.SetDefault("max_workers", 250)
	v.SetDefault("max_retries", 3)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
}

var (
	commentRegex       = regexp.MustCompile(`(?m)\s+//.*$|/\*[\s\S]*?\*/`)
	emptyLineRegex     = regexp.MustCompile(`(?m)^\s*\n`)
	trailingCommaRegex = regexp.MustCompile(`,(\s*[\]\}])`)
)

// stripJSONC turns a comment-and-trailing-comma-tolerant JSONC document into
// strict JSON viper can parse.
func stripJSONC(data []byte) []byte {
	clean := jsonc.ToJSON(data)
	clean = commentRegex.ReplaceAll(clean, nil)
	clean = emptyLineRegex.ReplaceAll(clean, nil)
	return trailingCommaRegex.ReplaceAll(clean, []byte("$1"))
}

// FlagBindings maps a dash-named CLI flag to the underscore-named config
// key it overrides, since the two use different, idiomatic naming styles.
var FlagBindings = map[string]string{
	"input":           "input_file",
	"results":         "results_file",
	"active":          "active_links_file",
	"core-path":       "core_path",
	"base-port":       "base_port",
	"batch-size":      "batch_size",
	"max-workers":     "max_workers",
	"max-retries":     "max_retries",
	"timeout-seconds": "timeout_seconds",
	"log-level":       "log_level",
	"log-format":      "log_format",
}

// Load builds a Settings value layering defaults, an optional JSONC file at
// configPath, RAYZOR_-prefixed environment variables, and flags bound to
// fs via FlagBindings, in that ascending order of precedence. configPath
// may be empty, in which case no config file is read.
func Load(configPath string, fs *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		raw, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read settings file %s: %w", configPath, err)
		}
		v.SetConfigType("json")
		if err := v.ReadConfig(strings.NewReader(string(stripJSONC(raw)))); err != nil {
			return nil, fmt.Errorf("parse settings file %s: %w", configPath, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for flagName, key := range FlagBindings {
			flag := fs.Lookup(flagName)
			if flag == nil || !flag.Changed {
				continue
			}
			switch flag.Value.Type() {
			case "int":
				iv, err := fs.GetInt(flagName)
				if err != nil {
					return nil, fmt.Errorf("read flag %s: %w", flagName, err)
				}
				v.Set(key, iv)
			default:
				sv, err := fs.GetString(flagName)
				if err != nil {
					return nil, fmt.Errorf("read flag %s: %w", flagName, err)
				}
				v.Set(key, sv)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	return &s, nil
}

// MarshalIndent renders the settings back to JSON, used by the `run`
// command's debug log line to show the effective configuration.
func (s *Settings) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}
