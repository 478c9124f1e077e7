package config

import (
	"fmt"
	"io"
	"os"
	"os/user"
	"path"

	"gopkg.in/yaml.v2"

	"github.com/hcstack/fpstack/pkg/logflags"
)

const (
	configDir  string = ".fpstack"
	configFile string = "config.yml"
)

// Config defines all configuration options available to be set through the config file.
type Config struct {
	// MaxDepth is the maximum number of frames printed by the trace
	// command. Unset or zero means no limit.
	MaxDepth *int `yaml:"max-depth,omitempty"`

	// HexUpper prints addresses with uppercase hex digits.
	HexUpper bool `yaml:"hex-upper"`
	// HexPrefix prints addresses with a 0x prefix.
	HexPrefix bool `yaml:"hex-prefix"`

	// VerifyCalls checks that every return address follows a call
	// instruction.
	VerifyCalls bool `yaml:"verify-calls"`
	// CallsiteCacheSize is the number of verified return addresses kept in
	// memory.
	CallsiteCacheSize int `yaml:"callsite-cache-size,omitempty"`

	// NoColor disables colored output even on a terminal.
	NoColor bool `yaml:"no-color"`
}

// Depth returns the configured maximum depth, 0 meaning unlimited.
func (c *Config) Depth() int {
	if c == nil || c.MaxDepth == nil || *c.MaxDepth < 0 {
		return 0
	}
	return *c.MaxDepth
}

// LoadConfig attempts to populate a Config object from the config.yml file.
// Errors are logged and result in an empty configuration.
func LoadConfig() *Config {
	logger := logflags.ConfigLogger()
	err := createConfigPath()
	if err != nil {
		logger.Errorf("Could not create config directory: %v.", err)
		return &Config{}
	}
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		logger.Errorf("Unable to get config file path: %v.", err)
		return &Config{}
	}

	if _, err := os.Stat(fullConfigFile); os.IsNotExist(err) {
		f, err := createDefaultConfig(fullConfigFile)
		if err != nil {
			logger.Errorf("Error creating default config file: %v", err)
			return &Config{}
		}
		f.Close()
	}

	c, err := LoadConfigFrom(fullConfigFile)
	if err != nil {
		logger.Errorf("%v.", err)
		return &Config{}
	}
	if logflags.Config() {
		logger.Debugf("loaded %s", fullConfigFile)
	}
	return c
}

// LoadConfigFrom reads the configuration stored at path.
func LoadConfigFrom(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("unable to read config data: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unable to decode config file: %w", err)
	}
	return &c, nil
}

// SaveConfig will marshal and save the config struct
// to disk.
func SaveConfig(conf *Config) error {
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		return err
	}
	return SaveConfigTo(conf, fullConfigFile)
}

// SaveConfigTo marshals conf into the file at path.
func SaveConfigTo(conf *Config, path string) error {
	out, err := yaml.Marshal(*conf)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(out)
	return err
}

func createDefaultConfig(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("unable to create config file: %w", err)
	}
	err = writeDefaultConfig(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("unable to write default configuration: %w", err)
	}
	return f, nil
}

func writeDefaultConfig(w io.Writer) error {
	_, err := io.WriteString(w,
		`# Configuration file for fpstack.

# This is the default configuration file. Available options are provided, but disabled.
# Delete the leading hash mark to enable an item.

# Maximum number of frames printed by 'fpstack trace' (0 means no limit).
# max-depth: 64

# Print addresses with uppercase hex digits and/or a 0x prefix.
# hex-upper: true
# hex-prefix: true

# Check that every return address follows a call instruction.
# verify-calls: true

# Number of return addresses remembered by the call site verifier.
# callsite-cache-size: 1024

# Disable colored output.
# no-color: true
`)
	return err
}

// createConfigPath creates the directory structure at which all config files are saved.
func createConfigPath() error {
	path, err := GetConfigFilePath("")
	if err != nil {
		return err
	}
	return os.MkdirAll(path, 0700)
}

// GetConfigFilePath gets the full path to the given config file name.
func GetConfigFilePath(file string) (string, error) {
	if dir := os.Getenv("FPSTACK_CONFIG_DIR"); dir != "" {
		return path.Join(dir, file), nil
	}
	userHomeDir := "."
	usr, err := user.Current()
	if err == nil {
		userHomeDir = usr.HomeDir
	}
	return path.Join(userHomeDir, configDir, file), nil
}
