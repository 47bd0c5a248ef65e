package internal

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sensiblebit/keyboxgen"
)

// KeyboxPathEnv names the environment variable holding the keybox directory.
const KeyboxPathEnv = "KEYBOX_PATH"

// ErrMissingKeyboxDir is returned when no keybox directory was configured.
var ErrMissingKeyboxDir = errors.New("keybox directory not configured (set --keybox-dir or " + KeyboxPathEnv + ")")

// Config holds the resolved configuration for one generation run.
type Config struct {
	KeyboxDir  string
	OutputPath string
	Emit       keyboxgen.EmitOptions
}

// Settings is one layer of configuration. Empty fields are unset and fall
// through to the next layer.
type Settings struct {
	KeyboxDir string `yaml:"keyboxDir"`
	Output    string `yaml:"output"`
	Language  string `yaml:"language"`
	Package   string `yaml:"package"`
}

// LoadConfigFile reads Settings from a YAML file.
func LoadConfigFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &s, nil
}

// ConfigInput gathers the configuration layers for ResolveConfig.
type ConfigInput struct {
	// Flags holds values explicitly set on the command line.
	Flags Settings
	// File holds values from the YAML config file, if one was loaded.
	File *Settings
	// LookupEnv reads the environment. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// ResolveConfig merges the layers in precedence order: flags, then the
// KEYBOX_PATH environment variable (keybox directory only), then the config
// file, then defaults. It does not require the keybox directory; Generate
// rejects a missing one.
func ResolveConfig(in ConfigInput) (*Config, error) {
	lookup := in.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	file := in.File
	if file == nil {
		file = &Settings{}
	}

	// A set but empty KEYBOX_PATH names the current directory.
	var envDir string
	if v, ok := lookup(KeyboxPathEnv); ok {
		envDir = v
		if envDir == "" {
			envDir = "."
		}
	}

	lang := keyboxgen.LanguageGo
	if name := firstNonEmpty(in.Flags.Language, file.Language); name != "" {
		var err error
		if lang, err = keyboxgen.ParseLanguage(name); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		KeyboxDir:  firstNonEmpty(in.Flags.KeyboxDir, envDir, file.KeyboxDir),
		OutputPath: firstNonEmpty(in.Flags.Output, file.Output, lang.DefaultOutputPath()),
		Emit: keyboxgen.EmitOptions{
			Language: lang,
			Package:  firstNonEmpty(in.Flags.Package, file.Package, keyboxgen.DefaultPackage),
		},
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
