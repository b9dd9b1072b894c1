// Package config loads xlfkit settings and detects what kind of source tree
// it is pointed at.
//
// Settings come, in increasing priority, from built-in defaults, an optional
// .xlfkit.yaml in the project root, XLFKIT_* environment variables and
// finally command-line flags applied by the caller.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/minios-linux/xlfkit/langmeta"
	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".xlfkit"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix.
const envPrefix = "XLFKIT"

// Defaults.
const (
	DefaultOutDir     = "xlf"
	DefaultJSONLayout = "i18n"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
)

// Validation errors.
var (
	ErrInvalidLayout    = errors.New("json_layout must be \"i18n\" or \"nls\"")
	ErrInvalidLogLevel  = errors.New("log.level must be debug, info, warn or error")
	ErrInvalidLogFormat = errors.New("log.format must be \"text\" or \"json\"")
	ErrEmptyOutDir      = errors.New("out_dir must not be empty")
)

// Config holds the resolved settings.
type Config struct {
	// OutDir receives emitted XLIFF files and the manifest.
	OutDir string `mapstructure:"out_dir"`
	// JSONLayout selects how translated JSON is written: "i18n" or "nls".
	JSONLayout string `mapstructure:"json_layout"`
	// Languages are folder codes, vendor tags or short tags. Validate
	// rewrites them to folder codes.
	Languages []string `mapstructure:"languages"`
	// Extension names an external extension. Empty means the tree is
	// the product itself, or is detected.
	Extension string `mapstructure:"extension"`

	Log LogConfig `mapstructure:"log"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration for the project at root. When configPath is
// non-empty it must exist; otherwise .xlfkit.yaml is looked up in root and
// its absence is not an error.
func Load(root, configPath string) (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(root)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("out_dir", DefaultOutDir)
	v.SetDefault("json_layout", DefaultJSONLayout)
	v.SetDefault("languages", langmeta.DefaultLanguages)
	v.SetDefault("extension", "")
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
}

// Validate checks the settings and normalizes Languages to folder codes,
// dropping duplicates.
func (c *Config) Validate() error {
	if c.OutDir == "" {
		return ErrEmptyOutDir
	}
	switch c.JSONLayout {
	case "i18n", "nls":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidLayout, c.JSONLayout)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidLogFormat, c.Log.Format)
	}

	var ids []string
	for _, code := range c.Languages {
		lang, err := langmeta.Lookup(code)
		if err != nil {
			return err
		}
		if !slices.Contains(ids, lang.ID) {
			ids = append(ids, lang.ID)
		}
	}
	c.Languages = ids
	return nil
}

// SlogLevel maps Log.Level to a slog level.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%w: got %q", ErrInvalidLogLevel, c.Log.Level)
}

// ---------------------------------------------------------------------------
// Source tree detection
// ---------------------------------------------------------------------------

// Kind says what a source tree contains.
type Kind string

const (
	// KindProduct is the product repository: core bundles under out*/,
	// built-in extensions under extensions/ and installer messages under
	// build/win32/i18n.
	KindProduct Kind = "product"
	// KindExtension is a standalone extension with package.json at its root.
	KindExtension Kind = "extension"
	// KindUnknown could not be determined.
	KindUnknown Kind = "unknown"
)

// Project describes a detected source tree.
type Project struct {
	Root string
	Kind Kind
	// Name is the product name or the extension's package name.
	Name string
	// Extensions are the built-in extension folders (product only).
	Extensions []string
	// IslDir holds the installer message sources when present.
	IslDir string
}

// IslSourceDir is where the product keeps its installer messages.
const IslSourceDir = "build/win32/i18n"

type packageJSON struct {
	Name string `json:"name"`
}

type productJSON struct {
	NameShort string `json:"nameShort"`
}

// Detect inspects root. A tree with an extensions/ directory is the
// product; a tree with only package.json is an external extension.
func Detect(root string) *Project {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = root
	}
	p := &Project{Root: absRoot, Kind: KindUnknown, Name: filepath.Base(absRoot)}

	extDir := filepath.Join(absRoot, "extensions")
	if entries, err := os.ReadDir(extDir); err == nil {
		p.Kind = KindProduct
		for _, e := range entries {
			if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
				p.Extensions = append(p.Extensions, e.Name())
			}
		}
		var product productJSON
		if readJSON(filepath.Join(absRoot, "product.json"), &product) == nil && product.NameShort != "" {
			p.Name = product.NameShort
		}
	} else {
		var pkg packageJSON
		if readJSON(filepath.Join(absRoot, "package.json"), &pkg) == nil {
			p.Kind = KindExtension
			if pkg.Name != "" {
				p.Name = pkg.Name
			}
		}
	}

	islDir := filepath.Join(absRoot, filepath.FromSlash(IslSourceDir))
	if info, err := os.Stat(islDir); err == nil && info.IsDir() {
		p.IslDir = IslSourceDir
	}
	return p
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
