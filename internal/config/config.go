package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/apigate/internal/annotate"
	"github.com/dshills/apigate/internal/report"
)

// Config represents the apigate configuration.
type Config struct {
	// Branches maps a pull request target branch to the API category whose
	// snapshot it is compared against.
	Branches map[string]string `yaml:"branches" json:"branches"`
	Labels   LabelConfig       `yaml:"labels" json:"labels"`
	Report   ReportConfig      `yaml:"report" json:"report"`
	Store    StoreConfig       `yaml:"store" json:"store"`
	GitHub   GitHubConfig      `yaml:"github" json:"github"`
	Annotate annotate.Config   `yaml:"annotate" json:"annotate"`
	LogLevel string            `yaml:"logLevel" json:"logLevel"`
}

// LabelConfig names the pull request labels the checker manages.
type LabelConfig struct {
	InternalAPIChanged string `yaml:"internalApiChanged" json:"internalApiChanged"`
	ACRRequired        string `yaml:"acrRequired" json:"acrRequired"`
	ACRAccepted        string `yaml:"acrAccepted" json:"acrAccepted"`
}

// ReportConfig controls the change report and the default output format.
type ReportConfig struct {
	report.Config `yaml:",inline"`
	Format        string `yaml:"format" json:"format"`
}

// StoreConfig locates the snapshot store.
type StoreConfig struct {
	Dir string `yaml:"dir,omitempty" json:"dir,omitempty"`
}

// GitHubConfig points at the GitHub REST API.
type GitHubConfig struct {
	APIURL string `yaml:"apiUrl" json:"apiUrl"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Branches: DefaultBranches(),
		Labels: LabelConfig{
			InternalAPIChanged: "Internal API Changed",
			ACRRequired:        "ACR Required",
			ACRAccepted:        "ACR Accepted",
		},
		Report: ReportConfig{
			Config: report.DefaultConfig(),
			Format: "text",
		},
		GitHub: GitHubConfig{
			APIURL: "https://api.github.com",
		},
		LogLevel: "info",
	}
}

// DefaultBranches maps the development branches to the current API level
// and each release branch to itself.
func DefaultBranches() map[string]string {
	return map[string]string{
		"master":       "API9",
		"devel/master": "API9",
		"API8":         "API8",
		"API7":         "API7",
		"API6":         "API6",
		"API5":         "API5",
		"API4":         "API4",
	}
}

// Category returns the API category managed for branch.
func (c Config) Category(branch string) (string, bool) {
	cat, ok := c.Branches[branch]
	if !ok || cat == "" {
		return "", false
	}
	return cat, true
}

// ConfigDir returns the platform-appropriate config directory for apigate.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "apigate"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "apigate"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "apigate"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "apigate"), nil
	default:
		return filepath.Join(home, ".config", "apigate"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func resolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return ConfigPath()
}

// LoadFile loads config from path, or from ConfigPath when path is empty.
// Returns zero Config and nil error if the file doesn't exist.
func LoadFile(path string) (Config, error) {
	path, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path, or to ConfigPath when path is empty.
func Save(path string, cfg Config) error {
	path, err := resolvePath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags (only non-zero values should be set).
func Load(path string, overrides map[string]string) (Config, error) {
	cfg := Default()

	fileCfg, err := LoadFile(path)
	if err != nil {
		return Config{}, err
	}
	mergeFile(&cfg, fileCfg)
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func mergeFile(dst *Config, src Config) {
	if len(src.Branches) > 0 {
		dst.Branches = src.Branches
	}
	if src.Labels.InternalAPIChanged != "" {
		dst.Labels.InternalAPIChanged = src.Labels.InternalAPIChanged
	}
	if src.Labels.ACRRequired != "" {
		dst.Labels.ACRRequired = src.Labels.ACRRequired
	}
	if src.Labels.ACRAccepted != "" {
		dst.Labels.ACRAccepted = src.Labels.ACRAccepted
	}
	if src.Report.PublicBanner != "" {
		dst.Report.PublicBanner = src.Report.PublicBanner
	}
	if src.Report.InternalBanner != "" {
		dst.Report.InternalBanner = src.Report.InternalBanner
	}
	if src.Report.CollapseThreshold != 0 {
		dst.Report.CollapseThreshold = src.Report.CollapseThreshold
	}
	if src.Report.Format != "" {
		dst.Report.Format = src.Report.Format
	}
	if src.Store.Dir != "" {
		dst.Store.Dir = src.Store.Dir
	}
	if src.GitHub.APIURL != "" {
		dst.GitHub.APIURL = src.GitHub.APIURL
	}
	if len(src.Annotate.Exclude) > 0 {
		dst.Annotate.Exclude = src.Annotate.Exclude
	}
	if len(src.Annotate.RedactPaths) > 0 {
		dst.Annotate.RedactPaths = src.Annotate.RedactPaths
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
}

// envKeys maps APIGATE_* variables onto SetField keys.
var envKeys = map[string]string{
	"APIGATE_LOG_LEVEL":          "logLevel",
	"APIGATE_FORMAT":             "report.format",
	"APIGATE_COLLAPSE_THRESHOLD": "report.collapseThreshold",
	"APIGATE_STORE_DIR":          "store.dir",
	"APIGATE_GITHUB_API_URL":     "github.apiUrl",
	"APIGATE_ANNOTATE_EXCLUDE":   "annotate.exclude",
}

func mergeEnv(cfg *Config) error {
	names := make([]string, 0, len(envKeys))
	for name := range envKeys {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		if err := SetField(cfg, envKeys[name], v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	for key, v := range overrides {
		if v == "" {
			continue
		}
		if err := SetField(cfg, key, v); err != nil {
			return err
		}
	}
	return nil
}

// SetField sets a single config field by key name. Returns error if key is unknown.
// Branch mappings use the key "branches.<branch>"; an empty value removes
// the mapping. List keys take a comma-separated value.
func SetField(cfg *Config, key, value string) error {
	if branch, ok := strings.CutPrefix(key, "branches."); ok {
		if branch == "" {
			return fmt.Errorf("branch name required in key %q", key)
		}
		if cfg.Branches == nil {
			cfg.Branches = map[string]string{}
		}
		if value == "" {
			delete(cfg.Branches, branch)
		} else {
			cfg.Branches[branch] = value
		}
		return nil
	}

	switch key {
	case "labels.internalApiChanged":
		cfg.Labels.InternalAPIChanged = value
	case "labels.acrRequired":
		cfg.Labels.ACRRequired = value
	case "labels.acrAccepted":
		cfg.Labels.ACRAccepted = value
	case "report.publicBanner":
		cfg.Report.PublicBanner = value
	case "report.internalBanner":
		cfg.Report.InternalBanner = value
	case "report.collapseThreshold":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("report.collapseThreshold must be an integer: %w", err)
		}
		cfg.Report.CollapseThreshold = n
	case "report.format":
		cfg.Report.Format = value
	case "store.dir":
		cfg.Store.Dir = value
	case "github.apiUrl":
		cfg.GitHub.APIURL = value
	case "annotate.exclude":
		cfg.Annotate.Exclude = splitList(value)
	case "annotate.redactPaths":
		cfg.Annotate.RedactPaths = splitList(value)
	case "logLevel":
		cfg.LogLevel = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
