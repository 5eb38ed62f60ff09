// Package config loads the analysis parameters: which exclusion policy
// drives the primary analysis, how its cutoff is computed, and how the
// group comparison chooses its omnibus test.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical analysis defaults file.
const DefaultConfigPath = "config/analysis.defaults.json"

// AnalysisConfig is the root configuration. Omitted fields fall back to the
// defaults returned by the Get* methods, so partial files are safe.
type AnalysisConfig struct {
	// Exclusion policy
	FilterPolicy      *string  `json:"filter_policy,omitempty"` // "quantile" or "sigma"
	Quantile          *float64 `json:"quantile,omitempty"`
	QuantileMethod    *string  `json:"quantile_method,omitempty"` // "linear", "empirical", "lininterp"
	SigmaMultiplier   *float64 `json:"sigma_multiplier,omitempty"`
	RunSensitivity    *bool    `json:"run_sensitivity,omitempty"`
	SensitivityPolicy *string  `json:"sensitivity_policy,omitempty"`

	// Group comparison
	Omnibus            *string  `json:"omnibus,omitempty"` // "kruskal" or "auto"
	Alpha              *float64 `json:"alpha,omitempty"`
	RatingAssociations *bool    `json:"rating_associations,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }

// EmptyAnalysisConfig returns a config with every field unset.
func EmptyAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{}
}

// DefaultAnalysisConfig returns a config with every field set to its
// default, the published analysis.
func DefaultAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		FilterPolicy:       ptrString("quantile"),
		Quantile:           ptrFloat64(0.75),
		QuantileMethod:     ptrString("linear"),
		SigmaMultiplier:    ptrFloat64(3),
		RunSensitivity:     ptrBool(true),
		SensitivityPolicy:  ptrString("sigma"),
		Omnibus:            ptrString("kruskal"),
		Alpha:              ptrFloat64(0.05),
		RatingAssociations: ptrBool(true),
	}
}

// LoadAnalysisConfig loads a config from a JSON file. The file must have a
// .json extension and be under 1MB.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyAnalysisConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadDefaultConfig loads DefaultConfigPath from the current directory or
// one of its parents and returns the path it used.
func LoadDefaultConfig() (*AnalysisConfig, string, error) {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	var firstErr error
	for _, path := range candidates {
		cfg, err := LoadAnalysisConfig(path)
		if err == nil {
			return cfg, path, nil
		}
		if firstErr == nil && !errors.Is(err, fs.ErrNotExist) {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, "", firstErr
	}
	return nil, "", fmt.Errorf("cannot find %s: %w", DefaultConfigPath, fs.ErrNotExist)
}

// MustLoadDefaultConfig is LoadDefaultConfig for test setup. Panics if the
// file cannot be loaded.
func MustLoadDefaultConfig() *AnalysisConfig {
	cfg, _, err := LoadDefaultConfig()
	if err != nil {
		panic(err.Error() + " - run tests from repository root")
	}
	return cfg
}

// Validate checks that set values are usable.
func (c *AnalysisConfig) Validate() error {
	if c.FilterPolicy != nil && !validPolicy(*c.FilterPolicy) {
		return fmt.Errorf("filter_policy must be quantile or sigma, got %q", *c.FilterPolicy)
	}
	if c.SensitivityPolicy != nil && !validPolicy(*c.SensitivityPolicy) {
		return fmt.Errorf("sensitivity_policy must be quantile or sigma, got %q", *c.SensitivityPolicy)
	}
	if c.Quantile != nil && (*c.Quantile <= 0 || *c.Quantile > 1) {
		return fmt.Errorf("quantile must be in (0, 1], got %f", *c.Quantile)
	}
	if c.QuantileMethod != nil {
		switch *c.QuantileMethod {
		case "linear", "empirical", "lininterp":
		default:
			return fmt.Errorf("quantile_method must be linear, empirical or lininterp, got %q", *c.QuantileMethod)
		}
	}
	if c.SigmaMultiplier != nil && *c.SigmaMultiplier <= 0 {
		return fmt.Errorf("sigma_multiplier must be positive, got %f", *c.SigmaMultiplier)
	}
	if c.Omnibus != nil && *c.Omnibus != "kruskal" && *c.Omnibus != "auto" {
		return fmt.Errorf("omnibus must be kruskal or auto, got %q", *c.Omnibus)
	}
	if c.Alpha != nil && (*c.Alpha <= 0 || *c.Alpha >= 1) {
		return fmt.Errorf("alpha must be in (0, 1), got %f", *c.Alpha)
	}
	return nil
}

func validPolicy(s string) bool { return s == "quantile" || s == "sigma" }

// GetFilterPolicy returns the primary exclusion policy or the default.
func (c *AnalysisConfig) GetFilterPolicy() string {
	if c.FilterPolicy == nil || *c.FilterPolicy == "" {
		return "quantile"
	}
	return *c.FilterPolicy
}

// GetQuantile returns the quantile cutoff or the default.
func (c *AnalysisConfig) GetQuantile() float64 {
	if c.Quantile == nil {
		return 0.75
	}
	return *c.Quantile
}

// GetQuantileMethod returns the quantile estimator or the default.
func (c *AnalysisConfig) GetQuantileMethod() string {
	if c.QuantileMethod == nil || *c.QuantileMethod == "" {
		return "linear"
	}
	return *c.QuantileMethod
}

// GetSigmaMultiplier returns the sigma multiplier or the default.
func (c *AnalysisConfig) GetSigmaMultiplier() float64 {
	if c.SigmaMultiplier == nil {
		return 3
	}
	return *c.SigmaMultiplier
}

// GetRunSensitivity returns whether the sensitivity rerun is enabled.
func (c *AnalysisConfig) GetRunSensitivity() bool {
	if c.RunSensitivity == nil {
		return true
	}
	return *c.RunSensitivity
}

// GetSensitivityPolicy returns the policy used for the sensitivity rerun.
// It defaults to whichever policy the primary analysis does not use.
func (c *AnalysisConfig) GetSensitivityPolicy() string {
	if c.SensitivityPolicy != nil && *c.SensitivityPolicy != "" {
		return *c.SensitivityPolicy
	}
	if c.GetFilterPolicy() == "sigma" {
		return "quantile"
	}
	return "sigma"
}

// GetOmnibus returns the omnibus mode or the default.
func (c *AnalysisConfig) GetOmnibus() string {
	if c.Omnibus == nil || *c.Omnibus == "" {
		return "kruskal"
	}
	return *c.Omnibus
}

// GetAlpha returns the significance level or the default.
func (c *AnalysisConfig) GetAlpha() float64 {
	if c.Alpha == nil {
		return 0.05
	}
	return *c.Alpha
}

// GetRatingAssociations returns whether rating correlations are computed.
func (c *AnalysisConfig) GetRatingAssociations() bool {
	if c.RatingAssociations == nil {
		return true
	}
	return *c.RatingAssociations
}
