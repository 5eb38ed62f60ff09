package pipeline

import (
	"fmt"

	"github.com/banshee-data/temporal-compression/internal/config"
	"github.com/banshee-data/temporal-compression/internal/filter"
	"github.com/banshee-data/temporal-compression/internal/groupcmp"
)

// Options configures a Runner.
type Options struct {
	// Primary drives every downstream result.
	Primary filter.Policy
	// Sensitivity, when set, reruns the analysis from the same joined
	// tables under a second policy. It never feeds the primary results.
	Sensitivity *filter.Policy
	Compare     groupcmp.Options
}

// DefaultOptions is the published analysis: 75th percentile exclusion,
// a 3-sigma sensitivity rerun and the Kruskal-Wallis omnibus.
func DefaultOptions() Options {
	sigma := filter.DefaultSigmaPolicy()
	return Options{
		Primary:     filter.DefaultQuantilePolicy(),
		Sensitivity: &sigma,
		Compare:     groupcmp.DefaultOptions(),
	}
}

// Validate checks both policies.
func (o Options) Validate() error {
	if err := o.Primary.Validate(); err != nil {
		return fmt.Errorf("primary policy: %w", err)
	}
	if o.Sensitivity != nil {
		if err := o.Sensitivity.Validate(); err != nil {
			return fmt.Errorf("sensitivity policy: %w", err)
		}
	}
	return nil
}

// OptionsFromConfig maps an analysis config onto runner options.
func OptionsFromConfig(cfg *config.AnalysisConfig) (Options, error) {
	if err := cfg.Validate(); err != nil {
		return Options{}, err
	}
	primary, err := policyFor(cfg, cfg.GetFilterPolicy())
	if err != nil {
		return Options{}, err
	}
	opts := Options{
		Primary: primary,
		Compare: groupcmp.Options{
			Omnibus:      groupcmp.OmnibusMode(cfg.GetOmnibus()),
			Alpha:        cfg.GetAlpha(),
			Associations: cfg.GetRatingAssociations(),
		},
	}
	if cfg.GetRunSensitivity() {
		p, err := policyFor(cfg, cfg.GetSensitivityPolicy())
		if err != nil {
			return Options{}, err
		}
		opts.Sensitivity = &p
	}
	return opts, opts.Validate()
}

func policyFor(cfg *config.AnalysisConfig, kind string) (filter.Policy, error) {
	switch filter.Kind(kind) {
	case filter.SigmaKind:
		return filter.Policy{Kind: filter.SigmaKind, Multiplier: cfg.GetSigmaMultiplier()}, nil
	case filter.QuantileKind:
		method, err := filter.ParseQuantileMethod(cfg.GetQuantileMethod())
		if err != nil {
			return filter.Policy{}, err
		}
		return filter.Policy{Kind: filter.QuantileKind, Quantile: cfg.GetQuantile(), Method: method}, nil
	}
	return filter.Policy{}, fmt.Errorf("unknown filter policy %q", kind)
}
