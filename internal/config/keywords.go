package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed keywords_default.yaml
var defaultKeywordsYAML []byte

// DetectorKeywords configures the plan-update detector. The keyword sets are
// data, not code: swapping in another locale's terms changes behavior without
// touching the decision rule.
type DetectorKeywords struct {
	UpdateRequestTerms   []string `yaml:"update_request_terms"`
	PlanResponseMarkers  []string `yaml:"plan_response_markers"`
	StructureMarkers     []string `yaml:"structure_markers"`
	MinSubstantialLength int      `yaml:"min_substantial_length"`
	RecentWindow         int      `yaml:"recent_window"`
}

// ExtractorKeywords configures context-reference extraction.
type ExtractorKeywords struct {
	PlanTerms     []string `yaml:"plan_terms"`
	AnaphoraTerms []string `yaml:"anaphora_terms"`
}

// Keywords bundles both keyword-driven subsystems.
type Keywords struct {
	Detector  DetectorKeywords  `yaml:"detector"`
	Extractor ExtractorKeywords `yaml:"extractor"`
}

// DefaultKeywords parses the embedded default keyword sets.
func DefaultKeywords() Keywords {
	var kw Keywords
	// The embedded file is compiled in and validated by tests; an unmarshal
	// failure here would mean a broken build, not a runtime condition.
	_ = yaml.Unmarshal(defaultKeywordsYAML, &kw)
	return kw
}

// LoadKeywords returns the embedded defaults merged with overrides from
// path. Non-empty override fields replace the corresponding defaults
// wholesale; an empty path returns the defaults unchanged.
func LoadKeywords(path string) (Keywords, error) {
	kw := DefaultKeywords()
	if path == "" {
		return kw, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return kw, fmt.Errorf("read keywords config: %w", err)
	}

	var override Keywords
	if err := yaml.Unmarshal(data, &override); err != nil {
		return kw, fmt.Errorf("parse keywords config: %w", err)
	}

	if len(override.Detector.UpdateRequestTerms) > 0 {
		kw.Detector.UpdateRequestTerms = override.Detector.UpdateRequestTerms
	}
	if len(override.Detector.PlanResponseMarkers) > 0 {
		kw.Detector.PlanResponseMarkers = override.Detector.PlanResponseMarkers
	}
	if len(override.Detector.StructureMarkers) > 0 {
		kw.Detector.StructureMarkers = override.Detector.StructureMarkers
	}
	if override.Detector.MinSubstantialLength > 0 {
		kw.Detector.MinSubstantialLength = override.Detector.MinSubstantialLength
	}
	if override.Detector.RecentWindow > 0 {
		kw.Detector.RecentWindow = override.Detector.RecentWindow
	}
	if len(override.Extractor.PlanTerms) > 0 {
		kw.Extractor.PlanTerms = override.Extractor.PlanTerms
	}
	if len(override.Extractor.AnaphoraTerms) > 0 {
		kw.Extractor.AnaphoraTerms = override.Extractor.AnaphoraTerms
	}

	return kw, nil
}
