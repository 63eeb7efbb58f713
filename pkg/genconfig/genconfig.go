// Package genconfig models the generation configuration accepted by the
// service. A configuration is a closed union of five variants discriminated
// by a top-level "type" property in its JSON or YAML form.
package genconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultAPIVersion is stamped on configurations that do not carry one.
const DefaultAPIVersion = "sbomer.jboss.org/v1alpha1"

// Type identifies a configuration variant. The set is closed.
type Type string

const (
	TypePncBuild  Type = "pnc-build"
	TypeSyftImage Type = "syft-image"
	TypeOperation Type = "operation"
	TypeAnalysis  Type = "analysis"
	TypeBrewRPM   Type = "brew-rpm"
)

// Config is implemented by all configuration variants. The unexported method
// keeps the union closed to this package.
type Config interface {
	// ConfigType returns the discriminator tag of the variant.
	ConfigType() Type
	// IsEmpty reports whether the configuration has no actionable content.
	// Empty configurations short-circuit generation.
	IsEmpty() bool
	// ProcessCommand lists the processor tokens to run for this
	// configuration. An empty list means only the default processor runs.
	ProcessCommand() []string

	isConfig()
}

// Generator selects and parameterizes the external generator tool.
type Generator struct {
	Type    string `json:"type,omitempty" yaml:"type,omitempty"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	Args    string `json:"args,omitempty" yaml:"args,omitempty"`
}

// Processor is a single post-processing step applied to a generated manifest.
type Processor struct {
	Type string   `json:"type" yaml:"type"`
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`
}

func (p Processor) command() []string {
	return append([]string{p.Type}, p.Args...)
}

// Product groups a generator selection with the processors applied to its
// output. A build may manifest more than one product.
type Product struct {
	Generator  Generator   `json:"generator,omitempty" yaml:"generator,omitempty"`
	Processors []Processor `json:"processors,omitempty" yaml:"processors,omitempty"`
}

// PncBuildConfig describes generation for a PNC build.
type PncBuildConfig struct {
	APIVersion string    `json:"apiVersion" yaml:"apiVersion"`
	BuildID    string    `json:"buildId,omitempty" yaml:"buildId,omitempty"`
	Products   []Product `json:"products,omitempty" yaml:"products,omitempty"`
}

func (c *PncBuildConfig) ConfigType() Type { return TypePncBuild }

func (c *PncBuildConfig) IsEmpty() bool {
	return c.BuildID == "" && len(c.Products) == 0
}

func (c *PncBuildConfig) ProcessCommand() []string {
	var tokens []string
	for _, product := range c.Products {
		for _, proc := range product.Processors {
			tokens = append(tokens, proc.command()...)
		}
	}
	return tokens
}

func (c *PncBuildConfig) isConfig() {}

// SyftImageConfig describes generation for a container image scanned with
// syft.
type SyftImageConfig struct {
	APIVersion  string      `json:"apiVersion" yaml:"apiVersion"`
	Image       string      `json:"image,omitempty" yaml:"image,omitempty"`
	Paths       []string    `json:"paths,omitempty" yaml:"paths,omitempty"`
	IncludeRPMs bool        `json:"rpms,omitempty" yaml:"rpms,omitempty"`
	Processors  []Processor `json:"processors,omitempty" yaml:"processors,omitempty"`
}

func (c *SyftImageConfig) ConfigType() Type { return TypeSyftImage }

func (c *SyftImageConfig) IsEmpty() bool {
	return c.Image == "" && len(c.Paths) == 0 && len(c.Processors) == 0
}

func (c *SyftImageConfig) ProcessCommand() []string {
	var tokens []string
	for _, proc := range c.Processors {
		tokens = append(tokens, proc.command()...)
	}
	return tokens
}

func (c *SyftImageConfig) isConfig() {}

// OperationConfig describes generation for a finished deliverable-analysis
// operation.
type OperationConfig struct {
	APIVersion      string      `json:"apiVersion" yaml:"apiVersion"`
	OperationID     string      `json:"operationId,omitempty" yaml:"operationId,omitempty"`
	DeliverableURLs []string    `json:"deliverableUrls,omitempty" yaml:"deliverableUrls,omitempty"`
	Processors      []Processor `json:"processors,omitempty" yaml:"processors,omitempty"`
}

func (c *OperationConfig) ConfigType() Type { return TypeOperation }

func (c *OperationConfig) IsEmpty() bool {
	return c.OperationID == "" && len(c.DeliverableURLs) == 0 && len(c.Processors) == 0
}

func (c *OperationConfig) ProcessCommand() []string {
	var tokens []string
	for _, proc := range c.Processors {
		tokens = append(tokens, proc.command()...)
	}
	return tokens
}

func (c *OperationConfig) isConfig() {}

// DeliverableAnalysisConfig requests a new deliverable analysis for a
// milestone; the resulting operation feeds back as an OperationConfig.
type DeliverableAnalysisConfig struct {
	APIVersion      string   `json:"apiVersion" yaml:"apiVersion"`
	MilestoneID     string   `json:"milestoneId,omitempty" yaml:"milestoneId,omitempty"`
	DeliverableURLs []string `json:"deliverableUrls,omitempty" yaml:"deliverableUrls,omitempty"`
}

func (c *DeliverableAnalysisConfig) ConfigType() Type { return TypeAnalysis }

func (c *DeliverableAnalysisConfig) IsEmpty() bool {
	return len(c.DeliverableURLs) == 0
}

func (c *DeliverableAnalysisConfig) ProcessCommand() []string { return nil }

func (c *DeliverableAnalysisConfig) isConfig() {}

// BrewRPMConfig describes generation for the RPMs attached to a Brew
// advisory.
type BrewRPMConfig struct {
	APIVersion string `json:"apiVersion" yaml:"apiVersion"`
	AdvisoryID string `json:"advisoryId,omitempty" yaml:"advisoryId,omitempty"`
}

func (c *BrewRPMConfig) ConfigType() Type { return TypeBrewRPM }

func (c *BrewRPMConfig) IsEmpty() bool { return c.AdvisoryID == "" }

func (c *BrewRPMConfig) ProcessCommand() []string { return nil }

func (c *BrewRPMConfig) isConfig() {}

// ProcessorsCommand renders the processor invocation for a configuration as
// a single command-line fragment. Tokens containing a space are wrapped in
// double quotes; embedded double quotes are not escaped. When the
// configuration lists no processors the literal "default" is returned so the
// default processor always runs.
func ProcessorsCommand(c Config) string {
	tokens := c.ProcessCommand()
	if len(tokens) == 0 {
		return "default"
	}

	quoted := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if strings.Contains(token, " ") {
			token = "\"" + token + "\""
		}
		quoted = append(quoted, token)
	}
	return strings.Join(quoted, " ")
}

// New returns a default-constructed configuration for the given type. An
// unrecognized type logs a warning and returns nil; callers treat a nil
// result as "fall back to defaults".
func New(t Type) Config {
	var c Config
	switch t {
	case TypePncBuild:
		c = &PncBuildConfig{}
	case TypeSyftImage:
		c = &SyftImageConfig{}
	case TypeOperation:
		c = &OperationConfig{}
	case TypeAnalysis:
		c = &DeliverableAnalysisConfig{}
	case TypeBrewRPM:
		c = &BrewRPMConfig{}
	default:
		log.Printf("WARN: unable to create a default config for type %q", t)
		return nil
	}
	applyDefaults(c)
	return c
}

func applyDefaults(c Config) {
	switch v := c.(type) {
	case *PncBuildConfig:
		if v.APIVersion == "" {
			v.APIVersion = DefaultAPIVersion
		}
	case *SyftImageConfig:
		if v.APIVersion == "" {
			v.APIVersion = DefaultAPIVersion
		}
	case *OperationConfig:
		if v.APIVersion == "" {
			v.APIVersion = DefaultAPIVersion
		}
	case *DeliverableAnalysisConfig:
		if v.APIVersion == "" {
			v.APIVersion = DefaultAPIVersion
		}
	case *BrewRPMConfig:
		if v.APIVersion == "" {
			v.APIVersion = DefaultAPIVersion
		}
	}
}

// ToJSON serializes a configuration to pretty-printed JSON including the
// discriminator tag.
func ToJSON(c Config) ([]byte, error) {
	m, err := toMap(c)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(m, "", "  ")
}

// ToYAML serializes a configuration to YAML including the discriminator tag.
func ToYAML(c Config) ([]byte, error) {
	m, err := toMap(c)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(m)
}

func toMap(c Config) (map[string]any, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &ParseError{Err: err}
	}
	m["type"] = string(c.ConfigType())
	return m, nil
}

// Parse deserializes a configuration from JSON or YAML text, dispatching on
// the "type" discriminator. Empty or blank input yields (nil, nil). A
// missing or unrecognized discriminator yields a *FormatError, any other
// structural failure a *ParseError.
func Parse(data []byte) (Config, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var probe struct {
		Type string `yaml:"type"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, &ParseError{Err: err}
	}
	if probe.Type == "" {
		return nil, &FormatError{}
	}

	c := New(Type(probe.Type))
	if c == nil {
		return nil, &FormatError{Tag: probe.Type}
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, &ParseError{Err: err}
	}
	applyDefaults(c)
	return c, nil
}

// FormatError reports a missing or unrecognized discriminator tag.
type FormatError struct {
	Tag string
}

func (e *FormatError) Error() string {
	if e.Tag == "" {
		return "config is missing the 'type' discriminator"
	}
	return fmt.Sprintf("config has unrecognized 'type' discriminator %q", e.Tag)
}

// ParseError reports a structurally invalid configuration payload.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot deserialize config: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports semantically invalid configuration field values.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + e.Reason
}

// Validate checks configuration field values beyond structural parsing.
func Validate(c Config) error {
	if c == nil {
		return &ValidationError{Reason: "config is required"}
	}
	for _, token := range c.ProcessCommand() {
		if strings.TrimSpace(token) == "" {
			return &ValidationError{Reason: "processor command contains a blank token"}
		}
	}
	switch v := c.(type) {
	case *PncBuildConfig:
		for _, product := range v.Products {
			for _, proc := range product.Processors {
				if proc.Type == "" {
					return &ValidationError{Reason: "product processor is missing a type"}
				}
			}
		}
	case *SyftImageConfig:
		for _, path := range v.Paths {
			if !strings.HasPrefix(path, "/") {
				return &ValidationError{Reason: fmt.Sprintf("image path %q is not absolute", path)}
			}
		}
	case *OperationConfig:
		for _, proc := range v.Processors {
			if proc.Type == "" {
				return &ValidationError{Reason: "processor is missing a type"}
			}
		}
	}
	return nil
}
