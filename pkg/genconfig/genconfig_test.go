package genconfig

import (
	"errors"
	"reflect"
	"testing"
)

func sampleConfigs() map[string]Config {
	return map[string]Config{
		"pnc-build": &PncBuildConfig{
			APIVersion: DefaultAPIVersion,
			BuildID:    "ARYT3LBXDVYAC",
			Products: []Product{
				{
					Generator: Generator{Type: "maven-cyclonedx", Version: "2.7.9"},
					Processors: []Processor{
						{Type: "default"},
						{Type: "redhat-product", Args: []string{"--productName=RHBQ"}},
					},
				},
			},
		},
		"syft-image": &SyftImageConfig{
			APIVersion:  DefaultAPIVersion,
			Image:       "registry.example.com/ubi9/ubi:latest",
			Paths:       []string{"/opt", "/usr/lib"},
			IncludeRPMs: true,
		},
		"operation": &OperationConfig{
			APIVersion:      DefaultAPIVersion,
			OperationID:     "A5WL3DFZ3AIAA",
			DeliverableURLs: []string{"https://example.com/deliverable.zip"},
		},
		"analysis": &DeliverableAnalysisConfig{
			APIVersion:      DefaultAPIVersion,
			MilestoneID:     "13",
			DeliverableURLs: []string{"https://example.com/deliverable.zip"},
		},
		"brew-rpm": &BrewRPMConfig{
			APIVersion: DefaultAPIVersion,
			AdvisoryID: "RHSA-2024:0001",
		},
	}
}

func TestRoundTripJSON(t *testing.T) {
	for name, cfg := range sampleConfigs() {
		t.Run(name, func(t *testing.T) {
			data, err := ToJSON(cfg)
			if err != nil {
				t.Fatalf("ToJSON() error = %v", err)
			}
			parsed, err := Parse(data)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if !reflect.DeepEqual(parsed, cfg) {
				t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", parsed, cfg)
			}
		})
	}
}

func TestRoundTripYAML(t *testing.T) {
	for name, cfg := range sampleConfigs() {
		t.Run(name, func(t *testing.T) {
			data, err := ToYAML(cfg)
			if err != nil {
				t.Fatalf("ToYAML() error = %v", err)
			}
			parsed, err := Parse(data)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if !reflect.DeepEqual(parsed, cfg) {
				t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", parsed, cfg)
			}
		})
	}
}

func TestParseEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t"} {
		cfg, err := Parse([]byte(input))
		if err != nil {
			t.Fatalf("Parse(%q) error = %v, want nil", input, err)
		}
		if cfg != nil {
			t.Fatalf("Parse(%q) = %#v, want nil", input, cfg)
		}
	}
}

func TestParseDiscriminatorErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing type", `{"apiVersion": "sbomer.jboss.org/v1alpha1"}`},
		{"unknown type", `{"type": "gradle-build"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			var formatErr *FormatError
			if !errors.As(err, &formatErr) {
				t.Fatalf("Parse() error = %v, want *FormatError", err)
			}
		})
	}
}

func TestParseStructuralError(t *testing.T) {
	_, err := Parse([]byte(`{"type": "pnc-build", "products": 42}`))
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Parse() error = %v, want *ParseError", err)
	}
}

func TestParseAppliesAPIVersionDefault(t *testing.T) {
	cfg, err := Parse([]byte(`{"type": "brew-rpm", "advisoryId": "RHSA-2024:0001"}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	rpm, ok := cfg.(*BrewRPMConfig)
	if !ok {
		t.Fatalf("Parse() = %T, want *BrewRPMConfig", cfg)
	}
	if rpm.APIVersion != DefaultAPIVersion {
		t.Fatalf("APIVersion = %q, want %q", rpm.APIVersion, DefaultAPIVersion)
	}
}

func TestProcessorsCommand(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "empty command falls back to default",
			cfg:  &PncBuildConfig{BuildID: "ARYT3LBXDVYAC"},
			want: "default",
		},
		{
			name: "tokens joined by single spaces",
			cfg: &OperationConfig{
				Processors: []Processor{{Type: "default"}, {Type: "redhat-product"}},
			},
			want: "default redhat-product",
		},
		{
			name: "token containing a space is quoted",
			cfg: &OperationConfig{
				Processors: []Processor{{Type: "foo"}, {Type: "bar baz"}},
			},
			want: `foo "bar baz"`,
		},
		{
			name: "embedded double quotes are not escaped",
			cfg: &OperationConfig{
				Processors: []Processor{{Type: `say "hi"`}},
			},
			want: `"say "hi""`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProcessorsCommand(tt.cfg); got != tt.want {
				t.Fatalf("ProcessorsCommand() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"empty build", &PncBuildConfig{APIVersion: DefaultAPIVersion}, true},
		{"build with id", &PncBuildConfig{BuildID: "ARYT3LBXDVYAC"}, false},
		{"empty image", &SyftImageConfig{}, true},
		{"image with ref", &SyftImageConfig{Image: "ubi9/ubi"}, false},
		{"empty analysis", &DeliverableAnalysisConfig{MilestoneID: "13"}, true},
		{"analysis with urls", &DeliverableAnalysisConfig{DeliverableURLs: []string{"https://example.com/d.zip"}}, false},
		{"empty rpm", &BrewRPMConfig{}, true},
		{"rpm with advisory", &BrewRPMConfig{AdvisoryID: "RHSA-2024:0001"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.IsEmpty(); got != tt.want {
				t.Fatalf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	for _, typ := range []Type{TypePncBuild, TypeSyftImage, TypeOperation, TypeAnalysis, TypeBrewRPM} {
		cfg := New(typ)
		if cfg == nil {
			t.Fatalf("New(%q) = nil", typ)
		}
		if cfg.ConfigType() != typ {
			t.Fatalf("New(%q).ConfigType() = %q", typ, cfg.ConfigType())
		}
	}

	if cfg := New("unknown"); cfg != nil {
		t.Fatalf("New(unknown) = %#v, want nil", cfg)
	}
}

func TestValidate(t *testing.T) {
	valid := &SyftImageConfig{Image: "ubi9/ubi", Paths: []string{"/opt"}}
	if err := Validate(valid); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	invalid := &SyftImageConfig{Image: "ubi9/ubi", Paths: []string{"opt"}}
	var validationErr *ValidationError
	if err := Validate(invalid); !errors.As(err, &validationErr) {
		t.Fatalf("Validate() error = %v, want *ValidationError", err)
	}
}
