package generator

import (
	"reflect"
	"testing"

	"sbomd/pkg/genconfig"
)

func TestTasksForFanOut(t *testing.T) {
	tests := []struct {
		name        string
		cfg         genconfig.Config
		wantCount   int
		wantTargets []string
	}{
		{
			name: "one task per product",
			cfg: &genconfig.PncBuildConfig{
				BuildID: "ARYT3LBXDVYAC",
				Products: []genconfig.Product{
					{Generator: genconfig.Generator{Type: "maven-cyclonedx"}},
					{Generator: genconfig.Generator{Type: "maven-domino"}},
				},
			},
			wantCount:   2,
			wantTargets: []string{"ARYT3LBXDVYAC", "ARYT3LBXDVYAC"},
		},
		{
			name:        "build without products still generates",
			cfg:         &genconfig.PncBuildConfig{BuildID: "ARYT3LBXDVYAC"},
			wantCount:   1,
			wantTargets: []string{"ARYT3LBXDVYAC"},
		},
		{
			name:        "single image task",
			cfg:         &genconfig.SyftImageConfig{Image: "registry.example.com/ubi9/ubi:latest"},
			wantCount:   1,
			wantTargets: []string{"registry.example.com/ubi9/ubi:latest"},
		},
		{
			name: "one task per deliverable",
			cfg: &genconfig.OperationConfig{
				OperationID:     "A5WL3DFZ3AIAA",
				DeliverableURLs: []string{"https://example.com/a.zip", "https://example.com/b.zip"},
			},
			wantCount:   2,
			wantTargets: []string{"https://example.com/a.zip", "https://example.com/b.zip"},
		},
		{
			name:        "advisory task",
			cfg:         &genconfig.BrewRPMConfig{AdvisoryID: "RHSA-2024:0001"},
			wantCount:   1,
			wantTargets: []string{"RHSA-2024:0001"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := tasksFor("req-1", tt.cfg)
			if len(tasks) != tt.wantCount {
				t.Fatalf("tasks = %d, want %d", len(tasks), tt.wantCount)
			}
			targets := make([]string, 0, len(tasks))
			for i, task := range tasks {
				if task.RequestID != "req-1" {
					t.Fatalf("RequestID = %q", task.RequestID)
				}
				if task.Index != i {
					t.Fatalf("Index = %d, want %d", task.Index, i)
				}
				targets = append(targets, task.Target)
			}
			if !reflect.DeepEqual(targets, tt.wantTargets) {
				t.Fatalf("targets = %v, want %v", targets, tt.wantTargets)
			}
		})
	}
}

func TestExecRunnerCommand(t *testing.T) {
	runner, err := NewExecRunner(`sbom-tool generate --log-level "debug mode"`, "")
	if err != nil {
		t.Fatalf("NewExecRunner() error = %v", err)
	}

	task := Task{
		RequestID:  "req-1",
		Index:      2,
		Target:     "ARYT3LBXDVYAC",
		Config:     &genconfig.PncBuildConfig{BuildID: "ARYT3LBXDVYAC"},
		Processors: "default",
	}

	argv, err := runner.(*execRunner).commandFor(task)
	if err != nil {
		t.Fatalf("commandFor() error = %v", err)
	}

	want := []string{
		"sbom-tool", "generate", "--log-level", "debug mode",
		"--type", "pnc-build",
		"--target", "ARYT3LBXDVYAC",
		"--index", "2",
		"--processors", "default",
	}
	if !reflect.DeepEqual(argv, want) {
		t.Fatalf("argv = %v, want %v", argv, want)
	}
}

func TestNewExecRunnerRejectsBadCommand(t *testing.T) {
	if _, err := NewExecRunner("", ""); err == nil {
		t.Fatal("empty command accepted")
	}
	if _, err := NewExecRunner(`tool "unterminated`, ""); err == nil {
		t.Fatal("unterminated quote accepted")
	}
}
