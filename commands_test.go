package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/cncslice/pkg/mesh/meshtest"
	"github.com/chazu/cncslice/pkg/meshio"
)

// run executes the CLI with args and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(testApp())
	cmd.SetArgs(append([]string{"--quiet"}, args...))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func cubeFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cube.stl")
	if err := meshio.Save(path, meshtest.Cube(10)); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSliceCommand(t *testing.T) {
	cube := cubeFile(t)
	out := filepath.Join(filepath.Dir(cube), "out.nc")
	_, stderr, err := run(t, "slice", cube, "-o", out, "--layer-height", "2", "--tool-diameter", "0")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stderr, "5 of 5 layers") {
		t.Errorf("stderr = %q", stderr)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	program := string(data)
	if n := strings.Count(program, "(Layer "); n != 5 {
		t.Errorf("got %d layers", n)
	}
	if !strings.HasPrefix(program, "; cncslice G-code\n") || !strings.HasSuffix(program, "M2 ; end of program\n") {
		t.Errorf("program framing:\n%s", program)
	}

	stdout, _, err := run(t, "info", out)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"layers:    5", "extent:    0 0 .. 10 10, z 1 .. 10"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("info missing %q:\n%s", want, stdout)
		}
	}
}

func TestSliceOriginTop(t *testing.T) {
	cube := cubeFile(t)
	out := filepath.Join(filepath.Dir(cube), "top.nc")
	if _, _, err := run(t, "slice", cube, "-o", out, "--layer-height", "2", "--tool-diameter", "0", "--origin", "top"); err != nil {
		t.Fatal(err)
	}
	stdout, _, err := run(t, "info", out)
	if err != nil {
		t.Fatal(err)
	}
	if want := "extent:    0 0 .. 10 10, z -9 .. 10"; !strings.Contains(stdout, want) {
		t.Errorf("info missing %q:\n%s", want, stdout)
	}
}

func TestSliceRejectsLowSafeZ(t *testing.T) {
	cube := cubeFile(t)
	out := filepath.Join(filepath.Dir(cube), "low.nc")
	_, _, err := run(t, "slice", cube, "-o", out, "--safe-z", "5")
	if err == nil || !strings.Contains(err.Error(), "safe_z") {
		t.Fatalf("err = %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output written for a rejected job: %v", err)
	}
}

func TestSliceToStdout(t *testing.T) {
	cube := cubeFile(t)
	a, _, err := run(t, "slice", cube, "-o", "-", "--set", "layer_height=5")
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := run(t, "slice", cube, "-o", "-", "--set", "layer_height=5")
	if err != nil {
		t.Fatal(err)
	}
	if a != b || strings.Count(a, "(Layer ") != 2 {
		t.Errorf("unexpected or unstable output:\n%s", a)
	}
}

func TestSliceDefaultOutputAndSaveMesh(t *testing.T) {
	cube := cubeFile(t)
	dir := filepath.Dir(cube)
	saved := filepath.Join(dir, "copy.3mf")
	if _, _, err := run(t, "slice", cube, "--save-mesh", saved); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "cube.gcode")); err != nil {
		t.Errorf("default output: %v", err)
	}
	m, err := meshio.Load(saved)
	if err != nil || m.Len() != 12 {
		t.Errorf("saved mesh: %v", err)
	}
}

func TestInfoCommand(t *testing.T) {
	stdout, _, err := run(t, "info", cubeFile(t), "--layer-height", "2", "--direction", "bottom-up")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"triangles: 12", "skipped:   0", "size:      10 x 10 x 10", "volume:    1000.000", "layers:    5 at 2 (bottom-up)"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("info missing %q:\n%s", want, stdout)
		}
	}
}

func TestPreviewCommand(t *testing.T) {
	cube := cubeFile(t)
	dir := filepath.Join(t.TempDir(), "layers")
	if _, _, err := run(t, "preview", cube, "-o", dir, "--layer-height", "2.5"); err != nil {
		t.Fatal(err)
	}
	files, err := filepath.Glob(filepath.Join(dir, "cube-*.svg"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 4 {
		t.Errorf("got %d svg files: %v", len(files), files)
	}

	if _, _, err := run(t, "preview", cube, "-o", dir, "-f", "dxf"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "cube.dxf")); err != nil {
		t.Error(err)
	}

	if _, _, err := run(t, "preview", cube, "-o", dir, "-f", "png"); err == nil || !strings.Contains(err.Error(), "png") {
		t.Errorf("png format: %v", err)
	}
}

func TestConfigCommand(t *testing.T) {
	file := filepath.Join(t.TempDir(), "job.yaml")
	if err := os.WriteFile(file, []byte("safe_z: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	stdout, _, err := run(t, "config", "-c", file, "--layer-height", "0.5", "--set", "job_name=bracket")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"layer_height: 0.5", "safe_z: 7", "job_name: bracket"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("config missing %q:\n%s", want, stdout)
		}
	}

	if _, _, err := run(t, "config", "--layer-height", "0"); err == nil {
		t.Error("invalid configuration accepted")
	}
	if _, _, err := run(t, "config", "-c", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing config file accepted")
	}
}

func TestCommandErrors(t *testing.T) {
	tests := [][]string{
		{"slice"},
		{"slice", "a.stl", "b.stl"},
		{"slice", "missing.stl"},
		{"info", "missing.gcode"},
		{"serve", "extra"},
		{"frobnicate"},
	}
	for _, args := range tests {
		if _, _, err := run(t, args...); err == nil {
			t.Errorf("%v succeeded", args)
		}
	}
}
