package display

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"einkframe/pkg/logx"
)

func TestNewEPDValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewEPD(Config{}, logx.Nop()); err == nil {
		t.Error("want error for missing staging path")
	}
	if _, err := NewEPD(Config{StagingPath: "/tmp/x.png"}, logx.Nop()); err == nil {
		t.Error("want error for missing commands outside test mode")
	}
	if _, err := NewEPD(Config{StagingPath: "/tmp/x.png", TestMode: true}, logx.Nop()); err != nil {
		t.Errorf("test mode should not require commands: %v", err)
	}
}

func TestUpdateStagesImage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	if err := os.WriteFile(src, []byte("fake png bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	staging := filepath.Join(dir, "out", "current_image.png")
	d, err := NewEPD(Config{StagingPath: staging, TestMode: true}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Update(context.Background(), src); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(staging)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "fake png bytes" {
		t.Errorf("staged content = %q", got)
	}
	if _, err := os.Stat(staging + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after staging")
	}
}

func TestUpdateMissingSource(t *testing.T) {
	t.Parallel()

	d, err := NewEPD(Config{StagingPath: filepath.Join(t.TempDir(), "cur.png"), TestMode: true}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Update(context.Background(), filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("want error for missing source image")
	}
}

func TestUpdateRunsVendorTool(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	marker := filepath.Join(dir, "ran")
	staging := filepath.Join(dir, "cur.png")

	d, err := NewEPD(Config{
		// The staged path arrives as the last argument; $1 here.
		UpdateCommand: []string{"sh", "-c", `echo "$1" > ` + marker, "epd"},
		ClearCommand:  []string{"true"},
		StagingPath:   staging,
	}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Update(context.Background(), src); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(marker)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(got)) != staging {
		t.Errorf("vendor tool got arg %q, want staging path %q", strings.TrimSpace(string(got)), staging)
	}
}

func TestCommandFailureIncludesOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := NewEPD(Config{
		UpdateCommand: []string{"sh", "-c", "echo panel wedged >&2; exit 3"},
		ClearCommand:  []string{"true"},
		StagingPath:   filepath.Join(dir, "cur.png"),
	}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	err = d.Update(context.Background(), src)
	if err == nil {
		t.Fatal("want error from failing vendor tool")
	}
	if !strings.Contains(err.Error(), "panel wedged") {
		t.Errorf("error %q missing tool output", err)
	}
}

func TestClear(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	marker := filepath.Join(dir, "cleared")
	d, err := NewEPD(Config{
		UpdateCommand: []string{"true"},
		ClearCommand:  []string{"touch", marker},
		StagingPath:   filepath.Join(dir, "cur.png"),
	}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Clear(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("clear command did not run: %v", err)
	}
}
