package display

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"einkframe/pkg/logx"
)

// Config controls the EPD driver.
type Config struct {
	// UpdateCommand is run with the staged image path appended as the last
	// argument, e.g. ["python3", "/opt/epd/show.py"].
	UpdateCommand []string
	// ClearCommand blanks the panel.
	ClearCommand []string
	// StagingPath is where the chosen image is copied before the vendor tool
	// runs; the copy is atomic (tmp + rename) so the tool never reads a
	// half-written file.
	StagingPath string
	// CommandTimeout bounds a single vendor tool invocation. Zero disables.
	CommandTimeout time.Duration
	// TestMode stages the image but skips the vendor tool entirely.
	TestMode bool
}

// EPD drives the panel by staging the image and shelling out to the vendor
// refresh tool. Refreshing a 13.3" panel takes tens of seconds; calls are
// synchronous by design.
type EPD struct {
	cfg Config
	log logx.Logger
}

func NewEPD(cfg Config, log logx.Logger) (*EPD, error) {
	if strings.TrimSpace(cfg.StagingPath) == "" {
		return nil, fmt.Errorf("display: staging path is required")
	}
	if !cfg.TestMode {
		if len(cfg.UpdateCommand) == 0 || len(cfg.ClearCommand) == 0 {
			return nil, fmt.Errorf("display: update and clear commands are required unless test mode is on")
		}
	}
	return &EPD{cfg: cfg, log: log}, nil
}

func (d *EPD) Update(ctx context.Context, imagePath string) error {
	d.log.Info("updating display", logx.String("image", imagePath))

	if err := d.stage(imagePath); err != nil {
		return fmt.Errorf("display: stage image: %w", err)
	}
	if d.cfg.TestMode {
		d.log.Debug("test mode, skipping panel refresh")
		return nil
	}
	args := append(append([]string(nil), d.cfg.UpdateCommand...), d.cfg.StagingPath)
	if err := d.run(ctx, args); err != nil {
		return fmt.Errorf("display: update: %w", err)
	}
	return nil
}

func (d *EPD) Clear(ctx context.Context) error {
	d.log.Info("clearing display")

	if d.cfg.TestMode {
		d.log.Debug("test mode, skipping panel clear")
		return nil
	}
	if err := d.run(ctx, d.cfg.ClearCommand); err != nil {
		return fmt.Errorf("display: clear: %w", err)
	}
	return nil
}

// stage copies src over the staging path via a temp file and rename, which is
// atomic on Linux.
func (d *EPD) stage(src string) error {
	if err := os.MkdirAll(filepath.Dir(d.cfg.StagingPath), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := d.cfg.StagingPath + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, d.cfg.StagingPath)
}

func (d *EPD) run(ctx context.Context, args []string) error {
	if d.cfg.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.CommandTimeout)
		defer cancel()
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w (output: %s)", args[0], err, strings.TrimSpace(string(out)))
	}
	d.log.Debug("panel command done",
		logx.String("cmd", args[0]),
		logx.Duration("took", time.Since(start)))
	return nil
}
