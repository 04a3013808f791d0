package logx

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func bufferLogger(buf *bytes.Buffer) Logger {
	zl := zerolog.New(buf).Level(zerolog.DebugLevel)
	return Logger{base: zl, hasBase: true}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"ERROR", zerolog.ErrorLevel},
		{" info ", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in, zerolog.InfoLevel); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := bufferLogger(&buf).With(String("comp", "test"))

	log.Info("hello",
		Int("n", 7),
		Bool("flag", true),
		Duration("took", 1500*time.Millisecond),
		Err(errors.New("boom")),
	)

	line := buf.String()
	for _, want := range []string{
		`"comp":"test"`,
		`"n":7`,
		`"flag":true`,
		`"err":"boom"`,
		`"message":"hello"`,
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func TestErrFieldNilIsOmitted(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	bufferLogger(&buf).Info("ok", Err(nil))
	if strings.Contains(buf.String(), `"err"`) {
		t.Errorf("nil error serialized: %q", buf.String())
	}
}

func TestWithDoesNotMutateParent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	parent := bufferLogger(&buf)
	_ = parent.With(String("child", "yes"))

	parent.Info("from parent")
	if strings.Contains(buf.String(), "child") {
		t.Errorf("child field leaked into parent: %q", buf.String())
	}
}

func TestZeroLoggerIsSafe(t *testing.T) {
	t.Parallel()

	var log Logger
	// Must not panic.
	log.Info("into the void", String("k", "v"))
	log.With(Int("n", 1)).Error("still nothing")
	if !log.IsZero() {
		t.Error("zero logger should report IsZero")
	}
}

func TestServiceFileSinkErrorsOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "error.log")
	svc, log := New(Config{
		Level:   "debug",
		Console: false,
		File:    FileConfig{Enabled: true, Path: path},
	}, nil)

	log.Info("routine business")
	log.Error("something broke")
	if err := svc.Close(); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(b)
	if !strings.Contains(out, "something broke") {
		t.Errorf("error log %q missing error line", out)
	}
	if strings.Contains(out, "routine business") {
		t.Errorf("info line leaked into the error log: %q", out)
	}
}

type chanSender struct {
	msgs chan string
}

func (s *chanSender) Send(ctx context.Context, msg string) error {
	select {
	case s.msgs <- msg:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func TestServiceAlertSink(t *testing.T) {
	sender := &chanSender{msgs: make(chan string, 4)}
	svc, log := New(Config{
		Level:   "debug",
		Console: false,
		Alert: AlertConfig{
			Enabled:    true,
			MinLevel:   "error",
			RatePerSec: 10,
		},
	}, sender)
	defer svc.Close()

	log.Warn("below the alert threshold")
	log.Error("display driver gone")

	select {
	case msg := <-sender.msgs:
		if !strings.Contains(msg, "display driver gone") {
			t.Errorf("alert %q carries the wrong event", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no alert delivered")
	}

	select {
	case msg := <-sender.msgs:
		t.Errorf("unexpected second alert: %q", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestServiceApplySwapsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "error.log")
	cfg := Config{Level: "error", Console: false, File: FileConfig{Enabled: true, Path: path}}
	svc, log := New(cfg, nil)
	defer svc.Close()

	log.Error("first")

	// Loggers handed out before Apply keep working against the new sinks.
	svc.Apply(cfg)
	log.Error("second")

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(b), `"message"`); got != 2 {
		t.Errorf("got %d lines across Apply, want 2 (logger stayed live)", got)
	}
}
