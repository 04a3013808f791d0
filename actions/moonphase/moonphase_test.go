package moonphase

import (
	"context"
	"fmt"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"einkframe/internal/imaging"
	"einkframe/pkg/logx"
)

func TestRender(t *testing.T) {
	t.Parallel()

	var sampledAt string
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		sampledAt = strings.TrimPrefix(r.URL.Path, "/api/")
		fmt.Fprintf(w, `{"image":{"url":"%s/moon.jpg"},"phase":72.5,"age":9.3}`, srv.URL)
	})
	mux.HandleFunc("/moon.jpg", func(w http.ResponseWriter, r *http.Request) {
		if err := png.Encode(w, imaging.NewCanvas(100, 100, imaging.White)); err != nil {
			t.Error(err)
		}
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	outDir := t.TempDir()
	r := New(Config{OutDir: outDir, Location: time.UTC}, logx.Nop())
	r.apiURL = srv.URL + "/api/%s"

	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	out, err := r.render(context.Background(), now)
	if err != nil {
		t.Fatal(err)
	}
	if out != filepath.Join(outDir, "moon_phase.png") {
		t.Errorf("out = %q", out)
	}
	// Sampled at 21:00 of the evaluation day, expressed in UTC.
	if sampledAt != "2024-03-15T21:00" {
		t.Errorf("sampled at %q, want evening of the 15th", sampledAt)
	}

	img, err := imaging.DecodeFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != imaging.DisplayWidth || img.Bounds().Dy() != imaging.DisplayHeight {
		t.Errorf("output bounds = %v, want panel size", img.Bounds())
	}
}

func TestRenderSampleHourCrossesUTC(t *testing.T) {
	t.Parallel()

	var sampledAt string
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		sampledAt = strings.TrimPrefix(r.URL.Path, "/api/")
		fmt.Fprintf(w, `{"image":{"url":"%s/moon.jpg"},"phase":50,"age":7}`, srv.URL)
	})
	mux.HandleFunc("/moon.jpg", func(w http.ResponseWriter, r *http.Request) {
		_ = png.Encode(w, imaging.NewCanvas(10, 10, imaging.White))
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	// 21:00 in Montreal (UTC-5 in winter) is 02:00 UTC the next day.
	loc, err := time.LoadLocation("America/Montreal")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	r := New(Config{OutDir: t.TempDir(), Location: loc}, logx.Nop())
	r.apiURL = srv.URL + "/api/%s"

	now := time.Date(2024, 1, 10, 12, 0, 0, 0, loc)
	if _, err := r.render(context.Background(), now); err != nil {
		t.Fatal(err)
	}
	if sampledAt != "2024-01-11T02:00" {
		t.Errorf("sampled at %q, want UTC conversion of local 21:00", sampledAt)
	}
}

func TestRenderUpstreamError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	r := New(Config{OutDir: t.TempDir(), Location: time.UTC}, logx.Nop())
	r.apiURL = srv.URL + "/api/%s"
	if _, err := r.render(context.Background(), time.Now()); err == nil {
		t.Error("want error from failing upstream")
	}
}
