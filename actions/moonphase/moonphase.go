// Package moonphase renders tonight's moon using NASA's Dial-A-Moon imagery.
package moonphase

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"path/filepath"
	"time"

	"einkframe/internal/action"
	"einkframe/internal/imaging"
	"einkframe/pkg/logx"
)

const defaultAPIURL = "https://svs.gsfc.nasa.gov/api/dialamoon/%s"

// The API is sampled at 21:00 local, i.e. what the moon looks like when
// people actually glance at the frame in the evening.
const sampleHour = 21

type dialAMoon struct {
	Image struct {
		URL string `json:"url"`
	} `json:"image"`
	Phase float64 `json:"phase"` // percent illuminated
	Age   float64 `json:"age"`   // days since new moon
}

type Config struct {
	OutDir   string
	Location *time.Location
}

type Renderer struct {
	client *http.Client
	apiURL string
	cfg    Config
	log    logx.Logger
}

func New(cfg Config, log logx.Logger) *Renderer {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Renderer{
		client: &http.Client{Timeout: 30 * time.Second},
		apiURL: defaultAPIURL,
		cfg:    cfg,
		log:    log,
	}
}

func (r *Renderer) Action() action.Action {
	return action.Func("generate_moon_phase_image", func(ctx context.Context) (action.Result, error) {
		path, err := r.render(ctx, time.Now().In(r.cfg.Location))
		if err != nil {
			return action.Result{}, err
		}
		return action.Image(path), nil
	})
}

func (r *Renderer) render(ctx context.Context, now time.Time) (string, error) {
	at := time.Date(now.Year(), now.Month(), now.Day(), sampleHour, 0, 0, 0, now.Location()).UTC()
	url := fmt.Sprintf(r.apiURL, at.Format("2006-01-02T15:04"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("moonphase: fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("moonphase: fetch: status %s", resp.Status)
	}
	var data dialAMoon
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("moonphase: decode: %w", err)
	}

	imgReq, err := http.NewRequestWithContext(ctx, http.MethodGet, data.Image.URL, nil)
	if err != nil {
		return "", err
	}
	imgResp, err := r.client.Do(imgReq)
	if err != nil {
		return "", fmt.Errorf("moonphase: fetch image: %w", err)
	}
	defer imgResp.Body.Close()
	if imgResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("moonphase: fetch image: status %s", imgResp.Status)
	}
	moon, err := imaging.Decode(imgResp.Body)
	if err != nil {
		return "", fmt.Errorf("moonphase: decode image: %w", err)
	}

	canvas := imaging.NewCanvas(imaging.DisplayWidth, imaging.DisplayHeight, imaging.Black)

	const captionH = 160
	imaging.DrawFitted(canvas, image.Rect(0, 0, imaging.DisplayWidth, imaging.DisplayHeight-captionH), moon)

	caption := []string{
		now.Format("Monday, January 2"),
		fmt.Sprintf("%.0f%% illuminated, day %.0f of the lunar cycle", data.Phase, data.Age),
	}
	const scale = 3
	y := imaging.DisplayHeight - captionH + 20
	for i, line := range caption {
		x := (imaging.DisplayWidth - imaging.TextWidth(line, scale)) / 2
		if x < 0 {
			x = 0
		}
		imaging.DrawText(canvas, []string{line}, x, y+i*imaging.LineHeight(scale), scale, imaging.White)
	}

	out := filepath.Join(r.cfg.OutDir, "moon_phase.png")
	if err := imaging.SavePNG(out, canvas); err != nil {
		return "", fmt.Errorf("moonphase: save: %w", err)
	}
	r.log.Debug("rendered moon phase", logx.String("sampled_at", at.Format(time.RFC3339)))
	return out, nil
}
