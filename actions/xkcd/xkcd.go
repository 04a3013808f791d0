// Package xkcd renders xkcd comics for the frame, composing the strip and
// its alt-text caption onto the panel canvas.
package xkcd

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"math/rand"
	"net/http"
	"path/filepath"
	"time"

	"einkframe/internal/action"
	"einkframe/internal/imaging"
	"einkframe/pkg/logx"
)

const defaultBaseURL = "https://xkcd.com"

type comicInfo struct {
	Num   int    `json:"num"`
	Title string `json:"title"`
	Alt   string `json:"alt"`
	Img   string `json:"img"`
}

type Renderer struct {
	client  *http.Client
	baseURL string
	outDir  string
	rng     *rand.Rand
	log     logx.Logger
}

func New(outDir string, log logx.Logger) *Renderer {
	return &Renderer{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: defaultBaseURL,
		outDir:  outDir,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		log:     log,
	}
}

// Today returns the action rendering the current front-page comic.
func (r *Renderer) Today() action.Action {
	return action.Func("xkcd_todays_image", func(ctx context.Context) (action.Result, error) {
		info, err := r.fetchInfo(ctx, 0)
		if err != nil {
			return action.Result{}, err
		}
		path, err := r.render(ctx, info, "todays_xkcd.png")
		if err != nil {
			return action.Result{}, err
		}
		return action.Image(path), nil
	})
}

// Random returns the action rendering a uniformly random comic.
func (r *Renderer) Random() action.Action {
	return action.Func("xkcd_random_image", func(ctx context.Context) (action.Result, error) {
		latest, err := r.fetchInfo(ctx, 0)
		if err != nil {
			return action.Result{}, err
		}
		if latest.Num < 1 {
			return action.Result{}, fmt.Errorf("xkcd: latest comic number %d", latest.Num)
		}
		num := 1 + r.rng.Intn(latest.Num)
		info, err := r.fetchInfo(ctx, num)
		if err != nil {
			return action.Result{}, err
		}
		path, err := r.render(ctx, info, "random_xkcd.png")
		if err != nil {
			return action.Result{}, err
		}
		return action.Image(path), nil
	})
}

func (r *Renderer) fetchInfo(ctx context.Context, num int) (comicInfo, error) {
	url := r.baseURL + "/info.0.json"
	if num > 0 {
		url = fmt.Sprintf("%s/%d/info.0.json", r.baseURL, num)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return comicInfo{}, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return comicInfo{}, fmt.Errorf("xkcd: fetch info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return comicInfo{}, fmt.Errorf("xkcd: fetch info: status %s", resp.Status)
	}
	var info comicInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return comicInfo{}, fmt.Errorf("xkcd: decode info: %w", err)
	}
	return info, nil
}

func (r *Renderer) render(ctx context.Context, info comicInfo, outName string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.Img, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("xkcd: fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("xkcd: fetch image: status %s", resp.Status)
	}
	comic, err := imaging.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("xkcd: decode image: %w", err)
	}

	canvas := imaging.NewCanvas(imaging.DisplayWidth, imaging.DisplayHeight, imaging.White)

	// Alt text goes at the bottom; shorter texts get a larger face.
	const margin = 20
	scale := 2
	if len(info.Alt) < 120 {
		scale = 3
	}
	caption := imaging.WrapText(info.Alt, imaging.DisplayWidth-2*margin, scale)
	captionH := len(caption)*imaging.LineHeight(scale) + 2*margin

	comicArea := image.Rect(margin, margin, imaging.DisplayWidth-margin, imaging.DisplayHeight-captionH)
	imaging.DrawFitted(canvas, comicArea, comic)
	imaging.DrawText(canvas, caption, margin, imaging.DisplayHeight-captionH+margin, scale, imaging.Black)

	out := filepath.Join(r.outDir, outName)
	if err := imaging.SavePNG(out, canvas); err != nil {
		return "", fmt.Errorf("xkcd: save: %w", err)
	}
	r.log.Debug("rendered comic", logx.Int("num", info.Num), logx.String("title", info.Title))
	return out, nil
}
