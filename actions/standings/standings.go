// Package standings renders the current NHL standings as a table, with the
// favourite team highlighted.
package standings

import (
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"einkframe/internal/action"
	"einkframe/internal/imaging"
	"einkframe/pkg/logx"
)

const defaultAPIURL = "https://api-web.nhle.com/v1/standings/now"

type standingsResponse struct {
	Standings []teamRow `json:"standings"`
}

type teamRow struct {
	TeamAbbrev   localized `json:"teamAbbrev"`
	TeamName     localized `json:"teamName"`
	DivisionName string    `json:"divisionName"`
	GamesPlayed  int       `json:"gamesPlayed"`
	Wins         int       `json:"wins"`
	Losses       int       `json:"losses"`
	OtLosses     int       `json:"otLosses"`
	Points       int       `json:"points"`
}

type localized struct {
	Default string `json:"default"`
}

type Config struct {
	OutDir string
	// Highlight is a three-letter team code, e.g. "MTL".
	Highlight string
}

type Renderer struct {
	client *http.Client
	apiURL string
	cfg    Config
	log    logx.Logger
}

func New(cfg Config, log logx.Logger) *Renderer {
	return &Renderer{
		client: &http.Client{Timeout: 30 * time.Second},
		apiURL: defaultAPIURL,
		cfg:    cfg,
		log:    log,
	}
}

func (r *Renderer) Action() action.Action {
	return action.Func("make_nhl_standings_image", func(ctx context.Context) (action.Result, error) {
		path, err := r.render(ctx)
		if err != nil {
			return action.Result{}, err
		}
		return action.Image(path), nil
	})
}

func (r *Renderer) render(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.apiURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("standings: fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("standings: fetch: status %s", resp.Status)
	}
	var data standingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("standings: decode: %w", err)
	}
	if len(data.Standings) == 0 {
		return "", fmt.Errorf("standings: empty response")
	}

	canvas := imaging.NewCanvas(imaging.DisplayWidth, imaging.DisplayHeight, imaging.White)

	const (
		margin     = 40
		titleScale = 4
		rowScale   = 2
	)
	red := color.RGBA{R: 200, A: 255}

	y := margin
	title := "NHL Standings"
	imaging.DrawText(canvas, []string{title},
		(imaging.DisplayWidth-imaging.TextWidth(title, titleScale))/2, y, titleScale, imaging.Black)
	y += imaging.LineHeight(titleScale) + 20

	// The API returns rows sorted by points within each division; keep that
	// order and group rows under division headers as they first appear.
	seen := map[string]bool{}
	for _, div := range divisionOrder(data.Standings) {
		if seen[div] {
			continue
		}
		seen[div] = true

		y += 10
		imaging.DrawText(canvas, []string{div}, margin, y, 3, imaging.Black)
		y += imaging.LineHeight(3) + 6

		header := fmt.Sprintf("%-4s %-26s %3s %3s %3s %3s %4s", "", "Team", "GP", "W", "L", "OT", "PTS")
		imaging.DrawText(canvas, []string{header}, margin, y, rowScale, imaging.Black)
		y += imaging.LineHeight(rowScale) + 2

		for _, row := range data.Standings {
			if row.DivisionName != div {
				continue
			}
			mark := ""
			clr := color.Color(imaging.Black)
			if strings.EqualFold(row.TeamAbbrev.Default, r.cfg.Highlight) {
				mark = ">"
				clr = red
			}
			line := fmt.Sprintf("%-4s %-26s %3d %3d %3d %3d %4d",
				mark, clip(row.TeamName.Default, 26), row.GamesPlayed, row.Wins, row.Losses, row.OtLosses, row.Points)
			imaging.DrawText(canvas, []string{line}, margin, y, rowScale, clr)
			y += imaging.LineHeight(rowScale) + 2
		}
	}

	out := filepath.Join(r.cfg.OutDir, "nhl_standings.png")
	if err := imaging.SavePNG(out, canvas); err != nil {
		return "", fmt.Errorf("standings: save: %w", err)
	}
	r.log.Debug("rendered standings", logx.Int("teams", len(data.Standings)))
	return out, nil
}

func divisionOrder(rows []teamRow) []string {
	var out []string
	seen := map[string]bool{}
	for _, row := range rows {
		if !seen[row.DivisionName] {
			seen[row.DivisionName] = true
			out = append(out, row.DivisionName)
		}
	}
	return out
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "."
}
