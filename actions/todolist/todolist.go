// Package todolist renders a checklist kept as a plain text file in the
// shared bucket (one item per line).
package todolist

import (
	"bufio"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"einkframe/internal/action"
	"einkframe/internal/imaging"
	"einkframe/pkg/logx"
)

type Config struct {
	Bucket string
	Object string
	Title  string
	OutDir string
}

type Renderer struct {
	client *minio.Client
	cfg    Config
	log    logx.Logger
}

func New(client *minio.Client, cfg Config, log logx.Logger) *Renderer {
	return &Renderer{client: client, cfg: cfg, log: log}
}

func (r *Renderer) Action() action.Action {
	// Name kept from the original frame deployment.
	return action.Func("todo_fermeture_chalet", func(ctx context.Context) (action.Result, error) {
		path, err := r.render(ctx)
		if err != nil {
			return action.Result{}, err
		}
		return action.Image(path), nil
	})
}

func (r *Renderer) render(ctx context.Context) (string, error) {
	if r.client == nil {
		return "", fmt.Errorf("todolist: no bucket client configured")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	obj, err := r.client.GetObject(ctx, r.cfg.Bucket, r.cfg.Object, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("todolist: fetch %s: %w", r.cfg.Object, err)
	}
	defer obj.Close()

	var items []string
	sc := bufio.NewScanner(obj)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			items = append(items, line)
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("todolist: read %s: %w", r.cfg.Object, err)
	}
	if len(items) == 0 {
		return "", fmt.Errorf("todolist: %s is empty", r.cfg.Object)
	}

	canvas := imaging.NewCanvas(imaging.DisplayWidth, imaging.DisplayHeight, imaging.White)

	const (
		margin     = 60
		titleScale = 5
		itemScale  = 3
	)
	title := r.cfg.Title
	if title == "" {
		title = "To do"
	}

	y := margin
	imaging.DrawText(canvas, []string{title},
		(imaging.DisplayWidth-imaging.TextWidth(title, titleScale))/2, y, titleScale, imaging.Black)
	y += imaging.LineHeight(titleScale) + 40

	for _, item := range items {
		lines := imaging.WrapText("[ ] "+item, imaging.DisplayWidth-2*margin, itemScale)
		h := imaging.DrawText(canvas, lines, margin, y, itemScale, imaging.Black)
		y += h + 14
		if y > imaging.DisplayHeight-margin {
			break
		}
	}

	out := filepath.Join(r.cfg.OutDir, "todo.png")
	if err := imaging.SavePNG(out, canvas); err != nil {
		return "", fmt.Errorf("todolist: save: %w", err)
	}
	r.log.Debug("rendered checklist", logx.Int("items", len(items)))
	return out, nil
}
