// Package gallery shows a random picture from the shared bucket.
//
// The bucket prefix is mirrored into a local cache directory first, so the
// frame keeps working through network outages with whatever it has synced.
package gallery

import (
	"context"
	"fmt"
	"image"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"

	"einkframe/internal/action"
	"einkframe/internal/imaging"
	"einkframe/pkg/logx"
)

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true, ".webp": true,
}

type Config struct {
	Bucket   string
	Prefix   string
	CacheDir string
	OutDir   string
}

type Gallery struct {
	client *minio.Client
	cfg    Config
	rng    *rand.Rand
	log    logx.Logger

	mu       sync.Mutex
	lastPick string
}

func New(client *minio.Client, cfg Config, log logx.Logger) *Gallery {
	return &Gallery{
		client: client,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		log:    log,
	}
}

func (g *Gallery) Action() action.Action {
	// Name kept from the original frame deployment so existing schedule
	// files stay valid.
	return action.Func("random_image_from_dropbox", func(ctx context.Context) (action.Result, error) {
		path, err := g.render(ctx)
		if err != nil {
			return action.Result{}, err
		}
		return action.Image(path), nil
	})
}

func (g *Gallery) render(ctx context.Context) (string, error) {
	if err := g.sync(ctx); err != nil {
		// A failed sync is survivable as long as the cache has pictures.
		g.log.Warn("bucket sync failed, using cached pictures", logx.Err(err))
	}

	pick, err := g.pick()
	if err != nil {
		return "", err
	}

	img, err := imaging.DecodeFile(pick)
	if err != nil {
		return "", fmt.Errorf("gallery: %w", err)
	}

	// Letterbox over the picture's average colour so the borders blend in
	// instead of showing stark white bars.
	bg := imaging.AverageColor(img)
	canvas := imaging.NewCanvas(imaging.DisplayWidth, imaging.DisplayHeight, bg)
	imaging.DrawFitted(canvas, image.Rect(0, 0, imaging.DisplayWidth, imaging.DisplayHeight), img)

	out := filepath.Join(g.cfg.OutDir, "random_gallery_image.png")
	if err := imaging.SavePNG(out, canvas); err != nil {
		return "", fmt.Errorf("gallery: save: %w", err)
	}
	g.log.Debug("rendered gallery picture", logx.String("picked", filepath.Base(pick)))
	return out, nil
}

// sync downloads bucket objects missing from the cache dir.
func (g *Gallery) sync(ctx context.Context) error {
	if g.client == nil {
		return fmt.Errorf("gallery: no bucket client configured")
	}
	if err := os.MkdirAll(g.cfg.CacheDir, 0o755); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	n := 0
	for obj := range g.client.ListObjects(ctx, g.cfg.Bucket, minio.ListObjectsOptions{
		Prefix:    g.cfg.Prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return fmt.Errorf("gallery: list bucket: %w", obj.Err)
		}
		name := filepath.Base(obj.Key)
		if !imageExts[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		local := filepath.Join(g.cfg.CacheDir, name)
		if fi, err := os.Stat(local); err == nil && fi.Size() == obj.Size {
			continue
		}
		if err := g.client.FGetObject(ctx, g.cfg.Bucket, obj.Key, local, minio.GetObjectOptions{}); err != nil {
			return fmt.Errorf("gallery: download %s: %w", obj.Key, err)
		}
		n++
	}
	if n > 0 {
		g.log.Info("synced pictures from bucket", logx.Int("downloaded", n))
	}
	return nil
}

// pick selects a random cached picture, avoiding an immediate repeat when
// more than one is available.
func (g *Gallery) pick() (string, error) {
	entries, err := os.ReadDir(g.cfg.CacheDir)
	if err != nil {
		return "", fmt.Errorf("gallery: read cache: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(g.cfg.CacheDir, e.Name()))
	}
	if len(files) == 0 {
		return "", fmt.Errorf("gallery: no pictures in %s", g.cfg.CacheDir)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	pick := files[g.rng.Intn(len(files))]
	for len(files) > 1 && pick == g.lastPick {
		pick = files[g.rng.Intn(len(files))]
	}
	g.lastPick = pick
	return pick, nil
}
