// Command overlay-cam runs the detection overlay pipeline against a local
// camera (or a directory of frames) and shows the composited result in a
// window. '[' and ']' adjust the confidence threshold, 'q' quits.
package main

import (
	"context"
	"flag"
	"image"
	"image/draw"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/up-zero/gotool/convertutil"
	"gocv.io/x/gocv"

	"github.com/getcharzp/go-overlay"
	"github.com/getcharzp/go-overlay/internal/config"
	"github.com/getcharzp/go-overlay/model"
	"github.com/getcharzp/go-overlay/pipeline"
	"github.com/getcharzp/go-overlay/source"
)

func main() {
	configPath := flag.String("config", "overlay.yaml", "config file path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("overlay-cam failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Video source
	var (
		src    pipeline.Source
		closer interface{ Close() error }
	)
	if cfg.Camera.FrameDir != "" {
		frames, err := source.OpenFrameDir(cfg.Camera.FrameDir)
		if err != nil {
			return err
		}
		src = frames
	} else {
		cam, err := source.OpenWebcam(cfg.Camera.Device)
		if err != nil {
			return err
		}
		src = cam
		closer = cam
	}
	if closer != nil {
		defer closer.Close()
	}

	// Model
	mCfg := model.DefaultConfig()
	mCfg.ModelPath = cfg.Model.Path
	mCfg.InputSize = cfg.Model.InputSize
	mCfg.UseCuda = cfg.Model.UseCuda
	mCfg.NumThreads = cfg.Model.NumThreads
	if cfg.Model.LibPath != "" {
		mCfg.OnnxRuntimeLibPath = cfg.Model.LibPath
	}

	mgr := model.NewManager(mCfg, log)
	handle, err := mgr.Load(ctx)
	if err != nil {
		return err
	}
	defer mgr.Release()

	// Pipeline
	pCfg := pipeline.DefaultConfig()
	pCfg.InputSize = cfg.Model.InputSize
	if err := convertutil.CopyProperties(cfg.Overlay, &pCfg); err != nil {
		return err
	}
	if cfg.Overlay.ClassesFile != "" {
		names, err := overlay.LoadClassNames(cfg.Overlay.ClassesFile)
		if err != nil {
			return err
		}
		pCfg.ClassNames = names
	}

	var text *overlay.TextDrawer
	if cfg.Overlay.FontPath != "" {
		text, err = overlay.NewTextDrawer(cfg.Overlay.FontPath)
		if err != nil {
			return err
		}
		defer text.Close()
	}

	pipe, err := pipeline.New(pCfg, pipeline.Deps{
		Source:  src,
		Session: handle,
		Text:    text,
		Logger:  log,
		OnStats: func(s pipeline.Stats) {
			log.Debug("pipeline stats",
				"fps", s.FPS,
				"frames", s.FramesProcessed,
				"detections", len(s.Detections),
			)
		},
	})
	if err != nil {
		return err
	}
	pipe.Aligner().SetContainerSize(cfg.Window.Width, cfg.Window.Height)

	if err := pipe.Start(ctx); err != nil {
		return err
	}
	defer pipe.Stop()

	return displayLoop(ctx, cfg, src, pipe, log)
}

// displayLoop composites the latest frame with the overlay canvas and shows
// it until the window closes or the context is cancelled. Frames come from
// the source's Latest cache so the loop never steals captures from the
// pipeline.
func displayLoop(ctx context.Context, cfg *config.Config, src pipeline.Source, pipe *pipeline.Pipeline, log *slog.Logger) error {
	window := gocv.NewWindow("go-overlay")
	defer window.Close()
	window.ResizeWindow(cfg.Window.Width, cfg.Window.Height)

	bgr := gocv.NewMat()
	defer bgr.Close()

	latest, _ := src.(interface{ Latest() image.Image })

	for ctx.Err() == nil {
		if !src.Ready() {
			if window.WaitKey(50) >= 0 {
				break
			}
			continue
		}

		var frame image.Image
		if latest != nil {
			frame = latest.Latest()
		} else if f, err := src.Capture(); err == nil {
			frame = f
		}
		if frame == nil {
			// The pipeline has not captured yet.
			if window.WaitKey(16) >= 0 {
				break
			}
			continue
		}

		composite := image.NewRGBA(frame.Bounds())
		draw.Draw(composite, frame.Bounds(), frame, frame.Bounds().Min, draw.Src)
		if canvas := pipe.Canvas(); canvas != nil {
			draw.Draw(composite, canvas.Bounds(), canvas, image.Point{}, draw.Over)
		}

		rgba, err := gocv.ImageToMatRGBA(composite)
		if err != nil {
			continue
		}
		gocv.CvtColor(rgba, &bgr, gocv.ColorRGBAToBGR)
		rgba.Close()

		window.IMShow(bgr)
		switch key := window.WaitKey(16); key {
		case 'q', 27: // q or ESC
			return nil
		case '[':
			pipe.SetConfThreshold(pipe.ConfThreshold() - 0.05)
			log.Info("confidence threshold", "value", pipe.ConfThreshold())
		case ']':
			pipe.SetConfThreshold(pipe.ConfThreshold() + 0.05)
			log.Info("confidence threshold", "value", pipe.ConfThreshold())
		}
	}
	return nil
}
