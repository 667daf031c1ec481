// Command oxy-upscale drives the upscaler headless over a simulated frame sequence and writes the last
// upscaled frame to an image file.
//
// Usage:
//
//	oxy-upscale -platform Windows -width 1920 -height 1080 -mode balanced -frames 120 \
//	    -resize-at 40 -resize-width 2560 -resize-height 1440 \
//	    -mode-at 80 -next-mode performance -out frame.png
//
// -platform defaults to the host platform, but the default settings only support Windows. On Linux or
// macOS either pass -platform Windows or use a -settings file whose supported_platforms lists the host.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/disintegration/imaging"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Carmen-Shannon/oxy-upscale/common"
	"github.com/Carmen-Shannon/oxy-upscale/engine"
	"github.com/Carmen-Shannon/oxy-upscale/engine/camera"
	"github.com/Carmen-Shannon/oxy-upscale/engine/quality"
	"github.com/Carmen-Shannon/oxy-upscale/engine/settings"
	"github.com/Carmen-Shannon/oxy-upscale/engine/upscaler"
)

const (
	backendSoftware = "software"
	backendWGPU     = "wgpu"
)

// options holds the parsed command line.
type options struct {
	settingsPath string
	width        int
	height       int
	mode         string
	frames       int
	resizeAt     int
	resizeWidth  int
	resizeHeight int
	modeAt       int
	nextMode     string
	out          string
	logFile      string
	platform     string
	backend      string
	profile      bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("oxy-upscale: %v", err)
	}
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("oxy-upscale", flag.ContinueOnError)
	fs.StringVar(&o.settingsPath, "settings", "", "path to a JSON settings file (defaults are used if empty)")
	fs.IntVar(&o.width, "width", 1920, "initial display width in pixels")
	fs.IntVar(&o.height, "height", 1080, "initial display height in pixels")
	fs.StringVar(&o.mode, "mode", "", "quality mode: quality, balanced, performance, ultra_performance (overrides settings)")
	fs.IntVar(&o.frames, "frames", 60, "number of frames to simulate")
	fs.IntVar(&o.resizeAt, "resize-at", 0, "frame at which the display is resized (0 = never)")
	fs.IntVar(&o.resizeWidth, "resize-width", 2560, "display width after the resize")
	fs.IntVar(&o.resizeHeight, "resize-height", 1440, "display height after the resize")
	fs.IntVar(&o.modeAt, "mode-at", 0, "frame at which the quality mode changes (0 = never)")
	fs.StringVar(&o.nextMode, "next-mode", "performance", "quality mode applied at -mode-at")
	fs.StringVar(&o.out, "out", "frame.png", "output image path for the last upscaled frame (software backend only)")
	fs.StringVar(&o.logFile, "log-file", "", "write logs to this rotating file instead of stderr")
	fs.StringVar(&o.platform, "platform", settings.CurrentPlatform(), "platform name checked against the supported platforms (default settings support Windows only)")
	fs.StringVar(&o.backend, "backend", backendSoftware, "upscaler backend: software or wgpu")
	fs.BoolVar(&o.profile, "profile", false, "log frame rate and upscaler statistics")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.frames <= 0 {
		return o, fmt.Errorf("-frames must be positive, got %d", o.frames)
	}
	return o, nil
}

// run parses args, drives the frame sequence, and writes the output image.
func run(args []string) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}

	if o.logFile != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   o.logFile,
			MaxSize:    10, // MB
			MaxBackups: 2,
			MaxAge:     28, // days
			Compress:   true,
		})
		log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	}

	cfg, err := loadSettings(o)
	if err != nil {
		return err
	}
	nextMode, err := quality.ParseMode(o.nextMode)
	if err != nil {
		return err
	}

	backend, software, release, err := newBackend(o.backend)
	if err != nil {
		return err
	}
	defer release()

	cam := camera.NewCamera(camera.WithName("main"), camera.WithSize(o.width, o.height))
	up := upscaler.NewUpscaler(cam, backend, cfg, upscaler.WithName("main"), upscaler.WithPlatform(o.platform))

	pattern := newPatternSource()
	var viewRender engine.ViewRenderFunc
	if software != nil {
		viewRender = func(_ int, v engine.View, render common.Resolution, frame uint64) error {
			h, err := v.Upscaler.Handle()
			if err != nil {
				return err
			}
			input, err := software.Input(h)
			if err != nil {
				return err
			}
			_, jx, _ := v.Camera.JitteredProjection(frame, render)
			return pattern.render(input, v.Camera.DisplayResolution(), frame, jx)
		}
	}

	eng := engine.NewEngine(engine.WithWorkers(1), engine.WithProfiling(o.profile), engine.WithViewRenderCallback(viewRender))
	defer eng.Quit()

	if err := eng.AddView(0, cam, up); err != nil {
		if errors.Is(err, upscaler.ErrUnsupportedConfiguration) {
			return fmt.Errorf("%w (check -platform, -width/-height, and the settings bounds)", err)
		}
		return err
	}

	for i := 1; i <= o.frames; i++ {
		if i == o.resizeAt {
			log.Printf("[Engine] frame %d: resize to %dx%d", i, o.resizeWidth, o.resizeHeight)
			eng.Resize(o.resizeWidth, o.resizeHeight)
		}
		if i == o.modeAt {
			log.Printf("[Engine] frame %d: quality mode %v", i, nextMode)
			if err := eng.SetQualityMode(nextMode); err != nil {
				return err
			}
		}
		if err := eng.Frame(1.0 / 60); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}

	stats := up.Stats()
	log.Printf("[Engine] %d frames: state %v, display %v, render %v, mode %v, creates %d, destroys %d, executes %d",
		stats.Frames, stats.State, stats.Display, stats.Render, stats.Mode, stats.Creates, stats.Destroys, stats.Executes)

	if software == nil {
		log.Printf("[Engine] %s backend keeps frames on the GPU, skipping %s", o.backend, o.out)
		return nil
	}
	return writeOutput(up, software, o.out)
}

// loadSettings reads the settings file, if any, and applies the -mode override.
func loadSettings(o options) (settings.Settings, error) {
	cfg := settings.Default()
	if o.settingsPath != "" {
		loaded, err := settings.Load(o.settingsPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if o.mode != "" {
		mode, err := quality.ParseMode(o.mode)
		if err != nil {
			return cfg, err
		}
		cfg.QualityMode = mode
	}
	return cfg, nil
}

// newBackend builds the selected backend. software is non-nil only for the CPU backend.
func newBackend(name string) (upscaler.Backend, *upscaler.SoftwareBackend, func(), error) {
	switch name {
	case backendSoftware:
		sb := upscaler.NewSoftwareBackend()
		return sb, sb, func() {}, nil
	case backendWGPU:
		device, queue, err := upscaler.NewWGPUDevice(false)
		if err != nil {
			return nil, nil, nil, err
		}
		wb, err := upscaler.NewWGPUBackend(device, queue, wgpu.TextureFormatRGBA8Unorm)
		if err != nil {
			queue.Release()
			device.Release()
			return nil, nil, nil, err
		}
		return wb, nil, func() {
			wb.Release()
			queue.Release()
			device.Release()
		}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown backend %q, want %s or %s", name, backendSoftware, backendWGPU)
	}
}

// writeOutput saves the upscaler's last output frame; the format follows the file extension.
func writeOutput(up upscaler.Upscaler, software *upscaler.SoftwareBackend, path string) error {
	h, err := up.Handle()
	if err != nil {
		return fmt.Errorf("no frame to write: %w", err)
	}
	img, err := software.Output(h)
	if err != nil {
		return err
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Printf("[Engine] wrote %s (%v)", path, common.Resolution{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()})
	return nil
}
