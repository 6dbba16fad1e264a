// shade: AR skin-tone picker service.
// Tracks a face, drives the wedge/dot visualization and asks a vision model
// for a tone suggestion. Browsers connect over websockets for landmarks,
// input and selection updates.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/teslashibe/go-shade/internal/config"
	"github.com/teslashibe/go-shade/internal/log"
	"github.com/teslashibe/go-shade/pkg/choices"
	"github.com/teslashibe/go-shade/pkg/classifier"
	"github.com/teslashibe/go-shade/pkg/debug"
	"github.com/teslashibe/go-shade/pkg/display"
	"github.com/teslashibe/go-shade/pkg/hub"
	"github.com/teslashibe/go-shade/pkg/relay"
	"github.com/teslashibe/go-shade/pkg/session"
	"github.com/teslashibe/go-shade/pkg/tone"
	"github.com/teslashibe/go-shade/pkg/tracking"
	"github.com/teslashibe/go-shade/pkg/tracking/detection"
	"github.com/teslashibe/go-shade/pkg/video"
	"github.com/teslashibe/go-shade/pkg/web"
)

func main() {
	cfg := parseFlags()

	log.Init(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		log.Error("shade stopped", "error", err)
		os.Exit(1)
	}
}

// parseFlags parses command line flags over the config file and env.
func parseFlags() config.Config {
	var o config.Overrides
	o.Addr = flag.String("addr", "", "Listen address (overrides SHADE_ADDR and PORT)")
	o.StaticDir = flag.String("static", "", "Directory served at /")
	o.Mode = flag.String("mode", "", "Initial display: WEDGE or DOTS")
	o.LogLevel = flag.String("log-level", "", "Log level: debug, info, warn, error")
	o.Provider = flag.String("provider", "", "Vision provider: auto, openai, anthropic, gemini, relay, none")
	o.Model = flag.String("model", "", "Vision model override")
	o.Store = flag.String("store", "", "Choice store: json, firestore, none")
	o.Tracker = flag.String("tracker", "", "Face tracker: remote (browser) or yunet (local webcam)")
	o.Camera = flag.Int("camera", 0, "Webcam device index for the yunet tracker")
	verbose := flag.Bool("debug", false, "Enable verbose debug logging")
	traceTracking := flag.Bool("debug-tracking", false, "Trace per-frame tracking")
	flag.Parse()

	// only flags given on the command line override
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	names := map[string]**string{
		"addr": &o.Addr, "static": &o.StaticDir, "mode": &o.Mode, "log-level": &o.LogLevel,
		"provider": &o.Provider, "model": &o.Model, "store": &o.Store, "tracker": &o.Tracker,
	}
	for name, p := range names {
		if !set[name] {
			*p = nil
		}
	}
	if !set["camera"] {
		o.Camera = nil
	}

	cfg := config.LoadWithOverrides(o)
	debug.Enabled = *verbose
	debug.Tracking = *traceTracking
	if *verbose {
		cfg.LogLevel = "debug"
	}
	return cfg
}

func run(ctx context.Context, cfg config.Config) error {
	logger := log.Component("main")
	reg := tone.Default()

	provider, err := config.NewProvider(cfg)
	if err != nil {
		return err
	}
	var suggester session.Suggester
	if provider != nil {
		defer provider.Close()
		ccfg := classifier.DefaultConfig()
		ccfg.SwatchPath = cfg.Swatch
		ccfg.Model = cfg.Model
		cls, err := classifier.New(ccfg, provider, reg)
		if err != nil {
			return err
		}
		suggester = cls
		logger.Info("classifier ready", "provider", provider.Name())
	} else {
		logger.Warn("no vision provider configured, suggestions disabled")
	}

	store, images, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	var recorder *choices.Recorder
	if store != nil {
		defer store.Close()
		recorder = choices.NewRecorder(store, images)
		defer recorder.Wait()
	}

	vcfg := video.DefaultConfig()
	vcfg.Device = cfg.Camera
	frames := video.NewPushed(vcfg.MinInterval)

	tcfg := tracking.DefaultConfig()
	var (
		tracker tracking.Tracker
		remote  *tracking.Remote
		webcam  *video.Webcam
	)
	switch cfg.Tracker {
	case config.TrackerYuNet:
		webcam, err = video.OpenWebcam(vcfg)
		if err != nil {
			return err
		}
		defer webcam.Close()

		dcfg := detection.DefaultConfig()
		dcfg.ModelPath = cfg.YuNetModel
		det, err := detection.NewYuNet(dcfg)
		if err != nil {
			return err
		}
		ft, err := tracking.NewFaceTracker(tcfg, det, video.JPEG{Source: frames, Quality: vcfg.Quality})
		if err != nil {
			det.Close()
			return err
		}
		defer ft.Close()
		go ft.Run(ctx)
		tracker = ft
	default:
		remote = tracking.NewRemote(tcfg.StaleAfter)
		defer remote.Close()
		tracker = remote
	}

	events := hub.New("events")
	scfg := session.DefaultConfig()
	scfg.Mode = display.Mode(cfg.Mode)
	scfg.Mirror = vcfg.Mirror
	sess, err := session.New(scfg, reg, session.Deps{
		Tracker:    tracker,
		Video:      frames,
		Classifier: suggester,
		Recorder:   recorder,
		Publisher:  events,
	})
	if err != nil {
		return err
	}
	go sess.Run(ctx)

	opts := web.Options{
		Addr:      cfg.Addr,
		StaticDir: cfg.StaticDir,
		Session:   sess,
		Events:    events,
		Choices:   store,
	}
	if remote != nil {
		opts.Relay = relay.New(remote, frames, sess)
	}
	server := web.NewServer(opts)

	if webcam != nil {
		go pumpCamera(ctx, webcam, frames, server, vcfg.Framerate)
	}

	logger.Info("shade started",
		"addr", cfg.Addr,
		"mode", cfg.Mode,
		"tracker", cfg.Tracker,
		"store", cfg.Store,
	)
	return server.Run(ctx)
}

// newStore opens the choice store and the snapshot store.
func newStore(ctx context.Context, cfg config.Config) (choices.Store, choices.ImageStore, error) {
	gcfg := choices.GoogleConfig{
		ProjectID:       cfg.Project,
		CredentialsFile: cfg.Credentials,
	}

	var images choices.ImageStore
	if cfg.Bucket != "" {
		cs, err := choices.NewCloudStorage(ctx, gcfg, cfg.Bucket, "snapshots")
		if err != nil {
			return nil, nil, err
		}
		images = cs
	}

	switch cfg.Store {
	case config.StoreNone:
		return nil, nil, nil

	case config.StoreFirestore:
		fcfg := choices.DefaultFirestoreConfig()
		fcfg.GoogleConfig = gcfg
		store, err := choices.NewFirestore(ctx, fcfg)
		if err != nil {
			return nil, nil, err
		}
		return store, images, nil

	default:
		path := cfg.StorePath
		if path == "" {
			p, err := choices.DefaultPath()
			if err != nil {
				return nil, nil, err
			}
			path = p
		}
		store, err := choices.NewJSONStore(path)
		if err != nil {
			return nil, nil, err
		}
		if images == nil {
			images = choices.DirImages{Dir: filepath.Join(filepath.Dir(path), "snapshots")}
		}
		return store, images, nil
	}
}

// pumpCamera reads the webcam at fps, feeding the shared frame source and
// the /ws/camera preview.
func pumpCamera(ctx context.Context, cam *video.Webcam, frames *video.Pushed, server *web.Server, fps int) {
	logger := log.Component("camera")
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	var failures int
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		data, err := cam.CaptureJPEG()
		if err != nil {
			failures++
			if failures%30 == 1 {
				logger.Warn("capture failed", "error", err, "failures", failures)
			}
			continue
		}
		failures = 0

		if _, err := frames.Push(data); err != nil && !errors.Is(err, video.ErrBlank) {
			debug.TrackLog("frame rejected", "error", err)
		}
		server.SendCameraFrame(data)
	}
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: shade [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Settings are read from %s, then SHADE_* env vars, then flags.\n\n", config.Path())
		flag.PrintDefaults()
	}
}
