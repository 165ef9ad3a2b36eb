package app

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/calibration"
	"github.com/teslashibe/go-gaze/pkg/debug"
	"github.com/teslashibe/go-gaze/pkg/detection"
	"github.com/teslashibe/go-gaze/pkg/filter"
	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/iris"
	"github.com/teslashibe/go-gaze/pkg/keys"
	"github.com/teslashibe/go-gaze/pkg/publish"
	"github.com/teslashibe/go-gaze/pkg/vision"
	"github.com/teslashibe/go-gaze/pkg/web"
)

// App is the tracker application. It owns every component and their
// lifecycle.
type App struct {
	config Config
	log    *slog.Logger

	capture    *vision.Capture
	estimator  *gaze.Estimator[*vision.Frame]
	calibrator *calibration.Calibrator
	store      *calibration.Store
	session    *gaze.Session
	tracker    *gaze.Tracker[*vision.Frame]
	preview    *vision.Preview
	webServer  *web.Server

	// Released on Shutdown, in reverse order
	closers []io.Closer
	restore func()
}

// New creates the application with the given configuration.
func New(cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	debug.Enabled = cfg.Debug
	debug.Frames = cfg.DebugFrames

	return &App{
		config:  cfg,
		log:     log.Component("app"),
		restore: func() {},
	}, nil
}

// Init builds the pipeline and opens the camera.
// Call this after New() and before Run().
func (a *App) Init() error {
	if err := a.initEstimator(); err != nil {
		return errors.Wrap(err, "detectors")
	}
	if err := a.initCalibration(); err != nil {
		return errors.Wrap(err, "calibration")
	}

	f, _ := filter.New(a.config.Filter, a.config.Alpha)
	file, err := publish.NewFile(a.config.Output)
	if err != nil {
		return errors.Wrap(err, "gaze file")
	}
	a.session = gaze.NewSession(a.calibrator, f, file)

	capture, err := vision.Open(a.config.Camera)
	if err != nil {
		return err
	}
	a.capture = capture
	a.tracker = gaze.NewTracker[*vision.Frame](capture, a.estimator, a.session)

	if a.config.HTTPPort != "" {
		a.webServer = web.NewServer(":"+a.config.HTTPPort, a.tracker)
		a.session.AddPublisher(a.webServer)
	}
	a.initPreview()

	a.log.Info("tracker ready",
		"session_id", a.session.ID(),
		"backend", a.config.Backend,
		"iris", a.config.Iris,
		"filter", a.config.Filter,
		"output", file.Path(),
		"calibrated", a.calibrator.Calibrated())
	return nil
}

// Run tracks until ctx is cancelled or the user quits.
func (a *App) Run(ctx context.Context) error {
	if a.webServer != nil {
		a.webServer.StartAsync(ctx)
	}

	if a.config.Keys {
		restore, err := keys.Raw()
		if err != nil {
			a.log.Debug("terminal keys disabled", "error", err)
		} else {
			a.restore = restore
			go keys.Listen(os.Stdin, a.tracker.Send)
			a.log.Info(keys.Help)
		}
	}

	return a.tracker.Run(ctx)
}

// Shutdown releases all components. The camera is closed by the tracker.
func (a *App) Shutdown() {
	a.restore()
	if a.webServer != nil {
		if err := a.webServer.Shutdown(); err != nil {
			a.log.Warn("web shutdown failed", "error", err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
	if a.session != nil {
		snap := a.session.Snapshot()
		a.log.Info("tracker stopped",
			"frames", snap.Stats.Frames,
			"measured", snap.Stats.Measured,
			"publish_errors", snap.Stats.PublishErrors)
	}
}

// initEstimator builds the face, eye and iris stages for the configured
// backend.
func (a *App) initEstimator() error {
	var (
		faces gaze.FaceDetector[*vision.Frame]
		eyes  gaze.EyeDetector[*vision.Frame]
	)

	switch a.config.Backend {
	case BackendHaar, BackendYuNet:
		haarCfg := vision.DefaultHaarConfig()
		haarCfg.Dir = a.config.CascadeDir
		haar, err := vision.NewHaar(haarCfg)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, haar)
		faces, eyes = haar, haar

		if a.config.Backend == BackendYuNet {
			yCfg := vision.DefaultYuNetConfig()
			yCfg.ModelPath = a.config.YuNetModel
			yunet, err := vision.NewYuNet(yCfg)
			if err != nil {
				return err
			}
			a.closers = append(a.closers, yunet)
			faces = yunet
		}

	case BackendPigo:
		pCfg := detection.DefaultPigoConfig()
		pCfg.CascadePath = a.config.PigoCascade
		p, err := detection.NewPigo(pCfg)
		if err != nil {
			return err
		}
		faces, eyes = vision.PigoFaces{Detector: p}, vision.ProportionalEyes{}
	}

	var localizer gaze.IrisLocalizer[*vision.Frame]
	switch a.config.Iris {
	case IrisBlob:
		localizer = vision.Blob{Localizer: iris.DefaultDarkBlob()}
	default:
		localizer = vision.NewHough(vision.DefaultHoughConfig())
	}

	a.estimator = gaze.NewEstimator(faces, eyes, localizer)
	return nil
}

// initCalibration creates the calibrator and, when a profile file is
// configured, restores the saved mapping and saves every new one.
func (a *App) initCalibration() error {
	a.calibrator = calibration.NewCalibrator(calibration.DefaultConfig())
	if a.config.CalibrationFile == "" {
		return nil
	}

	store, err := calibration.NewStore(a.config.CalibrationFile)
	if err != nil {
		return err
	}
	a.store = store

	profile, err := store.Load()
	switch {
	case err != nil:
		// A broken profile should not keep the tracker from starting.
		a.log.Warn("ignoring calibration profile", "path", store.Path(), "error", err)
	case profile != nil:
		a.calibrator.SetMapping(profile.Mapping)
		a.log.Info("calibration restored",
			"profile_id", profile.ID,
			"created_at", profile.CreatedAt,
			"records", profile.Records)
	}

	a.calibrator.OnMapping = func(m calibration.Mapping, records int) {
		p := calibration.NewProfile(m, records)
		if err := a.store.Save(p); err != nil {
			a.log.Error("failed to save calibration", "path", a.store.Path(), "error", err)
			return
		}
		a.log.Info("calibration saved", "path", a.store.Path(), "profile_id", p.ID)
	}
	return nil
}

// initPreview attaches the overlay window and/or the camera stream.
func (a *App) initPreview() {
	if !a.config.Preview && a.webServer == nil {
		return
	}

	cfg := vision.DefaultPreviewConfig()
	cfg.Window = a.config.Preview
	if a.webServer != nil {
		cfg.Sink = a.webServer
	} else {
		cfg.StreamEvery = 0
	}

	a.preview = vision.NewPreview(cfg)
	a.closers = append(a.closers, a.preview)
	a.tracker.SetView(a.preview)
}
