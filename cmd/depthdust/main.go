package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/banshee-data/depthdust/internal/audio"
	"github.com/banshee-data/depthdust/internal/config"
	"github.com/banshee-data/depthdust/internal/monitor"
	"github.com/banshee-data/depthdust/internal/monitoring"
	"github.com/banshee-data/depthdust/internal/pipeline"
	"github.com/banshee-data/depthdust/internal/recording"
	"github.com/banshee-data/depthdust/internal/render/terminal"
	"github.com/banshee-data/depthdust/internal/sensor"
	"github.com/banshee-data/depthdust/internal/timeutil"
	"github.com/banshee-data/depthdust/internal/version"
)

const (
	sourceSynthetic = "synthetic"
	sourceReplay    = "replay"
	audioPulse      = "pulse"
)

var (
	configPath  = flag.String("config", "", "Tuning config JSON file; reloaded while running")
	sourceKind  = flag.String("source", sourceSynthetic, "Depth source: synthetic or replay")
	replayDB    = flag.String("replay", "depthdust.db", "Recording database to replay from")
	sessionID   = flag.String("session", "", "Recorded session to replay (default: most recent)")
	loopReplay  = flag.Bool("loop", false, "Restart the replay after its last frame")
	recordDB    = flag.String("record", "", "Record every captured depth frame to this database")
	audioPath   = flag.String("audio", "", "WAV file driving the loudness level, or \"pulse\" for a test tone")
	showView    = flag.Bool("view", false, "Show the terminal preview")
	maxFrames   = flag.Uint64("frames", 0, "Stop after this many cycles (0 runs until signalled)")
	plotsDir    = flag.String("plots", "", "Write cycle plots and an HTML report under this directory on exit")
	logLevel    = flag.String("log-level", "ops", "Log streams to enable: ops, diag, trace or none")
	saveConfig  = flag.String("save-config", "", "Write the effective tuning config to this path and exit")
	showVersion = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("depthdust: %v", err)
	}
}

func run(ctx context.Context) error {
	level, err := monitoring.ParseLevel(*logLevel)
	if err != nil {
		return err
	}
	monitoring.Apply(level, os.Stderr,
		pipeline.SetLogWriters, sensor.SetLogWriters, recording.SetLogWriters)

	tuning := loadTuning(*configPath)
	if *saveConfig != "" {
		if err := config.SaveTuningConfig(*saveConfig, tuning); err != nil {
			return err
		}
		monitoring.Logf("wrote tuning config to %s", *saveConfig)
		return nil
	}

	cfg, err := pipeline.ConfigFromTuning(tuning)
	if err != nil {
		monitoring.Logf("invalid tuning, using defaults: %v", err)
		cfg = pipeline.DefaultConfig()
	}

	seed, ok := tuning.GetSeed()
	if !ok {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	dev, sessCfg, closeDev, err := openDevice(cfg.TargetFPS)
	if err != nil {
		return err
	}
	defer closeDev()

	session, report := sensor.Open(dev, sessCfg)
	defer session.Close()
	if !report.OK() {
		monitoring.Logf("sensor setup incomplete, running degraded: %v", report.Err())
	}

	var source pipeline.Source = session
	if tuning.GetAsyncCapture() {
		async := sensor.StartAsync(ctx, session, nil, timeutil.FramePeriod(cfg.TargetFPS))
		defer func() {
			if err := async.Stop(); err != nil && !errors.Is(err, sensor.ErrNotStreaming) {
				monitoring.Logf("capture pump: %v", err)
			}
			monitoring.Logf("async capture dropped %d frames", async.Dropped())
		}()
		source = async
	}

	p, err := pipeline.New(cfg, session.DepthFrame().Width(), session.DepthFrame().Height(), rng)
	if err != nil {
		return err
	}

	rt := &pipeline.Runtime{
		Pipeline:           p,
		Source:             source,
		MaxCycles:          *maxFrames,
		StopWhenSourceEnds: *sourceKind == sourceReplay && !*loopReplay,
		SummaryEvery:       5 * time.Second,
		Policy:             cfg.Policy,
	}
	if *configPath != "" {
		rt.Reloader = pipeline.TuningReloader{Watcher: config.NewWatcher(*configPath)}
	}

	if *audioPath != "" {
		loudness, closeAudio, err := openLoudness(*audioPath, cfg.TargetFPS, tuning.GetAudioGain())
		if err != nil {
			return err
		}
		defer closeAudio()
		rt.Loudness = loudness
	}

	if *recordDB != "" {
		store, err := recording.OpenStore(*recordDB)
		if err != nil {
			return err
		}
		defer store.Close()
		rec := recording.NewRecorder(store, nil, sessCfg.FPS,
			fmt.Sprintf("source=%s version=%s", *sourceKind, version.Version))
		rt.Recorder = rec
		defer func() {
			monitoring.Logf("recorded %d frames (session %s)", rec.Frames(), rec.SessionID())
		}()
	}

	var plotter *monitor.CyclePlotter
	var plotDir string
	if *plotsDir != "" {
		plotter = monitor.NewCyclePlotter()
		plotDir = monitor.MakePlotOutputDir(*plotsDir, plotLabel(), time.Now())
		if err := plotter.Start(plotDir); err != nil {
			return err
		}
		rt.Sinks = append(rt.Sinks, plotter)
	}

	if *showView {
		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("open terminal: %w", err)
		}
		r, err := terminal.New(screen)
		if err != nil {
			return err
		}
		defer r.Close()
		rt.Renderer = r
		rt.Commands = r.Commands()
	}

	runErr := rt.Run(ctx)

	stats := rt.Stats()
	monitoring.Logf("ran %d cycles (%d skipped without stream, %d failed grabs, %d errors)",
		stats.Cycles, stats.SkippedNoFrame, stats.SkippedGrab, stats.Errors)

	if plotter != nil {
		plotter.Stop()
		if err := writePlots(plotter, plotDir, p.View(rt.Policy)); err != nil {
			monitoring.Logf("plots: %v", err)
		}
	}
	return runErr
}

// loadTuning reads path, falling back to the built-in defaults when path is
// empty or unreadable.
func loadTuning(path string) *config.TuningConfig {
	if path == "" {
		return config.DefaultTuningConfig()
	}
	tuning, err := config.LoadTuningConfig(path)
	if err != nil {
		monitoring.Logf("config %s: %v; using defaults", path, err)
		return config.DefaultTuningConfig()
	}
	return tuning
}

// openDevice returns the selected depth device, the capture mode to request
// from it and a cleanup function.
func openDevice(fps int) (sensor.Device, sensor.SessionConfig, func(), error) {
	sessCfg := sensor.DefaultSessionConfig()
	sessCfg.FPS = fps

	switch *sourceKind {
	case sourceSynthetic:
		return sensor.NewSynthetic(sensor.DefaultSyntheticConfig()), sessCfg, func() {}, nil

	case sourceReplay:
		store, err := recording.OpenStore(*replayDB)
		if err != nil {
			return nil, sessCfg, nil, err
		}
		closeStore := func() {
			if err := store.Close(); err != nil {
				monitoring.Logf("close %s: %v", *replayDB, err)
			}
		}

		var info recording.SessionInfo
		if *sessionID == "" {
			info, err = store.LatestSession()
		} else {
			info, err = store.Session(*sessionID)
		}
		if err != nil {
			closeStore()
			return nil, sessCfg, nil, err
		}
		sessCfg.Width, sessCfg.Height = info.Width, info.Height
		if info.FPS > 0 {
			sessCfg.FPS = info.FPS
		}
		monitoring.Logf("replaying session %s (%d frames, %dx%d)", info.ID, info.Frames, info.Width, info.Height)
		return recording.NewPlayer(store, info.ID, *loopReplay), sessCfg, closeStore, nil

	default:
		return nil, sessCfg, nil, fmt.Errorf("unknown source %q (want %s or %s)", *sourceKind, sourceSynthetic, sourceReplay)
	}
}

// openLoudness builds a loudness monitor reading one cycle of audio per
// Level call. WAV files loop.
func openLoudness(path string, fps int, gain float64) (*audio.Monitor, func(), error) {
	period := timeutil.FramePeriod(fps)
	if path == audioPulse {
		const rate = 44100
		return audio.NewMonitor(audio.NewPulse(rate, 4*time.Second, 0.8), rate, period, gain), func() {}, nil
	}
	s, format, err := audio.OpenWAV(path)
	if err != nil {
		return nil, nil, err
	}
	m := audio.NewMonitor(audio.Loop(s), format.SampleRate, period, gain)
	return m, func() { s.Close() }, nil
}

func writePlots(plotter *monitor.CyclePlotter, dir string, last pipeline.View) error {
	n, err := plotter.GeneratePlots()
	if err != nil {
		return err
	}
	report, err := monitor.WriteReport(dir, last, plotter.Samples(), monitor.ChartOptions{})
	if err != nil {
		return err
	}
	monitoring.Logf("wrote %d plots and %s", n, report)
	return nil
}

// plotLabel names a plot run after its source; replays carry the database
// name.
func plotLabel() string {
	if *sourceKind != sourceReplay {
		return *sourceKind
	}
	base := filepath.Base(*replayDB)
	return sourceReplay + "-" + strings.TrimSuffix(base, filepath.Ext(base))
}
