package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/putt.report/internal/api"
	"github.com/banshee-data/putt.report/internal/config"
	"github.com/banshee-data/putt.report/internal/db"
	"github.com/banshee-data/putt.report/internal/detector"
	"github.com/banshee-data/putt.report/internal/httputil"
	"github.com/banshee-data/putt.report/internal/session"
	"github.com/banshee-data/putt.report/internal/stream"
	"github.com/banshee-data/putt.report/internal/timeutil"
	"github.com/banshee-data/putt.report/internal/version"
)

var (
	listen       = flag.String("listen", ":8080", "Listen address")
	dbPath       = flag.String("db", "putt.db", "Path to the session database")
	configPath   = flag.String("config", "", "Path to a tuning config JSON file (built-in defaults if empty)")
	detectorMode = flag.String("detector", "none", "Detector: none, http, local or replay")
	detectorURL  = flag.String("detector-url", "http://localhost:8000/detect", "Detection service URL (detector=http)")
	replayPath   = flag.String("replay", "", "JSON-lines detection recording (detector=replay)")
	replayLoop   = flag.Bool("replay-loop", false, "Restart the replay when it runs out")
	frameWidth   = flag.Int("frame-width", 640, "Frame width for replayed detections")
	frameHeight  = flag.Int("frame-height", 480, "Frame height for replayed detections")
	canvasWidth  = flag.Float64("canvas-width", session.DefaultCanvas.Width, "Initial canvas width")
	canvasHeight = flag.Float64("canvas-height", session.DefaultCanvas.Height, "Initial canvas height")
	reportDir    = flag.String("report-dir", "", "Write a PNG plot per completed session to this directory")
	debugRoutes  = flag.Bool("debug", true, "Mount /debug/ admin routes")
	grpcListen   = flag.String("grpc-listen", "", "Serve the gRPC event stream on this address (disabled if empty)")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

// tickSetup is the detector plus the frame source driving it. A nil source
// means no tick loop runs.
type tickSetup struct {
	detector detector.Detector
	source   detector.FrameSource
	frames   *detector.FrameBuffer
}

func buildDetector(mode string, tuning *config.TuningConfig, clock timeutil.Clock) (tickSetup, error) {
	switch mode {
	case "", "none":
		return tickSetup{}, nil
	case "http":
		if *detectorURL == "" {
			return tickSetup{}, errors.New("detector-url is required for detector=http")
		}
		frames := detector.NewFrameBuffer()
		client := httputil.NewClient(tuning.GetDetectorTimeout())
		return tickSetup{detector: detector.NewHTTPDetector(*detectorURL, client), source: frames, frames: frames}, nil
	case "local":
		frames := detector.NewFrameBuffer()
		return tickSetup{detector: detector.NewLocalDetector(detector.FrameTensorModel{}, tuning), source: frames, frames: frames}, nil
	case "replay":
		if *replayPath == "" {
			return tickSetup{}, errors.New("replay is required for detector=replay")
		}
		rd, err := detector.LoadReplayFile(*replayPath)
		if err != nil {
			return tickSetup{}, err
		}
		rd.Loop = *replayLoop
		log.Printf("loaded %d replay frames from %s", rd.Len(), *replayPath)
		return tickSetup{
			detector: rd,
			source:   &detector.BlankSource{Width: *frameWidth, Height: *frameHeight, Clock: clock},
		}, nil
	default:
		return tickSetup{}, fmt.Errorf("unknown detector %q", mode)
	}
}

func loadTuning(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.DefaultTuningConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

func runMigrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	path := fs.String("db", "putt.db", "Path to the session database")
	fs.Usage = func() { db.PrintMigrateHelp(os.Stderr) }
	_ = fs.Parse(args)
	if err := db.RunMigrateCommand(fs.Args(), *path, os.Stdout); err != nil {
		log.Fatalf("migrate: %v", err)
	}
}

// Main
func main() {
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrate(os.Args[2:])
		return
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get())
		return
	}
	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	tuning, err := loadTuning(*configPath)
	if err != nil {
		log.Fatalf("failed to load tuning config: %v", err)
	}

	clock := timeutil.RealClock{}
	setup, err := buildDetector(*detectorMode, tuning, clock)
	if err != nil {
		log.Fatalf("failed to set up detector: %v", err)
	}

	store, err := db.OpenDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	sess := session.New(tuning, setup.detector, clock)
	if err := sess.SetCanvas(session.Canvas{Width: *canvasWidth, Height: *canvasHeight}); err != nil {
		log.Fatalf("invalid canvas: %v", err)
	}
	sess.Subscribe(api.PersistCompletedSessions(store))
	if *reportDir != "" {
		sess.Subscribe(api.WriteSessionPlots(*reportDir))
	}

	if *grpcListen != "" {
		cfg := stream.DefaultConfig()
		cfg.ListenAddr = *grpcListen
		pub := stream.NewPublisher(cfg, sess.Snapshot)
		if err := pub.Start(); err != nil {
			log.Fatalf("failed to start gRPC event stream: %v", err)
		}
		defer pub.Stop()
		sess.Subscribe(pub.Listener())
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if setup.source != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sess.Run(ctx, setup.source); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("tick loop stopped: %v", err)
			}
			log.Print("tick routine terminated")
		}()
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(sess, store, tuning, setup.frames).ServeMux()
		if *debugRoutes {
			if err := store.AttachAdminRoutes(mux); err != nil {
				log.Printf("failed to attach admin routes: %v", err)
			}
		}

		server := &http.Server{
			Addr:              *listen,
			Handler:           api.LoggingMiddleware(mux),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			log.Printf("listening on %s (detector=%s)", *listen, *detectorMode)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
