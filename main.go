package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/lcrnode/cmd"
	"github.com/smazurov/lcrnode/internal/api"
	"github.com/smazurov/lcrnode/internal/config"
	"github.com/smazurov/lcrnode/internal/device"
	"github.com/smazurov/lcrnode/internal/events"
	"github.com/smazurov/lcrnode/internal/led"
	"github.com/smazurov/lcrnode/internal/logging"
	"github.com/smazurov/lcrnode/internal/metrics/exporters"
	"github.com/smazurov/lcrnode/internal/program"
	"github.com/smazurov/lcrnode/internal/sequencer"
	"github.com/smazurov/lcrnode/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"lcrnode.toml"`

	// Server settings
	Port       string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`
	CorsOrigin string `help:"Allowed CORS origin" default:"*" toml:"server.cors_origin" env:"SERVER_CORS_ORIGIN"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Device settings
	DeviceDriver string `help:"Controller link driver (sim)" default:"sim" toml:"device.driver" env:"DEVICE_DRIVER"`

	// Sequencer settings
	SequencerCapacity int `help:"Pattern table capacity" default:"128" toml:"sequencer.capacity" env:"SEQUENCER_CAPACITY"`

	// Program settings
	ProgramFile         string `help:"Sequence program file" default:"" toml:"program.file" env:"PROGRAM_FILE"`
	ProgramApplyOnStart bool   `help:"Apply the program file at startup" default:"true" toml:"program.apply_on_start" env:"PROGRAM_APPLY_ON_START"`
	ProgramWatch        bool   `help:"Re-apply the program file when it changes" default:"true" toml:"program.watch" env:"PROGRAM_WATCH"`

	// LED settings
	LedsBlankOnStop     bool `help:"Turn LEDs off when the sequencer stops" default:"false" toml:"leds.blank_on_stop" env:"LEDS_BLANK_ON_STOP"`
	LedsHandOverOnStart bool `help:"Give LED control to the sequencer when it starts" default:"false" toml:"leds.hand_over_on_start" env:"LEDS_HAND_OVER_ON_START"`

	// Metrics settings
	MetricsPrometheusEnabled bool `help:"Serve Prometheus metrics on /metrics" default:"true" toml:"metrics.prometheus_enabled" env:"METRICS_PROMETHEUS_ENABLED"`
	MetricsSseEnabled        bool `help:"Publish metrics on /api/metrics" default:"true" toml:"metrics.sse_enabled" env:"METRICS_SSE_ENABLED"`

	// Logging settings
	LoggingLevel     string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat    string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingDevice    string `help:"Device link logging level" default:"" toml:"logging.device" env:"LOGGING_DEVICE"`
	LoggingSequencer string `help:"Sequencer logging level" default:"" toml:"logging.sequencer" env:"LOGGING_SEQUENCER"`
	LoggingProgram   string `help:"Program loader logging level" default:"" toml:"logging.program" env:"LOGGING_PROGRAM"`
	LoggingApi       string `help:"API logging level" default:"" toml:"logging.api" env:"LOGGING_API"`
	LoggingHttp      string `help:"HTTP access logging level" default:"" toml:"logging.http" env:"LOGGING_HTTP"`
}

// loggingConfig merges the [logging] table of the config file with the
// module levels set through options. Options win.
func loggingConfig(opts *Options) logging.Config {
	cfg := config.LoadLoggingConfig(opts.Config)
	cfg.Level = opts.LoggingLevel
	cfg.Format = opts.LoggingFormat
	for module, level := range map[string]string{
		"device":    opts.LoggingDevice,
		"sequencer": opts.LoggingSequencer,
		"program":   opts.LoggingProgram,
		"api":       opts.LoggingApi,
		"http":      opts.LoggingHttp,
	} {
		if level != "" {
			cfg.Modules[module] = level
		}
	}
	return cfg
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(loggingConfig(opts))
		logger := logging.GetLogger("main")
		logger.Info("lcrnode starting", "version", version.String(), "driver", opts.DeviceDriver)

		eventBus := events.New()

		link, err := device.NewLink(opts.DeviceDriver, logging.GetLogger("device"))
		if err != nil {
			logger.Error("Failed to open device link", "driver", opts.DeviceDriver, "error", err)
			os.Exit(1)
		}
		session := device.NewSession(link, logging.GetLogger("device"))

		controller := sequencer.New(session, sequencer.Options{
			Capacity: opts.SequencerCapacity,
			EventBus: eventBus,
			Logger:   logging.GetLogger("sequencer"),
		})

		ledManager := led.NewManager(
			led.New(session, logging.GetLogger("led")),
			eventBus,
			logging.GetLogger("led"),
			led.ManagerOptions{
				BlankOnStop:     opts.LedsBlankOnStop,
				HandOverOnStart: opts.LedsHandOverOnStart,
			},
		)

		applier := &program.Applier{
			Controller: controller,
			LEDs:       ledManager,
			EventBus:   eventBus,
			Logger:     logging.GetLogger("program"),
		}

		var programWatcher *config.Watcher[*program.Program]
		if opts.ProgramFile != "" && opts.ProgramWatch {
			programWatcher = config.NewFileWatcher(
				opts.ProgramFile,
				program.Load,
				logging.GetLogger("config"),
				config.WithErrorHandler[*program.Program](func(loadErr error) {
					eventBus.Publish(events.ProgramAppliedEvent{
						Path:      opts.ProgramFile,
						Error:     loadErr.Error(),
						Timestamp: time.Now().Format(time.RFC3339),
					})
				}),
			)
			programWatcher.OnReload(func(p *program.Program) {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				// Apply logs and publishes the outcome itself.
				_, _ = applier.Apply(ctx, p, opts.ProgramFile)
			})
		}

		apiOpts := &api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			CORSOrigin:   opts.CorsOrigin,
			Driver:       opts.DeviceDriver,
			Controller:   controller,
			LEDs:         ledManager,
			Applier:      applier,
			EventBus:     eventBus,
			ProgramPath:  opts.ProgramFile,
		}
		if opts.MetricsPrometheusEnabled {
			apiOpts.PrometheusHandler = exporters.HTTPHandler()
		}
		server := api.NewServer(apiOpts)

		var sseExporter *exporters.SSEExporter
		if opts.MetricsSseEnabled {
			sseExporter = exporters.NewSSEExporter(eventBus)
		}

		hooks.OnStart(func() {
			ctx := context.Background()

			if connErr := session.Connect(ctx); connErr != nil {
				logger.Error("Failed to connect to controller", "error", connErr)
				os.Exit(1)
			}
			if v, verErr := session.Version(ctx); verErr == nil {
				logger.Info("Controller connected", "firmware", v.Application.String(), "api", v.API.String())
			}

			ledManager.Start()
			if sseExporter != nil {
				sseExporter.Start(ctx)
			}

			if opts.ProgramFile != "" && opts.ProgramApplyOnStart {
				if p, loadErr := program.Load(opts.ProgramFile); loadErr != nil {
					logger.Warn("Failed to load program file", "path", opts.ProgramFile, "error", loadErr)
				} else {
					_, _ = applier.Apply(ctx, p, opts.ProgramFile)
				}
			}
			if programWatcher != nil {
				if watchErr := programWatcher.Start(); watchErr != nil {
					logger.Warn("Failed to watch program file", "path", opts.ProgramFile, "error", watchErr)
				}
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			if programWatcher != nil {
				if stopErr := programWatcher.Stop(); stopErr != nil {
					logger.Warn("Error stopping program watcher", "error", stopErr)
				}
			}
			if sseExporter != nil {
				sseExporter.Stop()
			}
			ledManager.Stop()

			// Leave the light engine dark and idle.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if stopErr := controller.Stop(ctx); stopErr != nil {
				logger.Warn("Failed to stop sequencer", "error", stopErr)
			}
			if closeErr := session.Close(); closeErr != nil {
				logger.Warn("Error closing device session", "error", closeErr)
			}
		})
	})

	cli.Root().Use = "lcrnode"
	cli.Root().Version = version.Banner()
	cli.Root().AddCommand(cmd.CreateValidateCmd())
	cli.Root().AddCommand(cmd.CreateApplyCmd())

	cli.Run()
}
