package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tdaugaard/wow-recorder/internal/config"
	"github.com/tdaugaard/wow-recorder/internal/devices"
	"github.com/tdaugaard/wow-recorder/internal/engine"
	"github.com/tdaugaard/wow-recorder/internal/events"
	"github.com/tdaugaard/wow-recorder/internal/logging"
	"github.com/tdaugaard/wow-recorder/internal/metrics"
	"github.com/tdaugaard/wow-recorder/internal/pidfile"
	"github.com/tdaugaard/wow-recorder/internal/recorder"
)

func newRunCmd() *cobra.Command {
	var configFile string
	var metricsAddr string
	var noRecord bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the engine, configure it, and record until interrupted",
		RunE: func(_ *cobra.Command, _ []string) error {
			opts, err := config.Load(configFile)
			if err != nil {
				return err
			}
			logging.Initialize(opts.Logging)
			logger := logging.GetLogger("main")

			// Only one process may own the engine connection.
			pf, err := pidfile.Acquire(pidfile.DefaultPath("wow-recorder"))
			if err != nil {
				return err
			}
			defer func() {
				if err := pf.Release(); err != nil {
					logger.Warn("failed to release pid file", "error", err)
				}
			}()

			enum, err := devices.NewMalgoEnumerator()
			if err != nil {
				return err
			}
			defer enum.Close()

			bus := events.New()
			unsubs := []func(){
				bus.Subscribe(func(e events.RecordingStartedEvent) {
					logger.Info("recording started", "at", e.Timestamp)
				}),
				bus.Subscribe(func(e events.RecordingStoppedEvent) {
					logger.Info("recording stopped", "path", e.Path)
				}),
				bus.Subscribe(func(e events.EngineDisconnectedEvent) {
					logger.Error("engine disconnected", "at", e.Timestamp)
				}),
			}
			defer func() {
				for _, unsub := range unsubs {
					unsub()
				}
			}()

			collector := metrics.New(bus)
			defer collector.Close()
			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", collector.Handler())
				go func() {
					logger.Info("serving metrics", "addr", metricsAddr)
					if err := http.ListenAndServe(metricsAddr, mux); err != nil {
						logger.Error("metrics server stopped", "error", err)
					}
				}()
			}

			client := engine.NewClient(opts.Engine.URL, opts.Engine.Password)
			rec := recorder.New(client, enum, bus, opts)

			if err := rec.Initialize(opts); err != nil {
				return fmt.Errorf("failed to initialize recorder: %w", err)
			}
			defer func() {
				if _, err := rec.Shutdown(); err != nil {
					logger.Error("shutdown failed", "error", err)
				}
			}()

			watcher := config.NewWatcher(configFile, logging.GetLogger("config"), func(fresh config.Options) {
				if err := rec.Reconfigure(&fresh); err != nil {
					logger.Error("reconfigure failed", "error", err)
				}
			})
			if err := watcher.Start(); err != nil {
				logger.Warn("config watcher unavailable", "error", err)
			} else {
				defer watcher.Stop()
			}

			if !noRecord {
				if err := rec.Start(); err != nil {
					return fmt.Errorf("failed to start recording: %w", err)
				}
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigChan
			logger.Info("shutting down", "signal", sig.String())

			if rec.State() == recorder.StateRecording {
				if err := rec.Stop(); err != nil {
					logger.Error("stop failed", "error", err)
				} else if path, err := rec.LastRecordingPath(); err == nil {
					fmt.Println(path)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "wow-recorder.toml", "Path to options file")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address (e.g. :9180)")
	cmd.Flags().BoolVar(&noRecord, "no-record", false, "Configure the engine but do not start recording")
	return cmd
}
