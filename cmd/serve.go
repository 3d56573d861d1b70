package cmd

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"deskhop/internal/broadcast"
	"deskhop/internal/capture"
	"deskhop/internal/control"
	"deskhop/internal/discovery"
	"deskhop/internal/input"
	"deskhop/internal/transfer"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the screen, control and file servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline := capture.NewPipeline(
			capture.NewScreenSource(cfg.Display),
			capture.NewEncoder(cfg.MaxWidth, cfg.Quality),
		)
		broadcaster := broadcast.New(broadcast.Config{
			Addr:         fmt.Sprintf(":%d", cfg.ScreenPort),
			FPS:          cfg.FPS,
			WriteTimeout: cfg.WriteTimeout,
		}, pipeline)
		controlSrv := control.NewServer(control.ServerConfig{
			Addr:        fmt.Sprintf(":%d", cfg.ControlPort),
			IdleTimeout: cfg.IdleTimeout,
		}, input.NewRobot())
		fileSrv := transfer.NewReceiver(transfer.ReceiverConfig{
			Addr:        fmt.Sprintf(":%d", cfg.FilePort),
			SaveDir:     cfg.SaveDir,
			IdleTimeout: cfg.IdleTimeout,
		})

		if err := broadcaster.Start(); err != nil {
			return fmt.Errorf("start screen server: %w", err)
		}
		defer broadcaster.Stop()
		if err := controlSrv.Start(); err != nil {
			return fmt.Errorf("start control server: %w", err)
		}
		defer controlSrv.Stop()
		if err := fileSrv.Start(); err != nil {
			return fmt.Errorf("start file server: %w", err)
		}
		defer fileSrv.Stop()

		hostname, err := os.Hostname()
		if err != nil {
			hostname = "deskhop"
		}
		announcer, err := discovery.Announce(hostname, hostname, cfg.ScreenPort)
		if err != nil {
			// Discovery is best-effort; the servers are reachable by
			// address regardless.
			log.Println("[discovery] announce failed:", err)
		} else {
			defer announcer.Shutdown()
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		log.Println("shutting down...")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
