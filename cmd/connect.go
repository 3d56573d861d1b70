package cmd

import (
	"image"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"deskhop/internal/session"

	"github.com/spf13/cobra"
)

var connectCmd = &cobra.Command{
	Use:   "connect <address>",
	Short: "Open a session to a remote instance and log stream statistics",
	Long: `Opens the screen and control channels to the given address. Without a
graphical shell attached this command only counts frames; it is useful
for verifying that a remote instance streams correctly.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager := session.NewManager(session.Config{
			ScreenPort:   cfg.ScreenPort,
			ControlPort:  cfg.ControlPort,
			FilePort:     cfg.FilePort,
			DialTimeout:  cfg.DialTimeout,
			WriteTimeout: cfg.WriteTimeout,
		})

		var frames atomic.Int64
		var lastW, lastH atomic.Int64
		onFrame := func(img image.Image, scalePercent uint32) {
			frames.Add(1)
			lastW.Store(int64(img.Bounds().Dx()))
			lastH.Store(int64(img.Bounds().Dy()))
		}

		peer := session.Peer{Address: args[0], Hostname: args[0]}
		s, err := manager.Connect(peer, onFrame)
		if err != nil {
			return err
		}
		defer manager.Close()

		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		var prev int64
		for {
			select {
			case <-ticker.C:
				n := frames.Load()
				log.Printf("[session] %d frames (%.1f fps), last %dx%d",
					n, float64(n-prev)/5.0, lastW.Load(), lastH.Load())
				prev = n
			case <-s.Done():
				log.Println("[session] remote closed the stream")
				return nil
			case <-sigCh:
				return nil
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
}
