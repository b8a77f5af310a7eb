package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pink-tools/se-player/internal/config"
	"github.com/pink-tools/se-player/internal/daemon"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   config.ServiceName,
	Short: "Sound effect player in the system tray",
	Long: `se-player - plays short sound effects from the tray menu, global hotkeys
or a running instance's bridge.

Without a subcommand it starts the tray daemon.`,
	SilenceUsage: true,
	RunE:         runDaemon,
}

func main() {
	runtime.LockOSThread()
	config.LoadEnv()

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	d, err := daemon.New(cfg)
	if err != nil {
		return err
	}
	silenceStderr()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		d.Stop()
	}()

	d.Run()
	return nil
}
