package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pink-tools/se-player/internal/bridge"
	"github.com/pink-tools/se-player/internal/config"
	"github.com/pink-tools/se-player/internal/sound"
)

var bridgeAddr string

func init() {
	rootCmd.PersistentFlags().StringVar(&bridgeAddr, "addr", "", "bridge address of the running player (default $SE_PLAYER_BRIDGE_ADDR or "+bridge.DefaultAddr+")")
	rootCmd.AddCommand(playCmd, stopAllCmd, muteCmd, statusCmd, quitCmd, devicesCmd)
}

var playCmd = &cobra.Command{
	Use:       "play <sound>",
	Short:     "Play a sound in the running player",
	Long:      "Play a sound in the running player. Sounds: " + soundList(),
	Args:      cobra.ExactArgs(1),
	ValidArgs: soundNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := call(cmd, bridge.Request{Op: bridge.OpPlay, ID: args[0]})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
		return nil
	},
}

var stopAllCmd = &cobra.Command{
	Use:   "stop-all",
	Short: "Stop every playing sound",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := call(cmd, bridge.Request{Op: bridge.OpStopAll})
		return err
	},
}

var muteCmd = &cobra.Command{
	Use:   "mute",
	Short: "Toggle mute",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := call(cmd, bridge.Request{Op: bridge.OpToggleMute})
		if err != nil {
			return err
		}
		if resp.Muted != nil && *resp.Muted {
			fmt.Fprintln(cmd.OutOrStdout(), "muted")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "unmuted")
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the player status as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st := bridge.Status{Service: config.ServiceName, Status: "stopped"}
		resp, err := call(cmd, bridge.Request{Op: bridge.OpStatus})
		switch {
		case errors.Is(err, bridge.ErrNotRunning):
		case err != nil:
			return err
		case resp.Status != nil:
			st = *resp.Status
		}
		out, err := json.Marshal(st)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var quitCmd = &cobra.Command{
	Use:   "quit",
	Short: "Stop the running player",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := call(cmd, bridge.Request{Op: bridge.OpQuit})
		if errors.Is(err, bridge.ErrNotRunning) {
			fmt.Fprintln(cmd.OutOrStdout(), "not running")
			return nil
		}
		return err
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List output devices known to the running player",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := call(cmd, bridge.Request{Op: bridge.OpDevices})
		if err != nil && len(resp.Devices) == 0 {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, d := range resp.Devices {
			mark := " "
			if d.Selected {
				mark = "*"
			}
			id := d.ID
			if id == "" {
				id = "(default)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", mark, d.Label, id)
		}
		w.Flush()
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), err)
		}
		return nil
	},
}

func call(cmd *cobra.Command, req bridge.Request) (bridge.Response, error) {
	addr := bridgeAddr
	if addr == "" {
		addr = config.BridgeAddr()
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()
	return bridge.Call(ctx, addr, req)
}

func soundNames() []string {
	var names []string
	for _, id := range sound.IDs() {
		names = append(names, string(id))
	}
	return names
}

func soundList() string {
	return strings.Join(soundNames(), ", ")
}
