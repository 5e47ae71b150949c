package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vmorsell/app-mixer/internal/volume"
	"github.com/vmorsell/app-mixer/pkg/model"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the session list whenever it changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		poller := volume.NewPoller(controller, cfg.PollInterval)
		updates := poller.Listen()
		defer poller.Stop()

		out := cmd.OutOrStdout()
		for {
			select {
			case <-ctx.Done():
				return nil
			case u, ok := <-updates:
				if !ok {
					return nil
				}
				fmt.Fprintln(out, describe(u))
				if err := writeTable(out, u.Sessions); err != nil {
					return err
				}
				fmt.Fprintln(out)
			}
		}
	},
}

func describe(u model.SessionsUpdate) string {
	var parts []string
	if len(u.Added) > 0 {
		parts = append(parts, "added "+strings.Join(u.Added, ", "))
	}
	if len(u.Removed) > 0 {
		parts = append(parts, "removed "+strings.Join(u.Removed, ", "))
	}
	if len(u.Changed) > 0 {
		parts = append(parts, "changed "+strings.Join(u.Changed, ", "))
	}
	return "[" + strings.Join(parts, "; ") + "]"
}
