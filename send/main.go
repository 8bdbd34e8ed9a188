// Command arena-send plays the arena client's side of the bridge for testing.
// Each invocation sends one command and writes the response to stdout as TOML.
//
// Usage:
//
//	arena-send get-source Bar
//	arena-send new-task bar.toml
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	arenabridge "github.com/Paranoid-AF/arenabridge"
	"github.com/Paranoid-AF/arenabridge/peer"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var addr string
	var timeout time.Duration

	root := &cobra.Command{
		Use:           "arena-send",
		Short:         "Send one command to a running arena bridge",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&addr, "addr", "", "bridge address (default from arenabridge config)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", peer.DefaultTimeout, "exchange timeout")

	client := func() (*peer.Client, error) {
		if addr == "" {
			cfg, err := arenabridge.LoadConfig()
			if err != nil {
				return nil, err
			}
			addr = arenabridge.ResolveAddr(cfg)
		}
		c := peer.NewClient(addr)
		c.Timeout = timeout
		return c, nil
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "get-source NAME",
			Short: "Fetch the generated source of a task",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := client()
				if err != nil {
					return err
				}
				status, source, err := c.GetSource(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return peer.WriteResult(cmd.OutOrStdout(), peer.Result{
					Command: string(arenabridge.GetSource),
					Task:    args[0],
					Status:  string(status),
					Source:  source,
				})
			},
		},
		&cobra.Command{
			Use:   "new-task FILE",
			Short: "Deliver a task described by a TOML file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				task, err := peer.LoadTaskFile(args[0])
				if err != nil {
					return err
				}
				c, err := client()
				if err != nil {
					return err
				}
				status, err := c.NewTask(cmd.Context(), task)
				if err != nil {
					return err
				}
				return peer.WriteResult(cmd.OutOrStdout(), peer.Result{
					Command: string(arenabridge.NewTask),
					Task:    task.Name,
					Status:  string(status),
				})
			},
		},
	)
	return root
}

