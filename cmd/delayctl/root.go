package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/3xpluto/go-delay-control/internal/client"
	"github.com/3xpluto/go-delay-control/internal/delay"
	"github.com/3xpluto/go-delay-control/internal/follower"
	"github.com/3xpluto/go-delay-control/internal/logging"
)

type rootOptions struct {
	server  string
	route   string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "delayctl",
		Short:         "delayctl reads and updates the delay served by delayd",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	defaultServer := os.Getenv("DELAYD_URL")
	if defaultServer == "" {
		defaultServer = "http://127.0.0.1:8080"
	}
	rootCmd.PersistentFlags().StringVar(&opts.server, "server", defaultServer, "delayd base url (env DELAYD_URL)")
	rootCmd.PersistentFlags().StringVar(&opts.route, "route", "/api/delay", "delay route")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "request timeout")

	rootCmd.AddCommand(newGetCmd(opts), newSetCmd(opts), newWatchCmd(opts))
	return rootCmd
}

func (o *rootOptions) client() (*client.Client, error) {
	return client.New(o.server, o.route, client.WithTimeout(o.timeout))
}

func newGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the current delay in milliseconds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			v, err := c.Get(ctx)
			if err != nil {
				return fmt.Errorf("get delay: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), v)
			return err
		},
	}
}

func newSetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <milliseconds>",
		Short: "Update the delay; prints the value stored after clamping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("delay must be an integer: %w", err)
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			stored, err := c.Set(ctx, v)
			if err != nil {
				return fmt.Errorf("set delay: %w", err)
			}
			if stored != v {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d (clamped from %d)\n", stored, v)
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), stored)
			return err
		},
	}
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the delay and print every change until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			f := follower.New(c, watchBounds(),
				follower.WithInterval(interval),
				follower.WithLogger(logging.NewWithWriter(cmd.ErrOrStderr(), "warn")),
				follower.OnChange(func(_, cur int) { _, _ = fmt.Fprintln(out, cur) }),
			)
			// OnChange already printed v unless it equals the starting value.
			v, changed, err := f.Poll(cmd.Context())
			if err != nil {
				return fmt.Errorf("get delay: %w", err)
			}
			if !changed {
				if _, err := fmt.Fprintln(out, v); err != nil {
					return err
				}
			}
			return f.Run(cmd.Context())
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "poll interval")
	return cmd
}

// watchBounds does not clamp: the watcher prints whatever the service holds.
func watchBounds() delay.Bounds {
	const lo, hi = math.MinInt, math.MaxInt
	return delay.Bounds{Min: lo, Max: hi, Default: 0}
}
