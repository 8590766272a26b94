package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"

	"pkt.systems/voxsync/internal/appconfig"
	"pkt.systems/voxsync/internal/eventbus"
	"pkt.systems/voxsync/internal/netinfo"
	"pkt.systems/voxsync/schema"
	"pkt.systems/voxsync/supervisor"
)

func newSuperviseCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "supervise",
		Short: "Run the desktop supervisor for a local relay process",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			logger := pslog.Ctx(cmd.Context())

			var extraEnv []string
			if cfg.STT.Debug {
				extraEnv = append(extraEnv, "VOXSYNC_STT_DEBUG=1")
			}
			extraEnv = append(extraEnv, fmt.Sprintf("VOXSYNC_PORT=%d", cfg.HTTP.Port))

			bus := eventbus.New(logger)
			sup := supervisor.New(supervisor.Config{
				Binary:      cfg.Supervisor.Binary,
				Args:        cfg.Supervisor.Args,
				WorkDir:     cfg.Supervisor.WorkDir,
				ExtraEnv:    extraEnv,
				LogCapacity: cfg.Supervisor.LogLines,
			}, bus, logger)

			events, cancelSub := bus.Subscribe()
			defer cancelSub()

			out := cmd.OutOrStdout()
			for _, link := range netinfo.LanLinks(cfg.HTTP.Port) {
				fmt.Fprintf(out, "lan link: %s\n", link)
			}

			if res := sup.Start(cmd.Context()); !res.OK {
				return fmt.Errorf("start relay: %s", res.Message)
			}

			ctx := cmd.Context()
			for {
				select {
				case <-ctx.Done():
					if res := sup.Stop(context.Background()); !res.OK && sup.Status() != schema.StatusStopped {
						logger.Warn("supervisor stop failed", "message", res.Message)
					}
					waitStopped(sup)
					return nil
				case event, ok := <-events:
					if !ok {
						return nil
					}
					switch event.Type {
					case eventbus.EventStatus:
						if event.Message != "" {
							fmt.Fprintf(out, "status: %s (%s)\n", event.Status, event.Message)
						} else {
							fmt.Fprintf(out, "status: %s\n", event.Status)
						}
						if event.Status == schema.StatusError || event.Status == schema.StatusStopped {
							return nil
						}
					case eventbus.EventLog:
						fmt.Fprintln(out, event.Line)
					}
				}
			}
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "path to config file")
	return cmd
}

// waitStopped polls for the relay exit after a graceful stop request.
func waitStopped(sup *supervisor.Supervisor) {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		status := sup.Status()
		if status == schema.StatusStopped || status == schema.StatusError {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}
