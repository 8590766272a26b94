package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"

	"pkt.systems/pslog"

	"pkt.systems/voxsync"
	"pkt.systems/voxsync/internal/appconfig"
	"pkt.systems/voxsync/internal/netinfo"
	"pkt.systems/voxsync/relay"
	"pkt.systems/voxsync/schema"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	var port int
	var noQR bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the voxsync relay service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.HTTP.Port = port
			}
			logger := pslog.Ctx(cmd.Context())
			logger.Info("relay config loaded",
				"port", cfg.HTTP.Port, "queue_depth", cfg.Hub.QueueDepth, "stt_debug", cfg.STT.Debug)

			server, err := voxsync.NewServer(voxsync.ServerConfig{
				Relay: relay.Config{
					Addr:       cfg.HTTP.Addr(),
					QueueDepth: cfg.Hub.QueueDepth,
				},
				OnListen: func(addr net.Addr) {
					printBanner(cmd.OutOrStdout(), addr, noQR)
				},
			})
			if err != nil {
				return err
			}
			if err := server.Start(cmd.Context()); err != nil {
				return err
			}
			err = server.Wait()
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = server.Stop(stopCtx)
			return err
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "path to config file")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config)")
	cmd.Flags().BoolVar(&noQR, "no-qr", false, "suppress the pairing QR code")
	return cmd
}

// printBanner writes the startup banner. The first line carries the startup
// marker the desktop supervisor matches child stdout against.
func printBanner(w io.Writer, addr net.Addr, noQR bool) {
	port := 0
	if tcp, ok := addr.(*net.TCPAddr); ok {
		port = tcp.Port
	}
	links := netinfo.LanLinks(port)

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintf(w, "  voxsync %s on %s\n", schema.StartupMarker, addr.String())
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintf(w, "  local:  http://localhost:%d\n", port)
	for _, link := range links {
		fmt.Fprintf(w, "  lan:    %s\n", link)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  enter a lan address in the mobile app settings")
	if !noQR && len(links) > 0 {
		fmt.Fprintln(w)
		qrterminal.GenerateHalfBlock(links[0], qrterminal.L, w)
	}
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w)
}
