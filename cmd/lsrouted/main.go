// Command lsrouted runs one simulated link-state routing node: it binds a
// listening socket, then drives a REPL over stdin for the client-initiated
// flows.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/martelogan/simulated-link-state-routing/internal/client"
	"github.com/martelogan/simulated-link-state-routing/internal/config"
	"github.com/martelogan/simulated-link-state-routing/internal/heartbeat"
	"github.com/martelogan/simulated-link-state-routing/internal/node"
	"github.com/martelogan/simulated-link-state-routing/internal/repl"
	"github.com/martelogan/simulated-link-state-routing/internal/server"
	"github.com/martelogan/simulated-link-state-routing/internal/topology"
)

var (
	nodeIdFlag    string
	minPortFlag   int
	maxPortFlag   int
	heartbeatFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "lsrouted",
	Short: "run a simulated link-state routing node",
	Long: `lsrouted binds a listening socket for one simulated router and drives
a REPL for attach/start/connect/disconnect/neighbors/detect/quit commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Resolve(nodeIdFlag, minPortFlag, maxPortFlag, heartbeatFlag)
		if err != nil {
			return err
		}

		log := zap.Must(zap.NewProduction())
		defer log.Sync()

		return run(cfg, log)
	},
}

func init() {
	rootCmd.Flags().StringVar(&nodeIdFlag, "node-id", "", "simulated node id (required, or LSROUTED_NODE_ID)")
	rootCmd.Flags().IntVar(&minPortFlag, "min-port", config.DefaultMinPort, "lowest port to scan when binding (or LSROUTED_MIN_PORT)")
	rootCmd.Flags().IntVar(&maxPortFlag, "max-port", config.DefaultMaxPort, "highest port to scan when binding (or LSROUTED_MAX_PORT)")
	rootCmd.Flags().BoolVar(&heartbeatFlag, "heartbeat", false, "enable periodic HEARTBEAT liveness checks on TWO_WAY neighbors")
}

// run binds the node's listening socket, starts serving in the background,
// optionally starts the heartbeat monitor, and then blocks on the REPL.
func run(cfg config.Config, log *zap.Logger) error {
	n := node.New(cfg.NodeId, topology.ProcessEndpoint{Host: cfg.Host}, cfg.MinPort, cfg.MaxPort, log)

	srv, err := server.Bind(n, cfg.Host, client.DefaultDialer)
	if err != nil {
		return fmt.Errorf("lsrouted: %w", err)
	}
	defer srv.Close()

	go func() {
		if err := srv.Serve(); err != nil {
			log.Warn("lsrouted: server loop stopped", zap.Error(err))
		}
	}()

	if cfg.Heartbeat {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		mon := heartbeat.NewMonitor(n, client.DefaultDialer)
		go mon.Run(ctx)
	}

	log.Info("lsrouted: node ready", zap.String("node_id", string(n.Id)), zap.String("addr", n.Endpoint.String()))
	repl.Run(n, client.DefaultDialer, os.Stdin, os.Stdout)
	return nil
}

// Execute runs the root command; errors are printed and exit the process
// with a non-zero status.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
