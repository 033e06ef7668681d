// Package config resolves a node's startup configuration from CLI flags
// with an environment-variable fallback.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/martelogan/simulated-link-state-routing/internal/topology"
)

const (
	// DefaultMinPort and DefaultMaxPort bound the listen-port scan when no
	// override is supplied.
	DefaultMinPort = 20000
	DefaultMaxPort = 32767
)

// Config holds everything main needs to stand up a Node.
type Config struct {
	NodeId    topology.NodeId
	Host      string
	MinPort   int
	MaxPort   int
	Heartbeat bool
}

// Resolve builds a Config from explicit flag values, falling back to
// LSROUTED_NODE_ID, LSROUTED_MIN_PORT, and LSROUTED_MAX_PORT when a flag
// was left at its default (empty for the node id, DefaultMinPort and
// DefaultMaxPort for the ports).
func Resolve(nodeIdFlag string, minPortFlag, maxPortFlag int, heartbeat bool) (Config, error) {
	nodeId := nodeIdFlag
	if nodeId == "" {
		nodeId = os.Getenv("LSROUTED_NODE_ID")
	}
	if nodeId == "" {
		return Config{}, fmt.Errorf("config: node id required (--node-id or LSROUTED_NODE_ID)")
	}

	minPort, err := intOrEnv(minPortFlag, DefaultMinPort, "LSROUTED_MIN_PORT")
	if err != nil {
		return Config{}, err
	}
	maxPort, err := intOrEnv(maxPortFlag, DefaultMaxPort, "LSROUTED_MAX_PORT")
	if err != nil {
		return Config{}, err
	}
	if minPort > maxPort {
		return Config{}, fmt.Errorf("config: min port %d exceeds max port %d", minPort, maxPort)
	}

	return Config{
		NodeId:    topology.NodeId(nodeId),
		Host:      "0.0.0.0",
		MinPort:   minPort,
		MaxPort:   maxPort,
		Heartbeat: heartbeat,
	}, nil
}

// intOrEnv returns flagVal if it differs from def, otherwise consults the
// named environment variable, otherwise returns def.
func intOrEnv(flagVal, def int, envName string) (int, error) {
	if flagVal != def {
		return flagVal, nil
	}
	raw := os.Getenv(envName)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer: %w", envName, err)
	}
	return v, nil
}
