package config

import "testing"

func TestResolveRequiresNodeId(t *testing.T) {
	if _, err := Resolve("", DefaultMinPort, DefaultMaxPort, false); err == nil {
		t.Fatal("expected error when no node id is supplied")
	}
}

func TestResolveUsesEnvFallback(t *testing.T) {
	t.Setenv("LSROUTED_NODE_ID", "3.3.3.3")
	t.Setenv("LSROUTED_MIN_PORT", "21000")

	cfg, err := Resolve("", DefaultMinPort, DefaultMaxPort, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.NodeId != "3.3.3.3" {
		t.Fatalf("expected node id from env, got %s", cfg.NodeId)
	}
	if cfg.MinPort != 21000 {
		t.Fatalf("expected min port from env, got %d", cfg.MinPort)
	}
	if cfg.MaxPort != DefaultMaxPort {
		t.Fatalf("expected default max port, got %d", cfg.MaxPort)
	}
}

func TestResolveFlagTakesPrecedenceOverEnv(t *testing.T) {
	t.Setenv("LSROUTED_NODE_ID", "3.3.3.3")

	cfg, err := Resolve("1.1.1.1", DefaultMinPort, DefaultMaxPort, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.NodeId != "1.1.1.1" {
		t.Fatalf("expected flag value to win, got %s", cfg.NodeId)
	}
}

func TestResolveRejectsInvertedRange(t *testing.T) {
	if _, err := Resolve("1.1.1.1", 30000, 20000, false); err == nil {
		t.Fatal("expected error for min port exceeding max port")
	}
}
