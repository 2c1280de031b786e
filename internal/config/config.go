package config

import (
	"fmt"
	"os"
	"strings"
)

// Config holds the daemon configuration, read from the environment.
type Config struct {
	// Hosted platform.
	GatewayURL  string
	RealtimeURL string
	AnonKey     string

	// Local bridge surface for the presentation layer.
	BridgeAddr string

	// Audit / telemetry.
	AMQPURL       string
	AuditExchange string
	AuditRouting  string
	OTLPEndpoint  string
	Environment   string

	Debug bool
}

// Load reads configuration from the environment and validates it.
func Load() (Config, error) {
	cfg := Config{
		GatewayURL:    getEnv("GATEWAY_URL", "http://localhost:54321"),
		RealtimeURL:   getEnv("REALTIME_URL", ""),
		AnonKey:       getEnv("GATEWAY_ANON_KEY", ""),
		BridgeAddr:    getEnv("BRIDGE_ADDR", "127.0.0.1:8090"),
		AMQPURL:       getEnv("AMQP_URL", ""),
		AuditExchange: getEnv("AUDIT_EXCHANGE", "chatamata.events"),
		AuditRouting:  getEnv("AUDIT_ROUTING_KEY", "audit.client"),
		OTLPEndpoint:  getEnv("OTLP_ENDPOINT", ""),
		Environment:   getEnv("ENVIRONMENT", "development"),
		Debug:         getEnv("DEBUG", "") == "true",
	}

	if cfg.GatewayURL == "" {
		return Config{}, fmt.Errorf("GATEWAY_URL must not be empty")
	}
	if cfg.AnonKey == "" {
		return Config{}, fmt.Errorf("GATEWAY_ANON_KEY must not be empty")
	}
	if cfg.RealtimeURL == "" {
		cfg.RealtimeURL = deriveRealtimeURL(cfg.GatewayURL)
	}
	if cfg.BridgeAddr == "" {
		return Config{}, fmt.Errorf("BRIDGE_ADDR must not be empty")
	}

	return cfg, nil
}

// deriveRealtimeURL maps the gateway base URL onto the realtime websocket
// endpoint the platform exposes alongside it.
func deriveRealtimeURL(gatewayURL string) string {
	ws := gatewayURL
	switch {
	case strings.HasPrefix(ws, "https://"):
		ws = "wss://" + strings.TrimPrefix(ws, "https://")
	case strings.HasPrefix(ws, "http://"):
		ws = "ws://" + strings.TrimPrefix(ws, "http://")
	}
	return strings.TrimRight(ws, "/") + "/realtime/v1/websocket"
}

func getEnv(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	val = strings.TrimSpace(val)
	if val == "" {
		return fallback
	}
	return val
}
