package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GATEWAY_ANON_KEY", "anon")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:54321", cfg.GatewayURL)
	require.Equal(t, "ws://localhost:54321/realtime/v1/websocket", cfg.RealtimeURL)
	require.Equal(t, "127.0.0.1:8090", cfg.BridgeAddr)
	require.Equal(t, "chatamata.events", cfg.AuditExchange)
	require.False(t, cfg.Debug)
}

func TestLoadMissingAnonKey(t *testing.T) {
	t.Setenv("GATEWAY_ANON_KEY", "")

	_, err := Load()
	require.Error(t, err)
}

func TestDeriveRealtimeURL(t *testing.T) {
	cases := []struct {
		gateway string
		want    string
	}{
		{"https://proj.example.co", "wss://proj.example.co/realtime/v1/websocket"},
		{"http://localhost:54321/", "ws://localhost:54321/realtime/v1/websocket"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, deriveRealtimeURL(tc.gateway))
	}
}

func TestLoadExplicitRealtimeURL(t *testing.T) {
	t.Setenv("GATEWAY_ANON_KEY", "anon")
	t.Setenv("REALTIME_URL", "wss://rt.example.co/socket")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "wss://rt.example.co/socket", cfg.RealtimeURL)
}
