package params

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.Equal(t, "GBPUSD", cfg.Partition.Pair)
	require.Equal(t, 200, cfg.Partition.MaxOrders)
	require.Equal(t, "primary", cfg.Partition.Role)
	require.Equal(t, ":8080", cfg.Server.APIAddr)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PAIR", "EURUSD")
	t.Setenv("MAX_ORDERS", "50")
	t.Setenv("ROLE", "secondary")
	t.Setenv("API_ADDR", ":9090")

	cfg := LoadFromEnv("does-not-exist.env")
	require.Equal(t, "EURUSD", cfg.Partition.Pair)
	require.Equal(t, 50, cfg.Partition.MaxOrders)
	require.Equal(t, "secondary", cfg.Partition.Role)
	require.Equal(t, ":9090", cfg.Server.APIAddr)
}

func TestBadMaxOrdersKeepsDefault(t *testing.T) {
	t.Setenv("MAX_ORDERS", "zero")
	cfg := LoadFromEnv("does-not-exist.env")
	require.Equal(t, Default().Partition.MaxOrders, cfg.Partition.MaxOrders)
}
