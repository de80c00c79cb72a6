package redis

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	t.Parallel()

	server := miniredis.RunT(t)
	port, err := strconv.Atoi(server.Port())
	require.NoError(t, err)

	client := NewClient(
		WithHost(server.Host()),
		WithPort(port),
		WithDB(0),
		WithMaxIdleConns(1),
		WithMaxOpenConns(2),
		WithOnConnect(Ping()),
	)
	defer Shutdown(client)

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	value, err := server.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v", value)
}
