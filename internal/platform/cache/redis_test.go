package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestNewAndChecker(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := New(context.Background(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, Checker{Client: client}.Ping(context.Background()))

	mr.Close()
	require.Error(t, Checker{Client: client}.Ping(context.Background()))
}

func TestCheckerWithoutClient(t *testing.T) {
	require.Error(t, Checker{}.Ping(context.Background()))
}
