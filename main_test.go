package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUsageWithoutMountpoint(t *testing.T) {
	var out bytes.Buffer
	app.Writer = &out
	defer func() { app.Writer = nil }()

	require.NoError(t, app.Run(context.Background(), []string{"gistfs", "-u", "alice,bob"}))
	require.Contains(t, out.String(), "<mountpoint>")
	require.Contains(t, out.String(), "--users")
}
