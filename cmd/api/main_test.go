package main

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandWiresSubcommands(t *testing.T) {
	root := newRootCommand()

	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, "serve", serve.Name())

	sweep, _, err := root.Find([]string{"sweep"})
	require.NoError(t, err)
	assert.Equal(t, "sweep", sweep.Name())

	olderThan, err := sweep.Flags().GetDuration("older-than")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, olderThan)

	dryRun, err := sweep.Flags().GetBool("dry-run")
	require.NoError(t, err)
	assert.False(t, dryRun)
}

func TestSweepRejectsAgeBelowMinimum(t *testing.T) {
	for _, age := range []string{"0", "-1h", "30s"} {
		root := newRootCommand()
		root.SetOut(io.Discard)
		root.SetErr(io.Discard)
		root.SetArgs([]string{"sweep", "--older-than=" + age})

		err := root.Execute()
		require.Error(t, err, "age %s", age)
		assert.Contains(t, err.Error(), "below the minimum")
	}
}
