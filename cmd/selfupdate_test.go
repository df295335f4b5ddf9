package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelfUpdateCommand(t *testing.T) {
	cmd := newSelfUpdateCmd()
	assert.Equal(t, "self-update", cmd.Use)
	assert.NotNil(t, cmd.RunE)

	flag := cmd.Flags().Lookup("repo")
	require.NotNil(t, flag, "--repo flag should be registered")
	assert.Equal(t, defaultRepoSlug, flag.DefValue)
}

func TestRunSelfUpdate_RefusesDevelopmentBuilds(t *testing.T) {
	original := rootCmd.Version
	t.Cleanup(func() { rootCmd.Version = original })

	for _, version := range []string{"", "dev"} {
		t.Run("version="+version, func(t *testing.T) {
			rootCmd.Version = version
			err := runSelfUpdate(nil, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "cannot self-update a development version")
		})
	}
}

func TestSelfUpdateCommandHelp(t *testing.T) {
	cmd := newSelfUpdateCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "latest GitHub release")
	assert.Contains(t, buf.String(), "--repo")
}
