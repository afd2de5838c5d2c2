package main

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func parseKeywords(t *testing.T, args ...string) []string {
	t.Helper()
	var got []string
	app := &cli.App{
		Name:   "tree-pipeline",
		Flags:  flags(),
		Writer: io.Discard,
		Action: func(c *cli.Context) error {
			got = keywords(c, "tree")
			return nil
		},
	}
	require.NoError(t, app.Run(append([]string{"tree-pipeline"}, args...)))
	return got
}

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"tree"}, parseKeywords(t, "--analyze"))
	assert.Equal(t, []string{"tree", "oak"}, parseKeywords(t, "--analyze", "--keywords", "tree,oak"))
	assert.Equal(t, []string{"tree", "oak"}, parseKeywords(t, "--keywords", "tree", "--keywords", "oak"))
	assert.Equal(t, []string{"oak"}, parseKeywords(t, "--keywords", "oak", "--analyze"))
}

func TestRunRejectsPositionalArguments(t *testing.T) {
	code := -1
	prev := cli.OsExiter
	cli.OsExiter = func(c int) { code = c }
	t.Cleanup(func() { cli.OsExiter = prev })

	prevErr := cli.ErrWriter
	cli.ErrWriter = io.Discard
	t.Cleanup(func() { cli.ErrWriter = prevErr })

	app := &cli.App{
		Name:      "tree-pipeline",
		Flags:     flags(),
		Action:    run,
		Writer:    io.Discard,
		ErrWriter: io.Discard,
	}
	err := app.Run([]string{"tree-pipeline", "--keywords", "a", "b", "--analyze"})

	require.Error(t, err)
	assert.Equal(t, 2, code)
	assert.Contains(t, err.Error(), `"b" "--analyze"`)
}

func TestRunExitsWithoutVisionCredentials(t *testing.T) {
	t.Setenv("VISION_BACKEND", "azure")
	t.Setenv("AZURE_COMPUTER_VISION_KEY", "")
	t.Setenv("AZURE_COMPUTER_VISION_ENDPOINT", "")

	code := -1
	prev := cli.OsExiter
	cli.OsExiter = func(c int) { code = c }
	t.Cleanup(func() { cli.OsExiter = prev })

	app := &cli.App{
		Name:      "tree-pipeline",
		Flags:     flags(),
		Action:    run,
		Writer:    io.Discard,
		ErrWriter: io.Discard,
	}
	err := app.Run([]string{"tree-pipeline", "--analyze"})

	assert.Error(t, err)
	assert.Equal(t, 1, code)
}
