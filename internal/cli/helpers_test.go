package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querylab/internal/testutil"
)

// writeCUE writes a CUE file into dir under the lessons package.
func writeCUE(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("package lessons\n"+body), 0o644))
	return path
}

// schoolDir returns a scenario directory holding the school scenario.
func schoolDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeCUE(t, dir, "school.cue", testutil.SchoolCUE)
	return dir
}

// execute runs a command with args and returns what it wrote to stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
