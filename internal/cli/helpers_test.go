package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const doublingProgram = `
program: doubling: {
	init: "AB"
	rules: ["AB -> ABAB"]
	steps: 3
}
`

// writeProgram writes src to dir/name and returns the path.
func writeProgram(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

// execute runs cmd with args and returns stdout, stderr and the error.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// projectPath returns a path under the repository root.
func projectPath(parts ...string) string {
	return filepath.Join(append([]string{"..", ".."}, parts...)...)
}
