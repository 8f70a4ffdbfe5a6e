package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// isolateEnv points every config and state lookup at temp dirs, clears
// FCMIRROR_* overrides and runs the test from an empty directory.
func isolateEnv(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	state := t.TempDir()
	t.Setenv("FCMIRROR_HOME", state)
	for _, k := range []string{
		"FCMIRROR_BASE_URL", "FCMIRROR_TIMEOUT", "FCMIRROR_DEST", "FCMIRROR_UI",
		"FCMIRROR_MAX_DEPTH", "FCMIRROR_BATCH_SIZE", "FCMIRROR_LOG_LEVEL", "FCMIRROR_HISTORY",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("NO_COLOR", "1")
	t.Chdir(t.TempDir())

	orig := stdinIsTerminal
	stdinIsTerminal = func() bool { return false }
	t.Cleanup(func() { stdinIsTerminal = orig })
	return state
}

// run executes the root command with args and returns combined output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)

	err := root.Execute()
	require.NoError(t, stopRun(nil, nil))
	return buf.String(), err
}
