package cmd

import (
	"bytes"
	"io"
	"testing"

	"github.com/aretw0/waypoint/internal/testutils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const greetingYAML = `
name: greeting
nodes:
  - {id: start, type: Start}
  - {id: ask, type: Message, message: hello}
  - {id: check, type: Condition, condition_text: Said hello?, condition_expression: "message == 'hello'"}
  - {id: glad, type: Message, message: glad you said hello}
  - {id: sad, type: Message, message: sorry to see you go}
  - {id: end, type: End}
edges:
  - {id: e1, from: start, to: ask}
  - {id: e2, from: ask, to: check}
  - {id: e3, from: check, to: glad, status: "Yes"}
  - {id: e4, from: check, to: sad, status: "No"}
  - {id: e5, from: glad, to: end}
  - {id: e6, from: sad, to: end}
`

// isolate runs the test in an empty directory with no user config.
func isolate(t *testing.T) string {
	t.Helper()
	dir := testutils.SetupTestDir(t)
	t.Setenv("WAYPOINT_LOG_LEVEL", "error")
	return dir
}

func writeDefinition(t *testing.T, dir, name, content string) string {
	return testutils.WriteFile(t, dir, name, content)
}

// executeCommand runs the root command with args and returns what it wrote to stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores every flag to its default, since cobra keeps values between runs.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}
