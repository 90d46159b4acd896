package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mj1618/rum-replay/internal/rum"
	"github.com/mj1618/rum-replay/internal/server"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	expected := []string{"record", "diff", "session", "serve"}
	found := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		found[c.Name()] = true
	}
	for _, name := range expected {
		if !found[name] {
			t.Errorf("expected subcommand %q not found", name)
		}
	}
}

func TestRootCommand_Version(t *testing.T) {
	if rootCmd.Version == "" {
		t.Error("root command version should be set")
	}
}

func TestCommand_Flags(t *testing.T) {
	tests := []struct {
		cmd      string
		name     string
		flagType string
	}{
		{"record", "count", "int"},
		{"record", "interval", "duration"},
		{"record", "watch", "bool"},
		{"record", "view", "string"},
		{"record", "privacy", "string"},
		{"record", "screen", "string"},
		{"record", "events", "bool"},
		{"record", "tap", "stringArray"},
		{"diff", "privacy", "string"},
		{"session", "sample-rate", "float64"},
		{"session", "contexts", "bool"},
		{"serve", "transport", "string"},
		{"serve", "port", "int"},
		{"serve", "metrics-addr", "string"},
		{"serve", "otlp-endpoint", "string"},
	}
	for _, tt := range tests {
		c, _, err := rootCmd.Find([]string{tt.cmd})
		if err != nil {
			t.Fatalf("find %s: %v", tt.cmd, err)
		}
		f := c.Flags().Lookup(tt.name)
		if f == nil {
			t.Errorf("%s: expected flag %q not found", tt.cmd, tt.name)
			continue
		}
		if f.Value.Type() != tt.flagType {
			t.Errorf("%s --%s: expected type %q, got %q", tt.cmd, tt.name, tt.flagType, f.Value.Type())
		}
	}
}

// run executes the root command with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--log-level", "disabled"}, args...))
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		resetFlags()
	}()
	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores flag defaults between in-process runs.
func resetFlags() {
	for _, c := range append(rootCmd.Commands(), rootCmd) {
		c.Flags().VisitAll(resetFlag)
		c.PersistentFlags().VisitAll(resetFlag)
	}
}

func resetFlag(f *pflag.Flag) {
	if sv, ok := f.Value.(pflag.SliceValue); ok {
		_ = sv.Replace(nil)
	} else {
		_ = f.Value.Set(f.DefValue)
	}
	f.Changed = false
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func screen(label string) string {
	return `system:
  screen: {width: 400, height: 800}
root:
  id: 1
  kind: group
  bounds: [0, 0, 400, 800]
  children:
    - id: 2
      kind: text
      bounds: [10, 10, 200, 40]
      text: ` + label + "\n"
}

func TestDiffCommand(t *testing.T) {
	before := writeFile(t, "before.yaml", screen("one"))
	after := writeFile(t, "after.yaml", screen("two"))

	out, err := run(t, "diff", before, after, "--privacy", "allow")
	if err != nil {
		t.Fatal(err)
	}
	var res server.DiffResult
	if err := yaml.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid yaml %q: %v", out, err)
	}
	if res.Before != 2 || res.After != 2 || res.Mutation == nil || len(res.Mutation.Updates) != 1 {
		t.Errorf("unexpected diff:\n%s", out)
	}
}

func TestSessionCommand(t *testing.T) {
	script := writeFile(t, "script.yaml", `events:
  - at: 0s
    type: start_view
    key: home
  - at: 1s
    type: add_error
    message: boom
`)
	out, err := run(t, "session", script, "--sample-rate", "100")
	if err != nil {
		t.Fatal(err)
	}
	var res SessionResult
	if err := yaml.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid yaml %q: %v", out, err)
	}
	var errors int
	for _, e := range res.Events {
		if e.Type == rum.EventError {
			errors++
		}
	}
	if errors != 1 || res.Final.ViewName != "home" || res.Final.SessionID == rum.NullUUID {
		t.Errorf("unexpected session output:\n%s", out)
	}
}

func TestRecordCommand(t *testing.T) {
	fixture := writeFile(t, "screen.yaml", screen("hello"))
	out, err := run(t, "record", fixture, "--count", "2", "--interval", "1ms", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record bundle for two identical captures, got:\n%s", out)
	}
	for _, want := range []string{`"type":4`, `"type":6`, `"type":10`, `"view_id"`} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("record bundle missing %s: %s", want, lines[0])
		}
	}
}

func TestRecordCommand_Taps(t *testing.T) {
	fixture := writeFile(t, "screen.yaml", screen("hello"))
	out, err := run(t, "record", fixture, "--tap", "5,15", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected a snapshot bundle and a touch bundle, got:\n%s", out)
	}
	for _, want := range []string{`"type":11`, `"pointerEventType":"down"`, `"pointerEventType":"up"`, `"x":5`, `"y":15`} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("touch bundle missing %s: %s", want, lines[1])
		}
	}
}

func TestRecordCommand_Errors(t *testing.T) {
	fixture := writeFile(t, "screen.yaml", screen("hello"))
	tests := [][]string{
		{"record", fixture, "--count", "0"},
		{"record", fixture, "--screen", "wide"},
		{"record", fixture, "--privacy", "blur"},
		{"record", fixture, "--tap", "12"},
		{"record", filepath.Join(t.TempDir(), "missing.yaml")},
		{"--format", "xml", "record", fixture},
	}
	for _, args := range tests {
		if _, err := run(t, args...); err == nil {
			t.Errorf("expected an error for %v", args)
		}
	}
}
