package cmd

import (
	"testing"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	expected := []string{
		"serve", "simulate", "devices", "find", "tree", "viewport",
		"tap", "long-press", "swipe", "type", "wait", "assert", "do", "annotate", "observe",
	}
	commands := rootCmd.Commands()

	found := make(map[string]bool)
	for _, c := range commands {
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

func TestRootCommand_PersistentFlags(t *testing.T) {
	for _, name := range []string{"format", "pretty", "config", "hub", "log-level", "log-file", "request-timeout"} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("expected persistent flag --%s", name)
		}
	}
}

func TestCommand_Flags(t *testing.T) {
	tests := []struct {
		cmd      string
		flag     string
		flagType string
	}{
		{"find", "selector", "string"},
		{"find", "all", "bool"},
		{"find", "device", "string"},
		{"find", "platform", "string"},
		{"tap", "at", "string"},
		{"long-press", "duration", "int"},
		{"swipe", "direction", "string"},
		{"swipe", "distance", "float64"},
		{"type", "text", "string"},
		{"wait", "gone", "bool"},
		{"wait", "timeout", "float64"},
		{"assert", "text-contains", "string"},
		{"assert", "count", "int"},
		{"tree", "depth", "int"},
		{"tree", "prune", "bool"},
		{"tree", "flat", "bool"},
		{"do", "stop-on-error", "bool"},
		{"annotate", "label", "string"},
		{"annotate", "scale", "float64"},
		{"serve", "mcp", "string"},
		{"serve", "mcp-port", "int"},
		{"simulate", "tree", "string"},
	}

	for _, tt := range tests {
		c, _, err := rootCmd.Find([]string{tt.cmd})
		if err != nil || c == rootCmd {
			t.Errorf("command %q not found", tt.cmd)
			continue
		}
		f := c.Flags().Lookup(tt.flag)
		if f == nil {
			t.Errorf("%s: expected flag %q not found", tt.cmd, tt.flag)
			continue
		}
		if f.Value.Type() != tt.flagType {
			t.Errorf("%s: flag %q: expected type %q, got %q", tt.cmd, tt.flag, tt.flagType, f.Value.Type())
		}
	}
}
