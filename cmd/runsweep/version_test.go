package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	origVersion, origCommit := Version, GitCommit
	defer func() { Version, GitCommit = origVersion, origCommit }()
	Version = "0.1.0-test"
	GitCommit = "abc123"

	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	for _, want := range []string{"runsweep 0.1.0-test", "Git Commit: abc123", "Go Version:"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("version output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRootCommands(t *testing.T) {
	want := []string{"run", "scan", "serve", "intents", "ticket", "validate", "version", "completion"}
	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Errorf("command %q not registered", name)
		}
	}

	if f := rootCmd.PersistentFlags().Lookup("config"); f == nil || f.Shorthand != "c" || f.DefValue != "runsweep.yaml" {
		t.Errorf("unexpected --config flag: %+v", f)
	}
}
