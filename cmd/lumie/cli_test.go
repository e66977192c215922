package main

import (
	"bytes"
	"strings"
	"testing"
)

func runRootCommandForTest(args ...string) (string, error) {
	root := buildRootCommand()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRootHelpListsSubcommands(t *testing.T) {
	output, err := runRootCommandForTest("--help")
	if err != nil {
		t.Fatalf("execute --help: %v\nOutput:\n%s", err, output)
	}

	for _, want := range []string{"serve", "chat", "validate", "version"} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q subcommand", want)
		}
	}
}

func TestRootWithoutSubcommandFails(t *testing.T) {
	if _, err := runRootCommandForTest(); err == nil {
		t.Fatal("expected an error when no subcommand is given")
	}
}

func TestUnknownSubcommandFails(t *testing.T) {
	if _, err := runRootCommandForTest("frobnicate"); err == nil {
		t.Fatal("expected an error for an unknown subcommand")
	}
}
