package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommandRegistration(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}

	for _, want := range []string{"serve", "resolve", "tickets", "apply"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestTicketsSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range ticketsCmd.Commands() {
		names[cmd.Name()] = true
	}

	for _, want := range []string{"list", "show", "reject", "clear"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly-10", truncate("exactly-10", 10))
	assert.Equal(t, "a-much-...", truncate("a-much-longer-string", 10))
}
