package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommands(t *testing.T) {
	names := map[string]bool{}
	for _, sub := range newRootCmd().Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "seed-faqs", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestUnknownCommand(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"frobnicate"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Equal(t, 1, execute(cmd))
}

func TestSeedMissingFile(t *testing.T) {
	_, err := run(t, "seed-faqs", "--file", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read seed file")
}

// Configuration is loaded once per process, so the database-backed
// commands share one test.
func TestMigrateAndSeed(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(dir, "support.db"))
	t.Setenv("LOG_LEVEL", "error")

	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema up to date")

	seed := filepath.Join(dir, "faqs.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(`faqs:
  - category: accounts
    question: How do I reset my password?
    answer: Use the forgot password link on the login page.
    keywords: [password, reset, login]
  - category: grades
    question: Where can I see my grades?
    answer: Open the Grades tab on your dashboard.
`), 0o600))

	out, err = run(t, "seed-faqs", "--file", seed)
	require.NoError(t, err)
	assert.Equal(t, "created 2, updated 0\n", out)

	out, err = run(t, "seed-faqs", "-f", seed)
	require.NoError(t, err)
	assert.Equal(t, "created 0, updated 2\n", out)
}
