package main

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"check", "serve", "kb", "cache"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "compliance-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestCheckCommand_Flags(t *testing.T) {
	for _, name := range []string{"profile", "state", "city", "industry", "naics", "employees", "revenue", "factor", "physical-location", "xlsx", "output"} {
		assert.NotNil(t, checkCmd.Flags().Lookup(name), "check command should have --%s flag", name)
	}
	assert.Equal(t, "o", checkCmd.Flags().Lookup("output").Shorthand)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestKBCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range kbCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["validate"])
}

// execute runs the root command in a temp dir so no config.yaml is picked up.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCheckCommand_MissingCredentials(t *testing.T) {
	t.Setenv("COMPLIANCE_PERPLEXITY_KEY", "")
	t.Setenv("COMPLIANCE_FIRECRAWL_KEY", "")
	t.Setenv("COMPLIANCE_ANTHROPIC_KEY", "")

	_, err := execute(t, "check", "--state", "CA", "--industry", "retail")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "firecrawl.key is required")
}

func TestCheckCommand_InvalidProfile(t *testing.T) {
	_, err := execute(t, "check", "--state", "CA", "--industry", "retail", "--employees=-3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "employee count")
}

func TestRootCommand_LogLevelFlag(t *testing.T) {
	t.Cleanup(func() { logLevel = "" })
	flag := rootCmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, flag)
	assert.Empty(t, flag.DefValue)

	_, err := execute(t, "--log-level", "bogus", "kb", "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init logger")

	_, err = execute(t, "--log-level", "debug", "kb", "validate")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestRootCommand_Version(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "compliance-cli version dev")
}
