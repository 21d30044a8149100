package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "prodreg", cmd.Use)
	assert.Contains(t, cmd.Long, "product registry")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"register", "event", "get", "exists", "history", "notifications", "hash", "verify", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "prodreg.db", dbFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
}

func TestRegisterCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	registerCmd, _, err := cmd.Find([]string{"register"})
	require.NoError(t, err)

	for _, name := range []string{"id", "quantity", "hash", "hash-text", "caller"} {
		assert.NotNil(t, registerCmd.Flags().Lookup(name), "flag --%s", name)
	}
}

func TestNotificationsCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	notifCmd, _, err := cmd.Find([]string{"notifications"})
	require.NoError(t, err)

	followFlag := notifCmd.Flags().Lookup("follow")
	require.NotNil(t, followFlag)
	assert.Equal(t, "f", followFlag.Shorthand)

	pollFlag := notifCmd.Flags().Lookup("poll-interval")
	require.NotNil(t, pollFlag)
	assert.Equal(t, "1s", pollFlag.DefValue)
}

func TestExecute_Version(t *testing.T) {
	isolateConfig(t)
	stdout := &bytes.Buffer{}

	code := Execute(context.Background(), []string{"--version"}, stdout, &bytes.Buffer{})
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout.String(), "prodreg version")
}

func TestExecute_InvalidFormat(t *testing.T) {
	isolateConfig(t)
	stderr := &bytes.Buffer{}

	code := Execute(context.Background(), []string{"--format", "xml", "exists", "--id", "1"}, &bytes.Buffer{}, stderr)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr.String(), "invalid configuration")
}

func TestExecute_UnknownFlag(t *testing.T) {
	isolateConfig(t)
	stderr := &bytes.Buffer{}

	code := Execute(context.Background(), []string{"get", "--bogus"}, &bytes.Buffer{}, stderr)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr.String(), "unknown flag")
}

func TestExecute_EnvironmentConfig(t *testing.T) {
	dir := isolateConfig(t)
	db := filepath.Join(dir, "env.db")
	t.Setenv("PRODREG_DB", db)
	t.Setenv("PRODREG_FORMAT", "json")

	stdout := &bytes.Buffer{}
	code := Execute(context.Background(), []string{"exists", "--id", "1"}, stdout, &bytes.Buffer{})
	require.Equal(t, ExitSuccess, code)
	assert.JSONEq(t, `{"status":"ok","data":{"id":1,"exists":false}}`, stdout.String())

	_, err := os.Stat(db)
	assert.NoError(t, err, "database should be created at PRODREG_DB")
}

func TestExecute_ConfigFile(t *testing.T) {
	dir := isolateConfig(t)
	db := filepath.Join(dir, "file.db")
	cfgPath := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("db: "+db+"\nformat: json\n"), 0644))

	stdout := &bytes.Buffer{}
	code := Execute(context.Background(), []string{"--config", cfgPath, "exists", "--id", "3"}, stdout, &bytes.Buffer{})
	require.Equal(t, ExitSuccess, code)
	assert.JSONEq(t, `{"status":"ok","data":{"id":3,"exists":false}}`, stdout.String())

	_, err := os.Stat(db)
	assert.NoError(t, err)
}

func TestExecute_MissingConfigFile(t *testing.T) {
	dir := isolateConfig(t)
	stderr := &bytes.Buffer{}

	code := Execute(context.Background(), []string{"--config", filepath.Join(dir, "nope.yaml"), "exists", "--id", "1"}, &bytes.Buffer{}, stderr)
	assert.Equal(t, ExitCommandError, code)
	assert.NotEmpty(t, stderr.String())
}

// isolateConfig points HOME and the working directory at an empty temp dir
// so no config file on the machine leaks into a test.
func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	return dir
}
