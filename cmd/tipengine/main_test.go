package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command against a fresh database in a temp dir.
func execute(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("TIPENGINE_DB", dbPath)
	t.Setenv("TIPENGINE_LOG_LEVEL", "error")

	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.toml")}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCLI_LoadDistributeAndList(t *testing.T) {
	db := filepath.Join(t.TempDir(), "data", "tips.db")

	out, err := execute(t, db, "load", "single-booking")
	require.NoError(t, err)
	assert.Contains(t, out, "single-booking")

	out, err = execute(t, db, "distribute")
	require.NoError(t, err)
	assert.Contains(t, out, "Alex Avery")
	assert.Contains(t, out, "processed 10.00 USD = distributed 10.00 + overpaid 0.00")

	out, err = execute(t, db, "runs")
	require.NoError(t, err)
	assert.Contains(t, out, "10.00")
	assert.NotContains(t, out, "no runs stored")
}

func TestCLI_DryRunStoresNothing(t *testing.T) {
	db := filepath.Join(t.TempDir(), "tips.db")

	_, err := execute(t, db, "load", "messy-feed")
	require.NoError(t, err)

	out, err := execute(t, db, "distribute", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "dry run")
	assert.Contains(t, out, "DUPLICATE_TRANSACTION")

	out, err = execute(t, db, "runs")
	require.NoError(t, err)
	assert.Contains(t, out, "no runs stored")
}

func TestCLI_ImportBundle(t *testing.T) {
	dir := t.TempDir()
	bundle := filepath.Join(dir, "day.json")
	require.NoError(t, os.WriteFile(bundle, []byte(`{
		"shifts": [{"first_name":"Alex","last_name":"Avery","clock_in":"2025-03-10T09:00:00Z","clock_out":"2025-03-10T17:00:00Z"}],
		"transactions": [{"transaction_id":"t1","timestamp":"2025-03-10T10:00:00Z","tip":"3.00"}],
		"bookings": []
	}`), 0o644))
	db := filepath.Join(dir, "tips.db")

	out, err := execute(t, db, "import", bundle)
	require.NoError(t, err)
	assert.Contains(t, out, "1 shifts, 1 transactions, 0 bookings")

	out, err = execute(t, db, "distribute", "--json")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, `"processed": "3.00"`), out)
}

func TestCLI_Errors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "tips.db")

	_, err := execute(t, db, "load", "no-such-scenario")
	assert.Error(t, err)

	_, err = execute(t, db, "distribute")
	assert.ErrorContains(t, err, "configuration error")

	_, err = execute(t, db, "show", "missing-run")
	assert.ErrorContains(t, err, "not found")
}
