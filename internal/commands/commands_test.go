package commands

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/core"
)

// useFileBackend points every command at a fresh file backend so state
// carries over between invocations.
func useFileBackend(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATA_BACKEND", "file")
	t.Setenv("DATA_DIR", dir)
	t.Setenv("AMQP_URL", "")
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	return dir
}

func runTally(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestAddListDelete(t *testing.T) {
	useFileBackend(t)

	out, err := runTally(t, "add", "--subject", "Lunch", "--amount", "12,50", "--date", "2024-01-01")
	require.NoError(t, err)
	assert.Contains(t, out, "Added #0 Lunch $12.50 (Food)")

	_, err = runTally(t, "add", "--subject", "Fuel", "--category", "gas", "--description", "half tank", "--amount", "30", "--date", "2024-01-02")
	require.NoError(t, err)

	out, err = runTally(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "SUBJECT")
	assert.Contains(t, out, "Lunch")
	assert.Contains(t, out, "half tank")
	assert.Contains(t, out, "Remaining -$42.50 of $0.00")

	out, err = runTally(t, "delete", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted #0, remaining -$30.00")

	out, err = runTally(t, "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "Lunch")
	assert.Contains(t, out, "Fuel")
}

func TestAddValidation(t *testing.T) {
	useFileBackend(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing subject flag", []string{"add", "--amount", "3"}},
		{"bad amount", []string{"add", "--subject", "x", "--amount", "abc"}},
		{"bad category", []string{"add", "--subject", "x", "--amount", "3", "--category", "Rent"}},
		{"bad date", []string{"add", "--subject", "x", "--amount", "3", "--date", "yesterday"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runTally(t, tt.args...)
			assert.Error(t, err)
		})
	}

	out, err := runTally(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No expenses.")
}

func TestDeleteOutOfRange(t *testing.T) {
	useFileBackend(t)

	_, err := runTally(t, "delete", "0")
	assert.ErrorIs(t, err, core.ErrIndexOutOfRange)

	_, err = runTally(t, "delete", "first")
	assert.ErrorIs(t, err, core.ErrIndexOutOfRange)
}

func TestBalanceAndSummary(t *testing.T) {
	useFileBackend(t)

	out, err := runTally(t, "balance", "200")
	require.NoError(t, err)
	assert.Contains(t, out, "Balance $200.00, remaining $200.00")

	out, err = runTally(t, "balance", "--", "-50")
	require.NoError(t, err)
	assert.Contains(t, out, "Balance $150.00")

	_, err = runTally(t, "add", "--subject", "Shoes", "--category", "Shopping", "--amount", "50")
	require.NoError(t, err)

	out, err = runTally(t, "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "Remaining $100.00")
	assert.Contains(t, out, "Shopping")
	assert.Contains(t, out, "100%")
	assert.Contains(t, out, "Shoes")

	_, err = runTally(t, "balance", "many")
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestExport(t *testing.T) {
	useFileBackend(t)
	outDir := filepath.Join(t.TempDir(), "exports")

	_, err := runTally(t, "add", "--subject", "Bus", "--category", "Transportation", "--amount", "2.5", "--date", "2024-02-03")
	require.NoError(t, err)

	out, err := runTally(t, "export", "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 expenses")

	raw, err := os.ReadFile(filepath.Join(outDir, "expenses.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Subject,Description,Category,Date,Expense\nBus,,Transportation,2024-02-03,2.5", string(raw))

	out, err = runTally(t, "export", "--out", outDir, "--reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Account reset")

	out, err = runTally(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No expenses.")
	assert.Contains(t, out, "Remaining $0.00 of $0.00")
}

func TestDefaultBackendPersistsBetweenCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_BACKEND", "")
	t.Setenv("DATA_DIR", dir)
	t.Setenv("AMQP_URL", "")
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	_, err := runTally(t, "add", "--subject", "Lunch", "--amount", "5")
	require.NoError(t, err)

	out, err := runTally(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Lunch")
	assert.Contains(t, out, "Remaining -$5.00 of $0.00")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestExportFailureKeepsPreviousFile(t *testing.T) {
	dir := useFileBackend(t)
	outDir := t.TempDir()
	target := filepath.Join(outDir, "expenses.csv")
	require.NoError(t, os.WriteFile(target, []byte("previous export"), 0o644))

	// A document key that cannot be read makes the backend fail on load.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "userData.json"), 0o755))

	_, err := runTally(t, "export", "--out", outDir)
	require.Error(t, err)

	raw, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "previous export", string(raw))

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestInvalidConfiguration(t *testing.T) {
	t.Setenv("DATA_BACKEND", "floppy")

	_, err := runTally(t, "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid data backend 'floppy'")
}

func TestBuildExpenseDefaultsToToday(t *testing.T) {
	now := time.Date(2024, 7, 4, 18, 30, 0, 0, time.UTC)

	exp, err := buildExpense("Ice cream", "", "food", "", "3", now)
	require.NoError(t, err)
	assert.Equal(t, "2024-07-04", exp.Date.String())
	assert.Equal(t, core.Food, exp.Category)

	_, err = buildExpense("  ", "", "food", "", "3", now)
	assert.ErrorIs(t, err, core.ErrEmptySubject)
}

func TestVersionFlag(t *testing.T) {
	out, err := runTally(t, "--version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "tally version dev"), out)
}
