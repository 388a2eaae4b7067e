package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"

	"tally/internal/config"
	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/sheets/memory"
)

func TestArchiveRequiresSpreadsheet(t *testing.T) {
	useFileBackend(t)

	_, err := runTally(t, "archive")
	assert.ErrorIs(t, err, errSheetsDisabled)
}

func TestPrintArchive(t *testing.T) {
	ctx := context.Background()
	a := memory.New()

	var out bytes.Buffer
	require.NoError(t, printArchive(ctx, &out, a))
	assert.Equal(t, "Archive is empty.\n", out.String())

	_, err := a.AppendExpenses(ctx, []core.Expense{
		{Subject: "Lunch", Category: core.Food, Date: core.NewDate(2024, 1, 1), Amount: decimal.NewFromFloat(12.5)},
		{Subject: "Fuel", Category: core.Gas, Date: core.NewDate(2024, 1, 2), Amount: decimal.NewFromInt(30)},
	})
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, printArchive(ctx, &out, a))
	assert.Contains(t, out.String(), "Lunch")
	assert.Contains(t, out.String(), "Fuel")
	assert.Contains(t, out.String(), "2 archived, total $42.50")
}

func TestOpenArchiveReadsSpreadsheet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"values": [][]any{
			{"Subject", "Description", "Category", "Date", "Expense"},
			{"Bus", "", "Transportation", "2024-02-03", 2.5},
		}})
	}))
	defer srv.Close()

	cfg := &config.Config{GoogleSpreadsheetID: "sheet-1", GoogleSheetName: "Archive"}
	reader, err := openArchive(context.Background(), cfg, log.Discard(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, printArchive(context.Background(), &out, reader))
	assert.Contains(t, out.String(), "Bus")
	assert.Contains(t, out.String(), "1 archived, total $2.50")
}
