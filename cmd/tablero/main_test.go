package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/tablero/internal/common"
	"github.com/Veraticus/tablero/internal/config"
	"github.com/Veraticus/tablero/internal/ingest"
	"github.com/Veraticus/tablero/internal/model"
	"github.com/Veraticus/tablero/internal/service"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const agendaCSV = `Agenda de actividades 2024;;;;
Fecha;Actividad;Funcionario;Lugar;Costo
15/03/2024;Cumbre regional;Ana Pérez;Córdoba;$ 50.000,00
20/03/2024;Visita a la planta;Juan Gómez;Rosario;U$S 300
;;;;
sin fecha;Nota suelta;;;
`

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.ExecuteContext(context.Background()), out.String())
	return out.String()
}

func TestSyncThenQuery(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "agenda-2024.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(agendaCSV), 0600))

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
database:
  path: `+filepath.Join(dir, "tablero.db")+`
logging:
  level: error
sources:
  - name: Agenda
    kind: file
    path: `+csvPath+`
    default_scope: oficial
`), 0600))

	out := execute(t, "--config", cfgPath, "sync", "--no-progress")
	assert.Contains(t, out, "Sync Complete")
	assert.Contains(t, out, "2 records written")

	// a second sync overwrites instead of duplicating
	execute(t, "--config", cfgPath, "sync", "--no-progress")

	out = execute(t, "--config", cfgPath, "records", "--json")
	var records []model.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "Visita a la planta", records[0].Title)
	assert.Equal(t, model.CurrencyUSD, records[0].CostCurrency)
	assert.Equal(t, "Agenda / agenda-2024", records[0].SourceLabel)
	assert.Equal(t, "50000", records[1].CostAmount.String())
	assert.Equal(t, model.ScopeOficial, records[1].Scope)

	out = execute(t, "--config", cfgPath, "summary", "--json", "--currency", "ars")
	var summary service.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 1, summary.RecordCount)

	out = execute(t, "--config", cfgPath, "migrate", "--status")
	assert.Contains(t, out, "Current version: 2")

	out = execute(t, "--config", cfgPath, "inspect", "agenda", "--records", "0")
	assert.Contains(t, out, "Header row: 2")
	assert.Contains(t, out, "missing_date: 1")
}

func TestSelectSources(t *testing.T) {
	cfg := &config.Config{Sources: []ingest.SourceConfig{
		{Name: "Agenda", Kind: ingest.KindFile},
		{Name: "Viajes", Kind: ingest.KindSheets},
	}}

	all, err := selectSources(cfg, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := selectSources(cfg, []string{"viajes"})
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "Viajes", one[0].Name)

	_, err = selectSources(cfg, []string{"Prensa"})
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = selectSources(&config.Config{}, nil)
	assert.ErrorIs(t, err, common.ErrNoSources)
}

func TestFilterFromFlags(t *testing.T) {
	newCmd := func(args ...string) *cobra.Command {
		cmd := &cobra.Command{Use: "test"}
		addFilterFlags(cmd)
		require.NoError(t, cmd.ParseFlags(args))
		return cmd
	}

	f, err := filterFromFlags(newCmd("--from", "2024-03-01", "--scope", "internacional", "--currency", "usd", "-q", "cumbre"))
	require.NoError(t, err)
	require.NotNil(t, f.From)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), *f.From)
	assert.Nil(t, f.To)
	assert.Equal(t, model.ScopeInternacional, f.Scope)
	assert.Equal(t, model.CurrencyUSD, f.Currency)
	assert.Equal(t, "cumbre", f.Query)

	for _, args := range [][]string{
		{"--to", "01/03/2024"},
		{"--scope", "provincial"},
		{"--currency", "BRL"},
	} {
		_, err := filterFromFlags(newCmd(args...))
		var userErr *common.UserError
		assert.ErrorAs(t, err, &userErr, args)
	}
}
