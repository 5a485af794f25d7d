package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/shashir/covid-school-data/internal/frame"
	"github.com/shashir/covid-school-data/internal/mapper"
	"github.com/shashir/covid-school-data/internal/store"
	"github.com/shashir/covid-school-data/internal/testutil"
)

func writeWorkbook(t *testing.T, path, sheet string, rows [][]any) {
	t.Helper()
	wb := excelize.NewFile()
	defer wb.Close()
	require.NoError(t, wb.SetSheetName("Sheet1", sheet))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, wb.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, wb.SaveAs(path))
}

func constant(v string) *string { return &v }

func stateConfig(state, abbrev string) mapper.StateConfig {
	return mapper.StateConfig{
		State:        state,
		Abbreviation: abbrev,
		Source:       abbrev + ".xlsx",
		Target:       abbrev + "_schools.csv",
		Columns: []mapper.ColumnMapping{
			{Target: "State", Constant: constant(state)},
			{Target: "SchoolName", Source: "School Name", Converter: "trim"},
			{Target: "TotalCases", Source: "Cases", DType: "int", NAValues: []string{"N/A"}},
		},
	}
}

func setupMemStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st := store.NewSQLiteStore()
	require.NoError(t, st.Open(":memory:"))
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.InitSchema())
	return st
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "CO.xlsx"), "Data for Colorado", [][]any{
		{"School Name", "Cases"},
		{"East High School", "12"},
		{"West Middle School", "N/A"},
	})
	writeWorkbook(t, filepath.Join(dir, "KS.xlsx"), "Data for Kansas", [][]any{
		{"School Name", "Cases"},
		{"Wichita North", "3"},
	})

	st := setupMemStore(t)
	cfg := &mapper.Config{States: []mapper.StateConfig{
		stateConfig("Colorado", "CO"),
		stateConfig("Kansas", "KS"),
	}}

	res, err := Run(context.Background(), Params{
		Config:     cfg,
		DataDir:    dir,
		ReportPath: filepath.Join(dir, "report.csv"),
		Logger:     testutil.NewTestLogger(t),
		Store:      st,
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Len(t, res.States, 2)
	assert.Equal(t, 2, res.States[0].Rows)
	assert.Equal(t, 1, res.States[1].Rows)

	// Report covers every column of every state, in state config order.
	assert.Len(t, res.Report, 6)
	assert.Equal(t, "Colorado", res.Report[0].State)

	// Outputs and the report land on disk.
	for _, name := range []string{"CO_schools.csv", "KS_schools.csv", "report.csv"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	// The run and its state outcomes are recorded.
	require.NotEmpty(t, res.RunID)
	run, err := st.GetRun(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusCompleted, run.Status)

	stateRuns, err := st.ListStateRuns(res.RunID)
	require.NoError(t, err)
	require.Len(t, stateRuns, 2)
	assert.Equal(t, store.RunStatusCompleted, stateRuns[0].Status)
	assert.Equal(t, 2, stateRuns[0].Rows)
}

func TestRunStateFilter(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "CO.xlsx"), "Data for Colorado", [][]any{
		{"School Name", "Cases"},
		{"East High School", "12"},
	})

	cfg := &mapper.Config{States: []mapper.StateConfig{
		stateConfig("Colorado", "CO"),
		stateConfig("Kansas", "KS"), // no workbook on disk; must not run
	}}

	res, err := Run(context.Background(), Params{
		Config:  cfg,
		States:  []string{"co"},
		DataDir: dir,
		Logger:  testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	require.Len(t, res.States, 1)
	assert.Equal(t, "Colorado", res.States[0].State)
}

func TestRunPartialFailure(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "CO.xlsx"), "Data for Colorado", [][]any{
		{"School Name", "Cases"},
		{"East High School", "12"},
	})
	// Kansas workbook is missing; its state fails but Colorado completes.

	st := setupMemStore(t)
	cfg := &mapper.Config{States: []mapper.StateConfig{
		stateConfig("Colorado", "CO"),
		stateConfig("Kansas", "KS"),
	}}

	res, err := Run(context.Background(), Params{
		Config:  cfg,
		DataDir: dir,
		Logger:  testutil.NewTestLogger(t),
		Store:   st,
	})
	require.Error(t, err)
	require.NotNil(t, res)

	require.Len(t, res.States, 2)
	assert.NoError(t, res.States[0].Err)
	assert.Error(t, res.States[1].Err)

	// Failed states contribute nothing to the report.
	assert.Len(t, res.Report, 3)

	run, gerr := st.GetRun(res.RunID)
	require.NoError(t, gerr)
	assert.Equal(t, store.RunStatusFailed, run.Status)

	stateRuns, gerr := st.ListStateRuns(res.RunID)
	require.NoError(t, gerr)
	require.Len(t, stateRuns, 2)
	assert.Equal(t, store.RunStatusCompleted, stateRuns[0].Status)
	assert.Equal(t, store.RunStatusFailed, stateRuns[1].Status)
	assert.NotEmpty(t, stateRuns[1].Error)
}

// brokenStore accepts the run but fails every later write.
type brokenStore struct {
	store.Store
}

func (brokenStore) CreateRun(command string) (*store.Run, error) {
	return &store.Run{ID: "run-1", Command: command, Status: store.RunStatusRunning}, nil
}

func (brokenStore) RecordStateRun(*store.StateRun) error { return errors.New("disk full") }

func (brokenStore) CompleteRun(string, store.RunStatus, string) error {
	return errors.New("disk full")
}

func TestRunStoreWriteFailureLogged(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "CO.xlsx"), "Data for Colorado", [][]any{
		{"School Name", "Cases"},
		{"East High School", "12"},
	})

	var logs bytes.Buffer
	res, err := Run(context.Background(), Params{
		Config:  &mapper.Config{States: []mapper.StateConfig{stateConfig("Colorado", "CO")}},
		DataDir: dir,
		Logger:  slog.New(slog.NewTextHandler(&logs, nil)),
		Store:   brokenStore{},
	})

	// Store failures never fail a run that produced its outputs, but
	// they must surface in the log.
	require.NoError(t, err)
	require.Len(t, res.States, 1)
	assert.Contains(t, logs.String(), "record state run")
	assert.Contains(t, logs.String(), "complete run")
	assert.Contains(t, logs.String(), "disk full")
}

func TestRunUnknownState(t *testing.T) {
	cfg := &mapper.Config{States: []mapper.StateConfig{stateConfig("Colorado", "CO")}}
	_, err := Run(context.Background(), Params{Config: cfg, States: []string{"Texas"}})
	assert.Error(t, err)
}

func TestRunWithCrosswalk(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "CO.xlsx"), "Data for Colorado", [][]any{
		{"School Name", "Cases"},
		{"East High School", "12"},
	})

	schools := filepath.Join(dir, "nces_schools.csv")
	require.NoError(t, os.WriteFile(schools, []byte(
		"state,district_name,state_leaid,leaid,sch_name,ncessch,state_schid\n"+
			"CO,Denver Public Schools,CO-0880,0803360,East High School,080336000717,0205\n"), 0o644))

	cfg := stateConfig("Colorado", "CO")
	cfg.SchoolsJoin = &mapper.JoinSpec{
		LeftOn: "SchoolName", LeftTransform: "upper",
		RightOn: "sch_name", RightTransform: "upper",
	}

	res, err := Run(context.Background(), Params{
		Config:      &mapper.Config{States: []mapper.StateConfig{cfg}},
		DataDir:     dir,
		SchoolsPath: schools,
		Logger:      testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	require.Len(t, res.States, 1)

	out, err := frame.ReadCSVFile(filepath.Join(dir, "CO_schools.csv"), nil)
	require.NoError(t, err)
	require.True(t, out.HasColumn("ncessch"))
	col, _ := out.Column("ncessch")
	v, ok := col.Value(0)
	require.True(t, ok)
	assert.Equal(t, "080336000717", v)
}
