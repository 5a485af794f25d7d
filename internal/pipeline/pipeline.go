// Package pipeline orchestrates a full mapping run: loading the NCES
// inputs, processing the selected states in parallel, collecting the
// read report, and recording outcomes in the run store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shashir/covid-school-data/internal/mapper"
	"github.com/shashir/covid-school-data/internal/nces"
	"github.com/shashir/covid-school-data/internal/report"
	"github.com/shashir/covid-school-data/internal/store"
)

// DefaultJobs is the default number of states processed in parallel.
const DefaultJobs = 4

// Params configures a mapping run.
type Params struct {
	Config *mapper.Config
	// States filters which configured states run (names or
	// abbreviations); empty runs all.
	States  []string
	DataDir string
	// ReportPath, when set, receives the combined read report CSV.
	ReportPath string
	// RequiredColumns every state output must contain.
	RequiredColumns []string

	// Optional NCES inputs.
	SchoolsPath          string
	DistrictsPath        string
	SchoolMetadataPath   string
	DistrictMetadataPath string

	// Jobs bounds parallel state processing; <= 0 uses DefaultJobs.
	Jobs int

	Logger *slog.Logger
	Store  store.Store
}

// StateResult is the outcome of one state.
type StateResult struct {
	State    string
	Source   string
	Target   string
	Rows     int
	Duration time.Duration
	Err      error
}

// Result is the outcome of a run.
type Result struct {
	RunID  string
	Report []report.Row
	States []StateResult
}

// Run executes the mapping pipeline. It returns the collected results
// alongside any joined per-state errors; partial results are returned
// even when some states fail.
func Run(ctx context.Context, p Params) (*Result, error) {
	log := p.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	states, err := p.Config.SelectStates(p.States)
	if err != nil {
		return nil, err
	}

	opts, err := loadInputs(p, log)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	if p.Store != nil {
		run, err := p.Store.CreateRun("map")
		if err != nil {
			return nil, fmt.Errorf("record run: %w", err)
		}
		res.RunID = run.ID
	}

	jobs := p.Jobs
	if jobs <= 0 {
		jobs = DefaultJobs
	}

	// Each goroutine owns its own index in these slices.
	results := make([]StateResult, len(states))
	reports := make([][]report.Row, len(states))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i := range states {
		i := i
		cfg := states[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			log.Info("processing state", "state", cfg.State, "source", cfg.Source)
			started := time.Now()
			df, err := mapper.ProcessState(cfg, opts)
			sr := StateResult{
				State:    cfg.State,
				Source:   cfg.Source,
				Target:   cfg.Target,
				Duration: time.Since(started),
				Err:      err,
			}
			if err == nil {
				sr.Rows = df.Len()
				reports[i] = report.ForState(cfg.State, df)
				log.Info("state completed", "state", cfg.State, "rows", sr.Rows)
			} else {
				log.Error("state failed", "state", cfg.State, "error", err)
			}
			results[i] = sr
			// Sibling states keep running; errors aggregate below.
			return nil
		})
	}
	_ = g.Wait()

	res.States = results
	var errs []error
	for i := range results {
		if results[i].Err != nil {
			errs = append(errs, results[i].Err)
			continue
		}
		res.Report = append(res.Report, reports[i]...)
	}
	runErr := errors.Join(errs...)

	if p.ReportPath != "" && len(res.Report) > 0 {
		log.Info("writing read report", "path", p.ReportPath)
		if err := report.WriteCSVFile(p.ReportPath, res.Report); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}

	if p.Store != nil {
		recordRun(p.Store, res, runErr, log)
	}
	return res, runErr
}

// loadInputs reads the optional NCES tables once for all states.
func loadInputs(p Params, log *slog.Logger) (mapper.Options, error) {
	opts := mapper.Options{
		DataDir:         p.DataDir,
		RequiredColumns: p.RequiredColumns,
		Logger:          log,
	}
	var err error
	if p.SchoolsPath != "" {
		log.Debug("loading NCES schools", "path", p.SchoolsPath)
		if opts.Schools, err = nces.LoadSchools(p.SchoolsPath); err != nil {
			return opts, err
		}
	}
	if p.DistrictsPath != "" {
		log.Debug("loading NCES districts", "path", p.DistrictsPath)
		if opts.Districts, err = nces.LoadDistricts(p.DistrictsPath); err != nil {
			return opts, err
		}
	}
	if p.SchoolMetadataPath != "" {
		log.Debug("loading school metadata", "path", p.SchoolMetadataPath)
		if opts.SchoolMetadata, err = nces.LoadMetadata(p.SchoolMetadataPath); err != nil {
			return opts, err
		}
	}
	if p.DistrictMetadataPath != "" {
		log.Debug("loading district metadata", "path", p.DistrictMetadataPath)
		if opts.DistrictMetadata, err = nces.LoadMetadata(p.DistrictMetadataPath); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

// recordRun persists outcomes best effort; a broken state DB must not
// fail a run that already produced its outputs.
func recordRun(st store.Store, res *Result, runErr error, log *slog.Logger) {
	for i := range res.States {
		sr := &res.States[i]
		rec := &store.StateRun{
			RunID:    res.RunID,
			State:    sr.State,
			Source:   sr.Source,
			Target:   sr.Target,
			Rows:     sr.Rows,
			Status:   store.RunStatusCompleted,
			Duration: sr.Duration,
		}
		if sr.Err != nil {
			rec.Status = store.RunStatusFailed
			rec.Error = sr.Err.Error()
		}
		if err := st.RecordStateRun(rec); err != nil {
			log.Error("record state run", "state", sr.State, "error", err)
		}
	}
	status := store.RunStatusCompleted
	msg := ""
	if runErr != nil {
		status = store.RunStatusFailed
		msg = runErr.Error()
	}
	if err := st.CompleteRun(res.RunID, status, msg); err != nil {
		log.Error("complete run", "run_id", res.RunID, "error", err)
	}
}
