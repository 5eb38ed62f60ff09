package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/banshee-data/temporal-compression/internal/compression"
	"github.com/banshee-data/temporal-compression/internal/groupcmp"
	"github.com/banshee-data/temporal-compression/internal/pipeline"
	"github.com/banshee-data/temporal-compression/internal/trial"
)

// Roles distinguish the primary analysis from the sensitivity rerun.
const (
	RolePrimary     = "primary"
	RoleSensitivity = "sensitivity"
)

// RunRecord is one row of analysis_runs.
type RunRecord struct {
	RunID             string            `json:"run_id"`
	Version           string            `json:"version"`
	StartedAt         int64             `json:"started_at"`
	CreatedAt         int64             `json:"created_at"`
	DurationSeconds   float64           `json:"duration_seconds"`
	PrimaryPolicy     string            `json:"primary_policy"`
	SensitivityPolicy string            `json:"sensitivity_policy,omitempty"`
	Failed            map[string]string `json:"failed,omitempty"`
}

// nullable maps NaN and infinities to NULL.
func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// SaveRun writes the run record, the trial tables, the per-condition
// summaries and the group tests of res in one transaction. A run without
// an id is given one.
func (db *DB) SaveRun(res *pipeline.Result) error {
	if res == nil || res.Primary == nil {
		return fmt.Errorf("nothing to save: run has no primary analysis")
	}
	if res.ID == "" {
		res.ID = uuid.NewString()
	}

	resultJSON, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode run %s: %w", res.ID, err)
	}
	primaryPolicy, err := json.Marshal(res.Primary.Policy)
	if err != nil {
		return fmt.Errorf("failed to encode primary policy: %w", err)
	}
	var sensitivityPolicy, failedJSON interface{}
	if res.Sensitivity != nil {
		b, err := json.Marshal(res.Sensitivity.Policy)
		if err != nil {
			return fmt.Errorf("failed to encode sensitivity policy: %w", err)
		}
		sensitivityPolicy = string(b)
	}
	if len(res.Failed) > 0 {
		b, err := json.Marshal(res.Failed)
		if err != nil {
			return fmt.Errorf("failed to encode failures: %w", err)
		}
		failedJSON = string(b)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO analysis_runs (
			run_id, version, started_at, created_at, duration_seconds,
			primary_policy, sensitivity_policy, failed_json, result_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.Version, res.StartedAt.UnixNano(), db.Clock.Now().UnixNano(), res.Duration,
		string(primaryPolicy), sensitivityPolicy, failedJSON, string(resultJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", res.ID, err)
	}

	for _, pr := range []struct {
		role string
		run  *pipeline.PolicyRun
	}{{RolePrimary, res.Primary}, {RoleSensitivity, res.Sensitivity}} {
		if pr.run == nil {
			continue
		}
		if err := savePolicyRun(tx, res.ID, pr.role, pr.run); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", res.ID, err)
	}
	return nil
}

func savePolicyRun(tx *sql.Tx, runID, role string, run *pipeline.PolicyRun) error {
	for _, c := range run.Conditions {
		if err := insertTrials(tx, runID, role, c.Table); err != nil {
			return err
		}
		if err := insertSummary(tx, runID, role, string(run.Policy.Kind), c.Summary); err != nil {
			return err
		}
	}
	if run.Comparison == nil {
		return nil
	}
	cmp := run.Comparison
	if err := insertTest(tx, runID, role, cmp.Omnibus.Test, "", "", cmp.Omnibus.Statistic, cmp.Omnibus.PValue, cmp.Omnibus.DF); err != nil {
		return err
	}
	for _, pw := range cmp.Pairwise {
		if err := insertTest(tx, runID, role, "mann_whitney_u", string(pw.A), string(pw.B), pw.U, pw.PValue, math.NaN()); err != nil {
			return err
		}
	}
	for _, n := range cmp.Normality {
		if n.Compression == nil {
			continue
		}
		if err := insertTest(tx, runID, role, "shapiro_wilk", string(n.Condition), "", n.Compression.Statistic, n.Compression.PValue, math.NaN()); err != nil {
			return err
		}
	}
	return nil
}

var trialColumns = func() []string {
	cols := []string{"run_id", "role", "condition_name", "row_index", "participant_id", "route_id",
		"path_time", "sim_time", "distance", "reaction_time"}
	for _, r := range trial.Ratings() {
		cols = append(cols, r.Column())
	}
	return append(cols, "optimal_time", "diff", "sim_centered", "compression", "log_compression",
		"excluded", "exclusion")
}()

func insertTrials(tx *sql.Tx, runID, role string, t *trial.Table) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(trialColumns)), ", ")
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO trials (%s) VALUES (%s)",
		strings.Join(trialColumns, ", "), placeholders))
	if err != nil {
		return fmt.Errorf("failed to prepare trial insert: %w", err)
	}
	defer stmt.Close()

	for _, tr := range t.Trials {
		args := []interface{}{runID, role, string(t.Condition), tr.Row, tr.ParticipantID, tr.RouteID,
			tr.PathTime, tr.SimTime, tr.Distance, tr.ReactionTime}
		for _, r := range trial.Ratings() {
			args = append(args, tr.Ratings[r])
		}
		args = append(args, tr.OptimalTime, tr.Diff, tr.SimCentered, tr.Compression, tr.LogCompression,
			tr.Excluded, string(tr.Exclusion))
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("failed to insert %s row %d: %w", t.Condition, tr.Row, err)
		}
	}
	return nil
}

func insertSummary(tx *sql.Tx, runID, role, kind string, s pipeline.ConditionSummary) error {
	c := s.Compression
	_, err := tx.Exec(`
		INSERT INTO condition_summaries (
			run_id, role, condition_name, policy_kind, trials, cutoff, considered, lost, faults,
			degenerate, undefined_ratios, compression_n, compression_mean, compression_std,
			inverse_mean, inverse_std, diff_mean, diff_std, sim_centered_mean, sim_centered_std
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, role, string(s.Condition), kind, s.Trials, nullable(s.Cutoff), s.Considered, s.Lost, s.Faults,
		len(s.Degenerate), s.UndefinedRatios, c.N, nullable(c.Mean), nullable(c.StdDev),
		nullable(c.InverseMean), nullable(c.InverseStd), nullable(s.Diff.Mean), nullable(s.Diff.StdDev),
		nullable(s.SimCentered.Mean), nullable(s.SimCentered.StdDev),
	)
	if err != nil {
		return fmt.Errorf("failed to insert %s summary: %w", s.Condition, err)
	}
	return nil
}

func insertTest(tx *sql.Tx, runID, role, test, a, b string, statistic, p, df float64) error {
	_, err := tx.Exec(`
		INSERT INTO group_tests (run_id, role, test, condition_a, condition_b, statistic, p_value, df)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, role, test, nullString(a), nullString(b), nullable(statistic), nullable(p), nullable(df))
	if err != nil {
		return fmt.Errorf("failed to insert %s: %w", test, err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// ListRuns returns every saved run, newest first, without the full result
// document.
func (db *DB) ListRuns() ([]RunRecord, error) {
	rows, err := db.Query(`
		SELECT run_id, version, started_at, created_at, duration_seconds,
		       primary_policy, sensitivity_policy, failed_json
		FROM analysis_runs
		ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var duration sql.NullFloat64
		var sensitivity, failed sql.NullString
		if err := rows.Scan(&r.RunID, &r.Version, &r.StartedAt, &r.CreatedAt, &duration,
			&r.PrimaryPolicy, &sensitivity, &failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.DurationSeconds = duration.Float64
		r.SensitivityPolicy = sensitivity.String
		if failed.Valid {
			if err := json.Unmarshal([]byte(failed.String), &r.Failed); err != nil {
				return nil, fmt.Errorf("decode failures of run %s: %w", r.RunID, err)
			}
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunResult returns the full result document of a run.
func (db *DB) RunResult(runID string) (json.RawMessage, error) {
	var doc string
	err := db.QueryRow(`SELECT result_json FROM analysis_runs WHERE run_id = ?`, runID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	return json.RawMessage(doc), nil
}

// TrialsForRun rebuilds the saved trial tables of one role of a run, in
// condition order of first insertion and row order within a condition.
func (db *DB) TrialsForRun(runID, role string) ([]*trial.Table, error) {
	rows, err := db.Query(fmt.Sprintf(`
		SELECT %s FROM trials
		WHERE run_id = ? AND role = ?
		ORDER BY rowid`, strings.Join(trialColumns[2:], ", ")), runID, role)
	if err != nil {
		return nil, fmt.Errorf("query trials: %w", err)
	}
	defer rows.Close()

	var tables []*trial.Table
	byCond := make(map[trial.Condition]*trial.Table)
	for rows.Next() {
		var tr trial.Trial
		var cond, exclusion string
		var route sql.NullString
		dest := []interface{}{&cond, &tr.Row, &tr.ParticipantID, &route,
			&tr.PathTime, &tr.SimTime, &tr.Distance, &tr.ReactionTime}
		for _, r := range trial.Ratings() {
			dest = append(dest, &tr.Ratings[r])
		}
		dest = append(dest, &tr.OptimalTime, &tr.Diff, &tr.SimCentered, &tr.Compression, &tr.LogCompression,
			&tr.Excluded, &exclusion)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		tr.RouteID = route.String
		tr.Exclusion = trial.Exclusion(exclusion)

		c := trial.Condition(cond)
		t, ok := byCond[c]
		if !ok {
			t = &trial.Table{Condition: c}
			byCond[c] = t
			tables = append(tables, t)
		}
		t.Trials = append(t.Trials, tr)
	}
	return tables, rows.Err()
}

// SummaryCompression reads back the compression summary of one condition.
func (db *DB) SummaryCompression(runID, role string, c trial.Condition) (compression.Summary, error) {
	var s compression.Summary
	var mean, std, invMean, invStd sql.NullFloat64
	err := db.QueryRow(`
		SELECT compression_n, compression_mean, compression_std, inverse_mean, inverse_std
		FROM condition_summaries
		WHERE run_id = ? AND role = ? AND condition_name = ?`, runID, role, string(c)).
		Scan(&s.N, &mean, &std, &invMean, &invStd)
	if err != nil {
		return s, fmt.Errorf("query %s summary: %w", c, err)
	}
	orNaN := func(v sql.NullFloat64) float64 {
		if !v.Valid {
			return math.NaN()
		}
		return v.Float64
	}
	s.Mean, s.StdDev, s.InverseMean, s.InverseStd = orNaN(mean), orNaN(std), orNaN(invMean), orNaN(invStd)
	return s, nil
}

// GroupTests returns the saved tests of one role of a run in insertion
// order.
func (db *DB) GroupTests(runID, role string) ([]groupcmp.TestResult, error) {
	rows, err := db.Query(`
		SELECT test, statistic, p_value, df FROM group_tests
		WHERE run_id = ? AND role = ?
		ORDER BY test_id`, runID, role)
	if err != nil {
		return nil, fmt.Errorf("query group tests: %w", err)
	}
	defer rows.Close()

	var out []groupcmp.TestResult
	for rows.Next() {
		var r groupcmp.TestResult
		var stat, p, df sql.NullFloat64
		if err := rows.Scan(&r.Test, &stat, &p, &df); err != nil {
			return nil, fmt.Errorf("scan group test: %w", err)
		}
		r.Statistic, r.PValue, r.DF = stat.Float64, p.Float64, df.Float64
		out = append(out, r)
	}
	return out, rows.Err()
}
