// Package tableio reads condition trial tables and the route reference
// table from CSV, and writes the flat row-per-trial table and the JSON
// result record.
package tableio

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/temporal-compression/internal/reference"
	"github.com/banshee-data/temporal-compression/internal/trial"
)

// Column names shared by the input and flat output tables.
const (
	ColParticipant  = "participant_id"
	ColRoute        = "route_id"
	ColPathTime     = "path_time"
	ColSimTime      = "sim_time"
	ColDistance     = "distance"
	ColReactionTime = "reaction_time"
	ColOptimalTime  = "optimal_time"
	expertPrefix    = "expert_"
)

// nullTokens are the cell spellings read as a missing value.
var nullTokens = map[string]bool{"": true, "na": true, "nan": true, "null": true, "none": true}

// header indexes a CSV header row by lower-cased column name.
type header map[string]int

func readHeader(cr *csv.Reader) (header, error) {
	rec, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("table is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	h := make(header, len(rec))
	for i, name := range rec {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := h[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		h[name] = i
	}
	return h, nil
}

func (h header) require(names ...string) error {
	var missing []string
	for _, n := range names {
		if _, ok := h[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (h header) text(rec []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// number parses an optional numeric cell. Null spellings and non-finite
// values yield a null.
func (h header) number(rec []string, name string) (sql.NullFloat64, error) {
	s := h.text(rec, name)
	if nullTokens[strings.ToLower(s)] {
		return trial.Null, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return trial.Null, fmt.Errorf("column %s: %q is not a number", name, s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return trial.Null, nil
	}
	return trial.Float(v), nil
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	return cr
}

// ReadTrials reads one condition's trial table. Only participant_id,
// path_time and sim_time are required; route_id, distance, reaction_time
// and the rating columns are read when present.
func ReadTrials(r io.Reader, c trial.Condition) (*trial.Table, error) {
	cr := newReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c, err)
	}
	if err := h.require(ColParticipant, ColPathTime, ColSimTime); err != nil {
		return nil, fmt.Errorf("%s: %w", c, err)
	}

	var trials []trial.Trial
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read line %d: %w", c, line, err)
		}
		tr, err := parseTrial(h, rec)
		if err != nil {
			return nil, fmt.Errorf("%s: line %d: %w", c, line, err)
		}
		trials = append(trials, tr)
	}
	return trial.NewTable(c, trials), nil
}

func parseTrial(h header, rec []string) (trial.Trial, error) {
	tr := trial.Trial{
		ParticipantID: h.text(rec, ColParticipant),
		RouteID:       h.text(rec, ColRoute),
	}
	if tr.ParticipantID == "" {
		return tr, fmt.Errorf("empty %s", ColParticipant)
	}
	if nullTokens[strings.ToLower(tr.RouteID)] {
		tr.RouteID = ""
	}
	fields := []struct {
		name string
		dst  *sql.NullFloat64
	}{
		{ColPathTime, &tr.PathTime},
		{ColSimTime, &tr.SimTime},
		{ColDistance, &tr.Distance},
		{ColReactionTime, &tr.ReactionTime},
	}
	for _, r := range trial.Ratings() {
		fields = append(fields, struct {
			name string
			dst  *sql.NullFloat64
		}{r.Column(), &tr.Ratings[r]})
	}
	for _, f := range fields {
		v, err := h.number(rec, f.name)
		if err != nil {
			return tr, err
		}
		*f.dst = v
	}
	for _, r := range trial.Ratings() {
		v := tr.Ratings[r]
		if v.Valid && (v.Float64 < trial.RatingMin || v.Float64 > trial.RatingMax) {
			return tr, fmt.Errorf("column %s: %g outside %d-%d", r.Column(), v.Float64, trial.RatingMin, trial.RatingMax)
		}
	}
	return tr, nil
}

// ReadRoutes reads the route reference table. Each row carries either an
// optimal_time or expert traversal columns (expert_1, expert_2, ...), in
// which case the optimal time is the fastest usable traversal.
func ReadRoutes(r io.Reader) (*reference.Routes, error) {
	cr := newReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, fmt.Errorf("routes: %w", err)
	}
	if err := h.require(ColRoute); err != nil {
		return nil, fmt.Errorf("routes: %w", err)
	}
	_, hasOptimal := h[ColOptimalTime]
	experts := h.expertColumns()
	if !hasOptimal && len(experts) == 0 {
		return nil, fmt.Errorf("routes: need %s or %s* columns", ColOptimalTime, expertPrefix)
	}

	var rows []reference.Route
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("routes: failed to read line %d: %w", line, err)
		}
		route := reference.Route{ID: h.text(rec, ColRoute)}
		if hasOptimal {
			v, err := h.number(rec, ColOptimalTime)
			if err != nil {
				return nil, fmt.Errorf("routes: line %d: %w", line, err)
			}
			if v.Valid {
				route.OptimalTime = v.Float64
				rows = append(rows, route)
				continue
			}
		}
		times := make([]float64, 0, len(experts))
		for _, col := range experts {
			v, err := h.number(rec, col)
			if err != nil {
				return nil, fmt.Errorf("routes: line %d: %w", line, err)
			}
			if v.Valid {
				times = append(times, v.Float64)
			} else {
				times = append(times, math.NaN())
			}
		}
		best, ok := reference.BestOf(times...)
		if !ok {
			return nil, fmt.Errorf("routes: line %d: route %q has no usable optimal time", line, route.ID)
		}
		route.OptimalTime = best
		rows = append(rows, route)
	}
	return reference.NewRoutes(rows)
}

// expertColumns returns the expert_* columns in header order.
func (h header) expertColumns() []string {
	type col struct {
		name string
		idx  int
	}
	var cols []col
	for name, idx := range h {
		if strings.HasPrefix(name, expertPrefix) {
			cols = append(cols, col{name, idx})
		}
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].idx < cols[j].idx })
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.name
	}
	return out
}
