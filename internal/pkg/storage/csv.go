package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/sbconlon/mlb-scraper/internal/pkg/config"
	"github.com/sbconlon/mlb-scraper/internal/pkg/models"
	"github.com/sbconlon/mlb-scraper/internal/tracker"
)

var stateHeader = []string{
	"timestamp", "inning", "is_bot", "outs", "away", "home",
	"1B", "2B", "3B", "batter", "pitcher", "balls", "strikes", "run_id",
}

// CSVSink appends one row per dump to <dir>/<game id>.csv.
type CSVSink struct {
	stateDir string
	linesDir string
	runID    string

	mu sync.Mutex
}

func NewCSVSink(cfg config.CSVConfig, runID string) (*CSVSink, error) {
	for _, dir := range []string{cfg.StateDir, cfg.LinesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return &CSVSink{stateDir: cfg.StateDir, linesDir: cfg.LinesDir, runID: runID}, nil
}

func (s *CSVSink) Name() string { return config.SinkCSV }

func (s *CSVSink) DumpState(_ context.Context, g *tracker.Game) error {
	rec := NewStateRecord(s.runID, g)
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendRow(filepath.Join(s.stateDir, g.ID+".csv"), rec.columns())
}

func (s *CSVSink) DumpLines(_ context.Context, g *tracker.Game) error {
	rec, ok := NewLinesRecord(s.runID, g)
	if !ok {
		return nil
	}
	cols := append([]models.Column{
		{Name: "timestamp", Value: rec.Timestamp.Format(time.RFC3339)},
		{Name: "run_id", Value: rec.RunID},
	}, models.Lines{Books: rec.Books}.Columns()...)

	s.mu.Lock()
	defer s.mu.Unlock()
	return appendRow(filepath.Join(s.linesDir, g.ID+".csv"), cols)
}

func (s *CSVSink) Close() error { return nil }

func (r StateRecord) columns() []models.Column {
	vals := []string{
		r.Timestamp.Format(time.RFC3339),
		strconv.Itoa(r.Inning),
		strconv.FormatBool(r.IsBot),
		strconv.Itoa(r.Outs),
		strconv.Itoa(r.Away),
		strconv.Itoa(r.Home),
		bit(r.First), bit(r.Second), bit(r.Third),
		r.Batter,
		r.Pitcher,
		strconv.Itoa(r.Balls),
		strconv.Itoa(r.Strikes),
		r.RunID,
	}
	cols := make([]models.Column, len(stateHeader))
	for i, name := range stateHeader {
		cols[i] = models.Column{Name: name, Value: vals[i]}
	}
	return cols
}

func bit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// appendRow adds cols as a row of the file at path. A row naming columns
// the file has not seen yet rewrites the file under the merged header, with
// earlier rows left blank in the new columns.
func appendRow(path string, cols []models.Column) error {
	header, rows, err := readCSV(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	exists := err == nil

	merged := slices.Clone(header)
	for _, c := range cols {
		if !slices.Contains(merged, c.Name) {
			merged = append(merged, c.Name)
		}
	}
	row := make([]string, len(merged))
	for _, c := range cols {
		row[slices.Index(merged, c.Name)] = c.Value
	}

	if exists && len(merged) == len(header) {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		w := csv.NewWriter(f)
		w.Write(row)
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return fmt.Errorf("failed to append to %s: %w", path, err)
		}
		return f.Close()
	}

	for i := range rows {
		rows[i] = append(rows[i], make([]string, len(merged)-len(rows[i]))...)
	}
	return writeCSV(path, merged, append(rows, row))
}

// writeCSV replaces the file atomically.
func writeCSV(path string, header []string, rows [][]string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	w := csv.NewWriter(f)
	w.Write(header)
	w.WriteAll(rows)
	if err := w.Error(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return readTable(f)
}

func readTable(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	all, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, nil
	}
	return all[0], all[1:], nil
}

// ReadStateCSV reads a state dump written by CSVSink.
func ReadStateCSV(gameID string, r io.Reader) ([]StateRecord, error) {
	header, rows, err := readTable(r)
	if err != nil {
		return nil, err
	}
	var out []StateRecord
	for i, row := range rows {
		f := fields(header, row)
		rec := StateRecord{GameID: gameID, RunID: f["run_id"], Batter: f["batter"], Pitcher: f["pitcher"]}
		p := parser{}
		rec.Timestamp = p.stamp(f["timestamp"])
		rec.Inning = p.atoi(f["inning"])
		rec.IsBot = p.flag(f["is_bot"])
		rec.Outs = p.atoi(f["outs"])
		rec.Away = p.atoi(f["away"])
		rec.Home = p.atoi(f["home"])
		rec.First = p.flag(f["1B"])
		rec.Second = p.flag(f["2B"])
		rec.Third = p.flag(f["3B"])
		rec.Balls = p.atoi(f["balls"])
		rec.Strikes = p.atoi(f["strikes"])
		if p.err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, p.err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReadLinesCSV reads a lines dump written by CSVSink.
func ReadLinesCSV(gameID string, r io.Reader) ([]LinesRecord, error) {
	header, rows, err := readTable(r)
	if err != nil {
		return nil, err
	}
	var out []LinesRecord
	for i, row := range rows {
		rec := LinesRecord{GameID: gameID}
		var cols []models.Column
		for j, name := range header {
			if j >= len(row) {
				break
			}
			switch name {
			case "timestamp":
				p := parser{}
				rec.Timestamp = p.stamp(row[j])
				if p.err != nil {
					return nil, fmt.Errorf("row %d: %w", i+2, p.err)
				}
			case "run_id":
				rec.RunID = row[j]
			default:
				cols = append(cols, models.Column{Name: name, Value: row[j]})
			}
		}
		if rec.Books, err = models.ParseColumns(cols); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func fields(header, row []string) map[string]string {
	m := make(map[string]string, len(header))
	for i, name := range header {
		if i < len(row) {
			m[name] = row[i]
		}
	}
	return m
}

// parser keeps the first conversion error.
type parser struct{ err error }

func (p *parser) atoi(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}

func (p *parser) flag(s string) bool {
	v, err := strconv.ParseBool(s)
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}

func (p *parser) stamp(s string) time.Time {
	v, err := time.Parse(time.RFC3339, s)
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}
