package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/sbconlon/mlb-scraper/internal/pkg/config"
	"github.com/sbconlon/mlb-scraper/internal/tracker"
)

// dialect covers the differences between the supported SQL backends.
type dialect struct {
	driver    string
	serial    string
	timestamp string
	bindvar   func(n int) string
}

var dialects = map[string]dialect{
	"postgres": {
		driver:    "postgres",
		serial:    "SERIAL PRIMARY KEY",
		timestamp: "TIMESTAMPTZ",
		bindvar:   func(n int) string { return "$" + strconv.Itoa(n) },
	},
	"sqlite": {
		driver:    "sqlite",
		serial:    "INTEGER PRIMARY KEY AUTOINCREMENT",
		timestamp: "DATETIME",
		bindvar:   func(int) string { return "?" },
	},
}

// Tables in creation order.
var tables = []string{"states", "h2h", "spreads", "totals"}

var (
	stateColumns   = []string{"run_id", "game_id", "recorded_at", "inning", "is_bot", "outs", "away", "home", "first_base", "second_base", "third_base", "batter", "pitcher", "balls", "strikes"}
	h2hColumns     = []string{"run_id", "game_id", "bookmaker", "recorded_at", "last_update", "h_price", "a_price"}
	spreadsColumns = []string{"run_id", "game_id", "bookmaker", "recorded_at", "last_update", "h_price", "h_point", "a_price", "a_point"}
	totalsColumns  = []string{"run_id", "game_id", "bookmaker", "recorded_at", "last_update", "o_price", "o_point", "u_price", "u_point"}
)

// SQLSink writes state and lines rows to a relational database.
type SQLSink struct {
	db      *sql.DB
	dialect dialect
	runID   string
}

// OpenSQL connects to the configured database and creates the schema.
func OpenSQL(ctx context.Context, cfg config.SQLConfig, runID string) (*SQLSink, error) {
	d, ok := dialects[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("unsupported sql driver %q", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%s DSN is required", cfg.Driver)
	}
	db, err := sql.Open(d.driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", cfg.Driver, err)
	}
	if d.driver == "sqlite" {
		// One writer; also keeps :memory: databases on a single connection.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", cfg.Driver, err)
	}

	s := &SQLSink{db: db, dialect: d, runID: runID}
	if err := s.InitSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	slog.Info("SQL storage initialized", "driver", cfg.Driver)
	return s, nil
}

func (s *SQLSink) Name() string { return config.SinkSQL }

// DB exposes the connection pool for tools.
func (s *SQLSink) DB() *sql.DB { return s.db }

// InitSchema creates the tables if they do not exist.
func (s *SQLSink) InitSchema(ctx context.Context) error {
	ts := s.dialect.timestamp
	common := fmt.Sprintf(`id %s,
		run_id VARCHAR(36) NOT NULL,
		game_id VARCHAR(16) NOT NULL,`, s.dialect.serial)
	market := fmt.Sprintf(`bookmaker VARCHAR(64) NOT NULL,
		recorded_at %s NOT NULL,
		last_update %s,`, ts, ts)

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS states (
		%s
		recorded_at %s NOT NULL,
		inning INTEGER NOT NULL,
		is_bot BOOLEAN NOT NULL,
		outs INTEGER NOT NULL,
		away INTEGER NOT NULL,
		home INTEGER NOT NULL,
		first_base BOOLEAN NOT NULL,
		second_base BOOLEAN NOT NULL,
		third_base BOOLEAN NOT NULL,
		batter VARCHAR(100) NOT NULL DEFAULT '',
		pitcher VARCHAR(100) NOT NULL DEFAULT '',
		balls INTEGER NOT NULL,
		strikes INTEGER NOT NULL
	)`, common, ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS h2h (
		%s
		%s
		h_price NUMERIC(10, 4),
		a_price NUMERIC(10, 4)
	)`, common, market),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS spreads (
		%s
		%s
		h_price NUMERIC(10, 4),
		h_point NUMERIC(10, 4),
		a_price NUMERIC(10, 4),
		a_point NUMERIC(10, 4)
	)`, common, market),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS totals (
		%s
		%s
		o_price NUMERIC(10, 4),
		o_point NUMERIC(10, 4),
		u_price NUMERIC(10, 4),
		u_point NUMERIC(10, 4)
	)`, common, market),
	}
	for _, t := range tables {
		stmts = append(stmts, fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_game_id ON %s(game_id)`, t, t))
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// DropSchema removes every table.
func (s *SQLSink) DropSchema(ctx context.Context) error {
	for _, t := range tables {
		if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+t); err != nil {
			return fmt.Errorf("failed to drop %s: %w", t, err)
		}
	}
	return nil
}

func (s *SQLSink) DumpState(ctx context.Context, g *tracker.Game) error {
	return s.WriteState(ctx, NewStateRecord(s.runID, g))
}

func (s *SQLSink) DumpLines(ctx context.Context, g *tracker.Game) error {
	rec, ok := NewLinesRecord(s.runID, g)
	if !ok {
		return nil
	}
	return s.WriteLines(ctx, rec)
}

// WriteState inserts one states row.
func (s *SQLSink) WriteState(ctx context.Context, r StateRecord) error {
	_, err := s.db.ExecContext(ctx, s.insert("states", stateColumns),
		r.RunID, r.GameID, r.Timestamp, r.Inning, r.IsBot, r.Outs, r.Away, r.Home,
		r.First, r.Second, r.Third, r.Batter, r.Pitcher, r.Balls, r.Strikes,
	)
	if err != nil {
		return fmt.Errorf("failed to insert state: %w", err)
	}
	return nil
}

// WriteLines inserts one row per bookmaker and market, in one transaction.
func (s *SQLSink) WriteLines(ctx context.Context, r LinesRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, b := range r.Books {
		if m := b.Moneyline; m != nil {
			if _, err := tx.ExecContext(ctx, s.insert("h2h", h2hColumns),
				r.RunID, r.GameID, b.Key, r.Timestamp, nullTime(m.LastUpdate),
				m.HomePrice, m.AwayPrice,
			); err != nil {
				return fmt.Errorf("failed to insert h2h: %w", err)
			}
		}
		if sp := b.Spread; sp != nil {
			if _, err := tx.ExecContext(ctx, s.insert("spreads", spreadsColumns),
				r.RunID, r.GameID, b.Key, r.Timestamp, nullTime(sp.LastUpdate),
				sp.HomePrice, sp.HomePoint, sp.AwayPrice, sp.AwayPoint,
			); err != nil {
				return fmt.Errorf("failed to insert spreads: %w", err)
			}
		}
		if t := b.Total; t != nil {
			if _, err := tx.ExecContext(ctx, s.insert("totals", totalsColumns),
				r.RunID, r.GameID, b.Key, r.Timestamp, nullTime(t.LastUpdate),
				t.OverPrice, t.OverPoint, t.UnderPrice, t.UnderPoint,
			); err != nil {
				return fmt.Errorf("failed to insert totals: %w", err)
			}
		}
	}
	return tx.Commit()
}

func (s *SQLSink) Close() error { return s.db.Close() }

func (s *SQLSink) insert(table string, cols []string) string {
	binds := make([]string, len(cols))
	for i := range cols {
		binds[i] = s.dialect.bindvar(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(binds, ", "))
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
