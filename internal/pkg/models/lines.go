package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Market keys as used by the odds provider.
const (
	MarketH2H     = "h2h"     // moneyline
	MarketSpreads = "spreads" // run line
	MarketTotals  = "totals"  // over/under
)

// Lines is the betting line snapshot for one game across bookmakers.
type Lines struct {
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	CommenceTime time.Time   `json:"commence_time"`
	Stamp        time.Time   `json:"timestamp"` // set when merged onto a game
	Books        []BookLines `json:"books"`
}

// BookLines holds one bookmaker's markets. Missing markets are nil.
type BookLines struct {
	Key        string     `json:"key"`
	LastUpdate time.Time  `json:"last_update"`
	Moneyline  *Moneyline `json:"h2h,omitempty"`
	Spread     *Spread    `json:"spreads,omitempty"`
	Total      *Total     `json:"totals,omitempty"`
}

type Moneyline struct {
	LastUpdate time.Time       `json:"last_update"`
	HomePrice  decimal.Decimal `json:"home_price"`
	AwayPrice  decimal.Decimal `json:"away_price"`
}

type Spread struct {
	LastUpdate time.Time       `json:"last_update"`
	HomePrice  decimal.Decimal `json:"home_price"`
	HomePoint  decimal.Decimal `json:"home_point"`
	AwayPrice  decimal.Decimal `json:"away_price"`
	AwayPoint  decimal.Decimal `json:"away_point"`
}

type Total struct {
	LastUpdate time.Time       `json:"last_update"`
	OverPrice  decimal.Decimal `json:"over_price"`
	OverPoint  decimal.Decimal `json:"over_point"`
	UnderPrice decimal.Decimal `json:"under_price"`
	UnderPoint decimal.Decimal `json:"under_point"`
}

// Column is one flattened name/value pair of a lines row.
type Column struct {
	Name  string
	Value string
}

// Book returns the entry for key, or nil.
func (l *Lines) Book(key string) *BookLines {
	for i := range l.Books {
		if l.Books[i].Key == key {
			return &l.Books[i]
		}
	}
	return nil
}

// StampedAt returns a copy of l carrying ts. Books are shared, never mutated.
func (l Lines) StampedAt(ts time.Time) *Lines {
	l.Stamp = ts
	return &l
}

// Columns flattens the lines into the flat-file layout:
// <book>_last, then per market <book>_<market>_last followed by its prices and points.
func (l Lines) Columns() []Column {
	var cols []Column
	for _, b := range l.Books {
		cols = append(cols, Column{b.Key + "_last", formatTime(b.LastUpdate)})
		if m := b.Moneyline; m != nil {
			p := b.Key + "_" + MarketH2H + "_"
			cols = append(cols,
				Column{p + "last", formatTime(m.LastUpdate)},
				Column{p + "H_price", m.HomePrice.String()},
				Column{p + "A_price", m.AwayPrice.String()},
			)
		}
		if s := b.Spread; s != nil {
			p := b.Key + "_" + MarketSpreads + "_"
			cols = append(cols,
				Column{p + "last", formatTime(s.LastUpdate)},
				Column{p + "H_price", s.HomePrice.String()},
				Column{p + "H_point", s.HomePoint.String()},
				Column{p + "A_price", s.AwayPrice.String()},
				Column{p + "A_point", s.AwayPoint.String()},
			)
		}
		if t := b.Total; t != nil {
			p := b.Key + "_" + MarketTotals + "_"
			cols = append(cols,
				Column{p + "last", formatTime(t.LastUpdate)},
				Column{p + "O_price", t.OverPrice.String()},
				Column{p + "O_point", t.OverPoint.String()},
				Column{p + "U_price", t.UnderPrice.String()},
				Column{p + "U_point", t.UnderPoint.String()},
			)
		}
	}
	return cols
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// lineFields maps a column suffix to the setter for that market value.
var lineFields = []struct {
	suffix string
	set    func(b *BookLines, v string) error
}{
	{"_h2h_last", func(b *BookLines, v string) error { return setTime(&moneyline(b).LastUpdate, v) }},
	{"_h2h_H_price", func(b *BookLines, v string) error { return setDecimal(&moneyline(b).HomePrice, v) }},
	{"_h2h_A_price", func(b *BookLines, v string) error { return setDecimal(&moneyline(b).AwayPrice, v) }},
	{"_spreads_last", func(b *BookLines, v string) error { return setTime(&spread(b).LastUpdate, v) }},
	{"_spreads_H_price", func(b *BookLines, v string) error { return setDecimal(&spread(b).HomePrice, v) }},
	{"_spreads_H_point", func(b *BookLines, v string) error { return setDecimal(&spread(b).HomePoint, v) }},
	{"_spreads_A_price", func(b *BookLines, v string) error { return setDecimal(&spread(b).AwayPrice, v) }},
	{"_spreads_A_point", func(b *BookLines, v string) error { return setDecimal(&spread(b).AwayPoint, v) }},
	{"_totals_last", func(b *BookLines, v string) error { return setTime(&total(b).LastUpdate, v) }},
	{"_totals_O_price", func(b *BookLines, v string) error { return setDecimal(&total(b).OverPrice, v) }},
	{"_totals_O_point", func(b *BookLines, v string) error { return setDecimal(&total(b).OverPoint, v) }},
	{"_totals_U_price", func(b *BookLines, v string) error { return setDecimal(&total(b).UnderPrice, v) }},
	{"_totals_U_point", func(b *BookLines, v string) error { return setDecimal(&total(b).UnderPoint, v) }},
	{"_last", func(b *BookLines, v string) error { return setTime(&b.LastUpdate, v) }},
}

// ParseColumns rebuilds books from flattened columns. Empty values are
// skipped, so a book that quoted no market in a row gets none. Books keep the
// order in which they first appear.
func ParseColumns(cols []Column) ([]BookLines, error) {
	var books []BookLines
	index := map[string]int{}
	for _, c := range cols {
		if c.Value == "" {
			continue
		}
		matched := false
		for _, f := range lineFields {
			key, ok := strings.CutSuffix(c.Name, f.suffix)
			if !ok || key == "" {
				continue
			}
			i, seen := index[key]
			if !seen {
				i = len(books)
				index[key] = i
				books = append(books, BookLines{Key: key})
			}
			if err := f.set(&books[i], c.Value); err != nil {
				return nil, fmt.Errorf("column %s: %w", c.Name, err)
			}
			matched = true
			break
		}
		if !matched {
			return nil, fmt.Errorf("unrecognized lines column %q", c.Name)
		}
	}
	return books, nil
}

func moneyline(b *BookLines) *Moneyline {
	if b.Moneyline == nil {
		b.Moneyline = &Moneyline{}
	}
	return b.Moneyline
}

func spread(b *BookLines) *Spread {
	if b.Spread == nil {
		b.Spread = &Spread{}
	}
	return b.Spread
}

func total(b *BookLines) *Total {
	if b.Total == nil {
		b.Total = &Total{}
	}
	return b.Total
}

func setTime(dst *time.Time, v string) error {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return err
	}
	*dst = t
	return nil
}

func setDecimal(dst *decimal.Decimal, v string) error {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
