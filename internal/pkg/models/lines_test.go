package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLinesColumns(t *testing.T) {
	at := time.Date(2024, 7, 4, 22, 0, 0, 0, time.UTC)
	l := Lines{Books: []BookLines{
		{
			Key:        "draftkings",
			LastUpdate: at,
			Moneyline: &Moneyline{
				LastUpdate: at,
				HomePrice:  decimal.RequireFromString("1.65"),
				AwayPrice:  decimal.RequireFromString("2.3"),
			},
			Total: &Total{
				OverPrice:  decimal.RequireFromString("1.9"),
				OverPoint:  decimal.RequireFromString("8.5"),
				UnderPrice: decimal.RequireFromString("1.9"),
				UnderPoint: decimal.RequireFromString("8.5"),
			},
		},
	}}

	want := []Column{
		{"draftkings_last", "2024-07-04T22:00:00Z"},
		{"draftkings_h2h_last", "2024-07-04T22:00:00Z"},
		{"draftkings_h2h_H_price", "1.65"},
		{"draftkings_h2h_A_price", "2.3"},
		{"draftkings_totals_last", ""},
		{"draftkings_totals_O_price", "1.9"},
		{"draftkings_totals_O_point", "8.5"},
		{"draftkings_totals_U_price", "1.9"},
		{"draftkings_totals_U_point", "8.5"},
	}
	got := l.Columns()
	if len(got) != len(want) {
		t.Fatalf("Columns() returned %d columns, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestStampedAtCopies(t *testing.T) {
	l := Lines{HomeTeam: "New York Yankees"}
	ts := time.Date(2024, 7, 4, 20, 0, 0, 0, time.UTC)
	s := l.StampedAt(ts)
	if !s.Stamp.Equal(ts) || !l.Stamp.IsZero() {
		t.Errorf("StampedAt mutated the receiver or lost the stamp: %v, %v", l.Stamp, s.Stamp)
	}
	if l.Book("missing") != nil {
		t.Error("Book returned an entry for a missing key")
	}
}

func TestParseColumns(t *testing.T) {
	cols := []Column{
		{"williamhill_us_last", "2024-07-04T22:00:00Z"},
		{"williamhill_us_spreads_last", "2024-07-04T21:55:00Z"},
		{"williamhill_us_spreads_H_price", "2.15"},
		{"williamhill_us_spreads_H_point", "-1.5"},
		{"williamhill_us_spreads_A_price", "1.7"},
		{"williamhill_us_spreads_A_point", "1.5"},
		{"fanduel_last", "2024-07-04T22:01:00Z"},
		{"fanduel_h2h_last", ""},
		{"fanduel_h2h_H_price", ""},
	}
	books, err := ParseColumns(cols)
	if err != nil {
		t.Fatalf("ParseColumns: %v", err)
	}
	if len(books) != 2 || books[0].Key != "williamhill_us" || books[1].Key != "fanduel" {
		t.Fatalf("books = %+v", books)
	}
	s := books[0].Spread
	if s == nil || !s.HomePoint.Equal(decimal.RequireFromString("-1.5")) || !s.AwayPrice.Equal(decimal.RequireFromString("1.7")) {
		t.Errorf("spread = %+v", s)
	}
	if books[1].Moneyline != nil {
		t.Errorf("empty h2h columns produced a moneyline: %+v", books[1].Moneyline)
	}
}

func TestParseColumnsRejects(t *testing.T) {
	tests := []Column{
		{"draftkings_h2h_H_price", "abc"},
		{"draftkings_h2h_last", "yesterday"},
		{"timestamp", "2024-07-04T22:00:00Z"},
	}
	for _, c := range tests {
		if _, err := ParseColumns([]Column{c}); err == nil {
			t.Errorf("ParseColumns(%v) succeeded, want error", c)
		}
	}
}
