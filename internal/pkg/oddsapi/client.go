// Package oddsapi fetches MLB betting lines from The Odds API.
package oddsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/sbconlon/mlb-scraper/internal/pkg/config"
	"github.com/sbconlon/mlb-scraper/internal/pkg/models"
)

// PrefixFunc maps an event's home team and commence time to a game id prefix.
type PrefixFunc func(home string, commence time.Time) (string, error)

// Client queries the odds endpoint for one sport.
type Client struct {
	baseURL    string
	apiKey     string
	params     url.Values
	sport      string
	httpClient *http.Client
	limiter    *rate.Limiter
	prefix     PrefixFunc

	mu        sync.Mutex
	remaining int
	used      int
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the configured base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func NewClient(cfg config.OddsConfig, prefix PrefixFunc, opts ...Option) *Client {
	params := url.Values{}
	params.Set("regions", cfg.Regions)
	params.Set("markets", cfg.Markets)
	params.Set("oddsFormat", cfg.OddsFormat)
	params.Set("dateFormat", cfg.DateFormat)

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Every(cfg.RateLimit)
	}
	c := &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		params:  params,
		sport:   cfg.Sport,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:    4,
				IdleConnTimeout: 90 * time.Second,
			},
		},
		limiter:   rate.NewLimiter(limit, 1),
		prefix:    prefix,
		remaining: -1,
		used:      -1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Usage returns the request quota reported by the last response, or -1
// for values not yet known.
func (c *Client) Usage() (remaining, used int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining, c.used
}

// Get fetches the current lines keyed by game id prefix. Events whose home
// team cannot be mapped are skipped. When two events share a prefix the
// earlier commence time wins.
func (c *Client) Get(ctx context.Context) (map[string]models.Lines, error) {
	events, err := c.query(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.Lines, len(events))
	for _, ev := range events {
		prefix, err := c.prefix(ev.HomeTeam, ev.CommenceTime)
		if err != nil {
			slog.Warn("Skipping odds event", "home_team", ev.HomeTeam, "event_id", ev.ID, "error", err)
			continue
		}
		if prev, ok := out[prefix]; ok && !ev.CommenceTime.Before(prev.CommenceTime) {
			continue
		}
		out[prefix] = ev.lines()
	}
	return out, nil
}

func (c *Client) query(ctx context.Context) ([]event, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	params := url.Values{}
	for k, v := range c.params {
		params[k] = v
	}
	params.Set("apiKey", c.apiKey)
	u := fmt.Sprintf("%s/sports/%s/odds?%s", c.baseURL, url.PathEscape(c.sport), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", acceptEncoding)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	c.updateUsage(resp.Header)

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return nil, fmt.Errorf("odds api error %d: %s", resp.StatusCode, preview)
	}

	var events []event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return events, nil
}

func (c *Client) updateUsage(h http.Header) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, err := strconv.Atoi(h.Get("x-requests-remaining")); err == nil {
		c.remaining = v
	}
	if v, err := strconv.Atoi(h.Get("x-requests-used")); err == nil {
		c.used = v
	}
}

type event struct {
	ID           string      `json:"id"`
	CommenceTime time.Time   `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []bookmaker `json:"bookmakers"`
}

type bookmaker struct {
	Key        string    `json:"key"`
	LastUpdate time.Time `json:"last_update"`
	Markets    []market  `json:"markets"`
}

type market struct {
	Key        string    `json:"key"`
	LastUpdate time.Time `json:"last_update"`
	Outcomes   []outcome `json:"outcomes"`
}

type outcome struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Point decimal.Decimal `json:"point"`
}

func (ev event) lines() models.Lines {
	l := models.Lines{
		HomeTeam:     ev.HomeTeam,
		AwayTeam:     ev.AwayTeam,
		CommenceTime: ev.CommenceTime,
	}
	for _, bm := range ev.Bookmakers {
		book := models.BookLines{Key: bm.Key, LastUpdate: bm.LastUpdate}
		for _, m := range bm.Markets {
			switch m.Key {
			case models.MarketH2H:
				book.Moneyline = ev.moneyline(m)
			case models.MarketSpreads:
				book.Spread = ev.spread(m)
			case models.MarketTotals:
				book.Total = totals(m)
			}
		}
		l.Books = append(l.Books, book)
	}
	return l
}

// moneyline maps h2h outcomes by team name. A market missing either side
// is dropped.
func (ev event) moneyline(m market) *models.Moneyline {
	ml := &models.Moneyline{LastUpdate: m.LastUpdate}
	var home, away bool
	for _, o := range m.Outcomes {
		switch o.Name {
		case ev.HomeTeam:
			ml.HomePrice, home = o.Price, true
		case ev.AwayTeam:
			ml.AwayPrice, away = o.Price, true
		}
	}
	if !home || !away {
		return nil
	}
	return ml
}

func (ev event) spread(m market) *models.Spread {
	s := &models.Spread{LastUpdate: m.LastUpdate}
	var home, away bool
	for _, o := range m.Outcomes {
		switch o.Name {
		case ev.HomeTeam:
			s.HomePrice, s.HomePoint, home = o.Price, o.Point, true
		case ev.AwayTeam:
			s.AwayPrice, s.AwayPoint, away = o.Price, o.Point, true
		}
	}
	if !home || !away {
		return nil
	}
	return s
}

func totals(m market) *models.Total {
	t := &models.Total{LastUpdate: m.LastUpdate}
	var over, under bool
	for _, o := range m.Outcomes {
		switch o.Name {
		case "Over":
			t.OverPrice, t.OverPoint, over = o.Price, o.Point, true
		case "Under":
			t.UnderPrice, t.UnderPoint, under = o.Price, o.Point, true
		}
	}
	if !over || !under {
		return nil
	}
	return t
}
