package tracker

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

//go:embed teams.csv
var defaultTeams string

// prefixDateLayout is the calendar-date part of a prefix (YYYYMMDD).
const prefixDateLayout = "20060102"

// Team is one row of the team table: id,league,city,name.
type Team struct {
	ID     string
	League string
	City   string
	Name   string
}

// TeamTable resolves free-form team names to team codes.
type TeamTable struct {
	byName map[string]Team
}

// NewTeamTable indexes teams by normalized nickname.
func NewTeamTable(teams []Team) *TeamTable {
	t := &TeamTable{byName: make(map[string]Team, len(teams))}
	for _, team := range teams {
		t.byName[normalizeName(team.Name)] = team
	}
	return t
}

// DefaultTeamTable returns the built-in table of major league clubs.
func DefaultTeamTable() *TeamTable {
	t, err := ReadTeamTable(strings.NewReader(defaultTeams))
	if err != nil {
		panic(fmt.Sprintf("tracker: embedded team table: %v", err))
	}
	return t
}

// LoadTeamTable reads a team CSV from path. An empty path yields the built-in table.
func LoadTeamTable(path string) (*TeamTable, error) {
	if path == "" {
		return DefaultTeamTable(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open team table: %w", err)
	}
	defer f.Close()
	return ReadTeamTable(f)
}

// ReadTeamTable parses headerless id,league,city,name rows.
func ReadTeamTable(r io.Reader) (*TeamTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse team table: %w", err)
	}
	teams := make([]Team, 0, len(records))
	for _, rec := range records {
		teams = append(teams, Team{ID: rec[0], League: rec[1], City: rec[2], Name: rec[3]})
	}
	if len(teams) == 0 {
		return nil, fmt.Errorf("team table is empty")
	}
	return NewTeamTable(teams), nil
}

// Lookup matches the longest trailing word span of name against the
// table, so "Boston Red Sox", "Red Sox" and "BOSTON RED SOX" all resolve.
func (t *TeamTable) Lookup(name string) (Team, error) {
	words := strings.Fields(normalizeName(name))
	for i := range words {
		if team, ok := t.byName[strings.Join(words[i:], " ")]; ok {
			return team, nil
		}
	}
	return Team{}, &UnknownTeamError{Name: name}
}

// Prefix returns the venue-day key: the home team's code followed by day as YYYYMMDD.
func (t *TeamTable) Prefix(home string, day time.Time) (string, error) {
	team, err := t.Lookup(home)
	if err != nil {
		return "", err
	}
	return team.ID + day.Format(prefixDateLayout), nil
}

// Len returns the number of teams in the table.
func (t *TeamTable) Len() int { return len(t.byName) }

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func normalizeName(name string) string {
	folded, _, err := transform.String(accentStripper, name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(strings.ReplaceAll(folded, ".", " "))
	return strings.Join(strings.Fields(folded), " ")
}

// IDGenerator hands out game ids. It outlives any single driver so a
// restarted run never reuses an id.
type IDGenerator struct {
	mu   sync.Mutex
	next map[string]int
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{next: make(map[string]int)}
}

// NewID returns prefix followed by the next unused decimal suffix, starting at 0.
func (g *IDGenerator) NewID(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.next[prefix]
	g.next[prefix] = n + 1
	return prefix + strconv.Itoa(n)
}
