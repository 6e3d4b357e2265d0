// Package rilsa holds the turning-movement nomenclature used to label
// origin/destination pairs at a four-arm intersection.
//
// The table is configuration data: the store seeds it once and the engine
// receives it as a validated Table. DefaultRules mirrors the seed so tests
// and tools can build a Table without a database.
package rilsa

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ErrInvalidTable is wrapped by every error NewTable returns.
var ErrInvalidTable = errors.New("invalid movement rule table")

// Cardinal is the canonical compass label of an intersection access.
type Cardinal string

// The four accesses. West is "O" (Oeste) as in the RILSA nomenclature.
const (
	North Cardinal = "N"
	South Cardinal = "S"
	East  Cardinal = "E"
	West  Cardinal = "O"
)

// Cardinals lists the accesses in table order.
var Cardinals = []Cardinal{North, South, West, East}

// Valid reports whether c is one of the four canonical labels.
func (c Cardinal) Valid() bool {
	switch c {
	case North, South, East, West:
		return true
	}
	return false
}

// ParseCardinal accepts the canonical labels plus "W" as an alias for West.
func ParseCardinal(s string) (Cardinal, error) {
	switch s {
	case "N", "S", "E", "O":
		return Cardinal(s), nil
	case "W":
		return West, nil
	}
	return "", fmt.Errorf("unknown cardinal %q", s)
}

// Code is a RILSA movement code.
type Code int

// String renders the code the way reports and forbidden lists spell it.
func (c Code) String() string { return strconv.Itoa(int(c)) }

// ParseCode parses a decimal RILSA code.
func ParseCode(s string) (Code, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid movement code %q: %w", s, err)
	}
	return Code(n), nil
}

// MovementType groups codes by manoeuvre.
type MovementType string

const (
	Direct    MovementType = "direct"
	LeftTurn  MovementType = "left"
	RightTurn MovementType = "right"
	UTurn     MovementType = "u_turn"
)

// Rule maps one origin/destination pair to its code.
type Rule struct {
	Origin Cardinal     `json:"origin"`
	Dest   Cardinal     `json:"dest"`
	Code   Code         `json:"code"`
	Type   MovementType `json:"movement_type"`
}

// DefaultRules returns the standard 16-entry table.
func DefaultRules() []Rule {
	return []Rule{
		{North, South, 1, Direct},
		{South, North, 2, Direct},
		{West, East, 3, Direct},
		{East, West, 4, Direct},

		{North, East, 5, LeftTurn},
		{South, West, 6, LeftTurn},
		{West, North, 7, LeftTurn},
		{East, South, 8, LeftTurn},

		{North, West, 91, RightTurn},
		{South, East, 92, RightTurn},
		{West, South, 93, RightTurn},
		{East, North, 94, RightTurn},

		{North, North, 101, UTurn},
		{South, South, 102, UTurn},
		{West, West, 103, UTurn},
		{East, East, 104, UTurn},
	}
}

type pair struct {
	origin, dest Cardinal
}

// Table is a validated, total movement lookup. It is immutable after
// construction and safe for concurrent use.
type Table struct {
	byPair map[pair]Rule
	byCode map[Code]Rule
}

// NewTable validates rules and builds a Table. Every ordered pair of
// cardinals must appear exactly once and no code may repeat.
func NewTable(rules []Rule) (*Table, error) {
	t := &Table{
		byPair: make(map[pair]Rule, len(rules)),
		byCode: make(map[Code]Rule, len(rules)),
	}
	for _, r := range rules {
		if !r.Origin.Valid() || !r.Dest.Valid() {
			return nil, fmt.Errorf("%w: rule %d has unknown cardinal %q->%q", ErrInvalidTable, r.Code, r.Origin, r.Dest)
		}
		if r.Code <= 0 {
			return nil, fmt.Errorf("%w: non-positive code %d for %s->%s", ErrInvalidTable, r.Code, r.Origin, r.Dest)
		}
		k := pair{r.Origin, r.Dest}
		if _, dup := t.byPair[k]; dup {
			return nil, fmt.Errorf("%w: duplicate entry for %s->%s", ErrInvalidTable, r.Origin, r.Dest)
		}
		if prev, dup := t.byCode[r.Code]; dup {
			return nil, fmt.Errorf("%w: code %d used by %s->%s and %s->%s",
				ErrInvalidTable, r.Code, prev.Origin, prev.Dest, r.Origin, r.Dest)
		}
		t.byPair[k] = r
		t.byCode[r.Code] = r
	}
	for _, o := range Cardinals {
		for _, d := range Cardinals {
			if _, ok := t.byPair[pair{o, d}]; !ok {
				return nil, fmt.Errorf("%w: missing entry for %s->%s", ErrInvalidTable, o, d)
			}
		}
	}
	return t, nil
}

// MustDefaultTable builds the standard table and panics if it is invalid.
func MustDefaultTable() *Table {
	t, err := NewTable(DefaultRules())
	if err != nil {
		panic(err)
	}
	return t
}

// Resolve returns the rule for an origin/destination pair. ok is false only
// when either label is not a canonical cardinal.
func (t *Table) Resolve(origin, dest Cardinal) (Rule, bool) {
	r, ok := t.byPair[pair{origin, dest}]
	return r, ok
}

// Lookup returns the rule that owns code.
func (t *Table) Lookup(code Code) (Rule, bool) {
	r, ok := t.byCode[code]
	return r, ok
}

// Rules returns the table sorted by code.
func (t *Table) Rules() []Rule {
	out := make([]Rule, 0, len(t.byCode))
	for _, r := range t.byCode {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
