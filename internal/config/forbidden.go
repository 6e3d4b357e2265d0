package config

import (
	"bufio"
	"fmt"
	"sort"
	"strings"

	"github.com/banshee-data/movement.report/internal/rilsa"
	"github.com/banshee-data/movement.report/internal/traffic"
)

// ParseForbiddenMovements parses one "code:description" entry per line.
// Blank lines and lines starting with '#' are skipped. The description is
// optional; without one the movement's origin and destination are used.
// Every code must exist in table.
func ParseForbiddenMovements(text string, table *rilsa.Table) (traffic.ForbiddenMovements, error) {
	out := make(traffic.ForbiddenMovements)
	sc := bufio.NewScanner(strings.NewReader(text))
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		codeText, desc, _ := strings.Cut(raw, ":")
		code, err := rilsa.ParseCode(strings.TrimSpace(codeText))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rule, ok := table.Lookup(code)
		if !ok {
			return nil, fmt.Errorf("line %d: unknown movement code %d", line, code)
		}
		desc = strings.TrimSpace(desc)
		if desc == "" {
			desc = fmt.Sprintf("%s to %s (%s)", rule.Origin, rule.Dest, rule.Type)
		}
		out[code] = desc
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read forbidden movements: %w", err)
	}
	return out, nil
}

// FormatForbiddenMovements renders fm in the text form accepted by
// ParseForbiddenMovements, ordered by code.
func FormatForbiddenMovements(fm traffic.ForbiddenMovements) string {
	codes := make([]int, 0, len(fm))
	for c := range fm {
		codes = append(codes, int(c))
	}
	sort.Ints(codes)
	var b strings.Builder
	for _, c := range codes {
		fmt.Fprintf(&b, "%d:%s\n", c, fm[rilsa.Code(c)])
	}
	return b.String()
}
