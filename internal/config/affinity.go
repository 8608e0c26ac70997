package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Affinity pins one worker to a core. Node is the preferred memory node, -1 if unset.
type Affinity struct {
	Set  bool
	Core int
	Node int
}

// ParseAffinity parses assignments for n workers:
//
//	<assignments> := <assignment> (',' <assignment>)*
//	<assignment>  := <threads> ':' <core> [':' <mem node>]
//	<threads>     := <id> | <id> '-' <id>
//
// Workers without an assignment stay unpinned. A later assignment overrides an earlier one.
func ParseAffinity(n int, s string) ([]Affinity, error) {
	out := make([]Affinity, n)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ":")
		if len(fields) < 2 || len(fields) > 3 {
			return nil, fmt.Errorf("%w: %q", ErrBadAffinity, part)
		}
		first, last, err := parseThreads(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadAffinity, part)
		}
		core, err := strconv.Atoi(fields[1])
		if err != nil || core < 0 {
			return nil, fmt.Errorf("%w: bad core in %q", ErrBadAffinity, part)
		}
		node := -1
		if len(fields) == 3 {
			if node, err = strconv.Atoi(fields[2]); err != nil || node < 0 {
				return nil, fmt.Errorf("%w: bad memory node in %q", ErrBadAffinity, part)
			}
		}
		if last >= n {
			return nil, fmt.Errorf("%w: thread id %d >= # of threads %d", ErrBadAffinity, last, n)
		}
		for id := first; id <= last; id++ {
			out[id] = Affinity{Set: true, Core: core, Node: node}
		}
	}
	return out, nil
}

func parseThreads(s string) (int, int, error) {
	lo, hi, isRange := strings.Cut(s, "-")
	first, err := strconv.Atoi(lo)
	if err != nil || first < 0 {
		return 0, 0, ErrBadAffinity
	}
	if !isRange {
		return first, first, nil
	}
	last, err := strconv.Atoi(hi)
	if err != nil || last < first {
		return 0, 0, ErrBadAffinity
	}
	return first, last, nil
}

func (a Affinity) String() string {
	if !a.Set {
		return "-"
	}
	if a.Node < 0 {
		return strconv.Itoa(a.Core)
	}
	return fmt.Sprintf("%d:%d", a.Core, a.Node)
}
