package analytics

import (
	"bufio"
	"encoding/json"
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"albumd/internal/album"
)

const (
	MinLimit = 1
	MaxLimit = 5000

	unknownCity = "unknown"
	maxLineSize = 1 << 20
)

// Analytics aggregates the visit log, backup first then live. limit is
// clamped to 1..5000 and bounds the recent list, newest first. Local
// records are dropped unless includeLocal is set. Malformed lines are
// skipped.
func (s *Store) Analytics(limit int, includeLocal bool) (*album.AnalyticsReport, error) {
	limit = max(MinLimit, min(limit, MaxLimit))
	today := s.clock.Now().UTC().Format(time.DateOnly)

	agg := newAggregator(limit, today)

	s.logMu.Lock()
	defer s.logMu.Unlock()

	live := filepath.Join(s.dir, VisitsFileName)
	for _, path := range []string{live + BackupSuffix, live} {
		err := scanVisits(path, func(v album.Visit) {
			if !includeLocal && (v.City == LocalCity || IsLocalIP(v.IP)) {
				return
			}
			agg.add(v)
		})
		if err != nil {
			return nil, album.IOError("reading visit log", err)
		}
	}
	return agg.report(), nil
}

func scanVisits(path string, fn func(album.Visit)) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var v album.Visit
		if err := json.Unmarshal(line, &v); err != nil {
			continue
		}
		fn(v)
	}
	return sc.Err()
}

type aggregator struct {
	limit  int
	today  string
	recent []album.Visit
	next   int
	total  int

	byCity  map[string]int
	byDate  map[string]int
	byToken map[string]int
	perIP   map[string]map[string]int
	todayN  int
}

func newAggregator(limit int, today string) *aggregator {
	return &aggregator{
		limit:   limit,
		today:   today,
		recent:  make([]album.Visit, 0, min(limit, 256)),
		byCity:  make(map[string]int),
		byDate:  make(map[string]int),
		byToken: make(map[string]int),
		perIP:   make(map[string]map[string]int),
	}
}

func (a *aggregator) add(v album.Visit) {
	a.total++

	// recent is a ring once full.
	if len(a.recent) < a.limit {
		a.recent = append(a.recent, v)
	} else {
		a.recent[a.next] = v
		a.next = (a.next + 1) % a.limit
	}

	city := v.City
	if city == "" {
		city = unknownCity
	}
	a.byCity[city]++

	if date := visitDate(v.Time); date != "" {
		a.byDate[date]++
		if date == a.today {
			a.todayN++
		}
	}

	a.byToken[v.Token]++

	tokens := a.perIP[v.IP]
	if tokens == nil {
		tokens = make(map[string]int)
		a.perIP[v.IP] = tokens
	}
	tokens[v.Token]++
}

func (a *aggregator) report() *album.AnalyticsReport {
	recent := make([]album.Visit, 0, len(a.recent))
	for i := len(a.recent) - 1; i >= 0; i-- {
		recent = append(recent, a.recent[(a.next+i)%len(a.recent)])
	}

	var correlations []album.Correlation
	for ip, tokens := range a.perIP {
		if len(tokens) < 2 {
			continue
		}
		c := album.Correlation{IP: ip}
		for _, tc := range sortedCounts(tokens) {
			c.Tokens = append(c.Tokens, tc.Key)
			c.Total += tc.Count
		}
		correlations = append(correlations, c)
	}
	sort.Slice(correlations, func(i, j int) bool {
		if correlations[i].Total != correlations[j].Total {
			return correlations[i].Total > correlations[j].Total
		}
		return correlations[i].IP < correlations[j].IP
	})
	if correlations == nil {
		correlations = []album.Correlation{}
	}

	return &album.AnalyticsReport{
		Recent:       recent,
		ByCity:       sortedCounts(a.byCity),
		ByDate:       countsByKey(a.byDate),
		ByToken:      sortedCounts(a.byToken),
		Correlations: correlations,
		Today:        a.todayN,
		UniqueIPs:    len(a.perIP),
		UniqueTokens: len(a.byToken),
		Total:        a.total,
	}
}

// sortedCounts orders by descending count, then key.
func sortedCounts(m map[string]int) []album.Count {
	out := make([]album.Count, 0, len(m))
	for k, n := range m {
		out = append(out, album.Count{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// countsByKey orders by key, which for dates is chronological.
func countsByKey(m map[string]int) []album.Count {
	out := make([]album.Count, 0, len(m))
	for k, n := range m {
		out = append(out, album.Count{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// visitDate returns the UTC calendar date of an RFC 3339 timestamp.
func visitDate(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ""
	}
	return t.UTC().Format(time.DateOnly)
}
