// Package feeds aggregates the published JSON data files and derives the
// grounding context injected into the assistant's system prompt.
package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Feed file names relative to the raw base URL.
const (
	feedResults          = "results.json"
	feedNHLResults       = "nhl_results.json"
	feedNCAABResults     = "ncaab_results.json"
	feedProjections      = "projections.json"
	feedGameProjections  = "game_projections.json"
	feedNHLGameProj      = "nhl_game_projections.json"
	feedNCAABProjections = "ncaab_projections.json"
)

type CategoryRecord struct {
	Wins   int     `json:"wins"`
	Losses int     `json:"losses"`
	Pct    float64 `json:"pct"`
	ROI    float64 `json:"roi"`
}

type DayCategory struct {
	Record string `json:"record"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
}

type DayRecord struct {
	Date       string       `json:"date"`
	Props      *DayCategory `json:"props"`
	Spreads    *DayCategory `json:"spreads"`
	Totals     *DayCategory `json:"totals"`
	Moneylines *DayCategory `json:"moneylines"`
}

// Categories returns the day's per-category records keyed by name, in
// the fixed rendering order.
func (d DayRecord) Categories() []struct {
	Name string
	Cat  *DayCategory
} {
	return []struct {
		Name string
		Cat  *DayCategory
	}{
		{"props", d.Props},
		{"spreads", d.Spreads},
		{"totals", d.Totals},
		{"moneylines", d.Moneylines},
	}
}

type ResultsFeed struct {
	AllTime map[string]CategoryRecord `json:"allTime"`
	Days    []DayRecord               `json:"days"`
}

func (f *ResultsFeed) Day(date string) *DayRecord {
	if f == nil {
		return nil
	}
	for i := range f.Days {
		if f.Days[i].Date == date {
			return &f.Days[i]
		}
	}
	return nil
}

type Projection struct {
	Player     string  `json:"player"`
	Prop       string  `json:"prop"`
	Direction  string  `json:"direction"`
	Line       float64 `json:"line"`
	Projection float64 `json:"projection"`
	Confidence float64 `json:"confidence"`
	EV         float64 `json:"ev"`
}

type ProjectionsFeed struct {
	Projections []Projection `json:"projections"`
}

type GamePick struct {
	AwayTeam   string  `json:"away_team"`
	HomeTeam   string  `json:"home_team"`
	SpreadPick string  `json:"spread_pick"`
	SpreadConf float64 `json:"spread_conf"`
	TotalPick  string  `json:"total_pick"`
	TotalConf  float64 `json:"total_conf"`
	MLPick     string  `json:"ml_pick"`
	MLConf     float64 `json:"ml_conf"`
}

type GamesFeed struct {
	Games []GamePick `json:"games"`
}

// Snapshot holds every fetched feed. A nil field means that feed was
// absent or malformed on the one fetch this process performed.
type Snapshot struct {
	Results          *ResultsFeed
	NHLResults       *ResultsFeed
	NCAABResults     *ResultsFeed
	Projections      *ProjectionsFeed
	GameProjections  *GamesFeed
	NHLGameProj      *GamesFeed
	NCAABProjections *GamesFeed
}

// Thresholds are the per-sport notability cutoffs for the game sections
// of the system prompt.
type Thresholds struct {
	NBA   float64
	NHL   float64
	NCAAB float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{NBA: 60, NHL: 58, NCAAB: 62}
}

// Aggregator fetches the feeds once and caches the snapshot for its
// lifetime. A fetch where every feed failed is not cached so a later
// call can retry.
type Aggregator struct {
	baseURL    string
	client     *http.Client
	thresholds Thresholds
	log        *zap.Logger

	mu     sync.Mutex
	cached *Snapshot

	now func() time.Time
}

func New(baseURL string, timeout time.Duration, th Thresholds, log *zap.Logger) *Aggregator {
	return &Aggregator{
		baseURL:    baseURL,
		client:     &http.Client{Timeout: timeout},
		thresholds: th,
		log:        log,
		now:        time.Now,
	}
}

// FetchAll returns the cached snapshot or fans out all feed fetches
// concurrently. Individual feed failures degrade that feed to nil.
func (a *Aggregator) FetchAll(ctx context.Context) *Snapshot {
	a.mu.Lock()
	if a.cached != nil {
		snap := a.cached
		a.mu.Unlock()
		return snap
	}
	a.mu.Unlock()

	snap := &Snapshot{}
	bust := fmt.Sprintf("?v=%d", a.now().UnixMilli())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { snap.Results = fetchJSON[ResultsFeed](ctx, a, feedResults, bust); return nil })
	g.Go(func() error { snap.NHLResults = fetchJSON[ResultsFeed](ctx, a, feedNHLResults, bust); return nil })
	g.Go(func() error { snap.NCAABResults = fetchJSON[ResultsFeed](ctx, a, feedNCAABResults, bust); return nil })
	g.Go(func() error { snap.Projections = fetchJSON[ProjectionsFeed](ctx, a, feedProjections, bust); return nil })
	g.Go(func() error { snap.GameProjections = fetchJSON[GamesFeed](ctx, a, feedGameProjections, bust); return nil })
	g.Go(func() error { snap.NHLGameProj = fetchJSON[GamesFeed](ctx, a, feedNHLGameProj, bust); return nil })
	g.Go(func() error { snap.NCAABProjections = fetchJSON[GamesFeed](ctx, a, feedNCAABProjections, bust); return nil })
	_ = g.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cached == nil && !snap.empty() {
		a.cached = snap
	}
	if a.cached != nil {
		return a.cached
	}
	return snap
}

func (s *Snapshot) empty() bool {
	return s.Results == nil && s.NHLResults == nil && s.NCAABResults == nil &&
		s.Projections == nil && s.GameProjections == nil &&
		s.NHLGameProj == nil && s.NCAABProjections == nil
}

func fetchJSON[T any](ctx context.Context, a *Aggregator, name, bust string) *T {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+name+bust, nil)
	if err != nil {
		return nil
	}
	resp, err := a.client.Do(req)
	if err != nil {
		a.log.Warn("feed fetch failed", zap.String("feed", name), zap.Error(err))
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		a.log.Warn("feed fetch non-200", zap.String("feed", name), zap.Int("status", resp.StatusCode))
		return nil
	}
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		a.log.Warn("feed decode failed", zap.String("feed", name), zap.Error(err))
		return nil
	}
	return &out
}
