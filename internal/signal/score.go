package signal

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// Scoring profile names accepted by NewScorer.
const (
	ProfileCanonical = "canonical"
	ProfileExtended  = "extended"
)

// Scorer assigns an integer conviction score to a normalized disclosure.
// Explain lists the contributions that add up to Score, for the score log.
type Scorer interface {
	Name() string
	Score(rec domain.TransactionRecord) int
	Explain(rec domain.TransactionRecord) []string
}

// CanonicalScorer applies the four independent additive rules: trade size
// tier, direction, excess return tier, and a flat activity bonus.
type CanonicalScorer struct{}

// Name returns the profile name.
func (CanonicalScorer) Name() string { return ProfileCanonical }

// Score returns the sum of all rule contributions for rec.
func (CanonicalScorer) Score(rec domain.TransactionRecord) int {
	return sizeTier(rec) + direction(rec) + excessTier(rec) + 1
}

// Explain returns the four rule contributions.
func (CanonicalScorer) Explain(rec domain.TransactionRecord) []string {
	return []string{
		fmt.Sprintf("size=%+d", sizeTier(rec)),
		fmt.Sprintf("direction=%+d", direction(rec)),
		fmt.Sprintf("excess=%+d", excessTier(rec)),
		"activity=+1",
	}
}

func sizeTier(rec domain.TransactionRecord) int {
	if !rec.HasTradeSize {
		return 0
	}
	switch {
	case rec.TradeSize >= 100_000:
		return 3
	case rec.TradeSize >= 25_000:
		return 2
	default:
		return 1
	}
}

func direction(rec domain.TransactionRecord) int {
	switch rec.Kind {
	case domain.TransactionBuy:
		return 2
	case domain.TransactionSell:
		return -2
	default:
		return 0
	}
}

func excessTier(rec domain.TransactionRecord) int {
	if !rec.HasExcessReturn {
		return 0
	}
	switch {
	case rec.ExcessReturn > 0.05:
		return 2
	case rec.ExcessReturn > 0:
		return 1
	default:
		return 0
	}
}

// DefaultHighProfileNames is the actor list used by the extended profile when
// none is configured.
var DefaultHighProfileNames = []string{
	"Nancy Pelosi",
	"Dan Crenshaw",
	"Josh Gottheimer",
	"Ro Khanna",
	"Tommy Tuberville",
	"Marjorie Taylor Greene",
}

// ExtendedScorer is the canonical rule set plus an actor-name bonus and a
// recency bonus.
type ExtendedScorer struct {
	names []string // lower-cased
	now   func() time.Time
}

// NewExtendedScorer builds an ExtendedScorer. An empty names list falls back
// to DefaultHighProfileNames; a nil clock uses time.Now.
func NewExtendedScorer(names []string, now func() time.Time) *ExtendedScorer {
	if len(names) == 0 {
		names = DefaultHighProfileNames
	}
	if now == nil {
		now = time.Now
	}
	lowered := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			lowered = append(lowered, n)
		}
	}
	return &ExtendedScorer{names: lowered, now: now}
}

// Name returns the profile name.
func (s *ExtendedScorer) Name() string { return ProfileExtended }

// Score returns the canonical score plus +2 for a high-profile actor and a
// recency bonus of +2 (within 7 days) or +1 (within 14 days).
func (s *ExtendedScorer) Score(rec domain.TransactionRecord) int {
	return CanonicalScorer{}.Score(rec) + s.actorBonus(rec) + s.recencyBonus(rec)
}

// Explain returns the canonical contributions followed by both bonuses.
func (s *ExtendedScorer) Explain(rec domain.TransactionRecord) []string {
	return append(CanonicalScorer{}.Explain(rec),
		fmt.Sprintf("high_profile=%+d", s.actorBonus(rec)),
		fmt.Sprintf("recency=%+d", s.recencyBonus(rec)),
	)
}

func (s *ExtendedScorer) actorBonus(rec domain.TransactionRecord) int {
	actor := strings.ToLower(rec.ActorName)
	for _, n := range s.names {
		if strings.Contains(actor, n) {
			return 2
		}
	}
	return 0
}

func (s *ExtendedScorer) recencyBonus(rec domain.TransactionRecord) int {
	age := s.now().UTC().Sub(rec.TransactedAt)
	switch {
	case age <= 7*24*time.Hour:
		return 2
	case age <= 14*24*time.Hour:
		return 1
	}
	return 0
}

// ScorerOptions configures NewScorer.
type ScorerOptions struct {
	HighProfileNames []string
	Now              func() time.Time
}

// NewScorer returns the scorer for the named profile. An empty name selects
// the canonical profile.
func NewScorer(profile string, opts ScorerOptions) (Scorer, error) {
	switch strings.ToLower(strings.TrimSpace(profile)) {
	case "", ProfileCanonical:
		return CanonicalScorer{}, nil
	case ProfileExtended:
		return NewExtendedScorer(opts.HighProfileNames, opts.Now), nil
	default:
		return nil, fmt.Errorf("signal: unknown scoring profile %q (valid: %s, %s)",
			profile, ProfileCanonical, ProfileExtended)
	}
}

// Rank scores every record and returns them sorted by descending score.
// Records with equal scores keep their input order. Each result carries the
// scorer's explanation of its score.
func Rank(records []domain.TransactionRecord, scorer Scorer) []domain.ScoredTransaction {
	out := make([]domain.ScoredTransaction, len(records))
	for i, rec := range records {
		out[i] = domain.ScoredTransaction{
			TransactionRecord: rec,
			Score:             scorer.Score(rec),
			Reason:            reason(rec, scorer.Explain(rec)),
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// Summarize aggregates ranked disclosures per ticker: the best score, the
// number of distinct actors, and the most recent transaction date. Tickers
// appear in order of their first (highest-ranked) occurrence.
func Summarize(runID string, ranked []domain.ScoredTransaction, now time.Time) []domain.TickerScore {
	type agg struct {
		score  domain.TickerScore
		actors map[string]bool
		last   time.Time
	}
	byTicker := make(map[string]*agg)
	var order []string

	for _, st := range ranked {
		ticker := strings.ToUpper(strings.TrimSpace(st.Ticker))
		if ticker == "" {
			continue
		}
		a, ok := byTicker[ticker]
		if !ok {
			a = &agg{
				score: domain.TickerScore{
					RunID:     runID,
					Ticker:    ticker,
					Score:     st.Score,
					Reason:    st.Reason,
					CreatedAt: now,
				},
				actors: make(map[string]bool),
			}
			byTicker[ticker] = a
			order = append(order, ticker)
		}
		if st.ActorName != "" {
			a.actors[st.ActorName] = true
		}
		if st.TransactedAt.After(a.last) {
			a.last = st.TransactedAt
		}
	}

	out := make([]domain.TickerScore, 0, len(order))
	for _, t := range order {
		a := byTicker[t]
		a.score.PoliticianCount = len(a.actors)
		if !a.last.IsZero() {
			last := a.last
			a.score.LastTradeDate = &last
		}
		out = append(out, a.score)
	}
	return out
}

// reason renders the rule contributions behind a score, for the score log.
func reason(rec domain.TransactionRecord, parts []string) string {
	if rec.ActorName != "" {
		parts = append(parts, "actor="+rec.ActorName)
	}
	return strings.Join(parts, " ")
}
