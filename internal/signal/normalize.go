// Package signal turns raw legislator disclosures into ranked buy candidates:
// normalization, scoring, ranking, and trade selection.
package signal

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// Window is the trailing period of disclosures considered on each run.
const Window = 30 * 24 * time.Hour

// schema describes where each canonical field lives in one feed layout.
type schema struct {
	name         string
	dateKey      string
	sizeKey      string
	excessKey    string
	actorKey     string
	companyKeys  []string
	chamberKey   string
	substringDir bool // direction is matched by substring ("Purchase"/"Sale")
}

var (
	bulkSchema = schema{
		name:        "bulk",
		dateKey:     "Traded",
		sizeKey:     "Trade_Size_USD",
		excessKey:   "excess_return",
		actorKey:    "Name",
		companyKeys: []string{"Company"},
		chamberKey:  "Chamber",
	}
	liveSchema = schema{
		name:         "live",
		dateKey:      "Date",
		sizeKey:      "Amount",
		excessKey:    "ExcessReturn",
		actorKey:     "Representative",
		companyKeys:  []string{"Company", "Description"},
		chamberKey:   "House",
		substringDir: true,
	}
)

// detectSchema picks the feed layout for a batch. A column counts as present
// when any record carries it.
func detectSchema(records []domain.RawRecord) (schema, bool) {
	if hasColumn(records, bulkSchema.dateKey) {
		return bulkSchema, true
	}
	if hasColumn(records, liveSchema.dateKey) {
		return liveSchema, true
	}
	return schema{}, false
}

func hasColumn(records []domain.RawRecord, key string) bool {
	for _, r := range records {
		if _, ok := r[key]; ok {
			return true
		}
	}
	return false
}

// Normalize converts a batch of raw feed records into canonical transaction
// records, keeping only those transacted within Window before now. Records
// whose date does not parse are dropped. Feed order is preserved.
//
// A non-empty batch that carries neither a Traded nor a Date column returns
// domain.ErrMissingDateColumn.
func Normalize(records []domain.RawRecord, now time.Time) ([]domain.TransactionRecord, error) {
	if len(records) == 0 {
		return []domain.TransactionRecord{}, nil
	}

	sc, ok := detectSchema(records)
	if !ok {
		return nil, domain.ErrMissingDateColumn
	}

	hasSize := hasColumn(records, sc.sizeKey)
	hasExcess := hasColumn(records, sc.excessKey)
	cutoff := now.UTC().Add(-Window)

	out := make([]domain.TransactionRecord, 0, len(records))
	for _, r := range records {
		ts, ok := ParseTime(r[sc.dateKey])
		if !ok || ts.Before(cutoff) {
			continue
		}

		raw := stringField(r, "Transaction")
		rec := domain.TransactionRecord{
			Ticker:          strings.TrimSpace(stringField(r, "Ticker")),
			Kind:            parseKind(raw, sc.substringDir),
			RawTransaction:  raw,
			HasTradeSize:    hasSize,
			HasExcessReturn: hasExcess,
			TransactedAt:    ts,
			ActorName:       stringField(r, sc.actorKey),
			Party:           stringField(r, "Party"),
			District:        stringField(r, "District"),
			Chamber:         stringField(r, sc.chamberKey),
		}
		for _, k := range sc.companyKeys {
			if v := stringField(r, k); v != "" {
				rec.Company = v
				break
			}
		}
		if hasSize {
			rec.TradeSize = numberField(r, sc.sizeKey)
		}
		if hasExcess {
			rec.ExcessReturn = numberField(r, sc.excessKey)
		}
		out = append(out, rec)
	}
	return out, nil
}

// parseKind maps free-text transaction descriptions to a direction.
func parseKind(raw string, substring bool) domain.TransactionKind {
	if substring {
		lower := strings.ToLower(raw)
		switch {
		case strings.Contains(lower, "purchase"):
			return domain.TransactionBuy
		case strings.Contains(lower, "sale"):
			return domain.TransactionSell
		}
		return domain.TransactionUnknown
	}
	switch strings.ToUpper(raw) {
	case "BUY":
		return domain.TransactionBuy
	case "SELL":
		return domain.TransactionSell
	}
	return domain.TransactionUnknown
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseTime parses a feed date value. Strings are tried against a list of
// common layouts; numbers are Unix seconds. Values without a zone are UTC.
func ParseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return t.UTC(), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC(), true
			}
		}
		return time.Time{}, false
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return time.Time{}, false
		}
		sec, frac := math.Modf(t)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
	case int64:
		return time.Unix(t, 0).UTC(), true
	case int:
		return time.Unix(int64(t), 0).UTC(), true
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return ParseTime(f)
		}
	}
	return time.Time{}, false
}

// stringField returns the record value as a string, or "" when it is missing
// or null.
func stringField(r domain.RawRecord, key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// numberField coerces a record value to a float. Missing, null or malformed
// values coerce to 0.
func numberField(r domain.RawRecord, key string) float64 {
	var f float64
	switch v := r[key].(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
