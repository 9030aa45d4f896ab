package match

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Odd type tags for the common outcome kinds. Market blocks from exotic
// markets may carry bookmaker-specific labels instead.
const (
	OddHome  = "home"
	OddDraw  = "draw"
	OddAway  = "away"
	OddOver  = "over"
	OddUnder = "under"
	OddYes   = "yes"
	OddNo    = "no"
)

// ErrConflict reports a unique-constraint race on the natural key or a
// unique name. Callers retry once by re-fetching the now-existing row.
var ErrConflict = errors.New("write conflict")

// Key is the natural key of one real-world match. The surrogate Match.ID
// exists only for foreign keys; Key is the logical identity.
type Key struct {
	Date          time.Time
	HomeTeamID    int64
	AwayTeamID    int64
	CompetitionID int64
}

func (k Key) Validate() error {
	if k.Date.IsZero() {
		return fmt.Errorf("match date is required")
	}
	if k.HomeTeamID <= 0 || k.AwayTeamID <= 0 {
		return fmt.Errorf("match team ids are required")
	}
	if k.HomeTeamID == k.AwayTeamID {
		return fmt.Errorf("home and away team must differ")
	}
	if k.CompetitionID <= 0 {
		return fmt.Errorf("match competition id is required")
	}

	return nil
}

// String renders a stable lock/map key. Date is second-truncated UTC, same
// granularity the store keeps.
func (k Key) String() string {
	var sb strings.Builder
	sb.WriteString(k.Date.UTC().Truncate(time.Second).Format(time.RFC3339))
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatInt(k.HomeTeamID, 10))
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatInt(k.AwayTeamID, 10))
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatInt(k.CompetitionID, 10))
	return sb.String()
}

// Match is one stored row. Duplicate rows per Key exist in the wild (legacy
// batch imports, races); the reconcile pass collapses them.
type Match struct {
	ID            int64
	Date          time.Time
	HomeTeamID    int64
	AwayTeamID    int64
	CompetitionID int64
}

func (m Match) Key() Key {
	return Key{
		Date:          m.Date.UTC().Truncate(time.Second),
		HomeTeamID:    m.HomeTeamID,
		AwayTeamID:    m.AwayTeamID,
		CompetitionID: m.CompetitionID,
	}
}

// Market is one betting market under a match. Names come straight from the
// scrape; duplicates within one match are possible and are themselves an
// anomaly signal.
type Market struct {
	ID      int64
	MatchID int64
	Name    string
}

// Odd is one outcome price. Value is the dot-decimal form of the scraped
// comma-decimal text. (MarketID, Type) is unique; newer ingestions
// supersede the value in place.
type Odd struct {
	ID       int64
	MarketID int64
	Type     string
	Value    float64
}

// MarketSummary is the bulk read used by the scan pass: one row per market
// with its odds cardinality. Matches with zero markets simply have no rows.
type MarketSummary struct {
	MatchID    int64
	MatchDate  time.Time
	MarketID   int64
	MarketName string
	OddCount   int
}

// MergePlan is the write set for collapsing one duplicate group. The store
// applies it atomically in this order: re-parent, upsert odds, delete
// markets, delete matches. Deletes run last so a failure never orphans
// market or odds data.
type MergePlan struct {
	SurvivorID        int64
	ReparentMarketIDs []int64
	OddUpserts        []Odd
	DeleteMarketIDs   []int64
	DeleteMatchIDs    []int64
}

func (p MergePlan) Empty() bool {
	return len(p.ReparentMarketIDs) == 0 &&
		len(p.OddUpserts) == 0 &&
		len(p.DeleteMarketIDs) == 0 &&
		len(p.DeleteMatchIDs) == 0
}
