package payload

import (
	"math"
	"testing"
	"time"

	"github.com/Bandi86/2025-sub012/internal/domain/match"
)

func TestParseDecimal(t *testing.T) {
	cases := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "3,70", want: 3.70},
		{in: "1,05", want: 1.05},
		{in: "2.40", want: 2.40},
		{in: " 12,5 ", want: 12.5},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "-1,50", wantErr: true},
		{in: "0", wantErr: true},
		{in: "0,00", wantErr: true},
		{in: "NaN", wantErr: true},
		{in: "Inf", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParseDecimal(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseDecimal(%q): expected error, got %v", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseDecimal(%q): %v", tc.in, err)
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("ParseDecimal(%q): got=%v want=%v", tc.in, got, tc.want)
		}
	}
}

func TestParseDateNormalizesUTC(t *testing.T) {
	got, err := ParseDate("2025-06-01T20:00:00+02:00")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	if got.Location() != time.UTC {
		t.Fatalf("expected UTC, got %v", got.Location())
	}
	if got.Hour() != 18 {
		t.Fatalf("expected 18:00 UTC, got %v", got)
	}

	if _, err := ParseDate("next tuesday"); err == nil {
		t.Fatal("expected error for unparseable date")
	}
	if _, err := ParseDate(""); err == nil {
		t.Fatal("expected error for empty date")
	}
}

func TestParseItemizedFieldsWinOverOrigMarket(t *testing.T) {
	raw := RawMatchPayload{
		HomeTeam:    "Dortmund",
		AwayTeam:    "Monterrey",
		Competition: "Club World Cup",
		Date:        "2025-06-01",
		Markets: []RawMarket{{
			Name:       "Main Market",
			OrigMarket: "9,99 9,99 9,99",
			Odds1:      "1,80",
			OddsX:      "3,60",
			Odds2:      "4,20",
		}},
	}

	parsed, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed.Markets) != 1 {
		t.Fatalf("expected 1 market, got %d", len(parsed.Markets))
	}

	odds := parsed.Markets[0].Odds
	if len(odds) != 3 {
		t.Fatalf("expected 3 odds, got %d", len(odds))
	}
	want := map[string]float64{match.OddHome: 1.80, match.OddDraw: 3.60, match.OddAway: 4.20}
	for _, odd := range odds {
		if math.Abs(odd.Value-want[odd.Type]) > 1e-9 {
			t.Fatalf("odd %s: got=%v want=%v", odd.Type, odd.Value, want[odd.Type])
		}
	}
}

func TestParseOrigMarketFallbackPositional(t *testing.T) {
	parsed, err := Parse(RawMatchPayload{
		HomeTeam:    "Ferencváros",
		AwayTeam:    "Újpest",
		Competition: "NB I",
		Date:        "2025-08-10 18:00",
		Markets: []RawMarket{
			{Name: "Main Market", OrigMarket: "3,70 3,45 1,82"},
			{Name: "Over/Under 2.5", OrigMarket: "1,90 1,85"},
			{Name: "Both Teams To Score", OrigMarket: "1,72 2,05"},
		},
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	main := parsed.Markets[0].Odds
	if len(main) != 3 || main[0].Type != match.OddHome || main[1].Type != match.OddDraw || main[2].Type != match.OddAway {
		t.Fatalf("unexpected main market typing: %+v", main)
	}

	totals := parsed.Markets[1].Odds
	if len(totals) != 2 || totals[0].Type != match.OddOver || totals[1].Type != match.OddUnder {
		t.Fatalf("unexpected totals typing: %+v", totals)
	}

	btts := parsed.Markets[2].Odds
	if len(btts) != 2 || btts[0].Type != match.OddYes || btts[1].Type != match.OddNo {
		t.Fatalf("unexpected btts typing: %+v", btts)
	}
}

func TestParseKeepsEmptyMarketAndCountsFailures(t *testing.T) {
	parsed, err := Parse(RawMatchPayload{
		HomeTeam:    "Dortmund",
		AwayTeam:    "Monterrey",
		Competition: "Club World Cup",
		Date:        "2025-06-01",
		Markets: []RawMarket{
			{Name: "Main Market", OrigMarket: "bad worse -1,0"},
			{Name: "Corners", Odds1: "2,10", OddsX: "garbage", Odds2: "3,00"},
		},
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(parsed.Markets) != 2 {
		t.Fatalf("expected both market blocks retained, got %d", len(parsed.Markets))
	}
	if len(parsed.Markets[0].Odds) != 0 {
		t.Fatalf("expected zero odds for the unparseable block, got %d", len(parsed.Markets[0].Odds))
	}
	if len(parsed.Markets[1].Odds) != 2 {
		t.Fatalf("expected 2 odds in the partial block, got %d", len(parsed.Markets[1].Odds))
	}
	if parsed.ParseFailures != 4 {
		t.Fatalf("expected 4 recorded parse failures, got %d", parsed.ParseFailures)
	}
}

func TestParseRejectsBadDate(t *testing.T) {
	_, err := Parse(RawMatchPayload{
		HomeTeam:    "Dortmund",
		AwayTeam:    "Monterrey",
		Competition: "Club World Cup",
		Date:        "sometime soon",
	})
	if err == nil {
		t.Fatal("expected the whole record to fail on an unparseable date")
	}
}
