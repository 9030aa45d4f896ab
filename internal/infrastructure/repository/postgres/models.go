package postgres

import "time"

type teamTableModel struct {
	ID      int64  `db:"id"`
	Name    string `db:"name"`
	Country string `db:"country"`
}

type teamInsertModel struct {
	Name    string `db:"name"`
	Country string `db:"country"`
}

type competitionTableModel struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

type competitionInsertModel struct {
	Name string `db:"name"`
}

type matchTableModel struct {
	ID            int64     `db:"id"`
	Date          time.Time `db:"date"`
	HomeTeamID    int64     `db:"home_team_id"`
	AwayTeamID    int64     `db:"away_team_id"`
	CompetitionID int64     `db:"competition_id"`
}

type matchInsertModel struct {
	Date          time.Time `db:"date"`
	HomeTeamID    int64     `db:"home_team_id"`
	AwayTeamID    int64     `db:"away_team_id"`
	CompetitionID int64     `db:"competition_id"`
}

type marketTableModel struct {
	ID      int64  `db:"id"`
	MatchID int64  `db:"match_id"`
	Name    string `db:"name"`
}

type oddTableModel struct {
	ID       int64   `db:"id"`
	MarketID int64   `db:"market_id"`
	Type     string  `db:"type"`
	Value    float64 `db:"value"`
}

type duplicateKeyModel struct {
	Date          time.Time `db:"date"`
	HomeTeamID    int64     `db:"home_team_id"`
	AwayTeamID    int64     `db:"away_team_id"`
	CompetitionID int64     `db:"competition_id"`
}

type marketSummaryModel struct {
	MatchID    int64     `db:"match_id"`
	MatchDate  time.Time `db:"match_date"`
	MarketID   int64     `db:"market_id"`
	MarketName string    `db:"market_name"`
	OddCount   int       `db:"odd_count"`
}
