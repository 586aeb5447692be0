package db

import "database/sql"

type Theater struct {
	ID        int64
	Tenant    string
	Name      string
	SourceUrl string
	Market    string
	Region    string
}

type ScrapeRun struct {
	ID             int64
	StartedAt      int64
	FinishedAt     sql.NullInt64
	Mode           string
	Status         string
	RecordsScraped int64
	ErrorMessage   string
}

type Showing struct {
	ID        int64
	TheaterID int64
	FilmTitle string
	PlayDate  string
	Showtime  string
	Format    string
	Daypart   string
	IsPlf     int64
	DetailUrl string
}

type PriceQuote struct {
	ID         int64
	ShowingID  int64
	RunID      int64
	TicketType string
	Amenities  string
	PriceCents int64
	Capacity   string
	ScrapedAt  int64
}

type UnmatchedTicketType struct {
	ID          int64
	RawText     string
	TheaterName string
	FilmTitle   string
	Showtime    string
	FirstSeen   int64
	LastSeen    int64
	Occurrences int64
}

type UnmatchedTheater struct {
	ID                 int64
	ScrapedName        string
	BestCandidate      string
	Similarity         float64
	RunnerUp           string
	RunnerUpSimilarity float64
	FirstSeen          int64
	LastSeen           int64
	Occurrences        int64
}

type PriceAlert struct {
	ID            int64
	ShowingID     int64
	TicketType    string
	OldPriceCents sql.NullInt64
	NewPriceCents sql.NullInt64
	ChangePercent float64
	AlertType     string
	CreatedAt     int64
}
