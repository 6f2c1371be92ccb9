package api

import "time"

type ArchiveRecord struct {
	Period    string    `json:"period"`
	Location  string    `json:"location"`
	Checksum  string    `json:"checksum"`
	Rows      int       `json:"rows"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

type Row struct {
	Period      string `json:"period"`
	Publisher   string `json:"publisher"`
	Title       string `json:"title"`
	SKU         string `json:"sku"`
	UnitsSold   int64  `json:"units_sold"`
	Net         string `json:"net"`
	RoyaltyRate string `json:"royalty_rate"`
	Royalty     string `json:"royalty"`
	Currency    string `json:"currency"`
	Hash        string `json:"row_hash"`
}

type Action struct {
	Kind     string `json:"kind"`
	Position int    `json:"position,omitempty"`
	Row      Row    `json:"row"`
}

type WritePlan struct {
	Period  string   `json:"period"`
	Actions []Action `json:"actions"`
}

type SyncRun struct {
	ID         int64     `json:"id"`
	Period     string    `json:"period"`
	Stage      string    `json:"stage"`
	ArchiveHit bool      `json:"archive_hit"`
	Appended   int       `json:"appended"`
	Updated    int       `json:"updated"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type Product struct {
	URL          string     `json:"url"`
	Name         string     `json:"name"`
	Metal        string     `json:"metal,omitempty"`
	AddedOn      *time.Time `json:"added_on,omitempty"`
	Rating       *float64   `json:"rating,omitempty"`
	RatingsCount *int       `json:"ratings_count,omitempty"`
	Edition      string     `json:"edition,omitempty"`
	Authors      []string   `json:"authors,omitempty"`
	Artists      []string   `json:"artists,omitempty"`
	Pages        *int       `json:"pages,omitempty"`
	Price        *string    `json:"price,omitempty"`
	CrawledAt    time.Time  `json:"crawled_at"`
}
