package domain

import "time"

type Author struct {
	ID          int64      `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Nationality string     `json:"nationality,omitempty"`
	BirthDate   *time.Time `json:"birth_date,omitempty"`
}

// CatalogItem is a single lendable copy. The library holds one copy per item.
type CatalogItem struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	ISBN     string `json:"isbn"`
	Year     int    `json:"year,omitempty"`
	AuthorID int64  `json:"author_id"`
}
