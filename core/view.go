package core

import "time"

// View represents a SQL view
type View struct {
	Database  string    `json:"database"`
	Name      string    `json:"name"`
	Query     string    `json:"query"`   // The SELECT statement defining the view
	Columns   []string  `json:"columns"` // Output column names at creation time
	CreatedAt time.Time `json:"created_at"`
}
