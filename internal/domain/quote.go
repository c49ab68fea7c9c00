package domain

import (
	"fmt"
	"time"
)

// Quote is a daily quote row. Quotes are authored out-of-band and are
// read-only from this service's perspective.
type Quote struct {
	ID             int64
	Text           string
	Author         string
	Date           time.Time // calendar date, midnight UTC
	AuthorPhotoURL *string
}

// Message renders the outbound broadcast body for this quote.
func (q Quote) Message() string {
	return fmt.Sprintf("%s\n— %s", q.Text, q.Author)
}
