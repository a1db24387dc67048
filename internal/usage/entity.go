// AngelaMos | 2026
// entity.go

package usage

import (
	"time"
)

type HistoryEntry struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	Filename    string    `db:"filename"`
	ChunksCount int       `db:"chunks_count"`
	CreatedAt   time.Time `db:"created_at"`
}

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed       bool
	Paid          bool
	Reason        string
	FreeUsed      int
	FreeRemaining int
}
