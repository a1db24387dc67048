// AngelaMos | 2026
// dto.go

package usage

import (
	"time"

	"github.com/valera277/rag-converter-pro/internal/billing"
)

type HistoryResponse struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ChunksCount int       `json:"chunks_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type DashboardResponse struct {
	Subscription  billing.SubscriptionResponse `json:"subscription"`
	FreeLimit     int                          `json:"free_limit"`
	FreeRemaining int                          `json:"free_remaining"`
	History       []HistoryResponse            `json:"history"`
}

type ListHistoryParams struct {
	Page     int
	PageSize int
}

func (p *ListHistoryParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListHistoryParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToHistoryResponse(e *HistoryEntry) HistoryResponse {
	return HistoryResponse{
		ID:          e.ID,
		Filename:    e.Filename,
		ChunksCount: e.ChunksCount,
		CreatedAt:   e.CreatedAt,
	}
}

func ToHistoryResponseList(entries []HistoryEntry) []HistoryResponse {
	out := make([]HistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ToHistoryResponse(&e))
	}
	return out
}
