package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-drill/internal/domain"
)

// RateRequest is the body of POST /reviews/rate.
type RateRequest struct {
	Rating string `json:"rating" validate:"required,oneof=again hard good easy"`
}

// AnswerRequest is the body of POST /reviews/answer.
type AnswerRequest struct {
	Answer string `json:"answer" validate:"required,max=1000"`
}

// PartialRequest is the body of POST /reviews/partial.
type PartialRequest struct {
	Accept *bool `json:"accept" validate:"required"`
}

// DueItemsQuery holds the query parameters of GET /items/due.
type DueItemsQuery struct {
	Limit int `validate:"gte=1,lte=100"`
}

// DueItemResponse is one entry of GET /items/due.
type DueItemResponse struct {
	ID           uuid.UUID `json:"id"`
	Front        string    `json:"front"`
	DueAt        time.Time `json:"due_at"`
	IntervalDays int       `json:"interval_days"`
	Repetitions  int       `json:"repetitions"`
}

// DueItemsResponse is the body of GET /items/due.
type DueItemsResponse struct {
	Items []DueItemResponse `json:"items"`
}

func dueItemsToResponse(items []*domain.Item) DueItemsResponse {
	out := DueItemsResponse{Items: make([]DueItemResponse, 0, len(items))}
	for _, it := range items {
		out.Items = append(out.Items, DueItemResponse{
			ID:           it.ID,
			Front:        it.Front,
			DueAt:        it.DueAt,
			IntervalDays: it.IntervalDays,
			Repetitions:  it.Repetitions,
		})
	}
	return out
}
