package service

import (
	"context"
	"fmt"
	"time"

	"purchaseboard/internal/repository"
)

// PurchaseRecordResponse is the flattened bookkeeping view of one
// completed purchase. It carries no comment thread and no pending
// state; the board endpoints serve those.
type PurchaseRecordResponse struct {
	ID                 string  `json:"id"`
	Title              string  `json:"title"`
	AccountingCategory string  `json:"accountingCategory,omitempty"`
	PurchaseAmount     float64 `json:"purchaseAmount"`
	PurchaseDate       string  `json:"purchaseDate"`
	PurchaserName      string  `json:"purchaserName"`
	PurchaserID        string  `json:"purchaserId,omitempty"`
	RequesterName      string  `json:"requesterName"`
}

type PurchaseRecordPage struct {
	Records     []PurchaseRecordResponse `json:"records"`
	Total       int64                    `json:"total"`
	TotalAmount float64                  `json:"totalAmount"`
}

// RecordFilter narrows the projection. Start and End are unix seconds
// on the purchase date; nil means unbounded.
type RecordFilter struct {
	Purchaser string
	Start     *int64
	End       *int64
	Page      int
	Limit     int
}

type RecordService interface {
	ListRecords(ctx context.Context, filter RecordFilter) (*PurchaseRecordPage, error)
}

type recordService struct {
	requests repository.RequestRepository
}

func NewRecordService(requests repository.RequestRepository) RecordService {
	return &recordService{requests: requests}
}

// ListRecords projects purchased requests into expense rows, newest
// purchase first. TotalAmount covers the whole filtered set, so a
// multi-page ledger reports the same grand total on every page.
func (s *recordService) ListRecords(ctx context.Context, filter RecordFilter) (*PurchaseRecordPage, error) {
	offset := (filter.Page - 1) * filter.Limit
	records, total, sum, err := s.requests.ListPurchased(ctx, filter.Purchaser, filter.Start, filter.End, offset, filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchase records: %w", err)
	}

	rows := make([]PurchaseRecordResponse, 0, len(records))
	for _, r := range records {
		row := PurchaseRecordResponse{
			ID:                 r.ID.String(),
			Title:              r.Title,
			AccountingCategory: r.AccountingCategory,
			RequesterName:      r.RequesterName,
		}
		if r.PurchaseAmount != nil {
			row.PurchaseAmount = r.PurchaseAmount.InexactFloat64()
		}
		if r.PurchaseDate != nil {
			row.PurchaseDate = r.PurchaseDate.Format(time.RFC3339)
		}
		if r.PurchaserName != nil {
			row.PurchaserName = *r.PurchaserName
		}
		if r.PurchaserID != nil {
			row.PurchaserID = r.PurchaserID.String()
		}
		rows = append(rows, row)
	}

	return &PurchaseRecordPage{
		Records:     rows,
		Total:       total,
		TotalAmount: sum.InexactFloat64(),
	}, nil
}
