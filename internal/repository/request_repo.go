package repository

import (
	"context"
	"errors"

	"purchaseboard/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RequestRepository defines data access for purchase requests. Updates
// go through UpdateWithVersion, the compare-and-swap primitive the
// transition engine builds its retry loop on.
type RequestRepository interface {
	Create(ctx context.Context, req *model.PurchaseRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.PurchaseRequest, error)
	ListAll(ctx context.Context, sort string) ([]model.PurchaseRequest, error)
	ListPurchased(ctx context.Context, purchaser string, start, end *int64, offset, limit int) ([]model.PurchaseRequest, int64, decimal.Decimal, error)
	UpdateWithVersion(ctx context.Context, req *model.PurchaseRequest, expectedVersion int64) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *model.PurchaseRequest) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *requestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PurchaseRequest, error) {
	var req model.PurchaseRequest
	if err := GetDB(ctx, r.db).First(&req, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

// ListAll returns the whole board; sort is "oldest" for ascending
// creation order, anything else means newest first.
func (r *requestRepository) ListAll(ctx context.Context, sort string) ([]model.PurchaseRequest, error) {
	order := "created_at DESC"
	if sort == "oldest" {
		order = "created_at ASC"
	}
	var reqs []model.PurchaseRequest
	if err := GetDB(ctx, r.db).Order(order).Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

// ListPurchased backs the purchase-records projection: purchased rows
// only, optionally filtered by purchaser name (substring, case
// insensitive) and a purchase-date range given as unix seconds. The
// returned sum covers the whole filtered set, not just the page.
func (r *requestRepository) ListPurchased(ctx context.Context, purchaser string, start, end *int64, offset, limit int) ([]model.PurchaseRequest, int64, decimal.Decimal, error) {
	filtered := func() *gorm.DB {
		query := GetDB(ctx, r.db).Model(&model.PurchaseRequest{}).
			Where("status = ?", model.RequestStatusPurchased)
		if purchaser != "" {
			query = query.Where("purchaser_name ILIKE ?", "%"+purchaser+"%")
		}
		if start != nil {
			query = query.Where("purchase_date >= to_timestamp(?)", *start)
		}
		if end != nil {
			query = query.Where("purchase_date <= to_timestamp(?)", *end)
		}
		return query
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, decimal.Zero, err
	}

	var agg struct {
		Total decimal.Decimal
	}
	if err := filtered().
		Select("COALESCE(SUM(purchase_amount), 0) AS total").
		Scan(&agg).Error; err != nil {
		return nil, 0, decimal.Zero, err
	}

	var reqs []model.PurchaseRequest
	if err := filtered().Order("purchase_date DESC").Offset(offset).Limit(limit).Find(&reqs).Error; err != nil {
		return nil, 0, decimal.Zero, err
	}
	return reqs, total, agg.Total, nil
}

// UpdateWithVersion writes the full row conditioned on the version the
// caller read. Zero affected rows means a concurrent writer committed
// first; the caller gets ErrVersionMismatch and decides whether to
// retry. The stored version is bumped as part of the same statement.
func (r *requestRepository) UpdateWithVersion(ctx context.Context, req *model.PurchaseRequest, expectedVersion int64) error {
	req.Version = expectedVersion + 1
	res := GetDB(ctx, r.db).Model(&model.PurchaseRequest{}).
		Where("id = ? AND version = ?", req.ID, expectedVersion).
		Select("Title", "Description", "AccountingCategory", "Status",
			"PurchaseAmount", "PurchaseDate", "PurchaserName", "PurchaserID",
			"Version", "UpdatedAt").
		Updates(req)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionMismatch
	}
	return nil
}

func (r *requestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.PurchaseRequest{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
