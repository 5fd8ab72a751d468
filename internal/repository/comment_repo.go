package repository

import (
	"context"
	"errors"

	"purchaseboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Comment, error)
	ListByRequestIDs(ctx context.Context, requestIDs []uuid.UUID) ([]model.Comment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByRequestID(ctx context.Context, requestID uuid.UUID) error
}

type commentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *model.Comment) error {
	return GetDB(ctx, r.db).Create(comment).Error
}

func (r *commentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Comment, error) {
	var comment model.Comment
	if err := GetDB(ctx, r.db).First(&comment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &comment, nil
}

// ListByRequestIDs fetches the comment threads for a whole page of
// requests in one query. The id tiebreak keeps ordering stable when two
// comments share a timestamp.
func (r *commentRepository) ListByRequestIDs(ctx context.Context, requestIDs []uuid.UUID) ([]model.Comment, error) {
	if len(requestIDs) == 0 {
		return nil, nil
	}
	var comments []model.Comment
	if err := GetDB(ctx, r.db).
		Where("request_id IN ?", requestIDs).
		Order("created_at ASC, id ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *commentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Comment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByRequestID removes a request's whole thread. Runs inside the
// same transaction as the parent delete so neither can orphan the other.
func (r *commentRepository) DeleteByRequestID(ctx context.Context, requestID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("request_id = ?", requestID).Delete(&model.Comment{}).Error
}
