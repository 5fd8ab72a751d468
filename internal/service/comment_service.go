package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"purchaseboard/internal/model"
	"purchaseboard/internal/repository"

	"github.com/google/uuid"
)

type CreateCommentDTO struct {
	Text string `json:"text" binding:"required"`
}

type CommentService interface {
	Add(ctx context.Context, requestID uuid.UUID, principal model.Principal, req CreateCommentDTO) (*CommentResponse, error)
	Delete(ctx context.Context, requestID, commentID uuid.UUID, principal model.Principal) error
}

type commentService struct {
	comments  repository.CommentRepository
	requests  repository.RequestRepository
	audit     repository.AuditRepository
	txManager repository.TransactionManager
	notifier  ChangeNotifier
}

func NewCommentService(
	comments repository.CommentRepository,
	requests repository.RequestRepository,
	audit repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier ChangeNotifier,
) CommentService {
	return &commentService{
		comments:  comments,
		requests:  requests,
		audit:     audit,
		txManager: txManager,
		notifier:  notifier,
	}
}

func (s *commentService) Add(ctx context.Context, requestID uuid.UUID, principal model.Principal, req CreateCommentDTO) (*CommentResponse, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", repository.ErrInvalidInput)
	}

	comment := model.Comment{
		RequestID:  requestID,
		Text:       text,
		AuthorID:   principal.ID,
		AuthorName: principal.DisplayName,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Parent must exist; the FK alone would surface a raw DB error
		// instead of NotFound.
		parent, getErr := s.requests.GetByID(txCtx, requestID)
		if getErr != nil {
			return getErr
		}

		if createErr := s.comments.Create(txCtx, &comment); createErr != nil {
			return fmt.Errorf("failed to create comment: %w", createErr)
		}

		userID := principal.ID
		entry := model.AuditLog{
			UserID:     &userID,
			Action:     model.ActionCreateComment,
			EntityID:   comment.ID.String(),
			EntityName: parent.Title,
		}
		if auditErr := s.audit.Log(txCtx, &entry); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyRequirementsChanged(requestID.String())

	return &CommentResponse{
		ID:         comment.ID.String(),
		Text:       comment.Text,
		AuthorID:   comment.AuthorID.String(),
		AuthorName: comment.AuthorName,
		CreatedAt:  comment.CreatedAt.Format(time.RFC3339),
	}, nil
}

func (s *commentService) Delete(ctx context.Context, requestID, commentID uuid.UUID, principal model.Principal) error {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		comment, getErr := s.comments.GetByID(txCtx, commentID)
		if getErr != nil {
			return getErr
		}
		if comment.RequestID != requestID {
			return repository.ErrNotFound
		}
		if comment.AuthorID != principal.ID {
			return fmt.Errorf("%w: only the author can delete this comment", repository.ErrForbidden)
		}

		if delErr := s.comments.Delete(txCtx, commentID); delErr != nil {
			return fmt.Errorf("failed to delete comment: %w", delErr)
		}

		userID := principal.ID
		entry := model.AuditLog{
			UserID:   &userID,
			Action:   model.ActionDeleteComment,
			EntityID: commentID.String(),
		}
		if auditErr := s.audit.Log(txCtx, &entry); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.NotifyRequirementsChanged(requestID.String())
	return nil
}
