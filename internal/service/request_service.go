package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"purchaseboard/internal/model"
	"purchaseboard/internal/repository"
	"purchaseboard/pkg/patch"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxUpdateAttempts bounds the optimistic-concurrency retry loop. Only
// raw version mismatches are retried; business-rule failures surface
// immediately.
const maxUpdateAttempts = 3

// --- DTOs ---

type CreateRequestDTO struct {
	Title              string `json:"text" binding:"required"`
	Description        string `json:"description"`
	AccountingCategory string `json:"accountingCategory"`
}

// UpdateRequestDTO is a partial patch. Every field is tri-state
// (omitted / null / value) so a revert can explicitly null the purchase
// fields while leaving the rest of the record alone.
type UpdateRequestDTO struct {
	Title              patch.Field[string]          `json:"text"`
	Description        patch.Field[string]          `json:"description"`
	AccountingCategory patch.Field[string]          `json:"accountingCategory"`
	Status             patch.Field[string]          `json:"status"`
	PurchaseAmount     patch.Field[decimal.Decimal] `json:"purchaseAmount"`
	PurchaseDate       patch.Field[time.Time]       `json:"purchaseDate"`
	PurchaserName      patch.Field[string]          `json:"purchaserName"`
}

type CommentResponse struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	AuthorID   string `json:"userId"`
	AuthorName string `json:"authorName"`
	CreatedAt  string `json:"createdAt"`
}

// RequestResponse is the denormalized view: the stored record plus the
// resolved requester name and the full comment thread, assembled fresh
// on every read.
type RequestResponse struct {
	ID                 string            `json:"id"`
	Title              string            `json:"title"`
	Description        string            `json:"description"`
	AccountingCategory string            `json:"accountingCategory,omitempty"`
	Status             string            `json:"status"`
	RequesterID        string            `json:"requesterId"`
	RequesterName      string            `json:"requesterName"`
	PurchaseAmount     *float64          `json:"purchaseAmount,omitempty"`
	PurchaseDate       *string           `json:"purchaseDate,omitempty"`
	PurchaserName      *string           `json:"purchaserName,omitempty"`
	PurchaserID        *string           `json:"purchaserId,omitempty"`
	CreatedAt          string            `json:"createdAt"`
	UpdatedAt          string            `json:"updatedAt"`
	Comments           []CommentResponse `json:"comments"`
}

// ChangeNotifier pushes "something changed" signals to live
// subscribers. The websocket hub satisfies it.
type ChangeNotifier interface {
	NotifyRequirementsChanged(id string)
}

// --- Interface ---

type RequestService interface {
	Create(ctx context.Context, principal model.Principal, req CreateRequestDTO) (*RequestResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*RequestResponse, error)
	List(ctx context.Context, sort string) ([]RequestResponse, error)
	Update(ctx context.Context, id uuid.UUID, principal model.Principal, req UpdateRequestDTO) (*RequestResponse, error)
	Delete(ctx context.Context, id uuid.UUID, principal model.Principal) error
}

type requestService struct {
	requests  repository.RequestRepository
	comments  repository.CommentRepository
	users     repository.UserRepository
	audit     repository.AuditRepository
	txManager repository.TransactionManager
	notifier  ChangeNotifier
}

func NewRequestService(
	requests repository.RequestRepository,
	comments repository.CommentRepository,
	users repository.UserRepository,
	audit repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier ChangeNotifier,
) RequestService {
	return &requestService{
		requests:  requests,
		comments:  comments,
		users:     users,
		audit:     audit,
		txManager: txManager,
		notifier:  notifier,
	}
}

// --- Implementation ---

func (s *requestService) Create(ctx context.Context, principal model.Principal, req CreateRequestDTO) (*RequestResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: text is required", repository.ErrInvalidInput)
	}

	record := model.PurchaseRequest{
		Title:              title,
		Description:        strings.TrimSpace(req.Description),
		AccountingCategory: strings.TrimSpace(req.AccountingCategory),
		Status:             model.RequestStatusPending,
		RequesterID:        principal.ID,
		RequesterName:      principal.DisplayName,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.requests.Create(txCtx, &record); createErr != nil {
			return fmt.Errorf("failed to create purchase request: %w", createErr)
		}
		return s.logAction(txCtx, principal, model.ActionCreateRequest, record.ID.String(), record.Title, map[string]interface{}{
			"status": record.Status,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyRequirementsChanged(record.ID.String())

	view := s.assemble(record, groupComments(nil), nil)
	return &view, nil
}

func (s *requestService) Get(ctx context.Context, id uuid.UUID) (*RequestResponse, error) {
	record, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	comments, err := s.comments.ListByRequestIDs(ctx, []uuid.UUID{record.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comments: %w", err)
	}

	names, err := s.resolveMissingNames(ctx, []model.PurchaseRequest{*record})
	if err != nil {
		return nil, err
	}

	view := s.assemble(*record, groupComments(comments), names)
	return &view, nil
}

// List returns every request as a denormalized view, newest first by
// default ("oldest" flips the order). The comment threads and any
// missing requester names are fetched with one batched query each;
// there is no per-record fan-out.
func (s *requestService) List(ctx context.Context, sort string) ([]RequestResponse, error) {
	records, err := s.requests.ListAll(ctx, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch purchase requests: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}

	comments, err := s.comments.ListByRequestIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comments: %w", err)
	}
	threads := groupComments(comments)

	names, err := s.resolveMissingNames(ctx, records)
	if err != nil {
		return nil, err
	}

	views := make([]RequestResponse, 0, len(records))
	for _, r := range records {
		views = append(views, s.assemble(r, threads, names))
	}
	return views, nil
}

// Update is the transition engine. Each attempt re-reads the record,
// re-validates the business rules against what is actually stored and
// commits conditioned on the version it read. A version mismatch means
// a concurrent writer got there first: retry, so the rules are checked
// against the winner's state. Two purchasers racing on the same pending
// record therefore end with exactly one success and one Conflict.
func (s *requestService) Update(ctx context.Context, id uuid.UUID, principal model.Principal, req UpdateRequestDTO) (*RequestResponse, error) {
	var action string

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			current, getErr := s.requests.GetByID(txCtx, id)
			if getErr != nil {
				return getErr
			}

			updated, applyErr := s.applyPatch(*current, principal, req)
			if applyErr != nil {
				return applyErr
			}
			action = transitionAction(current.Status, updated.Status)

			if writeErr := s.requests.UpdateWithVersion(txCtx, &updated, current.Version); writeErr != nil {
				return writeErr
			}

			return s.logAction(txCtx, principal, action, updated.ID.String(), updated.Title, map[string]interface{}{
				"from": current.Status,
				"to":   updated.Status,
			})
		})

		if errors.Is(err, repository.ErrVersionMismatch) {
			continue
		}
		if err != nil {
			return nil, err
		}

		s.notifier.NotifyRequirementsChanged(id.String())
		return s.Get(ctx, id)
	}

	// Every attempt lost the version race. Report it as a conflict and
	// let the caller refresh rather than spin forever.
	return nil, fmt.Errorf("%w: concurrent update in progress, please refresh", repository.ErrConflict)
}

// applyPatch validates the patch against the current record and returns
// the record to store. Pure function of its inputs; no I/O.
func (s *requestService) applyPatch(current model.PurchaseRequest, principal model.Principal, req UpdateRequestDTO) (model.PurchaseRequest, error) {
	updated := current

	if req.Status.Set {
		if !req.Status.Valid {
			return updated, fmt.Errorf("%w: status cannot be null", repository.ErrInvalidInput)
		}
		switch req.Status.Value {
		case model.RequestStatusPurchased:
			if current.Status != model.RequestStatusPending {
				return updated, fmt.Errorf("%w: this item has already been purchased", repository.ErrConflict)
			}
			if !req.PurchaseAmount.Set || !req.PurchaseAmount.Valid || req.PurchaseAmount.Value.LessThanOrEqual(decimal.Zero) {
				return updated, fmt.Errorf("%w: purchaseAmount must be a positive number", repository.ErrInvalidInput)
			}
			amount := req.PurchaseAmount.Value
			date := time.Now().UTC()
			if req.PurchaseDate.Set && req.PurchaseDate.Valid {
				date = req.PurchaseDate.Value
			}
			name := principal.DisplayName
			if req.PurchaserName.Set && req.PurchaserName.Valid && strings.TrimSpace(req.PurchaserName.Value) != "" {
				name = strings.TrimSpace(req.PurchaserName.Value)
			}
			// PurchaserID always comes from the authenticated principal,
			// never from the payload.
			purchaserID := principal.ID
			updated.Status = model.RequestStatusPurchased
			updated.PurchaseAmount = &amount
			updated.PurchaseDate = &date
			updated.PurchaserName = &name
			updated.PurchaserID = &purchaserID

		case model.RequestStatusPending:
			if current.Status == model.RequestStatusPurchased {
				if current.PurchaserID == nil || *current.PurchaserID != principal.ID {
					return updated, fmt.Errorf("%w: only the purchaser can revert this purchase", repository.ErrForbidden)
				}
			}
			updated.Status = model.RequestStatusPending
			updated.PurchaseAmount = nil
			updated.PurchaseDate = nil
			updated.PurchaserName = nil
			updated.PurchaserID = nil

		default:
			return updated, fmt.Errorf("%w: status must be pending or purchased", repository.ErrInvalidInput)
		}
	}

	if req.Title.Set {
		if !req.Title.Valid || strings.TrimSpace(req.Title.Value) == "" {
			return updated, fmt.Errorf("%w: text cannot be empty", repository.ErrInvalidInput)
		}
		updated.Title = strings.TrimSpace(req.Title.Value)
	}
	if req.Description.Set {
		if req.Description.Valid {
			updated.Description = strings.TrimSpace(req.Description.Value)
		} else {
			updated.Description = ""
		}
	}
	if req.AccountingCategory.Set {
		if req.AccountingCategory.Valid {
			updated.AccountingCategory = strings.TrimSpace(req.AccountingCategory.Value)
		} else {
			updated.AccountingCategory = ""
		}
	}

	updated.UpdatedAt = time.Now().UTC()
	return updated, nil
}

func (s *requestService) Delete(ctx context.Context, id uuid.UUID, principal model.Principal) error {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		record, getErr := s.requests.GetByID(txCtx, id)
		if getErr != nil {
			return getErr
		}
		if record.RequesterID != principal.ID {
			return fmt.Errorf("%w: only the requester can delete this request", repository.ErrForbidden)
		}

		// Comments first, then the record: same transaction, so a
		// failure of either leaves both in place.
		if delErr := s.comments.DeleteByRequestID(txCtx, id); delErr != nil {
			return fmt.Errorf("failed to delete comments: %w", delErr)
		}
		if delErr := s.requests.Delete(txCtx, id); delErr != nil {
			return fmt.Errorf("failed to delete purchase request: %w", delErr)
		}

		return s.logAction(txCtx, principal, model.ActionDeleteRequest, id.String(), record.Title, nil)
	})
	if err != nil {
		return err
	}

	s.notifier.NotifyRequirementsChanged(id.String())
	return nil
}

// --- assembly helpers ---

func groupComments(comments []model.Comment) map[uuid.UUID][]CommentResponse {
	threads := make(map[uuid.UUID][]CommentResponse)
	for _, c := range comments {
		threads[c.RequestID] = append(threads[c.RequestID], CommentResponse{
			ID:         c.ID.String(),
			Text:       c.Text,
			AuthorID:   c.AuthorID.String(),
			AuthorName: c.AuthorName,
			CreatedAt:  c.CreatedAt.Format(time.RFC3339),
		})
	}
	return threads
}

// resolveMissingNames batch-fetches display names for records whose
// stored requester snapshot is empty (legacy rows). One query for the
// whole page.
func (s *requestService) resolveMissingNames(ctx context.Context, records []model.PurchaseRequest) (map[uuid.UUID]string, error) {
	var missing []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	for _, r := range records {
		if r.RequesterName == "" && !seen[r.RequesterID] {
			seen[r.RequesterID] = true
			missing = append(missing, r.RequesterID)
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}

	users, err := s.users.GetByIDs(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve requester names: %w", err)
	}
	names := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName
	}
	return names, nil
}

func (s *requestService) assemble(record model.PurchaseRequest, threads map[uuid.UUID][]CommentResponse, names map[uuid.UUID]string) RequestResponse {
	requesterName := record.RequesterName
	if requesterName == "" {
		requesterName = names[record.RequesterID]
	}

	comments := threads[record.ID]
	if comments == nil {
		comments = []CommentResponse{}
	}

	view := RequestResponse{
		ID:                 record.ID.String(),
		Title:              record.Title,
		Description:        record.Description,
		AccountingCategory: record.AccountingCategory,
		Status:             record.Status,
		RequesterID:        record.RequesterID.String(),
		RequesterName:      requesterName,
		CreatedAt:          record.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          record.UpdatedAt.Format(time.RFC3339),
		Comments:           comments,
	}
	if record.PurchaseAmount != nil {
		amount := record.PurchaseAmount.InexactFloat64()
		view.PurchaseAmount = &amount
	}
	if record.PurchaseDate != nil {
		date := record.PurchaseDate.Format(time.RFC3339)
		view.PurchaseDate = &date
	}
	view.PurchaserName = record.PurchaserName
	if record.PurchaserID != nil {
		id := record.PurchaserID.String()
		view.PurchaserID = &id
	}
	return view
}

func transitionAction(from, to string) string {
	switch {
	case from == model.RequestStatusPending && to == model.RequestStatusPurchased:
		return model.ActionConfirmPurchase
	case from == model.RequestStatusPurchased && to == model.RequestStatusPending:
		return model.ActionRevertPurchase
	default:
		return model.ActionUpdateRequest
	}
}

func (s *requestService) logAction(ctx context.Context, principal model.Principal, action, entityID, entityName string, details map[string]interface{}) error {
	payload, _ := json.Marshal(details)
	userID := principal.ID
	entry := model.AuditLog{
		UserID:     &userID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
	if err := s.audit.Log(ctx, &entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
