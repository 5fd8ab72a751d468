package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"purchaseboard/internal/model"
	"purchaseboard/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateTitheTaskDTO struct {
	FinanceStaffUID string `json:"financeStaffUid" binding:"required"`
}

type CreateDedicationEntryDTO struct {
	Category   string          `json:"category" binding:"required"`
	MemberName string          `json:"memberName"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
}

type DedicationEntryResponse struct {
	ID         string  `json:"id"`
	Category   string  `json:"category"`
	MemberName string  `json:"memberName,omitempty"`
	Amount     float64 `json:"amount"`
	CreatedAt  string  `json:"createdAt"`
}

// AggregationSummary is the per-category rollup shown when a counting
// session closes out: one total per dedication account plus the grand
// total. Categories are sorted for a stable render.
type AggregationSummary struct {
	TotalAmount float64            `json:"totalAmount"`
	ByCategory  map[string]float64 `json:"byCategory"`
	Categories  []string           `json:"categories"`
}

type TitheTaskResponse struct {
	ID                   string                    `json:"id"`
	CalculationTimestamp string                    `json:"calculationTimestamp"`
	TreasurerID          string                    `json:"treasurerId"`
	TreasurerName        string                    `json:"treasurerName"`
	FinanceStaffUID      string                    `json:"financeStaffUid"`
	FinanceStaffName     string                    `json:"financeStaffName"`
	Status               string                    `json:"status"`
	CompletedAt          *string                   `json:"completedAt,omitempty"`
	Entries              []DedicationEntryResponse `json:"entries,omitempty"`
	Summary              *AggregationSummary       `json:"summary,omitempty"`
}

// --- Interface ---

type TitheService interface {
	CreateTask(ctx context.Context, principal model.Principal, req CreateTitheTaskDTO) (*TitheTaskResponse, error)
	ListTasks(ctx context.Context) ([]TitheTaskResponse, error)
	GetTask(ctx context.Context, id uuid.UUID) (*TitheTaskResponse, error)
	CompleteTask(ctx context.Context, id uuid.UUID, principal model.Principal) (*TitheTaskResponse, error)
	AddEntry(ctx context.Context, taskID uuid.UUID, principal model.Principal, req CreateDedicationEntryDTO) (*DedicationEntryResponse, error)
	DeleteEntry(ctx context.Context, taskID, entryID uuid.UUID, principal model.Principal) error
}

type titheService struct {
	tithes    repository.TitheRepository
	users     repository.UserRepository
	audit     repository.AuditRepository
	txManager repository.TransactionManager
}

func NewTitheService(
	tithes repository.TitheRepository,
	users repository.UserRepository,
	audit repository.AuditRepository,
	txManager repository.TransactionManager,
) TitheService {
	return &titheService{tithes: tithes, users: users, audit: audit, txManager: txManager}
}

// --- Implementation ---

func (s *titheService) CreateTask(ctx context.Context, principal model.Principal, req CreateTitheTaskDTO) (*TitheTaskResponse, error) {
	staffID, err := uuid.Parse(req.FinanceStaffUID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid financeStaffUid", repository.ErrInvalidInput)
	}

	staff, err := s.users.GetByID(ctx, staffID)
	if err != nil {
		return nil, fmt.Errorf("%w: finance staff not found", repository.ErrNotFound)
	}
	if staff.Role != model.RoleFinance || staff.Status != model.UserStatusApproved {
		return nil, fmt.Errorf("%w: selected user is not approved finance staff", repository.ErrInvalidInput)
	}

	task := model.TitheTask{
		CalculationTimestamp: time.Now().UTC(),
		TreasurerID:          principal.ID,
		TreasurerName:        principal.DisplayName,
		FinanceStaffID:       staff.ID,
		FinanceStaffName:     staff.DisplayName,
		Status:               model.TitheTaskInProgress,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.tithes.CreateTask(txCtx, &task); createErr != nil {
			return fmt.Errorf("failed to create tithe task: %w", createErr)
		}
		details, _ := json.Marshal(map[string]interface{}{"financeStaff": staff.DisplayName})
		userID := principal.ID
		entry := model.AuditLog{
			UserID:   &userID,
			Action:   model.ActionCreateTitheTask,
			EntityID: task.ID.String(),
			Details:  string(details),
		}
		return s.audit.Log(txCtx, &entry)
	})
	if err != nil {
		return nil, err
	}

	view := mapTaskResponse(&task)
	return &view, nil
}

func (s *titheService) ListTasks(ctx context.Context) ([]TitheTaskResponse, error) {
	tasks, err := s.tithes.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tithe tasks: %w", err)
	}

	views := make([]TitheTaskResponse, 0, len(tasks))
	for i := range tasks {
		views = append(views, mapTaskResponse(&tasks[i]))
	}
	return views, nil
}

// GetTask returns the task with its line items and the aggregation
// summary computed from them.
func (s *titheService) GetTask(ctx context.Context, id uuid.UUID) (*TitheTaskResponse, error) {
	task, err := s.tithes.GetTaskByID(ctx, id)
	if err != nil {
		return nil, err
	}

	entries, err := s.tithes.ListEntriesByTaskID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dedication entries: %w", err)
	}

	view := mapTaskResponse(task)
	view.Entries = make([]DedicationEntryResponse, 0, len(entries))
	for _, e := range entries {
		view.Entries = append(view.Entries, DedicationEntryResponse{
			ID:         e.ID.String(),
			Category:   e.Category,
			MemberName: e.MemberName,
			Amount:     e.Amount.InexactFloat64(),
			CreatedAt:  e.CreatedAt.Format(time.RFC3339),
		})
	}
	view.Summary = summarize(entries)
	return &view, nil
}

func (s *titheService) CompleteTask(ctx context.Context, id uuid.UUID, principal model.Principal) (*TitheTaskResponse, error) {
	var task *model.TitheTask
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var getErr error
		task, getErr = s.tithes.GetTaskByID(txCtx, id)
		if getErr != nil {
			return getErr
		}
		if !canManageTask(task, principal) {
			return fmt.Errorf("%w: only the treasurer or assigned finance staff can complete this task", repository.ErrForbidden)
		}
		if task.Status == model.TitheTaskCompleted {
			return fmt.Errorf("%w: task is already completed", repository.ErrConflict)
		}

		now := time.Now().UTC()
		task.Status = model.TitheTaskCompleted
		task.CompletedAt = &now
		if updateErr := s.tithes.UpdateTask(txCtx, task); updateErr != nil {
			return fmt.Errorf("failed to complete tithe task: %w", updateErr)
		}

		userID := principal.ID
		entry := model.AuditLog{
			UserID:   &userID,
			Action:   model.ActionCompleteTitheTask,
			EntityID: task.ID.String(),
		}
		return s.audit.Log(txCtx, &entry)
	})
	if err != nil {
		return nil, err
	}

	view := mapTaskResponse(task)
	return &view, nil
}

func (s *titheService) AddEntry(ctx context.Context, taskID uuid.UUID, principal model.Principal, req CreateDedicationEntryDTO) (*DedicationEntryResponse, error) {
	if strings.TrimSpace(req.Category) == "" {
		return nil, fmt.Errorf("%w: category is required", repository.ErrInvalidInput)
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount must be a positive number", repository.ErrInvalidInput)
	}

	task, err := s.tithes.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !canManageTask(task, principal) {
		return nil, fmt.Errorf("%w: only the treasurer or assigned finance staff can add entries", repository.ErrForbidden)
	}
	if task.Status == model.TitheTaskCompleted {
		return nil, fmt.Errorf("%w: task is already completed", repository.ErrConflict)
	}

	entry := model.DedicationEntry{
		TaskID:     taskID,
		Category:   strings.TrimSpace(req.Category),
		MemberName: strings.TrimSpace(req.MemberName),
		Amount:     req.Amount,
	}
	if err := s.tithes.CreateEntry(ctx, &entry); err != nil {
		return nil, fmt.Errorf("failed to create dedication entry: %w", err)
	}

	return &DedicationEntryResponse{
		ID:         entry.ID.String(),
		Category:   entry.Category,
		MemberName: entry.MemberName,
		Amount:     entry.Amount.InexactFloat64(),
		CreatedAt:  entry.CreatedAt.Format(time.RFC3339),
	}, nil
}

func (s *titheService) DeleteEntry(ctx context.Context, taskID, entryID uuid.UUID, principal model.Principal) error {
	task, err := s.tithes.GetTaskByID(ctx, taskID)
	if err != nil {
		return err
	}
	if !canManageTask(task, principal) {
		return fmt.Errorf("%w: only the treasurer or assigned finance staff can remove entries", repository.ErrForbidden)
	}
	if task.Status == model.TitheTaskCompleted {
		return fmt.Errorf("%w: task is already completed", repository.ErrConflict)
	}

	entry, err := s.tithes.GetEntryByID(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.TaskID != taskID {
		return repository.ErrNotFound
	}

	return s.tithes.DeleteEntry(ctx, entryID)
}

// --- helpers ---

func canManageTask(task *model.TitheTask, principal model.Principal) bool {
	return task.TreasurerID == principal.ID || task.FinanceStaffID == principal.ID
}

// summarize folds the entries into per-category totals using decimal
// arithmetic; floats appear only at the JSON boundary.
func summarize(entries []model.DedicationEntry) *AggregationSummary {
	total := decimal.Zero
	byCategory := make(map[string]decimal.Decimal)
	for _, e := range entries {
		total = total.Add(e.Amount)
		byCategory[e.Category] = byCategory[e.Category].Add(e.Amount)
	}

	categories := make([]string, 0, len(byCategory))
	rounded := make(map[string]float64, len(byCategory))
	for category, sum := range byCategory {
		categories = append(categories, category)
		rounded[category] = sum.InexactFloat64()
	}
	sort.Strings(categories)

	return &AggregationSummary{
		TotalAmount: total.InexactFloat64(),
		ByCategory:  rounded,
		Categories:  categories,
	}
}

func mapTaskResponse(task *model.TitheTask) TitheTaskResponse {
	view := TitheTaskResponse{
		ID:                   task.ID.String(),
		CalculationTimestamp: task.CalculationTimestamp.Format(time.RFC3339),
		TreasurerID:          task.TreasurerID.String(),
		TreasurerName:        task.TreasurerName,
		FinanceStaffUID:      task.FinanceStaffID.String(),
		FinanceStaffName:     task.FinanceStaffName,
		Status:               task.Status,
	}
	if task.CompletedAt != nil {
		completed := task.CompletedAt.Format(time.RFC3339)
		view.CompletedAt = &completed
	}
	return view
}
