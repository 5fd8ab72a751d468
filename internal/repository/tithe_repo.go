package repository

import (
	"context"
	"errors"

	"purchaseboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TitheRepository interface {
	CreateTask(ctx context.Context, task *model.TitheTask) error
	GetTaskByID(ctx context.Context, id uuid.UUID) (*model.TitheTask, error)
	ListTasks(ctx context.Context) ([]model.TitheTask, error)
	UpdateTask(ctx context.Context, task *model.TitheTask) error

	CreateEntry(ctx context.Context, entry *model.DedicationEntry) error
	GetEntryByID(ctx context.Context, id uuid.UUID) (*model.DedicationEntry, error)
	ListEntriesByTaskID(ctx context.Context, taskID uuid.UUID) ([]model.DedicationEntry, error)
	DeleteEntry(ctx context.Context, id uuid.UUID) error
}

type titheRepository struct {
	db *gorm.DB
}

func NewTitheRepository(db *gorm.DB) TitheRepository {
	return &titheRepository{db: db}
}

func (r *titheRepository) CreateTask(ctx context.Context, task *model.TitheTask) error {
	return GetDB(ctx, r.db).Create(task).Error
}

func (r *titheRepository) GetTaskByID(ctx context.Context, id uuid.UUID) (*model.TitheTask, error) {
	var task model.TitheTask
	if err := GetDB(ctx, r.db).First(&task, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (r *titheRepository) ListTasks(ctx context.Context) ([]model.TitheTask, error) {
	var tasks []model.TitheTask
	if err := GetDB(ctx, r.db).Order("calculation_timestamp DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *titheRepository) UpdateTask(ctx context.Context, task *model.TitheTask) error {
	return GetDB(ctx, r.db).Save(task).Error
}

func (r *titheRepository) CreateEntry(ctx context.Context, entry *model.DedicationEntry) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *titheRepository) GetEntryByID(ctx context.Context, id uuid.UUID) (*model.DedicationEntry, error) {
	var entry model.DedicationEntry
	if err := GetDB(ctx, r.db).First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (r *titheRepository) ListEntriesByTaskID(ctx context.Context, taskID uuid.UUID) ([]model.DedicationEntry, error) {
	var entries []model.DedicationEntry
	if err := GetDB(ctx, r.db).
		Where("task_id = ?", taskID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *titheRepository) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.DedicationEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
