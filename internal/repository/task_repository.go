package repository

import (
	"context"
	"errors"

	"primetask/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskFilter narrows a task list. Filters intersect with the caller's
// scope, they can never widen it.
type TaskFilter struct {
	Status   *model.TaskStatus
	Priority *model.TaskPriority
	Search   string
}

// TaskStats is the per-status breakdown of a visible task set.
type TaskStats struct {
	Total      int64
	Pending    int64
	InProgress int64
	Completed  int64
	Cancelled  int64
}

type TaskRepository struct {
	db *gorm.DB
}

type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error)
	List(ctx context.Context, ownerID *uuid.UUID, filter TaskFilter) ([]model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context, ownerID *uuid.UUID) (*TaskStats, error)
	CountByOwner(ctx context.Context) (map[uuid.UUID]int64, error)
}

var _ TaskRepositoryInterface = (*TaskRepository)(nil)

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create adds a new task to the database
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// GetByID retrieves a task by its ID
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

// List returns tasks newest first. A nil ownerID means unscoped (admin);
// otherwise only that owner's tasks are visible.
func (r *TaskRepository) List(ctx context.Context, ownerID *uuid.UUID, filter TaskFilter) ([]model.Task, error) {
	query := r.db.WithContext(ctx).Model(&model.Task{})
	if ownerID != nil {
		query = query.Where("owner_id = ?", *ownerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("priority = ?", *filter.Priority)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("title ILIKE ? OR description ILIKE ?", pattern, pattern)
	}

	var tasks []model.Task
	err := query.Order("created_at DESC").Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Save(task).Error
}

func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Task{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// CountByStatus aggregates the visible task set by status. Scoping works
// the same way as in List.
func (r *TaskRepository) CountByStatus(ctx context.Context, ownerID *uuid.UUID) (*TaskStats, error) {
	query := r.db.WithContext(ctx).Model(&model.Task{})
	if ownerID != nil {
		query = query.Where("owner_id = ?", *ownerID)
	}

	var rows []struct {
		Status model.TaskStatus
		Count  int64
	}
	if err := query.Select("status, count(*) as count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := &TaskStats{}
	for _, row := range rows {
		stats.Total += row.Count
		switch row.Status {
		case model.StatusPending:
			stats.Pending = row.Count
		case model.StatusInProgress:
			stats.InProgress = row.Count
		case model.StatusCompleted:
			stats.Completed = row.Count
		case model.StatusCancelled:
			stats.Cancelled = row.Count
		}
	}
	return stats, nil
}

// CountByOwner returns how many tasks each user owns, for the admin user
// listing.
func (r *TaskRepository) CountByOwner(ctx context.Context) (map[uuid.UUID]int64, error) {
	var rows []struct {
		OwnerID uuid.UUID
		Count   int64
	}
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("owner_id, count(*) as count").
		Group("owner_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.OwnerID] = row.Count
	}
	return counts, nil
}
