package repository_test

import (
	"context"
	"testing"
	"time"

	"primetask/internal/model"
	"primetask/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTaskRepository_Create(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	taskRepo := repository.NewTaskRepository(gormDB)

	taskID := uuid.New()
	task := &model.Task{
		ID:       taskID,
		Title:    "Write report",
		Status:   model.StatusPending,
		Priority: model.PriorityMedium,
		OwnerID:  uuid.New(),
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "tasks"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(taskID.String()))
	mock.ExpectCommit()

	// Act
	err := taskRepo.Create(context.Background(), task)

	// Assert
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_GetByID_NotFound(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	taskRepo := repository.NewTaskRepository(gormDB)

	mock.ExpectQuery(`SELECT .* FROM "tasks" WHERE id = .*`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	// Act
	task, err := taskRepo.GetByID(context.Background(), uuid.New())

	// Assert
	assert.ErrorIs(t, err, repository.ErrTaskNotFound)
	assert.Nil(t, task)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_List_ScopedByOwner(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	taskRepo := repository.NewTaskRepository(gormDB)

	ownerID := uuid.New()
	taskID := uuid.New()

	// Запрос обязан содержать фильтр по владельцу
	mock.ExpectQuery(`SELECT .* FROM "tasks" WHERE owner_id = .* ORDER BY created_at DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "status", "priority", "owner_id", "created_at"}).
			AddRow(taskID.String(), "Write report", "pending", "medium", ownerID.String(), time.Now()))

	// Act
	tasks, err := taskRepo.List(context.Background(), &ownerID, repository.TaskFilter{})

	// Assert
	assert.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.Equal(t, ownerID, tasks[0].OwnerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_List_StatusFilter(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	taskRepo := repository.NewTaskRepository(gormDB)

	ownerID := uuid.New()
	status := model.StatusCompleted

	mock.ExpectQuery(`SELECT .* FROM "tasks" WHERE owner_id = .* AND status = .*`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	// Act
	tasks, err := taskRepo.List(context.Background(), &ownerID, repository.TaskFilter{Status: &status})

	// Assert
	assert.NoError(t, err)
	assert.Empty(t, tasks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_Delete_NotFound(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	taskRepo := repository.NewTaskRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "tasks"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	// Act
	err := taskRepo.Delete(context.Background(), uuid.New())

	// Assert
	assert.ErrorIs(t, err, repository.ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_CountByStatus(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	taskRepo := repository.NewTaskRepository(gormDB)

	ownerID := uuid.New()

	mock.ExpectQuery(`SELECT status, count\(\*\) as count FROM "tasks" WHERE owner_id = .* GROUP BY`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("pending", 3).
			AddRow("completed", 2))

	// Act
	stats, err := taskRepo.CountByStatus(context.Background(), &ownerID)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, int64(5), stats.Total)
	assert.Equal(t, int64(3), stats.Pending)
	assert.Equal(t, int64(2), stats.Completed)
	assert.Equal(t, int64(0), stats.InProgress)
	assert.NoError(t, mock.ExpectationsWereMet())
}
