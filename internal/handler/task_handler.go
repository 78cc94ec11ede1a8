package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"primetask/internal/authz"
	"primetask/internal/middleware"
	"primetask/internal/model"
	"primetask/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TaskHandler struct {
	tasks repository.TaskRepositoryInterface
}

func NewTaskHandler(tasks repository.TaskRepositoryInterface) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// CreateTaskRequest представляет запрос на создание задачи. Статус при
// создании всегда pending, владелец — текущий пользователь.
type CreateTaskRequest struct {
	Title       string     `json:"title" binding:"required,min=3,max=200"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

// UpdateTaskRequest представляет запрос на полное или частичное
// обновление задачи. Владельца поменять нельзя.
type UpdateTaskRequest struct {
	Title       *string    `json:"title" binding:"omitempty,min=3,max=200"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

// TaskResponse представляет ответ с данными задачи
type TaskResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	OwnerID     string     `json:"owner_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TaskStatsResponse представляет агрегаты по статусам
type TaskStatsResponse struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
	Cancelled  int64 `json:"cancelled"`
}

func newTaskResponse(t *model.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID.String(),
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		DueDate:     t.DueDate,
		OwnerID:     t.OwnerID.String(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func newTaskListResponse(tasks []model.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, newTaskResponse(&tasks[i]))
	}
	return out
}

// parseTaskFilter читает query-параметры status/priority/search.
// Мусорные значения — ошибка валидации, а не пустая выборка.
func parseTaskFilter(c *gin.Context) (repository.TaskFilter, map[string][]string) {
	var filter repository.TaskFilter

	if v := c.Query("status"); v != "" {
		status := model.TaskStatus(v)
		if !status.Valid() {
			return filter, fieldError("status", "Must be one of: pending, in_progress, completed, cancelled.")
		}
		filter.Status = &status
	}
	if v := c.Query("priority"); v != "" {
		priority := model.TaskPriority(v)
		if !priority.Valid() {
			return filter, fieldError("priority", "Must be one of: low, medium, high.")
		}
		filter.Priority = &priority
	}
	filter.Search = strings.TrimSpace(c.Query("search"))

	return filter, nil
}

// List возвращает задачи в области видимости текущего пользователя.
// Фильтры пересекаются с областью и никогда не расширяют ее.
func (h *TaskHandler) List(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication credentials were not provided")
		return
	}

	filter, fieldErrs := parseTaskFilter(c)
	if fieldErrs != nil {
		failFields(c, http.StatusBadRequest, "Invalid filter", fieldErrs)
		return
	}

	scope := authz.TaskScope(claims.Role, claims.UserID)
	tasks, err := h.tasks.List(c.Request.Context(), scope, filter)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve tasks")
		return
	}

	respond(c, http.StatusOK, "", newTaskListResponse(tasks))
}

// Create создает задачу. Владелец — всегда аутентифицированный
// пользователь, что бы ни пришло в теле запроса.
func (h *TaskHandler) Create(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication credentials were not provided")
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failFields(c, http.StatusBadRequest, "Task creation failed", bindingErrors(err))
		return
	}

	title := strings.TrimSpace(req.Title)
	if len(title) < 3 {
		failFields(c, http.StatusBadRequest, "Task creation failed",
			fieldError("title", "Must be at least 3 characters long."))
		return
	}

	priority := model.PriorityMedium
	if req.Priority != "" {
		priority = model.TaskPriority(req.Priority)
		if !priority.Valid() {
			failFields(c, http.StatusBadRequest, "Task creation failed",
				fieldError("priority", "Must be one of: low, medium, high."))
			return
		}
	}

	task := &model.Task{
		ID:          uuid.New(),
		Title:       title,
		Description: req.Description,
		Status:      model.StatusPending,
		Priority:    priority,
		DueDate:     req.DueDate,
		OwnerID:     claims.UserID,
	}

	if err := h.tasks.Create(c.Request.Context(), task); err != nil {
		fail(c, http.StatusInternalServerError, "Failed to create task")
		return
	}

	respond(c, http.StatusCreated, "Task created successfully", newTaskResponse(task))
}

// getAuthorized загружает задачу и проверяет доступ. Чужая задача
// неотличима от несуществующей — в обоих случаях 404, чтобы по ответу
// нельзя было узнать о существовании чужого ID.
func (h *TaskHandler) getAuthorized(c *gin.Context) (*model.Task, bool) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication credentials were not provided")
		return nil, false
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid task ID format")
		return nil, false
	}

	task, err := h.tasks.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			fail(c, http.StatusNotFound, "Task not found")
		} else {
			fail(c, http.StatusInternalServerError, "Failed to retrieve task")
		}
		return nil, false
	}

	if !authz.CanAccessTask(claims.Role, claims.UserID, task.OwnerID) {
		fail(c, http.StatusNotFound, "Task not found")
		return nil, false
	}

	return task, true
}

// GetByID получает задачу по ID
func (h *TaskHandler) GetByID(c *gin.Context) {
	task, ok := h.getAuthorized(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, "", newTaskResponse(task))
}

// Update обновляет задачу. Смена статуса проверяется по таблице
// переходов: завершенную или отмененную задачу можно только вернуть в
// pending.
func (h *TaskHandler) Update(c *gin.Context) {
	task, ok := h.getAuthorized(c)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failFields(c, http.StatusBadRequest, "Task update failed", bindingErrors(err))
		return
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if len(title) < 3 {
			failFields(c, http.StatusBadRequest, "Task update failed",
				fieldError("title", "Must be at least 3 characters long."))
			return
		}
		task.Title = title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Status != nil {
		status := model.TaskStatus(*req.Status)
		if !status.Valid() {
			failFields(c, http.StatusBadRequest, "Task update failed",
				fieldError("status", "Must be one of: pending, in_progress, completed, cancelled."))
			return
		}
		if !task.Status.CanTransitionTo(status) {
			failFields(c, http.StatusBadRequest, "Task update failed",
				fieldError("status", "Cannot transition from '"+string(task.Status)+"' to '"+string(status)+"'."))
			return
		}
		task.Status = status
	}
	if req.Priority != nil {
		priority := model.TaskPriority(*req.Priority)
		if !priority.Valid() {
			failFields(c, http.StatusBadRequest, "Task update failed",
				fieldError("priority", "Must be one of: low, medium, high."))
			return
		}
		task.Priority = priority
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}

	if err := h.tasks.Update(c.Request.Context(), task); err != nil {
		fail(c, http.StatusInternalServerError, "Failed to update task")
		return
	}

	respond(c, http.StatusOK, "Task updated successfully", newTaskResponse(task))
}

// Delete удаляет задачу владельца или любую — для администратора
func (h *TaskHandler) Delete(c *gin.Context) {
	task, ok := h.getAuthorized(c)
	if !ok {
		return
	}

	if err := h.tasks.Delete(c.Request.Context(), task.ID); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			fail(c, http.StatusNotFound, "Task not found")
			return
		}
		fail(c, http.StatusInternalServerError, "Failed to delete task")
		return
	}

	c.Status(http.StatusNoContent)
}

// Stats считает задачи по статусам в той же области видимости, что и List
func (h *TaskHandler) Stats(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication credentials were not provided")
		return
	}

	scope := authz.TaskScope(claims.Role, claims.UserID)
	stats, err := h.tasks.CountByStatus(c.Request.Context(), scope)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve stats")
		return
	}

	respond(c, http.StatusOK, "", TaskStatsResponse{
		Total:      stats.Total,
		Pending:    stats.Pending,
		InProgress: stats.InProgress,
		Completed:  stats.Completed,
		Cancelled:  stats.Cancelled,
	})
}

// AdminList возвращает все задачи без области видимости. Доступ
// ограничивает RequireAdmin на группе маршрутов.
func (h *TaskHandler) AdminList(c *gin.Context) {
	filter, fieldErrs := parseTaskFilter(c)
	if fieldErrs != nil {
		failFields(c, http.StatusBadRequest, "Invalid filter", fieldErrs)
		return
	}

	tasks, err := h.tasks.List(c.Request.Context(), nil, filter)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve tasks")
		return
	}

	respond(c, http.StatusOK, "", newTaskListResponse(tasks))
}

// AdminDelete удаляет любую задачу по ID
func (h *TaskHandler) AdminDelete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid task ID format")
		return
	}

	if err := h.tasks.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			fail(c, http.StatusNotFound, "Task not found")
			return
		}
		fail(c, http.StatusInternalServerError, "Failed to delete task")
		return
	}

	c.Status(http.StatusNoContent)
}
