package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"primetask/internal/handler"
	"primetask/internal/model"
	"primetask/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

func setupUserTest(t *testing.T, caller *model.User) (*gin.Engine, *MockUserRepository, *MockTaskRepository) {
	gin.SetMode(gin.TestMode)
	r := gin.Default()

	mockUsers := new(MockUserRepository)
	mockTasks := new(MockTaskRepository)
	userHandler := handler.NewUserHandler(mockUsers, mockTasks)

	account := r.Group("/api/v1/auth", asUser(caller.ID, caller.Role))
	account.GET("/profile", userHandler.Profile)
	account.PUT("/profile", userHandler.UpdateProfile)
	account.PUT("/change-password", userHandler.ChangePassword)
	account.GET("/admin/users", userHandler.AdminListUsers)
	account.GET("/admin/users/:id", userHandler.AdminGetUser)
	account.PUT("/admin/users/:id", userHandler.AdminUpdateUser)
	account.DELETE("/admin/users/:id", userHandler.AdminDeleteUser)

	return r, mockUsers, mockTasks
}

func TestProfile_ReturnsOwnRecord(t *testing.T) {
	// Arrange
	caller := activeUser("password123")
	router, mockUsers, _ := setupUserTest(t, caller)
	mockUsers.On("GetByID", mock.Anything, caller.ID).Return(caller, nil)

	// Act
	resp := doJSON(router, "GET", "/api/v1/auth/profile", nil)

	// Assert
	assert.Equal(t, http.StatusOK, resp.Code)

	var env envelope
	assert.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))

	var user handler.UserResponse
	assert.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, caller.ID.String(), user.ID)
	assert.Equal(t, caller.Email, user.Email)
}

func TestUpdateProfile_UsernameTaken(t *testing.T) {
	// Arrange
	caller := activeUser("password123")
	router, mockUsers, _ := setupUserTest(t, caller)
	mockUsers.On("GetByID", mock.Anything, caller.ID).Return(caller, nil)
	mockUsers.On("FindByUsername", mock.Anything, "occupied").Return(activeUser("whatever1"), nil)

	// Act
	resp := doJSON(router, "PUT", "/api/v1/auth/profile", gin.H{"username": "Occupied"})

	// Assert
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	var env envelope
	assert.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	assert.Contains(t, env.Errors, "username")
	mockUsers.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestChangePassword_WrongOldPassword(t *testing.T) {
	// Arrange
	caller := activeUser("correct_password")
	router, mockUsers, _ := setupUserTest(t, caller)
	mockUsers.On("GetByID", mock.Anything, caller.ID).Return(caller, nil)

	// Act
	resp := doJSON(router, "PUT", "/api/v1/auth/change-password", gin.H{
		"old_password": "wrong_password",
		"new_password": "new_password_123",
	})

	// Assert
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	var env envelope
	assert.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	assert.Contains(t, env.Errors, "old_password")
	mockUsers.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestChangePassword_Success(t *testing.T) {
	// Arrange
	caller := activeUser("correct_password")
	router, mockUsers, _ := setupUserTest(t, caller)
	mockUsers.On("GetByID", mock.Anything, caller.ID).Return(caller, nil)

	var updated *model.User
	mockUsers.On("Update", mock.Anything, mock.AnythingOfType("*model.User")).
		Run(func(args mock.Arguments) {
			updated = args.Get(1).(*model.User)
		}).
		Return(nil)

	// Act
	resp := doJSON(router, "PUT", "/api/v1/auth/change-password", gin.H{
		"old_password": "correct_password",
		"new_password": "new_password_123",
	})

	// Assert
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.NotNil(t, updated)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.HashedPassword), []byte("new_password_123")))
}

func TestAdminListUsers_IncludesTaskCounts(t *testing.T) {
	// Arrange
	admin := activeUser("password123")
	admin.Role = model.RoleAdmin
	router, mockUsers, mockTasks := setupUserTest(t, admin)

	other := activeUser("password123")
	other.Email = "other@example.com"
	other.Username = "otheruser"

	mockUsers.On("List", mock.Anything).Return([]model.User{*admin, *other}, nil)
	mockTasks.On("CountByOwner", mock.Anything).Return(map[uuid.UUID]int64{other.ID: 7}, nil)

	// Act
	resp := doJSON(router, "GET", "/api/v1/auth/admin/users", nil)

	// Assert
	assert.Equal(t, http.StatusOK, resp.Code)

	var env envelope
	assert.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))

	var users []handler.AdminUserResponse
	assert.NoError(t, json.Unmarshal(env.Data, &users))
	assert.Len(t, users, 2)
	assert.Equal(t, int64(0), users[0].TasksCount)
	assert.Equal(t, int64(7), users[1].TasksCount)
}

func TestAdminUpdateUser_RoleChange(t *testing.T) {
	// Arrange
	admin := activeUser("password123")
	admin.Role = model.RoleAdmin
	router, mockUsers, _ := setupUserTest(t, admin)

	target := activeUser("password123")
	mockUsers.On("GetByID", mock.Anything, target.ID).Return(target, nil)
	mockUsers.On("Update", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)

	// Act
	resp := doJSON(router, "PUT", "/api/v1/auth/admin/users/"+target.ID.String(), gin.H{"role": "admin"})

	// Assert
	assert.Equal(t, http.StatusOK, resp.Code)

	var env envelope
	assert.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))

	var user handler.UserResponse
	assert.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "admin", user.Role)
}

func TestAdminUpdateUser_InvalidRole(t *testing.T) {
	admin := activeUser("password123")
	admin.Role = model.RoleAdmin
	router, mockUsers, _ := setupUserTest(t, admin)

	resp := doJSON(router, "PUT", "/api/v1/auth/admin/users/"+uuid.NewString(), gin.H{"role": "superuser"})

	assert.Equal(t, http.StatusBadRequest, resp.Code)

	var env envelope
	assert.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	assert.Contains(t, env.Errors, "role")
	mockUsers.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestAdminDeleteUser_Success(t *testing.T) {
	admin := activeUser("password123")
	admin.Role = model.RoleAdmin
	router, mockUsers, _ := setupUserTest(t, admin)

	target := uuid.New()
	mockUsers.On("Delete", mock.Anything, target).Return(nil)

	resp := doJSON(router, "DELETE", "/api/v1/auth/admin/users/"+target.String(), nil)

	assert.Equal(t, http.StatusNoContent, resp.Code)
	mockUsers.AssertExpectations(t)
}

func TestAdminDeleteUser_SelfDeleteRejected(t *testing.T) {
	// Arrange
	admin := activeUser("password123")
	admin.Role = model.RoleAdmin
	router, mockUsers, _ := setupUserTest(t, admin)

	// Act: администратор пытается удалить собственную учетную запись
	resp := doJSON(router, "DELETE", "/api/v1/auth/admin/users/"+admin.ID.String(), nil)

	// Assert
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	mockUsers.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestAdminDeleteUser_NotFound(t *testing.T) {
	admin := activeUser("password123")
	admin.Role = model.RoleAdmin
	router, mockUsers, _ := setupUserTest(t, admin)

	missing := uuid.New()
	mockUsers.On("Delete", mock.Anything, missing).Return(repository.ErrUserNotFound)

	resp := doJSON(router, "DELETE", "/api/v1/auth/admin/users/"+missing.String(), nil)

	assert.Equal(t, http.StatusNotFound, resp.Code)
}
