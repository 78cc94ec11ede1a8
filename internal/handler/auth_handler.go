package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"primetask/internal/auth"
	"primetask/internal/middleware"
	"primetask/internal/model"
	"primetask/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthHandler struct {
	users  repository.UserRepositoryInterface
	issuer *auth.Issuer
}

func NewAuthHandler(users repository.UserRepositoryInterface, issuer *auth.Issuer) *AuthHandler {
	return &AuthHandler{users: users, issuer: issuer}
}

type RegisterRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Username        string `json:"username" binding:"required,alphanum,min=3,max=30"`
	Password        string `json:"password" binding:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" binding:"required"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

// UserResponse представляет публичное представление пользователя
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type TokenResponse struct {
	Access         string    `json:"access"`
	AccessExpires  time.Time `json:"access_expires"`
	Refresh        string    `json:"refresh"`
	RefreshExpires time.Time `json:"refresh_expires"`
}

type AuthData struct {
	User   UserResponse  `json:"user"`
	Tokens TokenResponse `json:"tokens"`
}

func newUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func newTokenResponse(pair *auth.TokenPair) TokenResponse {
	return TokenResponse{
		Access:         pair.AccessToken,
		AccessExpires:  pair.AccessExpiresAt,
		Refresh:        pair.RefreshToken,
		RefreshExpires: pair.RefreshExpiresAt,
	}
}

// Register создает новый аккаунт. Роль всегда user — клиент не может
// зарегистрировать администратора. Успешная регистрация сразу выдает
// пару токенов.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failFields(c, http.StatusBadRequest, "Registration failed", bindingErrors(err))
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.ToLower(req.Username)

	if req.Password != req.PasswordConfirm {
		failFields(c, http.StatusBadRequest, "Registration failed",
			fieldError("password_confirm", "Passwords do not match."))
		return
	}

	// Предварительные проверки уникальности ради внятных ошибок по полям.
	// Гонку двух одновременных регистраций ловит уникальный индекс в БД.
	existing, err := h.users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to check email")
		return
	}
	if existing != nil {
		failFields(c, http.StatusBadRequest, "Registration failed",
			fieldError("email", "A user with this email already exists."))
		return
	}

	existing, err = h.users.FindByUsername(c.Request.Context(), req.Username)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to check username")
		return
	}
	if existing != nil {
		failFields(c, http.StatusBadRequest, "Registration failed",
			fieldError("username", "A user with this username already exists."))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	user := &model.User{
		ID:             uuid.New(),
		Email:          req.Email,
		Username:       req.Username,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		HashedPassword: string(hash),
		Role:           model.RoleUser,
		IsActive:       true,
	}

	if err := h.users.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			failFields(c, http.StatusBadRequest, "Registration failed",
				fieldError("email", "A user with this email or username already exists."))
			return
		}
		fail(c, http.StatusInternalServerError, "Failed to create user")
		return
	}

	pair, err := h.issuer.Issue(user)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to issue tokens")
		return
	}

	respond(c, http.StatusCreated, "User registered successfully", AuthData{
		User:   newUserResponse(user),
		Tokens: newTokenResponse(pair),
	})
}

// Login проверяет пару email/пароль. Ответ при неизвестном email, неверном
// пароле и деактивированном аккаунте одинаковый, чтобы нельзя было
// перебирать адреса.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failFields(c, http.StatusBadRequest, "Login failed", bindingErrors(err))
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	user, err := h.users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to look up user")
		return
	}
	if user == nil || !user.IsActive ||
		bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)) != nil {
		fail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	pair, err := h.issuer.Issue(user)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to issue tokens")
		return
	}

	respond(c, http.StatusOK, "Login successful", AuthData{
		User:   newUserResponse(user),
		Tokens: newTokenResponse(pair),
	})
}

// Refresh меняет refresh-токен на новую пару. Старый токен попадает в
// revocation set до выдачи новой пары, поэтому повторное использование
// после ротации невозможно.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failFields(c, http.StatusBadRequest, "Refresh failed", bindingErrors(err))
		return
	}

	claims, err := h.issuer.VerifyRefresh(c.Request.Context(), req.Refresh)
	if err != nil {
		fail(c, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}

	// Роль могла измениться после выдачи токена — перечитываем пользователя.
	user, err := h.users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to look up user")
		return
	}
	if user == nil || !user.IsActive {
		fail(c, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}

	if err := h.issuer.Revoke(c.Request.Context(), claims); err != nil {
		fail(c, http.StatusInternalServerError, "Failed to rotate refresh token")
		return
	}

	pair, err := h.issuer.Issue(user)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to issue tokens")
		return
	}

	respond(c, http.StatusOK, "Token refreshed successfully", AuthData{
		User:   newUserResponse(user),
		Tokens: newTokenResponse(pair),
	})
}

// Logout заносит refresh-токен в revocation set. Повторный logout того же
// токена — не ошибка.
func (h *AuthHandler) Logout(c *gin.Context) {
	if _, ok := middleware.ClaimsFromContext(c); !ok {
		fail(c, http.StatusUnauthorized, "Authentication credentials were not provided")
		return
	}

	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failFields(c, http.StatusBadRequest, "Logout failed", bindingErrors(err))
		return
	}

	claims, err := h.issuer.VerifyRefresh(c.Request.Context(), req.Refresh)
	if err != nil {
		if errors.Is(err, auth.ErrTokenRevoked) {
			respond(c, http.StatusOK, "Successfully logged out", nil)
			return
		}
		fail(c, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	if err := h.issuer.Revoke(c.Request.Context(), claims); err != nil {
		fail(c, http.StatusInternalServerError, "Failed to revoke refresh token")
		return
	}

	respond(c, http.StatusOK, "Successfully logged out", nil)
}
