// Package handler implements the JSON endpoints of the expense tracker API.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/eapayk/quanlitien/notify/webpush"
	"github.com/eapayk/quanlitien/store"
	"github.com/eapayk/quanlitien/tracker"
)

const sessionUserKey = "user_id"

// Handler serves the tracker operations over HTTP.
type Handler struct {
	tracker *tracker.Manager
	webpush *webpush.Client
}

// New creates a new API handler. The webpush client may be nil when push
// notifications are disabled.
func New(t *tracker.Manager, webpushClient *webpush.Client) *Handler {
	return &Handler{tracker: t, webpush: webpushClient}
}

// RequireAuth aborts requests whose session does not match the active user.
func RequireAuth(t *tracker.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, _ := session.Get(sessionUserKey).(string)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		user, ok := t.CurrentUser()
		if !ok || user.ID != userID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}
		c.Set("user", user)
	}
}

// statusForError maps the tracker's error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, tracker.ErrNotAuthenticated),
		errors.Is(err, tracker.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, tracker.ErrPasswordMismatch):
		return http.StatusForbidden
	case errors.Is(err, tracker.ErrUnknownCategory),
		errors.Is(err, tracker.ErrUnknownExpense):
		return http.StatusNotFound
	case errors.Is(err, tracker.ErrCategoryExists),
		errors.Is(err, tracker.ErrCategoryInUse),
		errors.Is(err, store.ErrDuplicateEmail),
		errors.Is(err, store.ErrDuplicateUsername):
		return http.StatusConflict
	case errors.Is(err, tracker.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, tracker.ErrMissingFields),
		errors.Is(err, tracker.ErrInvalidAmount),
		errors.Is(err, tracker.ErrInvalidDate),
		errors.Is(err, tracker.ErrUnknownIcon),
		errors.Is(err, tracker.ErrPasswordConfirm),
		errors.Is(err, tracker.ErrPasswordTooShort),
		errors.Is(err, tracker.ErrInvalidPalette),
		errors.Is(err, tracker.ErrInvalidImage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(statusForError(err), gin.H{"error": err.Error()})
}

// userResponse is the wire form of a user, without the password hash.
type userResponse struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Email        string           `json:"email"`
	Username     string           `json:"username"`
	Avatar       string           `json:"avatar,omitempty"`
	MonthlyLimit int64            `json:"monthlyLimit"`
	Expenses     []store.Expense  `json:"expenses"`
	Categories   []store.Category `json:"categories"`
}

func toUserResponse(u store.User) userResponse {
	return userResponse{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Username:     u.Username,
		Avatar:       u.Avatar,
		MonthlyLimit: u.MonthlyLimit,
		Expenses:     u.Expenses,
		Categories:   u.Categories,
	}
}

// Login authenticates a user and establishes the session.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.tracker.Login(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

// Register creates a new account and logs it in.
func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Name            string `json:"name"`
		Email           string `json:"email"`
		Username        string `json:"username"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.tracker.Register(c.Request.Context(), req.Name, req.Email, req.Username, req.Password, req.ConfirmPassword)
	if err != nil {
		abortWithError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(user))
}

// Logout ends the session.
func (h *Handler) Logout(c *gin.Context) {
	if err := h.tracker.Logout(c.Request.Context()); err != nil {
		abortWithError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetAccount returns the active user.
func (h *Handler) GetAccount(c *gin.Context) {
	user := c.MustGet("user").(store.User)
	c.JSON(http.StatusOK, toUserResponse(user))
}

// UpdateAccount changes name, username and email.
func (h *Handler) UpdateAccount(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.tracker.UpdatePersonalInfo(c.Request.Context(), req.Name, req.Username, req.Email)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// ChangePassword changes the account password.
func (h *Handler) ChangePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.tracker.ChangePassword(c.Request.Context(), req.CurrentPassword, req.NewPassword); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// UpdateAvatar accepts an uploaded image, scales it down and stores it as
// the account avatar. The image comes either as a multipart "avatar" file
// or as the raw request body.
func (h *Handler) UpdateAvatar(c *gin.Context) {
	reader := c.Request.Body
	if file, err := c.FormFile("avatar"); err == nil {
		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid avatar upload"})
			return
		}
		defer f.Close()
		reader = f
	}

	avatar, err := h.tracker.UpdateAvatar(c.Request.Context(), reader)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatar": avatar})
}

// RemoveAvatar clears the account avatar.
func (h *Handler) RemoveAvatar(c *gin.Context) {
	if err := h.tracker.RemoveAvatar(c.Request.Context()); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteAccount removes the account after the password is confirmed.
func (h *Handler) DeleteAccount(c *gin.Context) {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.tracker.DeleteAccount(c.Request.Context(), req.Password); err != nil {
		abortWithError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListExpenses returns the active user's expenses.
func (h *Handler) ListExpenses(c *gin.Context) {
	expenses, err := h.tracker.Expenses()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, expenses)
}

// AddExpense records a new expense.
func (h *Handler) AddExpense(c *gin.Context) {
	var req struct {
		Category string `json:"category"`
		Amount   string `json:"amount"`
		Date     string `json:"date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	expense, err := h.tracker.AddExpense(c.Request.Context(), req.Category, req.Amount, req.Date)
	if err != nil {
		abortWithError(c, err)
		return
	}

	user := c.MustGet("user").(store.User)
	if summary, err := h.tracker.Summarize(); err == nil && summary.MonthlyLimit > 0 && summary.Remaining < 0 {
		go h.notifyLimitExceeded(context.WithoutCancel(c.Request.Context()), user.ID, summary)
	}

	c.JSON(http.StatusCreated, expense)
}

// notifyLimitExceeded pushes a warning to the user's subscribed browsers when
// spending passes the monthly limit. Delivery is best-effort.
func (h *Handler) notifyLimitExceeded(ctx context.Context, userID string, summary tracker.Summary) {
	if h.webpush == nil || len(h.webpush.Subscriptions(userID)) == 0 {
		return
	}

	payload := webpush.DefaultPayload(
		"Vượt hạn mức chi tiêu",
		fmt.Sprintf("Bạn đã chi %s, vượt hạn mức %s của tháng này.",
			tracker.FormatCurrency(summary.TotalSpent),
			tracker.FormatCurrency(summary.MonthlyLimit)),
	)
	if err := h.webpush.SendNotification(ctx, userID, payload); err != nil {
		log.Warn("failed to push limit warning", "user", userID, "error", err)
	}
}

// UpdateExpense changes the amount of an expense.
func (h *Handler) UpdateExpense(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expense id"})
		return
	}

	var req struct {
		Amount string `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	expense, err := h.tracker.UpdateExpenseAmount(c.Request.Context(), id, req.Amount)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, expense)
}

// DeleteExpense removes an expense.
func (h *Handler) DeleteExpense(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expense id"})
		return
	}

	if err := h.tracker.DeleteExpense(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListCategories returns the active user's categories.
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.tracker.Categories()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// AddCategory creates a category.
func (h *Handler) AddCategory(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
		Icon string `json:"icon"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	category, err := h.tracker.AddCategory(c.Request.Context(), req.Name, req.Icon)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

// DeleteCategory removes a category unless expenses still reference it.
func (h *Handler) DeleteCategory(c *gin.Context) {
	if err := h.tracker.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SetMonthlyLimit updates the monthly spending limit.
func (h *Handler) SetMonthlyLimit(c *gin.Context) {
	var req struct {
		Limit string `json:"limit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	limit, err := h.tracker.SetMonthlyLimit(c.Request.Context(), req.Limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"monthlyLimit": limit})
}

// GetSummary returns the spending summary against the monthly limit.
func (h *Handler) GetSummary(c *gin.Context) {
	summary, err := h.tracker.Summarize()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetTheme returns the current theme.
func (h *Handler) GetTheme(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.Theme())
}

// UpdateTheme applies the provided theme fields and persists the result.
func (h *Handler) UpdateTheme(c *gin.Context) {
	var req struct {
		SelectedColorIndex *int     `json:"selectedColorIndex"`
		CardOpacity        *float64 `json:"cardOpacity"`
		BackgroundBlur     *int     `json:"backgroundBlur"`
		BackgroundImage    *string  `json:"backgroundImage"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if req.SelectedColorIndex != nil {
		if err := h.tracker.SelectPaletteColor(*req.SelectedColorIndex); err != nil {
			abortWithError(c, err)
			return
		}
	}
	if req.CardOpacity != nil {
		h.tracker.SetCardOpacity(*req.CardOpacity)
	}
	if req.BackgroundBlur != nil {
		h.tracker.SetBackgroundBlur(*req.BackgroundBlur)
	}
	if req.BackgroundImage != nil {
		if *req.BackgroundImage == "" || *req.BackgroundImage == "none" {
			h.tracker.RemoveBackgroundImage()
		} else {
			h.tracker.SetBackgroundImage(*req.BackgroundImage)
		}
	}

	if err := h.tracker.SaveTheme(c.Request.Context()); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.tracker.Theme())
}

// ResetTheme restores the default theme.
func (h *Handler) ResetTheme(c *gin.Context) {
	if err := h.tracker.ResetTheme(c.Request.Context()); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.tracker.Theme())
}
