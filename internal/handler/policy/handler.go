package policy

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/account-policy/internal/middleware"
	"github.com/jwalitptl/account-policy/internal/model"
	"github.com/jwalitptl/account-policy/pkg/errors"
	"github.com/jwalitptl/account-policy/pkg/httputil"
)

type Service interface {
	Evaluate(ctx context.Context, req *model.ActionRequest) (*model.PolicyEvaluationResult, error)
	ValidatePassword(ctx context.Context, userID uuid.UUID, newPassword, currentPassword string) (*model.PasswordValidationResult, error)
	EvaluateLockout(ctx context.Context, userID uuid.UUID, ipAddress, userAgent string) (*model.LockoutDecision, error)
	Unlock(ctx context.Context, userID, actorID uuid.UUID, reason string) (*model.UnlockResult, error)
	PasswordExpiration(ctx context.Context, userID uuid.UUID) (model.PasswordExpirationInfo, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	policy := r.Group("/policy")
	{
		policy.POST("/evaluate", h.Evaluate)
		policy.POST("/password/validate", h.ValidatePassword)
		policy.GET("/password/expiration/:user_id", h.PasswordExpiration)
		policy.GET("/lockout/:user_id", h.EvaluateLockout)
		policy.POST("/lockout/:user_id/unlock", h.Unlock)
	}
}

type ValidatePasswordRequest struct {
	UserID          uuid.UUID `json:"user_id" binding:"required"`
	NewPassword     string    `json:"new_password" binding:"required,max=1024"`
	CurrentPassword string    `json:"current_password" binding:"max=1024"`
}

type UnlockRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

func bindError(c *gin.Context, err error) {
	if details := middleware.ValidationErrors(err); len(details) > 0 {
		httputil.RespondWithValidationError(c, err, details)
		return
	}
	httputil.RespondWithError(c, errors.BadRequest("invalid request body", err))
}

func userIDParam(c *gin.Context) (uuid.UUID, bool) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid user_id", err))
		return uuid.Nil, false
	}
	return userID, true
}

// Evaluate answers whether an action is allowed. A denied action is still a
// successful request; the verdict is in the body.
func (h *Handler) Evaluate(c *gin.Context) {
	var req model.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.service.Evaluate(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, result)
}

func (h *Handler) ValidatePassword(c *gin.Context) {
	var req ValidatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.service.ValidatePassword(c.Request.Context(), req.UserID, req.NewPassword, req.CurrentPassword)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, result)
}

func (h *Handler) EvaluateLockout(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	// Login context belongs to the attempt being judged, never to the caller.
	// Absent values skip risk scoring.
	ip := c.Query("ip")
	userAgent := c.Query("user_agent")

	decision, err := h.service.EvaluateLockout(c.Request.Context(), userID, ip, userAgent)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, decision)
}

// Unlock acts on behalf of the authenticated caller
func (h *Handler) Unlock(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	actorID, ok := middleware.ActorID(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	var req UnlockRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}

	result, err := h.service.Unlock(c.Request.Context(), userID, actorID, req.Reason)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, result)
}

func (h *Handler) PasswordExpiration(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	info, err := h.service.PasswordExpiration(c.Request.Context(), userID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, info)
}
