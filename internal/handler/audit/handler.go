package audit

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/account-policy/internal/middleware"
	"github.com/jwalitptl/account-policy/internal/model"
	"github.com/jwalitptl/account-policy/pkg/errors"
	"github.com/jwalitptl/account-policy/pkg/httputil"
)

type AuditService interface {
	AuditTrail(ctx context.Context, actorID uuid.UUID, filters *model.AuditFilters) ([]*model.PolicyAuditLog, error)
}

type Handler struct {
	service AuditService
}

func NewHandler(service AuditService) *Handler {
	return &Handler{
		service: service,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	audit := r.Group("/policy/audit")
	{
		audit.GET("/logs", h.ListLogs)
		audit.GET("/logs/user/:id", h.GetUserLogs)
	}
}

// ListLogs supports ?action=, ?allowed=, ?since= (RFC3339) and ?limit=
func (h *Handler) ListLogs(c *gin.Context) {
	filters, err := parseFilters(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	h.list(c, filters)
}

func (h *Handler) GetUserLogs(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid user_id", err))
		return
	}

	filters, err := parseFilters(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	filters.UserID = &userID
	h.list(c, filters)
}

func (h *Handler) list(c *gin.Context, filters *model.AuditFilters) {
	actorID, ok := middleware.ActorID(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	logs, err := h.service.AuditTrail(c.Request.Context(), actorID, filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithList(c, logs, len(logs), filters.Limit)
}

func parseFilters(c *gin.Context) (*model.AuditFilters, error) {
	filters := &model.AuditFilters{
		Action: c.Query("action"),
		Limit:  100,
	}

	if v := c.Query("allowed"); v != "" {
		allowed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.BadRequest("invalid allowed filter", err)
		}
		filters.IsAllowed = &allowed
	}

	if v := c.Query("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, errors.BadRequest("invalid since filter", err)
		}
		filters.Since = &since
	}

	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 || limit > 1000 {
			return nil, errors.BadRequest("limit must be between 1 and 1000", err)
		}
		filters.Limit = limit
	}

	return filters, nil
}
