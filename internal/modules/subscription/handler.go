package subscription

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"subpay/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.GET("/subscriptions/me", h.GetMySubscription)
}

// GetMySubscription godoc
// @Summary      Current subscription of the authenticated user
// @Tags         Subscriptions
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} SubscriptionView
// @Router       /subscriptions/me [get]
func (h *Handler) GetMySubscription(c *gin.Context) {
	userID := c.GetInt64("user_id")
	view, err := h.service.Current(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load subscription")
		return
	}
	response.Success(c, http.StatusOK, view)
}
