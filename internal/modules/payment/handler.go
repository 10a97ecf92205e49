package payment

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"subpay/internal/pkg/response"
)

type Handler struct {
	service *Service
	loggerf func(format string, args ...interface{})
}

func NewHandler(service *Service, loggerf func(format string, args ...interface{})) *Handler {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Handler{service: service, loggerf: loggerf}
}

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.GET("/payments/plans", h.GetPlans)
	rg.POST("/payments/create-order", h.CreateOrder)
	rg.POST("/payments/verify", h.Verify)
	rg.GET("/payments/history", h.History)
	rg.GET("/payments/:id", h.GetPayment)
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/webhook", h.Webhook)
}

// GetPlans godoc
// @Summary      List available subscription plans
// @Tags         Payments
// @Security     BearerAuth
// @Produce      json
// @Success      200 {array} PlanDetails
// @Router       /payments/plans [get]
func (h *Handler) GetPlans(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"plans": Plans()})
}

// CreateOrder godoc
// @Summary      Create a gateway order for a subscription plan
// @Tags         Payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body body CreateOrderRequest true "Plan selection"
// @Success      200 {object} CreateOrderResponse
// @Failure      400 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Router       /payments/create-order [post]
func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	userID := c.GetInt64("user_id")
	resp, err := h.service.CreateOrder(c.Request.Context(), userID, req.Plan)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidPlan):
			response.Error(c, http.StatusBadRequest, "INVALID_PLAN", "Invalid plan selected")
		case errors.Is(err, ErrGatewayUnavailable):
			response.Error(c, http.StatusBadGateway, "GATEWAY_UNAVAILABLE", "Payment gateway unavailable, try again later")
		default:
			h.loggerf("level=error msg=create order failed user_id=%d err=%v", userID, err)
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create order")
		}
		return
	}
	response.Success(c, http.StatusOK, resp)
}

// Verify godoc
// @Summary      Verify a checkout confirmation returned by the client
// @Tags         Payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body body VerifyRequest true "Confirmation triple"
// @Success      200 {object} PaymentSummary
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /payments/verify [post]
func (h *Handler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	userID := c.GetInt64("user_id")
	summary, err := h.service.VerifyPayment(c.Request.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrPaymentNotFound):
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Payment record not found")
		case errors.Is(err, ErrInvalidSignature):
			response.Error(c, http.StatusBadRequest, "VERIFICATION_FAILED", "Payment verification failed")
		default:
			h.loggerf("level=error msg=payment verification failed user_id=%d gateway_order_id=%s err=%v", userID, req.OrderID, err)
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to verify payment")
		}
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Payment verified successfully", "payment": summary})
}

// Webhook godoc
// @Summary      Gateway webhook endpoint
// @Description  Verifies the X-Razorpay-Signature header over the raw body, then reconciles the event
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Success      200 {object} map[string]string
// @Failure      400 {object} ErrorResponse
// @Router       /payments/webhook [post]
func (h *Handler) Webhook(c *gin.Context) {
	// The signature covers the exact bytes on the wire, so the body must be
	// read raw, never through a JSON binder.
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "BAD_REQUEST", "failed to read request body")
		return
	}
	signature := c.GetHeader("X-Razorpay-Signature")

	if err := h.service.HandleWebhook(c.Request.Context(), rawBody, signature); err != nil {
		if errors.Is(err, ErrInvalidWebhookSignature) {
			response.Error(c, http.StatusBadRequest, "INVALID_SIGNATURE", "Invalid webhook signature")
			return
		}
		h.loggerf("level=error msg=webhook handling failed err=%v", err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Webhook processing failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// History godoc
// @Summary      List the authenticated user's payments, newest first
// @Tags         Payments
// @Security     BearerAuth
// @Produce      json
// @Param        page query int false "Page number"
// @Param        limit query int false "Page size"
// @Success      200 {object} HistoryResponse
// @Router       /payments/history [get]
func (h *Handler) History(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	userID := c.GetInt64("user_id")
	resp, err := h.service.History(c.Request.Context(), userID, page, limit)
	if err != nil {
		h.loggerf("level=error msg=payment history failed user_id=%d err=%v", userID, err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load payment history")
		return
	}
	response.Success(c, http.StatusOK, resp)
}

// GetPayment godoc
// @Summary      Get one payment owned by the authenticated user
// @Tags         Payments
// @Security     BearerAuth
// @Produce      json
// @Param        id path int true "Payment ID"
// @Success      200 {object} domain.Payment
// @Failure      404 {object} ErrorResponse
// @Router       /payments/{id} [get]
func (h *Handler) GetPayment(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid payment ID")
		return
	}

	userID := c.GetInt64("user_id")
	p, err := h.service.GetPayment(c.Request.Context(), userID, id)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Payment not found")
			return
		}
		h.loggerf("level=error msg=get payment failed user_id=%d payment_id=%d err=%v", userID, id, err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load payment")
		return
	}
	response.Success(c, http.StatusOK, p)
}
