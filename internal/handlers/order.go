package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/spraylab/streetshop/internal/logging"
	"github.com/spraylab/streetshop/internal/models"
	"github.com/spraylab/streetshop/internal/mykafka"
	"github.com/spraylab/streetshop/internal/orders"
	"github.com/spraylab/streetshop/internal/payment"
	"github.com/spraylab/streetshop/internal/service"
	"github.com/spraylab/streetshop/internal/util"
)

type OrderHandler struct {
	DB       *gorm.DB
	Orders   *orders.Service
	Payments *payment.Client
	Producer *mykafka.Producer

	// CronSecret guards the on-demand sweep trigger.
	CronSecret string
}

func (h *OrderHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "order_events", key, event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

// orderError maps the typed business errors onto HTTP codes.
func orderError(c echo.Context, err error) error {
	var stockErr *orders.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		return echo.NewHTTPError(http.StatusConflict, stockErr.Error())
	case errors.Is(err, orders.ErrValidation),
		errors.Is(err, orders.ErrVariantRequired),
		errors.Is(err, orders.ErrVariantNotFound),
		errors.Is(err, orders.ErrInvalidStatus):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, orders.ErrProductNotFound), errors.Is(err, orders.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, orders.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	case errors.Is(err, orders.ErrInvalidState):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *OrderHandler) Checkout(c echo.Context) error {
	userID, err := service.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	var req struct {
		Items       []orders.Line `json:"items"`
		Address     string        `json:"address"`
		ShippingFee float64       `json:"shipping_fee"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if req.Address == "" {
		// Fall back to the saved delivery profile.
		req.Address = user.Address
	}

	order, err := h.Orders.PlaceOrder(c.Request().Context(), userID, req.Items, req.Address, req.ShippingFee)
	if err != nil {
		return orderError(c, err)
	}

	// The cart served its purpose.
	if err := h.DB.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
		c.Logger().Errorf("cart clear error: %v", err)
	}

	h.publish(c, order.ID, map[string]any{
		"type":    "order_created",
		"userID":  userID,
		"orderID": order.ID,
		"total":   order.Total,
	})

	tx, err := h.Payments.CreateTransaction(c.Request().Context(), order, &user)
	if err != nil {
		// The order stays UNPAID; the client may retry payment and the
		// sweep reclaims the stock if it never does.
		c.Logger().Errorf("payment token error: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]any{
			"order":   order,
			"message": "payment gateway unavailable, retry payment later",
		})
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"order":        order,
		"token":        tx.Token,
		"redirect_url": tx.RedirectURL,
	})
}

func (h *OrderHandler) ListOrders(c echo.Context) error {
	userID, err := service.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	list, err := h.Orders.ListByUser(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, list)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	userID, err := service.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	order, err := h.Orders.GetOrder(c.Request().Context(), c.Param("id"))
	if err != nil {
		return orderError(c, err)
	}
	if order.UserID != userID && !service.IsAdmin(c) {
		// A stranger probing ids learns nothing about what exists.
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) CancelOrder(c echo.Context) error {
	userID, err := service.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	order, err := h.Orders.CancelOrder(c.Request().Context(), c.Param("id"), userID, service.IsAdmin(c))
	if err != nil {
		return orderError(c, err)
	}

	h.publish(c, order.ID, map[string]any{
		"type":    "order_cancelled",
		"userID":  userID,
		"orderID": order.ID,
	})
	return c.JSON(http.StatusOK, order)
}

// Sweep is the on-demand expiry trigger for cron callers.
func (h *OrderHandler) Sweep(c echo.Context) error {
	auth := c.Request().Header.Get("Authorization")
	if h.CronSecret == "" || auth != "Bearer "+h.CronSecret {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	result, err := h.Orders.SweepExpired(c.Request().Context(), logging.FromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	for _, id := range result.OrderIDs {
		h.publish(c, id, map[string]any{
			"type":    "order_expired",
			"orderID": id,
		})
	}
	return c.JSON(http.StatusOK, result)
}
