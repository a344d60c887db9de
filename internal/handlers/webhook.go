package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/spraylab/streetshop/internal/mailer"
	"github.com/spraylab/streetshop/internal/models"
	"github.com/spraylab/streetshop/internal/mykafka"
	"github.com/spraylab/streetshop/internal/orders"
	"github.com/spraylab/streetshop/internal/payment"
)

// WebhookHandler applies gateway payment notifications to orders. A
// structurally valid request is always acknowledged with HTTP 200;
// anything else and the gateway keeps retrying, hammering the endpoint
// with duplicates of a notification it already delivered.
type WebhookHandler struct {
	DB        *gorm.DB
	Orders    *orders.Service
	ServerKey string
	Producer  *mykafka.Producer
	Mailer    *mailer.Mailer
	Log       *slog.Logger
}

// Health answers the gateway's endpoint-validation GET.
func (h *WebhookHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, Response{Status: "ok", Message: "webhook endpoint is active"})
}

func (h *WebhookHandler) ack(c echo.Context, status, message string) error {
	return c.JSON(http.StatusOK, Response{Status: status, Message: message})
}

func (h *WebhookHandler) HandleNotification(c echo.Context) error {
	var n payment.Notification
	if err := c.Bind(&n); err != nil {
		h.Log.Warn("webhook: malformed payload", "error", err)
		return h.ack(c, "error", "malformed payload")
	}

	// Field-less pings are the gateway testing connectivity.
	if !n.Complete() {
		return h.ack(c, "success", "test notification received")
	}

	if !n.VerifySignature(h.ServerKey) {
		h.Log.Warn("webhook: invalid signature", "order_id", n.OrderID)
		return h.ack(c, "error", "invalid signature")
	}

	target, ok := n.OrderStatus()
	if !ok {
		// Fail closed on statuses this release does not know.
		h.Log.Warn("webhook: unknown transaction status",
			"order_id", n.OrderID, "transaction_status", n.TransactionStatus)
		return h.ack(c, "success", "no transition for transaction status")
	}

	err := h.Orders.ApplyPaymentStatus(c.Request().Context(), n.OrderID, target)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			h.Log.Warn("webhook: order not found", "order_id", n.OrderID)
			return h.ack(c, "error", "order not found")
		}
		h.Log.Error("webhook: transition failed",
			"order_id", n.OrderID, "target", target, "error", err)
		return h.ack(c, "error", "internal error")
	}

	h.Log.Info("webhook: applied",
		"order_id", n.OrderID,
		"transaction_status", n.TransactionStatus,
		"status", target)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "order_events", n.OrderID, map[string]any{
		"type":    "payment_notification",
		"orderID": n.OrderID,
		"status":  string(target),
	}); err != nil {
		h.Log.Error("webhook: kafka publish failed", "error", err)
	}

	if target == orders.StatusPaid {
		h.notifyPaid(ctx, n.OrderID)
	}

	return h.ack(c, "success", "notification processed")
}

// notifyPaid mails the customer a payment confirmation; best effort
// only, the transition already committed.
func (h *WebhookHandler) notifyPaid(ctx context.Context, orderID string) {
	order, err := h.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return
	}
	var user models.User
	if err := h.DB.First(&user, order.UserID).Error; err != nil || user.Email == "" {
		return
	}
	if err := h.Mailer.Send(ctx, user.Email, "Payment received", mailer.OrderPaidBody(order)); err != nil {
		h.Log.Error("webhook: paid mail failed", "order_id", orderID, "error", err)
	}
}
