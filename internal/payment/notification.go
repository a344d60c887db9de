package payment

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/spraylab/streetshop/internal/orders"
)

// Notification is the gateway's asynchronous payment-status payload.
// Unknown fields are ignored; unknown statuses map to no transition.
type Notification struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	StatusCode        string `json:"status_code"`
	SignatureKey      string `json:"signature_key"`
	GrossAmount       string `json:"gross_amount"`
}

// Complete reports whether the correlation fields are present. The
// gateway sends field-less pings to validate the endpoint; those are
// acknowledged without side effects.
func (n *Notification) Complete() bool {
	return n.OrderID != "" && n.TransactionStatus != ""
}

// VerifySignature recomputes sha512(order_id + status_code +
// gross_amount + serverKey) and compares it to the supplied signature.
// The gateway is inconsistent about the amount rendering, so the
// supplied string, its integer form and its two-decimal form are all
// tried.
func (n *Notification) VerifySignature(serverKey string) bool {
	for _, amount := range n.amountForms() {
		sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + amount + serverKey))
		expected := hex.EncodeToString(sum[:])
		if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(n.SignatureKey))) == 1 {
			return true
		}
	}
	return false
}

func (n *Notification) amountForms() []string {
	forms := []string{n.GrossAmount}
	if v, err := strconv.ParseFloat(n.GrossAmount, 64); err == nil {
		for _, f := range []string{
			strconv.FormatFloat(v, 'f', -1, 64),
			strconv.FormatFloat(v, 'f', 2, 64),
		} {
			if f != n.GrossAmount {
				forms = append(forms, f)
			}
		}
	}
	return forms
}

// OrderStatus maps the gateway transaction status (plus fraud
// assessment) to an internal order status. ok is false when the
// status is unrecognized, in which case no transition is applied.
func (n *Notification) OrderStatus() (orders.Status, bool) {
	switch n.TransactionStatus {
	case "capture":
		if n.FraudStatus == "accept" {
			return orders.StatusPaid, true
		}
		return orders.StatusUnpaid, true
	case "settlement":
		return orders.StatusPaid, true
	case "cancel", "deny", "expire":
		return orders.StatusCancelled, true
	case "pending":
		return orders.StatusUnpaid, true
	}
	return "", false
}
