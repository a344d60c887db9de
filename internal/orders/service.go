package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/spraylab/streetshop/internal/models"
)

// Service owns every write to Order, OrderItem and the stock counters.
// The *gorm.DB handle is injected so tests run against an in-memory
// database.
type Service struct {
	DB *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// PlaceOrder validates the whole draft first, then reserves stock and
// persists the order in a single transaction. Any line failing its
// conditional decrement aborts the lot, so no partial reservation ever
// survives.
func (s *Service) PlaceOrder(ctx context.Context, userID uint, lines []Line, address string, shippingFee float64) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: items required", ErrValidation)
	}
	if address == "" {
		return nil, fmt.Errorf("%w: address required", ErrValidation)
	}
	if shippingFee < 0 {
		return nil, fmt.Errorf("%w: shipping fee must be >= 0", ErrValidation)
	}

	// Whole-order check before any mutation.
	for _, line := range lines {
		resolved, err := resolveLine(s.DB.WithContext(ctx), line)
		if err != nil {
			return nil, err
		}
		if resolved.available() < line.Quantity {
			return nil, resolved.insufficient()
		}
	}

	order := &models.Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    string(StatusUnpaid),
		Address:   address,
		CreatedAt: time.Now(),
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		total := shippingFee
		items := make([]models.OrderItem, 0, len(lines))

		for _, line := range lines {
			// Re-resolve inside the transaction: prices and variants may
			// have moved since the validation pass.
			resolved, err := resolveLine(tx, line)
			if err != nil {
				return err
			}
			if err := reserveLine(tx, resolved); err != nil {
				return err
			}

			item := models.OrderItem{
				OrderID:   order.ID,
				ProductID: resolved.product.ID,
				Quantity:  resolved.qty,
				Price:     resolved.product.Price,
			}
			if resolved.variant != nil {
				item.VariantID = variantIDOf(resolved)
				item.VariantName = resolved.variant.Name
			}
			items = append(items, item)
			total += resolved.product.Price * float64(resolved.qty)
		}

		order.Total = total
		order.Items = items
		return tx.Create(order).Error
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// CancelOrder is the customer/admin cancellation path. The status flip
// is a conditional update over the cancellable source set; stock is
// restored only when that update reports a changed row, so two
// concurrent triggers cannot both restore.
func (s *Service) CancelOrder(ctx context.Context, orderID string, actingUserID uint, isAdmin bool) (*models.Order, error) {
	var order models.Order
	if err := s.DB.WithContext(ctx).Preload("Items").First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !isAdmin && order.UserID != actingUserID {
		return nil, ErrForbidden
	}

	if err := s.cancelTx(ctx, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) cancelTx(ctx context.Context, order *models.Order) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status IN ?", order.ID, cancellableFrom).
			Update("status", string(StatusCancelled))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidState
		}
		if err := restoreItems(tx, order.Items); err != nil {
			return err
		}
		order.Status = string(StatusCancelled)
		return nil
	})
}

// ApplyPaymentStatus applies a webhook-driven transition. Repeated
// deliveries are no-ops: the conditional updates match no row the
// second time and stock is never touched twice.
func (s *Service) ApplyPaymentStatus(ctx context.Context, orderID string, target Status) error {
	var order models.Order
	if err := s.DB.WithContext(ctx).Preload("Items").First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	switch target {
	case StatusPaid:
		return s.DB.WithContext(ctx).Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, string(StatusUnpaid)).
			Update("status", string(StatusPaid)).Error
	case StatusCancelled:
		err := s.cancelTx(ctx, &order)
		if errors.Is(err, ErrInvalidState) {
			// Already cancelled (or shipped past the point of no return);
			// a repeated gateway notification is not an error.
			return nil
		}
		return err
	case StatusUnpaid:
		// "pending": nothing to move.
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidStatus, target)
}

// UpdateStatus is the back-office manual transition. Forward moves
// never touch stock; landing on CANCELLED goes through the same
// conditional restore unit as every other cancellation.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, raw string) (*models.Order, error) {
	target, ok := ParseStatus(raw)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, raw)
	}

	var order models.Order
	if err := s.DB.WithContext(ctx).Preload("Items").First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	current := Status(order.Status)
	if current == target {
		return &order, nil
	}

	if target == StatusCancelled {
		if err := s.cancelTx(ctx, &order); err != nil {
			return nil, err
		}
		return &order, nil
	}

	if !CanTransition(current, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidState, current, target)
	}

	res := s.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, string(current)).
		Update("status", string(target))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: order moved concurrently", ErrInvalidState)
	}
	order.Status = string(target)
	return &order, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	if err := s.DB.WithContext(ctx).Preload("Items").First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *Service) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Order, error) {
	var out []models.Order
	err := s.DB.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&out).Error
	return out, err
}

func (s *Service) ListAll(ctx context.Context, limit, offset int) ([]models.Order, error) {
	var out []models.Order
	err := s.DB.WithContext(ctx).
		Preload("Items").
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&out).Error
	return out, err
}
