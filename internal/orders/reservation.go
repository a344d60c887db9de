package orders

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/spraylab/streetshop/internal/models"
)

// Line is one requested order line at checkout.
type Line struct {
	ProductID uint  `json:"product_id"`
	VariantID *uint `json:"variant_id"`
	Quantity  int   `json:"quantity"`
}

// resolvedLine is a Line after the validation pass: product loaded,
// variant resolved, unit price snapshotted.
type resolvedLine struct {
	product models.Product
	variant *models.Variant
	qty     int
}

// resolveLine loads the product with its variants and applies the
// variant rules: products with variants require a matching variant id,
// and stock is read from whichever row is authoritative.
func resolveLine(tx *gorm.DB, line Line) (*resolvedLine, error) {
	if line.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}

	var product models.Product
	if err := tx.Preload("Variants").First(&product, line.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if len(product.Variants) == 0 {
		return &resolvedLine{product: product, qty: line.Quantity}, nil
	}

	if line.VariantID == nil {
		return nil, fmt.Errorf("%w: %s", ErrVariantRequired, product.Name)
	}
	for i := range product.Variants {
		if product.Variants[i].ID == *line.VariantID {
			return &resolvedLine{product: product, variant: &product.Variants[i], qty: line.Quantity}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrVariantNotFound, product.Name)
}

func (r *resolvedLine) available() int {
	if r.variant != nil {
		return r.variant.Stock
	}
	return r.product.Stock
}

func (r *resolvedLine) insufficient() error {
	e := &InsufficientStockError{ProductName: r.product.Name, Available: r.available()}
	if r.variant != nil {
		e.VariantName = r.variant.Name
	}
	return e
}

// reserveLine decrements the authoritative stock counter, but only if
// enough remains. The WHERE guard is what makes two concurrent
// reservations safe: the loser's update matches no row and the whole
// transaction rolls back with InsufficientStock.
func reserveLine(tx *gorm.DB, r *resolvedLine) error {
	var res *gorm.DB
	if r.variant != nil {
		res = tx.Model(&models.Variant{}).
			Where("id = ? AND stock >= ?", r.variant.ID, r.qty).
			UpdateColumn("stock", gorm.Expr("stock - ?", r.qty))
	} else {
		res = tx.Model(&models.Product{}).
			Where("id = ? AND stock >= ?", r.product.ID, r.qty).
			UpdateColumn("stock", gorm.Expr("stock - ?", r.qty))
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Re-read so the error reports what is actually left.
		fresh, err := resolveLine(tx, Line{ProductID: r.product.ID, VariantID: variantIDOf(r), Quantity: r.qty})
		if err != nil {
			return r.insufficient()
		}
		return fresh.insufficient()
	}
	return nil
}

func variantIDOf(r *resolvedLine) *uint {
	if r.variant == nil {
		return nil
	}
	id := r.variant.ID
	return &id
}

// restoreItems increments stock back for every persisted order item.
// Callers must only invoke it inside the transaction whose conditional
// status flip to CANCELLED reported a changed row, which is what keeps
// restoration to exactly once per order.
func restoreItems(tx *gorm.DB, items []models.OrderItem) error {
	for _, item := range items {
		var res *gorm.DB
		if item.VariantID != nil {
			res = tx.Model(&models.Variant{}).
				Where("id = ?", *item.VariantID).
				UpdateColumn("stock", gorm.Expr("stock + ?", item.Quantity))
		} else {
			res = tx.Model(&models.Product{}).
				Where("id = ?", item.ProductID).
				UpdateColumn("stock", gorm.Expr("stock + ?", item.Quantity))
		}
		if res.Error != nil {
			return res.Error
		}
	}
	return nil
}
