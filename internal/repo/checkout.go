package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SecondList/EcommerceAPI/internal/models"
)

type CheckoutRepo struct {
	DB *gorm.DB
}

// CartLine is one cart row joined with the current catalog price.
type CartLine struct {
	CartItemID uint
	ProductID  uint
	Quantity   uint
	UnitPrice  float64
}

func (r *CheckoutRepo) CartLines(ctx context.Context, userID uint, productIDs []uint) ([]CartLine, error) {
	var lines []CartLine
	err := r.DB.WithContext(ctx).
		Table("cart_items").
		Select("cart_items.id AS cart_item_id, cart_items.product_id, cart_items.quantity, products.price AS unit_price").
		Joins("JOIN products ON products.id = cart_items.product_id").
		Where("cart_items.user_id = ? AND cart_items.product_id IN ?", userID, productIDs).
		Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// CommitCheckout persists the order with its items, the payment and the
// shipment, and deletes the consumed cart rows, all inside one transaction.
// The shipment tracking number is derived here because it needs the order id.
// If another checkout consumed any of the cart rows first, the delete count
// comes up short and everything rolls back.
func (r *CheckoutRepo) CommitCheckout(ctx context.Context, order *models.Order, payment *models.Payment, shipment *models.Shipment, cartItemIDs []uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}

		payment.OrderID = order.ID
		if err := tx.Create(payment).Error; err != nil {
			return err
		}

		shipment.OrderID = order.ID
		shipment.TrackingNumber = fmt.Sprintf("%s-%d", shipment.Carrier, order.ID)
		if err := tx.Create(shipment).Error; err != nil {
			return err
		}

		res := tx.Where("id IN ? AND user_id = ?", cartItemIDs, order.UserID).
			Delete(&models.CartItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(cartItemIDs)) {
			return fmt.Errorf("cart changed during checkout: deleted %d of %d items",
				res.RowsAffected, len(cartItemIDs))
		}

		return nil
	})
}

// OrdersByUser returns a user's orders with items, payment and shipment
// fetched by explicit queries on order ids.
type OrderDetail struct {
	Order    models.Order
	Payment  *models.Payment
	Shipment *models.Shipment
}

func (r *CheckoutRepo) OrdersByUser(ctx context.Context, userID uint, limit, offset int) ([]OrderDetail, error) {
	var orders []models.Order
	err := r.DB.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("id").
		Limit(limit).Offset(offset).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}

	ids := make([]uint, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}

	var payments []models.Payment
	if err := r.DB.WithContext(ctx).Where("order_id IN ?", ids).Find(&payments).Error; err != nil {
		return nil, err
	}
	var shipments []models.Shipment
	if err := r.DB.WithContext(ctx).Where("order_id IN ?", ids).Find(&shipments).Error; err != nil {
		return nil, err
	}

	payByOrder := make(map[uint]*models.Payment, len(payments))
	for i := range payments {
		payByOrder[payments[i].OrderID] = &payments[i]
	}
	shipByOrder := make(map[uint]*models.Shipment, len(shipments))
	for i := range shipments {
		shipByOrder[shipments[i].OrderID] = &shipments[i]
	}

	details := make([]OrderDetail, 0, len(orders))
	for _, o := range orders {
		details = append(details, OrderDetail{
			Order:    o,
			Payment:  payByOrder[o.ID],
			Shipment: shipByOrder[o.ID],
		})
	}
	return details, nil
}
