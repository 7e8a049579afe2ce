package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/SecondList/EcommerceAPI/internal/apperr"
	"github.com/SecondList/EcommerceAPI/internal/logging"
	"github.com/SecondList/EcommerceAPI/internal/metrics"
	"github.com/SecondList/EcommerceAPI/internal/models"
	"github.com/SecondList/EcommerceAPI/internal/repo"
	"github.com/SecondList/EcommerceAPI/internal/stripe"
)

// PaymentGateway is the outbound charge port. The concrete client collapses
// provider failures into apperr.ErrPaymentDeclined.
type PaymentGateway interface {
	Charge(ctx context.Context, req stripe.ChargeRequest) (*stripe.ChargeResult, error)
}

type CheckoutService struct {
	Repo     *repo.CheckoutRepo
	Gateway  PaymentGateway
	Producer EventPublisher
	Metrics  *metrics.Metrics
}

type CheckoutRequest struct {
	ProductIDs    []uint
	Currency      string
	ReceiptEmail  string
	Description   string
	Card          stripe.Card
	RecipientName string
	Phone         string
	Address1      string
	Address2      string
	City          string
	State         string
	PostalCode    string
	Country       string
	Carrier       string
}

// Checkout converts the caller's cart lines into a paid order. The charge is
// captured first; order, order items, payment, shipment and cart-line
// deletion then commit as one transaction. A decline leaves the cart intact.
// A persistence failure after a successful charge is surfaced as a
// reconciliation error carrying the external payment id.
func (s *CheckoutService) Checkout(ctx context.Context, callerID uint, callerRole string, req CheckoutRequest) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "checkout", "user_id", callerID)

	if err := requireRole(callerRole, models.RoleBuyer); err != nil {
		return nil, err
	}
	if err := validateCheckout(&req); err != nil {
		return nil, err
	}

	lines, err := s.Repo.CartLines(ctx, callerID, req.ProductIDs)
	if err != nil {
		return nil, err
	}
	if len(lines) != len(req.ProductIDs) {
		s.countCheckout("cart_mismatch")
		return nil, fmt.Errorf("%w: cart-item-missing: matched %d of %d requested products",
			apperr.ErrNotFound, len(lines), len(req.ProductIDs))
	}

	var total float64
	items := make([]models.OrderItem, 0, len(lines))
	cartItemIDs := make([]uint, 0, len(lines))
	for _, line := range lines {
		total += float64(line.Quantity) * line.UnitPrice
		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
		cartItemIDs = append(cartItemIDs, line.CartItemID)
	}

	// Rounding, not truncation: 2-decimal prices like 19.99 are not exact
	// in float64 and truncating 1998.9999... would undercharge a cent.
	amountMinor := int64(math.Round(total * 100))

	chargeStart := time.Now()
	result, err := s.Gateway.Charge(ctx, stripe.ChargeRequest{
		AmountMinorUnits: amountMinor,
		Currency:         req.Currency,
		Card:             req.Card,
		Shipping: stripe.ShippingAddress{
			RecipientName: req.RecipientName,
			Phone:         req.Phone,
			Address1:      req.Address1,
			Address2:      req.Address2,
			City:          req.City,
			State:         req.State,
			PostalCode:    req.PostalCode,
			Country:       req.Country,
			Carrier:       req.Carrier,
		},
		ReceiptEmail:   req.ReceiptEmail,
		Description:    req.Description,
		IdempotencyKey: uuid.NewString(),
	})
	if s.Metrics != nil {
		s.Metrics.ObserveCharge(chargeStart)
	}
	if err != nil {
		l.Warn("charge failed", "amount_minor", amountMinor, "error", err)
		s.countCheckout("declined")
		return nil, err
	}

	order := &models.Order{
		UserID:     callerID,
		TotalPrice: total,
		Status:     models.OrderStatusPaid,
		Items:      items,
	}
	payment := &models.Payment{
		Amount:             total,
		PaymentMethod:      "CARD",
		Status:             models.PaymentStatusCaptured,
		PaymentRefID:       result.PaymentID,
		PaymentRefResponse: result.Response,
		PaymentDate:        time.Now(),
	}
	shipment := &models.Shipment{
		RecipientName: req.RecipientName,
		Phone:         req.Phone,
		Address1:      req.Address1,
		Address2:      req.Address2,
		City:          req.City,
		State:         req.State,
		PostalCode:    req.PostalCode,
		Country:       req.Country,
		Carrier:       req.Carrier,
	}

	if err := s.Repo.CommitCheckout(ctx, order, payment, shipment, cartItemIDs); err != nil {
		// The charge went through but nothing was persisted. An operator
		// must reconcile against the gateway's transaction log.
		l.Error("reconciliation required",
			"payment_ref_id", result.PaymentID,
			"amount_minor", amountMinor,
			"error", err)
		s.countCheckout("reconciliation")
		return nil, fmt.Errorf("%w: charge %s: %v", apperr.ErrReconciliation, result.PaymentID, err)
	}

	l.Info("checkout complete", "order_id", order.ID, "total", total)
	s.countCheckout("ok")
	s.publishOrderCreated(ctx, order)

	return order, nil
}

func (s *CheckoutService) Orders(ctx context.Context, callerID uint, limit, offset int) ([]repo.OrderDetail, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.Repo.OrdersByUser(ctx, callerID, limit, offset)
}

func requireRole(role, want string) error {
	if role != want {
		return fmt.Errorf("%w: role %s required", apperr.ErrForbidden, want)
	}
	return nil
}

func validateCheckout(req *CheckoutRequest) error {
	if len(req.ProductIDs) == 0 {
		return fmt.Errorf("%w: product ids required", apperr.ErrValidation)
	}
	seen := make(map[uint]struct{}, len(req.ProductIDs))
	for _, id := range req.ProductIDs {
		if id == 0 {
			return fmt.Errorf("%w: product id must be positive", apperr.ErrValidation)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate product id %d", apperr.ErrValidation, id)
		}
		seen[id] = struct{}{}
	}
	if req.Card.Number == "" || req.Card.CVC == "" || req.Card.ExpMonth == 0 || req.Card.ExpYear == 0 {
		return fmt.Errorf("%w: card details required", apperr.ErrValidation)
	}
	if req.RecipientName == "" || req.Address1 == "" || req.Carrier == "" {
		return fmt.Errorf("%w: shipping details required", apperr.ErrValidation)
	}
	if req.Currency == "" {
		req.Currency = "usd"
	}
	return nil
}

func (s *CheckoutService) publishOrderCreated(ctx context.Context, order *models.Order) {
	if s.Producer == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	event := map[string]any{
		"type":    "order_created",
		"orderID": order.ID,
		"userID":  order.UserID,
		"total":   order.TotalPrice,
		"itemQty": len(order.Items),
	}
	if err := s.Producer.PublishEvent(pubCtx, "order_events", fmt.Sprint(order.UserID), event); err != nil {
		logging.FromContext(ctx).Error("event publish failed", "topic", "order_events", "error", err)
	}
}

func (s *CheckoutService) countCheckout(outcome string) {
	if s.Metrics != nil {
		s.Metrics.CheckoutAttempts.WithLabelValues(outcome).Inc()
	}
}
