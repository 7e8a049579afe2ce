package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/SecondList/EcommerceAPI/internal/jwtmiddleware"
	"github.com/SecondList/EcommerceAPI/internal/service"
	"github.com/SecondList/EcommerceAPI/internal/stripe"
)

type CheckoutHandler struct {
	Checkout *service.CheckoutService
}

type checkoutRequest struct {
	ProductIDs    []uint `json:"product_ids"`
	Currency      string `json:"currency"`
	ReceiptEmail  string `json:"receipt_email"`
	Description   string `json:"description"`
	CardName      string `json:"card_name"`
	CardNumber    string `json:"card_number"`
	ExpMonth      int    `json:"exp_month"`
	ExpYear       int    `json:"exp_year"`
	CVC           string `json:"cvc"`
	RecipientName string `json:"recipient_name"`
	Phone         string `json:"phone"`
	Address1      string `json:"address1"`
	Address2      string `json:"address2"`
	City          string `json:"city"`
	State         string `json:"state"`
	PostalCode    string `json:"postal_code"`
	Country       string `json:"country"`
	Carrier       string `json:"carrier"`
}

func (h *CheckoutHandler) PostCheckout(c echo.Context) error {
	callerID, ok := jwtmiddleware.CallerID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing caller identity")
	}

	var req checkoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	order, err := h.Checkout.Checkout(c.Request().Context(), callerID, jwtmiddleware.CallerRole(c), service.CheckoutRequest{
		ProductIDs:   req.ProductIDs,
		Currency:     req.Currency,
		ReceiptEmail: req.ReceiptEmail,
		Description:  req.Description,
		Card: stripe.Card{
			Name:     req.CardName,
			Number:   req.CardNumber,
			ExpMonth: req.ExpMonth,
			ExpYear:  req.ExpYear,
			CVC:      req.CVC,
		},
		RecipientName: req.RecipientName,
		Phone:         req.Phone,
		Address1:      req.Address1,
		Address2:      req.Address2,
		City:          req.City,
		State:         req.State,
		PostalCode:    req.PostalCode,
		Country:       req.Country,
		Carrier:       req.Carrier,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Successfully checked out.",
		"order":   order,
	})
}

func (h *CheckoutHandler) GetOrders(c echo.Context) error {
	callerID, ok := jwtmiddleware.CallerID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing caller identity")
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	details, err := h.Checkout.Orders(c.Request().Context(), callerID, limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, details)
}
