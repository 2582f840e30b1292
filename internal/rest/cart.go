package rest

import (
	"context"
	"net/http"
	"time"

	"storefront/domain"

	"github.com/AMFarhan21/fres"
	"github.com/labstack/echo/v4"
)

type CartService interface {
	AddItem(ctx context.Context, userID, productID uint, qty int) (domain.CartItem, error)
	SetQuantity(ctx context.Context, userID, productID uint, qty int) (domain.CartItem, error)
	RemoveItem(ctx context.Context, userID, productID uint) error
	GetCart(ctx context.Context, userID uint) ([]domain.CartItem, error)
	ClearCart(ctx context.Context, userID uint) error
}

type CartHandler struct {
	cartService CartService
	timeout     time.Duration
}

func NewCartHandler(cartService CartService) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		timeout:     10 * time.Second,
	}
}

type AddCartItemRequest struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) GetCart(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	items, err := h.cartService.GetCart(ctx, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(items))
}

func (h *CartHandler) AddItem(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req AddCartItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	item, err := h.cartService.AddItem(ctx, userID, req.ProductID, req.Quantity)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(item))
}

func (h *CartHandler) SetQuantity(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	productID, err := paramID(c, "productId")
	if err != nil {
		return err
	}

	var req SetQuantityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	item, err := h.cartService.SetQuantity(ctx, userID, productID, req.Quantity)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(item))
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	productID, err := paramID(c, "productId")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if err := h.cartService.RemoveItem(ctx, userID, productID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK("Item removed from cart"))
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if err := h.cartService.ClearCart(ctx, userID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK("Cart cleared"))
}
