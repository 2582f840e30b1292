package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"storefront/business/product"
	"storefront/domain"

	"github.com/AMFarhan21/fres"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type ProductService interface {
	GetAllProducts(ctx context.Context) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id uint) (domain.Product, error)
	CreateProduct(ctx context.Context, in product.ProductInput) (domain.Product, error)
	UpdateProduct(ctx context.Context, id uint, in product.ProductUpdate) (domain.Product, error)
	RestockProduct(ctx context.Context, id uint, delta int) (domain.Product, error)
	DeleteProduct(ctx context.Context, id uint) error
}

type ProductHandler struct {
	productService ProductService
	timeout        time.Duration
}

func NewProductHandler(productService ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		timeout:        10 * time.Second,
	}
}

// ProductRequest is accepted as JSON or as a multipart form with an
// optional "image" file. Price may be sent as a number or a string.
type ProductRequest struct {
	Name        string      `json:"name" form:"name"`
	Description string      `json:"description" form:"description"`
	Brand       string      `json:"brand" form:"brand"`
	Category    string      `json:"category" form:"category"`
	Price       json.Number `json:"price" form:"price"`
	Stock       int         `json:"stock" form:"stock"`
}

// ProductUpdateRequest carries a partial edit. Absent fields are left
// unchanged. Stock moves only through the restock endpoint.
type ProductUpdateRequest struct {
	Name        *string      `json:"name"`
	Description *string      `json:"description"`
	Brand       *string      `json:"brand"`
	Category    *string      `json:"category"`
	Price       *json.Number `json:"price"`
	Stock       *int         `json:"stock"`
}

type RestockRequest struct {
	Delta int `json:"delta"`
}

func (h *ProductHandler) GetAllProducts(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	products, err := h.productService.GetAllProducts(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(products))
}

func (h *ProductHandler) GetProductByID(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	p, err := h.productService.GetProductByID(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(p))
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	in, err := h.productInput(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	created, err := h.productService.CreateProduct(ctx, in)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(created))
}

func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	in, err := h.productUpdate(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	updated, err := h.productService.UpdateProduct(ctx, id, in)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(updated))
}

func (h *ProductHandler) RestockProduct(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req RestockRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	restocked, err := h.productService.RestockProduct(ctx, id, req.Delta)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(restocked))
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if err := h.productService.DeleteProduct(ctx, id); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK("Product deleted successfully"))
}

func (h *ProductHandler) productInput(c echo.Context) (product.ProductInput, error) {
	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return product.ProductInput{}, echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	if req.Price == "" {
		return product.ProductInput{}, domain.NewMissingFieldsError("price")
	}
	price, err := parsePrice(req.Price.String())
	if err != nil {
		return product.ProductInput{}, err
	}

	in := product.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Brand:       req.Brand,
		Category:    req.Category,
		Price:       price,
		Stock:       req.Stock,
	}

	filename, data, err := formImage(c)
	if err != nil {
		return product.ProductInput{}, err
	}
	if data != nil {
		in.Image = &product.ImageUpload{Filename: filename, Data: data}
	}

	return in, nil
}

// productUpdate reads a partial edit from JSON or from a multipart form,
// where only the fields present in the form are set.
func (h *ProductHandler) productUpdate(c echo.Context) (product.ProductUpdate, error) {
	var req ProductUpdateRequest
	if isMultipart(c) {
		form, err := c.FormParams()
		if err != nil {
			return product.ProductUpdate{}, echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
		}
		field := func(name string) *string {
			if v, ok := form[name]; ok && len(v) > 0 {
				return &v[0]
			}
			return nil
		}
		req.Name = field("name")
		req.Description = field("description")
		req.Brand = field("brand")
		req.Category = field("category")
		if v := field("price"); v != nil {
			n := json.Number(*v)
			req.Price = &n
		}
		if field("stock") != nil {
			req.Stock = new(int)
		}
	} else if err := c.Bind(&req); err != nil {
		return product.ProductUpdate{}, echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	if req.Stock != nil {
		return product.ProductUpdate{}, domain.NewValidationError("stock", "stock is changed through the restock endpoint")
	}

	in := product.ProductUpdate{
		Name:        req.Name,
		Description: req.Description,
		Brand:       req.Brand,
		Category:    req.Category,
	}
	if req.Price != nil {
		price, err := parsePrice(req.Price.String())
		if err != nil {
			return product.ProductUpdate{}, err
		}
		in.Price = &price
	}

	filename, data, err := formImage(c)
	if err != nil {
		return product.ProductUpdate{}, err
	}
	if data != nil {
		in.Image = &product.ImageUpload{Filename: filename, Data: data}
	}

	return in, nil
}

func parsePrice(s string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, domain.NewValidationError("price", "price must be a number")
	}
	return price, nil
}
