package product

import (
	"context"
	"errors"
	"fmt"

	"storefront/domain"
	"storefront/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ProductRepository contract interface
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id uint) (domain.Product, error)
	FindAll(ctx context.Context) ([]domain.Product, error)
	Update(ctx context.Context, product *domain.Product) error
	AdjustStock(ctx context.Context, id uint, delta int) error
	Delete(ctx context.Context, id uint) error
}

type ImageRepository interface {
	Upload(ctx context.Context, filename string, data []byte) (string, error)
	Delete(ctx context.Context, url string) error
}

type ImageUpload struct {
	Filename string
	Data     []byte
}

type ProductInput struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description"`
	Brand       string          `json:"brand"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"min=0"`
	Image       *ImageUpload    `json:"-"`
}

// ProductUpdate is a partial edit of the catalog fields. Nil fields keep
// their current value. Stock is not part of it, see RestockProduct.
type ProductUpdate struct {
	Name        *string          `json:"name" validate:"omitnil,min=1,max=200"`
	Description *string          `json:"description"`
	Brand       *string          `json:"brand"`
	Category    *string          `json:"category"`
	Price       *decimal.Decimal `json:"price"`
	Image       *ImageUpload     `json:"-"`
}

type productService struct {
	productRepo ProductRepository
	imageRepo   ImageRepository
	validate    *validator.Validate
}

func NewProductService(productRepo ProductRepository, imageRepo ImageRepository, validate *validator.Validate) *productService {
	return &productService{
		productRepo: productRepo,
		imageRepo:   imageRepo,
		validate:    validate,
	}
}

func (s *productService) GetAllProducts(ctx context.Context) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		logger.Error("context error when get all product")
		return nil, fmt.Errorf("context error: %w", err)
	}

	products, err := s.productRepo.FindAll(ctx)
	if err != nil {
		logger.Error("Failed to find all product", err)
		return nil, err
	}

	return products, nil
}

func (s *productService) GetProductByID(ctx context.Context, id uint) (domain.Product, error) {
	if id == 0 {
		return domain.Product{}, domain.NewMissingFieldsError("id")
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Error("failed to find product by id", err)
		}
		return domain.Product{}, err
	}

	return product, nil
}

func (s *productService) CreateProduct(ctx context.Context, in ProductInput) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		logger.Error("context error when create product")
		return domain.Product{}, fmt.Errorf("context error: %w", err)
	}

	if err := s.validateInput(in); err != nil {
		return domain.Product{}, err
	}

	product := domain.Product{
		Name:        in.Name,
		Description: in.Description,
		Brand:       in.Brand,
		Category:    in.Category,
		Price:       in.Price,
		Stock:       in.Stock,
	}

	uploaded, err := s.uploadImage(ctx, in.Image)
	if err != nil {
		return domain.Product{}, err
	}
	if uploaded != "" {
		product.Image = uploaded
	}

	if err := s.productRepo.Create(ctx, &product); err != nil {
		logger.Error("failed to create new product", err)
		s.discardImage(ctx, uploaded)
		return domain.Product{}, err
	}

	logger.Info("product created successfully", "product_id", product.ID)

	return product, nil
}

// UpdateProduct applies a partial edit of the catalog fields.
func (s *productService) UpdateProduct(ctx context.Context, id uint, in ProductUpdate) (domain.Product, error) {
	if id == 0 {
		return domain.Product{}, domain.NewMissingFieldsError("id")
	}

	if err := s.validate.Struct(in); err != nil {
		return domain.Product{}, domain.FromValidator(err)
	}
	if in.Price != nil && in.Price.IsNegative() {
		return domain.Product{}, domain.NewValidationError("price", "price must not be negative")
	}

	existing, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Error("failed to find product", err)
		}
		return domain.Product{}, err
	}

	uploaded, err := s.uploadImage(ctx, in.Image)
	if err != nil {
		return domain.Product{}, err
	}

	product := existing
	if in.Name != nil {
		product.Name = *in.Name
	}
	if in.Description != nil {
		product.Description = *in.Description
	}
	if in.Brand != nil {
		product.Brand = *in.Brand
	}
	if in.Category != nil {
		product.Category = *in.Category
	}
	if in.Price != nil {
		product.Price = *in.Price
	}
	if uploaded != "" {
		product.Image = uploaded
	}

	if err := s.productRepo.Update(ctx, &product); err != nil {
		logger.Error("failed to update product", err)
		s.discardImage(ctx, uploaded)
		return domain.Product{}, err
	}

	if uploaded != "" && existing.Image != "" {
		s.discardImage(ctx, existing.Image)
	}

	updated, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		logger.Error("failed to fetch updated product", err)
		return domain.Product{}, fmt.Errorf("failed to fetch updated product: %w", err)
	}

	logger.Info("product updated success", "product_id", id)

	return updated, nil
}

// RestockProduct adds delta units to the stock on hand. A negative delta
// writes stock off and fails with ErrInsufficientStock when fewer units are
// left.
func (s *productService) RestockProduct(ctx context.Context, id uint, delta int) (domain.Product, error) {
	if id == 0 {
		return domain.Product{}, domain.NewMissingFieldsError("id")
	}
	if delta == 0 {
		return domain.Product{}, domain.NewValidationError("delta", "delta must not be zero")
	}

	if err := s.productRepo.AdjustStock(ctx, id, delta); err != nil {
		if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrInsufficientStock) {
			logger.Error("failed to adjust stock", err)
		}
		return domain.Product{}, err
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		logger.Error("failed to fetch restocked product", err)
		return domain.Product{}, fmt.Errorf("failed to fetch restocked product: %w", err)
	}

	logger.Info("product restocked", "product_id", id, "delta", delta, "stock", product.Stock)

	return product, nil
}

func (s *productService) DeleteProduct(ctx context.Context, id uint) error {
	if id == 0 {
		return domain.NewMissingFieldsError("id")
	}

	existing, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.productRepo.Delete(ctx, id); err != nil {
		logger.Error("failed to delete product", err)
		return err
	}

	if existing.Image != "" {
		s.discardImage(ctx, existing.Image)
	}

	logger.Info("product deleted success", "product_id", id)

	return nil
}

func (s *productService) validateInput(in ProductInput) error {
	if err := s.validate.Struct(in); err != nil {
		return domain.FromValidator(err)
	}

	if in.Price.IsNegative() {
		return domain.NewValidationError("price", "price must not be negative")
	}

	return nil
}

func (s *productService) uploadImage(ctx context.Context, img *ImageUpload) (string, error) {
	if img == nil || len(img.Data) == 0 {
		return "", nil
	}

	url, err := s.imageRepo.Upload(ctx, img.Filename, img.Data)
	if err != nil {
		logger.Error("Failed to upload product image", err)
		return "", err
	}

	return url, nil
}

func (s *productService) discardImage(ctx context.Context, url string) {
	if url == "" {
		return
	}

	if err := s.imageRepo.Delete(context.WithoutCancel(ctx), url); err != nil {
		logger.Warn("Failed to delete product image", err, "url", url)
	}
}
