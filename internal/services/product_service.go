package services

import (
	"context"
	"log"
	"strings"

	"ocha/internal/apperr"
	"ocha/internal/events"
	"ocha/internal/models"
	"ocha/internal/repositories"
	"ocha/internal/validation"

	"github.com/shopspring/decimal"
)

// ProductInput carries a create or partial update. Nil fields are left alone.
type ProductInput struct {
	Slug          *string                `json:"slug"`
	Name          *string                `json:"name"`
	Category      *string                `json:"category"`
	Description   *string                `json:"description"`
	BasePrice     *decimal.Decimal       `json:"base_price"`
	IsActive      *bool                  `json:"is_active"`
	Image         *string                `json:"image"`
	Sizes         *models.SizeSet        `json:"sizes"`
	SizeSurcharge *models.SurchargeTable `json:"size_surcharge"`
}

// ProductPage is one page of the catalog.
type ProductPage struct {
	Page          int              `json:"page"`
	TotalPages    int              `json:"totalPages"`
	TotalProducts int64            `json:"totalProducts"`
	Products      []models.Product `json:"products"`
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo     repositories.ProductRepository
	validate *validation.Validator
	sink     events.Sink
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, validate *validation.Validator, sink events.Sink) *ProductService {
	if sink == nil {
		sink = events.Nop{}
	}
	return &ProductService{
		repo:     repo,
		validate: validate,
		sink:     sink,
	}
}

// GetAllProducts retrieves one page of products, optionally only active ones.
func (s *ProductService) GetAllProducts(ctx context.Context, activeOnly bool, page repositories.Page) (*ProductPage, error) {
	products, total, err := s.repo.List(ctx, activeOnly, page)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	return &ProductPage{
		Page:          page.Number,
		TotalPages:    repositories.TotalPages(total, page.Limit),
		TotalProducts: total,
		Products:      products,
	}, nil
}

// GetActiveProducts returns every product currently on sale.
func (s *ProductService) GetActiveProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateProduct creates a new product. Sizes, surcharges and is_active get
// their defaults when left out.
func (s *ProductService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	switch {
	case in.Slug == nil || *in.Slug == "":
		return nil, apperr.MissingField("slug")
	case in.Name == nil || *in.Name == "":
		return nil, apperr.MissingField("name")
	case in.Category == nil || *in.Category == "":
		return nil, apperr.MissingField("category")
	case in.Description == nil || *in.Description == "":
		return nil, apperr.MissingField("description")
	case in.BasePrice == nil:
		return nil, apperr.MissingField("base_price")
	case in.Image == nil || *in.Image == "":
		return nil, apperr.MissingField("image")
	}

	product := &models.Product{IsActive: true}
	applyProductInput(product, in)
	product.ApplyDefaults()
	if err := s.validate.Struct(product); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}

	if err := s.sink.Publish(ctx, events.Event{Type: events.TypeProductCreated, Subject: product.ID, Payload: product}); err != nil {
		log.Printf("Warning: failed to publish product created event for %s: %v", product.ID, err)
	}
	return product, nil
}

// UpdateProduct applies a partial update to an existing product.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, in ProductInput) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	applyProductInput(product, in)
	product.ApplyDefaults()
	if err := s.validate.Struct(product); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct deletes a product by its ID. Past orders keep their snapshots.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func applyProductInput(p *models.Product, in ProductInput) {
	if in.Slug != nil {
		p.Slug = strings.TrimSpace(*in.Slug)
	}
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Category != nil {
		p.Category = strings.TrimSpace(*in.Category)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.BasePrice != nil {
		p.BasePrice = in.BasePrice.Round(2)
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if in.Image != nil {
		p.Image = *in.Image
	}
	if in.Sizes != nil {
		p.Sizes = *in.Sizes
	}
	if in.SizeSurcharge != nil {
		p.SizeSurcharge = *in.SizeSurcharge
	}
}
