package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/catalog"
)

// CreateCategoryRequest represents a request to create a category.
type CreateCategoryRequest struct {
	Slug        string     `json:"slug" binding:"required,slug"`
	Name        string     `json:"name" binding:"required,min=1,max=100"`
	Description string     `json:"description" binding:"max=2000"`
	ParentID    *uuid.UUID `json:"parent_id"`
	SortOrder   *int       `json:"sort_order"`
}

// UpdateCategoryRequest represents a request to update a category.
type UpdateCategoryRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	SortOrder   *int    `json:"sort_order"`
}

// MoveCategoryRequest represents a request to re-parent a category.
// A nil parent moves the category to the root.
type MoveCategoryRequest struct {
	ParentID *uuid.UUID `json:"parent_id"`
}

// CategoryListFilter represents filter options for category listing.
type CategoryListFilter struct {
	Search   string     `form:"search"`
	Status   string     `form:"status" binding:"omitempty,oneof=active inactive"`
	ParentID *uuid.UUID `form:"parent_id"`
	Page     int        `form:"page" binding:"omitempty,min=1"`
	PageSize int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string     `form:"order_by"`
	OrderDir string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// CategoryResponse represents a category in API responses.
type CategoryResponse struct {
	ID          uuid.UUID  `json:"id"`
	Slug        string     `json:"slug"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	Path        string     `json:"path"`
	Level       int        `json:"level"`
	SortOrder   int        `json:"sort_order"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Version     int        `json:"version"`
}

// CategoryTreeNode is a category with its children nested.
type CategoryTreeNode struct {
	CategoryResponse
	Children []CategoryTreeNode `json:"children"`
}

// CategoryPriceResponse is the subtree average-price report for a category.
type CategoryPriceResponse struct {
	CategoryID   uuid.UUID       `json:"category_id"`
	AveragePrice decimal.Decimal `json:"average_price"`
	ProductCount int64           `json:"product_count"`
}

// ToCategoryResponse converts a domain Category to CategoryResponse.
func ToCategoryResponse(c *catalog.Category) *CategoryResponse {
	return &CategoryResponse{
		ID:          c.ID,
		Slug:        c.Slug,
		Name:        c.Name,
		Description: c.Description,
		ParentID:    c.ParentID,
		Path:        c.Path,
		Level:       c.Level,
		SortOrder:   c.SortOrder,
		Status:      string(c.Status),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		Version:     c.Version,
	}
}

// ToCategoryResponses converts a slice of domain Categories.
func ToCategoryResponses(categories []catalog.Category) []CategoryResponse {
	responses := make([]CategoryResponse, len(categories))
	for i := range categories {
		responses[i] = *ToCategoryResponse(&categories[i])
	}
	return responses
}

// CreateProductRequest represents a request to create a product.
type CreateProductRequest struct {
	SKU               string           `json:"sku" binding:"required,min=1,max=50"`
	Name              string           `json:"name" binding:"required,min=1,max=200"`
	Description       string           `json:"description" binding:"max=5000"`
	CategoryID        uuid.UUID        `json:"category_id" binding:"required"`
	Price             decimal.Decimal  `json:"price" binding:"required"`
	CostPrice         *decimal.Decimal `json:"cost_price"`
	StockQuantity     *int             `json:"stock_quantity"`
	LowStockThreshold *int             `json:"low_stock_threshold"`
	Featured          bool             `json:"featured"`
}

// UpdateProductRequest represents a request to update a product.
type UpdateProductRequest struct {
	Name              *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Description       *string          `json:"description" binding:"omitempty,max=5000"`
	CategoryID        *uuid.UUID       `json:"category_id"`
	Price             *decimal.Decimal `json:"price"`
	CostPrice         *decimal.Decimal `json:"cost_price"`
	LowStockThreshold *int             `json:"low_stock_threshold"`
}

// AdjustStockRequest represents an inventory movement.
type AdjustStockRequest struct {
	Quantity int    `json:"quantity" binding:"required"`
	Reason   string `json:"reason" binding:"max=200"`
}

// BulkPriceUpdateRequest adjusts prices of all products in a category
// subtree. Exactly one of Percentage or FixedDelta must be set.
type BulkPriceUpdateRequest struct {
	CategoryID uuid.UUID        `json:"category_id" binding:"required"`
	Percentage *decimal.Decimal `json:"percentage"`
	FixedDelta *decimal.Decimal `json:"fixed_delta"`
}

// BulkPriceUpdateResponse reports how many products were updated.
type BulkPriceUpdateResponse struct {
	UpdatedCount int `json:"updated_count"`
}

// ProductListFilter represents filter options for product listing.
type ProductListFilter struct {
	Search         string     `form:"search"`
	Status         string     `form:"status" binding:"omitempty,oneof=active inactive discontinued"`
	CategoryID     *uuid.UUID `form:"category_id"`
	IncludeSubtree bool       `form:"include_subtree"`
	Featured       *bool      `form:"featured"`
	MinPrice       *float64   `form:"min_price"`
	MaxPrice       *float64   `form:"max_price"`
	Page           int        `form:"page" binding:"omitempty,min=1"`
	PageSize       int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy        string     `form:"order_by"`
	OrderDir       string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ProductResponse represents a product in API responses.
type ProductResponse struct {
	ID                uuid.UUID       `json:"id"`
	SKU               string          `json:"sku"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	CategoryID        uuid.UUID       `json:"category_id"`
	Price             decimal.Decimal `json:"price"`
	CostPrice         decimal.Decimal `json:"cost_price"`
	StockQuantity     int             `json:"stock_quantity"`
	LowStockThreshold int             `json:"low_stock_threshold"`
	Featured          bool            `json:"featured"`
	Status            string          `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Version           int             `json:"version"`
}

// ProductListResponse is the compact list form of a product.
type ProductListResponse struct {
	ID            uuid.UUID       `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	CategoryID    uuid.UUID       `json:"category_id"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Featured      bool            `json:"featured"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ToProductResponse converts a domain Product to ProductResponse.
func ToProductResponse(p *catalog.Product) *ProductResponse {
	return &ProductResponse{
		ID:                p.ID,
		SKU:               p.SKU,
		Name:              p.Name,
		Description:       p.Description,
		CategoryID:        p.CategoryID,
		Price:             p.Price,
		CostPrice:         p.CostPrice,
		StockQuantity:     p.StockQuantity,
		LowStockThreshold: p.LowStockThreshold,
		Featured:          p.Featured,
		Status:            string(p.Status),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
		Version:           p.Version,
	}
}

// ToProductListResponse converts a domain Product to its list form.
func ToProductListResponse(p *catalog.Product) ProductListResponse {
	return ProductListResponse{
		ID:            p.ID,
		SKU:           p.SKU,
		Name:          p.Name,
		CategoryID:    p.CategoryID,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		Featured:      p.Featured,
		Status:        string(p.Status),
		CreatedAt:     p.CreatedAt,
	}
}

// ToProductListResponses converts a slice of domain Products.
func ToProductListResponses(products []catalog.Product) []ProductListResponse {
	responses := make([]ProductListResponse, len(products))
	for i := range products {
		responses[i] = ToProductListResponse(&products[i])
	}
	return responses
}

// RequestImageUploadRequest starts a presigned image upload.
type RequestImageUploadRequest struct {
	FileName    string `json:"file_name" binding:"required,max=255"`
	FileSize    int64  `json:"file_size" binding:"required,min=1"`
	ContentType string `json:"content_type" binding:"required"`
}

// ImageUploadResponse carries the presigned upload URL for the client.
type ImageUploadResponse struct {
	ImageID   uuid.UUID `json:"image_id"`
	UploadURL string    `json:"upload_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ImageResponse represents a product image in API responses.
type ImageResponse struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	Status      string    `json:"status"`
	FileName    string    `json:"file_name"`
	FileSize    int64     `json:"file_size"`
	ContentType string    `json:"content_type"`
	Primary     bool      `json:"primary"`
	SortOrder   int       `json:"sort_order"`
	DownloadURL string    `json:"download_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToImageResponse converts a domain ProductImage to ImageResponse.
func ToImageResponse(img *catalog.ProductImage) *ImageResponse {
	return &ImageResponse{
		ID:          img.ID,
		ProductID:   img.ProductID,
		Status:      string(img.Status),
		FileName:    img.FileName,
		FileSize:    img.FileSize,
		ContentType: img.ContentType,
		Primary:     img.Primary,
		SortOrder:   img.SortOrder,
		CreatedAt:   img.CreatedAt,
	}
}
