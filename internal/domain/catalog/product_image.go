package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// MaxImageFileSize is the maximum allowed image size (10MB).
const MaxImageFileSize = 10 * 1024 * 1024

// ImageStatus represents the lifecycle of a product image. Images start
// pending while the client uploads against a presigned URL and become
// active once the upload is confirmed.
type ImageStatus string

const (
	ImageStatusPending ImageStatus = "pending"
	ImageStatusActive  ImageStatus = "active"
)

// ProductImage is a stored image belonging to a product.
type ProductImage struct {
	shared.BaseAggregateRoot
	ProductID   uuid.UUID   `gorm:"type:uuid;not null;index"`
	Status      ImageStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	FileName    string      `gorm:"type:varchar(255);not null"`
	FileSize    int64       `gorm:"not null"`
	ContentType string      `gorm:"type:varchar(100);not null"`
	StorageKey  string      `gorm:"type:varchar(500);not null;uniqueIndex"`
	Primary     bool        `gorm:"not null;default:false"`
	SortOrder   int         `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM.
func (ProductImage) TableName() string {
	return "product_images"
}

// NewProductImage creates a pending image record for an upcoming upload.
func NewProductImage(productID uuid.UUID, fileName string, fileSize int64, contentType, storageKey string) (*ProductImage, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT_ID", "Product ID cannot be empty")
	}
	if fileName == "" || len(fileName) > 255 {
		return nil, shared.NewDomainError("INVALID_FILE_NAME", "File name must be 1-255 characters")
	}
	if strings.Contains(fileName, "/") || strings.Contains(fileName, "\\") {
		return nil, shared.NewDomainError("INVALID_FILE_NAME", "File name cannot contain path separators")
	}
	if fileSize <= 0 || fileSize > MaxImageFileSize {
		return nil, shared.NewDomainError("INVALID_FILE_SIZE", "File size must be positive and at most 10MB")
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, shared.NewDomainError("INVALID_CONTENT_TYPE", "Only image content types are allowed")
	}
	if storageKey == "" {
		return nil, shared.NewDomainError("INVALID_STORAGE_KEY", "Storage key cannot be empty")
	}

	return &ProductImage{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         productID,
		Status:            ImageStatusPending,
		FileName:          fileName,
		FileSize:          fileSize,
		ContentType:       contentType,
		StorageKey:        storageKey,
	}, nil
}

// Confirm activates the image after the client finished uploading.
func (i *ProductImage) Confirm() error {
	if i.Status == ImageStatusActive {
		return shared.NewDomainError("ALREADY_CONFIRMED", "Image is already confirmed")
	}

	i.Status = ImageStatusActive
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	return nil
}

// MarkPrimary makes this the product's lead image.
func (i *ProductImage) MarkPrimary() {
	i.Primary = true
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
}

// ClearPrimary removes the lead-image flag.
func (i *ProductImage) ClearPrimary() {
	i.Primary = false
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
}
