package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
)

// ObjectStorageService abstracts the S3-compatible store used for product
// images.
type ObjectStorageService interface {
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
	DeleteObject(ctx context.Context, storageKey string) error
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
}

const (
	uploadURLExpiry   = 15 * time.Minute
	downloadURLExpiry = 1 * time.Hour
)

// ImageService handles product image uploads through presigned URLs.
// An upload is a three-step flow: request (pending record + upload URL),
// client PUT against the URL, confirm (verify the object and activate).
type ImageService struct {
	imageRepo   catalog.ProductImageRepository
	productRepo catalog.ProductRepository
	storage     ObjectStorageService
	logger      *zap.Logger
}

// NewImageService creates a new ImageService.
func NewImageService(
	imageRepo catalog.ProductImageRepository,
	productRepo catalog.ProductRepository,
	storage ObjectStorageService,
	logger *zap.Logger,
) *ImageService {
	return &ImageService{
		imageRepo:   imageRepo,
		productRepo: productRepo,
		storage:     storage,
		logger:      logger,
	}
}

// RequestUpload creates a pending image record and returns a presigned
// upload URL for the client.
func (s *ImageService) RequestUpload(ctx context.Context, productID uuid.UUID, req RequestImageUploadRequest) (*ImageUploadResponse, error) {
	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		return nil, err
	}

	imageID := uuid.New()
	storageKey := buildStorageKey(productID, imageID, req.FileName)

	image, err := catalog.NewProductImage(productID, req.FileName, req.FileSize, req.ContentType, storageKey)
	if err != nil {
		return nil, err
	}
	image.ID = imageID

	uploadURL, expiresAt, err := s.storage.GenerateUploadURL(ctx, storageKey, req.ContentType, uploadURLExpiry)
	if err != nil {
		return nil, err
	}

	if err := s.imageRepo.Save(ctx, image); err != nil {
		return nil, err
	}

	return &ImageUploadResponse{
		ImageID:   image.ID,
		UploadURL: uploadURL,
		ExpiresAt: expiresAt,
	}, nil
}

// ConfirmUpload verifies the object landed in storage and activates the
// image. The product's first confirmed image becomes primary.
func (s *ImageService) ConfirmUpload(ctx context.Context, productID, imageID uuid.UUID) (*ImageResponse, error) {
	image, err := s.findProductImage(ctx, productID, imageID)
	if err != nil {
		return nil, err
	}

	exists, err := s.storage.ObjectExists(ctx, image.StorageKey)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, shared.NewDomainError("UPLOAD_NOT_FOUND", "No uploaded object found for this image")
	}

	if err := image.Confirm(); err != nil {
		return nil, err
	}

	primary, err := s.imageRepo.FindPrimary(ctx, productID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if primary == nil {
		image.MarkPrimary()
	}

	if err := s.imageRepo.Save(ctx, image); err != nil {
		return nil, err
	}

	return ToImageResponse(image), nil
}

// List returns a product's images with fresh download URLs for the
// active ones.
func (s *ImageService) List(ctx context.Context, productID uuid.UUID) ([]ImageResponse, error) {
	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		return nil, err
	}

	images, err := s.imageRepo.FindByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	responses := make([]ImageResponse, 0, len(images))
	for i := range images {
		resp := ToImageResponse(&images[i])
		if images[i].Status == catalog.ImageStatusActive {
			url, _, err := s.storage.GenerateDownloadURL(ctx, images[i].StorageKey, downloadURLExpiry)
			if err != nil {
				s.logger.Warn("failed to presign download URL",
					zap.String("storage_key", images[i].StorageKey),
					zap.Error(err))
			} else {
				resp.DownloadURL = url
			}
		}
		responses = append(responses, *resp)
	}

	return responses, nil
}

// SetPrimary makes the image the product's lead image and clears the flag
// from the previous one.
func (s *ImageService) SetPrimary(ctx context.Context, productID, imageID uuid.UUID) (*ImageResponse, error) {
	image, err := s.findProductImage(ctx, productID, imageID)
	if err != nil {
		return nil, err
	}
	if image.Status != catalog.ImageStatusActive {
		return nil, shared.NewDomainError("IMAGE_NOT_CONFIRMED", "Only confirmed images can be primary")
	}

	current, err := s.imageRepo.FindPrimary(ctx, productID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if current != nil && current.ID != image.ID {
		current.ClearPrimary()
		if err := s.imageRepo.Save(ctx, current); err != nil {
			return nil, err
		}
	}

	image.MarkPrimary()
	if err := s.imageRepo.Save(ctx, image); err != nil {
		return nil, err
	}

	return ToImageResponse(image), nil
}

// Delete removes the image record and its stored object. A missing object
// is not an error; the record always goes.
func (s *ImageService) Delete(ctx context.Context, productID, imageID uuid.UUID) error {
	image, err := s.findProductImage(ctx, productID, imageID)
	if err != nil {
		return err
	}

	if err := s.storage.DeleteObject(ctx, image.StorageKey); err != nil {
		s.logger.Warn("failed to delete stored object",
			zap.String("storage_key", image.StorageKey),
			zap.Error(err))
	}

	return s.imageRepo.Delete(ctx, image.ID)
}

func (s *ImageService) findProductImage(ctx context.Context, productID, imageID uuid.UUID) (*catalog.ProductImage, error) {
	image, err := s.imageRepo.FindByID(ctx, imageID)
	if err != nil {
		return nil, err
	}
	if image.ProductID != productID {
		return nil, shared.ErrNotFound
	}
	return image, nil
}

// buildStorageKey places objects under products/{productID}/{imageID}{ext}.
func buildStorageKey(productID, imageID uuid.UUID, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return "products/" + productID.String() + "/" + imageID.String() + ext
}

func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
