package catalog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
)

func newImageService(imageRepo *MockImageRepository, productRepo *MockProductRepository, storage *MockObjectStorage) *ImageService {
	return NewImageService(imageRepo, productRepo, storage, zap.NewNop())
}

func TestImageService_RequestUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending record and presigns upload", func(t *testing.T) {
		imageRepo := new(MockImageRepository)
		productRepo := new(MockProductRepository)
		storage := new(MockObjectStorage)
		svc := newImageService(imageRepo, productRepo, storage)

		product := mustProduct(t, "PHONE-1", "Phone", uuid.New(), "199.99")
		expires := time.Now().Add(15 * time.Minute)

		productRepo.On("FindByID", ctx, product.ID).Return(product, nil)
		storage.On("GenerateUploadURL", ctx, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "products/"+product.ID.String()+"/") &&
				strings.HasSuffix(key, ".jpg")
		}), "image/jpeg", uploadURLExpiry).Return("https://storage.example.com/put", expires, nil)
		imageRepo.On("Save", ctx, mock.AnythingOfType("*catalog.ProductImage")).Return(nil)

		resp, err := svc.RequestUpload(ctx, product.ID, RequestImageUploadRequest{
			FileName:    "front.JPG",
			FileSize:    1024,
			ContentType: "image/jpeg",
		})
		require.NoError(t, err)
		assert.Equal(t, "https://storage.example.com/put", resp.UploadURL)
		assert.NotEqual(t, uuid.Nil, resp.ImageID)
	})

	t.Run("rejects non-image content type", func(t *testing.T) {
		imageRepo := new(MockImageRepository)
		productRepo := new(MockProductRepository)
		svc := newImageService(imageRepo, productRepo, new(MockObjectStorage))

		product := mustProduct(t, "PHONE-1", "Phone", uuid.New(), "199.99")
		productRepo.On("FindByID", ctx, product.ID).Return(product, nil)

		_, err := svc.RequestUpload(ctx, product.ID, RequestImageUploadRequest{
			FileName:    "notes.txt",
			FileSize:    10,
			ContentType: "text/plain",
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_CONTENT_TYPE", domainErr.Code)
	})
}

func TestImageService_ConfirmUpload(t *testing.T) {
	ctx := context.Background()
	productID := uuid.New()

	newPendingImage := func(t *testing.T) *catalog.ProductImage {
		img, err := catalog.NewProductImage(productID, "front.jpg", 1024, "image/jpeg",
			"products/"+productID.String()+"/"+uuid.NewString()+".jpg")
		require.NoError(t, err)
		return img
	}

	t.Run("first confirmed image becomes primary", func(t *testing.T) {
		imageRepo := new(MockImageRepository)
		storage := new(MockObjectStorage)
		svc := newImageService(imageRepo, new(MockProductRepository), storage)

		img := newPendingImage(t)
		imageRepo.On("FindByID", ctx, img.ID).Return(img, nil)
		storage.On("ObjectExists", ctx, img.StorageKey).Return(true, nil)
		imageRepo.On("FindPrimary", ctx, productID).Return(nil, shared.ErrNotFound)
		imageRepo.On("Save", ctx, img).Return(nil)

		resp, err := svc.ConfirmUpload(ctx, productID, img.ID)
		require.NoError(t, err)
		assert.Equal(t, string(catalog.ImageStatusActive), resp.Status)
		assert.True(t, resp.Primary)
	})

	t.Run("missing object rejects confirmation", func(t *testing.T) {
		imageRepo := new(MockImageRepository)
		storage := new(MockObjectStorage)
		svc := newImageService(imageRepo, new(MockProductRepository), storage)

		img := newPendingImage(t)
		imageRepo.On("FindByID", ctx, img.ID).Return(img, nil)
		storage.On("ObjectExists", ctx, img.StorageKey).Return(false, nil)

		_, err := svc.ConfirmUpload(ctx, productID, img.ID)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "UPLOAD_NOT_FOUND", domainErr.Code)
	})

	t.Run("image of another product is not found", func(t *testing.T) {
		imageRepo := new(MockImageRepository)
		svc := newImageService(imageRepo, new(MockProductRepository), new(MockObjectStorage))

		img := newPendingImage(t)
		imageRepo.On("FindByID", ctx, img.ID).Return(img, nil)

		_, err := svc.ConfirmUpload(ctx, uuid.New(), img.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestImageService_Delete(t *testing.T) {
	ctx := context.Background()
	productID := uuid.New()

	t.Run("deletes record even when object removal fails", func(t *testing.T) {
		imageRepo := new(MockImageRepository)
		storage := new(MockObjectStorage)
		svc := newImageService(imageRepo, new(MockProductRepository), storage)

		img, err := catalog.NewProductImage(productID, "front.jpg", 1024, "image/jpeg",
			"products/"+productID.String()+"/x.jpg")
		require.NoError(t, err)

		imageRepo.On("FindByID", ctx, img.ID).Return(img, nil)
		storage.On("DeleteObject", ctx, img.StorageKey).Return(assertAnError())
		imageRepo.On("Delete", ctx, img.ID).Return(nil)

		require.NoError(t, svc.Delete(ctx, productID, img.ID))
		imageRepo.AssertExpectations(t)
	})
}

func assertAnError() error {
	return shared.NewDomainError("STORAGE_ERROR", "object store unavailable")
}
