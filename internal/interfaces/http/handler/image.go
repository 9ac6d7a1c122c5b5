package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	catalogapp "github.com/storefront/backend/internal/application/catalog"
)

// ImageHandler handles product image endpoints
type ImageHandler struct {
	BaseHandler
	imageService *catalogapp.ImageService
}

// NewImageHandler creates a new ImageHandler
func NewImageHandler(imageService *catalogapp.ImageService) *ImageHandler {
	return &ImageHandler{imageService: imageService}
}

// RequestUpload issues a presigned upload URL for a new product image
func (h *ImageHandler) RequestUpload(c *gin.Context) {
	productID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	var req catalogapp.RequestImageUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.imageService.RequestUpload(c.Request.Context(), productID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// ConfirmUpload marks an uploaded image as available
func (h *ImageHandler) ConfirmUpload(c *gin.Context) {
	productID, imageID, ok := h.imageIDs(c)
	if !ok {
		return
	}

	resp, err := h.imageService.ConfirmUpload(c.Request.Context(), productID, imageID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// List returns the confirmed images of a product
func (h *ImageHandler) List(c *gin.Context) {
	productID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	images, err := h.imageService.List(c.Request.Context(), productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, images)
}

// SetPrimary promotes an image to the product's primary image
func (h *ImageHandler) SetPrimary(c *gin.Context) {
	productID, imageID, ok := h.imageIDs(c)
	if !ok {
		return
	}

	resp, err := h.imageService.SetPrimary(c.Request.Context(), productID, imageID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Delete removes an image
func (h *ImageHandler) Delete(c *gin.Context) {
	productID, imageID, ok := h.imageIDs(c)
	if !ok {
		return
	}

	if err := h.imageService.Delete(c.Request.Context(), productID, imageID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

func (h *ImageHandler) imageIDs(c *gin.Context) (productID, imageID uuid.UUID, ok bool) {
	productID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return uuid.Nil, uuid.Nil, false
	}

	imageID, err = parseIDParam(c, "image_id")
	if err != nil {
		h.BadRequest(c, "Invalid image ID")
		return uuid.Nil, uuid.Nil, false
	}

	return productID, imageID, true
}
