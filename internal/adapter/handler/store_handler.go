package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rl1809/storefront/internal/core/domain"
)

type createStoreRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type storeDetailsResponse struct {
	domain.Store
	Items []itemResponse `json:"items"`
}

// updateStoreRequest omits name and created_at; clients sending them are ignored.
type updateStoreRequest struct {
	Description *string `json:"description"`
}

func (h *HTTPHandler) CreateStore(c *gin.Context) {
	var req createStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeMessage(c, http.StatusBadRequest, "Invalid JSON")
		return
	}

	store, err := h.svc.Inventory.CreateStore(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": store.ID})
}

func (h *HTTPHandler) GetStore(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		h.writeError(c, domain.ErrStoreNotFound)
		return
	}

	details, err := h.svc.Inventory.GetStoreDetails(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, storeDetailsResponse{
		Store: details.Store,
		Items: newItemResponses(details.Items),
	})
}

func (h *HTTPHandler) UpdateStore(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		h.writeError(c, domain.ErrStoreNotFound)
		return
	}

	var req updateStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeMessage(c, http.StatusBadRequest, "Invalid JSON")
		return
	}

	store, err := h.svc.Inventory.UpdateStore(c.Request.Context(), id, domain.StorePatch{Description: req.Description})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, store)
}
