package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

type createItemRequest struct {
	Name        string           `json:"name"`
	Price       *decimal.Decimal `json:"price"`
	StoreID     *int64           `json:"store_id"`
	Quantity    *int             `json:"quantity"`
	Description string           `json:"description"`
}

// updateItemRequest omits name, store_id and created_at; clients sending them are ignored.
type updateItemRequest struct {
	Price       *decimal.Decimal `json:"price"`
	Description *string          `json:"description"`
	Quantity    *int             `json:"quantity"`
}

// itemResponse renders the price as a JSON number.
type itemResponse struct {
	ID          int64       `json:"id"`
	StoreID     int64       `json:"store_id"`
	Name        string      `json:"name"`
	Price       json.Number `json:"price"`
	Description string      `json:"description"`
	Quantity    int         `json:"quantity"`
	CreatedAt   time.Time   `json:"created_at"`
}

func newItemResponse(item domain.Item) itemResponse {
	return itemResponse{
		ID:          item.ID,
		StoreID:     item.StoreID,
		Name:        item.Name,
		Price:       json.Number(item.Price.String()),
		Description: item.Description,
		Quantity:    item.Quantity,
		CreatedAt:   item.CreatedAt,
	}
}

func newItemResponses(items []domain.Item) []itemResponse {
	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, newItemResponse(item))
	}
	return out
}

type paginationResponse struct {
	NextCursor *string `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
	PageSize   int     `json:"page_size"`
}

type itemListResponse struct {
	Items      []itemResponse     `json:"items"`
	Pagination paginationResponse `json:"pagination"`
}

func (h *HTTPHandler) CreateItem(c *gin.Context) {
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeMessage(c, http.StatusBadRequest, "Invalid JSON")
		return
	}

	switch {
	case req.Name == "":
		writeMessage(c, http.StatusBadRequest, "Item name is required")
		return
	case req.Price == nil:
		writeMessage(c, http.StatusBadRequest, "Item price is required")
		return
	case req.StoreID == nil:
		writeMessage(c, http.StatusBadRequest, "A store_id is required")
		return
	}

	in := service.CreateItemInput{
		Name:        req.Name,
		Price:       *req.Price,
		StoreID:     *req.StoreID,
		Description: req.Description,
	}
	if req.Quantity != nil {
		in.Quantity = *req.Quantity
	}

	item, err := h.svc.Inventory.CreateItem(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": item.ID})
}

func (h *HTTPHandler) GetItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		h.writeError(c, domain.ErrItemNotFound)
		return
	}

	item, err := h.svc.Inventory.GetItem(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, newItemResponse(item))
}

func (h *HTTPHandler) ListItems(c *gin.Context) {
	query := domain.ItemQuery{Cursor: c.Query("cursor")}

	if v := c.Query("store_id"); v != "" {
		storeID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeMessage(c, http.StatusBadRequest, "Invalid store_id")
			return
		}
		query.StoreID = storeID
	}
	if v := c.Query("page_size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 {
			writeMessage(c, http.StatusBadRequest, "Invalid page_size")
			return
		}
		query.PageSize = size
	}
	if v := c.Query("reverse"); v != "" {
		reverse, err := strconv.ParseBool(v)
		if err != nil {
			writeMessage(c, http.StatusBadRequest, "Invalid reverse flag")
			return
		}
		query.Reverse = reverse
	}
	query = query.Normalize()

	page, err := h.svc.Inventory.ListItems(c.Request.Context(), query)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := itemListResponse{
		Items: newItemResponses(page.Items),
		Pagination: paginationResponse{
			HasMore:  page.HasMore,
			PageSize: query.PageSize,
		},
	}
	if page.HasMore {
		resp.Pagination.NextCursor = &page.NextCursor
	}

	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) BuyItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		h.writeError(c, domain.ErrItemNotFound)
		return
	}

	item, _, err := h.svc.Consumption.Consume(c.Request.Context(), id, currentPrincipal(c).UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, newItemResponse(item))
}

func (h *HTTPHandler) UpdateItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		h.writeError(c, domain.ErrItemNotFound)
		return
	}

	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeMessage(c, http.StatusBadRequest, "Invalid JSON")
		return
	}

	item, err := h.svc.Inventory.UpdateItem(c.Request.Context(), id, domain.ItemPatch{
		Price:       req.Price,
		Description: req.Description,
		Quantity:    req.Quantity,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, newItemResponse(item))
}
