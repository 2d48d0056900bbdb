package transport

import (
	"net/http"

	"github.com/ds124wfegd/WB_L3/catering/internal/service"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	catalogService service.CatalogService
}

func NewCatalogHandler(catalogService service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

func (h *CatalogHandler) GetCatalog(c *gin.Context) {
	items, err := h.catalogService.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, items)
}

func (h *CatalogHandler) UpsertItem(c *gin.Context) {
	if _, ok := actor(c); !ok {
		return
	}
	var req service.CatalogItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	item, err := h.catalogService.Upsert(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, item)
}

func (h *CatalogHandler) DeleteItem(c *gin.Context) {
	if _, ok := actor(c); !ok {
		return
	}
	if err := h.catalogService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
