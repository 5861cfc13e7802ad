package handler

import (
	"dinedash-backend/internal/dto"
	"dinedash-backend/internal/service"
	"net/http"

	"github.com/labstack/echo/v4"
)

type MenuHandler struct {
	catalogService service.CatalogService
}

func NewMenuHandler(catalogService service.CatalogService) *MenuHandler {
	return &MenuHandler{
		catalogService: catalogService,
	}
}

func (h *MenuHandler) ListMenu(c echo.Context) error {
	ctx := c.Request().Context()

	items, err := h.catalogService.ListAvailable(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.MenuResponse{Items: items})
}
