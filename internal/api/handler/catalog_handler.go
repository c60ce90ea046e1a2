package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
	"github.com/MrxHuang/alexandriaBackend/internal/core/ports"
)

const dateLayout = "2006-01-02"

type CatalogHandler struct {
	catalog ports.CatalogService
}

func NewCatalogHandler(catalog ports.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

type createAuthorRequest struct {
	FirstName   string `json:"first_name"  validate:"required"`
	LastName    string `json:"last_name"`
	Nationality string `json:"nationality"`
	BirthDate   string `json:"birth_date"  validate:"omitempty,datetime=2006-01-02"`
}

type createItemRequest struct {
	Title    string `json:"title"     validate:"required"`
	ISBN     string `json:"isbn"      validate:"required"`
	Year     int    `json:"year"      validate:"gte=0"`
	AuthorID int64  `json:"author_id" validate:"required,gt=0"`
}

// CreateAuthor handles POST /v1/authors.
//
// @Summary      Create an author
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createAuthorRequest  true  "Author"
// @Success      201   {object}  domain.Author
// @Failure      400   {object}  map[string]string
// @Router       /v1/authors [post]
func (h *CatalogHandler) CreateAuthor(c echo.Context) error {
	var req createAuthorRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	in := ports.CreateAuthorInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Nationality: req.Nationality,
	}
	if req.BirthDate != "" {
		d, err := time.Parse(dateLayout, req.BirthDate)
		if err != nil {
			return fmt.Errorf("%w: birth_date must be YYYY-MM-DD", domain.ErrInvalidInput)
		}
		in.BirthDate = &d
	}

	a, err := h.catalog.CreateAuthor(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

// GetAuthor handles GET /v1/authors/:id.
//
// @Summary      Get an author
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Author ID"
// @Success      200  {object}  domain.Author
// @Failure      404  {object}  map[string]string
// @Router       /v1/authors/{id} [get]
func (h *CatalogHandler) GetAuthor(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.catalog.GetAuthor(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// ListAuthorItems handles GET /v1/authors/:id/items.
//
// @Summary      Items by author
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Author ID"
// @Success      200  {array}   ports.ItemView
// @Failure      404  {object}  map[string]string
// @Router       /v1/authors/{id}/items [get]
func (h *CatalogHandler) ListAuthorItems(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	items, err := h.catalog.ListItemsByAuthor(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if items == nil {
		items = []ports.ItemView{}
	}
	return c.JSON(http.StatusOK, items)
}

// CreateItem handles POST /v1/items.
//
// @Summary      Create a catalog item
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createItemRequest  true  "Item"
// @Success      201   {object}  domain.CatalogItem
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /v1/items [post]
func (h *CatalogHandler) CreateItem(c echo.Context) error {
	var req createItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	item, err := h.catalog.CreateItem(c.Request().Context(), ports.CreateItemInput{
		Title:    req.Title,
		ISBN:     req.ISBN,
		Year:     req.Year,
		AuthorID: req.AuthorID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, item)
}

// GetItem handles GET /v1/items/:id.
//
// @Summary      Get a catalog item with its availability
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Item ID"
// @Success      200  {object}  ports.ItemView
// @Failure      404  {object}  map[string]string
// @Router       /v1/items/{id} [get]
func (h *CatalogHandler) GetItem(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	v, err := h.catalog.GetItem(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}
