package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"assetledger/internal/service"
)

// CatalogHandler 类别与物品目录 Handler
type CatalogHandler struct {
	catalog service.CatalogService
	logger  *zap.Logger
}

func NewCatalogHandler(catalog service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

func (h *CatalogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	// Categories
	case r.URL.Path == "/api/v1/categories" && r.Method == http.MethodGet:
		h.ListCategories(w, r)
	case r.URL.Path == "/api/v1/categories" && r.Method == http.MethodPost:
		h.CreateCategory(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/categories/") && r.Method == http.MethodGet:
		h.GetCategory(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/categories/") && r.Method == http.MethodPut:
		h.UpdateCategory(w, r)

	// Items
	case r.URL.Path == "/api/v1/items" && r.Method == http.MethodGet:
		h.ListItems(w, r)
	case r.URL.Path == "/api/v1/items" && r.Method == http.MethodPost:
		h.CreateItem(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/items/") && r.Method == http.MethodGet:
		h.GetItem(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/items/") && r.Method == http.MethodPut:
		h.UpdateItem(w, r)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func pathID(path, prefix string) string {
	id := strings.TrimPrefix(path, prefix)
	if i := strings.IndexByte(id, '/'); i >= 0 {
		id = id[:i]
	}
	return id
}

type createCategoryBody struct {
	Code             string  `json:"code"`
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	ParentCategoryID string  `json:"parent_category_id"`
	DepreciationRate float64 `json:"depreciation_rate"`
}

func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body createCategoryBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	id, err := h.catalog.CreateCategory(r.Context(), service.CreateCategoryRequest{
		Code:             body.Code,
		Name:             body.Name,
		Description:      body.Description,
		ParentCategoryID: body.ParentCategoryID,
		DepreciationRate: body.DepreciationRate,
		Actor:            actor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(map[string]string{"category_id": id}))
}

type updateCategoryBody struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	DepreciationRate *float64 `json:"depreciation_rate"`
	IsActive         *bool    `json:"is_active"`
}

func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body updateCategoryBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	err := h.catalog.UpdateCategory(r.Context(), service.UpdateCategoryRequest{
		CategoryID:       pathID(r.URL.Path, "/api/v1/categories/"),
		Name:             body.Name,
		Description:      body.Description,
		DepreciationRate: body.DepreciationRate,
		IsActive:         body.IsActive,
		Actor:            actor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	cat, err := h.catalog.GetCategory(r.Context(), pathID(r.URL.Path, "/api/v1/categories/"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(cat))
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.ListCategories(r.Context(), r.URL.Query().Get("active_only") == "true")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(cats))
}

type createItemBody struct {
	Code              string `json:"code"`
	Name              string `json:"name"`
	CategoryID        string `json:"category_id"`
	Description       string `json:"description"`
	AcctUnit          string `json:"acct_unit"`
	Specifications    string `json:"specifications"`
	DefaultLocationID string `json:"default_location_id"`
	ReorderLevel      int    `json:"reorder_level"`
	ReorderQuantity   int    `json:"reorder_quantity"`
}

func (h *CatalogHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body createItemBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	id, err := h.catalog.CreateItem(r.Context(), service.CreateItemRequest{
		Code:              body.Code,
		Name:              body.Name,
		CategoryID:        body.CategoryID,
		Description:       body.Description,
		AcctUnit:          body.AcctUnit,
		Specifications:    body.Specifications,
		DefaultLocationID: body.DefaultLocationID,
		ReorderLevel:      body.ReorderLevel,
		ReorderQuantity:   body.ReorderQuantity,
		Actor:             actor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(map[string]string{"item_id": id}))
}

type updateItemBody struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Specifications  string `json:"specifications"`
	ReorderLevel    *int   `json:"reorder_level"`
	ReorderQuantity *int   `json:"reorder_quantity"`
	IsActive        *bool  `json:"is_active"`
}

func (h *CatalogHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body updateItemBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	err := h.catalog.UpdateItem(r.Context(), service.UpdateItemRequest{
		ItemID:          pathID(r.URL.Path, "/api/v1/items/"),
		Name:            body.Name,
		Description:     body.Description,
		Specifications:  body.Specifications,
		ReorderLevel:    body.ReorderLevel,
		ReorderQuantity: body.ReorderQuantity,
		IsActive:        body.IsActive,
		Actor:           actor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

func (h *CatalogHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.catalog.GetItem(r.Context(), pathID(r.URL.Path, "/api/v1/items/"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(item))
}

func (h *CatalogHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.catalog.ListItems(r.Context(), service.ListItemsRequest{
		CategoryID: q.Get("category_id"),
		ActiveOnly: q.Get("active_only") == "true",
		Search:     q.Get("search"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(items))
}
