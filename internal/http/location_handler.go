package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"assetledger/internal/domain"
	"assetledger/internal/service"
)

// LocationHandler 位置树管理 Handler
type LocationHandler struct {
	locations service.LocationService
	logger    *zap.Logger
}

func NewLocationHandler(locations service.LocationService, logger *zap.Logger) *LocationHandler {
	return &LocationHandler{locations: locations, logger: logger}
}

// ServeHTTP 实现 http.Handler 接口
func (h *LocationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/locations" && r.Method == http.MethodGet:
		h.List(w, r)
	case r.URL.Path == "/api/v1/locations" && r.Method == http.MethodPost:
		h.Create(w, r)
	case strings.HasSuffix(r.URL.Path, "/children") && r.Method == http.MethodGet:
		h.Children(w, r)
	case strings.HasSuffix(r.URL.Path, "/custodian") && r.Method == http.MethodGet:
		h.Custodian(w, r)
	case strings.HasSuffix(r.URL.Path, "/deactivate") && r.Method == http.MethodPost:
		h.Deactivate(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/locations/") && r.Method == http.MethodGet:
		h.Get(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/locations/") && r.Method == http.MethodPut:
		h.Update(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func locationID(path string) string {
	id := strings.TrimPrefix(path, "/api/v1/locations/")
	if i := strings.IndexByte(id, '/'); i >= 0 {
		id = id[:i]
	}
	return id
}

type createLocationBody struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	LocationType string `json:"location_type"`
	ParentID     string `json:"parent_id"`
	IsStore      bool   `json:"is_store"`
	IsStandalone bool   `json:"is_standalone"`
	InCharge     string `json:"in_charge"`
	Address      string `json:"address"`
	Description  string `json:"description"`
}

func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body createLocationBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	resp, err := h.locations.CreateLocation(r.Context(), service.CreateLocationRequest{
		Code:         body.Code,
		Name:         body.Name,
		LocationType: domain.LocationType(body.LocationType),
		ParentID:     body.ParentID,
		IsStore:      body.IsStore,
		IsStandalone: body.IsStandalone,
		InCharge:     body.InCharge,
		Address:      body.Address,
		Description:  body.Description,
		Actor:        actor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(resp))
}

type updateLocationBody struct {
	Name        string `json:"name"`
	InCharge    string `json:"in_charge"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

func (h *LocationHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body updateLocationBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	err := h.locations.UpdateLocation(r.Context(), service.UpdateLocationRequest{
		LocationID:  locationID(r.URL.Path),
		Name:        body.Name,
		InCharge:    body.InCharge,
		Address:     body.Address,
		Description: body.Description,
		Actor:       actor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

func (h *LocationHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	err := h.locations.DeactivateLocation(r.Context(), service.DeactivateLocationRequest{
		LocationID: locationID(r.URL.Path),
		Actor:      actor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

func (h *LocationHandler) Get(w http.ResponseWriter, r *http.Request) {
	loc, err := h.locations.GetLocation(r.Context(), locationID(r.URL.Path))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(loc))
}

func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := service.ListLocationsRequest{
		LocationType: domain.LocationType(q.Get("location_type")),
		StoresOnly:   q.Get("stores_only") == "true",
		ActiveOnly:   q.Get("active_only") == "true",
		Search:       q.Get("search"),
	}
	if v := q.Get("standalone"); v != "" {
		b := v == "true"
		req.Standalone = &b
	}
	locs, err := h.locations.ListLocations(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(locs))
}

func (h *LocationHandler) Children(w http.ResponseWriter, r *http.Request) {
	locs, err := h.locations.ListChildren(r.Context(), locationID(r.URL.Path))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(locs))
}

func (h *LocationHandler) Custodian(w http.ResponseWriter, r *http.Request) {
	store, err := h.locations.ResolveCustodian(r.Context(), locationID(r.URL.Path))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(store))
}
