package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"assetledger/internal/service"
)

// InventoryHandler 库存汇总 Handler
type InventoryHandler struct {
	inventory service.InventoryService
	logger    *zap.Logger
}

func NewInventoryHandler(inventory service.InventoryService, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{inventory: inventory, logger: logger}
}

func (h *InventoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/inventory" && r.Method == http.MethodGet:
		h.Get(w, r)
	case strings.HasSuffix(r.URL.Path, "/export") && r.Method == http.MethodGet:
		h.Export(w, r)
	case strings.HasSuffix(r.URL.Path, "/recompute") && r.Method == http.MethodPost:
		h.Recompute(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/inventory/") && r.Method == http.MethodGet:
		h.ListByLocation(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func inventoryLocationID(path string) string {
	return pathID(path, "/api/v1/inventory/")
}

func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	locID := q.Get("location_id")
	itemID := q.Get("item_id")
	if locID == "" || itemID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("location_id and item_id query parameters are required"))
		return
	}
	inv, err := h.inventory.GetInventory(r.Context(), locID, itemID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(inv))
}

func (h *InventoryHandler) ListByLocation(w http.ResponseWriter, r *http.Request) {
	rows, err := h.inventory.ListLocationInventory(r.Context(), inventoryLocationID(r.URL.Path))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rows))
}

func (h *InventoryHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireActor(w, r); !ok {
		return
	}
	count, err := h.inventory.RecomputeLocation(r.Context(), inventoryLocationID(r.URL.Path))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]int{"rows": count}))
}

// Export 某库的汇总导出为 Excel
func (h *InventoryHandler) Export(w http.ResponseWriter, r *http.Request) {
	locID := inventoryLocationID(r.URL.Path)
	rows, err := h.inventory.ListLocationInventory(r.Context(), locID)
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := GenerateInventoryExport(rows)
	if err != nil {
		h.logger.Error("inventory export failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("export failed"))
		return
	}
	filename := fmt.Sprintf("inventory_%s_%s.xlsx", locID, time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = w.Write(data)
}
