package httpapi

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"assetledger/internal/domain"
	"assetledger/internal/service"
)

// InstanceHandler 实物单件台账 Handler
type InstanceHandler struct {
	instances service.InstanceService
	catalog   service.CatalogService
	logger    *zap.Logger
}

func NewInstanceHandler(instances service.InstanceService, catalog service.CatalogService, logger *zap.Logger) *InstanceHandler {
	return &InstanceHandler{instances: instances, catalog: catalog, logger: logger}
}

func (h *InstanceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/instances" && r.Method == http.MethodGet:
		h.List(w, r)
	case r.URL.Path == "/api/v1/instances/by-code" && r.Method == http.MethodGet:
		h.GetByCode(w, r)
	case strings.HasSuffix(r.URL.Path, "/status") && r.Method == http.MethodPost:
		h.ChangeStatus(w, r)
	case strings.HasSuffix(r.URL.Path, "/condition") && r.Method == http.MethodPost:
		h.UpdateCondition(w, r)
	case strings.HasSuffix(r.URL.Path, "/movements") && r.Method == http.MethodGet:
		h.Movements(w, r)
	case strings.HasSuffix(r.URL.Path, "/depreciation") && r.Method == http.MethodGet:
		h.Depreciation(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/instances/") && r.Method == http.MethodGet:
		h.Get(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func instanceID(path string) string {
	return pathID(path, "/api/v1/instances/")
}

type changeStatusBody struct {
	NewStatus          string     `json:"new_status"`
	LocationID         string     `json:"location_id"`
	Note               string     `json:"note"`
	AssignedTo         string     `json:"assigned_to"`
	ExpectedReturnDate *time.Time `json:"expected_return_date"`
	RepairCost         *float64   `json:"repair_cost"`
	DisposalReason     string     `json:"disposal_reason"`
}

func (h *InstanceHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body changeStatusBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	err := h.instances.ChangeStatus(r.Context(), service.ChangeStatusRequest{
		InstanceID:         instanceID(r.URL.Path),
		NewStatus:          domain.InstanceStatus(body.NewStatus),
		LocationID:         body.LocationID,
		Note:               body.Note,
		AssignedTo:         body.AssignedTo,
		ExpectedReturnDate: body.ExpectedReturnDate,
		RepairCost:         body.RepairCost,
		DisposalReason:     body.DisposalReason,
		Actor:              actor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

type updateConditionBody struct {
	Condition string `json:"condition"`
	Notes     string `json:"notes"`
}

func (h *InstanceHandler) UpdateCondition(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body updateConditionBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	err := h.instances.UpdateCondition(r.Context(), service.UpdateConditionRequest{
		InstanceID: instanceID(r.URL.Path),
		Condition:  domain.Condition(body.Condition),
		Notes:      body.Notes,
		Actor:      actor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

func (h *InstanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	inst, err := h.instances.GetInstance(r.Context(), instanceID(r.URL.Path))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(inst))
}

func (h *InstanceHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, Fail("code query parameter is required"))
		return
	}
	inst, err := h.instances.GetInstanceByCode(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(inst))
}

func (h *InstanceHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	insts, err := h.instances.ListInstances(r.Context(), service.ListInstancesRequest{
		ItemID:            q.Get("item_id"),
		SourceLocationID:  q.Get("source_location_id"),
		CurrentLocationID: q.Get("current_location_id"),
		Status:            domain.InstanceStatus(q.Get("status")),
		CertificateID:     q.Get("certificate_id"),
		AssignedTo:        q.Get("assigned_to"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(insts))
}

func (h *InstanceHandler) Movements(w http.ResponseWriter, r *http.Request) {
	moves, err := h.instances.ListMovements(r.Context(), instanceID(r.URL.Path))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(moves))
}

func (h *InstanceHandler) Depreciation(w http.ResponseWriter, r *http.Request) {
	years := parseInt(r.URL.Query().Get("years"), 10)
	schedule, err := h.catalog.DepreciationSchedule(r.Context(), instanceID(r.URL.Path), years)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(schedule))
}
