package httpapi

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"assetledger/internal/domain"
	"assetledger/internal/service"
)

// CertificateHandler 验收单工作流 Handler
type CertificateHandler struct {
	certificates service.CertificateService
	logger       *zap.Logger
}

func NewCertificateHandler(certificates service.CertificateService, logger *zap.Logger) *CertificateHandler {
	return &CertificateHandler{certificates: certificates, logger: logger}
}

func (h *CertificateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/certificates" && r.Method == http.MethodGet:
		h.List(w, r)
	case r.URL.Path == "/api/v1/certificates" && r.Method == http.MethodPost:
		h.Create(w, r)
	case strings.HasSuffix(r.URL.Path, "/items") && r.Method == http.MethodPost:
		h.AddItem(w, r)
	case strings.Contains(r.URL.Path, "/items/") && r.Method == http.MethodPut:
		h.UpdateItem(w, r)
	case strings.Contains(r.URL.Path, "/items/") && r.Method == http.MethodDelete:
		h.DeleteItem(w, r)
	case strings.HasSuffix(r.URL.Path, "/stock-register") && r.Method == http.MethodPost:
		h.RecordStockRegister(w, r)
	case strings.HasSuffix(r.URL.Path, "/central-register") && r.Method == http.MethodPost:
		h.RecordCentralRegister(w, r)
	case strings.HasSuffix(r.URL.Path, "/submit") && r.Method == http.MethodPost:
		h.Submit(w, r)
	case strings.HasSuffix(r.URL.Path, "/reject") && r.Method == http.MethodPost:
		h.Reject(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/certificates/") && r.Method == http.MethodGet:
		h.Get(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/certificates/") && r.Method == http.MethodPut:
		h.UpdateHeader(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func certificateID(path string) string {
	return pathID(path, "/api/v1/certificates/")
}

// inspectionItemID /api/v1/certificates/{id}/items/{itemID}
func inspectionItemID(path string) string {
	i := strings.Index(path, "/items/")
	if i < 0 {
		return ""
	}
	return strings.TrimSuffix(path[i+len("/items/"):], "/")
}

type certificateHeaderBody struct {
	DepartmentID      string     `json:"department_id"`
	Date              time.Time  `json:"date"`
	ContractNo        string     `json:"contract_no"`
	ContractDate      *time.Time `json:"contract_date"`
	ContractorName    string     `json:"contractor_name"`
	ContractorAddress string     `json:"contractor_address"`
	Indenter          string     `json:"indenter"`
	IndentNo          string     `json:"indent_no"`
	DateOfDelivery    *time.Time `json:"date_of_delivery"`
	DeliveryType      string     `json:"delivery_type"`
	Remarks           string     `json:"remarks"`
}

func (h *CertificateHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body certificateHeaderBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	resp, err := h.certificates.CreateCertificate(r.Context(), service.CreateCertificateRequest{
		DepartmentID:      body.DepartmentID,
		Date:              body.Date,
		ContractNo:        body.ContractNo,
		ContractDate:      body.ContractDate,
		ContractorName:    body.ContractorName,
		ContractorAddress: body.ContractorAddress,
		Indenter:          body.Indenter,
		IndentNo:          body.IndentNo,
		DateOfDelivery:    body.DateOfDelivery,
		DeliveryType:      body.DeliveryType,
		Remarks:           body.Remarks,
		Actor:             actor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(resp))
}

func (h *CertificateHandler) UpdateHeader(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body certificateHeaderBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	err := h.certificates.UpdateHeader(r.Context(), service.UpdateHeaderRequest{
		CertificateID:     certificateID(r.URL.Path),
		ContractNo:        body.ContractNo,
		ContractDate:      body.ContractDate,
		ContractorName:    body.ContractorName,
		ContractorAddress: body.ContractorAddress,
		Indenter:          body.Indenter,
		IndentNo:          body.IndentNo,
		DateOfDelivery:    body.DateOfDelivery,
		DeliveryType:      body.DeliveryType,
		Remarks:           body.Remarks,
		Actor:             actor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

type inspectionItemBody struct {
	ItemID      string   `json:"item_id"`
	TenderedQty int      `json:"tendered_qty"`
	AcceptedQty int      `json:"accepted_qty"`
	RejectedQty int      `json:"rejected_qty"`
	UnitPrice   *float64 `json:"unit_price"`
	Remarks     string   `json:"remarks"`
}

func (h *CertificateHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body inspectionItemBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	id, err := h.certificates.AddItem(r.Context(), service.AddInspectionItemRequest{
		CertificateID: certificateID(r.URL.Path),
		ItemID:        body.ItemID,
		TenderedQty:   body.TenderedQty,
		AcceptedQty:   body.AcceptedQty,
		RejectedQty:   body.RejectedQty,
		UnitPrice:     body.UnitPrice,
		Remarks:       body.Remarks,
		Actor:         actor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(map[string]string{"inspection_item_id": id}))
}

func (h *CertificateHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body inspectionItemBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	err := h.certificates.UpdateItemQuantities(r.Context(), service.UpdateItemQuantitiesRequest{
		CertificateID:    certificateID(r.URL.Path),
		InspectionItemID: inspectionItemID(r.URL.Path),
		TenderedQty:      body.TenderedQty,
		AcceptedQty:      body.AcceptedQty,
		RejectedQty:      body.RejectedQty,
		UnitPrice:        body.UnitPrice,
		Remarks:          body.Remarks,
		Actor:            actor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

func (h *CertificateHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	err := h.certificates.DeleteItem(r.Context(), service.DeleteInspectionItemRequest{
		CertificateID:    certificateID(r.URL.Path),
		InspectionItemID: inspectionItemID(r.URL.Path),
		Actor:            actor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

type stockRegisterBody struct {
	Lines []struct {
		InspectionItemID    string     `json:"inspection_item_id"`
		StockRegisterNo     string     `json:"stock_register_no"`
		StockRegisterPageNo string     `json:"stock_register_page_no"`
		StockEntryDate      *time.Time `json:"stock_entry_date"`
	} `json:"lines"`
	InspectedBy          string     `json:"inspected_by"`
	DateOfInspection     *time.Time `json:"date_of_inspection"`
	ConsigneeName        string     `json:"consignee_name"`
	ConsigneeDesignation string     `json:"consignee_designation"`
}

func (h *CertificateHandler) RecordStockRegister(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body stockRegisterBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	lines := make([]service.StockRegisterLine, 0, len(body.Lines))
	for _, l := range body.Lines {
		lines = append(lines, service.StockRegisterLine{
			InspectionItemID:    l.InspectionItemID,
			StockRegisterNo:     l.StockRegisterNo,
			StockRegisterPageNo: l.StockRegisterPageNo,
			StockEntryDate:      l.StockEntryDate,
		})
	}
	err := h.certificates.RecordStockRegister(r.Context(), service.RecordStockRegisterRequest{
		CertificateID:        certificateID(r.URL.Path),
		Lines:                lines,
		InspectedBy:          body.InspectedBy,
		DateOfInspection:     body.DateOfInspection,
		ConsigneeName:        body.ConsigneeName,
		ConsigneeDesignation: body.ConsigneeDesignation,
		Actor:                actor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

type centralRegisterBody struct {
	Lines []struct {
		InspectionItemID      string `json:"inspection_item_id"`
		CentralRegisterNo     string `json:"central_register_no"`
		CentralRegisterPageNo string `json:"central_register_page_no"`
	} `json:"lines"`
	ConsigneeName        string `json:"consignee_name"`
	ConsigneeDesignation string `json:"consignee_designation"`
}

func (h *CertificateHandler) RecordCentralRegister(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body centralRegisterBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	lines := make([]service.CentralRegisterLine, 0, len(body.Lines))
	for _, l := range body.Lines {
		lines = append(lines, service.CentralRegisterLine{
			InspectionItemID:      l.InspectionItemID,
			CentralRegisterNo:     l.CentralRegisterNo,
			CentralRegisterPageNo: l.CentralRegisterPageNo,
		})
	}
	err := h.certificates.RecordCentralRegister(r.Context(), service.RecordCentralRegisterRequest{
		CertificateID:        certificateID(r.URL.Path),
		Lines:                lines,
		ConsigneeName:        body.ConsigneeName,
		ConsigneeDesignation: body.ConsigneeDesignation,
		Actor:                actor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

type submitBody struct {
	DeadStockRegisterNo   string     `json:"dead_stock_register_no"`
	DeadStockPageNo       string     `json:"dead_stock_page_no"`
	CentralStoreEntryDate *time.Time `json:"central_store_entry_date"`
	FinanceCheckDate      *time.Time `json:"finance_check_date"`
}

func (h *CertificateHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body submitBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	resp, err := h.certificates.Submit(r.Context(), service.SubmitRequest{
		CertificateID:         certificateID(r.URL.Path),
		DeadStockRegisterNo:   body.DeadStockRegisterNo,
		DeadStockPageNo:       body.DeadStockPageNo,
		CentralStoreEntryDate: body.CentralStoreEntryDate,
		FinanceCheckDate:      body.FinanceCheckDate,
		Actor:                 actor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

type rejectBody struct {
	Reason string `json:"reason"`
}

func (h *CertificateHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body rejectBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	err := h.certificates.Reject(r.Context(), service.RejectRequest{
		CertificateID: certificateID(r.URL.Path),
		Reason:        body.Reason,
		Actor:         actor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

func (h *CertificateHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.certificates.GetCertificate(r.Context(), certificateID(r.URL.Path))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(detail))
}

func (h *CertificateHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	certs, err := h.certificates.ListCertificates(r.Context(), service.ListCertificatesRequest{
		DepartmentID: q.Get("department_id"),
		Stage:        domain.InspectionStage(q.Get("stage")),
		PendingOnly:  q.Get("pending_only") == "true",
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(certs))
}
