package httpapi

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"assetledger/internal/domain"
	"assetledger/internal/service"
)

// TransferHandler 转移协议 Handler（签发 / 确认 / 退回确认 / 修正）
type TransferHandler struct {
	transfers service.TransferService
	logger    *zap.Logger
}

func NewTransferHandler(transfers service.TransferService, logger *zap.Logger) *TransferHandler {
	return &TransferHandler{transfers: transfers, logger: logger}
}

func (h *TransferHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/entries" && r.Method == http.MethodGet:
		h.List(w, r)
	case r.URL.Path == "/api/v1/entries/issue" && r.Method == http.MethodPost:
		h.Issue(w, r)
	case r.URL.Path == "/api/v1/entries/correction" && r.Method == http.MethodPost:
		h.Correction(w, r)
	case r.URL.Path == "/api/v1/entries/pending" && r.Method == http.MethodGet:
		h.Pending(w, r)
	case strings.HasSuffix(r.URL.Path, "/acknowledge") && r.Method == http.MethodPost:
		h.Acknowledge(w, r)
	case strings.HasSuffix(r.URL.Path, "/acknowledge-return") && r.Method == http.MethodPost:
		h.AcknowledgeReturn(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/entries/") && r.Method == http.MethodGet:
		h.Get(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func entryID(path string) string {
	return pathID(path, "/api/v1/entries/")
}

type issueBody struct {
	FromLocationID     string     `json:"from_location_id"`
	ToLocationID       string     `json:"to_location_id"`
	ItemID             string     `json:"item_id"`
	InstanceIDs        []string   `json:"instance_ids"`
	IsTemporary        bool       `json:"is_temporary"`
	ExpectedReturnDate *time.Time `json:"expected_return_date"`
	TemporaryRecipient string     `json:"temporary_recipient"`
	Purpose            string     `json:"purpose"`
	Remarks            string     `json:"remarks"`
}

func (h *TransferHandler) Issue(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body issueBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	resp, err := h.transfers.CreateIssue(r.Context(), service.CreateIssueRequest{
		FromLocationID:     body.FromLocationID,
		ToLocationID:       body.ToLocationID,
		ItemID:             body.ItemID,
		InstanceIDs:        body.InstanceIDs,
		IsTemporary:        body.IsTemporary,
		ExpectedReturnDate: body.ExpectedReturnDate,
		TemporaryRecipient: body.TemporaryRecipient,
		Purpose:            body.Purpose,
		Remarks:            body.Remarks,
		Actor:              actor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(resp))
}

type acknowledgeBody struct {
	AcceptedIDs []string `json:"accepted_ids"`
	RejectedIDs []string `json:"rejected_ids"`
	Remarks     string   `json:"remarks"`
}

func (h *TransferHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body acknowledgeBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	resp, err := h.transfers.AcknowledgeReceipt(r.Context(), service.AcknowledgeReceiptRequest{
		EntryID:     entryID(r.URL.Path),
		AcceptedIDs: body.AcceptedIDs,
		RejectedIDs: body.RejectedIDs,
		Remarks:     body.Remarks,
		Actor:       actor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

type acknowledgeReturnBody struct {
	Remarks string `json:"remarks"`
}

func (h *TransferHandler) AcknowledgeReturn(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body acknowledgeReturnBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	resp, err := h.transfers.AcknowledgeReturn(r.Context(), service.AcknowledgeReturnRequest{
		EntryID: entryID(r.URL.Path),
		Remarks: body.Remarks,
		Actor:   actor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

type correctionBody struct {
	LocationID string `json:"location_id"`
	ItemID     string `json:"item_id"`
	Quantity   int    `json:"quantity"`
	Remarks    string `json:"remarks"`
}

func (h *TransferHandler) Correction(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body correctionBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	id, err := h.transfers.CreateCorrection(r.Context(), service.CreateCorrectionRequest{
		LocationID: body.LocationID,
		ItemID:     body.ItemID,
		Quantity:   body.Quantity,
		Remarks:    body.Remarks,
		Actor:      actor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(map[string]string{"entry_id": id}))
}

func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.transfers.GetEntry(r.Context(), entryID(r.URL.Path))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(entry))
}

func (h *TransferHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, err := h.transfers.ListEntries(r.Context(), service.ListEntriesRequest{
		EntryType:      domain.EntryType(q.Get("entry_type")),
		Status:         domain.EntryStatus(q.Get("status")),
		ToLocationID:   q.Get("to_location_id"),
		FromLocationID: q.Get("from_location_id"),
		ItemID:         q.Get("item_id"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(entries))
}

func (h *TransferHandler) Pending(w http.ResponseWriter, r *http.Request) {
	locID := r.URL.Query().Get("location_id")
	if locID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("location_id query parameter is required"))
		return
	}
	entries, err := h.transfers.ListPendingAcknowledgments(r.Context(), locID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(entries))
}
