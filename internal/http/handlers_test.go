package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"assetledger/internal/audit"
	"assetledger/internal/domain"
	"assetledger/internal/notify"
	"assetledger/internal/repository"
	"assetledger/internal/service"
	"assetledger/internal/store"
)

// newTestRouter 内存仓储 + 全部路由，按 main 的装配顺序
func newTestRouter(t *testing.T) *Router {
	t.Helper()
	logger := zap.NewNop()
	txm := repository.NewMemoryTxManager()
	policy := domain.AllowAllPolicy{}
	recorder := audit.NewRecorder(logger, nil, "test:audit")

	locations := service.NewLocationService(txm, policy, logger)
	catalog := service.NewCatalogService(txm, logger)
	certificates := service.NewCertificateService(txm, policy, recorder, logger)
	instances := service.NewInstanceService(txm, policy, recorder, logger)
	transfers := service.NewTransferService(txm, policy, recorder, notify.NopNotifier{}, logger)
	inventory := service.NewInventoryService(txm, store.NopKV{}, logger)

	router := NewRouter(logger)
	router.RegisterLocationRoutes(NewLocationHandler(locations, logger))
	router.RegisterCatalogRoutes(NewCatalogHandler(catalog, logger))
	router.RegisterCertificateRoutes(NewCertificateHandler(certificates, logger))
	router.RegisterInstanceRoutes(NewInstanceHandler(instances, catalog, logger))
	router.RegisterTransferRoutes(NewTransferHandler(transfers, logger))
	router.RegisterInventoryRoutes(NewInventoryHandler(inventory, logger))
	return router
}

func doJSON(t *testing.T, router *Router, method, path string, actor *domain.Actor, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set("X-Actor-Id", actor.ID)
		req.Header.Set("X-Actor-Name", actor.Name)
		req.Header.Set("X-Actor-Role", string(actor.Role))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Code    int             `json:"code"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestCreateLocation_SuccessEnvelope(t *testing.T) {
	router := newTestRouter(t)
	admin := domain.Actor{ID: "admin-1", Name: "Admin", Role: domain.RoleSystemAdmin}

	w := doJSON(t, router, http.MethodPost, "/api/v1/locations", &admin, map[string]any{
		"code":          "UNIV",
		"name":          "University",
		"location_type": "DEPARTMENT",
		"is_standalone": true,
		"in_charge":     "keeper-central",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	env := decodeEnvelope(t, w)
	require.Equal(t, 2000, env.Code)
	require.Equal(t, "success", env.Type)

	var created struct {
		LocationID    string `json:"location_id"`
		PairedStoreID string `json:"paired_store_id"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &created))
	require.NotEmpty(t, created.LocationID)
	require.NotEmpty(t, created.PairedStoreID)
}

func TestMissingActorHeader_Unauthorized(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/locations", nil, map[string]any{
		"code": "UNIV", "name": "University", "location_type": "DEPARTMENT",
	})

	require.Equal(t, http.StatusUnauthorized, w.Code)
	env := decodeEnvelope(t, w)
	require.Equal(t, -1, env.Code)
	require.Equal(t, "error", env.Type)
	require.Contains(t, env.Message, "X-Actor-Id")
}

// 错误分类 → 状态码映射：400 / 409 / 404
func TestErrorMapping(t *testing.T) {
	router := newTestRouter(t)
	admin := domain.Actor{ID: "admin-1", Name: "Admin", Role: domain.RoleSystemAdmin}
	keeper := domain.Actor{ID: "keeper-1", Name: "Keeper", Role: domain.RoleStockIncharge}

	// 输入不合法：缺 code
	w := doJSON(t, router, http.MethodPost, "/api/v1/locations", &admin, map[string]any{
		"name": "University", "location_type": "DEPARTMENT",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, -1, decodeEnvelope(t, w).Code)

	// 前置条件不满足：非管理员建根节点
	w = doJSON(t, router, http.MethodPost, "/api/v1/locations", &keeper, map[string]any{
		"code": "UNIV", "name": "University", "location_type": "DEPARTMENT", "is_standalone": true,
	})
	require.Equal(t, http.StatusConflict, w.Code)

	// 不存在
	w = doJSON(t, router, http.MethodGet, "/api/v1/locations/no-such-id", nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnknownRoute(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodDelete, "/api/v1/locations/some-id", nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/nope", nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

// 全流程路由冒烟：建树 → 目录 → 签发 → 确认 → 汇总
func TestTransferRoundTripOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	admin := domain.Actor{ID: "admin-1", Name: "Admin", Role: domain.RoleSystemAdmin}
	head := domain.Actor{ID: "head-1", Name: "Dept Head", Role: domain.RoleLocationHead}
	deptKeeper := domain.Actor{ID: "keeper-phy", Name: "Dept Keeper", Role: domain.RoleStockIncharge}
	centralKeeper := domain.Actor{ID: "keeper-central", Name: "Central Keeper", Role: domain.RoleStockIncharge}
	auditor := domain.Actor{ID: "auditor-1", Name: "Auditor", Role: domain.RoleAuditor}

	createLocation := func(body map[string]any) (string, string) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/locations", &admin, body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var created struct {
			LocationID    string `json:"location_id"`
			PairedStoreID string `json:"paired_store_id"`
		}
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Result, &created))
		return created.LocationID, created.PairedStoreID
	}

	rootID, rootStoreID := createLocation(map[string]any{
		"code": "UNIV", "name": "University", "location_type": "DEPARTMENT",
		"is_standalone": true, "in_charge": centralKeeper.ID,
	})
	deptID, deptStoreID := createLocation(map[string]any{
		"code": "PHY", "name": "Physics Department", "location_type": "DEPARTMENT",
		"parent_id": rootID, "is_standalone": true, "in_charge": deptKeeper.ID,
	})

	// 目录
	w := doJSON(t, router, http.MethodPost, "/api/v1/categories", &admin, map[string]any{
		"code": "LAB-EQ", "name": "Lab Equipment", "depreciation_rate": 15,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var catResult struct {
		CategoryID string `json:"category_id"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Result, &catResult))

	w = doJSON(t, router, http.MethodPost, "/api/v1/items", &admin, map[string]any{
		"code": "OSC", "name": "Oscilloscope",
		"category_id": catResult.CategoryID, "default_location_id": deptID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var itemResult struct {
		ItemID string `json:"item_id"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Result, &itemResult))
	itemID := itemResult.ItemID

	// 验收流程物化 2 件
	w = doJSON(t, router, http.MethodPost, "/api/v1/certificates", &head, map[string]any{
		"department_id": deptID, "contract_no": "CTR-1",
		"contractor_name": "Acme Instruments", "indenter": "Prof. Rao",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var certResult struct {
		CertificateID string `json:"certificate_id"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Result, &certResult))
	certID := certResult.CertificateID

	w = doJSON(t, router, http.MethodPost, "/api/v1/certificates/"+certID+"/items", &head, map[string]any{
		"item_id": itemID, "tendered_qty": 2, "accepted_qty": 2,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var itemAdd struct {
		InspectionItemID string `json:"inspection_item_id"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Result, &itemAdd))

	w = doJSON(t, router, http.MethodPost, "/api/v1/certificates/"+certID+"/submit", &head, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodPost, "/api/v1/certificates/"+certID+"/stock-register", &deptKeeper, map[string]any{
		"lines":                 []map[string]any{{"inspection_item_id": itemAdd.InspectionItemID, "stock_register_no": "SR-1"}},
		"consignee_name":        "Dept Keeper",
		"consignee_designation": "Stock Incharge",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = doJSON(t, router, http.MethodPost, "/api/v1/certificates/"+certID+"/submit", &deptKeeper, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodPost, "/api/v1/certificates/"+certID+"/central-register", &centralKeeper, map[string]any{
		"lines": []map[string]any{{"inspection_item_id": itemAdd.InspectionItemID, "central_register_no": "CR-1"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = doJSON(t, router, http.MethodPost, "/api/v1/certificates/"+certID+"/submit", &centralKeeper, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodPost, "/api/v1/certificates/"+certID+"/submit", &auditor, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var submit struct {
		CreatedInstanceIDs []string `json:"created_instance_ids"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Result, &submit))
	require.Len(t, submit.CreatedInstanceIDs, 2)

	// 上行签发（两段式）
	w = doJSON(t, router, http.MethodPost, "/api/v1/entries/issue", &deptKeeper, map[string]any{
		"from_location_id": deptStoreID,
		"to_location_id":   rootStoreID,
		"item_id":          itemID,
		"instance_ids":     submit.CreatedInstanceIDs,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var issue struct {
		EntryID string `json:"entry_id"`
		Pending bool   `json:"pending"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Result, &issue))
	require.True(t, issue.Pending)

	// 待确认队列
	w = doJSON(t, router, http.MethodGet, "/api/v1/entries/pending?location_id="+rootStoreID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pending []json.RawMessage
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Result, &pending))
	require.Len(t, pending, 1)

	// 全收确认
	w = doJSON(t, router, http.MethodPost, "/api/v1/entries/"+issue.EntryID+"/acknowledge", &centralKeeper, map[string]any{
		"accepted_ids": submit.CreatedInstanceIDs,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 重复确认 → 409
	w = doJSON(t, router, http.MethodPost, "/api/v1/entries/"+issue.EntryID+"/acknowledge", &centralKeeper, map[string]any{
		"accepted_ids": submit.CreatedInstanceIDs,
	})
	require.Equal(t, http.StatusConflict, w.Code)

	// 汇总落在接收端
	w = doJSON(t, router, http.MethodGet, "/api/v1/inventory?location_id="+rootStoreID+"&item_id="+itemID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var inv struct {
		TotalQuantity     int `json:"total_quantity"`
		AvailableQuantity int `json:"available_quantity"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Result, &inv))
	require.Equal(t, 2, inv.TotalQuantity)
	require.Equal(t, 2, inv.AvailableQuantity)
}
