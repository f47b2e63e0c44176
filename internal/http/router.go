package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口（用于 pprof 等）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterLocationRoutes 位置树
func (r *Router) RegisterLocationRoutes(h *LocationHandler) {
	r.Handle("/api/v1/locations", h.ServeHTTP)
	r.Handle("/api/v1/locations/", h.ServeHTTP)
}

// RegisterCatalogRoutes 类别 + 物品目录
func (r *Router) RegisterCatalogRoutes(h *CatalogHandler) {
	r.Handle("/api/v1/categories", h.ServeHTTP)
	r.Handle("/api/v1/categories/", h.ServeHTTP)
	r.Handle("/api/v1/items", h.ServeHTTP)
	r.Handle("/api/v1/items/", h.ServeHTTP)
}

// RegisterCertificateRoutes 验收单工作流
func (r *Router) RegisterCertificateRoutes(h *CertificateHandler) {
	r.Handle("/api/v1/certificates", h.ServeHTTP)
	r.Handle("/api/v1/certificates/", h.ServeHTTP)
}

// RegisterInstanceRoutes 单件台账
func (r *Router) RegisterInstanceRoutes(h *InstanceHandler) {
	r.Handle("/api/v1/instances", h.ServeHTTP)
	r.Handle("/api/v1/instances/", h.ServeHTTP)
}

// RegisterTransferRoutes 转移协议
func (r *Router) RegisterTransferRoutes(h *TransferHandler) {
	r.Handle("/api/v1/entries", h.ServeHTTP)
	r.Handle("/api/v1/entries/", h.ServeHTTP)
}

// RegisterInventoryRoutes 库存汇总
func (r *Router) RegisterInventoryRoutes(h *InventoryHandler) {
	r.Handle("/api/v1/inventory", h.ServeHTTP)
	r.Handle("/api/v1/inventory/", h.ServeHTTP)
}
