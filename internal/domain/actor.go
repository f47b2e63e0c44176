package domain

import "context"

// Role 操作者角色（由外部身份服务解析后传入，core 不做认证）
type Role string

const (
	RoleSystemAdmin   Role = "SYSTEM_ADMIN"
	RoleLocationHead  Role = "LOCATION_HEAD"
	RoleStockIncharge Role = "STOCK_INCHARGE"
	RoleAuditor       Role = "AUDITOR"
)

// Actor 已解析的操作者身份（每次操作必带）
type Actor struct {
	ID   string
	Name string
	Role Role
}

func (a Actor) IsAdmin() bool   { return a.Role == RoleSystemAdmin }
func (a Actor) IsAuditor() bool { return a.Role == RoleAuditor }

// AccessPolicy 位置访问谓词，由身份/授权层注入（hasAccess(actor, location) → bool）
// core 只在前置条件检查里消费它，不实现认证本身
type AccessPolicy interface {
	HasAccess(ctx context.Context, actor Actor, locationID string) bool
}

// AllowAllPolicy 开发/联测用的宽松策略（DB 未接权限系统时的 fallback）
type AllowAllPolicy struct{}

func (AllowAllPolicy) HasAccess(ctx context.Context, actor Actor, locationID string) bool {
	return true
}
