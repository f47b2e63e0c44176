package domain

import (
	"database/sql"
	"time"
)

// LocationType 位置类型标签
type LocationType string

const (
	LocationDepartment LocationType = "DEPARTMENT"
	LocationBuilding   LocationType = "BUILDING"
	LocationStore      LocationType = "STORE"
	LocationRoom       LocationType = "ROOM"
	LocationLab        LocationType = "LAB"
	LocationJunkyard   LocationType = "JUNKYARD"
	LocationOffice     LocationType = "OFFICE"
	LocationOther      LocationType = "OTHER"
)

// Location 位置领域模型（对应 locations 表）
// 自引用树：ParentID 指向父节点；standalone 节点在创建时自动配套一个
// 主库房（PairedStoreID → 自动创建的 main store）
type Location struct {
	LocationID    string         `db:"location_id" json:"location_id"`
	Code          string         `db:"code" json:"code"` // UNIQUE
	Name          string         `db:"name" json:"name"`
	LocationType  LocationType   `db:"location_type" json:"location_type"`
	ParentID      sql.NullString `db:"parent_id" json:"parent_id"`             // nullable，仅根节点为 NULL
	PairedStoreID sql.NullString `db:"paired_store_id" json:"paired_store_id"` // nullable，仅 standalone 节点持有
	IsStore       bool           `db:"is_store" json:"is_store"`
	IsStandalone  bool           `db:"is_standalone" json:"is_standalone"`
	IsMainStore   bool           `db:"is_main_store" json:"is_main_store"`
	IsAutoCreated bool           `db:"is_auto_created" json:"is_auto_created"`
	InCharge      sql.NullString `db:"in_charge" json:"in_charge"`
	Address       sql.NullString `db:"address" json:"address"`
	Description   sql.NullString `db:"description" json:"description"`

	// 层级冗余字段，写入时计算（用于快速 descendant 查询）
	HierarchyLevel int    `db:"hierarchy_level" json:"hierarchy_level"`
	HierarchyPath  string `db:"hierarchy_path" json:"hierarchy_path"` // "ROOT/DEPT/ROOM"

	IsActive  bool         `db:"is_active" json:"is_active"`
	CreatedBy string       `db:"created_by" json:"created_by"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt sql.NullTime `db:"updated_at" json:"updated_at"`
}

// IsRoot 是否根节点（全局唯一，parent 为 NULL）
func (l *Location) IsRoot() bool {
	return !l.ParentID.Valid
}

// MainStoreCode standalone 节点配套主库房的 code（确定性派生）
func MainStoreCode(parentCode string) string {
	return parentCode + "-MAIN-STORE"
}

// MainStoreName standalone 节点配套主库房的名称
func MainStoreName(parentName string) string {
	return parentName + " - Main Store"
}
