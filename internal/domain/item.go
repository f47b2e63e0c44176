package domain

import (
	"database/sql"
	"time"
)

// Item 资产品目（对应 items 表）
// DefaultLocationID 必须指向 standalone 位置（品目归属某个院系/楼宇）
type Item struct {
	ItemID            string         `db:"item_id" json:"item_id"`
	Code              string         `db:"code" json:"code"` // UNIQUE
	Name              string         `db:"name" json:"name"`
	CategoryID        string         `db:"category_id" json:"category_id"`
	Description       sql.NullString `db:"description" json:"description"`
	AcctUnit          string         `db:"acct_unit" json:"acct_unit"` // 记账单位（Nos / Set / Box…）
	Specifications    sql.NullString `db:"specifications" json:"specifications"`
	DefaultLocationID string         `db:"default_location_id" json:"default_location_id"` // standalone only
	TotalQuantity     int            `db:"total_quantity" json:"total_quantity"`           // 冗余计数，由实例表重算
	ReorderLevel      int            `db:"reorder_level" json:"reorder_level"`
	ReorderQuantity   int            `db:"reorder_quantity" json:"reorder_quantity"`
	IsActive          bool           `db:"is_active" json:"is_active"`
	CreatedBy         string         `db:"created_by" json:"created_by"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         sql.NullTime   `db:"updated_at" json:"updated_at"`
}
