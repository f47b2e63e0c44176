package domain

import "time"

// LocationInventory 库存汇总（对应 location_inventories 表）
// 按 (location, item) 聚合的派生缓存：永远整行重算，不做增量修补，
// 可随时丢弃重建，单件台账才是事实来源
type LocationInventory struct {
	InventoryID string `db:"inventory_id" json:"inventory_id"`
	LocationID  string `db:"location_id" json:"location_id"` // store only
	ItemID      string `db:"item_id" json:"item_id"`

	TotalQuantity      int `db:"total_quantity" json:"total_quantity"`         // source_location = location 的全部单件
	AvailableQuantity  int `db:"available_quantity" json:"available_quantity"` // 物理在本库且 IN_STORE（含他人寄存）
	InStoreQty         int `db:"in_store_qty" json:"in_store_qty"`
	InTransitQty       int `db:"in_transit_qty" json:"in_transit_qty"`
	InUseQty           int `db:"in_use_qty" json:"in_use_qty"`
	TemporaryIssuedQty int `db:"temporary_issued_qty" json:"temporary_issued_qty"`
	UnderRepairQty     int `db:"under_repair_qty" json:"under_repair_qty"`
	DamagedQty         int `db:"damaged_qty" json:"damaged_qty"`
	LostQty            int `db:"lost_qty" json:"lost_qty"`
	CondemnedQty       int `db:"condemned_qty" json:"condemned_qty"`
	DisposedQty        int `db:"disposed_qty" json:"disposed_qty"`

	LastUpdated time.Time `db:"last_updated" json:"last_updated"`
}
