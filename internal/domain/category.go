package domain

import (
	"database/sql"
	"time"
)

// Category 资产类别（对应 categories 表）
// DepreciationRate 为年折旧率百分比（10.00 表示 10%），WDV 余额递减法
type Category struct {
	CategoryID       string         `db:"category_id" json:"category_id"`
	Code             string         `db:"code" json:"code"` // UNIQUE
	Name             string         `db:"name" json:"name"`
	Description      sql.NullString `db:"description" json:"description"`
	ParentCategoryID sql.NullString `db:"parent_category_id" json:"parent_category_id"` // nullable
	DepreciationRate float64        `db:"depreciation_rate" json:"depreciation_rate"`
	IsActive         bool           `db:"is_active" json:"is_active"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
}

// DepreciationYear WDV 折旧表的一行
type DepreciationYear struct {
	Year              int     `json:"year"`
	OpeningValue      float64 `json:"opening_value"`
	DepreciationRate  float64 `json:"depreciation_rate"`
	DepreciationValue float64 `json:"depreciation_amount"`
	ClosingValue      float64 `json:"closing_value"`
}

// WrittenDownValue 按 WDV 法折旧 years 年后的账面价值
// 只读派生计算，不参与任何转移协议
func (c *Category) WrittenDownValue(openingValue float64, years int) float64 {
	if c.DepreciationRate == 0 || years <= 0 {
		return openingValue
	}
	rate := c.DepreciationRate / 100
	value := openingValue
	for i := 0; i < years; i++ {
		value -= value * rate
	}
	return value
}

// DepreciationSchedule 逐年折旧明细（报表用）
func (c *Category) DepreciationSchedule(openingValue float64, years int) []DepreciationYear {
	schedule := make([]DepreciationYear, 0, years)
	rate := c.DepreciationRate / 100
	value := openingValue
	for year := 1; year <= years; year++ {
		dep := value * rate
		schedule = append(schedule, DepreciationYear{
			Year:              year,
			OpeningValue:      value,
			DepreciationRate:  c.DepreciationRate,
			DepreciationValue: dep,
			ClosingValue:      value - dep,
		})
		value -= dep
	}
	return schedule
}
