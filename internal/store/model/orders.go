package model

import "gorm.io/datatypes"

// OrderJournalModel is one row of the append-only order journal.
type OrderJournalModel struct {
	Seq           int64          `gorm:"column:seq;primaryKey;autoIncrement"`
	ID            string         `gorm:"column:id;uniqueIndex"`
	Broker        string         `gorm:"column:broker;index:idx_order_journal_symbol,priority:1"`
	Action        string         `gorm:"column:action"`
	Symbol        string         `gorm:"column:symbol;index:idx_order_journal_symbol,priority:2"`
	Side          string         `gorm:"column:side"`
	OrderType     string         `gorm:"column:order_type"`
	Quantity      float64        `gorm:"column:quantity"`
	Price         float64        `gorm:"column:price"`
	ClientID      string         `gorm:"column:client_id"`
	OrderID       string         `gorm:"column:order_id;index"`
	Status        string         `gorm:"column:status"`
	AvgPrice      float64        `gorm:"column:avg_price"`
	ExecutedQty   float64        `gorm:"column:executed_qty"`
	Error         string         `gorm:"column:error"`
	ReportJSON    datatypes.JSON `gorm:"column:report_json;type:TEXT"`
	CreatedAtUnix int64          `gorm:"column:created_at"`
}

func (OrderJournalModel) TableName() string { return "order_journal" }
