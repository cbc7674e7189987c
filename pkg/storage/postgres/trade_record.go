package postgres

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is the archived form of an accepted trade.
type TradeRecord struct {
	ID uint `gorm:"primaryKey"`

	// TradeID is the store-assigned id; unique so a replayed publish
	// cannot double-archive.
	TradeID int64 `gorm:"not null;uniqueIndex:idx_trade_record_trade_id"`

	Symbol   string          `gorm:"type:varchar(10);not null;index:idx_trade_record_symbol"`
	Price    decimal.Decimal `gorm:"type:numeric;not null"`
	Quantity decimal.Decimal `gorm:"type:numeric;not null"`
	BrokerID string          `gorm:"type:varchar(50);not null"`

	Timestamp time.Time `gorm:"not null;index:idx_trade_record_timestamp"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (TradeRecord) TableName() string {
	return "trade_record"
}
