package postgres

import (
	"context"
	"fmt"
	"time"

	"tradefeed/internal/exchange/model"

	"gorm.io/gorm/clause"
)

// InsertTrade archives one accepted trade. Re-inserting the same trade
// id is a silent no-op reported as an error for visibility.
func (p *PostgresClient) InsertTrade(ctx context.Context, t model.Trade) error {
	record := ToTradeRecord(t)

	tx := p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trade_id"}},
		DoNothing: true,
	}).Create(record)

	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return fmt.Errorf("duplicate trade skipped: trade_id=%d symbol=%s",
			record.TradeID, record.Symbol)
	}

	return nil
}

// GetTradesBySymbol returns archived trades for a symbol in acceptance
// order.
func (p *PostgresClient) GetTradesBySymbol(ctx context.Context, symbol string) ([]TradeRecord, error) {
	var records []TradeRecord
	err := p.DB.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("trade_id ASC").
		Find(&records).Error

	if err != nil {
		return nil, err
	}
	return records, nil
}

// CountTrades returns the number of archived trades.
func (p *PostgresClient) CountTrades(ctx context.Context) (int64, error) {
	var count int64
	err := p.DB.WithContext(ctx).Model(&TradeRecord{}).Count(&count).Error
	return count, err
}

// DeleteTradesBefore prunes archived trades executed before the cutoff.
func (p *PostgresClient) DeleteTradesBefore(ctx context.Context, before time.Time) error {
	return p.DB.WithContext(ctx).
		Where("timestamp < ?", before).
		Delete(&TradeRecord{}).Error
}

// ToTradeRecord converts an accepted trade into its archive row.
func ToTradeRecord(t model.Trade) *TradeRecord {
	return &TradeRecord{
		TradeID:   t.ID,
		Symbol:    t.Symbol,
		Price:     t.Price,
		Quantity:  t.Quantity,
		BrokerID:  t.BrokerID,
		Timestamp: t.Timestamp,
	}
}
