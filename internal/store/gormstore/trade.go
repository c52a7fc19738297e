package gormstore

import (
	"context"
	"errors"

	"exeq/internal/store/model"

	"gorm.io/gorm/clause"
)

// InsertTradeIfAbsent inserts the trade unless the venue trade id is already
// present. The conflict clause makes retries and duplicate notifications
// harmless.
func (s *GormStore) InsertTradeIfAbsent(ctx context.Context, trade *model.TradeModel) (bool, error) {
	if trade == nil {
		return false, errors.New("trade cannot be nil")
	}
	if trade.TradeID == "" {
		return false, errors.New("trade id cannot be empty")
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trade_id"}},
		DoNothing: true,
	}).Create(trade)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
