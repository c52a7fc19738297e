package gormstore

import (
	"context"
	"errors"

	"exeq/internal/store"
	"exeq/internal/store/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func (s *GormStore) CreateOrder(ctx context.Context, order *model.OrderModel) error {
	if order == nil {
		return errors.New("order cannot be nil")
	}
	return s.db.WithContext(ctx).Create(order).Error
}

func (s *GormStore) SelectOrders(ctx context.Context, filter store.OrderFilter) ([]model.OrderModel, error) {
	q := s.db.WithContext(ctx).Model(&model.OrderModel{})
	if filter.HasExternalID != nil {
		if *filter.HasExternalID {
			q = q.Where("external_order_id IS NOT NULL AND external_order_id != ''")
		} else {
			q = q.Where("external_order_id IS NULL OR external_order_id = ''")
		}
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.MarketCode != "" {
		q = q.Where("market_code = ?", filter.MarketCode)
	}
	var orders []model.OrderModel
	if err := q.Order("id ASC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *GormStore) FindOrderByExternalID(ctx context.Context, externalID string) (*model.OrderModel, error) {
	if externalID == "" {
		return nil, nil
	}
	var order model.OrderModel
	err := s.db.WithContext(ctx).Where("external_order_id = ?", externalID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *GormStore) UpdateOrderByID(ctx context.Context, id int64, filledAmount float64, status, externalID string) error {
	return s.db.WithContext(ctx).Model(&model.OrderModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"filled_amount":     filledAmount,
			"status":            status,
			"external_order_id": externalID,
		}).Error
}

func (s *GormStore) SetOrderRaw(ctx context.Context, id int64, raw []byte) error {
	return s.db.WithContext(ctx).Model(&model.OrderModel{}).
		Where("id = ?", id).
		Update("raw_data", datatypes.JSON(raw)).Error
}

func (s *GormStore) UpdateOrderByExternalID(ctx context.Context, externalID string, filledAmount float64, status string) error {
	return s.db.WithContext(ctx).Model(&model.OrderModel{}).
		Where("external_order_id = ?", externalID).
		Updates(map[string]interface{}{
			"filled_amount": filledAmount,
			"status":        status,
		}).Error
}

var _ store.OrderStore = (*GormStore)(nil)
