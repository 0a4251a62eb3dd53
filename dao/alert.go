package dao

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ben458-1/URL-Server-Monitor/dao/model"
)

type AlertStore struct {
	db *gorm.DB
}

func NewAlertStore(db *gorm.DB) *AlertStore {
	return &AlertStore{db: db}
}

// LastAlert returns the most recent alert for (server, GPU), or nil if none
// was ever sent.
func (s *AlertStore) LastAlert(ctx context.Context, serverID uint, gpuIndex int) (*model.Alert, error) {
	var alert model.Alert
	err := s.db.WithContext(ctx).
		Where("server_id = ? AND gpu_index = ?", serverID, gpuIndex).
		Order("sent_at DESC").
		First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (s *AlertStore) Record(ctx context.Context, alert *model.Alert) error {
	return s.db.WithContext(ctx).Create(alert).Error
}

// History returns recent alerts, newest first, optionally for one server.
func (s *AlertStore) History(ctx context.Context, serverID *uint, limit int) ([]model.Alert, error) {
	var alerts []model.Alert
	q := s.db.WithContext(ctx).Order("sent_at DESC").Limit(limit)
	if serverID != nil {
		q = q.Where("server_id = ?", *serverID)
	}
	if err := q.Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}
