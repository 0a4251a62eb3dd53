package dao

import (
	"context"

	"gorm.io/gorm"

	"github.com/ben458-1/URL-Server-Monitor/dao/model"
)

type URLStore struct {
	db *gorm.DB
}

func NewURLStore(db *gorm.DB) *URLStore {
	return &URLStore{db: db}
}

func (s *URLStore) ListAll(ctx context.Context) ([]model.URL, error) {
	var urls []model.URL
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&urls).Error; err != nil {
		return nil, err
	}
	return urls, nil
}

// ListEnabled returns only URLs with health checking switched on.
func (s *URLStore) ListEnabled(ctx context.Context) ([]model.URL, error) {
	var urls []model.URL
	if err := s.db.WithContext(ctx).Where("health_check_enabled").Find(&urls).Error; err != nil {
		return nil, err
	}
	return urls, nil
}

func (s *URLStore) GetByID(ctx context.Context, id uint) (*model.URL, error) {
	var url model.URL
	if err := s.db.WithContext(ctx).First(&url, id).Error; err != nil {
		return nil, err
	}
	return &url, nil
}

func (s *URLStore) Create(ctx context.Context, url *model.URL) error {
	return s.db.WithContext(ctx).Create(url).Error
}

func (s *URLStore) Update(ctx context.Context, url *model.URL) error {
	return s.db.WithContext(ctx).Save(url).Error
}

func (s *URLStore) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&model.URL{}, id).Error
}

type HealthStore struct {
	db *gorm.DB
}

func NewHealthStore(db *gorm.DB) *HealthStore {
	return &HealthStore{db: db}
}

func (s *HealthStore) Insert(ctx context.Context, status *model.HealthStatus) error {
	return s.db.WithContext(ctx).Create(status).Error
}

// Latest returns the newest check result per URL.
func (s *HealthStore) Latest(ctx context.Context) ([]model.HealthStatus, error) {
	var statuses []model.HealthStatus
	sub := s.db.Model(&model.HealthStatus{}).Select("MAX(id)").Group("url_id")
	if err := s.db.WithContext(ctx).Where("id IN (?)", sub).Find(&statuses).Error; err != nil {
		return nil, err
	}
	return statuses, nil
}
