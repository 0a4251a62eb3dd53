// Package dao provides the gorm-backed stores consumed by the services.
// Service packages declare the interfaces they need; the structs here
// satisfy them.
package dao

import (
	"context"

	"gorm.io/gorm"

	"github.com/ben458-1/URL-Server-Monitor/dao/model"
)

type ServerStore struct {
	db *gorm.DB
}

func NewServerStore(db *gorm.DB) *ServerStore {
	return &ServerStore{db: db}
}

// ListAll returns the full fleet, encrypted key material included.
func (s *ServerStore) ListAll(ctx context.Context) ([]model.GPUServer, error) {
	var servers []model.GPUServer
	if err := s.db.WithContext(ctx).Order("id").Find(&servers).Error; err != nil {
		return nil, err
	}
	return servers, nil
}

func (s *ServerStore) GetByID(ctx context.Context, id uint) (*model.GPUServer, error) {
	var server model.GPUServer
	if err := s.db.WithContext(ctx).First(&server, id).Error; err != nil {
		return nil, err
	}
	return &server, nil
}

func (s *ServerStore) Create(ctx context.Context, server *model.GPUServer) error {
	return s.db.WithContext(ctx).Create(server).Error
}

func (s *ServerStore) Update(ctx context.Context, server *model.GPUServer) error {
	return s.db.WithContext(ctx).Save(server).Error
}

func (s *ServerStore) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&model.GPUServer{}, id).Error
}
