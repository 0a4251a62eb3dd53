package dao

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ben458-1/URL-Server-Monitor/dao/model"
)

type MetricStore struct {
	db *gorm.DB
}

func NewMetricStore(db *gorm.DB) *MetricStore {
	return &MetricStore{db: db}
}

// InsertSample writes one GPU sample and returns its generated identity.
// Process children are written separately so they always reference an
// existing sample row.
func (s *MetricStore) InsertSample(ctx context.Context, sample *model.GPUMetric) (uint, error) {
	if err := s.db.WithContext(ctx).Omit("Processes").Create(sample).Error; err != nil {
		return 0, err
	}
	return sample.ID, nil
}

// InsertProcessBatch writes the process children of one sample and returns
// the inserted count. An empty batch is valid (idle GPU).
func (s *MetricStore) InsertProcessBatch(ctx context.Context, sampleID uint, procs []model.PidMetric) (int, error) {
	if len(procs) == 0 {
		return 0, nil
	}
	for i := range procs {
		procs[i].GPUMetricID = sampleID
	}
	if err := s.db.WithContext(ctx).Create(&procs).Error; err != nil {
		return 0, err
	}
	return len(procs), nil
}

// Latest returns the newest sample per GPU for one server, processes
// preloaded.
func (s *MetricStore) Latest(ctx context.Context, serverID uint) ([]model.GPUMetric, error) {
	var metrics []model.GPUMetric
	sub := s.db.Model(&model.GPUMetric{}).
		Select("MAX(id)").
		Where("server_id = ?", serverID).
		Group("gpu_index")
	if err := s.db.WithContext(ctx).
		Preload("Processes").
		Where("id IN (?)", sub).
		Order("gpu_index").
		Find(&metrics).Error; err != nil {
		return nil, err
	}
	return metrics, nil
}

// History returns samples for one server and GPU since the given time.
func (s *MetricStore) History(ctx context.Context, serverID uint, gpuIndex int, since time.Time) ([]model.GPUMetric, error) {
	var metrics []model.GPUMetric
	if err := s.db.WithContext(ctx).
		Where("server_id = ? AND gpu_index = ? AND created_at >= ?", serverID, gpuIndex, since).
		Order("created_at").
		Find(&metrics).Error; err != nil {
		return nil, err
	}
	return metrics, nil
}
