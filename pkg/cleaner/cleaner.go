// Package cleaner prunes time-series tables past the retention window.
package cleaner

import (
	"context"
	"time"

	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/ben458-1/URL-Server-Monitor/dao/model"
)

type Cleaner struct {
	db        *gorm.DB
	retention time.Duration
}

func New(db *gorm.DB, retentionDays int) *Cleaner {
	if retentionDays < 1 {
		retentionDays = 1
	}
	return &Cleaner{
		db:        db,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
	}
}

// Run deletes rows older than the retention cutoff. PidMetric goes before
// GPUMetric so children never outlive their parent sample.
func (c *Cleaner) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-c.retention)
	klog.Infof("Database cleanup: removing records older than %s", cutoff.Format(time.RFC3339))

	db := c.db.WithContext(ctx)
	total := int64(0)
	total += prune("health_status", db.Where("checked_at < ?", cutoff).Delete(&model.HealthStatus{}))
	total += prune("pid_metrics", db.Where("created_at < ?", cutoff).Delete(&model.PidMetric{}))
	total += prune("gpu_metrics", db.Where("created_at < ?", cutoff).Delete(&model.GPUMetric{}))

	klog.Infof("Database cleanup completed, %d records deleted", total)
	return nil
}

func prune(table string, tx *gorm.DB) int64 {
	if tx.Error != nil {
		// one table's failure must not stop the others
		klog.Errorf("Cleaning up %s: %v", table, tx.Error)
		return 0
	}
	klog.V(2).Infof("Deleted %d rows from %s", tx.RowsAffected, table)
	return tx.RowsAffected
}
