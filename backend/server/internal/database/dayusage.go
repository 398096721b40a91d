package database

import (
	"context"
	"fmt"
	"time"

	"github.com/david082321/runtime-tracker/shared"
	"gorm.io/gorm/clause"
)

func (db *DB) DayUsageFindOne(ctx context.Context, deviceID string, day time.Time, appName string) (*shared.DayUsage, error) {
	var records []*shared.DayUsage
	tx := db.WithContext(ctx).Where("device_id = ? AND day = ? AND app_name = ?", deviceID, day, appName).Limit(1).Find(&records)
	if tx.Error != nil {
		return nil, fmt.Errorf("tx.Error: %w", tx.Error)
	}

	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

func (db *DB) DayUsageForDays(ctx context.Context, deviceID string, days []time.Time) ([]*shared.DayUsage, error) {
	var records []*shared.DayUsage
	tx := db.WithContext(ctx).Where("device_id = ? AND day IN ?", deviceID, days).Find(&records)
	if tx.Error != nil {
		return nil, fmt.Errorf("tx.Error: %w", tx.Error)
	}

	return records, nil
}

func (db *DB) DayUsageUpsert(ctx context.Context, record *shared.DayUsage) error {
	tx := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}, {Name: "day"}, {Name: "app_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"hours"}),
	}).Create(record)
	if tx.Error != nil {
		return fmt.Errorf("tx.Error: %w", tx.Error)
	}

	return nil
}

func (db *DB) CountDayUsageRecords(ctx context.Context) (int64, error) {
	var count int64
	tx := db.WithContext(ctx).Model(&shared.DayUsage{}).Count(&count)
	if tx.Error != nil {
		return 0, fmt.Errorf("tx.Error: %w", tx.Error)
	}

	return count, nil
}

func (db *DB) DistinctRecordedDevices(ctx context.Context) (int64, error) {
	row := db.WithContext(ctx).Raw("SELECT COUNT(DISTINCT day_usages.device_id) FROM day_usages").Row()
	var numDevices int64
	if err := row.Scan(&numDevices); err != nil {
		return 0, fmt.Errorf("row.Scan: %w", err)
	}

	return numDevices, nil
}

func (db *DB) Unsafe_DeleteAllDayUsage(ctx context.Context) error {
	tx := db.WithContext(ctx).Exec("DELETE FROM day_usages")
	if tx.Error != nil {
		return fmt.Errorf("tx.Error: %w", tx.Error)
	}

	return nil
}
