package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"autodrive-bridge/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMockTelemetryDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *TelemetryRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := zap.NewNop()
	repo := NewTelemetryRepository(db, logger)

	return db, mock, repo
}

func TestInsertSample_Success(t *testing.T) {
	db, mock, repo := setupMockTelemetryDB(t)
	defer db.Close()

	ctx := context.Background()
	now := time.Now().UnixMilli()

	sample := &models.TelemetrySample{
		VehicleID:     "1",
		Speed:         12.5,
		XPosition:     3.0,
		YPosition:     -2.5,
		Heading:       180,
		DistanceFront: 1.2,
		DistanceLeft:  0.8,
		DistanceRight: 0.9,
		Timestamp:     now,
	}

	mock.ExpectExec(`INSERT INTO telemetry_history`).
		WithArgs("1", 12.5, 3.0, -2.5, 180.0, 1.2, 0.8, 0.9, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.InsertSample(ctx, sample)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertSample_ZeroDefaults(t *testing.T) {
	db, mock, repo := setupMockTelemetryDB(t)
	defer db.Close()

	ctx := context.Background()
	now := time.Now().UnixMilli()

	// 只有 speed 的报文，其余数值字段落库为 0
	sample := &models.TelemetrySample{
		VehicleID: "1",
		Speed:     5,
		Timestamp: now,
	}

	mock.ExpectExec(`INSERT INTO telemetry_history`).
		WithArgs("1", 5.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.InsertSample(ctx, sample)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertSample_MissingVehicleID(t *testing.T) {
	db, mock, repo := setupMockTelemetryDB(t)
	defer db.Close()

	err := repo.InsertSample(context.Background(), &models.TelemetrySample{})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "vehicle_id is required")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLatestSample_Success(t *testing.T) {
	db, mock, repo := setupMockTelemetryDB(t)
	defer db.Close()

	ctx := context.Background()
	now := time.Now().UnixMilli()

	rows := sqlmock.NewRows([]string{
		"id", "vehicle_id", "speed", "x_position", "y_position",
		"heading", "distance_front", "distance_left", "distance_right", "timestamp",
	}).AddRow(int64(42), "1", 8.0, 1.0, 2.0, 45.0, 3.0, 2.0, 2.5, now)

	mock.ExpectQuery(`SELECT`).
		WithArgs("1").
		WillReturnRows(rows)

	sample, err := repo.GetLatestSample(ctx, "1")

	require.NoError(t, err)
	assert.Equal(t, int64(42), sample.ID)
	assert.Equal(t, "1", sample.VehicleID)
	assert.Equal(t, 8.0, sample.Speed)
	assert.Equal(t, now, sample.Timestamp)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLatestSample_NotFound(t *testing.T) {
	db, mock, repo := setupMockTelemetryDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).
		WithArgs("1").
		WillReturnError(sql.ErrNoRows)

	sample, err := repo.GetLatestSample(context.Background(), "1")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, sample)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetStats_Success(t *testing.T) {
	db, mock, repo := setupMockTelemetryDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"count", "avg", "max"}).
		AddRow(int64(120), 7.5, 15.0)

	mock.ExpectQuery(`SELECT`).
		WithArgs("1", sqlmock.AnyArg()).
		WillReturnRows(rows)

	stats, err := repo.GetStats(context.Background(), "1", 24)

	require.NoError(t, err)
	assert.Equal(t, int64(120), stats.SampleCount)
	assert.Equal(t, 7.5, stats.AvgSpeed)
	assert.Equal(t, 15.0, stats.MaxSpeed)
	assert.Equal(t, 24, stats.WindowHours)

	require.NoError(t, mock.ExpectationsWereMet())
}
