package pgdb

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jimlawless/whereami"
	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/internal/repository/pgdb/converter"
	"github.com/mediaplan/forecast-service/pkg/e"
	"github.com/mediaplan/forecast-service/pkg/tr"
)

// ForecastHistoryRepo сохраняет выполненные прогнозы. Работает только внутри транзакции из контекста.
type ForecastHistoryRepo struct{}

func NewForecastHistoryRepo() *ForecastHistoryRepo {
	return &ForecastHistoryRepo{}
}

func (f *ForecastHistoryRepo) Save(ctx context.Context, record *domain.ForecastRecord) error {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	model, err := converter.ForecastRecordToModel(record)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		INSERT INTO forecast_requests (
			id,
			abvrs,
			locations,
			presets,
			creative_size,
			device_category,
			duration,
			target_gender,
			target_age,
			scale,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`

	if _, err := tx.Exec(ctx, query,
		model.ID,
		model.Abvrs,
		model.Locations,
		model.Presets,
		model.CreativeSize,
		model.DeviceCategory,
		model.Duration,
		model.TargetGender,
		model.TargetAge,
		model.Scale,
		model.CreatedAt,
	); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	buckets := converter.ForecastRecordToBuckets(record)
	if len(buckets) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(buckets))
	for _, b := range buckets {
		rows = append(rows, []any{b.RequestID, b.Preset, b.LocationKey, b.Users, b.Impressions})
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"forecast_buckets"},
		[]string{"request_id", "preset", "location_key", "users", "impressions"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
