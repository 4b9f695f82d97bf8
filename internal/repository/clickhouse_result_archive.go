package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"AutoOptimiser/internal/domain/models"
	drepo "AutoOptimiser/internal/domain/repository"
	pkgch "AutoOptimiser/pkg/clickhouse"
	"AutoOptimiser/pkg/logger"
)

// CHResultArchive keeps result records of finished sessions in ClickHouse.
// Headline coefficients get their own columns; the full bundle and the
// parameter set are stored as JSON.
type CHResultArchive struct {
	client *pkgch.Client
	db     *sql.DB
	table  string
	l      *logger.Logger
}

var _ drepo.ResultArchive = (*CHResultArchive)(nil)

func NewCHResultArchive(client *pkgch.Client, table string, lgr *logger.Logger) *CHResultArchive {
	return &CHResultArchive{client: client, db: client.DB(), table: table, l: lgr}
}

func (a *CHResultArchive) Init(ctx context.Context) error {
	const ddl = `
        CREATE TABLE IF NOT EXISTS %s (
            session_id      String,
            category        LowCardinality(String),
            symbol          LowCardinality(String),
            timeframe       LowCardinality(String),
            from_ts         DateTime,
            till_ts         DateTime,
            pl              Float64,
            dd              Float64,
            profit_factor   Float64,
            recovery_factor Float64,
            total_trades    Int32,
            rank            Float64,
            coefficients    String,
            params          String,
            stored_at       DateTime
        ) ENGINE = MergeTree
        ORDER BY (session_id, category, from_ts)
    `
	return a.client.InitSchema(ctx, []string{fmt.Sprintf(ddl, a.table)})
}

// StoreBatch inserts records in one transaction using a prepared statement,
// which the driver sends as a single block.
func (a *CHResultArchive) StoreBatch(ctx context.Context, sessionID string, category models.Category, records []models.ResultRecord) error {
	if len(records) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive batch: %w", err)
	}
	q := fmt.Sprintf(`INSERT INTO %s (session_id, category, symbol, timeframe, from_ts, till_ts, pl, dd,
        profit_factor, recovery_factor, total_trades, rank, coefficients, params, stored_at)`, a.table)
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare archive batch: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range records {
		r := &records[i]
		coefs, err := json.Marshal(r.Coefficients)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode coefficients: %w", err)
		}
		params, err := json.Marshal(r.Params)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode params: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			sessionID,
			string(category),
			r.Symbol,
			r.Timeframe,
			r.Interval.From(),
			r.Interval.Till(),
			r.Coefficients.PL,
			r.Coefficients.DD,
			r.Coefficients.ProfitFactor,
			r.Coefficients.RecoveryFactor,
			int32(r.Coefficients.TotalTrades),
			r.Rank,
			string(coefs),
			string(params),
			now,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append archive row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		if a.l != nil {
			a.l.Error("clickhouse archive commit error",
				logger.String("table", a.table),
				logger.String("session", sessionID),
				logger.Error(err))
		}
		return fmt.Errorf("commit archive batch: %w", err)
	}
	if a.l != nil {
		a.l.Info("clickhouse archive ok",
			logger.String("table", a.table),
			logger.String("session", sessionID),
			logger.String("category", string(category)),
			logger.Int("rows", len(records)),
			logger.Duration("duration_ms", time.Since(start)))
	}
	return nil
}

func (a *CHResultArchive) Health(ctx context.Context) error {
	return a.client.Health(ctx)
}

// Close is a no-op; the pool belongs to the client.
func (a *CHResultArchive) Close() error {
	return nil
}
