package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/trevortrinh/vigil-hypertrace/pkg/types"
	"go.uber.org/zap"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// newPostgresStorageFromDB wraps an existing connection, for tests.
func newPostgresStorageFromDB(db *sql.DB, logger *zap.Logger) *PostgresStorage {
	return &PostgresStorage{db: db, logger: logger}
}

// ReplaceDailyBuckets deletes and rewrites all rows for (account, day in
// [start, end]) in one transaction. This is the replace-window contract:
// re-running a window always converges to the same rows.
func (p *PostgresStorage) ReplaceDailyBuckets(ctx context.Context, accountID string, start, end time.Time, buckets []*types.DailyBucket) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM daily_buckets WHERE account_id = $1 AND day >= $2 AND day <= $3`,
		accountID, start, end,
	)
	if err != nil {
		return fmt.Errorf("delete window: %w", err)
	}

	const insert = `
		INSERT INTO daily_buckets (
			account_id, day, fill_count, volume, realized_pnl, fees,
			maker_fills, taker_fills, winning_trades, losing_trades,
			liquidation_fills, instruments, open_long_fills, open_short_fills
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	for _, b := range buckets {
		_, err = tx.ExecContext(ctx, insert,
			b.AccountID, b.Day, b.FillCount, b.Volume, b.RealizedPnl, b.Fees,
			b.MakerFills, b.TakerFills, b.WinningTrades, b.LosingTrades,
			b.LiquidationFills, b.Instruments, b.OpenLongFills, b.OpenShortFills,
		)
		if err != nil {
			return fmt.Errorf("insert bucket %s/%s: %w", b.AccountID, b.Day.Format("2006-01-02"), err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit window: %w", err)
	}

	p.logger.Debug("daily-buckets-replaced",
		zap.String("account", accountID),
		zap.Int("buckets", len(buckets)))

	return nil
}

// DailyBuckets returns one account's buckets ordered by day.
func (p *PostgresStorage) DailyBuckets(ctx context.Context, accountID string) ([]*types.DailyBucket, error) {
	const query = `
		SELECT account_id, day, fill_count, volume, realized_pnl, fees,
		       maker_fills, taker_fills, winning_trades, losing_trades,
		       liquidation_fills, instruments, open_long_fills, open_short_fills
		FROM daily_buckets
		WHERE account_id = $1
		ORDER BY day
	`

	rows, err := p.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("query buckets: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []*types.DailyBucket
	for rows.Next() {
		var b types.DailyBucket
		err = rows.Scan(
			&b.AccountID, &b.Day, &b.FillCount, &b.Volume, &b.RealizedPnl, &b.Fees,
			&b.MakerFills, &b.TakerFills, &b.WinningTrades, &b.LosingTrades,
			&b.LiquidationFills, &b.Instruments, &b.OpenLongFills, &b.OpenShortFills,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		out = append(out, &b)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate buckets: %w", err)
	}

	return out, nil
}

// BucketAccounts returns all account ids with at least one bucket.
func (p *PostgresStorage) BucketAccounts(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT DISTINCT account_id FROM daily_buckets ORDER BY account_id`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []string
	for rows.Next() {
		var accountID string
		err = rows.Scan(&accountID)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, accountID)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return out, nil
}

// UpsertProfile writes a profile wholesale.
func (p *PostgresStorage) UpsertProfile(ctx context.Context, profile *types.TraderProfile) error {
	const query = `
		INSERT INTO trader_profiles (
			account_id, first_day, last_day, total_fills, total_volume,
			net_pnl, total_fees, maker_fills, taker_fills, winning_trades,
			losing_trades, liquidation_fills, open_long_fills, open_short_fills,
			trading_days, maker_pct, win_rate, mtm_tv, risk_ratio, classification
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)
		ON CONFLICT (account_id) DO UPDATE SET
			first_day = EXCLUDED.first_day,
			last_day = EXCLUDED.last_day,
			total_fills = EXCLUDED.total_fills,
			total_volume = EXCLUDED.total_volume,
			net_pnl = EXCLUDED.net_pnl,
			total_fees = EXCLUDED.total_fees,
			maker_fills = EXCLUDED.maker_fills,
			taker_fills = EXCLUDED.taker_fills,
			winning_trades = EXCLUDED.winning_trades,
			losing_trades = EXCLUDED.losing_trades,
			liquidation_fills = EXCLUDED.liquidation_fills,
			open_long_fills = EXCLUDED.open_long_fills,
			open_short_fills = EXCLUDED.open_short_fills,
			trading_days = EXCLUDED.trading_days,
			maker_pct = EXCLUDED.maker_pct,
			win_rate = EXCLUDED.win_rate,
			mtm_tv = EXCLUDED.mtm_tv,
			risk_ratio = EXCLUDED.risk_ratio,
			classification = EXCLUDED.classification
	`

	_, err := p.db.ExecContext(ctx, query,
		profile.AccountID, profile.FirstDay, profile.LastDay, profile.TotalFills, profile.TotalVolume,
		profile.NetPnl, profile.TotalFees, profile.MakerFills, profile.TakerFills, profile.WinningTrades,
		profile.LosingTrades, profile.LiquidationFills, profile.OpenLongFills, profile.OpenShortFills,
		profile.TradingDays, profile.MakerPct, profile.WinRate, profile.MtmTV, profile.RiskRatio,
		string(profile.Classification),
	)
	if err != nil {
		return fmt.Errorf("upsert profile %s: %w", profile.AccountID, err)
	}

	return nil
}

const profileColumns = `
	account_id, first_day, last_day, total_fills, total_volume,
	net_pnl, total_fees, maker_fills, taker_fills, winning_trades,
	losing_trades, liquidation_fills, open_long_fills, open_short_fills,
	trading_days, maker_pct, win_rate, mtm_tv, risk_ratio, classification
`

func scanProfile(rows interface {
	Scan(dest ...interface{}) error
}) (*types.TraderProfile, error) {
	var p types.TraderProfile
	var tag string

	err := rows.Scan(
		&p.AccountID, &p.FirstDay, &p.LastDay, &p.TotalFills, &p.TotalVolume,
		&p.NetPnl, &p.TotalFees, &p.MakerFills, &p.TakerFills, &p.WinningTrades,
		&p.LosingTrades, &p.LiquidationFills, &p.OpenLongFills, &p.OpenShortFills,
		&p.TradingDays, &p.MakerPct, &p.WinRate, &p.MtmTV, &p.RiskRatio, &tag,
	)
	if err != nil {
		return nil, err
	}

	p.Classification = types.Classification(tag)
	return &p, nil
}

// Profile returns one account's profile, or ErrNotFound.
func (p *PostgresStorage) Profile(ctx context.Context, accountID string) (*types.TraderProfile, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM trader_profiles WHERE account_id = $1`,
		accountID,
	)

	profile, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile: %w", err)
	}

	return profile, nil
}

// TopProfiles returns tagged profiles ordered by risk ratio descending.
func (p *PostgresStorage) TopProfiles(ctx context.Context, tag types.Classification, limit int) ([]*types.TraderProfile, error) {
	query := `SELECT ` + profileColumns + `
		FROM trader_profiles
		WHERE classification = $1
		ORDER BY risk_ratio DESC, account_id`

	args := []interface{}{string(tag)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []*types.TraderProfile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, profile)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}

	return out, nil
}

// InsertClosedTrades appends to the closed-trade audit log.
func (p *PostgresStorage) InsertClosedTrades(ctx context.Context, trades []*types.ClosedTrade) error {
	const query = `
		INSERT INTO closed_trades (
			id, account_id, instrument, opened_at, closed_at,
			closed_size, realized_pnl, was_long, liquidated, inconsistent_tag
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	for _, t := range trades {
		_, err := p.db.ExecContext(ctx, query,
			t.ID, t.AccountID, t.Instrument, t.OpenedAt, t.ClosedAt,
			t.ClosedSize, t.RealizedPnl, t.WasLong, t.Liquidated, t.InconsistentTag,
		)
		if err != nil {
			return fmt.Errorf("insert closed trade %s: %w", t.ID, err)
		}
	}

	return nil
}

// ReplaceClosedTrades swaps one key's audit rows for the regenerated set
// in one transaction.
func (p *PostgresStorage) ReplaceClosedTrades(ctx context.Context, accountID, instrument string, trades []*types.ClosedTrade) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM closed_trades WHERE account_id = $1 AND instrument = $2`,
		accountID, instrument,
	)
	if err != nil {
		return fmt.Errorf("delete key trades: %w", err)
	}

	const insert = `
		INSERT INTO closed_trades (
			id, account_id, instrument, opened_at, closed_at,
			closed_size, realized_pnl, was_long, liquidated, inconsistent_tag
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	for _, t := range trades {
		_, err = tx.ExecContext(ctx, insert,
			t.ID, t.AccountID, t.Instrument, t.OpenedAt, t.ClosedAt,
			t.ClosedSize, t.RealizedPnl, t.WasLong, t.Liquidated, t.InconsistentTag,
		)
		if err != nil {
			return fmt.Errorf("insert closed trade %s: %w", t.ID, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit trade replace: %w", err)
	}

	p.logger.Debug("closed-trades-replaced",
		zap.String("account", accountID),
		zap.String("instrument", instrument),
		zap.Int("trades", len(trades)))

	return nil
}

// ReplaceSignals replaces the signal set wholesale in one transaction.
func (p *PostgresStorage) ReplaceSignals(ctx context.Context, signals []*types.AssetSignal) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `DELETE FROM asset_signals`)
	if err != nil {
		return fmt.Errorf("delete signals: %w", err)
	}

	const insert = `
		INSERT INTO asset_signals (
			instrument, bucket_start, long_volume, short_volume, account_count, net_bias
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, s := range signals {
		_, err = tx.ExecContext(ctx, insert,
			s.Instrument, s.BucketStart, s.LongVolume, s.ShortVolume, s.AccountCount, s.NetBias,
		)
		if err != nil {
			return fmt.Errorf("insert signal %s/%s: %w", s.Instrument, s.BucketStart.Format(time.RFC3339), err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit signal replace: %w", err)
	}

	return nil
}

// Signals returns signal buckets for one instrument, newest first.
func (p *PostgresStorage) Signals(ctx context.Context, instrument string, limit int) ([]*types.AssetSignal, error) {
	query := `
		SELECT instrument, bucket_start, long_volume, short_volume, account_count, net_bias
		FROM asset_signals
		WHERE instrument = $1
		ORDER BY bucket_start DESC`

	args := []interface{}{instrument}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []*types.AssetSignal
	for rows.Next() {
		var s types.AssetSignal
		err = rows.Scan(&s.Instrument, &s.BucketStart, &s.LongVolume, &s.ShortVolume, &s.AccountCount, &s.NetBias)
		if err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		out = append(out, &s)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate signals: %w", err)
	}

	return out, nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
