package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// TradeRow is the gorm model for a closed trade.
type TradeRow struct {
	TradeID    string    `gorm:"primaryKey;type:text"`
	Symbol     string    `gorm:"type:text;not null;index:idx_trade_symbol"`
	Volume     float64   `gorm:"type:numeric;not null"`
	EntryTime  time.Time `gorm:"not null"`
	EntryPrice float64   `gorm:"type:numeric;not null"`
	ExitTime   time.Time `gorm:"not null;index:idx_trade_exit_time"`
	ExitPrice  float64   `gorm:"type:numeric;not null"`
	PnL        float64   `gorm:"column:pnl;type:numeric;not null"`
	Reason     string    `gorm:"type:varchar(16);not null"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

func (TradeRow) TableName() string { return "sim_trades" }

// EquityRow is the gorm model for one equity point.
type EquityRow struct {
	Symbol string    `gorm:"primaryKey;type:text"`
	Time   time.Time `gorm:"primaryKey"`
	Equity float64   `gorm:"type:numeric;not null"`
}

func (EquityRow) TableName() string { return "sim_equity" }

func toTradeRow(t TradeRecord) TradeRow {
	return TradeRow{
		TradeID:    t.TradeID,
		Symbol:     t.Symbol,
		Volume:     t.Volume,
		EntryTime:  t.EntryTime.UTC(),
		EntryPrice: t.EntryPrice,
		ExitTime:   t.ExitTime.UTC(),
		ExitPrice:  t.ExitPrice,
		PnL:        t.PnL,
		Reason:     t.Reason,
	}
}

func (r TradeRow) record() TradeRecord {
	return TradeRecord{
		TradeID:    r.TradeID,
		Symbol:     r.Symbol,
		Volume:     r.Volume,
		EntryTime:  r.EntryTime,
		EntryPrice: r.EntryPrice,
		ExitTime:   r.ExitTime,
		ExitPrice:  r.ExitPrice,
		PnL:        r.PnL,
		Reason:     r.Reason,
	}
}

// Postgres records trades and equity through gorm. Duplicate keys are
// skipped, which keeps repeated runs of the same data idempotent.
type Postgres struct {
	DB *gorm.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	p := &Postgres{DB: db}
	if err := p.AutoMigrate(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) AutoMigrate() error {
	if err := p.DB.AutoMigrate(&TradeRow{}, &EquityRow{}); err != nil {
		return fmt.Errorf("auto-migrate journal tables: %w", err)
	}
	return nil
}

func (p *Postgres) RecordTrade(t TradeRecord) error {
	row := toTradeRow(t)
	return p.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func (p *Postgres) RecordEquity(e EquityPoint) error {
	row := EquityRow{Symbol: e.Symbol, Time: e.Time.UTC(), Equity: e.Equity}
	return p.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func (p *Postgres) GetTrade(ctx context.Context, tradeID string) (TradeRecord, error) {
	var row TradeRow
	err := p.DB.WithContext(ctx).Where("trade_id = ?", tradeID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TradeRecord{}, fmt.Errorf("trade %q: %w", tradeID, ErrTradeNotFound)
	}
	if err != nil {
		return TradeRecord{}, err
	}
	return row.record(), nil
}

func (p *Postgres) ListTradesClosedBetween(ctx context.Context, start, end time.Time) ([]TradeRecord, error) {
	var rows []TradeRow
	err := p.DB.WithContext(ctx).
		Where("exit_time >= ? AND exit_time < ?", start.UTC(), end.UTC()).
		Order("exit_time ASC, trade_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]TradeRecord, len(rows))
	for i, r := range rows {
		out[i] = r.record()
	}
	return out, nil
}

func (p *Postgres) IsHealthy(ctx context.Context) bool {
	db, err := p.DB.DB()
	if err != nil {
		return false
	}
	return db.PingContext(ctx) == nil
}

func (p *Postgres) Close() error {
	db, err := p.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	return db.Close()
}

var dbNameRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// CreateDatabase connects with adminDSN and creates name if it does not exist.
func CreateDatabase(ctx context.Context, adminDSN, name string) error {
	if !dbNameRE.MatchString(name) {
		return fmt.Errorf("invalid database name %q", name)
	}

	db, err := sql.Open("postgres", adminDSN)
	if err != nil {
		return fmt.Errorf("connect failed: %w", err)
	}
	defer db.Close()

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1);`
	if err := db.QueryRowContext(ctx, query, name).Scan(&exists); err != nil {
		return fmt.Errorf("check db exists failed: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %s", name)); err != nil {
		return fmt.Errorf("create db failed: %w", err)
	}
	return nil
}
