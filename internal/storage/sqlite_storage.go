package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/tonkeeper/tongo/ton"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"tierraffle/internal/logger"
)

type SqliteStorage struct {
	db *gorm.DB
}

func NewSqliteStorage(path string) (*SqliteStorage, error) {

	logger.Debug("initializing database...", zap.String("path", path))
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite has a single writer; one connection keeps transactions from
	// tripping over "database is locked".
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&raffleAccountRow{},
		&tokenBalanceRow{},
		&settlementRow{},
	)
	if err != nil {
		return nil, err
	}

	logger.Debug("initializing database... done")
	return &SqliteStorage{
		db: db,
	}, nil
}

func (s *SqliteStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SqliteStorage) GetRaffleAccount(ctx context.Context, tierID string) (*RaffleAccount, error) {
	return getRaffleAccount(s.db.WithContext(ctx), tierID)
}

func (s *SqliteStorage) Balance(ctx context.Context, owner ton.AccountID) (uint64, error) {
	return balance(s.db.WithContext(ctx), owner)
}

func (s *SqliteStorage) Fund(ctx context.Context, owner ton.AccountID, amount uint64) error {
	return s.Update(ctx, func(tx Tx) error {
		return tx.Credit(owner, amount)
	})
}

func (s *SqliteStorage) Settlements(ctx context.Context, tierID string) ([]*Settlement, error) {

	var rows []*settlementRow
	err := s.db.WithContext(ctx).
		Where("tier_id = ?", tierID).
		Order("round asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	settlements := make([]*Settlement, 0, len(rows))
	for _, row := range rows {
		settlement, err := row.toSettlement()
		if err != nil {
			return nil, err
		}
		settlements = append(settlements, settlement)
	}

	return settlements, nil
}

func (s *SqliteStorage) Update(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&sqliteTx{db: db})
	})
}

type sqliteTx struct {
	db *gorm.DB
}

func (t *sqliteTx) GetRaffleAccount(tierID string) (*RaffleAccount, error) {
	return getRaffleAccount(t.db, tierID)
}

func (t *sqliteTx) CreateRaffleAccount(account *RaffleAccount) error {
	logger.Debug("creating raffle account...", zap.String("tier", account.TierID))

	var count int64
	err := t.db.Model(&raffleAccountRow{}).
		Where("tier_id = ? or address = ?", account.TierID, formatAddress(account.Address)).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("raffle account %s: %w", account.TierID, ErrAlreadyExists)
	}

	account.Version = 1
	if err := t.db.Create(newRaffleAccountRow(account)).Error; err != nil {
		return err
	}

	logger.Debug("creating raffle account... done", zap.String("tier", account.TierID))
	return nil
}

func (t *sqliteTx) PutRaffleAccount(account *RaffleAccount) error {
	row := newRaffleAccountRow(account)

	result := t.db.Model(&raffleAccountRow{}).
		Where("tier_id = ? and version = ?", account.TierID, account.Version).
		Updates(map[string]interface{}{
			"authority":          row.Authority,
			"round":              row.Round,
			"participants":       row.Participants,
			"participants_count": row.ParticipantsCount,
			"winner":             row.Winner,
			"winner_slot":        row.WinnerSlot,
			"winner_entropy":     row.WinnerEntropy,
			"status":             row.Status,
			"version":            account.Version + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("raffle account %s at version %d: %w", account.TierID, account.Version, ErrConflict)
	}

	account.Version++
	return nil
}

func (t *sqliteTx) CreateVault(owner ton.AccountID) error {
	return t.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&tokenBalanceRow{Owner: formatAddress(owner)}).Error
}

func (t *sqliteTx) Balance(owner ton.AccountID) (uint64, error) {
	return balance(t.db, owner)
}

func (t *sqliteTx) Credit(owner ton.AccountID, amount uint64) error {
	if amount == 0 {
		return nil
	}
	current, err := balance(t.db, owner)
	if err != nil {
		return err
	}
	if err := checkCredit(owner, current, amount); err != nil {
		return err
	}
	return t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"amount": gorm.Expr("amount + excluded.amount")}),
	}).Create(&tokenBalanceRow{Owner: formatAddress(owner), Amount: amount}).Error
}

func (t *sqliteTx) Transfer(from, to ton.AccountID, amount uint64) error {
	if amount == 0 {
		return nil
	}

	if from == to {
		available, err := balance(t.db, from)
		if err != nil {
			return err
		}
		if available < amount {
			return fmt.Errorf("%s holds %d, needs %d: %w", from.ToRaw(), available, amount, ErrInsufficientFunds)
		}
		return nil
	}

	held, err := balance(t.db, to)
	if err != nil {
		return err
	}
	if err := checkCredit(to, held, amount); err != nil {
		return err
	}

	result := t.db.Model(&tokenBalanceRow{}).
		Where("owner = ? and amount >= ?", formatAddress(from), amount).
		Update("amount", gorm.Expr("amount - ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		available, err := balance(t.db, from)
		if err != nil {
			return err
		}
		return fmt.Errorf("%s holds %d, needs %d: %w", from.ToRaw(), available, amount, ErrInsufficientFunds)
	}

	return t.Credit(to, amount)
}

func (t *sqliteTx) RecordSettlement(settlement *Settlement) error {
	err := t.db.Create(newSettlementRow(settlement)).Error
	if err != nil {
		return fmt.Errorf("record settlement %s round %d: %w", settlement.TierID, settlement.Round, err)
	}
	return nil
}

func getRaffleAccount(db *gorm.DB, tierID string) (*RaffleAccount, error) {

	var row raffleAccountRow
	err := db.Where("tier_id = ?", tierID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("raffle account %s: %w", tierID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	return row.toRaffleAccount()
}

func balance(db *gorm.DB, owner ton.AccountID) (uint64, error) {

	var amount uint64
	err := db.Raw(`
		select coalesce(max(amount), 0) as amount
		from token_balances
		where owner = ?
	`, formatAddress(owner)).Scan(&amount).Error
	if err != nil {
		return 0, err
	}

	return amount, nil
}
