package store

import (
	"context"
	"errors"
	"fmt"

	"lipia/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// GormStore keeps the same cache in postgres so it survives restarts.
// It is still a cache: the remote API wins on every successful fetch.
type GormStore struct {
	DB *gorm.DB
}

// OpenPostgres connects to databaseURL with the settings GormStore expects.
func OpenPostgres(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) Migrate() error {
	if err := s.DB.AutoMigrate(&models.User{}, &models.Transaction{}); err != nil {
		return fmt.Errorf("migrate cache tables: %w", err)
	}
	return nil
}

func (s *GormStore) PutUser(ctx context.Context, user models.User) error {
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&user).Error
}

func (s *GormStore) GetUser(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("username = ?", username).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) UserExists(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormStore) AppendTransaction(ctx context.Context, txn models.Transaction) error {
	// the surrogate key keeps duplicate transaction IDs insertable
	txn.ID = 0
	return s.DB.WithContext(ctx).Create(&txn).Error
}

func (s *GormStore) TransactionsByUser(ctx context.Context, username string) ([]models.Transaction, error) {
	txns := []models.Transaction{}
	if err := s.DB.WithContext(ctx).Where("user_id = ?", username).Order("id").Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (s *GormStore) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	var txn models.Transaction
	if err := s.DB.WithContext(ctx).Where("transaction_id = ?", transactionID).Order("id").Take(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &txn, nil
}

func (s *GormStore) UpdateTransaction(ctx context.Context, transactionID string, status models.TransactionStatus, reference string) error {
	txn, err := s.GetTransaction(ctx, transactionID)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{"status": status}
	if reference != "" {
		updates["reference"] = reference
	}
	return s.DB.WithContext(ctx).Model(&models.Transaction{}).Where("id = ?", txn.ID).Updates(updates).Error
}

func (s *GormStore) Reset(ctx context.Context) error {
	db := s.DB.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	if err := db.Delete(&models.Transaction{}).Error; err != nil {
		return err
	}
	return db.Delete(&models.User{}).Error
}

func (s *GormStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	db := s.DB.WithContext(ctx)
	if err := db.Model(&models.User{}).Count(&stats.Users).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&models.Transaction{}).Count(&stats.Transactions).Error; err != nil {
		return stats, err
	}
	return stats, nil
}
