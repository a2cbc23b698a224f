package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"offerhouse/lifecycle"
	"offerhouse/models"
)

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Schema   string
}

// DSN 組出 postgres 連線字串
func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s", c.User, c.Password, c.Host, c.Port, c.Database, c.Schema)
}

// Open 連線到 postgres
func Open(config Config) (*gorm.DB, error) {
	const op = "db.Open"
	prefix := ""
	if config.Schema != "" {
		prefix = config.Schema + "."
	}
	db, err := gorm.Open(postgres.Open(config.DSN()), &gorm.Config{
		TranslateError: true,
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: prefix,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: fail to connect to database: %w", op, err)
	}
	return db, nil
}

var statusDescriptions = map[models.Status]string{
	models.StatusDraft:           "Offer is being edited by its owner",
	models.StatusVerification:    "Offer is waiting for admin verification",
	models.StatusAuctionStarted:  "Offer is open for bids",
	models.StatusAuctionFinished: "Bidding closed, result not decided yet",
	models.StatusQualification:   "Owner must choose the winning bid",
	models.StatusCompleted:       "Auction is settled",
	models.StatusCanceled:        "Offer was canceled by its owner",
	models.StatusBlockedByAdmin:  "Offer was blocked by an admin",
}

// Migrate 建立資料表並寫入狀態參照資料
func Migrate(ctx context.Context, db *gorm.DB) error {
	const op = "db.Migrate"
	if err := db.WithContext(ctx).AutoMigrate(
		&models.OfferStatus{},
		&models.User{},
		&models.RejectionReason{},
		&models.Offer{},
		&models.Bid{},
		&models.StatusHistoryEntry{},
	); err != nil {
		return fmt.Errorf("%s: fail to migrate: %w", op, err)
	}

	statuses := lo.Map(models.AllStatuses(), func(s models.Status, _ int) models.OfferStatus {
		return models.OfferStatus{Name: s, Description: statusDescriptions[s]}
	})
	if result := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&statuses); result.Error != nil {
		return fmt.Errorf("%s: fail to seed offer statuses: %w", op, result.Error)
	}
	return nil
}

type storeOptions struct {
	logger *slog.Logger
}

type StoreOption func(*storeOptions)

// WithStoreLogger 設置日誌記錄器
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(o *storeOptions) {
		o.logger = logger
	}
}

// Store 是以 gorm 實作的持久層
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewStore(db *gorm.DB, opts ...StoreOption) (*Store, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}

	// 默認選項
	options := storeOptions{
		logger: slog.Default(),
	}

	// 應用自定義選項
	for _, opt := range opts {
		opt(&options)
	}

	return &Store{
		db:     db,
		logger: options.logger.With(slog.String("caller", "DBStore")),
	}, nil
}

// notFound 將 gorm 的查無資料轉換為對應的錯誤
func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

func (s *Store) CreateOffer(ctx context.Context, offer *models.Offer) error {
	if result := s.db.WithContext(ctx).Omit(clause.Associations).Create(offer); result.Error != nil {
		return fmt.Errorf("db.Store.CreateOffer: %w", result.Error)
	}
	return nil
}

func (s *Store) CreateBid(ctx context.Context, bid *models.Bid) error {
	if result := s.db.WithContext(ctx).Create(bid); result.Error != nil {
		return fmt.Errorf("db.Store.CreateBid: %w", result.Error)
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if result := s.db.WithContext(ctx).Create(user); result.Error != nil {
		return fmt.Errorf("db.Store.CreateUser: %w", result.Error)
	}
	return nil
}

func (s *Store) CreateRejectionReason(ctx context.Context, reason *models.RejectionReason) error {
	if result := s.db.WithContext(ctx).Create(reason); result.Error != nil {
		return fmt.Errorf("db.Store.CreateRejectionReason: %w", result.Error)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	var user models.User
	if result := s.db.WithContext(ctx).Where("id = ?", id).First(&user); result.Error != nil {
		return user, fmt.Errorf("db.Store.GetUser: %w", notFound(result.Error, lifecycle.ErrUserNotFound))
	}
	return user, nil
}

func (s *Store) GetOffer(ctx context.Context, id uuid.UUID) (models.Offer, error) {
	var offer models.Offer
	if result := s.db.WithContext(ctx).Where("id = ?", id).First(&offer); result.Error != nil {
		return offer, fmt.Errorf("db.Store.GetOffer: %w", notFound(result.Error, lifecycle.ErrOfferNotFound))
	}
	return offer, nil
}

// ListBids 依出價時間排序回傳商品的所有出價
func (s *Store) ListBids(ctx context.Context, offerID uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	result := s.db.WithContext(ctx).
		Where("offer_id = ?", offerID).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: "created_at"}},
			{Column: clause.Column{Name: "id"}},
		}}).
		Find(&bids)
	if result.Error != nil {
		return nil, fmt.Errorf("db.Store.ListBids: %w", result.Error)
	}
	return bids, nil
}

func (s *Store) GetBid(ctx context.Context, id uuid.UUID) (models.Bid, error) {
	var bid models.Bid
	if result := s.db.WithContext(ctx).Where("id = ?", id).First(&bid); result.Error != nil {
		return bid, fmt.Errorf("db.Store.GetBid: %w", notFound(result.Error, lifecycle.ErrBidNotFound))
	}
	return bid, nil
}

func (s *Store) GetRejectionReason(ctx context.Context, id uuid.UUID) (models.RejectionReason, error) {
	var reason models.RejectionReason
	if result := s.db.WithContext(ctx).Where("id = ?", id).First(&reason); result.Error != nil {
		return reason, fmt.Errorf("db.Store.GetRejectionReason: %w", notFound(result.Error, lifecycle.ErrRejectionReasonNotFound))
	}
	return reason, nil
}

// ApplyTransition 在同一個交易中以原狀態為條件更新商品，並新增一筆狀態紀錄
// 商品已被其他操作改變狀態時回傳 ErrConcurrencyConflict
func (s *Store) ApplyTransition(ctx context.Context, t lifecycle.Transition) error {
	const op = "db.Store.ApplyTransition"
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Offer{}).
			Where("id = ? AND status = ?", t.Offer.ID, t.From).
			Updates(map[string]any{
				"status":              t.Offer.Status,
				"winner_bid_id":       t.Offer.WinnerBidID,
				"win_bid":             t.Offer.WinBid,
				"auction_finished_at": t.Offer.AuctionFinishedAt,
				"is_active":           t.Offer.IsActive,
				"updated_at":          t.At,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if result := tx.Model(&models.Offer{}).Where("id = ?", t.Offer.ID).Count(&count); result.Error != nil {
				return result.Error
			}
			if count == 0 {
				return lifecycle.ErrOfferNotFound
			}
			return fmt.Errorf("%w: offer %s is no longer %s", lifecycle.ErrConcurrencyConflict, t.Offer.ID, t.From)
		}

		entry := t.HistoryEntry()
		if result := tx.Create(&entry); result.Error != nil {
			return result.Error
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListHistory 依時間排序回傳商品的狀態紀錄
func (s *Store) ListHistory(ctx context.Context, offerID uuid.UUID) ([]models.StatusHistoryEntry, error) {
	var entries []models.StatusHistoryEntry
	result := s.db.WithContext(ctx).
		Preload("RejectionReason").
		Where("offer_id = ?", offerID).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: "created_at"}},
			{Column: clause.Column{Name: "id"}},
		}}).
		Find(&entries)
	if result.Error != nil {
		return nil, fmt.Errorf("db.Store.ListHistory: %w", result.Error)
	}
	return entries, nil
}

// FindDueAuctions 找出拍賣中且已過截止時間、未被標記的商品，依截止時間排序
// exclude 用於分頁時略過同一次排程已處理過的商品
func (s *Store) FindDueAuctions(ctx context.Context, now time.Time, exclude []uuid.UUID, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := s.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("status = ? AND needs_attention = ? AND auction_finished_at <= ?", models.StatusAuctionStarted, false, now.UTC())
	if len(exclude) > 0 {
		query = query.Where("id NOT IN ?", exclude)
	}
	result := query.
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: "auction_finished_at"}},
			{Column: clause.Column{Name: "id"}},
		}}).
		Limit(limit).
		Pluck("id", &ids)
	if result.Error != nil {
		return nil, fmt.Errorf("db.Store.FindDueAuctions: %w", result.Error)
	}
	return ids, nil
}

// FindStrandedAuctions 找出已結束拍賣但尚未決定結果的商品
func (s *Store) FindStrandedAuctions(ctx context.Context, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	result := s.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("status = ? AND needs_attention = ?", models.StatusAuctionFinished, false).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: "updated_at"}},
			{Column: clause.Column{Name: "id"}},
		}}).
		Limit(limit).
		Pluck("id", &ids)
	if result.Error != nil {
		return nil, fmt.Errorf("db.Store.FindStrandedAuctions: %w", result.Error)
	}
	return ids, nil
}

func (s *Store) FlagForAttention(ctx context.Context, offerID uuid.UUID, note string) error {
	const op = "db.Store.FlagForAttention"
	result := s.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("id = ?", offerID).
		Updates(map[string]any{
			"needs_attention": true,
			"attention_note":  note,
		})
	if result.Error != nil {
		return fmt.Errorf("%s: %w", op, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, lifecycle.ErrOfferNotFound)
	}
	s.logger.Warn("Offer flagged for attention", slog.String("offerID", offerID.String()), slog.String("note", note))
	return nil
}
