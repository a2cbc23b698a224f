package models

// Status 代表商品在生命週期中的狀態
type Status string

const (
	StatusDraft           Status = "DRAFT"
	StatusVerification    Status = "VERIFICATION"
	StatusAuctionStarted  Status = "AUCTION_STARTED"
	StatusAuctionFinished Status = "AUCTION_FINISHED"
	StatusQualification   Status = "QUALIFICATION"
	StatusCompleted       Status = "COMPLETED"
	StatusCanceled        Status = "CANCELED"
	StatusBlockedByAdmin  Status = "BLOCKED_BY_ADMIN"
)

// AllStatuses 回傳所有合法的狀態，新增狀態時必須同時擴充生命週期的策略表
func AllStatuses() []Status {
	return []Status{
		StatusDraft,
		StatusVerification,
		StatusAuctionStarted,
		StatusAuctionFinished,
		StatusQualification,
		StatusCompleted,
		StatusCanceled,
		StatusBlockedByAdmin,
	}
}

// IsTerminal 判斷狀態是否為終止狀態
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCanceled, StatusBlockedByAdmin:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// OfferStatus 是狀態的參照資料列，由 migration 寫入
type OfferStatus struct {
	Name        Status `gorm:"type:varchar(32);primaryKey"`
	Description string `gorm:"type:text;not null;default:''"`
}
