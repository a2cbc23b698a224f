package lifecycle

import (
	"errors"
	"fmt"

	"offerhouse/models"
)

var (
	// ErrProhibitedTransition 代表目前狀態不允許此操作，屬於呼叫端錯誤，不應重試
	ErrProhibitedTransition = errors.New("prohibited transition")
	// ErrUnauthorized 代表目前的操作者沒有權限執行此轉換
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidTransitionArgument 代表轉換所需的參數不合法，例如不存在的得標出價
	ErrInvalidTransitionArgument = errors.New("invalid transition argument")
	// ErrInconsistentState 代表內部不變量被破壞，需要人工介入
	ErrInconsistentState = errors.New("inconsistent state")
	// ErrConcurrencyConflict 代表其他操作者已經先一步轉換了此商品
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	// ErrUnmappedStatus 代表狀態沒有對應的策略，屬於設定錯誤
	ErrUnmappedStatus = errors.New("unmapped status")

	// ErrOfferNotFound 代表商品不存在
	ErrOfferNotFound = errors.New("offer not found")
	// ErrBidNotFound 代表出價不存在
	ErrBidNotFound = errors.New("bid not found")
	// ErrRejectionReasonNotFound 代表退回原因不存在
	ErrRejectionReasonNotFound = errors.New("rejection reason not found")
	// ErrUserNotFound 代表解析操作者時找不到對應的使用者
	ErrUserNotFound = errors.New("user not found")
)

// IsFatal 判斷錯誤是否需要人工介入而不應自動重試
func IsFatal(err error) bool {
	return errors.Is(err, ErrInconsistentState) || errors.Is(err, ErrUnmappedStatus)
}

func prohibited(op Op, status models.Status) error {
	return fmt.Errorf("%w: %s is not allowed in %s", ErrProhibitedTransition, op, status)
}

func inconsistent(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInconsistentState, fmt.Sprintf(format, args...))
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransitionArgument, fmt.Sprintf(format, args...))
}
