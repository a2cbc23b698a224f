package redis

import (
	"encoding/base64"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"offerhouse/lifecycle"
)

// EncodeNotification 將通知轉換為 stream 訊息
// data 為 msgpack 序列化後的 base64 字串，kind 與 offerId 供消費端過濾
func EncodeNotification(n lifecycle.Notification) (map[string]any, error) {
	// 使用 msgpack 序列化
	bytes, err := msgpack.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("msgpack marshal error: %w", err)
	}

	return map[string]any{
		"kind":    string(n.Kind),
		"offerId": n.OfferID.String(),
		"data":    base64.StdEncoding.EncodeToString(bytes),
	}, nil
}

// DecodeNotification 將 stream 訊息轉換回通知
func DecodeNotification(message map[string]any) (lifecycle.Notification, error) {
	var result lifecycle.Notification

	// 獲取data字段
	dataStr, ok := message["data"].(string)
	if !ok {
		return result, fmt.Errorf("data field not found or invalid type")
	}

	// base64解碼
	bytes, err := base64.StdEncoding.DecodeString(dataStr)
	if err != nil {
		return result, fmt.Errorf("base64 decode error: %w", err)
	}

	// msgpack反序列化
	if err := msgpack.Unmarshal(bytes, &result); err != nil {
		return result, fmt.Errorf("msgpack unmarshal error: %w", err)
	}
	return result, nil
}
