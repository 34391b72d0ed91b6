package models

import (
	"time"
)

// Conversation 代表兩位使用者之間的私訊對話。
// ID 由兩個使用者 ID 排序後串接而成，無論呼叫順序為何都會得到同一個識別碼。
// 私訊為僅追加的列表，永不過期。
type Conversation struct {
	ID           string     `json:"id"`
	Participants [2]string  `json:"participants"`
	CreatedAt    time.Time  `json:"createdAt"`
	Messages     []*Message `json:"messages"`
}
