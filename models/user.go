package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RegisterRequest 結構體用於處理註冊請求
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// ErrorResponse 結構體用於返回 JSON 格式的錯誤訊息
type ErrorResponse struct {
	Message string `json:"message"`
}

// User 結構體定義了持久帳號的欄位。
// 帳號是選配的：匿名參與者只有穩定參與者 ID，登入後才會多帶一個帳號 ID。
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"` // MongoDB 的唯一 ID
	Email     string             `bson:"email" json:"email"`                // 使用者 Email
	Username  string             `bson:"username" json:"username"`          // 使用者名稱
	Password  string             `bson:"password,omitempty" json:"-"`       // 儲存哈希後的密碼，JSON 輸出時忽略
	GoogleID  string             `bson:"googleId,omitempty" json:"-"`       // Google OAuth 登入時填入
	AvatarURL string             `bson:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`
}

// 註：`Password` 欄位在儲存到資料庫前會被哈希，`json:"-"` 表示在 JSON 序列化時
// 忽略此欄位，避免將密碼暴露出去。唯一索引會在 MongoDB 連線初始化時建立。
