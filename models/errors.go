package models

// ChatError 代表帶有穩定錯誤碼的領域錯誤。
// 各元件以 *ChatError 回報失敗，由 WebSocket 層統一轉譯成 error 事件，
// REST 層則轉譯成 JSON 錯誤響應；引擎本身不會因領域錯誤中斷連線。
type ChatError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ChatError) Error() string {
	return e.Code + ": " + e.Message
}

// NewChatError 建立一個帶有穩定錯誤碼的領域錯誤
func NewChatError(code, message string) *ChatError {
	return &ChatError{Code: code, Message: message}
}

// 穩定錯誤碼(前端依賴這些字串做判斷，不可隨意更動)
const (
	CodeInvalidNickname   = "INVALID_NICKNAME"
	CodeInvalidRoomCode   = "INVALID_ROOM_CODE"
	CodeInvalidPoll       = "INVALID_POLL"
	CodeRoomNotFound      = "ROOM_NOT_FOUND"
	CodeUserNotFound      = "USER_NOT_FOUND"
	CodeMessageNotFound   = "MESSAGE_NOT_FOUND"
	CodeRoomFull          = "ROOM_FULL"
	CodeRoomLocked        = "ROOM_LOCKED"
	CodePollClosed        = "POLL_CLOSED"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeEditWindowExpired = "EDIT_WINDOW_EXPIRED"
	CodeServerError       = "SERVER_ERROR"
)

// 常用的領域錯誤
var (
	ErrInvalidNickname   = NewChatError(CodeInvalidNickname, "Nickname is empty, too long, or contains reserved characters")
	ErrInvalidRoomCode   = NewChatError(CodeInvalidRoomCode, "Room code must be 6 alphanumeric characters")
	ErrInvalidPoll       = NewChatError(CodeInvalidPoll, "Poll needs a question and at least two options")
	ErrRoomNotFound      = NewChatError(CodeRoomNotFound, "Room not found")
	ErrUserNotFound      = NewChatError(CodeUserNotFound, "User not found")
	ErrMessageNotFound   = NewChatError(CodeMessageNotFound, "Message not found")
	ErrRoomFull          = NewChatError(CodeRoomFull, "Room is at capacity")
	ErrRoomLocked        = NewChatError(CodeRoomLocked, "Room is locked, only moderators can send messages")
	ErrPollClosed        = NewChatError(CodePollClosed, "Poll is closed")
	ErrUnauthorized      = NewChatError(CodeUnauthorized, "Not allowed to perform this action")
	ErrEditWindowExpired = NewChatError(CodeEditWindowExpired, "Messages can only be edited within 48 hours")
	ErrServerError       = NewChatError(CodeServerError, "Internal server error")
)
