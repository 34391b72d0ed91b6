package middleware

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter 以 Redis 計數器對 REST 端點做固定窗口的速率限制。
// 聊天室狀態機本身不經過這裡——限制的是註冊/登入這類對外的 HTTP 端點。
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRateLimiter 建立速率限制器，client 為 nil 時限制全部放行
func NewRateLimiter(client *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window}
}

// Middleware 包裝下游處理器，超出限制時回傳 429
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.client == nil {
			next.ServeHTTP(w, r)
			return
		}

		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		key := fmt.Sprintf("ratelimit:%s:%s", r.URL.Path, host)

		count, err := rl.client.Incr(r.Context(), key).Result()
		if err != nil {
			// Redis 掛掉時放行而不是擋下所有流量
			log.Printf("Rate limiter Redis error: %v", err)
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			rl.client.Expire(r.Context(), key, rl.window)
		}
		if count > int64(rl.limit) {
			http.Error(w, "Too many requests, please try again later", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
