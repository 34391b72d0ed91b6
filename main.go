package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-chat/backend/ai"
	"go-chat/backend/config"
	"go-chat/backend/database"
	"go-chat/backend/dms"
	"go-chat/backend/handlers"
	"go-chat/backend/messages"
	"go-chat/backend/middleware"
	"go-chat/backend/rooms"
	"go-chat/backend/websocket"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors" // 引入 CORS 庫
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.Connect(cfg.MongoDBURI, cfg.DBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer db.Disconnect()

	// 聊天室狀態全部在記憶體中，啟動時建立一次後注入各元件
	roomStore := rooms.NewStore()
	msgStore := messages.NewStore(cfg.MessageTTL)
	dmStore := dms.NewStore()
	hub := websocket.NewHub()

	aiClient := ai.NewHTTPClient(cfg.AIAPIURL, cfg.AIAPIKey, cfg.AIModel)
	gateway := websocket.NewGateway(roomStore, msgStore, dmStore, aiClient, hub)

	h := handlers.New(db, cfg, roomStore, msgStore)

	// Redis 只用於 REST 端點的速率限制，未配置時限制器直接放行
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
	}
	authLimiter := middleware.NewRateLimiter(redisClient, 20, time.Minute)
	authJWT := middleware.JWTMiddleware(cfg.JWTSecret)

	router := mux.NewRouter()

	// 健康檢查路由
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "Backend is running!")
	}).Methods("GET")

	// 帳號相關 API，註冊與登入套用速率限制
	router.Handle("/register", authLimiter.Middleware(http.HandlerFunc(h.RegisterUser))).Methods("POST")
	router.Handle("/login", authLimiter.Middleware(http.HandlerFunc(h.LoginUser))).Methods("POST")
	router.Handle("/users", authJWT(http.HandlerFunc(h.GetAllUsers))).Methods("GET")

	// Google OAuth 登入
	router.HandleFunc("/auth/google/login", h.GoogleLogin).Methods("GET")
	router.HandleFunc("/auth/google/callback", h.GoogleCallback).Methods("GET")

	// 聊天室 API
	router.HandleFunc("/rooms", h.CreateRoom).Methods("POST")
	router.HandleFunc("/rooms/code/{code}", h.ResolveRoom).Methods("GET")
	router.HandleFunc("/rooms/{id}/messages", h.GetRoomMessages).Methods("GET")
	router.HandleFunc("/rooms/{id}/pinned", h.GetPinnedMessages).Methods("GET")
	router.HandleFunc("/rooms/{id}", h.DeleteRoom).Methods("DELETE")

	// 檔案上傳與靜態檔案服務
	router.HandleFunc("/upload", h.UploadFile).Methods("POST")
	router.PathPrefix("/uploads/").Handler(
		http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))

	// WebSocket 入口，聊天事件全部走這條連線
	router.HandleFunc("/ws", gateway.ServeWS)

	// 設置 CORS 中介軟體
	// 實際生產環境中，AllowedOrigins 應限制為前端網域
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	handler := c.Handler(router)

	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		IdleTimeout:  120 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// 如果錯誤不是因為主動關閉伺服器，就記錄錯誤並結束程式
			log.Fatalf("Could not listen on %s: %v", serverAddr, err)
		}
	}()

	//當按下 Ctrl+C，程式會收到 SIGINT
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("Received signal %s, shutting down server...", sig)

	//最多等30秒關閉，避免資料損壞，請求中斷
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// 關閉連線與所有排程計時器
	gateway.Close()
	msgStore.Close()
	roomStore.Close()
	if redisClient != nil {
		redisClient.Close()
	}

	log.Println("Server exited gracefully.")
}
