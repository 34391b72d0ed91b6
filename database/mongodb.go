package database

import (
	"context"
	"errors"
	"log"
	"time"

	"go-chat/backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ErrUserNotFound 表示查無此帳號
var ErrUserNotFound = errors.New("user not found")

// DB 包裝 MongoDB 連線與帳號集合的操作。
// 只有持久帳號存放在資料庫；聊天室與訊息狀態全部在記憶體中，
// 行程結束即消失(這是刻意的設計，不是缺陷)。
type DB struct {
	client *mongo.Client
	name   string
}

// Connect 建立並初始化 MongoDB 連線
func Connect(uri, name string) (*DB, error) {
	clientOptions := options.Client().ApplyURI(uri)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping the primary to verify connection
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}
	log.Println("Connected to MongoDB successfully!")

	db := &DB{client: client, name: name}

	// 為帳號建立唯一索引，Email 與使用者名稱都不可重複
	users := db.Collection("users")
	_, err = users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Collection 獲取指定名稱的集合
func (db *DB) Collection(name string) *mongo.Collection {
	return db.client.Database(db.name).Collection(name)
}

// CreateUser 插入新帳號並回傳其 ID 的 Hex 字串
func (db *DB) CreateUser(ctx context.Context, user models.User) (string, error) {
	result, err := db.Collection("users").InsertOne(ctx, user)
	if err != nil {
		return "", err
	}
	return result.InsertedID.(primitive.ObjectID).Hex(), nil
}

// FindUserByEmail 透過 Email 尋找帳號
func (db *DB) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := db.Collection("users").FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUserByUsername 透過使用者名稱尋找帳號
func (db *DB) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := db.Collection("users").FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpsertGoogleUser 依 Google ID 更新或建立帳號(OAuth 登入用)
func (db *DB) UpsertGoogleUser(ctx context.Context, user models.User) (*models.User, error) {
	filter := bson.M{"googleId": user.GoogleID}
	update := bson.M{"$set": bson.M{
		"email":     user.Email,
		"username":  user.Username,
		"googleId":  user.GoogleID,
		"avatarUrl": user.AvatarURL,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var result models.User
	if err := db.Collection("users").FindOneAndUpdate(ctx, filter, update, opts).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetAllUsers 回傳所有帳號(密碼欄位已清空)
func (db *DB) GetAllUsers(ctx context.Context) ([]models.User, error) {
	cursor, err := db.Collection("users").Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	// 額外防護：即使模型已標記 json:"-"，回傳前仍清空密碼欄位
	for i := range users {
		users[i].Password = ""
	}
	return users, nil
}

// Disconnect 關閉 MongoDB 連線
func (db *DB) Disconnect() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.client.Disconnect(ctx); err != nil {
		log.Printf("Error disconnecting from MongoDB: %v", err)
	} else {
		log.Println("Disconnected from MongoDB.")
	}
}
