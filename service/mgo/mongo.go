package mgo

import (
	"context"
	"sync"
	"time"

	"ChatCore/global"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	mongoOnce sync.Once
	mongoMgr  *MongoManager
)

type MongoManager struct {
	client *mongo.Client
	db     *mongo.Database
}

// InitMongo 初始化 Mongo 管理器（单例）
func InitMongo(c global.MongoConfig) error {
	var initErr error
	mongoOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		cli, err := mongo.Connect(ctx, options.Client().ApplyURI(c.URI))
		if err != nil {
			initErr = err
			return
		}
		if err := cli.Ping(ctx, readpref.Primary()); err != nil {
			initErr = err
			return
		}
		mongoMgr = &MongoManager{client: cli, db: cli.Database(c.Database)}
	})
	return initErr
}

// GetDB 获取 Database
func GetDB() *mongo.Database {
	if mongoMgr == nil {
		panic("Mongo not initialized, call InitMongo first")
	}
	return mongoMgr.db
}

// CloseMongo 关闭连接
func CloseMongo(ctx context.Context) error {
	if mongoMgr != nil && mongoMgr.client != nil {
		return mongoMgr.client.Disconnect(ctx)
	}
	return nil
}
