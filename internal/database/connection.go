package database

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/s/campus/internal/logger"
)

const (
	connectAttempts = 5
	connectWait     = 2 * time.Second
)

// ConnectPostgres opens the GORM connection. The database container can take a
// few seconds to accept connections, so the first attempts are allowed to fail.
func ConnectPostgres(dsn string, log *logger.Logger) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < connectAttempts; i++ {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
		if err == nil {
			log.Info("connected to postgres")
			return db, nil
		}
		log.Warn("postgres connection attempt failed", "attempt", i+1, "error", err)
		time.Sleep(connectWait)
	}
	return nil, fmt.Errorf("connect postgres after %d attempts: %w", connectAttempts, err)
}

// ConnectMongo connects and pings so a bad URI fails at boot rather than on the first request.
func ConnectMongo(ctx context.Context, uri string, log *logger.Logger) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	var pingErr error
	for i := 0; i < connectAttempts; i++ {
		pctx, cancel := context.WithTimeout(ctx, connectWait)
		pingErr = client.Ping(pctx, nil)
		cancel()
		if pingErr == nil {
			log.Info("connected to mongo")
			return client, nil
		}
		log.Warn("mongo ping failed", "attempt", i+1, "error", pingErr)
		time.Sleep(connectWait)
	}
	_ = client.Disconnect(ctx)
	return nil, fmt.Errorf("ping mongo after %d attempts: %w", connectAttempts, pingErr)
}

// ConnectRedis returns nil, nil when addr is empty: the catalog cache is optional.
func ConnectRedis(ctx context.Context, addr string, log *logger.Logger) (*goredis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	pctx, cancel := context.WithTimeout(ctx, connectWait)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	log.Info("connected to redis", "addr", addr)
	return rdb, nil
}
