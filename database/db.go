package database

import (
	"context"
	"fmt"
	"time"

	"nahio/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoClient is the global MongoDB client instance.
var MongoClient *mongo.Client

// InitDB initializes the MongoDB connection.
func InitDB(ctx context.Context, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(config.AppConfig.DatabaseURL)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	MongoClient = client
	logger.Info("Connected to MongoDB", zap.String("database", config.AppConfig.MongoDatabase))
	return nil
}

// MongoDatabase returns the application database on the global client.
func MongoDatabase() *mongo.Database {
	return MongoClient.Database(config.AppConfig.MongoDatabase)
}

// MongoReadyCheck pings the global client.
func MongoReadyCheck(ctx context.Context) error {
	if MongoClient == nil {
		return fmt.Errorf("mongo not configured")
	}
	return MongoClient.Ping(ctx, nil)
}

// CloseDB disconnects every store that was opened.
func CloseDB(ctx context.Context) {
	if MongoClient != nil {
		_ = MongoClient.Disconnect(ctx)
	}
	if FirestoreClient != nil {
		_ = FirestoreClient.Close()
	}
	if PostgresPool != nil {
		PostgresPool.Close()
	}
}
