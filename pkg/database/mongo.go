// Package database owns the document database connection established at boot.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// DefaultConnectTimeout bounds server selection during Connect.
const DefaultConnectTimeout = 10 * time.Second

var (
	// ErrNoURI is returned when no connection string is configured.
	ErrNoURI = errors.New("mongo uri not configured")
	// ErrNotConnected is returned by Ping on a nil client.
	ErrNotConnected = errors.New("database not connected")
)

// Client wraps a connected mongo client.
type Client struct {
	client *mongo.Client
	logger *logrus.Logger
}

// Connect opens the connection and verifies it with a ping.
func Connect(ctx context.Context, uri, database string, logger *logrus.Logger) (*Client, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if uri == "" {
		return nil, ErrNoURI
	}

	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(DefaultConnectTimeout)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"database": database,
	}).Info("Database connected")

	return &Client{
		client: client,
		logger: logger,
	}, nil
}

// Ping checks the connection. It is safe to call on a nil Client.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return ErrNotConnected
	}
	return c.client.Ping(ctx, readpref.Primary())
}

// Disconnect closes the connection. It is safe to call on a nil Client.
func (c *Client) Disconnect(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}

	if err := c.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}

	c.logger.Info("Database disconnected")
	return nil
}
