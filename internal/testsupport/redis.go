package testsupport

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/rafaeljc/petlife/internal/config"
	"github.com/rafaeljc/petlife/internal/events"
)

// RedisContainer holds references to the ephemeral Redis instance.
type RedisContainer struct {
	Container testcontainers.Container
	// Client is a raw client for assertions (SUBSCRIBE, PING).
	Client *goredis.Client
	// Publisher is the application publisher wired to the container.
	Publisher *events.RedisPublisher
}

// Terminate closes the clients and removes the container.
func (c *RedisContainer) Terminate(ctx context.Context) error {
	_ = c.Publisher.Close()
	_ = c.Client.Close()
	return c.Container.Terminate(ctx)
}

// StartRedisContainer spins up a redis:7-alpine container and connects the
// application client to it the same way the binary does.
func StartRedisContainer(ctx context.Context) (*RedisContainer, error) {
	redisContainer, err := redis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return nil, fmt.Errorf("failed to start redis container: %w", err)
	}

	endpoint, err := redisContainer.PortEndpoint(ctx, "6379/tcp", "")
	if err != nil {
		return nil, fmt.Errorf("failed to get redis endpoint: %w", err)
	}
	host, port, _ := strings.Cut(endpoint, ":")

	testCfg := &config.RedisConfig{
		Host:           host,
		Port:           port,
		PoolSize:       4,
		DialTimeout:    2 * time.Second,
		PingMaxRetries: 5,
		PingBackoff:    500 * time.Millisecond,
	}
	appClient, err := events.NewRedisClient(ctx, testCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}

	return &RedisContainer{
		Container: redisContainer,
		Client:    goredis.NewClient(&goredis.Options{Addr: endpoint}),
		Publisher: events.NewRedisPublisher(appClient, events.DefaultChannel),
	}, nil
}
