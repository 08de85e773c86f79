//go:build integration

package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vadimbarashkov/link-shortener/internal/entity"

	goredis "github.com/redis/go-redis/v9"
)

type URLCacheTestSuite struct {
	suite.Suite
	cont   testcontainers.Container
	client *goredis.Client
	cache  *URLCache
}

func (suite *URLCacheTestSuite) SetupSuite() {
	ctx := context.Background()

	var err error
	suite.cont, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	if err != nil {
		suite.T().Fatalf("Failed to start redis container: %v", err)
	}
	suite.T().Cleanup(func() {
		if err := suite.cont.Terminate(ctx); err != nil {
			suite.T().Fatalf("Failed to terminate redis container: %v", err)
		}
	})

	host, err := suite.cont.Host(ctx)
	if err != nil {
		suite.T().Fatalf("Failed to get redis container host: %v", err)
	}

	port, err := suite.cont.MappedPort(ctx, "6379")
	if err != nil {
		suite.T().Fatalf("Failed to get redis container port: %v", err)
	}

	suite.client, err = Connect(ctx, fmt.Sprintf("redis://%s:%d/0", host, port.Int()))
	if err != nil {
		suite.T().Fatalf("Failed to connect to redis: %v", err)
	}
	suite.T().Cleanup(func() {
		_ = suite.client.Close()
	})

	suite.cache = NewURLCache(suite.client, time.Minute)
}

func (suite *URLCacheTestSuite) TearDownSubTest() {
	if err := suite.client.FlushDB(context.Background()).Err(); err != nil {
		suite.T().Fatalf("Failed to flush redis: %v", err)
	}
}

func (suite *URLCacheTestSuite) TestGet() {
	ctx := context.Background()

	suite.Run("miss", func() {
		url, err := suite.cache.Get(ctx, "abcd2345")

		suite.NoError(err)
		suite.Nil(url)
	})

	suite.Run("hit", func() {
		createdAt := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		stored := &entity.URL{
			ID:              1,
			OriginalURL:     "https://example.com",
			OriginalURLHash: "hash",
			Slug:            "abcd2345",
			IsSafe:          true,
			VisitCount:      42,
			CreatedAt:       createdAt,
			UpdatedAt:       createdAt,
		}

		suite.Require().NoError(suite.cache.Set(ctx, stored))

		url, err := suite.cache.Get(ctx, "abcd2345")
		suite.Require().NoError(err)
		suite.Require().NotNil(url)

		suite.Equal(stored.ID, url.ID)
		suite.Equal(stored.OriginalURL, url.OriginalURL)
		suite.Equal(stored.Slug, url.Slug)
		suite.True(url.IsSafe)
		suite.Zero(url.VisitCount)
		suite.True(createdAt.Equal(url.CreatedAt))

		ttl, err := suite.client.TTL(ctx, key("abcd2345")).Result()
		suite.Require().NoError(err)
		suite.Greater(ttl, time.Duration(0))
	})

	suite.Run("corrupt entry", func() {
		suite.Require().NoError(suite.client.Set(ctx, key("abcd2345"), "{", time.Minute).Err())

		url, err := suite.cache.Get(ctx, "abcd2345")
		suite.Error(err)
		suite.Nil(url)

		n, err := suite.client.Exists(ctx, key("abcd2345")).Result()
		suite.Require().NoError(err)
		suite.Zero(n)
	})
}

func (suite *URLCacheTestSuite) TestSetUnsafe() {
	ctx := context.Background()

	suite.Run("not cached", func() {
		suite.Require().NoError(suite.cache.Set(ctx, &entity.URL{Slug: "abcd2345", IsSafe: false}))

		url, err := suite.cache.Get(ctx, "abcd2345")
		suite.NoError(err)
		suite.Nil(url)
	})
}

func TestURLCache(t *testing.T) {
	suite.Run(t, new(URLCacheTestSuite))
}
