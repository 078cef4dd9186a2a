// Package suite starts the containers required by integration tests.
package suite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
)

const (
	expireDuration  = 120
	maxWaitDuration = 120 * time.Second
)

const (
	redisPort  = "6379/tcp"
	redisImage = "redis"
	redisTag   = "alpine"

	postgresPort     = "5432/tcp"
	postgresImage    = "postgres"
	postgresTag      = "16-alpine"
	postgresPassword = "boneclub"
)

type Suite struct {
	*testing.T

	pool *dockertest.Pool
}

// New returns a suite connected to the local Docker daemon. The test is skipped when
// running with -short or when Docker is unavailable.
func New(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), maxWaitDuration)
	t.Cleanup(func() {
		cancel()
	})

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("could not connect to docker: %v", err)
	}
	err = pool.Client.Ping()
	if err != nil {
		t.Skipf("could not connect to docker: %v", err)
	}

	// exponential backoff-retry, because the application in the container might not be ready to accept connections yet
	pool.MaxWait = maxWaitDuration

	return ctx, &Suite{
		T:    t,
		pool: pool,
	}
}

func (s *Suite) run(options *dockertest.RunOptions) *dockertest.Resource {
	s.Helper()

	// pulls an image, creates a container based on it and runs it
	resource, err := s.pool.RunWithOptions(options, func(config *docker.HostConfig) {
		// set AutoRemove to true so that stopped container goes away by itself
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		s.Fatalf("could not start resource: %v", err)
	}

	// never returns error
	_ = resource.Expire(expireDuration) // Tell docker to hard kill the container in 120 seconds

	s.Cleanup(func() {
		if err := s.pool.Purge(resource); err != nil {
			s.Errorf("could not purge resource: %v", err)
		}
	})
	return resource
}

// Redis starts a Redis container and returns a client connected to it.
func (s *Suite) Redis(ctx context.Context) *redis.Client {
	s.Helper()

	resource := s.run(&dockertest.RunOptions{
		Repository: redisImage,
		Tag:        redisTag,
		Env:        []string{},
	})
	redisHost := resource.GetHostPort(redisPort)

	var redisClient *redis.Client
	if err := s.pool.Retry(func() error {
		redisClient = redis.NewClient(&redis.Options{
			Addr: redisHost,
		})
		return redisClient.Ping(ctx).Err()
	}); err != nil {
		s.Fatalf("could not connect to redis: %v", err)
	}

	if err := redisClient.FlushDB(ctx).Err(); err != nil {
		s.Fatalf("could not flush database: %v", err)
	}
	s.Cleanup(func() {
		redisClient.Close()
	})
	return redisClient
}

// Postgres starts a PostgreSQL container and returns its data source name. connect
// is retried until the database accepts connections.
func (s *Suite) Postgres(connect func(dataSource string) error) string {
	s.Helper()

	resource := s.run(&dockertest.RunOptions{
		Repository: postgresImage,
		Tag:        postgresTag,
		Env: []string{
			"POSTGRES_PASSWORD=" + postgresPassword,
			"POSTGRES_DB=boneclub",
		},
	})
	dataSource := fmt.Sprintf("postgres://postgres:%s@%s/boneclub?sslmode=disable", postgresPassword, resource.GetHostPort(postgresPort))

	if err := s.pool.Retry(func() error {
		return connect(dataSource)
	}); err != nil {
		s.Fatalf("could not connect to postgres: %v", err)
	}
	return dataSource
}
