package testhelpers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresImage is the stock image used for provider and discovery integration tests.
const PostgresImage = "postgres:16-alpine"

// SeedSQL is loaded by the container entrypoint on first start.
// Two schemas so prioritization and hinting have something to choose from.
const SeedSQL = `
CREATE SCHEMA sales;

CREATE TABLE sales.customers (
    customer_id SERIAL PRIMARY KEY,
    name        VARCHAR(100) NOT NULL,
    email       VARCHAR(200),
    created_at  TIMESTAMP DEFAULT now()
);

CREATE TABLE sales.orders (
    order_id    SERIAL PRIMARY KEY,
    customer_id INTEGER NOT NULL REFERENCES sales.customers(customer_id),
    total       NUMERIC(10, 2) NOT NULL,
    placed_at   TIMESTAMP DEFAULT now()
);

CREATE TABLE sales.order_lines (
    order_id INTEGER NOT NULL REFERENCES sales.orders(order_id),
    line_no  INTEGER NOT NULL,
    sku      VARCHAR(40) NOT NULL,
    PRIMARY KEY (order_id, line_no)
);

CREATE TABLE public.notes (
    body TEXT
);

CREATE TABLE public.refunds (
    refund_id SERIAL PRIMARY KEY,
    line_no   INTEGER NOT NULL,
    order_id  INTEGER NOT NULL,
    FOREIGN KEY (order_id, line_no) REFERENCES sales.order_lines(order_id, line_no)
);

INSERT INTO sales.customers (name, email) VALUES
    ('Ada Lovelace', 'ada@example.com'),
    ('Grace Hopper', 'grace@example.com');

INSERT INTO sales.orders (customer_id, total) VALUES
    (1, 19.99), (1, 5.00), (2, 120.50);

INSERT INTO sales.order_lines (order_id, line_no, sku) VALUES
    (1, 1, 'PEN-01'), (1, 2, 'INK-02'), (3, 1, 'DESK-9');
`

// TestDB holds a shared PostgreSQL container.
type TestDB struct {
	Container testcontainers.Container
	Host      string
	Port      int
	User      string
	Password  string
	Database  string
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared PostgreSQL container for integration tests.
// The container is created once and reused across all tests in the run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        PostgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "askdb_test",
			"POSTGRES_USER":     "askdb",
			"POSTGRES_PASSWORD": "test_password",
		},
		Files: []testcontainers.ContainerFile{
			{
				Reader:            strings.NewReader(SeedSQL),
				ContainerFilePath: "/docker-entrypoint-initdb.d/seed.sql",
				FileMode:          0o644,
			},
		},
		// The entrypoint restarts the server after running init scripts.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	return &TestDB{
		Container: container,
		Host:      host,
		Port:      port.Int(),
		User:      "askdb",
		Password:  "test_password",
		Database:  "askdb_test",
	}, nil
}
