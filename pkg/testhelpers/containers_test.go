//go:build integration

package testhelpers

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestTestDB_SeedLoaded(t *testing.T) {
	testDB := GetTestDB(t)
	ctx := context.Background()

	conn, err := pgx.Connect(ctx, fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		testDB.User, testDB.Password, testDB.Host, testDB.Port, testDB.Database))
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close(ctx)

	var tableCount int
	err = conn.QueryRow(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'sales'").
		Scan(&tableCount)
	if err != nil {
		t.Fatalf("failed to count tables: %v", err)
	}

	if tableCount != 3 {
		t.Errorf("expected 3 tables in sales schema, got %d", tableCount)
	}
}
