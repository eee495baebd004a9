//go:build integration

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/liamcoop/variations/internal/config"
	"github.com/liamcoop/variations/variations"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a PostgreSQL testcontainer and runs migrations
func setupTestDB(t *testing.T) (string, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": "password",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	host, err := postgres.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgres.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	connStr := fmt.Sprintf("postgres://postgres:password@%s:%s/testdb?sslmode=disable", host, port.Port())

	m, err := migrate.New("file://../../migrations", connStr)
	if err != nil {
		t.Fatalf("Failed to create migration instance: %v", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	m.Close()

	cleanup := func() {
		postgres.Terminate(ctx)
	}

	return connStr, cleanup
}

// TestEndToEnd_GenerateAndReadHistory tests the complete workflow:
// 1. Generate variations over HTTP
// 2. Read the record back from Postgres-backed history
// 3. Delete it
func TestEndToEnd_GenerateAndReadHistory(t *testing.T) {
	connStr, cleanup := setupTestDB(t)
	defer cleanup()

	cfg := config.Default()
	cfg.DatabaseURL = connStr

	db, store, err := openHistory(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to open history: %v", err)
	}
	defer db.Close()

	engine, err := variations.NewEngine()
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	ts := httptest.NewServer(NewServer(cfg, db, engine, store))
	defer ts.Close()
	baseURL := ts.URL + "/api/v1"

	// Step 1: health reports the postgres backend
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		t.Fatalf("Health request failed: %v", err)
	}
	var health HealthResponse
	json.NewDecoder(resp.Body).Decode(&health)
	resp.Body.Close()
	if health.Status != "healthy" || health.History != "postgres" {
		t.Fatalf("Unexpected health response: %+v", health)
	}

	// Step 2: generate
	t.Log("Generating variations...")
	body := []byte(`{
		"indicator": "MACD",
		"case": "B",
		"inputs": [
			{"type": "float", "start": 0.1, "end": 0.3, "step": 0.1},
			{"constant": true, "type": "float", "value": 0.2}
		],
		"condition": {"input1": 1, "input2": 2, "relation": "less than"}
	}`)
	resp, err = http.Post(baseURL+"/generate", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Generate request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	var generated GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&generated); err != nil {
		t.Fatalf("Failed to decode generate response: %v", err)
	}
	resp.Body.Close()

	want := "MACD_B_0__1_0__2,"
	if generated.Output != want {
		t.Fatalf("Output = %q, want %q", generated.Output, want)
	}

	// Step 3: read it back from Postgres
	t.Log("Reading history...")
	g, err := store.Get(context.Background(), generated.ID)
	if err != nil {
		t.Fatalf("Generation not stored: %v", err)
	}
	if g.Output != want || g.Total != 3 || g.Kept != 1 {
		t.Errorf("Unexpected stored generation: %+v", g)
	}

	resp, err = http.Get(baseURL + "/generations")
	if err != nil {
		t.Fatalf("List request failed: %v", err)
	}
	var list GenerationsListResponse
	json.NewDecoder(resp.Body).Decode(&list)
	resp.Body.Close()
	if len(list.Generations) != 1 || list.Generations[0].ID != generated.ID {
		t.Errorf("Unexpected generation list: %+v", list)
	}

	// Step 4: delete
	t.Log("Deleting generation...")
	req, _ := http.NewRequest(http.MethodDelete, baseURL+"/generations/"+generated.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Delete request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", resp.StatusCode)
	}

	if _, err := store.Get(context.Background(), generated.ID); !errors.Is(err, variations.ErrGenerationNotFound) {
		t.Errorf("Expected ErrGenerationNotFound after delete, got %v", err)
	}
}
