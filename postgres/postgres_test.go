package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/paraglidehq/snowflake"
	"github.com/paraglidehq/snowflake/postgres"
)

func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("needs docker")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		tcpostgres.BasicWaitStrategies(),
		testcontainers.CustomizeRequestOption(func(req *testcontainers.GenericContainerRequest) error {
			req.ContainerRequest.WaitingFor = wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30 * time.Second)
			return nil
		}),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
		container.Terminate(ctx)
	})
	return db
}

func migrated(t *testing.T) *sql.DB {
	t.Helper()
	db := setupPostgres(t)
	if err := postgres.Migrate(context.Background(), db, postgres.DefaultConfig()); err != nil {
		t.Fatalf("migration failed: %v", err)
	}
	return db
}

func quiet() snowflake.Option {
	return snowflake.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestMigrate(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	cfg := postgres.DefaultConfig()

	if err := postgres.Migrate(ctx, db, cfg); err != nil {
		t.Fatalf("first migration failed: %v", err)
	}
	if err := postgres.Migrate(ctx, db, cfg); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}

	stored, err := postgres.GetConfig(ctx, db)
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}
	if stored != cfg {
		t.Errorf("stored config %+v != expected %+v", stored, cfg)
	}
}

func TestMigrateConfigMismatch(t *testing.T) {
	db := migrated(t)

	other := postgres.Config{Epoch: 1288834974657, NodeBits: 10, SequenceBits: 12}
	err := postgres.Migrate(context.Background(), db, other)
	if !errors.Is(err, postgres.ErrConfigMismatch) {
		t.Errorf("expected ErrConfigMismatch, got: %v", err)
	}
}

func TestBackendSelected(t *testing.T) {
	db := migrated(t)
	gen := snowflake.NewGenerator(5, snowflake.WithBackend(&postgres.Backend{DB: db}), quiet())
	defer gen.Close()

	if gen.Backend() != "postgres" {
		t.Fatalf("Backend() = %q, want postgres", gen.Backend())
	}

	before := time.Now().Add(-time.Second)
	var prev snowflake.ID
	for i := 0; i < 200; i++ {
		id, err := gen.Create()
		if err != nil {
			t.Fatalf("Create() #%d: %v", i, err)
		}
		if id <= prev {
			t.Fatalf("Create() #%d = %d, not greater than %d", i, id, prev)
		}
		if id.Node() != 5 {
			t.Fatalf("Node() = %d, want 5", id.Node())
		}
		prev = id
	}
	if ts := prev.Timestamp(); ts.Before(before) || ts.After(time.Now().Add(time.Second)) {
		t.Errorf("Timestamp() = %v, not near now", ts)
	}
}

func TestBackendUnavailable(t *testing.T) {
	t.Run("NotMigrated", func(t *testing.T) {
		db := setupPostgres(t)
		gen := snowflake.NewGenerator(5, snowflake.WithBackend(&postgres.Backend{DB: db}), quiet())
		if gen.Backend() != snowflake.NativeBackend {
			t.Errorf("Backend() = %q, want native fallback", gen.Backend())
		}
		b := &postgres.Backend{DB: db}
		if _, err := b.Open(snowflake.Settings{NodeID: 5, Epoch: snowflake.Epoch}); !errors.Is(err, postgres.ErrNotInstalled) {
			t.Errorf("Open() err = %v, want ErrNotInstalled", err)
		}
	})
	t.Run("EpochMismatch", func(t *testing.T) {
		db := migrated(t)
		b := &postgres.Backend{DB: db}
		if _, err := b.Open(snowflake.Settings{NodeID: 5, Epoch: 0}); !errors.Is(err, postgres.ErrConfigMismatch) {
			t.Errorf("Open() err = %v, want ErrConfigMismatch", err)
		}
	})
}

func TestBackendConcurrentSessions(t *testing.T) {
	db := migrated(t)

	const sessions, perSession = 4, 250
	results := make([][]snowflake.ID, sessions)
	errs := make([]error, sessions)
	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		gen := snowflake.NewGenerator(9, snowflake.WithBackend(&postgres.Backend{DB: db}), quiet())
		defer gen.Close()
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < perSession; j++ {
				id, err := gen.Create()
				if err != nil {
					errs[idx] = err
					return
				}
				results[idx] = append(results[idx], id)
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[snowflake.ID]bool)
	for i, ids := range results {
		if errs[i] != nil {
			t.Fatalf("session %d: %v", i, errs[i])
		}
		for _, id := range ids {
			if seen[id] {
				t.Fatalf("duplicate ID %d", id)
			}
			seen[id] = true
		}
	}
}

func TestBackendClockRegression(t *testing.T) {
	db := migrated(t)
	ctx := context.Background()
	gen := snowflake.NewGenerator(3, snowflake.WithBackend(&postgres.Backend{DB: db}), quiet())
	defer gen.Close()

	if _, err := gen.Create(); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(time.Hour).UnixMilli()
	if _, err := db.ExecContext(ctx, `UPDATE _snowflake_state SET last_ms = $1 WHERE node_id = 3`, future); err != nil {
		t.Fatal(err)
	}

	_, err := gen.Create()
	var regression *snowflake.ClockRegressionError
	if !errors.As(err, &regression) {
		t.Fatalf("Create() err = %v, want *ClockRegressionError", err)
	}
	if regression.Last != future {
		t.Errorf("Last = %d, want %d", regression.Last, future)
	}

	var last int64
	if err := db.QueryRowContext(ctx, `SELECT last_ms FROM _snowflake_state WHERE node_id = 3`).Scan(&last); err != nil {
		t.Fatal(err)
	}
	if last != future {
		t.Errorf("state last_ms = %d after regression, want unchanged %d", last, future)
	}
}

func TestDecodeFunctions(t *testing.T) {
	db := migrated(t)
	ctx := context.Background()

	ms := time.Date(2031, 3, 4, 5, 6, 7, 0, time.UTC).UnixMilli()
	id := snowflake.StandardLayout.Pack(ms-snowflake.Epoch, 1017, 4001)

	var (
		ts   time.Time
		node int
		seq  int
	)
	err := db.QueryRowContext(ctx, `SELECT ts_from_snowflake($1), node_from_snowflake($1), seq_from_snowflake($1)`, id.Int64()).
		Scan(&ts, &node, &seq)
	if err != nil {
		t.Fatal(err)
	}
	if ts.UnixMilli() != ms {
		t.Errorf("ts_from_snowflake = %v, want %v", ts, time.UnixMilli(ms))
	}
	if node != 1017 || seq != 4001 {
		t.Errorf("node, seq = %d, %d, want 1017, 4001", node, seq)
	}
}

func TestBase58MatchesGo(t *testing.T) {
	db := migrated(t)
	ctx := context.Background()

	for _, id := range []snowflake.ID{0, 57, 58, 1234567890123456789} {
		var encoded string
		if err := db.QueryRowContext(ctx, `SELECT snowflake_to_b58($1)`, id.Int64()).Scan(&encoded); err != nil {
			t.Fatal(err)
		}
		if want := id.Format(snowflake.FormatBase58); encoded != want {
			t.Errorf("snowflake_to_b58(%d) = %q, want %q", id, encoded, want)
		}
		var decoded int64
		if err := db.QueryRowContext(ctx, `SELECT b58_to_snowflake($1)`, encoded).Scan(&decoded); err != nil {
			t.Fatal(err)
		}
		if decoded != id.Int64() {
			t.Errorf("b58_to_snowflake(%q) = %d, want %d", encoded, decoded, id)
		}
	}

	var missing snowflake.NullID
	if err := db.QueryRowContext(ctx, `SELECT b58_to_snowflake(NULL::text)`).Scan(&missing); err != nil {
		t.Fatal(err)
	}
	if missing.Valid {
		t.Errorf("b58_to_snowflake(NULL) = %+v, want NULL", missing)
	}
}
