package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"vocab-quiz-service/internal/app"
	"vocab-quiz-service/internal/domain"
	"vocab-quiz-service/internal/infra/postgres"
	"vocab-quiz-service/internal/infra/postgres/migrations"
	infraredis "vocab-quiz-service/internal/infra/redis"
	"vocab-quiz-service/internal/vocab"
)

var seedItems = []domain.VocabularyItem{
	{Word: "alpha", Meaning: "first letter", Level: 1},
	{Word: "bravo", Meaning: "second letter", Level: 1},
	{Word: "charlie", Meaning: "third letter", Level: 1},
	{Word: "delta", Meaning: "fourth letter", Level: 1},
	{Word: "echo", Meaning: "fifth letter", Level: 2},
}

func TestPostgresLedgerEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()

	migrateAndSeed(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	wordPool := vocab.NewPool()
	reloader := vocab.NewReloader(wordPool, postgres.NewVocabSource(pool), time.Minute)
	if err := reloader.Refresh(ctx); err != nil {
		t.Fatalf("load vocab from postgres: %v", err)
	}
	if wordPool.Size() != len(seedItems) {
		t.Fatalf("expected %d seeded items, got %d", len(seedItems), wordPool.Size())
	}

	ledger := postgres.NewLedger(pool)
	service := app.NewGameService(ledger, nil, reloader, app.SessionConfig{})

	session := service.Session("u1", "Alice")
	question, err := session.Start(ctx, 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	out, err := session.SubmitAnswer(ctx, correctLabel(t, question))
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !out.Correct || !out.Recorded {
		t.Fatalf("expected recorded correct answer, got %+v", out)
	}

	weekID := service.CurrentWeekID()
	board, err := ledger.Weekly(ctx, weekID)
	if err != nil {
		t.Fatalf("weekly: %v", err)
	}
	rec, ok := board.Get("u1")
	if !ok || rec.Points != 10 || rec.Correct != 1 {
		t.Fatalf("weekly row = %+v ok=%v, want 10 points 1 correct", rec, ok)
	}
	total, err := ledger.Total(ctx)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if rec, _ := total.Get("u1"); rec.Points != 10 {
		t.Fatalf("total row = %+v, want 10 points", rec)
	}

	rows, err := service.WeeklyTop(ctx, weekID, 10)
	if err != nil {
		t.Fatalf("weeklyTop: %v", err)
	}
	if len(rows) != 1 || rows[0].UserID != "u1" || rows[0].DisplayName != "Alice" {
		t.Fatalf("unexpected leaderboard %+v", rows)
	}
}

func TestRedisLedgerEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	client, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer client.Close()

	ledger := infraredis.NewLedger(client)
	service := app.NewGameService(ledger, nil, staticVocab(seedItems), app.SessionConfig{})

	session := service.Session("u1", "Alice")
	question, err := session.Start(ctx, 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := session.SubmitAnswer(ctx, correctLabel(t, question)); err != nil {
		t.Fatalf("answer: %v", err)
	}

	board, err := ledger.Weekly(ctx, service.CurrentWeekID())
	if err != nil {
		t.Fatalf("weekly: %v", err)
	}
	if rec, _ := board.Get("u1"); rec.Points != 10 || rec.Correct != 1 {
		t.Fatalf("weekly row = %+v, want 10 points 1 correct", rec)
	}
}

type staticVocab []domain.VocabularyItem

func (v staticVocab) Items(_ context.Context) []domain.VocabularyItem { return v }

// correctLabel recovers the answer key from the visible choices: the correct
// choice is the seeded meaning of the question's word.
func correctLabel(t *testing.T, q domain.Question) domain.Label {
	t.Helper()
	var want string
	for _, item := range seedItems {
		if item.Word == q.Word {
			want = item.Meaning
			break
		}
	}
	if want == "" {
		t.Fatalf("question for unseeded word %q", q.Word)
	}
	for _, label := range domain.Labels {
		if q.Choice(label) == want {
			return label
		}
	}
	t.Fatalf("no choice matches meaning %q: %+v", want, q)
	return ""
}

func migrateAndSeed(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for _, item := range seedItems {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO vocab_items (word, meaning, level) VALUES (?, ?, ?) ON CONFLICT (word, meaning) DO UPDATE SET level=EXCLUDED.level`,
			item.Word, item.Meaning, item.Level); err != nil {
			t.Fatalf("seed %s: %v", item.Word, err)
		}
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
