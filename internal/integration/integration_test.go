package integration

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"quizwhiz-service/internal/app"
	"quizwhiz-service/internal/domain"
	pgstore "quizwhiz-service/internal/infra/postgres"
	pgmigrations "quizwhiz-service/internal/infra/postgres/migrations"
	infraredis "quizwhiz-service/internal/infra/redis"
	"quizwhiz-service/internal/opentdb"
	"quizwhiz-service/internal/questionbank"
	"quizwhiz-service/internal/session"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestQuizRoundTripEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	runMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	store := pgstore.NewResultStore(pool)

	seedResults(t, ctx, store)

	var triviaHits atomic.Int64
	trivia := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		triviaHits.Add(1)
		fmt.Fprint(w, `{"response_code":0,"results":[
			{"type":"multiple","difficulty":"easy","category":"General Knowledge",
			 "question":"What is 2 + 2?","correct_answer":"4","incorrect_answers":["3","5","6"]},
			{"type":"multiple","difficulty":"easy","category":"General Knowledge",
			 "question":"What is 3 + 3?","correct_answer":"6","incorrect_answers":["5","7","8"]}
		]}`)
	}))
	defer trivia.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	cache := infraredis.NewQuestionCache(redisClient, opentdb.NewClient(trivia.URL, "", nil), 5*time.Minute)
	adapter := questionbank.NewAdapter(cache)
	service := app.NewGameService(adapter, store, nil, 2, 30)

	playSession(t, ctx, service, "dave@example.com", "4", "6")

	waitForResult(t, ctx, store, "dave@example.com", 20, 100)

	// Second session hits the Redis cache, not the upstream source.
	playSession(t, ctx, service, "erin@example.com", "4", "6")
	if hits := triviaHits.Load(); hits != 1 {
		t.Fatalf("expected 1 upstream fetch, got %d", hits)
	}
	waitForResult(t, ctx, store, "erin@example.com", 20, 100)

	entries, err := service.Leaderboard(ctx, domain.ResultFilter{})
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	// alice and bob tie at 100, carol 90, dave and erin 20 each.
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}
	wantRanks := []int{1, 1, 3, 4, 4}
	for i, want := range wantRanks {
		if entries[i].Rank != want {
			t.Fatalf("entry %d: expected rank %d, got %d (%+v)", i, want, entries[i].Rank, entries[i])
		}
	}
	if entries[0].Player.ID != "alice@example.com" || entries[1].Player.ID != "bob@example.com" {
		t.Fatalf("expected alice then bob at the top, got %s then %s", entries[0].Player.ID, entries[1].Player.ID)
	}

	stats, err := service.PlayerStats(ctx, "carol@example.com")
	if err != nil {
		t.Fatalf("player stats: %v", err)
	}
	if stats.Rank != 3 || stats.TotalPlayers != 5 || stats.PointsBehindLead != 10 {
		t.Fatalf("unexpected carol stats: %+v", stats)
	}
}

// playSession runs one full session against the service, answering every
// question with the given options, and asserts the final score and accuracy.
func playSession(t *testing.T, ctx context.Context, service *app.GameService, playerID string, answers ...string) {
	t.Helper()

	sess, err := service.NewSession(ctx, playerID, "General Knowledge", 9)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	defer sess.Close()

	events, cancel := sess.Subscribe()
	defer cancel()

	if err := sess.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.After(30 * time.Second)
	for {
		select {
		case event, ok := <-events:
			if !ok {
				t.Fatalf("event stream closed before results")
			}
			switch event.Type {
			case session.EventQuestion:
				if _, err := sess.Submit(answers[event.Snapshot.QuestionIndex]); err != nil {
					t.Fatalf("submit question %d: %v", event.Snapshot.QuestionIndex, err)
				}
			case session.EventResults:
				if event.Snapshot.Score != len(answers)*domain.PointsPerCorrect {
					t.Fatalf("expected score %d, got %d", len(answers)*domain.PointsPerCorrect, event.Snapshot.Score)
				}
				if event.Snapshot.Accuracy != 100 {
					t.Fatalf("expected accuracy 100, got %d", event.Snapshot.Accuracy)
				}
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for results")
		}
	}
}

// waitForResult polls the store until the player's asynchronously reported
// result lands.
func waitForResult(t *testing.T, ctx context.Context, store *pgstore.ResultStore, playerID string, score, accuracy int) {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		players, err := store.ListPlayers(ctx, domain.ResultFilter{PlayerID: playerID})
		if err != nil {
			t.Fatalf("list players: %v", err)
		}
		if len(players) == 1 && len(players[0].History) == 1 {
			result := players[0].History[0]
			if result.Score != score || result.Accuracy != accuracy {
				t.Fatalf("expected score=%d accuracy=%d, got %+v", score, accuracy, result)
			}
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("result for %s never persisted", playerID)
}

func seedResults(t *testing.T, ctx context.Context, store *pgstore.ResultStore) {
	t.Helper()

	seeds := []struct {
		id, name string
		scores   []int
	}{
		{"alice@example.com", "Alice", []int{50, 50}},
		{"bob@example.com", "Bob", []int{100}},
		{"carol@example.com", "Carol", []int{90}},
	}
	base := time.Now().UTC().Add(-time.Hour)
	for i, seed := range seeds {
		if err := store.RegisterPlayer(ctx, seed.id, seed.name); err != nil {
			t.Fatalf("register %s: %v", seed.id, err)
		}
		for j, score := range seed.scores {
			err := store.SaveResult(ctx, domain.QuizResult{
				PlayerID:  seed.id,
				Category:  "General Knowledge",
				Score:     score,
				Accuracy:  80,
				CreatedAt: base.Add(time.Duration(i*10+j) * time.Minute),
			})
			if err != nil {
				t.Fatalf("save result for %s: %v", seed.id, err)
			}
		}
	}
}

func runMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
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
