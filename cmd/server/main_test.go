package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/taskboard/internal/config"
	"github.com/and161185/taskboard/internal/limiter"
	"github.com/and161185/taskboard/internal/repository/postgres"
)

// parsed returns the serve command with args parsed but not run.
func parsed(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	root := rootCmd()
	cmd, rest, err := root.Find(append([]string{"serve"}, args...))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if err := cmd.ParseFlags(rest); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cmd
}

func Test_loadConfig_FileEnvFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskboard.yaml")
	yml := "http:\n  addr: \":7000\"\ndb:\n  dsn: postgres://file\nauth:\n  jwt_key: k\n"
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TASKBOARD_DSN", "postgres://env")

	cfg, err := loadConfig(parsed(t, "--config", path, "--limiter", "none", "--dev"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.HTTP.Addr != ":7000" {
		t.Fatalf("addr from file: got %q", cfg.HTTP.Addr)
	}
	if cfg.DB.DSN != "postgres://env" {
		t.Fatalf("env must override file: got %q", cfg.DB.DSN)
	}
	if cfg.Limiter.Backend != config.LimiterNone || !cfg.Log.Development {
		t.Fatalf("flags not applied: %+v %+v", cfg.Limiter, cfg.Log)
	}

	cfg, err = loadConfig(parsed(t, "--config", path, "--dsn", "postgres://flag", "--addr", ":9000"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.DB.DSN != "postgres://flag" || cfg.HTTP.Addr != ":9000" {
		t.Fatalf("flags must win: dsn=%q addr=%q", cfg.DB.DSN, cfg.HTTP.Addr)
	}
	if cfg.Limiter.Backend != config.LimiterPostgres {
		t.Fatalf("unset flag must keep default, got %q", cfg.Limiter.Backend)
	}
}

func Test_loadConfig_MissingFile(t *testing.T) {
	if _, err := loadConfig(parsed(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"))); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func Test_newLimiter_Backends(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()
	db := &postgres.DB{Pool: mock}

	cfg := config.Default()
	lim, closeFn, err := newLimiter(cfg, db)
	if err != nil {
		t.Fatalf("postgres: %v", err)
	}
	closeFn()
	if _, ok := lim.(*limiter.PG); !ok {
		t.Fatalf("want *limiter.PG, got %T", lim)
	}

	cfg.Limiter.Backend = config.LimiterNone
	lim, _, _ = newLimiter(cfg, db)
	if _, ok := lim.(limiter.Nop); !ok {
		t.Fatalf("want limiter.Nop, got %T", lim)
	}

	mr := miniredis.RunT(t)
	cfg.Limiter.Backend = config.LimiterRedis
	cfg.Limiter.RedisURL = "redis://" + mr.Addr() + "/0"
	lim, closeFn, err = newLimiter(cfg, db)
	if err != nil {
		t.Fatalf("redis: %v", err)
	}
	defer closeFn()
	if _, ok := lim.(*limiter.Redis); !ok {
		t.Fatalf("want *limiter.Redis, got %T", lim)
	}

	cfg.Limiter.RedisURL = "not a url"
	if _, _, err := newLimiter(cfg, db); err == nil {
		t.Fatalf("expected error for bad redis url")
	}
}

func Test_buildAPI_Wires(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	cfg := config.Default()
	cfg.Auth.JWTKey = "secret"
	cfg.Storage.UploadDir = filepath.Join(t.TempDir(), "uploads")

	e, err := buildAPI(cfg, &postgres.DB{Pool: mock}, limiter.Nop{}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("buildAPI: %v", err)
	}
	if _, err := os.Stat(cfg.Storage.UploadDir); err != nil {
		t.Fatalf("upload dir not created: %v", err)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boards", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("boards without token: %d", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected db traffic: %v", err)
	}
}
