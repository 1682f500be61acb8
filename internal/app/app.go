package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/trunov/converthub/cmd/migrate"
	"github.com/trunov/converthub/internal/blob"
	"github.com/trunov/converthub/internal/config"
	"github.com/trunov/converthub/internal/queue"
	"github.com/trunov/converthub/internal/redisholder"
	"github.com/trunov/converthub/internal/repository/storage"
	"github.com/trunov/converthub/internal/transport/handler"
	"github.com/trunov/converthub/internal/transport/router"
	use_case "github.com/trunov/converthub/internal/use-case"
)

type App struct {
	HttpServer *http.Server
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	err := migrate.Migrate(cfg.Database.DSN, migrate.Migrations)
	if err != nil {
		return nil, err
	}

	repo, err := storage.New(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	blobStorage, err := blob.NewStorage(&cfg.S3)
	if err != nil {
		return nil, err
	}
	if err := blobStorage.EnsureBucket(ctx); err != nil {
		return nil, err
	}

	holder, err := redisholder.Build(ctx, &cfg.Redis)
	if err != nil {
		return nil, err
	}

	producer := queue.NewProducer(holder.Get(), cfg.Queue.StreamPrefix, cfg.Queue.MaxLen)

	uc := use_case.New(repo, blobStorage, producer, cfg.Upload.MaxSize())

	h := handler.New(uc, repo)
	r := router.NewRouter(h)

	s := &http.Server{
		Handler:      r,
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		ReadTimeout:  cfg.Server.ReadTimeout * time.Second,
		WriteTimeout: cfg.Server.WriteTimeout * time.Second,
	}

	return &App{
		HttpServer: s,
	}, nil
}

func (a *App) Run() error {
	log.Printf("starting server on %s", a.HttpServer.Addr)
	return a.HttpServer.ListenAndServe()
}
