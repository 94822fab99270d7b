package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/iliyamo/citypair-slots/internal/config"
	"github.com/iliyamo/citypair-slots/internal/database"
	"github.com/iliyamo/citypair-slots/internal/logger"
	"github.com/iliyamo/citypair-slots/internal/repository"
	"github.com/iliyamo/citypair-slots/internal/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Open(cfg.DB)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()
	if err := database.Migrate(db, cfg.DB.Driver); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	res, err := seed.Run(context.Background(), repository.NewSQLTxManager(db, database.TxOptions(cfg.DB.Driver)))
	if err != nil {
		log.Fatal("seed", zap.Error(err))
	}
	log.Info("seeded sample data", zap.Stringer("inserted", res))
}
