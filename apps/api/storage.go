package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/paymentplan"
	"github.com/trezcool/masomo-admin/core/report"
	"github.com/trezcool/masomo-admin/services/backend"
	"github.com/trezcool/masomo-admin/storage/cache"
	"github.com/trezcool/masomo-admin/storage/database"
	inmemdb "github.com/trezcool/masomo-admin/storage/database/inmem"
	sqlxrepos "github.com/trezcool/masomo-admin/storage/database/sqlx"
)

// storage bundles the configured repositories and whatever must be closed on exit.
type storage struct {
	plans   paymentplan.Repository
	drafts  paymentplan.DraftStore
	reports report.Source
	closers []io.Closer
}

func (s *storage) Close() error {
	var err error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if cerr := s.closers[i].Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func setUpStorage(ctx context.Context, conf *core.Config, logger core.Logger) (*storage, error) {
	s := new(storage)
	mem := inmemdb.NewDB()

	switch conf.StorageDriver {
	case core.StorageMemory, "":
		s.plans = inmemdb.NewPlanRepository(mem)
		s.reports = inmemdb.NewReportSource(mem)

	case core.StoragePostgres:
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, errors.Wrap(err, "opening database")
		}
		s.closers = append(s.closers, db)
		if err = database.Migrate(db); err != nil {
			_ = s.Close()
			return nil, err
		}
		s.plans = sqlxrepos.NewPlanRepository(sqlx.NewDb(db, conf.Database.Engine))
		// reports are always computed upstream
		s.reports = backend.NewClient(conf, logger)

	case core.StorageBackend:
		client := backend.NewClient(conf, logger)
		s.plans = client
		s.reports = client

	default:
		return nil, fmt.Errorf("unknown storage driver %q", conf.StorageDriver)
	}

	switch conf.DraftsDriver {
	case core.DraftsMemory, "":
		s.drafts = inmemdb.NewDraftStore(mem)

	case core.DraftsRedis:
		client, err := cache.NewClient(ctx, conf)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.closers = append(s.closers, client)
		s.drafts = cache.NewDraftStore(client, conf.Redis.DraftTTL)

	default:
		_ = s.Close()
		return nil, fmt.Errorf("unknown drafts driver %q", conf.DraftsDriver)
	}
	return s, nil
}
