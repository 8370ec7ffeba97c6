package handlers

import (
	"time"

	"asset-manager/internal/applog"
	"asset-manager/internal/assets"
	"asset-manager/internal/models"
	"asset-manager/internal/resize"
	"asset-manager/internal/sandbox"
	"asset-manager/internal/startup"
	"asset-manager/internal/store"
	"asset-manager/internal/workers"
)

type Handlers struct {
	resolver  *sandbox.Resolver
	scanner   *assets.Scanner
	deleter   *assets.Deleter
	archiver  *assets.Archiver
	pipeline  *resize.Pipeline
	library   *store.Store
	appState  *store.Store
	logbook   *applog.Writer
	catalog   *models.Catalog
	startedAt time.Time
}

func New(config *startup.Config, pool *workers.Pool) (*Handlers, error) {
	resolver, err := sandbox.NewResolver(config.OutputDir)
	if err != nil {
		return nil, err
	}

	h := &Handlers{
		resolver:  resolver,
		scanner:   assets.NewScanner(resolver),
		deleter:   assets.NewDeleter(resolver),
		archiver:  assets.NewArchiver(resolver),
		pipeline:  resize.NewPipeline(resolver, pool),
		library:   store.New(config.LibraryPath),
		appState:  store.New(config.StatePath),
		logbook:   applog.NewWriter(config.LogDir),
		startedAt: time.Now(),
	}

	if config.ModelsEnabled {
		catalog, err := models.NewCatalog(config.ModelsDir)
		if err != nil {
			return nil, err
		}
		h.catalog = catalog
	}

	return h, nil
}
