package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/readalongapp/readalong-server/internal/config"
	"github.com/readalongapp/readalong-server/internal/library"
	"github.com/readalongapp/readalong-server/internal/logger"
	"github.com/readalongapp/readalong-server/internal/service"
	"github.com/readalongapp/readalong-server/internal/sse"
	"github.com/readalongapp/readalong-server/internal/validation"
)

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideBookService provides the book service.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	lib := do.MustInvoke[*library.Library](i)

	return service.NewBookService(lib, cfg.Reader, log.Logger), nil
}

// ProvideProgressService provides the progress service.
func ProvideProgressService(i do.Injector) (*service.ProgressService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	lib := do.MustInvoke[*library.Library](i)
	v := do.MustInvoke[*validation.Validator](i)

	return service.NewProgressService(storeHandle.Store, lib, v, log.Logger), nil
}

// ProvideSearchService provides the search service and wires content reloads
// to reindexing and client notification.
func ProvideSearchService(i do.Injector) (*service.SearchService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	lib := do.MustInvoke[*library.Library](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	svc := service.NewSearchService(indexHandle.Index, lib, log.Logger)

	lib.SetOnReload(func() {
		sseHandle.Emit(sse.NewLibraryUpdatedEvent())
		go func() {
			if err := svc.Reindex(context.Background()); err != nil {
				log.Error("Reindex after content reload failed", "error", err)
			}
		}()
	})

	return svc, nil
}

// TriggerSearchReindexIfNeeded rebuilds the paragraph index in the background
// when it is empty, which happens on first start and after a mapping bump.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	log := do.MustInvoke[*logger.Logger](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	svc := do.MustInvoke[*service.SearchService](i)

	docCount, err := indexHandle.DocumentCount()
	if err != nil {
		log.Warn("Could not read search index document count", "error", err)
		return
	}
	if docCount > 0 {
		return
	}

	log.Info("Search index empty, starting background reindex")
	go func() {
		if err := svc.Reindex(context.Background()); err != nil {
			log.Error("Background reindex failed", "error", err)
		}
	}()
}
