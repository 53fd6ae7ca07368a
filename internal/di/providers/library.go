package providers

import (
	"context"
	"errors"

	"github.com/samber/do/v2"

	"github.com/readalongapp/readalong-server/internal/config"
	"github.com/readalongapp/readalong-server/internal/library"
	"github.com/readalongapp/readalong-server/internal/logger"
)

// ProvideLibrary provides the content library.
func ProvideLibrary(i do.Injector) (*library.Library, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	lib, err := library.New(cfg.Content.BasePath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Content library ready", "path", cfg.Content.BasePath)
	return lib, nil
}

// ContentWatcherHandle owns the content watcher goroutine.
type ContentWatcherHandle struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *ContentWatcherHandle) Shutdown() error {
	if h.cancel != nil {
		h.cancel()
	}
	return nil
}

// ProvideContentWatcher starts the content directory watcher when enabled.
func ProvideContentWatcher(i do.Injector) (*ContentWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	lib := do.MustInvoke[*library.Library](i)

	if !cfg.Content.Watch {
		log.Info("Content watching disabled by configuration")
		return &ContentWatcherHandle{}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := lib.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Content watcher error", "error", err)
		}
	}()

	return &ContentWatcherHandle{cancel: cancel}, nil
}
