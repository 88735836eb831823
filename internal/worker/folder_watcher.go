package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pwalczyk/invoiceflow/internal/config"
	"github.com/pwalczyk/invoiceflow/internal/domain/entity"
	"github.com/pwalczyk/invoiceflow/internal/ledger"
	"go.uber.org/zap"
)

// FolderWatcher polls a storage folder and ingests every supported
// document it finds. Dedup lives in the ledger, so rescanning the same
// folder is harmless; a renamed or moved file is a new document.
type FolderWatcher struct {
	cfg    config.FolderSourceConfig
	ledger *ledger.Service
	logger *zap.Logger

	mu        sync.RWMutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewFolderWatcher creates a new folder watcher
func NewFolderWatcher(cfg config.FolderSourceConfig, ledgerSvc *ledger.Service, logger *zap.Logger) *FolderWatcher {
	return &FolderWatcher{
		cfg:    cfg,
		ledger: ledgerSvc,
		logger: logger,
	}
}

// Start begins the worker polling loop
func (w *FolderWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("folder watcher already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("FolderWatcher started",
		zap.String("path", w.cfg.Path),
		zap.Duration("poll_interval", w.cfg.PollInterval))

	go w.pollLoop()

	return nil
}

// Stop gracefully terminates the worker
func (w *FolderWatcher) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}

	w.isRunning = false
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}

	w.logger.Info("FolderWatcher stopped")
	return nil
}

// Name returns the worker name for identification
func (w *FolderWatcher) Name() string {
	return "FolderWatcher"
}

func (w *FolderWatcher) pollLoop() {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.scan()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("Poll loop context cancelled")
			return

		case <-ticker.C:
			w.scan()
		}
	}
}

func (w *FolderWatcher) scan() {
	entries, err := os.ReadDir(w.cfg.Path)
	if err != nil {
		w.logger.Error("Failed to read watched folder",
			zap.String("path", w.cfg.Path),
			zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(w.ctx, time.Minute)
	defer cancel()

	ingested := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		mediaType, ok := mediaTypeForFile(entry.Name())
		if !ok {
			continue
		}

		data, err := os.ReadFile(filepath.Join(w.cfg.Path, entry.Name()))
		if err != nil {
			w.logger.Warn("Failed to read file",
				zap.String("file", entry.Name()),
				zap.Error(err))
			continue
		}
		if len(data) == 0 {
			continue
		}

		_, created, _, err := w.ledger.Ingest(ctx, entity.SourceStorage, data, mediaType, ledger.Provenance{
			Path:     w.cfg.Path,
			Filename: entry.Name(),
		})
		if err != nil {
			if errors.Is(err, ledger.ErrEmptyDocument) {
				continue
			}
			w.logger.Error("Failed to ingest file",
				zap.String("file", entry.Name()),
				zap.Error(err))
			continue
		}
		if created {
			ingested++
			w.logger.Info("File ingested from folder",
				zap.String("file", entry.Name()),
				zap.String("media_type", mediaType))
		}
	}

	if ingested > 0 {
		w.logger.Info("Folder scan completed", zap.Int("ingested", ingested))
	}
}

// mediaTypeForFile maps a filename extension to a supported media type.
func mediaTypeForFile(name string) (string, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return entity.MediaTypePDF, true
	case ".jpg", ".jpeg":
		return entity.MediaTypeJPEG, true
	case ".png":
		return entity.MediaTypePNG, true
	case ".xml":
		return entity.MediaTypeExchangeXML, true
	}
	return "", false
}
