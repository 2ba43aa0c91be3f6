package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/ladderplan/ladderd/internal/domain"
)

// ArchiveService periodically sweeps aged trade rows into cold storage.
// Nil archivers disable the sweep, which is the common case when object
// storage is not configured.
type ArchiveService struct {
	archiver  domain.Archiver
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger
}

func NewArchiveService(archiver domain.Archiver, interval, retention time.Duration, logger *slog.Logger) *ArchiveService {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	return &ArchiveService{
		archiver:  archiver,
		interval:  interval,
		retention: retention,
		logger:    logger.With(slog.String("component", "archive_service")),
	}
}

// Run sweeps once at startup and then on every interval tick until the
// context is cancelled. Call in a goroutine.
func (s *ArchiveService) Run(ctx context.Context) error {
	if s.archiver == nil {
		s.logger.Info("object storage not configured, archive sweep disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	s.sweep(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ArchiveService) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.retention)
	n, err := s.archiver.ArchiveTrades(ctx, cutoff)
	if err != nil {
		s.logger.ErrorContext(ctx, "trade archive sweep failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "trades archived",
			slog.Int64("count", n),
			slog.Time("before", cutoff))
	}
}
