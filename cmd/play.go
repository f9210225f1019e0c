package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// Play drives a playback session from the terminal: it opens (or resumes)
// a session for the item, advances the position once a second, and lets
// the session manager decide when to report progress upstream. Ctrl-C or
// the --seconds limit stops playback and closes the session.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	itemID := cmd.StringArg("item")
	if itemID == "" {
		return fmt.Errorf("%w: item id", shared.ErrMissingArgument)
	}

	s, err := r.openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	progress, err := s.progress.Get(itemID)
	if errors.Is(err, shared.ErrNotFound) {
		progress = &models.MediaProgress{ItemID: itemID}
	} else if err != nil {
		return err
	}

	book, err := s.books.Get(itemID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	session, book, position, err := s.manager.EnsureSession(ctx, itemID, book, progress)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}

	title := itemID
	if book != nil && book.Title != "" {
		title = book.Title
	}
	r.writePlain("▶ %s (session %s) from %s\n", title, session.ID, time.Duration(position)*time.Second)

	rate := cmd.Float("rate")
	if rate <= 0 {
		rate = 1.0
	}
	limit := cmd.Int("seconds")

	s.transport.SetRate(rate)
	s.manager.NotifyPlaybackStarted()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	progress.CurrentTime = position
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	elapsed := 0
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
		}

		elapsed++
		progress.CurrentTime += rate
		progress.TimeListened += 1
		progress.LastPlayedAt = time.Now()
		if err := s.progress.Save(progress); err != nil {
			r.logger.Error("failed to save progress", "item", itemID, "err", err)
		}

		synced, err := s.manager.SyncProgress(ctx, progress.TimeListened, progress.CurrentTime)
		if err != nil {
			if errors.Is(err, shared.ErrNoActiveSession) {
				break loop
			}
			r.logger.Warn("progress sync failed, will retry", "err", err)
		} else if synced {
			progress.TimeListened = 0
		}

		if limit > 0 && elapsed >= int(limit) {
			break loop
		}
	}

	s.transport.SetRate(0)
	s.manager.NotifyPlaybackStopped()

	closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.manager.CloseSession(closeCtx, progress.TimeListened, progress.CurrentTime)

	r.writePlain("⏹ Stopped at %s\n", time.Duration(progress.CurrentTime)*time.Second)
	return nil
}

// SessionClose closes the last known session. After a crash the session id
// comes from the durable record, so a session left open by a previous run
// still gets closed.
func (r *Runner) SessionClose(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	s, err := r.openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	lastID, err := s.state.LastSessionID()
	if err != nil {
		return err
	}
	if lastID == "" {
		r.writePlain("No open session.\n")
		return nil
	}

	s.manager.CloseSession(ctx, 0, 0)
	r.writePlain("✓ Closed session %s\n", lastID)
	return nil
}

// SessionStatus prints local progress records, most recent first.
func (r *Runner) SessionStatus(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	a, err := r.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.progress.List()
	if err != nil {
		return err
	}

	if len(records) == 0 {
		r.writePlain("No playback history.\n")
		return nil
	}

	for _, record := range records {
		title := record.ItemID
		if book, err := a.books.Get(record.ItemID); err == nil && book.Title != "" {
			title = book.Title
		}
		r.writePlain("%-40s %6.1f%%  at %s  (%.0fs unsynced)\n",
			title, record.Fraction()*100, time.Duration(record.CurrentTime)*time.Second, record.TimeListened)
	}
	return nil
}
