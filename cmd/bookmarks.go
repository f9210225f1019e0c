package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// BookmarkAdd creates a bookmark locally and pushes it to the server.
func (r *Runner) BookmarkAdd(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	bookID := cmd.StringArg("book")
	if bookID == "" {
		return fmt.Errorf("%w: book id", shared.ErrMissingArgument)
	}

	s, err := r.openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	bookmark, err := s.queue.Create(bookID, cmd.String("title"), int(cmd.Int("time")))
	if err != nil {
		return err
	}
	s.queue.Flush()

	saved, err := s.bookmarks.Get(bookmark.BookID, bookmark.Time)
	if err != nil {
		return err
	}

	r.writePlain("✓ Bookmark at %s (%s)\n", time.Duration(saved.Time)*time.Second, saved.Status)
	return nil
}

// BookmarkRetitle changes a bookmark's title.
func (r *Runner) BookmarkRetitle(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	bookID := cmd.StringArg("book")
	if bookID == "" {
		return fmt.Errorf("%w: book id", shared.ErrMissingArgument)
	}

	s, err := r.openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.queue.Update(bookID, int(cmd.Int("time")), cmd.String("title")); err != nil {
		return err
	}
	s.queue.Flush()

	r.writePlain("✓ Bookmark updated\n")
	return nil
}

// BookmarkDelete removes a bookmark locally and on the server.
func (r *Runner) BookmarkDelete(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	bookID := cmd.StringArg("book")
	if bookID == "" {
		return fmt.Errorf("%w: book id", shared.ErrMissingArgument)
	}

	s, err := r.openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.queue.Delete(bookID, int(cmd.Int("time"))); err != nil {
		return err
	}
	s.queue.Flush()

	r.writePlain("✓ Bookmark deleted\n")
	return nil
}

// BookmarkList prints local bookmarks with their sync status.
func (r *Runner) BookmarkList(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	a, err := r.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var list []*models.Bookmark
	if bookID := cmd.String("book"); bookID != "" {
		list, err = a.bookmarks.ListByBook(bookID)
	} else {
		list, err = a.bookmarks.All()
	}
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(list, true)
	}

	if len(list) == 0 {
		r.writePlain("No bookmarks.\n")
		return nil
	}

	for _, bookmark := range list {
		r.writePlain("%-8s %s @ %s  %s\n", bookmark.Status, bookmark.BookID, time.Duration(bookmark.Time)*time.Second, bookmark.Title)
	}
	return nil
}

// BookmarkSync pushes every pending or failed bookmark to the server.
func (r *Runner) BookmarkSync(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	s, err := r.openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	pending, err := s.bookmarks.ListPending()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		r.writePlain("Nothing to sync.\n")
		return nil
	}

	if err := s.queue.SyncPending(ctx); err != nil {
		return err
	}
	s.queue.Flush()

	r.writePlain("✓ Synced %d bookmark(s)\n", len(pending))
	return nil
}

// BookmarkPull replaces local bookmark knowledge with the server's list.
func (r *Runner) BookmarkPull(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	s, err := r.openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.queue.SyncFromAPI(ctx); err != nil {
		return err
	}

	r.writePlain("✓ Bookmarks pulled from server\n")
	return nil
}
