package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tally/internal/amqp"
	"tally/internal/export"
	"tally/internal/log"
	"tally/internal/sheets"
)

const archiveTimeLayout = "20060102T150405Z"

// ArchiveWorker keeps a copy of every export-and-reset. Each account.reset
// event becomes a CSV file in dir and, when a sheet is configured, rows in the
// archive tab. Other events are only logged.
type ArchiveWorker struct {
	dir    string
	sheet  sheets.ArchiveWriter
	logger *log.Logger
}

// NewArchiveWorker creates the archive directory if needed. sheet may be nil.
func NewArchiveWorker(dir string, sheet sheets.ArchiveWriter, logger *log.Logger) (*ArchiveWorker, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ArchiveWorker{dir: dir, sheet: sheet, logger: logger.WithComponent(log.ComponentWorker)}, nil
}

// HandleEvent processes one account event. Returning an error makes the
// consumer requeue the message; the archive file name is derived from the
// event time so a redelivery overwrites the same file.
func (w *ArchiveWorker) HandleEvent(ctx context.Context, ev *amqp.AccountEvent) error {
	if ev.Type != amqp.EventAccountReset {
		w.logger.InfoContext(ctx, "Account event",
			log.FieldEventID, ev.ID,
			log.FieldEventType, string(ev.Type),
			log.FieldBalance, ev.Balance.String(),
			log.FieldRemaining, ev.Remaining.String(),
			log.FieldCount, ev.Count)
		return nil
	}

	expenses, err := ev.ArchivedExpenses()
	if err != nil {
		// Retrying cannot fix a malformed archive.
		w.logger.ErrorContext(ctx, "Discarding reset event with corrupt archive",
			log.FieldEventID, ev.ID, log.FieldError, err)
		return nil
	}

	path, err := w.writeFile(ev, export.CSV(expenses))
	if err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "Archived reset to file",
		log.FieldOperation, log.OpArchive,
		log.FieldEventID, ev.ID,
		log.FieldCount, len(expenses),
		"path", path)

	if w.sheet == nil || len(expenses) == 0 {
		return nil
	}
	ref, err := w.sheet.AppendExpenses(ctx, expenses)
	if err != nil {
		return fmt.Errorf("archive to sheet: %w", err)
	}
	w.logger.InfoContext(ctx, "Archived reset to sheet",
		log.FieldOperation, log.OpArchive,
		log.FieldEventID, ev.ID,
		"range", ref)
	return nil
}

// ArchivePath returns the file an event is archived to.
func (w *ArchiveWorker) ArchivePath(ev *amqp.AccountEvent) string {
	at := ev.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	return filepath.Join(w.dir, fmt.Sprintf("archive-%s.csv", at.UTC().Format(archiveTimeLayout)))
}

func (w *ArchiveWorker) writeFile(ev *amqp.AccountEvent, body string) (string, error) {
	path := w.ArchivePath(ev)
	tmp, err := os.CreateTemp(w.dir, ".archive-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp archive: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename archive: %w", err)
	}
	return path, nil
}
