package ledger

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"spinwheel/internal/models"
	"spinwheel/internal/storage"

	"github.com/google/logger"
)

const (
	// MaxRecords is how many winners are retained.
	MaxRecords = 5
	// TimeLayout renders win times like "3:04 PM".
	TimeLayout = "3:04 PM"

	csvHeader = "Name,Membership ID,Prize,Time"
	missing   = "N/A"
)

// Ledger is the bounded, persisted history of recent winners, newest first.
type Ledger struct {
	mu      sync.RWMutex
	store   storage.Store
	records []models.WinnerRecord
	now     func() time.Time
}

// New loads the ledger snapshot from store. A missing snapshot means an empty ledger.
func New(ctx context.Context, store storage.Store) (*Ledger, error) {
	l := &Ledger{store: store, now: time.Now}

	var records []models.WinnerRecord
	if _, err := storage.LoadJSON(ctx, store, storage.WinnersKey, &records); err != nil {
		return nil, fmt.Errorf("load winners: %w", err)
	}
	if len(records) > MaxRecords {
		records = records[:MaxRecords]
	}
	l.records = records
	return l, nil
}

// Records returns a copy of the retained winners, newest first.
func (l *Ledger) Records() []models.WinnerRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.WinnerRecord, len(l.records))
	copy(out, l.records)
	return out
}

// HasMember reports whether membershipID already won. Ids compare case-sensitively.
func (l *Ledger) HasMember(membershipID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, r := range l.records {
		if r.ID == membershipID {
			return true
		}
	}
	return false
}

// RecordWin puts a new record at the front, drops the oldest beyond
// MaxRecords and persists the whole ledger. The in-memory ledger is updated
// even when persisting fails.
func (l *Ledger) RecordWin(ctx context.Context, user models.SessionUser, prize models.Prize) (models.WinnerRecord, error) {
	rec := models.WinnerRecord{
		Name:  user.Name,
		ID:    user.ID,
		Prize: prize.Name,
		Time:  l.now().Format(TimeLayout),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	records := make([]models.WinnerRecord, 0, MaxRecords)
	records = append(records, rec)
	records = append(records, l.records...)
	if len(records) > MaxRecords {
		records = records[:MaxRecords]
	}
	l.records = records

	if err := storage.SaveJSON(ctx, l.store, storage.WinnersKey, l.records); err != nil {
		return rec, fmt.Errorf("save winners: %w", err)
	}
	logger.Infof("Recorded win: %s (%s) -> %s", rec.Name, rec.ID, rec.Prize)
	return rec, nil
}

// ExportCSV writes the retained winners as CSV. Fields are joined with bare
// commas and never quoted, so values containing commas break the row.
func (l *Ledger) ExportCSV(w io.Writer) error {
	records := l.Records()

	bw := bufio.NewWriter(w)
	bw.WriteString(csvHeader + "\n")
	for _, r := range records {
		bw.WriteString(strings.Join([]string{
			orMissing(r.Name), orMissing(r.ID), orMissing(r.Prize), orMissing(r.Time),
		}, ",") + "\n")
	}
	return bw.Flush()
}

// Reset removes the stored snapshot and empties the ledger.
func (l *Ledger) Reset(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.store.Delete(ctx, storage.WinnersKey); err != nil {
		return fmt.Errorf("reset winners: %w", err)
	}
	l.records = nil
	return nil
}

func orMissing(s string) string {
	if s == "" {
		return missing
	}
	return s
}
