// Package csvfile stores the movement log as a delimited text file, one
// movement per line.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"till-bot/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const fieldCount = 5

// MovementLog implements ports.MovementLog and ports.MovementReplacer on a
// local file. Columns: id, recorded_at, actor, kind, amount.
type MovementLog struct {
	mu   sync.Mutex
	path string
}

// NewMovementLog creates a log at path. The file is created on first write.
func NewMovementLog(path string) (*MovementLog, error) {
	if path == "" {
		return nil, errors.New("csv movement log: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("csv movement log dir: %w", err)
	}
	return &MovementLog{path: path}, nil
}

func (l *MovementLog) Append(_ context.Context, m domain.Movement) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open movement log: %w", err)
	}
	if err := writeRows(f, []domain.Movement{m}); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadAll decodes every line. Lines that do not decode come back as
// movements with an invalid kind or a zero amount so the ledger can skip
// them.
func (l *MovementLog) ReadAll(_ context.Context) ([]domain.Movement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open movement log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	var out []domain.Movement
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				out = append(out, domain.Movement{})
				continue
			}
			return nil, fmt.Errorf("read movement log: %w", err)
		}
		out = append(out, decodeRow(rec))
	}
	return out, nil
}

func (l *MovementLog) Truncate(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.Truncate(l.path, 0); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("truncate movement log: %w", err)
	}
	return nil
}

// Replace writes movements to a temporary file and renames it over the log.
func (l *MovementLog) Replace(_ context.Context, movements []domain.Movement) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(l.path), filepath.Base(l.path)+".*")
	if err != nil {
		return fmt.Errorf("create movement log: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeRows(tmp, movements); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close movement log: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("replace movement log: %w", err)
	}
	return nil
}

func writeRows(w io.Writer, movements []domain.Movement) error {
	cw := csv.NewWriter(w)
	for _, m := range movements {
		if err := cw.Write(encodeRow(m)); err != nil {
			return fmt.Errorf("write movement: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write movement: %w", err)
	}
	return nil
}

func encodeRow(m domain.Movement) []string {
	return []string{
		m.ID.String(),
		m.RecordedAt.UTC().Format(time.RFC3339Nano),
		m.Actor,
		string(m.Kind),
		domain.FormatAmount(m.Amount),
	}
}

func decodeRow(rec []string) domain.Movement {
	if len(rec) != fieldCount {
		return domain.Movement{}
	}
	m := domain.Movement{Actor: rec[2]}
	if id, err := uuid.Parse(rec[0]); err == nil {
		m.ID = id
	}
	if at, err := time.Parse(time.RFC3339Nano, rec[1]); err == nil {
		m.RecordedAt = at.UTC()
	}
	kind, err := domain.ParseMovementKind(rec[3])
	if err != nil {
		m.Kind = domain.MovementKind(rec[3])
	} else {
		m.Kind = kind
	}
	if amount, err := decimal.NewFromString(rec[4]); err == nil {
		m.Amount = amount
	}
	return m
}
