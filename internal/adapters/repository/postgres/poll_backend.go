package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"github.com/vncsmyrnk/livepoll/internal/logging"
)

// PollsChannel is the LISTEN/NOTIFY channel raised on every poll write.
const PollsChannel = "polls_changed"

const listenerPingInterval = 90 * time.Second

// PollBackend stores each poll document as one JSONB row. Writes lock the
// row, apply the deltas in Go and notify PollsChannel inside the same
// transaction, so listeners only hear about committed changes.
type PollBackend struct {
	db  *sql.DB
	dsn string
	log logging.Logger
}

func NewPollBackend(db *sql.DB, dsn string, log logging.Logger) *PollBackend {
	return &PollBackend{
		db:  db,
		dsn: dsn,
		log: log.With("component", "postgres_poll_backend"),
	}
}

var _ ports.PollBackend = (*PollBackend)(nil)

func (b *PollBackend) Get(ctx context.Context, id string) (*domain.PollDocument, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrDocumentNotFound
	}
	return getDocument(ctx, b.db, id, false)
}

func (b *PollBackend) List(ctx context.Context) ([]*domain.PollDocument, error) {
	query := `SELECT id, doc FROM polls ORDER BY created_at DESC, id`
	rows, err := b.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list polls: %w", err)
	}
	defer rows.Close()

	var docs []*domain.PollDocument
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		doc, err := decodeDocument(id, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate polls: %w", err)
	}
	return docs, nil
}

func (b *PollBackend) Create(ctx context.Context, doc *domain.PollDocument) (string, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode poll: %w", err)
	}
	id := uuid.NewString()

	err = withTx(ctx, b.db, func(ctx context.Context, tx DBTX) error {
		query := `INSERT INTO polls (id, doc, created_at) VALUES ($1, $2, $3)`
		if _, err := tx.ExecContext(ctx, query, id, string(raw), doc.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert poll: %w", err)
		}
		return notify(ctx, tx, id)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// AtomicUpdate applies all deltas under a row lock or none of them.
func (b *PollBackend) AtomicUpdate(ctx context.Context, id string, deltas []domain.FieldDelta) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrDocumentNotFound
	}
	return withTx(ctx, b.db, func(ctx context.Context, tx DBTX) error {
		doc, err := getDocument(ctx, tx, id, true)
		if err != nil {
			return err
		}
		updated, err := domain.ApplyDeltas(doc, deltas)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("failed to encode poll: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE polls SET doc = $2 WHERE id = $1`, id, string(raw)); err != nil {
			return fmt.Errorf("failed to update poll: %w", err)
		}
		return notify(ctx, tx, id)
	})
}

func (b *PollBackend) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrDocumentNotFound
	}
	return withTx(ctx, b.db, func(ctx context.Context, tx DBTX) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM polls WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete poll: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to delete poll: %w", err)
		}
		if n == 0 {
			return domain.ErrDocumentNotFound
		}
		return notify(ctx, tx, id)
	})
}

// Subscribe LISTENs on PollsChannel and re-reads the whole table on every
// notification or reconnect. The current state is delivered first.
func (b *PollBackend) Subscribe(ctx context.Context, onChange func([]*domain.PollDocument)) (ports.Subscription, error) {
	listener := pq.NewListener(b.dsn, time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			b.log.Warn(ctx, "listener event", "event", int(ev), "error", err)
		}
	})
	if err := listener.Listen(PollsChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", PollsChannel, err)
	}

	docs, err := b.List(ctx)
	if err != nil {
		listener.Close()
		return nil, err
	}
	onChange(docs)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		b.forward(ctx, listener, done, onChange)
	}()

	var once sync.Once
	return ports.SubscriptionFunc(func() {
		once.Do(func() {
			close(done)
			wg.Wait()
			listener.Close()
		})
	}), nil
}

func (b *PollBackend) forward(ctx context.Context, listener *pq.Listener, done <-chan struct{}, onChange func([]*domain.PollDocument)) {
	ticker := time.NewTicker(listenerPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			if err := listener.Ping(); err != nil {
				b.log.Warn(ctx, "listener ping failed", "error", err)
			}
		case <-listener.Notify:
			// A nil notification means the connection was re-established and
			// events may have been missed; a full re-read covers both cases.
			docs, err := b.List(ctx)
			if err != nil {
				b.log.Error(ctx, "failed to reload polls", "error", err)
				continue
			}
			onChange(docs)
		}
	}
}

func getDocument(ctx context.Context, db DBTX, id string, forUpdate bool) (*domain.PollDocument, error) {
	query := `SELECT doc FROM polls WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var raw []byte
	if err := db.QueryRowContext(ctx, query, id).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}
	return decodeDocument(id, raw)
}

func decodeDocument(id string, raw []byte) (*domain.PollDocument, error) {
	doc := &domain.PollDocument{}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("failed to decode poll %s: %w", id, err)
	}
	doc.ID = id
	return doc, nil
}

func notify(ctx context.Context, tx DBTX, id string) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, PollsChannel, id); err != nil {
		return fmt.Errorf("failed to notify %s: %w", PollsChannel, err)
	}
	return nil
}
