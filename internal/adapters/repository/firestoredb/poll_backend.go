package firestoredb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"github.com/vncsmyrnk/livepoll/internal/logging"
)

type pollData struct {
	Question    string                 `firestore:"question"`
	CreatorID   string                 `firestore:"creatorId,omitempty"`
	CreatorName string                 `firestore:"creatorName,omitempty"`
	TotalVotes  *int64                 `firestore:"totalVotes,omitempty"`
	Options     map[string]*optionData `firestore:"options"`
	CreatedAt   time.Time              `firestore:"createdAt"`
}

type optionData struct {
	Text   string   `firestore:"text"`
	Votes  *int64   `firestore:"votes,omitempty"`
	Voters []string `firestore:"voters"`
}

// PollBackend relies on single-document Update being atomic: every field
// transform in one call commits together or not at all.
type PollBackend struct {
	client     *firestore.Client
	collection string
	log        logging.Logger
}

func NewPollBackend(client *firestore.Client, collection string, log logging.Logger) *PollBackend {
	return &PollBackend{
		client:     client,
		collection: collection,
		log:        log.With("component", "firestore_poll_backend"),
	}
}

var _ ports.PollBackend = (*PollBackend)(nil)

func (b *PollBackend) col() *firestore.CollectionRef {
	return b.client.Collection(b.collection)
}

func (b *PollBackend) Get(ctx context.Context, id string) (*domain.PollDocument, error) {
	if id == "" {
		return nil, domain.ErrDocumentNotFound
	}
	snap, err := b.col().Doc(id).Get(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return decode(snap)
}

func (b *PollBackend) List(ctx context.Context) ([]*domain.PollDocument, error) {
	iter := b.col().Documents(ctx)
	defer iter.Stop()
	return decodeAll(iter)
}

func (b *PollBackend) Create(ctx context.Context, doc *domain.PollDocument) (string, error) {
	ref, _, err := b.col().Add(ctx, encode(doc))
	if err != nil {
		return "", fmt.Errorf("failed to add poll: %w", err)
	}
	return ref.ID, nil
}

func (b *PollBackend) AtomicUpdate(ctx context.Context, id string, deltas []domain.FieldDelta) error {
	if id == "" {
		return domain.ErrDocumentNotFound
	}
	updates, err := toUpdates(deltas)
	if err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}
	if _, err := b.col().Doc(id).Update(ctx, updates); err != nil {
		return mapError(err)
	}
	return nil
}

func (b *PollBackend) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrDocumentNotFound
	}
	if _, err := b.col().Doc(id).Delete(ctx, firestore.Exists); err != nil {
		return mapError(err)
	}
	return nil
}

// Subscribe streams query snapshots of the whole collection. The first
// snapshot carries the current state.
func (b *PollBackend) Subscribe(ctx context.Context, onChange func([]*domain.PollDocument)) (ports.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	it := b.col().Snapshots(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && status.Code(err) != codes.Canceled {
					b.log.Error(ctx, "snapshot listener stopped", "error", err)
				}
				return
			}
			docs, err := decodeAll(snap.Documents)
			if err != nil {
				b.log.Error(ctx, "failed to decode snapshot", "error", err)
				continue
			}
			onChange(docs)
		}
	}()

	var once sync.Once
	return ports.SubscriptionFunc(func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}), nil
}

// toUpdates translates deltas into Firestore field transforms. Paths are
// built as FieldPath values so option ids never need escaping.
func toUpdates(deltas []domain.FieldDelta) ([]firestore.Update, error) {
	updates := make([]firestore.Update, 0, len(deltas))
	for _, d := range deltas {
		if len(d.Path) == 0 {
			return nil, domain.ErrInvalidFieldPath
		}
		u := firestore.Update{FieldPath: firestore.FieldPath(d.Path)}
		switch d.Kind {
		case domain.DeltaIncrement:
			u.Value = firestore.Increment(d.Amount)
		case domain.DeltaSetAdd:
			u.Value = firestore.ArrayUnion(d.Element)
		case domain.DeltaSetRemove:
			u.Value = firestore.ArrayRemove(d.Element)
		default:
			return nil, fmt.Errorf("unsupported delta %s", d)
		}
		updates = append(updates, u)
	}
	return updates, nil
}

func encode(doc *domain.PollDocument) pollData {
	data := pollData{
		Question:    doc.Question,
		CreatorID:   doc.CreatorID,
		CreatorName: doc.CreatorName,
		TotalVotes:  toInt64(doc.TotalVotes),
		Options:     make(map[string]*optionData, len(doc.Options)),
		CreatedAt:   doc.CreatedAt,
	}
	for id, o := range doc.Options {
		if o == nil {
			continue
		}
		voters := o.Voters
		if voters == nil {
			voters = []string{}
		}
		data.Options[id] = &optionData{Text: o.Text, Votes: toInt64(o.Votes), Voters: voters}
	}
	return data
}

func fromData(id string, data pollData) *domain.PollDocument {
	doc := &domain.PollDocument{
		ID:          id,
		Question:    data.Question,
		CreatorID:   data.CreatorID,
		CreatorName: data.CreatorName,
		TotalVotes:  toInt(data.TotalVotes),
		Options:     make(map[string]*domain.OptionDocument, len(data.Options)),
		CreatedAt:   data.CreatedAt,
	}
	for oid, o := range data.Options {
		if o == nil {
			doc.Options[oid] = nil
			continue
		}
		doc.Options[oid] = &domain.OptionDocument{Text: o.Text, Votes: toInt(o.Votes), Voters: o.Voters}
	}
	return doc
}

func decode(snap *firestore.DocumentSnapshot) (*domain.PollDocument, error) {
	var data pollData
	if err := snap.DataTo(&data); err != nil {
		return nil, fmt.Errorf("failed to decode poll %s: %w", snap.Ref.ID, err)
	}
	return fromData(snap.Ref.ID, data), nil
}

func decodeAll(iter *firestore.DocumentIterator) ([]*domain.PollDocument, error) {
	var docs []*domain.PollDocument
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return docs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read polls: %w", err)
		}
		doc, err := decode(snap)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
}

func mapError(err error) error {
	if status.Code(err) == codes.NotFound {
		return domain.ErrDocumentNotFound
	}
	return err
}

func toInt64(v *int) *int64 {
	if v == nil {
		return nil
	}
	n := int64(*v)
	return &n
}

func toInt(v *int64) *int {
	if v == nil {
		return nil
	}
	n := int(*v)
	return &n
}
