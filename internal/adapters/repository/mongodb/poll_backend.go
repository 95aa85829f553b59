package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"github.com/vncsmyrnk/livepoll/internal/logging"
)

type pollBSON struct {
	ID          primitive.ObjectID     `bson:"_id,omitempty"`
	Question    string                 `bson:"question"`
	CreatorID   string                 `bson:"creatorId,omitempty"`
	CreatorName string                 `bson:"creatorName,omitempty"`
	TotalVotes  *int64                 `bson:"totalVotes,omitempty"`
	Options     map[string]*optionBSON `bson:"options"`
	CreatedAt   time.Time              `bson:"createdAt"`
}

type optionBSON struct {
	Text   string   `bson:"text"`
	Votes  *int64   `bson:"votes,omitempty"`
	Voters []string `bson:"voters"`
}

// PollBackend issues every vote as one UpdateOne, which MongoDB applies to
// the document atomically.
type PollBackend struct {
	coll *mongo.Collection
	log  logging.Logger
}

func NewPollBackend(db *mongo.Database, collection string, log logging.Logger) *PollBackend {
	return &PollBackend{
		coll: db.Collection(collection),
		log:  log.With("component", "mongo_poll_backend"),
	}
}

var _ ports.PollBackend = (*PollBackend)(nil)

func (b *PollBackend) Get(ctx context.Context, id string) (*domain.PollDocument, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrDocumentNotFound
	}
	var raw pollBSON
	if err := b.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&raw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}
	return fromBSON(raw), nil
}

func (b *PollBackend) List(ctx context.Context) ([]*domain.PollDocument, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := b.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list polls: %w", err)
	}
	var raws []pollBSON
	if err := cur.All(ctx, &raws); err != nil {
		return nil, fmt.Errorf("failed to decode polls: %w", err)
	}
	docs := make([]*domain.PollDocument, 0, len(raws))
	for _, raw := range raws {
		docs = append(docs, fromBSON(raw))
	}
	return docs, nil
}

func (b *PollBackend) Create(ctx context.Context, doc *domain.PollDocument) (string, error) {
	raw := toBSON(doc)
	raw.ID = primitive.NewObjectID()
	if _, err := b.coll.InsertOne(ctx, raw); err != nil {
		return "", fmt.Errorf("failed to insert poll: %w", err)
	}
	return raw.ID.Hex(), nil
}

func (b *PollBackend) AtomicUpdate(ctx context.Context, id string, deltas []domain.FieldDelta) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrDocumentNotFound
	}
	update, err := toUpdate(deltas)
	if err != nil {
		return err
	}
	if len(update) == 0 {
		return nil
	}
	res, err := b.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to update poll: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (b *PollBackend) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrDocumentNotFound
	}
	res, err := b.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete poll: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// Subscribe opens a change stream on the collection and re-reads it on every
// event. The current state is delivered before Subscribe returns.
func (b *PollBackend) Subscribe(ctx context.Context, onChange func([]*domain.PollDocument)) (ports.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	stream, err := b.coll.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open change stream: %w", err)
	}

	docs, err := b.List(ctx)
	if err != nil {
		cancel()
		_ = stream.Close(context.Background())
		return nil, err
	}
	onChange(docs)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer stream.Close(context.Background())
		for stream.Next(ctx) {
			docs, err := b.List(ctx)
			if err != nil {
				b.log.Error(ctx, "failed to reload polls", "error", err)
				continue
			}
			onChange(docs)
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			b.log.Error(ctx, "change stream stopped", "error", err)
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

// toUpdate folds deltas into one update document. Increments on the same
// path are summed; set operations on the same path are batched with $each
// or $in.
func toUpdate(deltas []domain.FieldDelta) (bson.M, error) {
	inc := bson.M{}
	adds := map[string][]string{}
	pulls := map[string][]string{}
	for _, d := range deltas {
		if err := checkPath(d.Path); err != nil {
			return nil, err
		}
		path := d.Path.String()
		switch d.Kind {
		case domain.DeltaIncrement:
			prev, _ := inc[path].(int)
			inc[path] = prev + d.Amount
		case domain.DeltaSetAdd:
			adds[path] = append(adds[path], d.Element)
		case domain.DeltaSetRemove:
			pulls[path] = append(pulls[path], d.Element)
		default:
			return nil, fmt.Errorf("unsupported delta %s", d)
		}
	}
	for path := range adds {
		if _, ok := pulls[path]; ok {
			return nil, fmt.Errorf("%w: %s is both added to and removed from", domain.ErrInvalidFieldPath, path)
		}
	}

	update := bson.M{}
	if len(inc) > 0 {
		update["$inc"] = inc
	}
	if len(adds) > 0 {
		set := bson.M{}
		for path, elems := range adds {
			if len(elems) == 1 {
				set[path] = elems[0]
			} else {
				set[path] = bson.M{"$each": elems}
			}
		}
		update["$addToSet"] = set
	}
	if len(pulls) > 0 {
		pull := bson.M{}
		for path, elems := range pulls {
			if len(elems) == 1 {
				pull[path] = elems[0]
			} else {
				pull[path] = bson.M{"$in": elems}
			}
		}
		update["$pull"] = pull
	}
	return update, nil
}

func checkPath(path domain.FieldPath) error {
	if len(path) == 0 {
		return domain.ErrInvalidFieldPath
	}
	for _, part := range path {
		if part == "" || strings.ContainsAny(part, ".$") {
			return fmt.Errorf("%w: %q", domain.ErrInvalidFieldPath, path.String())
		}
	}
	return nil
}

func toBSON(doc *domain.PollDocument) pollBSON {
	raw := pollBSON{
		Question:    doc.Question,
		CreatorID:   doc.CreatorID,
		CreatorName: doc.CreatorName,
		TotalVotes:  toInt64(doc.TotalVotes),
		Options:     make(map[string]*optionBSON, len(doc.Options)),
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
		raw.Options[id] = &optionBSON{Text: o.Text, Votes: toInt64(o.Votes), Voters: voters}
	}
	return raw
}

func fromBSON(raw pollBSON) *domain.PollDocument {
	doc := &domain.PollDocument{
		ID:          raw.ID.Hex(),
		Question:    raw.Question,
		CreatorID:   raw.CreatorID,
		CreatorName: raw.CreatorName,
		TotalVotes:  toInt(raw.TotalVotes),
		Options:     make(map[string]*domain.OptionDocument, len(raw.Options)),
		CreatedAt:   raw.CreatedAt,
	}
	for id, o := range raw.Options {
		if o == nil {
			doc.Options[id] = nil
			continue
		}
		doc.Options[id] = &domain.OptionDocument{Text: o.Text, Votes: toInt(o.Votes), Voters: o.Voters}
	}
	return doc
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
