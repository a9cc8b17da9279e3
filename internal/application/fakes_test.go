package application

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gearboxe-market/messaging/internal/directory"
	"github.com/gearboxe-market/messaging/internal/domain"
)

// fakeRepo is an in-memory Repository that models the pieces the service
// relies on: the unique lookup-key constraint (a duplicate insert reports
// false, mirroring ON CONFLICT DO NOTHING), store-assigned seq numbers, and
// read-state filtering.
type fakeRepo struct {
	mu            sync.Mutex
	convs         map[string]*domain.Conversation // by id
	convsByKey    map[string]string               // lookup key -> id
	messages      []*domain.Message
	nextSeq       int64
	idempotency   map[string][]byte
	outboxEvents  []string
	failNextTouch error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		convs:       make(map[string]*domain.Conversation),
		convsByKey:  make(map[string]string),
		idempotency: make(map[string][]byte),
	}
}

func (f *fakeRepo) InsertConversation(ctx context.Context, tx *sql.Tx, conv *domain.Conversation, lookupKey string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, dup := f.convsByKey[lookupKey]; dup {
		return false, nil
	}
	cp := *conv
	f.convs[conv.ID] = &cp
	f.convsByKey[lookupKey] = conv.ID
	return true, nil
}

func (f *fakeRepo) GetConversation(ctx context.Context, tx *sql.Tx, id string) (*domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[id]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	cp := *conv
	return &cp, nil
}

func (f *fakeRepo) GetConversationByLookupKey(ctx context.Context, tx *sql.Tx, key string) (*domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.convsByKey[key]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	cp := *f.convs[id]
	return &cp, nil
}

func (f *fakeRepo) TouchConversation(ctx context.Context, tx *sql.Tx, id string, ts time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNextTouch != nil {
		err := f.failNextTouch
		f.failNextTouch = nil
		return err
	}
	if conv, ok := f.convs[id]; ok && ts.After(conv.LastMessageAt) {
		conv.LastMessageAt = ts
	}
	return nil
}

func (f *fakeRepo) ListConversationsByUser(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Conversation
	for _, conv := range f.convs {
		if conv.HasParticipant(userID) {
			cp := *conv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) InsertMessage(ctx context.Context, tx *sql.Tx, msg *domain.Message) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSeq++
	msg.Seq = f.nextSeq
	cp := *msg
	f.messages = append(f.messages, &cp)
	return msg.Seq, nil
}

func (f *fakeRepo) GetMessage(ctx context.Context, tx *sql.Tx, id string) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, msg := range f.messages {
		if msg.ID == id {
			cp := *msg
			return &cp, nil
		}
	}
	return nil, domain.ErrMessageNotFound
}

func (f *fakeRepo) FetchMessagesByConversation(ctx context.Context, convID string) ([]*domain.Message, error) {
	return f.fetchSorted(func(m *domain.Message) bool {
		return m.ConversationID != nil && *m.ConversationID == convID
	}), nil
}

func (f *fakeRepo) FetchMessagesByVehicle(ctx context.Context, vehicleID, userID string) ([]*domain.Message, error) {
	return f.fetchSorted(func(m *domain.Message) bool {
		return m.VehicleID == vehicleID && (m.SenderID == userID || m.RecipientID == userID)
	}), nil
}

func (f *fakeRepo) fetchSorted(match func(*domain.Message) bool) []*domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Message
	for _, msg := range f.messages {
		if match(msg) {
			cp := *msg
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (f *fakeRepo) LatestMessage(ctx context.Context, convID string) (*domain.Message, error) {
	msgs, _ := f.FetchMessagesByConversation(ctx, convID)
	if len(msgs) == 0 {
		return nil, nil
	}
	return msgs[len(msgs)-1], nil
}

func (f *fakeRepo) MarkMessageRead(ctx context.Context, tx *sql.Tx, msgID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, msg := range f.messages {
		if msg.ID == msgID && !msg.Read {
			msg.Read = true
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) MarkConversationRead(ctx context.Context, tx *sql.Tx, convID, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, msg := range f.messages {
		if msg.ConversationID != nil && *msg.ConversationID == convID &&
			msg.RecipientID == userID && !msg.Read {
			msg.Read = true
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) UnreadCountForUser(ctx context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, msg := range f.messages {
		if msg.RecipientID == userID && !msg.Read {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) UnreadCountInConversation(ctx context.Context, convID, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, msg := range f.messages {
		if msg.ConversationID != nil && *msg.ConversationID == convID &&
			msg.RecipientID == userID && !msg.Read {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) FetchUnlinkedMessages(ctx context.Context, tx *sql.Tx, limit int) ([]*domain.Message, error) {
	out := f.fetchSorted(func(m *domain.Message) bool {
		return m.ConversationID == nil
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) LinkMessagesToConversation(ctx context.Context, tx *sql.Tx, msgIDs []string, convID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make(map[string]bool, len(msgIDs))
	for _, id := range msgIDs {
		ids[id] = true
	}
	for _, msg := range f.messages {
		if ids[msg.ID] {
			cid := convID
			msg.ConversationID = &cid
		}
	}
	return nil
}

func (f *fakeRepo) TryInsertIdempotency(ctx context.Context, tx *sql.Tx, key, userID string, expiresAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key + "/" + userID
	if _, dup := f.idempotency[k]; dup {
		return false, nil
	}
	f.idempotency[k] = nil
	return true, nil
}

func (f *fakeRepo) GetIdempotencyForUpdate(ctx context.Context, tx *sql.Tx, key, userID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.idempotency[key+"/"+userID], nil
}

func (f *fakeRepo) UpdateIdempotencyResponse(ctx context.Context, tx *sql.Tx, key, userID string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.idempotency[key+"/"+userID] = payload
	return nil
}

func (f *fakeRepo) InsertOutbox(ctx context.Context, tx *sql.Tx, aggregateType, aggregateID, eventType string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outboxEvents = append(f.outboxEvents, eventType)
	return nil
}

// fakeTransactor runs the unit of work directly; the fake repo ignores tx.
type fakeTransactor struct{}

func (fakeTransactor) WithTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return fn(ctx, nil)
}

type fakeDirectory struct {
	users    map[string]string // id -> display name
	vehicles map[string]string // id -> title
}

func (f *fakeDirectory) ResolveUser(ctx context.Context, externalAuthID string) (*directory.User, error) {
	return f.GetUser(ctx, externalAuthID)
}

func (f *fakeDirectory) GetUser(ctx context.Context, id string) (*directory.User, error) {
	name, ok := f.users[id]
	if !ok {
		return nil, directory.ErrUserNotFound
	}
	return &directory.User{ID: id, DisplayName: name, Role: directory.RoleUser}, nil
}

func (f *fakeDirectory) GetVehicle(ctx context.Context, id string) (*directory.Vehicle, error) {
	title, ok := f.vehicles[id]
	if !ok {
		return nil, directory.ErrVehicleNotFound
	}
	return &directory.Vehicle{ID: id, Title: title}, nil
}

func newTestService(repo *fakeRepo, dir *fakeDirectory) *Service {
	if dir == nil {
		dir = &fakeDirectory{users: map[string]string{}, vehicles: map[string]string{}}
	}
	return New(repo, fakeTransactor{}, dir, dir, nil, nil, zap.NewNop())
}
