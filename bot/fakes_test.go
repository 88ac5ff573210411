package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/moyoez/batchshare/notify"
	"github.com/moyoez/batchshare/session"
	"github.com/moyoez/batchshare/storage"
	"github.com/moyoez/batchshare/subscription"
	"github.com/moyoez/batchshare/types"
)

const (
	adminID  int64 = 1001
	userID   int64 = 2002
	botName        = "share_bot"
	mainChan int64 = -100111
)

type sentMessage struct {
	ChatID int64
	Text   string
	KB     Keyboard
}

type fakeGateway struct {
	mu         sync.Mutex
	sent       []sentMessage
	answers    []string
	copied     []int
	nextRef    int
	forwards   int
	forwardErr error
	copyErr    map[int]error
	statuses   map[int64]subscription.MemberStatus
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		nextRef:  500,
		copyErr:  map[int]error{},
		statuses: map[int64]subscription.MemberStatus{},
	}
}

func (g *fakeGateway) SendText(_ context.Context, chatID int64, text string, kb Keyboard) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, sentMessage{ChatID: chatID, Text: text, KB: kb})
	return nil
}

func (g *fakeGateway) ForwardToStorage(_ context.Context, _ int64, _ int) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.forwards++
	if g.forwardErr != nil {
		return 0, g.forwardErr
	}
	g.nextRef++
	return g.nextRef, nil
}

func (g *fakeGateway) CopyFromStorage(_ context.Context, _ int64, remoteRef int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.copyErr[remoteRef]; err != nil {
		return err
	}
	g.copied = append(g.copied, remoteRef)
	return nil
}

func (g *fakeGateway) AnswerCallback(_ context.Context, _ string, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.answers = append(g.answers, text)
	return nil
}

func (g *fakeGateway) BotUsername() string { return botName }

func (g *fakeGateway) ChatMemberStatus(_ context.Context, chatID, _ int64) (subscription.MemberStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.statuses[chatID]; ok {
		return s, nil
	}
	return "", subscription.ErrNotParticipant
}

func (g *fakeGateway) last() sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.sent) == 0 {
		return sentMessage{}
	}
	return g.sent[len(g.sent)-1]
}

func (g *fakeGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sent)
}

// memoryRepo is an in-memory BatchRepository with failure injection.
type memoryRepo struct {
	mu        sync.Mutex
	batches   map[string]*types.Batch
	createErr error
	calls     int

	// when set, Create signals entered and waits for release
	entered chan struct{}
	release chan struct{}
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{batches: map[string]*types.Batch{}}
}

func (r *memoryRepo) Create(_ context.Context, b *types.Batch) error {
	if r.release != nil {
		r.entered <- struct{}{}
		<-r.release
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.batches[b.BatchID]; ok {
		return storage.ErrBatchExists
	}
	cp := *b
	r.batches[b.BatchID] = &cp
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, batchId string) (*types.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	b, ok := r.batches[batchId]
	if !ok {
		return nil, storage.ErrBatchNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memoryRepo) SetActive(_ context.Context, batchId string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	b, ok := r.batches[batchId]
	if !ok {
		return storage.ErrBatchNotFound
	}
	b.IsActive = active
	return nil
}

func (r *memoryRepo) ListIDs(context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.batches))
	for id := range r.batches {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *memoryRepo) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	gw       *fakeGateway
	repo     *memoryRepo
	sessions *session.Store
	clock    *testClock
	d        *Dispatcher
}

func newHarness(t *testing.T, channels ...types.ChannelConfig) *harness {
	t.Helper()
	gw := newFakeGateway()
	repo := newMemoryRepo()
	clock := &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	sessions := session.NewStore(session.WithClock(clock.Now))
	d := NewDispatcher(gw, sessions, repo, subscription.NewGate(gw, channels), notify.New(nil, ""), Options{
		Admins:  []int64{adminID},
		BotName: "Share Bot",
		Version: "1.0.0",
	})
	return &harness{gw: gw, repo: repo, sessions: sessions, clock: clock, d: d}
}

func command(user int64, name, args string) *types.Update {
	return &types.Update{Kind: types.UpdateCommand, UserID: user, ChatID: user, Private: true, Command: name, Args: args}
}

func media(user int64, name string, size int64) *types.Update {
	return &types.Update{
		Kind:      types.UpdateMedia,
		UserID:    user,
		ChatID:    user,
		MessageID: 1,
		Private:   true,
		Media:     &types.Media{Kind: types.MediaDocument, FileName: name, Size: size},
	}
}

func callback(user int64, data string) *types.Update {
	return &types.Update{Kind: types.UpdateCallback, UserID: user, ChatID: user, CallbackID: "cb", CallbackData: data}
}

var errBoom = errors.New("boom")

func (g *fakeGateway) forwardCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.forwards
}

// blockCreate makes the next Create calls wait until the returned func is called.
func (r *memoryRepo) blockCreate() (entered <-chan struct{}, release func()) {
	r.entered = make(chan struct{}, 1)
	r.release = make(chan struct{})
	return r.entered, func() { close(r.release) }
}

func (r *memoryRepo) has(batchId string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.batches[batchId]
	return ok
}
