package consumer

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gorm.io/datatypes"

	"github.com/SixtySecondsApp/onboarding-forms/dashboard"
	"github.com/SixtySecondsApp/onboarding-forms/models"
	"github.com/SixtySecondsApp/onboarding-forms/notify"
)

type fakeIndex struct {
	mu      sync.Mutex
	indexed map[string]interface{}
	deleted []string
}

func (f *fakeIndex) IndexDocument(_ context.Context, index, id string, doc interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed[index+"/"+id] = doc
	return nil
}

func (f *fakeIndex) DeleteDocument(_ context.Context, index, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, index+"/"+id)
	return nil
}

func (f *fakeIndex) Search(context.Context, string, map[string]interface{}) ([]map[string]interface{}, error) {
	return nil, nil
}

func (f *fakeIndex) Close() error { return nil }

type fakeFeedCache struct {
	mu    sync.Mutex
	items []string
}

func (c *fakeFeedCache) GetFromCache(context.Context, string) (string, error) { return "", nil }
func (c *fakeFeedCache) SetToCache(context.Context, string, string, time.Duration) error {
	return nil
}
func (c *fakeFeedCache) Delete(context.Context, ...string) error { return nil }
func (c *fakeFeedCache) Ping(context.Context) error              { return nil }
func (c *fakeFeedCache) Close() error                            { return nil }
func (c *fakeFeedCache) Range(context.Context, string, int64) ([]string, error) {
	return c.items, nil
}
func (c *fakeFeedCache) PushCapped(_ context.Context, _ string, v string, _ int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, v)
	return nil
}

type recordingSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *recordingSender) Send(_ context.Context, _ *models.WebhookSetting, e models.FormEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, e.Event)
	return nil
}

func encode(t *testing.T, e models.FormEvent) []byte {
	t.Helper()
	b, err := json.Marshal(e)
	require.NoError(t, err)
	return b
}

func newTestConsumer(t *testing.T, reader *chanReader) (*FormConsumer, *fakeIndex, *fakeFeedCache, *recordingSender) {
	t.Helper()
	repo := models.NewMemoryRepository()
	require.NoError(t, repo.SaveWebhookSetting(context.Background(), &models.WebhookSetting{
		CreatedBy: "admin-1",
		URL:       "https://hooks.example.com",
		Events:    datatypes.JSONSlice[string]{models.EventFormCompleted},
		Enabled:   true,
	}))

	idx := &fakeIndex{indexed: map[string]interface{}{}}
	cache := &fakeFeedCache{}
	sender := &recordingSender{}
	c := NewFormConsumer(repo, idx, notify.NewFeed(cache, "https://onboard.example.com"), sender, reader)
	return c, idx, cache, sender
}

func TestHandleFanOut(t *testing.T) {
	c, idx, cache, sender := newTestConsumer(t, nil)
	ctx := context.Background()
	form := &models.Form{ID: "f1", ClientName: "Acme", Slug: "acme-abcd", Status: models.StatusCompleted, Progress: 100, CreatedBy: "admin-1"}

	c.Handle(ctx, encode(t, models.FormEvent{Event: models.EventFormUpdated, FormID: "f1", Owner: "admin-1", Form: form}))
	c.Handle(ctx, encode(t, models.FormEvent{Event: models.EventFormCompleted, FormID: "f1", Owner: "admin-1", Form: form}))
	c.Handle(ctx, encode(t, models.FormEvent{Event: models.EventFormDeleted, FormID: "f1", Owner: "admin-1"}))
	c.Handle(ctx, []byte("not json"))
	c.Handle(ctx, encode(t, models.FormEvent{Event: "something_else", FormID: "f1", Owner: "admin-1"}))

	doc, ok := idx.indexed[dashboard.SearchIndex+"/f1"].(dashboard.SearchHit)
	require.True(t, ok)
	assert.Equal(t, 100, doc.Progress)
	assert.Equal(t, []string{dashboard.SearchIndex + "/f1"}, idx.deleted)
	assert.Len(t, cache.items, 3)
	assert.Equal(t, []string{models.EventFormCompleted}, sender.sent)
}

type chanReader struct {
	msgs   chan kafka.Message
	closed chan struct{}
	once   sync.Once
}

func (r *chanReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-r.closed:
		return kafka.Message{}, context.Canceled
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *chanReader) Close() error {
	r.once.Do(func() { close(r.closed) })
	return nil
}

func TestStartStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	reader := &chanReader{msgs: make(chan kafka.Message, 1), closed: make(chan struct{})}
	c, _, cache, _ := newTestConsumer(t, reader)

	c.Start(context.Background())
	reader.msgs <- kafka.Message{Value: encode(t, models.FormEvent{
		Event:  models.EventFormCreated,
		FormID: "f2",
		Owner:  "admin-1",
		Form:   &models.Form{ID: "f2", ClientName: "Beta"},
	})}

	assert.Eventually(t, func() bool {
		cache.mu.Lock()
		defer cache.mu.Unlock()
		return len(cache.items) == 1
	}, time.Second, 10*time.Millisecond)

	c.Stop()
}
