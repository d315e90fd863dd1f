package messaging

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goerrors "github.com/goliatone/go-errors"

	"github.com/PratikDhanave/line-webhook-service/internal/metrics"
)

type stubAPI struct {
	mu      sync.Mutex
	err     error
	replies []*messaging_api.ReplyMessageRequest
	pushes  []*messaging_api.PushMessageRequest
	keys    []string
}

func (s *stubAPI) ReplyMessage(_ context.Context, req *messaging_api.ReplyMessageRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, req)
	return s.err
}

func (s *stubAPI) PushMessage(_ context.Context, req *messaging_api.PushMessageRequest, retryKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushes = append(s.pushes, req)
	s.keys = append(s.keys, retryKey)
	return s.err
}

func newTestClient(a api, concurrency int64, m *metrics.Registry) *Client {
	return newClient(a, options{concurrency: concurrency, metrics: m})
}

func TestNew_RequiresToken(t *testing.T) {
	_, err := New("")
	require.Error(t, err)

	c, err := New("token", WithEndpoint("http://127.0.0.1:1"), WithConcurrency(2), WithTimeout(time.Second))
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestClient_ReplySendsConvertedMessages(t *testing.T) {
	stub := &stubAPI{}
	c := newTestClient(stub, 1, nil)

	err := c.Reply(context.Background(), "rt-1", []Message{
		Text("hello"),
		Image("https://example.com/a.jpg", "https://example.com/a_preview.jpg"),
		Sticker("446", "1988"),
		Location("Office", "1-1 Chiyoda", 35.68, 139.76),
	})
	require.NoError(t, err)

	require.Len(t, stub.replies, 1)
	req := stub.replies[0]
	assert.Equal(t, "rt-1", req.ReplyToken)
	require.Len(t, req.Messages, 4)

	text, ok := req.Messages[0].(*messaging_api.TextMessage)
	require.True(t, ok)
	assert.Equal(t, "hello", text.Text)

	img, ok := req.Messages[1].(*messaging_api.ImageMessage)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/a.jpg", img.OriginalContentUrl)

	sticker, ok := req.Messages[2].(*messaging_api.StickerMessage)
	require.True(t, ok)
	assert.Equal(t, "1988", sticker.StickerId)

	loc, ok := req.Messages[3].(*messaging_api.LocationMessage)
	require.True(t, ok)
	assert.Equal(t, 139.76, loc.Longitude)
}

func TestClient_PushUsesFreshRetryKey(t *testing.T) {
	stub := &stubAPI{}
	c := newTestClient(stub, 1, nil)

	require.NoError(t, c.Push(context.Background(), "U1", []Message{Text("a")}))
	require.NoError(t, c.Push(context.Background(), "U1", []Message{Text("b")}))

	require.Len(t, stub.pushes, 2)
	assert.Equal(t, "U1", stub.pushes[0].To)
	require.Len(t, stub.keys, 2)
	assert.NotEmpty(t, stub.keys[0])
	assert.NotEqual(t, stub.keys[0], stub.keys[1])
}

func TestClient_RejectsBadBatchesBeforeIO(t *testing.T) {
	stub := &stubAPI{}
	c := newTestClient(stub, 1, nil)
	ctx := context.Background()

	tooMany := make([]Message, MaxMessagesPerCall+1)
	for i := range tooMany {
		tooMany[i] = Text("x")
	}

	cases := map[string]error{
		"empty":      c.Reply(ctx, "rt", nil),
		"too many":   c.Reply(ctx, "rt", tooMany),
		"no token":   c.Reply(ctx, "", []Message{Text("x")}),
		"no target":  c.Push(ctx, "", []Message{Text("x")}),
		"bad kind":   c.Push(ctx, "U1", []Message{{Kind: "video"}}),
		"empty text": c.Reply(ctx, "rt", []Message{Text("")}),
	}
	for name, err := range cases {
		assert.True(t, IsInvalidMessages(err), name)
		assert.True(t, goerrors.IsCategory(err, goerrors.CategoryBadInput), name)
	}
	assert.Empty(t, stub.replies)
	assert.Empty(t, stub.pushes)
}

func TestClient_APIErrorIsExternal(t *testing.T) {
	stub := &stubAPI{err: errors.New("429 too many requests")}
	m := metrics.NewRegistry()
	c := newTestClient(stub, 1, m)

	err := c.Reply(context.Background(), "rt", []Message{Text("x")})
	require.Error(t, err)
	assert.True(t, IsAPIError(err))
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryExternal))

	var rich *goerrors.Error
	require.True(t, goerrors.As(err, &rich))
	assert.Equal(t, 502, rich.Code)
}

func TestSession_ReleasedOnSuccessAndError(t *testing.T) {
	stub := &stubAPI{}
	m := metrics.NewRegistry()
	c := newTestClient(stub, 1, m)

	require.NoError(t, c.Reply(context.Background(), "rt", []Message{Text("ok")}))

	stub.err = errors.New("boom")
	require.Error(t, c.Reply(context.Background(), "rt", []Message{Text("fail")}))

	// concurrency is 1: a leaked slot would block this acquire
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s, err := c.Acquire(ctx)
	require.NoError(t, err)
	s.Release()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "linebot_messaging_sessions_in_flight 0")
	assert.Contains(t, rec.Body.String(), `linebot_messaging_calls_total{operation="reply",status="error"} 1`)
}

func TestSession_ReleaseIsIdempotent(t *testing.T) {
	stub := &stubAPI{}
	c := newTestClient(stub, 1, nil)

	s, err := c.Acquire(context.Background())
	require.NoError(t, err)
	s.Release()
	s.Release()

	err = s.Reply(context.Background(), "rt", []Message{Text("late")})
	require.Error(t, err)
	assert.Empty(t, stub.replies)

	// only one slot was returned, so two sessions cannot be held at once
	first, err := c.Acquire(context.Background())
	require.NoError(t, err)
	defer first.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
