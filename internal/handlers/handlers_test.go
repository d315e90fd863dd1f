package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PratikDhanave/line-webhook-service/internal/auth"
	"github.com/PratikDhanave/line-webhook-service/internal/metrics"
	"github.com/PratikDhanave/line-webhook-service/internal/models"
	"github.com/PratikDhanave/line-webhook-service/internal/webhook"
)

const secret = "test-channel-secret"

func newCallbackRouter(t *testing.T, handlers map[models.EventType]webhook.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	d, err := webhook.NewDispatcher(secret, webhook.NewRegistry(handlers))
	require.NoError(t, err)

	r := gin.New()
	RegisterCallbackRoutes(r, d, metrics.NewRegistry(), nil)
	return r
}

func postCallback(r http.Handler, body, signature string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(body))
	if signature != "" {
		req.Header.Set(auth.SignatureHeader, signature)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestCallback_ValidBatchReturnsOK(t *testing.T) {
	var tokens []string
	r := newCallbackRouter(t, map[models.EventType]webhook.HandlerFunc{
		models.EventFollow: func(_ context.Context, ev models.Event) error {
			tokens = append(tokens, ev.ReplyToken)
			return errors.New("api down")
		},
	})

	body := `{"destination":"U0","events":[{"type":"follow","replyToken":"rt-1","timestamp":1,"source":{"type":"user","userId":"U1"},"mode":"active","webhookEventId":"E1","deliveryContext":{"isRedelivery":false}}]}`
	w := postCallback(r, body, auth.Sign(secret, []byte(body)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.Equal(t, []string{"rt-1"}, tokens)
}

func TestCallback_Rejections(t *testing.T) {
	invoked := 0
	r := newCallbackRouter(t, map[models.EventType]webhook.HandlerFunc{
		models.EventFollow: func(context.Context, models.Event) error {
			invoked++
			return nil
		},
	})

	body := `{"destination":"U0","events":[{"type":"follow","replyToken":"rt","timestamp":1,"source":{"type":"user","userId":"U1"}}]}`
	malformed := `{"destination":`

	cases := map[string]struct {
		body      string
		signature string
	}{
		"missing signature":  {body: body},
		"tampered signature": {body: body, signature: auth.Sign("other-secret", []byte(body))},
		"tampered body":      {body: strings.Replace(body, "rt", "rx", 1), signature: auth.Sign(secret, []byte(body))},
		"malformed body":     {body: malformed, signature: auth.Sign(secret, []byte(malformed))},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := postCallback(r, tc.body, tc.signature)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Zero(t, invoked)
}

type fakeCounter struct {
	count int64
	err   error
	got   models.EventType
}

func (f *fakeCounter) CountDeliveries(_ context.Context, eventType models.EventType, _, _ time.Time) (int64, error) {
	f.got = eventType
	return f.count, f.err
}

func TestDeliveries(t *testing.T) {
	gin.SetMode(gin.TestMode)

	counter := &fakeCounter{count: 3}
	r := gin.New()
	RegisterDeliveryRoutes(r, counter)

	get := func(query string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/deliveries?"+query, nil))
		return w
	}

	w := get("event_type=memberJoined&from=2026-01-01T00:00:00Z&to=2026-01-02T00:00:00Z")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"event_type":"memberJoined","count":3}`, w.Body.String())
	assert.Equal(t, models.EventMemberJoined, counter.got)

	for _, q := range []string{
		"event_type=memberJoined",
		"event_type=bogus&from=2026-01-01T00:00:00Z&to=2026-01-02T00:00:00Z",
		"event_type=follow&from=yesterday&to=2026-01-02T00:00:00Z",
		"event_type=follow&from=2026-01-02T00:00:00Z&to=2026-01-01T00:00:00Z",
	} {
		assert.Equal(t, http.StatusBadRequest, get(q).Code, q)
	}

	counter.err = errors.New("db down")
	w = get("event_type=follow&from=2026-01-01T00:00:00Z&to=2026-01-02T00:00:00Z")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
