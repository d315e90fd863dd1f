package messaging

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/PratikDhanave/line-webhook-service/internal/metrics"
	"github.com/PratikDhanave/line-webhook-service/internal/tracing"
)

const (
	OperationReply = "reply"
	OperationPush  = "push"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultConcurrency = 8
)

// api is the subset of the LINE messaging API used here.
type api interface {
	ReplyMessage(ctx context.Context, req *messaging_api.ReplyMessageRequest) error
	PushMessage(ctx context.Context, req *messaging_api.PushMessageRequest, retryKey string) error
}

type sdkAPI struct {
	bot *messaging_api.MessagingApiAPI
}

func (s sdkAPI) ReplyMessage(ctx context.Context, req *messaging_api.ReplyMessageRequest) error {
	_, err := s.bot.WithContext(ctx).ReplyMessage(req)
	return err
}

func (s sdkAPI) PushMessage(ctx context.Context, req *messaging_api.PushMessageRequest, retryKey string) error {
	_, err := s.bot.WithContext(ctx).PushMessage(req, retryKey)
	return err
}

type options struct {
	endpoint    string
	httpClient  *http.Client
	timeout     time.Duration
	concurrency int64
	metrics     *metrics.Registry
	tracer      *tracing.Tracer
	logger      *zap.Logger
}

type Option func(*options)

// WithEndpoint overrides the API base URL.
func WithEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithConcurrency bounds how many sessions may be held at once.
func WithConcurrency(n int) Option {
	return func(o *options) { o.concurrency = int64(n) }
}

func WithMetrics(m *metrics.Registry) Option {
	return func(o *options) { o.metrics = m }
}

func WithTracer(t *tracing.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Client sends reply and push messages. Every call happens inside a Session
// that holds one of a bounded number of outbound slots.
type Client struct {
	api      api
	sem      *semaphore.Weighted
	metrics  *metrics.Registry
	tracer   *tracing.Tracer
	logger   *zap.Logger
	retryKey func() string
}

// New builds a client for the channel identified by token.
func New(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, errors.New("messaging: channel access token required")
	}

	o := options{timeout: defaultTimeout, concurrency: defaultConcurrency}
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: o.timeout}
	}

	sdkOpts := []messaging_api.MessagingApiAPIOption{messaging_api.WithHTTPClient(httpClient)}
	if o.endpoint != "" {
		sdkOpts = append(sdkOpts, messaging_api.WithEndpoint(o.endpoint))
	}

	bot, err := messaging_api.NewMessagingApiAPI(token, sdkOpts...)
	if err != nil {
		return nil, err
	}

	return newClient(sdkAPI{bot: bot}, o), nil
}

func newClient(a api, o options) *Client {
	if o.concurrency <= 0 {
		o.concurrency = defaultConcurrency
	}
	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		api:      a,
		sem:      semaphore.NewWeighted(o.concurrency),
		metrics:  o.metrics,
		tracer:   o.tracer,
		logger:   logger.Named("messaging"),
		retryKey: func() string { return uuid.NewString() },
	}
}

// Acquire waits for an outbound slot. The caller must Release the session.
func (c *Client) Acquire(ctx context.Context) (*Session, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	c.metrics.SessionAcquired()
	return &Session{client: c}, nil
}

// Reply acquires a session, sends one reply and releases the session.
func (c *Client) Reply(ctx context.Context, replyToken string, msgs []Message) error {
	s, err := c.Acquire(ctx)
	if err != nil {
		return err
	}
	defer s.Release()
	return s.Reply(ctx, replyToken, msgs)
}

// Push acquires a session, sends one push and releases the session.
func (c *Client) Push(ctx context.Context, to string, msgs []Message) error {
	s, err := c.Acquire(ctx)
	if err != nil {
		return err
	}
	defer s.Release()
	return s.Push(ctx, to, msgs)
}

// Session is a held outbound slot. Release is idempotent.
type Session struct {
	client   *Client
	released atomic.Bool
}

func (s *Session) Release() {
	if s.released.CompareAndSwap(false, true) {
		s.client.sem.Release(1)
		s.client.metrics.SessionReleased()
	}
}

func (s *Session) Reply(ctx context.Context, replyToken string, msgs []Message) error {
	if s.released.Load() {
		return errSessionReleased(OperationReply)
	}
	if replyToken == "" {
		return errInvalidMessages(OperationReply, errors.New("reply token required"))
	}
	sdkMsgs, err := validateBatch(msgs)
	if err != nil {
		return errInvalidMessages(OperationReply, err)
	}

	return s.client.call(ctx, OperationReply, len(msgs), func(ctx context.Context) error {
		return s.client.api.ReplyMessage(ctx, &messaging_api.ReplyMessageRequest{
			ReplyToken: replyToken,
			Messages:   sdkMsgs,
		})
	})
}

func (s *Session) Push(ctx context.Context, to string, msgs []Message) error {
	if s.released.Load() {
		return errSessionReleased(OperationPush)
	}
	if to == "" {
		return errInvalidMessages(OperationPush, errors.New("push target required"))
	}
	sdkMsgs, err := validateBatch(msgs)
	if err != nil {
		return errInvalidMessages(OperationPush, err)
	}

	retryKey := s.client.retryKey()
	return s.client.call(ctx, OperationPush, len(msgs), func(ctx context.Context) error {
		return s.client.api.PushMessage(ctx, &messaging_api.PushMessageRequest{
			To:       to,
			Messages: sdkMsgs,
		}, retryKey)
	})
}

func (c *Client) call(ctx context.Context, operation string, n int, fn func(context.Context) error) error {
	ctx, span := c.tracer.StartSpan(ctx, "messaging."+operation)
	defer span.End()
	span.SetAttributes(c.tracer.MessagingAttributes(operation, n)...)

	start := time.Now()
	err := fn(ctx)
	c.metrics.RecordMessagingCall(operation, time.Since(start), err)

	if err != nil {
		c.tracer.RecordError(ctx, err)
		c.logger.Debug("messaging call failed",
			zap.String("operation", operation),
			zap.Int("messages", n),
			zap.Error(err),
		)
		return errAPIFailed(operation, err)
	}
	return nil
}
