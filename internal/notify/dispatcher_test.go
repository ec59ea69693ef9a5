package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/t77yq/sentinel/internal/model"
)

// fakeChannel counts sends and fails a configurable number of times
type fakeChannel struct {
	name string

	mu        sync.Mutex
	calls     int
	failUntil int // fail while calls <= failUntil; 0 never fails, -1 always fails
	lastMsg   *Message
	closed    bool
}

func (f *fakeChannel) Name() string { return f.name }
func (f *fakeChannel) Type() string { return "fake" }

func (f *fakeChannel) Send(ctx context.Context, msg *Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastMsg = msg
	if f.failUntil == -1 || f.calls <= f.failUntil {
		return errors.New(f.name + ": delivery refused")
	}
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func noRetry() Retrier {
	return Retrier{MaxAttempts: 1}
}

func fastRetry(attempts int) Retrier {
	return Retrier{
		MaxAttempts: attempts,
		Backoff:     &ExponentialBackoff{InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2},
	}
}

func testAlert(channels ...string) *model.Alert {
	return &model.Alert{
		Name:        "daily_revenue",
		Description: "Revenue below threshold",
		Channels:    channels,
	}
}

func alertCheck() *model.CheckResult {
	actual, threshold := 8000.0, 10000.0
	return &model.CheckResult{
		Status:      model.CheckStatusAlert,
		ActualValue: &actual,
		Threshold:   &threshold,
		Context:     model.Context{{Key: "region", Value: "eu-west-1"}},
	}
}

func TestDispatcher_IndependentChannelFailure(t *testing.T) {
	d := NewDispatcher(zap.NewNop())

	ch1 := &fakeChannel{name: "first"}
	ch2 := &fakeChannel{name: "second", failUntil: -1}
	ch3 := &fakeChannel{name: "third"}
	d.Register(ch1, noRetry())
	d.Register(ch2, noRetry())
	d.Register(ch3, noRetry())

	outcome := d.Dispatch(context.Background(), testAlert("first", "second", "third"), alertCheck())

	// All three channels were attempted despite the middle failure
	require.Len(t, outcome.Attempts, 3)
	assert.True(t, outcome.Attempts[0].Success)
	assert.False(t, outcome.Attempts[1].Success)
	assert.True(t, outcome.Attempts[2].Success)
	assert.Equal(t, 1, ch1.calls)
	assert.Equal(t, 1, ch2.calls)
	assert.Equal(t, 1, ch3.calls)

	assert.True(t, outcome.Sent, "one success is enough for sent=true")
	assert.Contains(t, outcome.FirstError, "second")
	assert.Equal(t, "third", outcome.LastChannel)
}

func TestDispatcher_RetriesPerChannel(t *testing.T) {
	d := NewDispatcher(zap.NewNop())

	flaky := &fakeChannel{name: "flaky", failUntil: 2}
	d.Register(flaky, fastRetry(3))

	outcome := d.Dispatch(context.Background(), testAlert("flaky"), alertCheck())

	require.Len(t, outcome.Attempts, 1)
	assert.True(t, outcome.Attempts[0].Success)
	assert.Equal(t, 3, outcome.Attempts[0].Attempt, "success landed on the third attempt")
	assert.Equal(t, 3, flaky.calls)
	assert.True(t, outcome.Sent)
	assert.Empty(t, outcome.FirstError)
}

func TestDispatcher_AllChannelsFail(t *testing.T) {
	d := NewDispatcher(zap.NewNop())

	ch1 := &fakeChannel{name: "one", failUntil: -1}
	ch2 := &fakeChannel{name: "two", failUntil: -1}
	d.Register(ch1, fastRetry(2))
	d.Register(ch2, fastRetry(2))

	outcome := d.Dispatch(context.Background(), testAlert("one", "two"), alertCheck())

	assert.False(t, outcome.Sent)
	assert.Contains(t, outcome.FirstError, "one", "first failing channel's error wins")
	assert.Empty(t, outcome.LastChannel)
	assert.Equal(t, 2, ch1.calls)
	assert.Equal(t, 2, ch2.calls)
}

func TestDispatcher_UnknownChannel(t *testing.T) {
	d := NewDispatcher(zap.NewNop())

	ok := &fakeChannel{name: "known"}
	d.Register(ok, noRetry())

	outcome := d.Dispatch(context.Background(), testAlert("ghost", "known"), alertCheck())

	require.Len(t, outcome.Attempts, 2)
	assert.False(t, outcome.Attempts[0].Success)
	assert.Contains(t, outcome.Attempts[0].Error, "not configured")
	assert.True(t, outcome.Sent)
	assert.Contains(t, outcome.FirstError, "ghost")
}

func TestDispatcher_NoChannels(t *testing.T) {
	d := NewDispatcher(zap.NewNop())

	outcome := d.Dispatch(context.Background(), testAlert(), alertCheck())

	assert.False(t, outcome.Sent)
	assert.Empty(t, outcome.Attempts)
	assert.Empty(t, outcome.FirstError)
}

func TestDispatcher_MessageRenderedOnce(t *testing.T) {
	d := NewDispatcher(zap.NewNop())

	ch1 := &fakeChannel{name: "a"}
	ch2 := &fakeChannel{name: "b"}
	d.Register(ch1, noRetry())
	d.Register(ch2, noRetry())

	d.Dispatch(context.Background(), testAlert("a", "b"), alertCheck())

	require.NotNil(t, ch1.lastMsg)
	assert.Same(t, ch1.lastMsg, ch2.lastMsg, "channels share one rendered message")
	assert.Equal(t, "daily_revenue", ch1.lastMsg.AlertName)
	require.NotNil(t, ch1.lastMsg.ActualValue)
	assert.Equal(t, 8000.0, *ch1.lastMsg.ActualValue)
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []string
}

func (r *recordingObserver) ObserveNotification(channel string, attempts int, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, channel)
}

func TestDispatcher_Observer(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	obs := &recordingObserver{}
	d.Observer = obs

	d.Register(&fakeChannel{name: "watched"}, noRetry())
	d.Dispatch(context.Background(), testAlert("watched", "missing"), alertCheck())

	assert.Equal(t, []string{"watched", "missing"}, obs.seen)
}

func TestDispatcher_Close(t *testing.T) {
	d := NewDispatcher(zap.NewNop())

	ch := &fakeChannel{name: "closable"}
	d.Register(ch, noRetry())

	require.NoError(t, d.Close())
	assert.True(t, ch.closed)
}
