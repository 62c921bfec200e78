package dispatcher

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/project-queyk/queyk-backend/internal/notification/domain"
	"github.com/project-queyk/queyk-backend/internal/notification/realtime"
	"github.com/project-queyk/queyk-backend/internal/notification/templates"
	"github.com/project-queyk/queyk-backend/internal/platform/apperr"
)

// fakeChannel returns a fixed outcome, optionally after a delay or by panicking.
type fakeChannel struct {
	name    string
	outcome func(n domain.Notice) domain.Outcome
	delay   time.Duration
	panic   bool

	mu      sync.Mutex
	notices []domain.Notice
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Send(ctx context.Context, n domain.Notice) domain.Outcome {
	f.mu.Lock()
	f.notices = append(f.notices, n)
	f.mu.Unlock()
	if f.panic {
		panic("nil recipient list")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return domain.Failed(f.name, ctx.Err())
		}
	}
	return f.outcome(n)
}

func (f *fakeChannel) received() []domain.Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Notice(nil), f.notices...)
}

func delivering(name string, n int) *fakeChannel {
	return &fakeChannel{name: name, outcome: func(domain.Notice) domain.Outcome { return domain.Delivered(name, n) }}
}

func failing(name string, err error) *fakeChannel {
	return &fakeChannel{name: name, outcome: func(domain.Notice) domain.Outcome { return domain.Failed(name, err) }}
}

func empty(name string) *fakeChannel {
	return &fakeChannel{name: name, outcome: func(domain.Notice) domain.Outcome { return domain.NoRecipients(name) }}
}

type fakeGenerator struct {
	text  string
	err   error
	delay time.Duration
	calls int
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt, system string) (string, error) {
	g.calls++
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.text, g.err
}

type outcomeRecorder struct {
	mu    sync.Mutex
	calls map[string]bool
}

func (r *outcomeRecorder) DispatchOutcome(ctx context.Context, channel string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = map[string]bool{}
	}
	r.calls[channel] = success
}

func quake(m float64) domain.Alert {
	return domain.Alert{Kind: domain.KindEarthquake, Audience: domain.AudienceAll, Magnitude: m}
}

func newDispatcher(channels []Channel, opts ...Option) *Dispatcher {
	return New(templates.NewStore(templates.Default()), channels, opts...)
}

func TestDispatch_PartialFailureIsSuccess(t *testing.T) {
	rec := &outcomeRecorder{}
	d := newDispatcher([]Channel{
		failing("email", errors.New("smtp: connection refused")),
		delivering("push", 3),
	}, WithRecorder(rec))

	res, err := d.Dispatch(context.Background(), quake(4.2))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !res.Success {
		t.Error("overall result should be success")
	}
	if res.Outcomes["email"].Success {
		t.Error("email outcome should be a failure")
	}
	if res.Outcomes["email"].Detail != "smtp: connection refused" {
		t.Errorf("email detail = %q", res.Outcomes["email"].Detail)
	}
	push := res.Outcomes["push"]
	if !push.Success || push.ItemsDelivered != 3 {
		t.Errorf("push outcome = %+v, want success with 3 items", push)
	}
	if rec.calls["email"] || !rec.calls["push"] {
		t.Errorf("recorded outcomes = %v", rec.calls)
	}
}

func TestDispatch_AllNoRecipientsIsNotFound(t *testing.T) {
	d := newDispatcher([]Channel{empty("email"), empty("push")})

	res, err := d.Dispatch(context.Background(), quake(3.1))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if res == nil || len(res.Outcomes) != 2 || res.Success {
		t.Errorf("result = %+v", res)
	}
}

func TestDispatch_AllFailed(t *testing.T) {
	d := newDispatcher([]Channel{
		failing("email", errors.New("auth failed")),
		empty("push"),
	})

	res, err := d.Dispatch(context.Background(), quake(5))
	if !errors.Is(err, ErrAllChannelsFailed) || !errors.Is(err, apperr.ErrTransientChannel) {
		t.Fatalf("err = %v, want ErrAllChannelsFailed", err)
	}
	if errors.Is(err, apperr.ErrNotFound) {
		t.Error("a real failure must not be reported as not found")
	}
	if !strings.Contains(err.Error(), "email: auth failed") {
		t.Errorf("err = %q, should name the failing channel", err)
	}
	if res.Success {
		t.Error("result should not be success")
	}
}

func TestDispatch_Timeout(t *testing.T) {
	slow := delivering("email", 10)
	slow.delay = time.Second
	d := newDispatcher([]Channel{slow, delivering("push", 1)}, WithTimeout(50*time.Millisecond))

	start := time.Now()
	res, err := d.Dispatch(context.Background(), quake(4))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Dispatch took %v, should stop at the timeout", elapsed)
	}
	email := res.Outcomes["email"]
	if email.Success || email.Detail != "timeout" {
		t.Errorf("email outcome = %+v, want timeout failure", email)
	}
	if !res.Outcomes["push"].Success {
		t.Error("push should still succeed")
	}
}

func TestDispatch_PanicIsContained(t *testing.T) {
	boom := &fakeChannel{name: "sms", panic: true}

	d := newDispatcher([]Channel{boom, delivering("push", 2)})
	res, err := d.Dispatch(context.Background(), quake(4))
	if err != nil {
		t.Fatalf("a delivering channel should keep the dispatch successful, got %v", err)
	}
	if res.Outcomes["sms"].Success || !strings.Contains(res.Outcomes["sms"].Detail, "panic") {
		t.Errorf("sms outcome = %+v", res.Outcomes["sms"])
	}

	d = newDispatcher([]Channel{&fakeChannel{name: "sms", panic: true}, empty("push")})
	res, err = d.Dispatch(context.Background(), quake(4))
	if !errors.Is(err, apperr.ErrUnexpected) {
		t.Fatalf("err = %v, want ErrUnexpected", err)
	}
	if _, ok := res.Outcomes["push"]; !ok {
		t.Error("other outcomes should still be reported")
	}
}

func TestDispatch_CannedMessageWithoutGenerator(t *testing.T) {
	push := delivering("push", 1)
	d := newDispatcher([]Channel{push})

	res, err := d.Dispatch(context.Background(), quake(6.5))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	want := "Estimated magnitude 6.5 earthquake detected. Drop, cover, and hold on. Evacuate to designated safe zones after shaking stops."
	if res.Message != want || res.Generated {
		t.Errorf("message = %q generated=%v", res.Message, res.Generated)
	}
	n := push.received()[0]
	if n.Title != "🚨 Earthquake Alert: Magnitude 6.5" || n.Subject != "Earthquake Alert: Magnitude 6.5 Detected" {
		t.Errorf("notice title/subject = %q / %q", n.Title, n.Subject)
	}
	if n.Severity != domain.SeveritySevere || n.Data["magnitude"] != 6.5 || n.Data["type"] != "earthquake" {
		t.Errorf("notice = %+v", n)
	}
}

func TestDispatch_GeneratorFallback(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"rate limited", &fakeGenerator{err: errors.New("rate limited")}},
		{"empty text", &fakeGenerator{text: "   "}},
		{"slow", &fakeGenerator{text: "late", delay: time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDispatcher([]Channel{delivering("push", 1)},
				WithGenerator(tt.gen), WithGeneratorTimeout(30*time.Millisecond))
			res, err := d.Dispatch(context.Background(), quake(2))
			if err != nil {
				t.Fatalf("generator failure must not fail the dispatch: %v", err)
			}
			if res.Generated || !strings.HasPrefix(res.Message, "Estimated magnitude 2 earthquake detected. Seek shelter") {
				t.Errorf("message = %q generated=%v", res.Message, res.Generated)
			}
		})
	}
}

func TestDispatch_GeneratedMessage(t *testing.T) {
	gen := &fakeGenerator{text: "Estimated magnitude 4 earthquake detected. Move away from shelves.\n"}
	d := newDispatcher([]Channel{delivering("push", 1)}, WithGenerator(gen))
	res, err := d.Dispatch(context.Background(), quake(4))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !res.Generated || res.Message != "Estimated magnitude 4 earthquake detected. Move away from shelves." {
		t.Errorf("message = %q generated=%v", res.Message, res.Generated)
	}
}

func TestDispatch_ExplicitMessageSkipsGenerator(t *testing.T) {
	gen := &fakeGenerator{text: "generated"}
	d := newDispatcher([]Channel{delivering("push", 1)}, WithGenerator(gen))
	a := quake(4)
	a.Message = "Drill: this is only a test."
	res, err := d.Dispatch(context.Background(), a)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Message != a.Message || gen.calls != 0 {
		t.Errorf("message = %q, generator calls = %d", res.Message, gen.calls)
	}
}

func TestDispatch_DeviceOfflineNotice(t *testing.T) {
	push := delivering("push", 1)
	gen := &fakeGenerator{text: "generated"}
	d := newDispatcher([]Channel{push}, WithGenerator(gen))
	_, err := d.Dispatch(context.Background(), domain.Alert{
		Kind:     domain.KindDeviceOffline,
		Audience: domain.AudienceAdmin,
		Title:    "IoT Device Offline",
		Message:  "The seismic monitoring device has not sent data.",
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	n := push.received()[0]
	if n.Audience != domain.AudienceAdmin || n.Title != "IoT Device Offline" || n.Subject != "IoT Device Offline" {
		t.Errorf("notice = %+v", n)
	}
	if gen.calls != 0 {
		t.Error("device alerts must not use the generator")
	}
}

type countingHub struct {
	clients    int
	broadcasts int
}

func (h *countingHub) Broadcast(string, any) (int, error) {
	h.broadcasts++
	return h.clients, nil
}

func TestDispatch_AdminAlertIgnoresSocketClients(t *testing.T) {
	hub := &countingHub{clients: 2}
	d := newDispatcher([]Channel{empty("email"), empty("push"), realtime.NewChannel(hub)})

	res, err := d.Dispatch(context.Background(), domain.Alert{
		Kind:     domain.KindDeviceOffline,
		Audience: domain.AudienceAdmin,
		Title:    "IoT Device Offline",
		Message:  "The seismic monitoring device has not sent data.",
	})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if res.Success {
		t.Error("an admin alert reaching no admin must not succeed")
	}
	if rt := res.Outcomes[realtime.Name]; rt.Success || !rt.NoRecipients {
		t.Errorf("realtime outcome = %+v, want no recipients", rt)
	}
	if hub.broadcasts != 0 {
		t.Errorf("broadcasts = %d, want 0", hub.broadcasts)
	}
}

func TestDispatch_EarthquakeReachesSocketClients(t *testing.T) {
	hub := &countingHub{clients: 2}
	d := newDispatcher([]Channel{empty("email"), realtime.NewChannel(hub)})

	res, err := d.Dispatch(context.Background(), quake(5.0))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if rt := res.Outcomes[realtime.Name]; !rt.Success || rt.ItemsDelivered != 2 {
		t.Errorf("realtime outcome = %+v, want 2 delivered", rt)
	}
}

func TestDispatch_Validation(t *testing.T) {
	d := newDispatcher([]Channel{delivering("push", 1)})
	bad := []domain.Alert{
		quake(0),
		{Kind: domain.KindDeviceOffline},
		{Kind: "tsunami", Magnitude: 3},
		{Kind: domain.KindEarthquake, Magnitude: 3, Audience: "students"},
	}
	for _, a := range bad {
		if _, err := d.Dispatch(context.Background(), a); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Dispatch(%+v) err = %v, want ErrValidation", a, err)
		}
	}
}

func TestDispatch_ChannelsRunConcurrently(t *testing.T) {
	a := delivering("email", 1)
	a.delay = 100 * time.Millisecond
	b := delivering("push", 1)
	b.delay = 100 * time.Millisecond
	c := delivering("realtime", 1)
	c.delay = 100 * time.Millisecond
	d := newDispatcher([]Channel{a, b, c})

	start := time.Now()
	if _, err := d.Dispatch(context.Background(), quake(3)); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 250*time.Millisecond {
		t.Errorf("Dispatch took %v, channels should run in parallel", elapsed)
	}
}
