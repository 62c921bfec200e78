// Package dispatcher fans an alert out to every notification channel concurrently and folds the
// per-channel outcomes into one result.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/project-queyk/queyk-backend/internal/logging"
	"github.com/project-queyk/queyk-backend/internal/notification/domain"
	"github.com/project-queyk/queyk-backend/internal/notification/templates"
	"github.com/project-queyk/queyk-backend/internal/platform/apperr"
	"github.com/project-queyk/queyk-backend/internal/telemetry"
)

// ErrAllChannelsFailed is returned when no channel delivered and at least one failed for a reason
// other than having no recipients.
var ErrAllChannelsFailed = fmt.Errorf("all notification channels failed: %w", apperr.ErrTransientChannel)

const (
	defaultTimeout          = 30 * time.Second
	defaultGeneratorTimeout = 8 * time.Second
	// detailTimeout is the outcome detail for a channel still running when the dispatch deadline hits.
	detailTimeout = "timeout"
)

// Channel delivers a composed notice. Send must report every failure through the returned Outcome.
type Channel interface {
	Name() string
	Send(ctx context.Context, n domain.Notice) domain.Outcome
}

// TextGenerator produces alert text from a prompt. It may be rate limited or unavailable.
type TextGenerator interface {
	Generate(ctx context.Context, prompt, systemInstruction string) (string, error)
}

// TemplateSource returns the active alert texts.
type TemplateSource interface {
	Current() templates.Templates
}

// Recorder counts channel outcomes.
type Recorder interface {
	DispatchOutcome(ctx context.Context, channel string, success bool)
}

// Dispatcher sends alerts through a fixed set of channels.
type Dispatcher struct {
	channels         []Channel
	templates        TemplateSource
	generator        TextGenerator
	recorder         Recorder
	emitter          telemetry.EventEmitter
	logger           *slog.Logger
	timeout          time.Duration
	generatorTimeout time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithGenerator enables generated alert text for earthquake alerts without an explicit message.
func WithGenerator(g TextGenerator) Option { return func(d *Dispatcher) { d.generator = g } }

// WithTimeout bounds a whole dispatch.
func WithTimeout(t time.Duration) Option { return func(d *Dispatcher) { d.timeout = t } }

// WithGeneratorTimeout bounds the text generator call.
func WithGeneratorTimeout(t time.Duration) Option {
	return func(d *Dispatcher) { d.generatorTimeout = t }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option { return func(d *Dispatcher) { d.recorder = r } }

// WithEmitter sets the telemetry emitter.
func WithEmitter(e telemetry.EventEmitter) Option { return func(d *Dispatcher) { d.emitter = e } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(d *Dispatcher) { d.logger = l } }

// New returns a Dispatcher over channels. tpl supplies titles and canned texts.
func New(tpl TemplateSource, channels []Channel, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		channels:         channels,
		templates:        tpl,
		timeout:          defaultTimeout,
		generatorTimeout: defaultGeneratorTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.timeout <= 0 {
		d.timeout = defaultTimeout
	}
	if d.generatorTimeout <= 0 {
		d.generatorTimeout = defaultGeneratorTimeout
	}
	d.logger = logging.OrDefault(d.logger).With("component", "dispatcher")
	return d
}

// Dispatch sends alert through every channel concurrently and waits for all of them or the timeout.
// The returned Result always carries one outcome per channel. The error is:
//   - nil when at least one channel delivered;
//   - apperr.ErrNotFound when every channel had no eligible recipients;
//   - apperr.ErrUnexpected when nothing delivered and a channel panicked;
//   - ErrAllChannelsFailed otherwise.
func (d *Dispatcher) Dispatch(ctx context.Context, alert domain.Alert) (*domain.Result, error) {
	if err := validate(alert); err != nil {
		return nil, err
	}
	notice, generated := d.compose(ctx, alert)

	dctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	outcomes, panicked := d.fanOut(dctx, notice)

	res := &domain.Result{
		Outcomes:  make(map[string]domain.Outcome, len(outcomes)),
		Title:     notice.Title,
		Message:   notice.Body,
		Generated: generated,
	}
	allNoRecipients := true
	var failures []error
	for _, o := range outcomes {
		res.Outcomes[o.Channel] = o
		if o.Success {
			res.Success = true
		}
		if !o.NoRecipients {
			allNoRecipients = false
		}
		if !o.Success && !o.NoRecipients {
			failures = append(failures, fmt.Errorf("%s: %s", o.Channel, o.Detail))
		}
		if d.recorder != nil {
			d.recorder.DispatchOutcome(ctx, o.Channel, o.Success)
		}
	}

	d.logger.Info("alert dispatched",
		"kind", notice.Kind, "audience", notice.Audience, "magnitude", notice.Magnitude,
		"success", res.Success, "delivered", res.Delivered(), "generated", generated)
	telemetry.EmitAsync(d.emitter, telemetry.NewEvent(telemetry.EventAlertDispatched, "dispatcher", map[string]any{
		"kind":      notice.Kind,
		"audience":  notice.Audience,
		"magnitude": notice.Magnitude,
		"success":   res.Success,
		"outcomes":  res.Outcomes,
	}))

	switch {
	case res.Success:
		return res, nil
	case panicked != nil:
		return res, apperr.Unexpected(panicked)
	case allNoRecipients:
		return res, apperr.NotFound("no eligible recipients on any channel")
	default:
		return res, fmt.Errorf("%w: %w", ErrAllChannelsFailed, errors.Join(failures...))
	}
}

func validate(a domain.Alert) error {
	var problems []string
	switch a.Kind {
	case domain.KindEarthquake:
		if a.Magnitude <= 0 {
			problems = append(problems, "magnitude: must be greater than 0")
		}
	case domain.KindDeviceOffline:
		if strings.TrimSpace(a.Message) == "" {
			problems = append(problems, "message: is required")
		}
	default:
		problems = append(problems, fmt.Sprintf("kind: unknown %q", a.Kind))
	}
	switch a.Audience {
	case domain.AudienceAll, domain.AudienceAdmin, "":
	default:
		problems = append(problems, fmt.Sprintf("audience: unknown %q", a.Audience))
	}
	if len(problems) > 0 {
		return apperr.Invalid(problems...)
	}
	return nil
}

type indexed struct {
	i       int
	outcome domain.Outcome
	panic   any
}

// fanOut runs every channel in its own goroutine. Channels still running at ctx's deadline are
// reported as timed out; their goroutines finish into a buffered channel nobody reads.
func (d *Dispatcher) fanOut(ctx context.Context, n domain.Notice) ([]domain.Outcome, any) {
	results := make(chan indexed, len(d.channels))
	for i, ch := range d.channels {
		go func(i int, ch Channel) {
			defer func() {
				if r := recover(); r != nil {
					d.logger.Error("channel panicked", "channel", ch.Name(), "panic", r)
					results <- indexed{i: i, outcome: domain.Failed(ch.Name(), fmt.Errorf("panic: %v", r)), panic: r}
				}
			}()
			o := ch.Send(ctx, n)
			o.Channel = ch.Name()
			results <- indexed{i: i, outcome: o}
		}(i, ch)
	}

	outcomes := make([]domain.Outcome, len(d.channels))
	done := make([]bool, len(d.channels))
	var panicked any
	for received := 0; received < len(d.channels); received++ {
		select {
		case r := <-results:
			if !r.outcome.Success && errors.Is(r.outcome.Err, context.DeadlineExceeded) {
				r.outcome.Detail = detailTimeout
			}
			outcomes[r.i] = r.outcome
			done[r.i] = true
			if r.panic != nil && panicked == nil {
				panicked = r.panic
			}
		case <-ctx.Done():
			for i, ch := range d.channels {
				if !done[i] {
					d.logger.Warn("channel timed out", "channel", ch.Name())
					outcomes[i] = domain.Outcome{Channel: ch.Name(), Detail: detailTimeout, Err: ctx.Err()}
				}
			}
			return outcomes, panicked
		}
	}
	return outcomes, panicked
}

// compose resolves the title, subject and body. For earthquakes without an explicit message the
// generator is tried first; any generator failure falls back to the canned text.
func (d *Dispatcher) compose(ctx context.Context, a domain.Alert) (domain.Notice, bool) {
	tpl := d.templates.Current()
	audience := a.Audience
	if audience == "" {
		audience = domain.AudienceAll
	}
	n := domain.Notice{
		Kind:      a.Kind,
		Audience:  audience,
		Magnitude: a.Magnitude,
		Severity:  domain.SeverityFor(a.Magnitude),
		Title:     a.Title,
		Body:      a.Message,
		Data:      map[string]any{"type": string(a.Kind)},
	}
	for k, v := range a.Data {
		n.Data[k] = v
	}

	if a.Kind != domain.KindEarthquake {
		if n.Title == "" {
			n.Title = string(a.Kind)
		}
		n.Subject = n.Title
		return n, false
	}

	n.Data["magnitude"] = a.Magnitude
	if n.Title == "" {
		n.Title = tpl.Title(a.Magnitude)
	}
	n.Subject = tpl.Subject(a.Magnitude)
	if n.Body != "" {
		return n, false
	}
	if text, ok := d.generate(ctx, tpl, a.Magnitude); ok {
		n.Body = text
		return n, true
	}
	n.Body = tpl.CannedMessage(a.Magnitude)
	return n, false
}

func (d *Dispatcher) generate(ctx context.Context, tpl templates.Templates, magnitude float64) (string, bool) {
	if d.generator == nil {
		return "", false
	}
	gctx, cancel := context.WithTimeout(ctx, d.generatorTimeout)
	defer cancel()
	text, err := d.generator.Generate(gctx, tpl.GeneratorPrompt(magnitude), tpl.SystemInstruction)
	if err != nil {
		d.logger.Warn("text generation failed, using canned message", "magnitude", magnitude, "error", err)
		return "", false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		d.logger.Warn("text generator returned empty text, using canned message", "magnitude", magnitude)
		return "", false
	}
	return text, true
}
