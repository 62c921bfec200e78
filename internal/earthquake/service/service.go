// Package service records earthquakes and alerts everyone about them.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/project-queyk/queyk-backend/internal/earthquake/domain"
	"github.com/project-queyk/queyk-backend/internal/logging"
	ndomain "github.com/project-queyk/queyk-backend/internal/notification/domain"
	"github.com/project-queyk/queyk-backend/internal/platform/apperr"
	"github.com/project-queyk/queyk-backend/internal/telemetry"
)

// Store persists earthquake records.
type Store interface {
	Insert(ctx context.Context, magnitude float64, duration int) (*domain.Earthquake, error)
	GetByID(ctx context.Context, id string) (*domain.Earthquake, error)
	List(ctx context.Context) ([]domain.Earthquake, error)
	ListBetween(ctx context.Context, start, end time.Time) ([]domain.Earthquake, error)
}

// Dispatcher sends an alert through the notification channels.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert ndomain.Alert) (*ndomain.Result, error)
}

// StructValidator reports problems in a tagged struct as "field: message" strings.
type StructValidator interface {
	Struct(s any) []string
}

// Trigger is the out-of-band earthquake message. Message overrides the alert text when set.
type Trigger struct {
	Magnitude *float64 `json:"magnitude" validate:"required,gt=0"`
	Duration  *int     `json:"duration" validate:"required,gte=0"`
	Message   string   `json:"message,omitempty"`
}

// Recorded is a stored earthquake and the alert sent for it.
type Recorded struct {
	Earthquake domain.Earthquake `json:"earthquake"`
	Alert      *ndomain.Result   `json:"alert"`
}

type Service struct {
	store      Store
	dispatcher Dispatcher
	validator  StructValidator
	emitter    telemetry.EventEmitter
	logger     *slog.Logger
	location   *time.Location
}

// Option configures a Service.
type Option func(*Service)

func WithEmitter(e telemetry.EventEmitter) Option { return func(s *Service) { s.emitter = e } }
func WithLogger(l *slog.Logger) Option            { return func(s *Service) { s.logger = l } }

// WithLocation sets the zone used to widen ListBetween ranges to whole days.
func WithLocation(loc *time.Location) Option { return func(s *Service) { s.location = loc } }

func NewService(store Store, dispatcher Dispatcher, validator StructValidator, opts ...Option) *Service {
	s := &Service{store: store, dispatcher: dispatcher, validator: validator, location: time.UTC}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDefault(s.logger).With("component", "earthquake")
	return s
}

// Record persists an earthquake and then alerts every user. The record is returned even when the
// alert fails; the error then carries the dispatch failure.
func (s *Service) Record(ctx context.Context, t Trigger) (*Recorded, error) {
	if problems := s.validator.Struct(t); len(problems) > 0 {
		return nil, apperr.Invalid(problems...)
	}
	eq, err := s.store.Insert(ctx, *t.Magnitude, *t.Duration)
	if err != nil {
		return nil, apperr.Storage("insert earthquake", err)
	}
	telemetry.EmitAsync(s.emitter, telemetry.NewEvent(telemetry.EventEarthquake, "earthquake", eq))

	res, err := s.dispatcher.Dispatch(ctx, ndomain.Alert{
		Kind:      ndomain.KindEarthquake,
		Audience:  ndomain.AudienceAll,
		Magnitude: eq.Magnitude,
		Message:   t.Message,
		Data:      map[string]any{"earthquakeId": eq.ID, "duration": eq.Duration},
	})
	out := &Recorded{Earthquake: *eq, Alert: res}
	if err != nil {
		s.logger.Error("earthquake alert failed", "earthquake_id", eq.ID, "magnitude", eq.Magnitude, "error", err)
		return out, err
	}
	s.logger.Info("earthquake recorded", "earthquake_id", eq.ID, "magnitude", eq.Magnitude, "delivered", res.Delivered())
	return out, nil
}

// HandleMessage records the earthquake described by a JSON trigger message.
func (s *Service) HandleMessage(ctx context.Context, value []byte) error {
	var t Trigger
	dec := json.NewDecoder(bytes.NewReader(value))
	if err := dec.Decode(&t); err != nil {
		return apperr.Invalid("body: " + err.Error())
	}
	_, err := s.Record(ctx, t)
	return err
}

// Get returns one earthquake by id, or apperr.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*domain.Earthquake, error) {
	if id == "" {
		return nil, apperr.Invalid("id: is required")
	}
	eq, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Storage("get earthquake", err)
	}
	if eq == nil {
		return nil, apperr.NotFound("earthquake " + id)
	}
	return eq, nil
}

// List returns every earthquake, newest first. An empty list is not an error.
func (s *Service) List(ctx context.Context) ([]domain.Earthquake, error) {
	out, err := s.store.List(ctx)
	if err != nil {
		return nil, apperr.Storage("list earthquakes", err)
	}
	return out, nil
}

// ListBetween returns earthquakes on the days from start to end inclusive.
func (s *Service) ListBetween(ctx context.Context, start, end time.Time) ([]domain.Earthquake, error) {
	if start.IsZero() || end.IsZero() {
		return nil, apperr.Invalid("range: start and end are required")
	}
	if end.Before(start) {
		return nil, apperr.Invalid("range: end must not be before start")
	}
	from, to := domain.DayRange(start, end, s.location)
	out, err := s.store.ListBetween(ctx, from, to)
	if err != nil {
		return nil, apperr.Storage("list earthquakes", err)
	}
	return out, nil
}
