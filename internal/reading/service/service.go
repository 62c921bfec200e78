// Package service implements telemetry ingestion and historical queries for sensor readings.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/project-queyk/queyk-backend/internal/logging"
	"github.com/project-queyk/queyk-backend/internal/platform/apperr"
	"github.com/project-queyk/queyk-backend/internal/reading/bucket"
	"github.com/project-queyk/queyk-backend/internal/reading/domain"
	"github.com/project-queyk/queyk-backend/internal/telemetry"
)

// EventNewReading is the realtime event name a stored reading is broadcast under.
const EventNewReading = "reading:new"

// Store is the persistence the service needs.
type Store interface {
	Insert(ctx context.Context, f domain.Fields) (*domain.Reading, error)
	GetByID(ctx context.Context, id string) (*domain.Reading, error)
	List(ctx context.Context) ([]domain.Reading, error)
	ListBetween(ctx context.Context, start, end time.Time) ([]domain.Reading, error)
}

// Validator turns a raw payload into reading fields or an *apperr.ValidationError.
type Validator interface {
	Validate(raw []byte) (domain.Fields, error)
}

// Broadcaster pushes an event to realtime subscribers and reports how many received it.
type Broadcaster interface {
	Broadcast(event string, payload any) (int, error)
}

// Recorder counts ingested readings.
type Recorder interface {
	ReadingIngested(ctx context.Context, riskLevel string)
}

// BucketResult is one downsampled bucket with the risk of its aggregate.
type BucketResult struct {
	BucketStart time.Time `json:"bucketStart"`
	domain.Assessed
}

// Service ingests sensor readings and answers list and range queries.
type Service struct {
	store       Store
	validator   Validator
	broadcaster Broadcaster
	recorder    Recorder
	emitter     telemetry.EventEmitter
	logger      *slog.Logger
}

// Option configures optional collaborators.
type Option func(*Service)

// WithBroadcaster sets the realtime broadcaster for new readings.
func WithBroadcaster(b Broadcaster) Option { return func(s *Service) { s.broadcaster = b } }

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option { return func(s *Service) { s.recorder = r } }

// WithEmitter sets the telemetry event emitter.
func WithEmitter(e telemetry.EventEmitter) Option { return func(s *Service) { s.emitter = e } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// NewService returns a reading service backed by store and validator.
func NewService(store Store, validator Validator, opts ...Option) *Service {
	s := &Service{store: store, validator: validator}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDefault(s.logger).With("component", "reading_service")
	return s
}

// Ingest validates raw, stores the reading and returns it with its risk. Ingestion succeeds iff the
// insert succeeds; the realtime broadcast and telemetry that follow are best-effort.
func (s *Service) Ingest(ctx context.Context, raw []byte) (*domain.Assessed, error) {
	fields, err := s.validator.Validate(raw)
	if err != nil {
		return nil, err
	}
	return s.IngestFields(ctx, fields)
}

// IngestFields stores already validated fields.
func (s *Service) IngestFields(ctx context.Context, f domain.Fields) (*domain.Assessed, error) {
	stored, err := s.store.Insert(ctx, f)
	if err != nil {
		return nil, apperr.Storage("insert reading", err)
	}
	assessed := domain.Assess(*stored)

	s.broadcast(assessed)
	if s.recorder != nil {
		s.recorder.ReadingIngested(ctx, string(assessed.RiskLevel))
	}
	telemetry.EmitAsync(s.emitter, telemetry.NewEvent(telemetry.EventReadingIngested, "reading_service", map[string]any{
		"id":        assessed.ID,
		"siMaximum": assessed.SIMaximum,
		"riskLevel": assessed.RiskLevel,
	}))
	return &assessed, nil
}

// broadcast has no return value: a realtime failure never reaches the ingest result.
func (s *Service) broadcast(r domain.Assessed) {
	if s.broadcaster == nil {
		return
	}
	n, err := s.broadcaster.Broadcast(EventNewReading, r)
	if err != nil {
		s.logger.Warn("realtime broadcast failed", "reading_id", r.ID, "error", err)
		return
	}
	s.logger.Debug("reading broadcast", "reading_id", r.ID, "clients", n)
}

// HandleMessage ingests a stream message. Validation failures are reported like any other error; the
// caller decides whether to retry.
func (s *Service) HandleMessage(ctx context.Context, value []byte) error {
	_, err := s.Ingest(ctx, value)
	return err
}

// Get returns one reading by id, or apperr.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*domain.Assessed, error) {
	if id == "" {
		return nil, apperr.Invalid("id: is required")
	}
	r, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Storage("get reading", err)
	}
	if r == nil {
		return nil, apperr.NotFound("reading " + id)
	}
	a := domain.Assess(*r)
	return &a, nil
}

// List returns every stored reading with its risk, oldest first, or apperr.ErrNotFound when there are none.
func (s *Service) List(ctx context.Context) ([]domain.Assessed, error) {
	readings, err := s.store.List(ctx)
	if err != nil {
		return nil, apperr.Storage("list readings", err)
	}
	if len(readings) == 0 {
		return nil, apperr.NotFound("readings")
	}
	out := make([]domain.Assessed, len(readings))
	for i, r := range readings {
		out[i] = domain.Assess(r)
	}
	return out, nil
}

// Query returns the readings in [start, end] downsampled to the bucket width for the span, ascending by
// bucket start, each classified. Returns apperr.ErrNotFound when the range holds no readings.
func (s *Service) Query(ctx context.Context, start, end time.Time) ([]BucketResult, error) {
	if start.IsZero() || end.IsZero() {
		return nil, apperr.Invalid("startDate and endDate are required")
	}
	if end.Before(start) {
		return nil, apperr.Invalid("endDate: must not be before startDate")
	}
	readings, err := s.store.ListBetween(ctx, start, end)
	if err != nil {
		return nil, apperr.Storage("list readings in range", err)
	}
	if len(readings) == 0 {
		return nil, apperr.NotFound("readings in range")
	}
	buckets := bucket.Downsample(readings, start, end)
	out := make([]BucketResult, len(buckets))
	for i, b := range buckets {
		out[i] = BucketResult{BucketStart: b.Start, Assessed: domain.Assess(b.Aggregate)}
	}
	return out, nil
}
