package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/project-queyk/queyk-backend/internal/reading/domain"
)

var columns = []string{"id", "si_average", "si_minimum", "si_maximum", "battery", "signal_strength", "created_at"}

func newMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestInsert(t *testing.T) {
	repo, mock := newMock(t)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reading`)).
		WithArgs(sqlmock.AnyArg(), 0.2, 0.1, 0.3, 88.0, "good", fixed).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rd, err := repo.Insert(context.Background(), domain.Fields{SIAverage: 0.2, SIMinimum: 0.1, SIMaximum: 0.3, Battery: 88, SignalStrength: "good"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if rd.ID == "" {
		t.Error("ID should be assigned")
	}
	if !rd.CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v, want %v", rd.CreatedAt, fixed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestInsertAt_StoresUTC(t *testing.T) {
	repo, mock := newMock(t)
	manila := time.FixedZone("PHT", 8*3600)
	at := time.Date(2025, 3, 1, 20, 0, 0, 0, manila)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reading`)).
		WithArgs(sqlmock.AnyArg(), 0.2, 0.1, 0.3, 50.0, "weak", at.UTC()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rd, err := repo.InsertAt(context.Background(), domain.Fields{SIAverage: 0.2, SIMinimum: 0.1, SIMaximum: 0.3, Battery: 50, SignalStrength: "weak"}, at)
	if err != nil {
		t.Fatalf("InsertAt: %v", err)
	}
	if rd.CreatedAt.Location() != time.UTC || !rd.CreatedAt.Equal(at) {
		t.Errorf("CreatedAt = %v, want %v in UTC", rd.CreatedAt, at)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestInsertAt_TruncatesToMicroseconds(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.UTC)
	want := time.Date(2025, 3, 1, 12, 0, 0, 123456000, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reading`)).
		WithArgs(sqlmock.AnyArg(), 0.2, 0.1, 0.3, 50.0, "good", want).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rd, err := repo.InsertAt(context.Background(), domain.Fields{SIAverage: 0.2, SIMinimum: 0.1, SIMaximum: 0.3, Battery: 50, SignalStrength: "good"}, at)
	if err != nil {
		t.Fatalf("InsertAt: %v", err)
	}
	if !rd.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", rd.CreatedAt, want)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestInsert_Error(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reading`)).WillReturnError(errors.New("db down"))
	if _, err := repo.Insert(context.Background(), domain.Fields{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM reading WHERE id = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(columns))
	rd, err := repo.GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if rd != nil {
		t.Errorf("GetByID = %+v, want nil", rd)
	}
}

func TestListBetween(t *testing.T) {
	repo, mock := newMock(t)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE created_at >= $1 AND created_at <= $2 ORDER BY created_at ASC`)).
		WithArgs(start, end).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("a", 0.1, 0.0, 0.2, 90.0, "good", start.Add(time.Hour)).
			AddRow("b", 0.3, 0.1, 0.6, 89.0, "weak", start.Add(2*time.Hour)))

	got, err := repo.ListBetween(context.Background(), start, end)
	if err != nil {
		t.Fatalf("ListBetween: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].SignalStrength != "weak" {
		t.Errorf("ListBetween = %+v", got)
	}
}

func TestList_Empty(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM reading ORDER BY created_at ASC`)).
		WillReturnRows(sqlmock.NewRows(columns))
	got, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("List = %#v, want empty non-nil", got)
	}
}

func TestLastReadingTime(t *testing.T) {
	repo, mock := newMock(t)
	last := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT created_at FROM reading ORDER BY created_at DESC LIMIT 1`)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(last))
	got, err := repo.LastReadingTime(context.Background())
	if err != nil {
		t.Fatalf("LastReadingTime: %v", err)
	}
	if got == nil || !got.Equal(last) {
		t.Errorf("LastReadingTime = %v, want %v", got, last)
	}
}

func TestLastReadingTime_Empty(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT created_at FROM reading`)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))
	got, err := repo.LastReadingTime(context.Background())
	if err != nil {
		t.Fatalf("LastReadingTime: %v", err)
	}
	if got != nil {
		t.Errorf("LastReadingTime = %v, want nil", got)
	}
}

func TestLastReadingTime_Error(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT created_at FROM reading`)).WillReturnError(errors.New("timeout"))
	if _, err := repo.LastReadingTime(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
