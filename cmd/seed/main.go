// seed inserts development sample data for local testing: an admin and a regular alert recipient,
// and 24 hours of sensor readings. Idempotent: existing users are kept and readings are only
// generated when the reading table is empty.
package main

import (
	"context"
	"log"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/project-queyk/queyk-backend/internal/config"
	"github.com/project-queyk/queyk-backend/internal/db"
	"github.com/project-queyk/queyk-backend/internal/logging"
	readingdomain "github.com/project-queyk/queyk-backend/internal/reading/domain"
	readingrepo "github.com/project-queyk/queyk-backend/internal/reading/repository"
	userdomain "github.com/project-queyk/queyk-backend/internal/user/domain"
	userrepo "github.com/project-queyk/queyk-backend/internal/user/repository"
)

const (
	adminEmail     = "admin@example.com"
	userEmail      = "user@example.com"
	sampleInterval = 5 * time.Minute
	sampleSpan     = 24 * time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env or set DATABASE_URL")
	}
	logger := logging.New(cfg.LogLevel, "text", nil)

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db open failed", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	users := userrepo.NewPostgresRepository(conn)
	for _, u := range []*userdomain.User{
		{
			Name:              "Dev Admin",
			Email:             adminEmail,
			Phone:             "9999999999",
			Role:              userdomain.RoleAdmin,
			AlertNotification: true,
		},
		{
			Name:              "Dev User",
			Email:             userEmail,
			Role:              userdomain.RoleUser,
			AlertNotification: true,
			PushNotification:  true,
			ExpoPushToken:     "ExponentPushToken[dev-user-000000000000]",
		},
	} {
		created, err := users.Create(ctx, u)
		if err != nil {
			logger.Error("create user failed", "email", u.Email, "error", err)
			os.Exit(1)
		}
		if created {
			logger.Info("user created", "email", u.Email, "role", u.Role)
		} else {
			logger.Info("user exists, skipped", "email", u.Email)
		}
	}

	readings := readingrepo.NewPostgresRepository(conn)
	last, err := readings.LastReadingTime(ctx)
	if err != nil {
		logger.Error("reading check failed", "error", err)
		os.Exit(1)
	}
	if last != nil {
		logger.Info("readings already present, skipped", "last", last.Format(time.RFC3339))
		return
	}

	end := time.Now().UTC().Truncate(sampleInterval)
	start := end.Add(-sampleSpan)
	n := 0
	for at := start.Add(sampleInterval); !at.After(end); at = at.Add(sampleInterval) {
		if _, err := readings.InsertAt(ctx, sample(at, start), at); err != nil {
			logger.Error("insert reading failed", "at", at, "error", err)
			os.Exit(1)
		}
		n++
	}
	logger.Info("seed completed", slog.Int("readings", n), slog.Time("from", start), slog.Time("to", end))
}

// sample returns a quiet background reading with one elevated spike mid-afternoon and a slowly
// draining battery.
func sample(at, start time.Time) readingdomain.Fields {
	elapsed := at.Sub(start)
	avg := 0.05 + rand.Float64()*0.1
	peak := avg + rand.Float64()*0.2
	if at.Hour() == 15 && at.Minute() < 15 {
		peak = 1.2 + rand.Float64()*0.5
	}
	battery := math.Round((100-elapsed.Hours()*1.5)*10) / 10
	signal := "good"
	if rand.IntN(10) == 0 {
		signal = "weak"
	}
	return readingdomain.Fields{
		SIAverage:      math.Round(avg*1000) / 1000,
		SIMinimum:      math.Round(avg/2*1000) / 1000,
		SIMaximum:      math.Round(peak*1000) / 1000,
		Battery:        battery,
		SignalStrength: signal,
	}
}
