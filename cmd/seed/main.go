package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowtide/spa-booking-engine/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, db.PoolConfig{DSN: dsn, MaxConns: 4})
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.ApplySchema(context.Background(), pool); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
	log.Println("schema applied")

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedProviders(context.Background(), pool, 25); err != nil {
		log.Fatalf("seed providers: %v", err)
	}

	log.Println("seed complete")
}

var serviceCatalog = []struct {
	name     string
	minutes  int
	priceMin int
	priceMax int
}{
	{"Hydrafacial", 30, 150, 250},
	{"Chemical Peel", 45, 120, 220},
	{"Microneedling", 60, 250, 400},
	{"Laser Hair Removal", 30, 90, 300},
	{"Botox Consultation", 15, 0, 0},
	{"Dermal Filler", 45, 400, 800},
	{"LED Light Therapy", 30, 60, 120},
	{"Deep Cleansing Facial", 60, 110, 180},
	{"Body Contouring", 90, 300, 600},
	{"Massage Therapy", 60, 100, 160},
}

var (
	buffers        = []int{0, 5, 10, 15}
	advanceWindows = []int{14, 30, 60}
	noticeHours    = []int{0, 2, 24}
)

func pick(values []int) int {
	return values[gofakeit.Number(0, len(values)-1)]
}

var timezones = []string{
	"America/New_York",
	"America/Chicago",
	"America/Denver",
	"America/Los_Angeles",
	"America/Phoenix",
}

func seedProviders(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d providers", count)

	for i := 0; i < count; i++ {
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		providerID := uuid.New()
		name := gofakeit.Company() + " Med Spa"
		tz := timezones[gofakeit.Number(0, len(timezones)-1)]

		_, err = tx.Exec(ctx, `
			INSERT INTO providers (id, business_name, timezone, booking_enabled, confirmation_message, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
		`, providerID, name, tz, gofakeit.Number(0, 9) > 0, "We look forward to seeing you!")
		if err != nil {
			_ = tx.Rollback(ctx)
			return err
		}

		hours, err := json.Marshal(businessHours())
		if err != nil {
			_ = tx.Rollback(ctx)
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO schedule_configs
				(provider_id, buffer_minutes, advance_booking_days, min_notice_hours,
				 require_email, require_phone, business_hours, blocked_dates, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, '{}', now())
		`, providerID,
			pick(buffers),
			pick(advanceWindows),
			pick(noticeHours),
			true,
			gofakeit.Bool(),
			hours)
		if err != nil {
			_ = tx.Rollback(ctx)
			return err
		}

		nServices := gofakeit.Number(3, 6)
		for j := 0; j < nServices; j++ {
			svc := serviceCatalog[(i+j)%len(serviceCatalog)]
			price := int64(gofakeit.Number(svc.priceMin, svc.priceMax)) * 100

			_, err = tx.Exec(ctx, `
				INSERT INTO services (id, provider_id, name, duration_minutes, price_cents, active, created_at)
				VALUES ($1, $2, $3, $4, $5, true, now())
			`, uuid.New(), providerID, svc.name, svc.minutes, price)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}

	log.Println("providers seeded")
	return nil
}

type dayHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

func businessHours() map[string]dayHours {
	weekday := dayHours{Enabled: true, Start: "09:00", End: "17:00"}
	saturday := dayHours{Enabled: gofakeit.Bool(), Start: "10:00", End: "14:00"}

	return map[string]dayHours{
		"monday":    weekday,
		"tuesday":   weekday,
		"wednesday": weekday,
		"thursday":  weekday,
		"friday":    weekday,
		"saturday":  saturday,
		"sunday":    {Enabled: false, Start: "00:00", End: "00:00"},
	}
}
