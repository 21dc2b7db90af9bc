package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/psiagenda/scheduling-engine/internal/db"
	"github.com/psiagenda/scheduling-engine/internal/timeutil"
)

var audiences = []string{"children", "teens", "adults", "elderly", "couples"}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	// Shared reference-id pools so specialty/approach overlaps actually
	// occur between psychologists and search filters.
	specialtyPool := newIDPool(12)
	approachPool := newIDPool(6)

	if err := seedPsychologists(context.Background(), pool, 50, specialtyPool, approachPool); err != nil {
		log.Fatalf("seed psychologists: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 500); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

func newIDPool(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func pickIDs(pool []uuid.UUID, min, max int) []uuid.UUID {
	n := gofakeit.Number(min, max)
	picked := make([]uuid.UUID, 0, n)
	seen := make(map[uuid.UUID]struct{}, n)
	for len(picked) < n {
		id := pool[gofakeit.Number(0, len(pool)-1)]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		picked = append(picked, id)
	}
	return picked
}

func pickAudiences() []string {
	n := gofakeit.Number(1, 3)
	picked := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	for len(picked) < n {
		a := audiences[gofakeit.Number(0, len(audiences)-1)]
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		picked = append(picked, a)
	}
	return picked
}

func seedPsychologists(ctx context.Context, pool *pgxpool.Pool, count int, specialtyPool, approachPool []uuid.UUID) error {
	log.Printf("seeding %d psychologists", count)

	genders := []string{"female", "male", "other"}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		rate := float64(gofakeit.Number(80, 400))

		_, err := tx.Exec(ctx, `
			INSERT INTO psychologists (id, name, gender, specialty_ids, approach_ids, audiences,
			                           value_per_appointment, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		`, id, gofakeit.Name(), genders[gofakeit.Number(0, len(genders)-1)],
			pickIDs(specialtyPool, 1, 4), pickIDs(approachPool, 1, 3), pickAudiences(), rate)
		if err != nil {
			return err
		}

		if err := seedSlots(ctx, tx, id); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("psychologists seeded")
	return nil
}

// seedSlots inserts hour-aligned open slots over the next two weeks,
// inside the operating window.
func seedSlots(ctx context.Context, tx pgx.Tx, psychologistID uuid.UUID) error {
	start := timeutil.Normalize(time.Now()).Add(24 * time.Hour)
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)

	for day := 0; day < 14; day++ {
		for _, hour := range []int{9, 10, 11, 14, 15, 16, 17} {
			if gofakeit.Bool() {
				continue
			}
			slotDate := start.AddDate(0, 0, day).Add(time.Duration(hour) * time.Hour)
			_, err := tx.Exec(ctx, `
				INSERT INTO availability_slots (id, psychologist_id, date, available, version, created_at, updated_at)
				VALUES ($1, $2, $3, true, 0, now(), now())
			`, uuid.New(), psychologistID, slotDate)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 100

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, uuid.New(), gofakeit.Name(), gofakeit.Email())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}
