package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/therapylink/clinic-scheduling/internal/db"
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

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	therapyIDs, err := seedTherapies(context.Background(), pool)
	if err != nil {
		log.Fatalf("seed therapies: %v", err)
	}
	doctorIDs, err := seedUsers(context.Background(), pool, "doctor", 40)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	patientIDs, err := seedUsers(context.Background(), pool, "patient", 2000)
	if err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if _, err := seedUsers(context.Background(), pool, "admin", 3); err != nil {
		log.Fatalf("seed admins: %v", err)
	}
	if err := seedAppointments(context.Background(), pool, doctorIDs, patientIDs, therapyIDs); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

func seedTherapies(ctx context.Context, pool *pgxpool.Pool) ([]uuid.UUID, error) {
	therapies := []struct {
		name    string
		minutes int
	}{
		{"Physiotherapy", 60},
		{"Massage Therapy", 60},
		{"Cognitive Behavioral Therapy", 60},
		{"Occupational Therapy", 60},
		{"Speech Therapy", 45},
		{"Hydrotherapy", 30},
	}

	log.Printf("seeding %d therapies", len(therapies))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, len(therapies))
	for _, t := range therapies {
		id := uuid.New()
		_, err := tx.Exec(ctx, `
			INSERT INTO therapies (id, name, duration_minutes, created_at)
			VALUES ($1, $2, $3, now())
		`, id, t.name, t.minutes)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("therapies seeded")
	return ids, nil
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, role string, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d %ss", count, role)

	specialties := []string{
		"Physiotherapy",
		"Sports Rehabilitation",
		"Neurological Rehabilitation",
		"Pediatric Therapy",
		"Geriatric Therapy",
		"Orthopedics",
	}

	const batchSize = 500
	ids := make([]uuid.UUID, 0, count)

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			var specialty *string
			if role == "doctor" {
				s := specialties[gofakeit.Number(0, len(specialties)-1)]
				specialty = &s
			}

			_, err := tx.Exec(ctx, `
				INSERT INTO users (id, name, email, role, specialty, approved, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, true, now(), now())
			`, id, name, email, role, specialty)
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			ids = append(ids, id)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}

		log.Printf("%ss seeded: %d/%d", role, end, count)
	}

	return ids, nil
}

// seedAppointments books each doctor a handful of non-overlapping sessions
// across the coming week, on the same 09:00-18:00 hourly grid the service
// offers.
func seedAppointments(ctx context.Context, pool *pgxpool.Pool, doctors, patients, therapies []uuid.UUID) error {
	log.Printf("seeding appointments for %d doctors", len(doctors))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Each patient is used at most once so the seed never violates the
	// no-overlap invariant on either calendar.
	nextPatient := 0

	total := 0
	for _, doctorID := range doctors {
		for day := 1; day <= 5; day++ {
			hours := []int{9, 10, 11, 12, 13, 14, 15, 16, 17}
			gofakeit.ShuffleInts(hours)
			nSlots := gofakeit.Number(2, 5)

			for _, hour := range hours[:nSlots] {
				if nextPatient >= len(patients) {
					break
				}

				date := time.Now().UTC().AddDate(0, 0, day)
				start := time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, time.UTC)

				patientID := patients[nextPatient]
				nextPatient++
				therapyID := therapies[gofakeit.Number(0, len(therapies)-1)]

				_, err := tx.Exec(ctx, `
					INSERT INTO appointments (id, patient_id, doctor_id, therapy_id, start_time, end_time, status, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, $6, 'scheduled', now(), now())
				`, uuid.New(), patientID, doctorID, therapyID, start, start.Add(time.Hour))
				if err != nil {
					return err
				}
				total++
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Printf("appointments seeded: %d", total)
	return nil
}
