// Booking-storm simulator: points many concurrent workers at one appointment
// slot and verifies exactly one booking wins while the rest get conflict or
// schedule-busy responses. Run against a seeded api-server.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/therapylink/clinic-scheduling/internal/db"
)

type SimConfig struct {
	APIBaseURL  string
	Workers     int
	PostgresDSN string
}

type bookingPayload struct {
	PatientID string    `json:"patient_id"`
	DoctorID  string    `json:"doctor_id"`
	TherapyID string    `json:"therapy_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type apiError struct {
	Error string `json:"error"`
}

type results struct {
	success  int64
	conflict int64
	busy     int64
	failure  int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (r *results) record(latency time.Duration, status int, code string) {
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&r.success, 1)
	case code == "booking_conflict":
		atomic.AddInt64(&r.conflict, 1)
	case code == "schedule_busy":
		atomic.AddInt64(&r.busy, 1)
	default:
		atomic.AddInt64(&r.failure, 1)
	}

	r.mu.Lock()
	r.latencies = append(r.latencies, latency)
	r.mu.Unlock()
}

func (r *results) percentile(p int) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(r.latencies))
	copy(sorted, r.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	doctorID, therapyID, patientIDs, err := loadIDs(ctx, pool, cfg.Workers)
	if err != nil {
		log.Fatalf("load ids: %v", err)
	}
	log.Printf("contesting one slot of doctor %s with %d workers", doctorID, cfg.Workers)

	// A slot far enough out that the seed cannot have booked it.
	start := time.Now().UTC().AddDate(0, 0, 30).Truncate(24 * time.Hour).Add(10 * time.Hour)

	client := &http.Client{Timeout: 10 * time.Second}
	var res results

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func(patientID uuid.UUID) {
			defer wg.Done()

			payload := bookingPayload{
				PatientID: patientID.String(),
				DoctorID:  doctorID.String(),
				TherapyID: therapyID.String(),
				StartTime: start,
				EndTime:   start.Add(time.Hour),
			}

			began := time.Now()
			status, code, err := book(client, cfg.APIBaseURL, payload, patientID)
			if err != nil {
				log.Printf("request error: %v", err)
				atomic.AddInt64(&res.failure, 1)
				return
			}
			res.record(time.Since(began), status, code)
		}(patientIDs[i])
	}
	wg.Wait()

	log.Printf("results: success=%d conflict=%d busy=%d failure=%d",
		res.success, res.conflict, res.busy, res.failure)
	log.Printf("latency: p50=%s p95=%s", res.percentile(50), res.percentile(95))

	if res.success != 1 {
		log.Fatalf("expected exactly 1 winning booking, got %d", res.success)
	}
	log.Println("single-winner property held")
}

func book(client *http.Client, baseURL string, payload bookingPayload, actorID uuid.UUID) (int, string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, "", err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/appointments", bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", actorID.String())
	req.Header.Set("X-User-Role", "patient")

	resp, err := client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", err
	}

	var apiErr apiError
	_ = json.Unmarshal(raw, &apiErr)
	return resp.StatusCode, apiErr.Error, nil
}

func loadIDs(ctx context.Context, pool *pgxpool.Pool, workers int) (uuid.UUID, uuid.UUID, []uuid.UUID, error) {
	var doctorID, therapyID uuid.UUID

	if err := pool.QueryRow(ctx, `SELECT id FROM users WHERE role = 'doctor' LIMIT 1`).Scan(&doctorID); err != nil {
		return uuid.Nil, uuid.Nil, nil, fmt.Errorf("pick doctor: %w", err)
	}
	if err := pool.QueryRow(ctx, `SELECT id FROM therapies LIMIT 1`).Scan(&therapyID); err != nil {
		return uuid.Nil, uuid.Nil, nil, fmt.Errorf("pick therapy: %w", err)
	}

	patients := make([]uuid.UUID, 0, workers)
	for i := 0; i < workers; i++ {
		var id uuid.UUID
		if err := pool.QueryRow(ctx, `SELECT id FROM users WHERE role = 'patient' OFFSET $1 LIMIT 1`, i).Scan(&id); err != nil {
			return uuid.Nil, uuid.Nil, nil, fmt.Errorf("pick patient %d: %w", i, err)
		}
		patients = append(patients, id)
	}

	return doctorID, therapyID, patients, nil
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:  getEnv("API_BASE_URL", "http://localhost:8080"),
		Workers:     getEnvInt("SIM_WORKERS", 50),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
	}
	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required")
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
