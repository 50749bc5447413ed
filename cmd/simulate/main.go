package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthcareplus/scheduling-agent/internal/db"
)

// The simulator hammers the booking surface with concurrent workers
// aimed at a single day, then audits the ledger: if the per-date lock
// holds, no two confirmed bookings on that day may overlap.

type SimConfig struct {
	APIBaseURL  string
	Duration    time.Duration
	Workers     int
	Date        string
	Type        string
	BookRatio   float64
	ReadRatio   float64
	CancelRatio float64
	PostgresDSN string
}

type slotPool struct {
	mu       sync.RWMutex
	slots    []string // HH:MM start times on the target date
	bookings []string // booking IDs created during the run
}

func (p *slotPool) RandomSlot(rng *rand.Rand) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.slots) == 0 {
		return "", false
	}
	return p.slots[rng.Intn(len(p.slots))], true
}

func (p *slotPool) AddBooking(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bookings = append(p.bookings, id)
}

func (p *slotPool) RandomBooking(rng *rand.Rand) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.bookings) == 0 {
		return "", false
	}
	return p.bookings[rng.Intn(len(p.bookings))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]

	p50Idx := len(latencies) * 50 / 100
	if p50Idx >= len(latencies) {
		p50Idx = len(latencies) - 1
	}
	p50 = latencies[p50Idx]

	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, min, max, p50, p95
}

type Metrics struct {
	Book         OperationMetrics
	Availability OperationMetrics
	Cancel       OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *slotPool
	client  *http.Client
	metrics Metrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: date=%s type=%s duration=%s workers=%d",
		cfg.Date, cfg.Type, cfg.Duration, cfg.Workers)

	sim := &Simulator{
		config: cfg,
		pool:   &slotPool{},
		client: &http.Client{Timeout: 10 * time.Second},
	}

	if err := sim.loadSlots(context.Background()); err != nil {
		log.Fatalf("load slots: %v", err)
	}
	log.Printf("loaded %d slots for %s", len(sim.pool.slots), cfg.Date)

	sim.Run()
	sim.PrintReport()

	if err := auditLedger(cfg); err != nil {
		log.Fatalf("ledger audit: %v", err)
	}
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:  getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:    getDuration("SIM_DURATION", 30*time.Second),
		Workers:     getInt("SIM_WORKERS", 10),
		Date:        getEnv("SIM_DATE", nextWeekday()),
		Type:        getEnv("SIM_TYPE", "consultation"),
		BookRatio:   getFloat("SIM_BOOK_RATIO", 0.6),
		ReadRatio:   getFloat("SIM_READ_RATIO", 0.3),
		CancelRatio: getFloat("SIM_CANCEL_RATIO", 0.1),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
	}

	total := cfg.BookRatio + cfg.ReadRatio + cfg.CancelRatio
	if total > 0 {
		cfg.BookRatio /= total
		cfg.ReadRatio /= total
		cfg.CancelRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required for the end-state audit")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

// nextWeekday finds the next Monday-Friday date, skipping weekends so
// the default target is a working day.
func nextWeekday() string {
	d := time.Now().AddDate(0, 0, 1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d.Format("2006-01-02")
}

// loadSlots queries availability once to discover the slot grid the
// workers will fight over.
func (s *Simulator) loadSlots(ctx context.Context) error {
	url := fmt.Sprintf("%s/api/calendly/availability?date=%s&appointment_type=%s",
		s.config.APIBaseURL, s.config.Date, s.config.Type)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("availability returned %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		AvailableSlots []struct {
			StartTime string `json:"start_time"`
		} `json:"available_slots"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return err
	}

	for _, slot := range payload.AvailableSlots {
		s.pool.slots = append(s.pool.slots, slot.StartTime)
	}
	if len(s.pool.slots) == 0 {
		return fmt.Errorf("no slots on %s, is it a working day?", s.config.Date)
	}
	return nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.BookRatio:
				s.doBook(ctx, rng, workerID)
			case r < s.config.BookRatio+s.config.ReadRatio:
				s.doAvailability(ctx)
			default:
				s.doCancel(ctx, rng)
			}
		}
	}
}

func (s *Simulator) doBook(ctx context.Context, rng *rand.Rand, workerID int) {
	slot, ok := s.pool.RandomSlot(rng)
	if !ok {
		return
	}

	reqBody := map[string]any{
		"date":             s.config.Date,
		"start_time":       slot,
		"appointment_type": s.config.Type,
		"patient": map[string]string{
			"name":  fmt.Sprintf("Load Tester %d", workerID),
			"email": fmt.Sprintf("load.tester%d@example.com", workerID),
			"phone": fmt.Sprintf("+91 98765%05d", rng.Intn(100000)),
		},
		"reason": "automated load test booking",
	}
	body, _ := json.Marshal(reqBody)

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost,
		s.config.APIBaseURL+"/api/calendly/book", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false

	if err == nil {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(resp.Body)

		switch {
		case resp.StatusCode == http.StatusCreated:
			success = true
			var booked struct {
				BookingID string `json:"booking_id"`
			}
			if json.Unmarshal(bodyBytes, &booked) == nil && booked.BookingID != "" {
				s.pool.AddBooking(booked.BookingID)
			}
		case resp.StatusCode == http.StatusConflict:
			conflict = true
		case resp.StatusCode == http.StatusBadRequest && strings.Contains(string(bodyBytes), "slot_unavailable"):
			// Losing the race to a taken slot is the expected outcome
			// under contention, not an error.
			conflict = true
		}
	}

	s.metrics.Book.Record(latency, success, conflict)
}

func (s *Simulator) doAvailability(ctx context.Context) {
	url := fmt.Sprintf("%s/api/calendly/availability?date=%s&appointment_type=%s",
		s.config.APIBaseURL, s.config.Date, s.config.Type)

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	s.metrics.Availability.Record(latency, success, false)
}

func (s *Simulator) doCancel(ctx context.Context, rng *rand.Rand) {
	bookingID, ok := s.pool.RandomBooking(rng)
	if !ok {
		return
	}

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/api/calendly/booking/%s", s.config.APIBaseURL, bookingID), nil)
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		// Repeat cancels of the same booking come back 404.
		success = resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNotFound
	}

	s.metrics.Cancel.Record(latency, success, false)
}

// auditLedger fails loudly if any two confirmed bookings on the target
// date overlap.
func auditLedger(cfg SimConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	return checkOverlaps(ctx, pool, cfg.Date)
}

func checkOverlaps(ctx context.Context, pool *pgxpool.Pool, date string) error {
	rows, err := pool.Query(ctx, `
		SELECT a.booking_id, b.booking_id
		FROM bookings a
		JOIN bookings b
		  ON a.day = b.day
		 AND a.booking_id < b.booking_id
		 AND a.start_min < b.end_min
		 AND b.start_min < a.end_min
		WHERE a.day = $1::date
		  AND a.status = 'confirmed'
		  AND b.status = 'confirmed'
	`, date)
	if err != nil {
		return err
	}
	defer rows.Close()

	overlapping := 0
	for rows.Next() {
		var first, second string
		if err := rows.Scan(&first, &second); err != nil {
			return err
		}
		log.Printf("OVERLAP: %s and %s", first, second)
		overlapping++
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if overlapping > 0 {
		return fmt.Errorf("found %d overlapping confirmed booking pairs on %s", overlapping, date)
	}
	log.Printf("ledger audit passed: no overlapping confirmed bookings on %s", date)
	return nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Target date: %s (%s)\n", s.config.Date, s.config.Type)
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Book", &s.metrics.Book)
	printOperationReport("Availability", &s.metrics.Availability)
	printOperationReport("Cancel", &s.metrics.Cancel)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	errCount := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if errCount > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", errCount, float64(errCount)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
