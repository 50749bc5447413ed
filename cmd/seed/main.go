package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/healthcareplus/scheduling-agent/internal/booking"
	"github.com/healthcareplus/scheduling-agent/internal/db"
	"github.com/healthcareplus/scheduling-agent/internal/schedule"
	"github.com/healthcareplus/scheduling-agent/pkg/logging"
)

// mutexLocker serializes bookings in-process. The seeder is the only
// writer while it runs, so the Redis lock is unnecessary.
type mutexLocker struct {
	mu sync.Mutex
}

func (l *mutexLocker) WithDateLock(ctx context.Context, date string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(ctx)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}
	scheduleFile := os.Getenv("SCHEDULE_FILE")
	if scheduleFile == "" {
		scheduleFile = "data/doctor_schedule.json"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, dsn)
	cancel()
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(context.Background(), pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	template, err := schedule.Load(scheduleFile)
	if err != nil {
		log.Fatalf("load schedule template: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	repo := booking.NewPgRepository(pool)
	svc := booking.NewService(repo, template, &mutexLocker{}, logging.New("info").Named("seed"))

	if err := seedBookings(context.Background(), svc, template, 14); err != nil {
		log.Fatalf("seed bookings: %v", err)
	}

	log.Println("seed complete")
}

// seedBookings books a handful of fake patients into random open slots
// over the next `days` working days.
func seedBookings(ctx context.Context, svc *booking.Service, template *schedule.Template, days int) error {
	tags := template.TypeTags()
	booked := 0

	for d := 1; d <= days; d++ {
		date := schedule.FormatDate(time.Now().AddDate(0, 0, d))
		tag := tags[gofakeit.Number(0, len(tags)-1)]

		day, err := svc.Availability(ctx, date, tag)
		if err != nil {
			return err
		}
		if day.AvailableCount == 0 {
			continue
		}

		var open []booking.TimeSlot
		for _, s := range day.Slots {
			if s.Available {
				open = append(open, s)
			}
		}

		// Fill roughly a third of the day so demos show both open and
		// taken slots.
		want := len(open) / 3
		if want == 0 {
			want = 1
		}
		rand.Shuffle(len(open), func(i, j int) { open[i], open[j] = open[j], open[i] })

		for _, slot := range open[:want] {
			appt, err := svc.Book(ctx, booking.Request{
				Date:            date,
				StartTime:       slot.StartTime(),
				AppointmentType: tag,
				Patient: booking.Patient{
					Name:  gofakeit.Name(),
					Email: gofakeit.Email(),
					Phone: gofakeit.Numerify("+91 ##########"),
				},
				Reason: gofakeit.Sentence(8),
			})
			if err != nil {
				log.Printf("skip %s %s: %v", date, slot.StartTime(), err)
				continue
			}
			booked++
			log.Printf("booked %s on %s at %s", appt.BookingID, appt.Date, appt.StartTime())
		}
	}

	log.Printf("bookings seeded: %d", booked)
	return nil
}
