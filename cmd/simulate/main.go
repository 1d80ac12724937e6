package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/novamed-health/booking-platform/internal/booking"
	"github.com/novamed-health/booking-platform/internal/catalog"
	"github.com/novamed-health/booking-platform/internal/db"
	"github.com/novamed-health/booking-platform/pkg/logging"
)

// simulate hammers the reservation path with concurrent fake patients
// to exercise the capacity gate under contention. Run it against a
// scratch database.
func main() {
	workers := flag.Int("workers", 16, "concurrent workers")
	requests := flag.Int("requests", 200, "total reservation attempts")
	department := flag.String("department", "Cardiology", "target department")
	date := flag.String("date", time.Now().AddDate(0, 0, 1).Format("2006-01-02"), "target date (YYYY-MM-DD)")
	flag.Parse()

	dsn := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	pool, err := db.ConnectPostgres(ctx, dsn)
	cancel()
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	cat := catalog.Default()
	dept, err := cat.Get(*department)
	if err != nil {
		log.Fatalf("unknown department %q", *department)
	}
	slots := catalog.Slots(dept)

	repo := booking.NewRepository(pool, 5)
	service := booking.NewService(repo, cat, logging.New("warn"), nil)

	var (
		success  atomic.Int64
		slotFull atomic.Int64
		conflict atomic.Int64
		failed   atomic.Int64

		mu        sync.Mutex
		latencies []time.Duration
	)

	jobs := make(chan int)
	var wg sync.WaitGroup
	start := time.Now()

	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				req := booking.Reservation{
					FirstName:  gofakeit.FirstName(),
					LastName:   gofakeit.LastName(),
					Gender:     gofakeit.RandomString([]string{"Male", "Female", "Other"}),
					Address:    gofakeit.Street(),
					Email:      gofakeit.Email(),
					Phone:      "+91" + gofakeit.Numerify("##########"),
					Department: dept.Name,
					Date:       *date,
					Time:       slots[rand.Intn(len(slots))],
				}

				began := time.Now()
				_, err := service.Reserve(context.Background(), req)
				took := time.Since(began)

				mu.Lock()
				latencies = append(latencies, took)
				mu.Unlock()

				switch {
				case err == nil:
					success.Add(1)
				case errors.Is(err, booking.ErrSlotFull):
					slotFull.Add(1)
				case errors.Is(err, booking.ErrConflict):
					conflict.Add(1)
				default:
					failed.Add(1)
				}
			}
		}()
	}

	for i := 0; i < *requests; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	elapsed := time.Since(start)

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	fmt.Printf("finished %d attempts in %s (%d workers)\n", *requests, elapsed.Round(time.Millisecond), *workers)
	fmt.Printf("  booked:    %d\n", success.Load())
	fmt.Printf("  slot full: %d\n", slotFull.Load())
	fmt.Printf("  conflict:  %d\n", conflict.Load())
	fmt.Printf("  errors:    %d\n", failed.Load())
	if len(latencies) > 0 {
		fmt.Printf("  latency:   avg=%s p50=%s p95=%s max=%s\n",
			(sum / time.Duration(len(latencies))).Round(time.Microsecond),
			latencies[len(latencies)*50/100].Round(time.Microsecond),
			latencies[min(len(latencies)*95/100, len(latencies)-1)].Round(time.Microsecond),
			latencies[len(latencies)-1].Round(time.Microsecond),
		)
	}

	booked := success.Load()
	if booked > int64(dept.Capacity*len(slots)) {
		fmt.Println("CAPACITY VIOLATION: more bookings than seats")
		os.Exit(1)
	}
}
