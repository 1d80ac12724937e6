package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/novamed-health/booking-platform/internal/catalog"
	"github.com/novamed-health/booking-platform/internal/observability/metrics"
	"github.com/novamed-health/booking-platform/pkg/logging"
)

var bookingTracer = otel.Tracer("novamed.internal.booking")

// Service runs slot reservations against the catalog and the ledger.
type Service struct {
	repo    *Repository
	catalog *catalog.Catalog
	logger  *logging.Logger
	metrics *metrics.BookingMetrics
}

// NewService constructs a booking service. metrics may be nil.
func NewService(repo *Repository, cat *catalog.Catalog, logger *logging.Logger, m *metrics.BookingMetrics) *Service {
	if repo == nil {
		panic("booking: repository required")
	}
	if cat == nil {
		panic("booking: catalog required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	repo.OnRetry = m.ObserveReserveRetry
	return &Service{repo: repo, catalog: cat, logger: logger, metrics: m}
}

// Reserve validates the request against the catalog and executes the
// atomic reservation transaction. Returns the new patient identifier.
func (s *Service) Reserve(ctx context.Context, req Reservation) (string, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.reserve")
	defer span.End()
	span.SetAttributes(
		attribute.String("novamed.department", req.Department),
		attribute.String("novamed.date", req.Date),
		attribute.String("novamed.time", req.Time),
	)

	dept, err := s.catalog.Get(req.Department)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveReservation("invalid_department")
		return "", fmt.Errorf("%w: %s", ErrInvalidDepartment, req.Department)
	}
	if !catalog.HasSlot(dept, req.Time) {
		s.metrics.ObserveReservation("invalid_slot")
		return "", fmt.Errorf("%w: %s %s", ErrInvalidSlot, req.Department, req.Time)
	}

	start := time.Now()
	id, err := s.repo.Reserve(ctx, req, dept.Capacity)
	s.metrics.ObserveReserveLatency(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, ErrSlotFull):
			s.metrics.ObserveReservation("slot_full")
			s.logger.Info("slot full",
				"department", req.Department, "date", req.Date, "time", req.Time)
		case errors.Is(err, ErrConflict):
			s.metrics.ObserveReservation("conflict")
			s.logger.Warn("reservation conflict retries exhausted",
				"department", req.Department, "date", req.Date, "time", req.Time, "error", err)
		default:
			s.metrics.ObserveReservation("error")
			s.logger.Error("reservation failed",
				"department", req.Department, "date", req.Date, "time", req.Time, "error", err)
		}
		return "", err
	}

	s.metrics.ObserveReservation("confirmed")
	s.logger.Info("reservation confirmed",
		"patient_id", id, "department", req.Department, "date", req.Date, "time", req.Time)
	return id, nil
}

// Availability lists the department's time points that still have
// headroom on the given date, each with its remaining seat count.
func (s *Service) Availability(ctx context.Context, department, date string) ([]SlotAvailability, error) {
	dept, err := s.catalog.Get(department)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDepartment, department)
	}

	counts, err := s.repo.SlotCounts(ctx, dept.Name, date)
	if err != nil {
		return nil, err
	}

	var out []SlotAvailability
	for _, t := range catalog.Slots(dept) {
		remaining := dept.Capacity - counts[t]
		if remaining > 0 {
			out = append(out, SlotAvailability{Time: t, Remaining: remaining})
		}
	}
	return out, nil
}

// Patient loads a patient record by identifier.
func (s *Service) Patient(ctx context.Context, id string) (*Patient, error) {
	return s.repo.GetPatient(ctx, id)
}
