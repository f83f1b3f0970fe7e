package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prameswara/medibook/internal/domain"
	"github.com/prameswara/medibook/internal/gateway"
	"github.com/prameswara/medibook/internal/kafka"
	"github.com/prameswara/medibook/internal/repository"
	"go.uber.org/zap"
)

type PaymentUseCase interface {
	Open(ctx context.Context, bookingToken string) (*domain.PaymentSession, error)
	Nudge(ctx context.Context, bookingToken string) error
	ResumeOpenSessions(ctx context.Context) error
}

type Gateway interface {
	CreateSession(ctx context.Context, orderID string, amount int64, expiryHint time.Duration) (*gateway.Session, error)
	GetStatus(ctx context.Context, orderID string) (gateway.Status, error)
}

type Producer interface {
	PublishWithRetry(ctx context.Context, topic, key string, payload interface{}, maxRetries int) error
}

// publishRetries bounds event delivery attempts before an event is
// dropped with a warning.
const publishRetries = 3

// PaymentService owns resolving a pending booking to a terminal status.
// Each in-flight booking gets its own reconciler goroutine, cancellable
// the moment the booking turns terminal by any path. Terminal commits go
// through the repository's compare-and-swap, so concurrent poll results
// and deadline fires agree on exactly one outcome.
type PaymentService struct {
	bookings repository.BookingRepository
	sessions repository.PaymentSessionRepository
	gateway  Gateway
	producer Producer
	logger   *zap.Logger

	bookingTopic       string
	notificationsTopic string
	adminFee           int64
	expiryHint         time.Duration
	pollInterval       time.Duration

	mu      sync.Mutex
	tasks   map[int64]*reconcileTask
	rootCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type reconcileTask struct {
	cancel context.CancelFunc
	nudge  chan struct{}
}

type PaymentServiceOption func(*PaymentService)

func WithNotificationsTopic(topic string) PaymentServiceOption {
	return func(s *PaymentService) {
		s.notificationsTopic = topic
	}
}

func NewPaymentService(
	bookings repository.BookingRepository,
	sessions repository.PaymentSessionRepository,
	gw Gateway,
	producer Producer,
	logger *zap.Logger,
	bookingTopic string,
	adminFee int64,
	expiryHint, pollInterval time.Duration,
	opts ...PaymentServiceOption,
) *PaymentService {
	rootCtx, cancel := context.WithCancel(context.Background())
	service := &PaymentService{
		bookings:     bookings,
		sessions:     sessions,
		gateway:      gw,
		producer:     producer,
		logger:       logger,
		bookingTopic: bookingTopic,
		adminFee:     adminFee,
		expiryHint:   expiryHint,
		pollInterval: pollInterval,
		tasks:        make(map[int64]*reconcileTask),
		rootCtx:      rootCtx,
		cancel:       cancel,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Open creates a payment session for a pending booking and starts its
// reconciler. Retrying after a gateway failure is safe: each attempt gets
// a fresh order id, so the gateway never sees a reused one. If an open
// session already exists it is returned as-is.
func (s *PaymentService) Open(ctx context.Context, bookingToken string) (*domain.PaymentSession, error) {
	booking, err := s.bookings.GetByToken(ctx, bookingToken)
	if err != nil {
		return nil, err
	}
	if booking.Status != domain.BookingStatusPendingPayment {
		return nil, fmt.Errorf("booking %s is not awaiting payment", bookingToken)
	}

	if existing, err := s.sessions.GetOpenByBooking(ctx, booking.ID); err == nil {
		s.startReconciler(booking.ID, existing)
		return existing, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	attempt, err := s.sessions.NextAttempt(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	orderID := fmt.Sprintf("%s-%d", booking.Token, attempt)

	gwSession, err := s.gateway.CreateSession(ctx, orderID, booking.Fee+s.adminFee, s.expiryHint)
	if err != nil {
		// Booking stays PENDING_PAYMENT with no handle; the caller may
		// retry and the fallback expiry still bounds the reservation.
		return nil, err
	}

	session := &domain.PaymentSession{
		BookingID: booking.ID,
		OrderID:   orderID,
		Amount:    booking.Fee + s.adminFee,
		Handle:    gwSession.Handle,
		ExpiresAt: gwSession.ExpiresAt,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	// The gateway's expiry instant is authoritative from here on, for the
	// reconciler deadline and for the worker sweep alike.
	if err := s.bookings.SetExpiresAt(ctx, booking.ID, gwSession.ExpiresAt); err != nil {
		s.logger.Warn("set booking expiry failed", zap.String("token", bookingToken), zap.Error(err))
	}

	s.startReconciler(booking.ID, session)
	return session, nil
}

// Nudge requests an immediate poll, used when the consumer signals it
// returned from the payment window, so a fast payment confirms without
// waiting out a full interval.
func (s *PaymentService) Nudge(ctx context.Context, bookingToken string) error {
	booking, err := s.bookings.GetByToken(ctx, bookingToken)
	if err != nil {
		return err
	}

	s.mu.Lock()
	task, ok := s.tasks[booking.ID]
	s.mu.Unlock()
	if ok {
		select {
		case task.nudge <- struct{}{}:
		default: // a poll is already queued
		}
		return nil
	}

	// No running task. For a pending booking (e.g. after a restart),
	// revive the loop; for a just-expired one, a single poll still lets a
	// payment that beat the deadline at the gateway win.
	session, err := s.sessions.GetLatestByBooking(ctx, booking.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	switch booking.Status {
	case domain.BookingStatusPendingPayment:
		s.startReconciler(booking.ID, session)
	case domain.BookingStatusExpired:
		s.poll(ctx, booking.ID, session)
	}
	return nil
}

// ResumeOpenSessions restarts reconcilers for every session that was
// still pending when the process last stopped.
func (s *PaymentService) ResumeOpenSessions(ctx context.Context) error {
	open, err := s.sessions.ListOpen(ctx)
	if err != nil {
		return err
	}
	for i := range open {
		s.startReconciler(open[i].BookingID, &open[i])
	}
	if len(open) > 0 {
		s.logger.Info("resumed payment reconcilers", zap.Int("count", len(open)))
	}
	return nil
}

// Shutdown cancels all reconciler tasks and waits for them to drain.
func (s *PaymentService) Shutdown() {
	s.cancel()
	s.wg.Wait()
}

func (s *PaymentService) startReconciler(bookingID int64, session *domain.PaymentSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, running := s.tasks[bookingID]; running {
		return
	}

	ctx, cancel := context.WithCancel(s.rootCtx)
	task := &reconcileTask{cancel: cancel, nudge: make(chan struct{}, 1)}
	s.tasks[bookingID] = task

	s.wg.Add(1)
	go s.reconcile(ctx, bookingID, session, task)
}

func (s *PaymentService) removeTask(bookingID int64) {
	s.mu.Lock()
	if task, ok := s.tasks[bookingID]; ok {
		task.cancel()
		delete(s.tasks, bookingID)
	}
	s.mu.Unlock()
}

// reconcile is the per-booking poll loop: a fixed-interval gateway read
// bounded by the session's expiry deadline, with a nudge channel for
// immediate polls. It exits as soon as the booking is terminal.
func (s *PaymentService) reconcile(ctx context.Context, bookingID int64, session *domain.PaymentSession, task *reconcileTask) {
	defer s.wg.Done()
	defer s.removeTask(bookingID)

	deadline := time.NewTimer(time.Until(session.ExpiresAt))
	defer deadline.Stop()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	// First poll right away: a payment completed before the session was
	// persisted should confirm without waiting an interval.
	if done := s.poll(ctx, bookingID, session); done {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			s.expire(ctx, bookingID, session)
			return
		case <-task.nudge:
			if s.poll(ctx, bookingID, session) {
				return
			}
		case <-ticker.C:
			if s.poll(ctx, bookingID, session) {
				return
			}
		}
	}
}

// poll reads the gateway once and commits a terminal transition if the
// gateway reports one. Returns true when the loop should stop.
func (s *PaymentService) poll(ctx context.Context, bookingID int64, session *domain.PaymentSession) bool {
	status, err := s.gateway.GetStatus(ctx, session.OrderID)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		// Transient: the client already retried with backoff; keep polling
		// until the deadline rather than failing the payment.
		s.logger.Warn("gateway status poll failed", zap.String("order_id", session.OrderID), zap.Error(err))
		return false
	}

	switch status {
	case gateway.StatusPaid:
		s.commit(ctx, bookingID, session, domain.EventPaymentReceived, kafka.EventBookingConfirmed)
		return true
	case gateway.StatusFailed:
		s.commit(ctx, bookingID, session, domain.EventPaymentFailed, kafka.EventBookingCancelled)
		return true
	case gateway.StatusExpired:
		s.commit(ctx, bookingID, session, domain.EventExpired, kafka.EventBookingExpired)
		return true
	default:
		return false
	}
}

// expire fires when the local deadline passes. One last status read gives
// a payment that raced the deadline its chance: PAID is authoritative and
// never silently discarded.
func (s *PaymentService) expire(ctx context.Context, bookingID int64, session *domain.PaymentSession) {
	if status, err := s.gateway.GetStatus(ctx, session.OrderID); err == nil && status == gateway.StatusPaid {
		s.commit(ctx, bookingID, session, domain.EventPaymentReceived, kafka.EventBookingConfirmed)
		return
	}
	s.commit(ctx, bookingID, session, domain.EventExpired, kafka.EventBookingExpired)
}

// commit runs the lifecycle guard on the current state, then makes the
// transition durable through the repository's compare-and-swap. Losing
// the swap means another path already committed a terminal state; that is
// a normal outcome, not an error.
func (s *PaymentService) commit(ctx context.Context, bookingID int64, session *domain.PaymentSession, event domain.Event, kafkaType string) {
	current, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		s.logger.Error("load booking for commit failed", zap.Int64("booking_id", bookingID), zap.Error(err))
		return
	}

	if !domain.CanTransition(current, event) {
		// Terminal already; the reconciler just stops.
		s.logger.Info("booking already terminal", zap.String("token", current.Token), zap.String("status", string(current.Status)))
		return
	}

	staged := *current
	if err := domain.Transition(&staged, event); err != nil {
		s.logger.Error("transition rejected", zap.String("token", current.Token), zap.Error(err))
		return
	}

	updated, committed, err := s.bookings.CommitTerminal(ctx, bookingID, staged.Status, staged.PaymentStatus)
	if err != nil {
		s.logger.Error("terminal commit failed", zap.String("token", current.Token), zap.Error(err))
		return
	}
	if !committed {
		s.logger.Info("terminal transition lost race", zap.String("token", current.Token), zap.String("won", string(updated.Status)))
		return
	}

	if err := s.sessions.UpdateStatus(ctx, session.OrderID, updated.PaymentStatus); err != nil {
		s.logger.Warn("session status update failed", zap.String("order_id", session.OrderID), zap.Error(err))
	}
	s.publish(ctx, kafkaType, updated)
	s.logger.Info("booking reconciled", zap.String("token", updated.Token), zap.String("status", string(updated.Status)))
}

func (s *PaymentService) publish(ctx context.Context, eventType string, b *domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.NewBookingEvent(eventType, b)
	if err := s.producer.PublishWithRetry(ctx, s.bookingTopic, b.Token, event, publishRetries); err != nil {
		s.logger.Warn("publish booking event failed", zap.String("type", eventType), zap.Error(err))
	}
	if s.notificationsTopic != "" {
		if err := s.producer.PublishWithRetry(ctx, s.notificationsTopic, b.Token, event, publishRetries); err != nil {
			s.logger.Warn("publish notification failed", zap.String("type", eventType), zap.Error(err))
		}
	}
}

var _ PaymentUseCase = (*PaymentService)(nil)
