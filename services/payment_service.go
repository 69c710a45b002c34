package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pos-payment-service/models"
	aws_pkg "pos-payment-service/pkg/aws"
	"pos-payment-service/providers"
	"pos-payment-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Intent kinds written to provider metadata.
const (
	intentKindBill = "bill"
	intentKindTip  = "tip"
)

// PaymentService is the checkout business logic behind the HTTP handlers.
type PaymentService interface {
	CalculateTotals(req *models.CalculateTotalRequest) (*models.TotalsBreakdown, *ServiceError)
	CreateIntent(ctx context.Context, req *models.CreatePaymentIntentRequest) (*models.CreateIntentResult, *ServiceError)
	CreateCustomer(ctx context.Context, req *models.CreateCustomerRequest) (*models.Customer, *ServiceError)
	AddTip(ctx context.Context, req *models.AddTipRequest) (*models.CreateIntentResult, *ServiceError)
	Refund(ctx context.Context, req *models.RefundRequest) (*models.RefundView, *ServiceError)
	GetPayment(ctx context.Context, intentID string) (*models.Intent, *ServiceError)
	GetSession(ctx context.Context, sessionID string) (*models.PaymentSession, *ServiceError)
	SyncSession(ctx context.Context, sessionID string) (*models.PaymentSession, *ServiceError)
	HandleWebhook(ctx context.Context, payload []byte, signature string) *ServiceError
	ApplyIntentEvent(ctx context.Context, ev *models.WebhookEvent) *ServiceError
}

// MetricsRecorder is satisfied by the CloudWatch metrics client.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, name string, dimensions map[string]string) error
	RecordLatency(ctx context.Context, name string, d time.Duration, dimensions map[string]string) error
}

// Settings are the tunables of the payment service.
type Settings struct {
	WebhookSecret   string
	EventTopic      string // SNS topic ARN or Kafka topic
	DefaultCurrency string
	DefaultTaxRate  float64
	GatewayTimeout  time.Duration
	LockTimeout     time.Duration
}

type paymentServiceImpl struct {
	repo      repository.SessionRepository
	gateway   providers.PaymentGateway
	locker    SessionLocker
	publisher aws_pkg.EventPublisher
	metrics   MetricsRecorder
	settings  Settings
	logger    *zap.Logger
	now       func() time.Time
}

// NewPaymentService wires the service. publisher and metrics may be nil.
func NewPaymentService(
	repo repository.SessionRepository,
	gateway providers.PaymentGateway,
	locker SessionLocker,
	publisher aws_pkg.EventPublisher,
	metrics MetricsRecorder,
	settings Settings,
	logger *zap.Logger,
) PaymentService {
	if settings.DefaultCurrency == "" {
		settings.DefaultCurrency = models.DefaultCurrency
	}
	if settings.GatewayTimeout <= 0 {
		settings.GatewayTimeout = 15 * time.Second
	}
	if settings.LockTimeout <= 0 {
		settings.LockTimeout = 2 * settings.GatewayTimeout
	}
	return &paymentServiceImpl{
		repo:      repo,
		gateway:   gateway,
		locker:    locker,
		publisher: publisher,
		metrics:   metrics,
		settings:  settings,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CalculateTotals prices a bill without touching any session.
func (s *paymentServiceImpl) CalculateTotals(req *models.CalculateTotalRequest) (*models.TotalsBreakdown, *ServiceError) {
	currency := s.currency(req.Currency)

	var subtotal int64
	switch {
	case req.Subtotal != nil:
		cents, err := models.MinorUnits(*req.Subtotal)
		if err != nil {
			return nil, classify(err, "")
		}
		subtotal = cents
	case len(req.Items) > 0:
		lines := make([]models.OrderLine, 0, len(req.Items))
		for _, it := range req.Items {
			price, err := models.MinorUnits(it.UnitPrice)
			if err != nil {
				return nil, classify(err, "")
			}
			lines = append(lines, models.OrderLine{
				Name:      it.Name,
				UnitPrice: models.Money{Amount: price, Currency: currency},
				Quantity:  it.Quantity,
			})
		}
		sum, err := Subtotal(lines, currency)
		if err != nil {
			return nil, classify(err, "")
		}
		subtotal = sum.Amount
	default:
		return nil, newError(KindInvalidRequest, "Subtotal or items are required", nil)
	}

	totals, se := s.computeTotals(subtotal, currency, req.TipPercentage, req.TipAmount, req.TaxRate)
	if se != nil {
		return nil, se
	}
	return &totals, nil
}

func (s *paymentServiceImpl) computeTotals(subtotalCents int64, currency string, tipPct, tipAmount, taxRate *float64) (models.TotalsBreakdown, *ServiceError) {
	rate := s.settings.DefaultTaxRate
	if taxRate != nil {
		rate = *taxRate
	}
	subtotal := models.Money{Amount: subtotalCents, Currency: currency}

	var (
		totals models.TotalsBreakdown
		err    error
	)
	switch {
	case tipAmount != nil:
		tip, convErr := models.MinorUnits(*tipAmount)
		if convErr != nil {
			return totals, classify(convErr, "")
		}
		totals, err = ComputeTotalsWithTip(subtotal, models.Money{Amount: tip, Currency: currency}, rate)
	case tipPct != nil:
		totals, err = ComputeTotals(subtotal, *tipPct, rate)
	default:
		totals, err = ComputeTotals(subtotal, 0, rate)
	}
	if err != nil {
		return totals, classify(err, "")
	}
	return totals, nil
}

// CreateIntent opens the primary intent of a session. The server total is
// authoritative; a client preview in Amount must match it to the cent.
func (s *paymentServiceImpl) CreateIntent(ctx context.Context, req *models.CreatePaymentIntentRequest) (*models.CreateIntentResult, *ServiceError) {
	totals, se := s.intentTotals(req)
	if se != nil {
		return nil, se
	}
	if totals.Total.Amount <= 0 {
		return nil, newError(KindInvalidAmount, "Amount must be greater than zero", nil)
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	meta := models.Metadata{
		SessionID:   sessionID,
		VenueID:     req.Metadata.VenueID,
		TableNumber: req.Metadata.TableNumber,
		Extra:       req.Metadata.Extra,
	}

	var result *models.CreateIntentResult
	se = s.withSessionLock(ctx, sessionID, func() *ServiceError {
		session, err := s.repo.FindBySessionID(ctx, sessionID)
		switch {
		case errors.Is(err, repository.ErrSessionNotFound):
			session = models.NewPaymentSession(sessionID, meta, totals, req.CustomerID)
			if err := s.repo.Create(ctx, session); err != nil {
				s.logger.Error("Failed to create payment session", zap.String("session_id", sessionID), zap.Error(err))
				return newError(KindInternal, "Failed to create payment session", err)
			}
		case err != nil:
			s.logger.Error("Failed to load payment session", zap.String("session_id", sessionID), zap.Error(err))
			return newError(KindInternal, "Failed to load payment session", err)
		default:
			if err := session.SetTotals(totals); err != nil {
				return classify(err, "")
			}
			if req.CustomerID != nil {
				session.CustomerID = req.CustomerID
			}
			if meta.VenueID != "" {
				session.VenueID = meta.VenueID
			}
			if meta.TableNumber != "" {
				session.TableNumber = meta.TableNumber
			}
		}

		intent, se := s.createGatewayIntent(ctx, models.CreateIntentParams{
			AmountCents:    totals.Total.Amount,
			Currency:       totals.Total.Currency,
			CustomerID:     session.CustomerID,
			Metadata:       withKind(meta, intentKindBill),
			IdempotencyKey: fmt.Sprintf("session:%s:intent:%d", sessionID, totals.Total.Amount),
		})
		if se != nil {
			return se
		}

		if err := session.MarkIntentCreated(intent.IntentID, intent.AmountCents); err != nil {
			return classify(err, "")
		}
		confirmed := session.ApplyIntentStatus(intent.Status, s.now())
		if err := s.repo.Update(ctx, session); err != nil {
			s.logger.Error("Failed to persist intent on session",
				zap.String("session_id", sessionID),
				zap.String("intent_id", intent.IntentID),
				zap.Error(err),
			)
			return newError(KindInternal, "Failed to save payment session", err)
		}

		s.logger.Info("Payment intent created",
			zap.String("session_id", sessionID),
			zap.String("intent_id", intent.IntentID),
			zap.Int64("amount", intent.AmountCents),
		)
		s.recordCount(aws_pkg.MetricIntentsCreated, session)
		s.publishEvent(ctx, models.NewPaymentEvent(models.EventIntentCreated, session, intent.IntentID, intent.AmountCents))
		if confirmed {
			s.afterIntentStatus(ctx, session, intent.IntentID)
		}

		result = &models.CreateIntentResult{
			Intent:  intentView(intent),
			Session: session,
			Totals:  session.Totals(),
		}
		return nil
	})
	if se != nil {
		return nil, se
	}
	return result, nil
}

// intentTotals derives the breakdown for create-payment-intent. With a
// subtotal the server computes everything; an amount alone is taken as the
// final total with no tax or tip.
func (s *paymentServiceImpl) intentTotals(req *models.CreatePaymentIntentRequest) (models.TotalsBreakdown, *ServiceError) {
	currency := s.currency(req.Currency)

	var preview *int64
	if req.Amount != nil {
		cents, err := models.MinorUnits(*req.Amount)
		if err != nil {
			return models.TotalsBreakdown{}, classify(err, "")
		}
		preview = &cents
	}

	if req.Subtotal == nil {
		if preview == nil {
			return models.TotalsBreakdown{}, newError(KindInvalidRequest, "Amount or subtotal is required", nil)
		}
		total := models.Money{Amount: *preview, Currency: currency}
		return models.TotalsBreakdown{
			Subtotal: total,
			Tax:      models.Money{Currency: currency},
			Tip:      models.Money{Currency: currency},
			Total:    total,
		}, nil
	}

	subtotal, err := models.MinorUnits(*req.Subtotal)
	if err != nil {
		return models.TotalsBreakdown{}, classify(err, "")
	}
	totals, se := s.computeTotals(subtotal, currency, req.TipPercentage, req.TipAmount, req.TaxRate)
	if se != nil {
		return totals, se
	}
	if preview != nil && *preview != totals.Total.Amount {
		s.logger.Warn("Client total does not match server total",
			zap.String("session_id", req.SessionID),
			zap.Int64("client_total", *preview),
			zap.Int64("server_total", totals.Total.Amount),
		)
		return totals, newError(KindInvalidAmount, "Amount does not match the calculated total",
			fmt.Errorf("client %d, server %d", *preview, totals.Total.Amount))
	}
	return totals, nil
}

func (s *paymentServiceImpl) CreateCustomer(ctx context.Context, req *models.CreateCustomerRequest) (*models.Customer, *ServiceError) {
	gctx, cancel := context.WithTimeout(ctx, s.settings.GatewayTimeout)
	defer cancel()

	customer, err := s.gateway.FindOrCreateCustomer(gctx, models.CustomerParams{
		Email: req.Email,
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		s.logger.Error("FindOrCreateCustomer failed", zap.Error(err))
		return nil, classify(err, "Failed to create customer")
	}
	s.logger.Info("Customer resolved", zap.String("customer_id", customer.CustomerID), zap.Bool("created", customer.Created))
	return customer, nil
}

// AddTip charges a tip on a confirmed session through a separate intent.
func (s *paymentServiceImpl) AddTip(ctx context.Context, req *models.AddTipRequest) (*models.CreateIntentResult, *ServiceError) {
	tipCents, err := models.MinorUnits(req.TipAmount)
	if err != nil {
		return nil, classify(err, "")
	}
	if tipCents <= 0 {
		return nil, newError(KindInvalidAmount, "Tip amount must be greater than zero", nil)
	}

	var result *models.CreateIntentResult
	se := s.withIntentSession(ctx, req.PaymentIntentID, func(session *models.PaymentSession) *ServiceError {
		if err := session.BeginTip(tipCents); err != nil {
			return classify(err, "")
		}

		intent, se := s.createGatewayIntent(ctx, models.CreateIntentParams{
			AmountCents:    tipCents,
			Currency:       session.Currency,
			CustomerID:     session.CustomerID,
			Metadata:       withKind(session.Metadata(), intentKindTip),
			IdempotencyKey: fmt.Sprintf("session:%s:tip:%d:%d", session.SessionID, session.TipCount+1, tipCents),
		})
		if se != nil {
			session.AbortTip()
			return se
		}

		if err := session.CompleteTip(intent.IntentID, tipCents); err != nil {
			return classify(err, "")
		}
		if err := s.repo.Update(ctx, session); err != nil {
			s.logger.Error("Failed to persist tip",
				zap.String("session_id", session.SessionID),
				zap.String("tip_intent_id", intent.IntentID),
				zap.Error(err),
			)
			return newError(KindInternal, "Failed to save tip", err)
		}

		s.logger.Info("Tip added",
			zap.String("session_id", session.SessionID),
			zap.String("tip_intent_id", intent.IntentID),
			zap.Int64("amount", tipCents),
		)
		s.recordCount(aws_pkg.MetricTipAdded, session)
		s.publishEvent(ctx, models.NewPaymentEvent(models.EventTipAdded, session, intent.IntentID, tipCents))

		result = &models.CreateIntentResult{
			Intent:  intentView(intent),
			Session: session,
			Totals:  session.Totals(),
		}
		return nil
	})
	if se != nil {
		return nil, se
	}
	return result, nil
}

// Refund returns all or part of the primary charge. Without an amount the
// whole refundable balance is returned.
func (s *paymentServiceImpl) Refund(ctx context.Context, req *models.RefundRequest) (*models.RefundView, *ServiceError) {
	reason := req.Reason
	if reason == "" {
		reason = models.RefundReasonRequestedByCustomer
	}
	if !models.IsValidRefundReason(reason) {
		return nil, newError(KindInvalidRequest, "Invalid refund reason", nil)
	}

	var requested *int64
	if req.Amount != nil {
		cents, err := models.MinorUnits(*req.Amount)
		if err != nil {
			return nil, classify(err, "")
		}
		requested = &cents
	}

	var view *models.RefundView
	se := s.withIntentSession(ctx, req.PaymentIntentID, func(session *models.PaymentSession) *ServiceError {
		amount := session.RefundableCents()
		if requested != nil {
			amount = *requested
		}
		if err := session.ValidateRefund(amount); err != nil {
			return classify(err, "")
		}

		gctx, cancel := context.WithTimeout(ctx, s.settings.GatewayTimeout)
		defer cancel()
		start := time.Now()
		refund, err := s.gateway.CreateRefund(gctx, models.CreateRefundParams{
			IntentID:       *session.IntentID,
			AmountCents:    &amount,
			Reason:         reason,
			Metadata:       session.Metadata(),
			IdempotencyKey: fmt.Sprintf("session:%s:refund:%d:%d", session.SessionID, len(session.Refunds)+1, amount),
		})
		s.recordLatency(aws_pkg.MetricGatewayLatency, time.Since(start), "CreateRefund")
		if err != nil {
			s.logger.Error("CreateRefund failed", zap.String("session_id", session.SessionID), zap.Error(err))
			s.recordCount(aws_pkg.MetricGatewayErrors, session)
			return classify(err, "Failed to process refund")
		}

		record := models.SessionRefund{
			RefundID:    refund.RefundID,
			AmountCents: refund.AmountCents,
			Reason:      reason,
			Status:      refund.Status,
		}
		if err := session.RecordRefund(record); err != nil {
			s.logger.Error("Provider refund does not fit session",
				zap.String("session_id", session.SessionID),
				zap.String("refund_id", refund.RefundID),
				zap.Error(err),
			)
			return newError(KindInternal, "Failed to record refund", err)
		}
		if err := s.repo.AppendRefund(ctx, session, &record); err != nil {
			s.logger.Error("Failed to persist refund",
				zap.String("session_id", session.SessionID),
				zap.String("refund_id", refund.RefundID),
				zap.Error(err),
			)
			return newError(KindInternal, "Failed to save refund", err)
		}

		eventType := models.EventPartiallyRefunded
		if session.Status == models.SessionStatusRefunded {
			eventType = models.EventRefunded
		}
		s.logger.Info("Refund issued",
			zap.String("session_id", session.SessionID),
			zap.String("refund_id", refund.RefundID),
			zap.Int64("amount", refund.AmountCents),
			zap.String("status", string(session.Status)),
		)
		s.recordCount(aws_pkg.MetricPaymentRefunded, session)
		s.publishEvent(ctx, models.NewPaymentEvent(eventType, session, *session.IntentID, refund.AmountCents))

		view = &models.RefundView{
			RefundID: refund.RefundID,
			Amount:   models.MajorUnits(refund.AmountCents),
			Status:   refund.Status,
			Reason:   reason,
		}
		return nil
	})
	if se != nil {
		return nil, se
	}
	return view, nil
}

func (s *paymentServiceImpl) GetPayment(ctx context.Context, intentID string) (*models.Intent, *ServiceError) {
	if intentID == "" {
		return nil, newError(KindInvalidRequest, "Payment intent ID is required", nil)
	}
	gctx, cancel := context.WithTimeout(ctx, s.settings.GatewayTimeout)
	defer cancel()

	intent, err := s.gateway.RetrieveIntent(gctx, intentID)
	if err != nil {
		s.logger.Warn("RetrieveIntent failed", zap.String("intent_id", intentID), zap.Error(err))
		return nil, classify(err, "Failed to retrieve payment")
	}
	return intent, nil
}

func (s *paymentServiceImpl) GetSession(ctx context.Context, sessionID string) (*models.PaymentSession, *ServiceError) {
	session, err := s.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, repository.ErrSessionNotFound) {
			s.logger.Error("Failed to load payment session", zap.String("session_id", sessionID), zap.Error(err))
		}
		return nil, classify(err, "Failed to load payment session")
	}
	return session, nil
}

// SyncSession is the poll path: it asks the provider for the primary intent
// and applies its status exactly as a webhook would.
func (s *paymentServiceImpl) SyncSession(ctx context.Context, sessionID string) (*models.PaymentSession, *ServiceError) {
	var out *models.PaymentSession
	se := s.withSessionLock(ctx, sessionID, func() *ServiceError {
		session, err := s.repo.FindBySessionID(ctx, sessionID)
		if err != nil {
			return classify(err, "Failed to load payment session")
		}
		out = session
		if session.IntentID == nil || session.Status.IsTerminal() {
			return nil
		}

		gctx, cancel := context.WithTimeout(ctx, s.settings.GatewayTimeout)
		defer cancel()
		intent, err := s.gateway.RetrieveIntent(gctx, *session.IntentID)
		if err != nil {
			s.logger.Warn("RetrieveIntent failed during sync", zap.String("session_id", sessionID), zap.Error(err))
			return classify(err, "Failed to refresh payment status")
		}
		return s.applyStatus(ctx, session, intent.IntentID, intent.Status)
	})
	if se != nil {
		return nil, se
	}
	return out, nil
}

// HandleWebhook verifies a provider callback and applies it. The payload is
// never logged.
func (s *paymentServiceImpl) HandleWebhook(ctx context.Context, payload []byte, signature string) *ServiceError {
	ev, err := s.gateway.VerifyWebhookSignature(payload, signature, s.settings.WebhookSecret)
	if err != nil {
		s.logger.Warn("Webhook rejected", zap.Int("payload_bytes", len(payload)), zap.Error(err))
		return classify(err, "Failed to process webhook")
	}
	return s.ApplyIntentEvent(ctx, ev)
}

// ApplyIntentEvent folds a provider intent event into its session. Unknown
// intents and non-intent events are acknowledged and ignored so the provider
// stops redelivering them.
func (s *paymentServiceImpl) ApplyIntentEvent(ctx context.Context, ev *models.WebhookEvent) *ServiceError {
	if ev == nil || !ev.IsIntentEvent() {
		return nil
	}
	if ev.Metadata[models.MetadataKind] == intentKindTip {
		s.logger.Debug("Ignoring tip intent event", zap.String("event_id", ev.EventID), zap.String("intent_id", ev.IntentID))
		return nil
	}

	se := s.withIntentSession(ctx, ev.IntentID, func(session *models.PaymentSession) *ServiceError {
		return s.applyStatus(ctx, session, ev.IntentID, ev.IntentStatus)
	})
	if se != nil && se.Kind == KindNotFound {
		s.logger.Info("Event for unknown intent ignored",
			zap.String("event_id", ev.EventID),
			zap.String("type", ev.Type),
			zap.String("intent_id", ev.IntentID),
		)
		return nil
	}
	return se
}

// applyStatus must run under the session lock.
func (s *paymentServiceImpl) applyStatus(ctx context.Context, session *models.PaymentSession, intentID string, status models.IntentStatus) *ServiceError {
	if !session.ApplyIntentStatus(status, s.now()) {
		s.logger.Debug("Intent status left session unchanged",
			zap.String("session_id", session.SessionID),
			zap.String("intent_status", string(status)),
			zap.String("session_status", string(session.Status)),
		)
		return nil
	}
	if err := s.repo.Update(ctx, session); err != nil {
		s.logger.Error("Failed to persist intent status",
			zap.String("session_id", session.SessionID),
			zap.String("intent_id", intentID),
			zap.Error(err),
		)
		return newError(KindInternal, "Failed to update payment session", err)
	}
	s.afterIntentStatus(ctx, session, intentID)
	return nil
}

func (s *paymentServiceImpl) afterIntentStatus(ctx context.Context, session *models.PaymentSession, intentID string) {
	switch session.Status {
	case models.SessionStatusConfirmed:
		s.logger.Info("Payment confirmed", zap.String("session_id", session.SessionID), zap.String("intent_id", intentID))
		s.recordCount(aws_pkg.MetricPaymentSucceeded, session)
		s.publishEvent(ctx, models.NewPaymentEvent(models.EventPaymentSucceeded, session, intentID, session.ChargedCents))
	case models.SessionStatusFailed:
		s.logger.Warn("Payment failed", zap.String("session_id", session.SessionID), zap.String("intent_id", intentID))
		s.recordCount(aws_pkg.MetricPaymentFailed, session)
		s.publishEvent(ctx, models.NewPaymentEvent(models.EventPaymentFailed, session, intentID, session.ChargedCents))
	}
}

func (s *paymentServiceImpl) createGatewayIntent(ctx context.Context, params models.CreateIntentParams) (*models.Intent, *ServiceError) {
	gctx, cancel := context.WithTimeout(ctx, s.settings.GatewayTimeout)
	defer cancel()

	start := time.Now()
	intent, err := s.gateway.CreateIntent(gctx, params)
	s.recordLatency(aws_pkg.MetricGatewayLatency, time.Since(start), "CreateIntent")
	if err != nil {
		s.logger.Error("CreateIntent failed",
			zap.String("session_id", params.Metadata.SessionID),
			zap.Int64("amount", params.AmountCents),
			zap.Error(err),
		)
		go s.record(aws_pkg.MetricGatewayErrors, map[string]string{"Operation": "CreateIntent"})
		return nil, classify(err, "Failed to create payment")
	}
	return intent, nil
}

// withSessionLock runs fn while holding the session's lock.
func (s *paymentServiceImpl) withSessionLock(ctx context.Context, sessionID string, fn func() *ServiceError) *ServiceError {
	lockCtx, cancel := context.WithTimeout(ctx, s.settings.LockTimeout)
	defer cancel()

	unlock, err := s.locker.Lock(lockCtx, sessionID)
	if err != nil {
		s.logger.Warn("Could not lock payment session", zap.String("session_id", sessionID), zap.Error(err))
		return newError(KindBusy, "Payment session is busy, please retry", err)
	}
	defer unlock()
	return fn()
}

// withIntentSession resolves the session owning a primary intent, locks it and
// hands fn a copy loaded after the lock was taken.
func (s *paymentServiceImpl) withIntentSession(ctx context.Context, intentID string, fn func(*models.PaymentSession) *ServiceError) *ServiceError {
	if intentID == "" {
		return newError(KindInvalidRequest, "Payment intent ID is required", nil)
	}
	found, err := s.repo.FindByIntentID(ctx, intentID)
	if err != nil {
		return classify(err, "Failed to load payment session")
	}

	return s.withSessionLock(ctx, found.SessionID, func() *ServiceError {
		session, err := s.repo.FindBySessionID(ctx, found.SessionID)
		if err != nil {
			return classify(err, "Failed to load payment session")
		}
		return fn(session)
	})
}

func (s *paymentServiceImpl) publishEvent(ctx context.Context, ev models.PaymentEvent) {
	if s.publisher == nil || s.settings.EventTopic == "" {
		return
	}
	body, err := json.Marshal(ev)
	if err != nil {
		s.logger.Warn("Failed to marshal payment event", zap.Error(err))
		return
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.publisher.Publish(pctx, s.settings.EventTopic, body); err != nil {
		s.logger.Warn("Failed to publish payment event",
			zap.String("type", ev.Type),
			zap.String("session_id", ev.SessionID),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("Published payment event", zap.String("type", ev.Type), zap.String("session_id", ev.SessionID))
}

func (s *paymentServiceImpl) recordCount(name string, session *models.PaymentSession) {
	dims := map[string]string{"Currency": session.Currency}
	if session.VenueID != "" {
		dims["Venue"] = session.VenueID
	}
	go s.record(name, dims)
}

func (s *paymentServiceImpl) record(name string, dims map[string]string) {
	if s.metrics == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.metrics.RecordCount(ctx, name, dims)
}

func (s *paymentServiceImpl) recordLatency(name string, d time.Duration, op string) {
	if s.metrics == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.metrics.RecordLatency(ctx, name, d, map[string]string{"Operation": op})
	}()
}

func (s *paymentServiceImpl) currency(c string) string {
	if c == "" {
		return s.settings.DefaultCurrency
	}
	return models.NormalizeCurrency(c)
}

func withKind(meta models.Metadata, kind string) models.Metadata {
	extra := make(map[string]string, len(meta.Extra)+1)
	for k, v := range meta.Extra {
		extra[k] = v
	}
	extra[models.MetadataKind] = kind
	meta.Extra = extra
	return meta
}

func intentView(in *models.Intent) models.IntentView {
	return models.IntentView{
		ClientSecret:    in.ClientSecret,
		PaymentIntentID: in.IntentID,
		Amount:          models.MajorUnits(in.AmountCents),
		Status:          string(in.Status),
	}
}
