package checkout

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"freshcart-api/models"
	"freshcart-api/services/coupon"
	"freshcart-api/services/pincode"
	"freshcart-api/services/pricing"
	"freshcart-api/services/session"
)

type SettingsStore interface {
	GetDeliveryCharge(ctx context.Context) (decimal.Decimal, error)
}

type OrderStore interface {
	LockCheckout(ctx context.Context, checkoutID string) (bool, error)
	ReleaseLock(ctx context.Context, checkoutID string) error
	GetOrderByCheckoutID(ctx context.Context, checkoutID string) (*models.Order, error)
	PlaceOrder(ctx context.Context, payload *models.OrderPayload) (*models.Order, error)
}

type UsageRecorder interface {
	RecordUsage(ctx context.Context, couponID, orderID string) error
}

type ProfileStore interface {
	UpdateDefaultAddress(ctx context.Context, customerID string, address models.Address) error
}

type Notifier interface {
	SendOrderNotification(ctx context.Context, order *models.Order) error
}

type Deps struct {
	Settings  SettingsStore
	Orders    OrderStore
	Validator *coupon.Validator
	Applier   *coupon.Applier
	Recorder  UsageRecorder
	Gate      *pincode.Gate
	Requester *pincode.Requester
	Profiles  ProfileStore
	Notifier  Notifier
	Logger    *zap.Logger
}

// Service composes pricing, coupons and the pin-code gate on top of a session.
type Service struct {
	settings  SettingsStore
	orders    OrderStore
	validator *coupon.Validator
	applier   *coupon.Applier
	recorder  UsageRecorder
	gate      *pincode.Gate
	requester *pincode.Requester
	profiles  ProfileStore
	notifier  Notifier
	logger    *zap.Logger
}

func NewService(d Deps) *Service {
	return &Service{
		settings:  d.Settings,
		orders:    d.Orders,
		validator: d.Validator,
		applier:   d.Applier,
		recorder:  d.Recorder,
		gate:      d.Gate,
		requester: d.Requester,
		profiles:  d.Profiles,
		notifier:  d.Notifier,
		logger:    d.Logger,
	}
}

// Watch cancels in-flight coupon validations whenever a session's cart
// changes under them.
func (s *Service) Watch(m *session.Manager) (unsubscribe func()) {
	return m.Subscribe(func(ev session.Event) {
		if ev.Kind == session.EventCartChanged {
			s.applier.Cancel(ev.SessionID)
		}
	})
}

func (s *Service) deliveryCharge(ctx context.Context) decimal.Decimal {
	charge, err := s.settings.GetDeliveryCharge(ctx)
	if err != nil {
		s.logger.Warn("delivery charge unavailable, using zero", zap.Error(err))
		return decimal.Zero
	}
	if charge.IsNegative() {
		return decimal.Zero
	}
	return charge
}

// Quote prices the session without changing it. The discount is recomputed
// from the coupon snapshot against the current subtotal; a coupon that no
// longer qualifies contributes no discount and the reason is reported in
// CouponNotice. The stored coupon stays until it is replaced or removed, or
// until PlaceOrder drops it.
func (s *Service) Quote(ctx context.Context, sess *session.Session) (*models.Quote, error) {
	snap := sess.Snapshot()
	totals := pricing.Aggregate(snap.Lines)
	charge := s.deliveryCharge(ctx)

	quote := &models.Quote{
		Lines:          snap.Lines,
		Subtotal:       totals.Subtotal,
		TotalWeightKg:  totals.TotalWeightKg,
		TotalPieces:    totals.TotalPieces,
		DeliveryCharge: charge,
		Discount:       decimal.Zero,
		PinCode:        snap.PinCode,
	}
	if quote.Lines == nil {
		quote.Lines = []models.CartLine{}
	}

	if snap.Coupon != nil {
		applied, err := s.validator.Revalidate(snap.Coupon.Coupon, totals.Subtotal)
		if err != nil {
			quote.CouponNotice = noticeFor(snap.Coupon.Coupon.Code, err)
		} else {
			quote.Coupon = &applied
			quote.Discount = applied.DiscountAmount
		}
	}

	quote.GrandTotal = pricing.ComputeGrandTotal(quote.Subtotal, quote.DeliveryCharge, quote.Discount)
	return quote, nil
}

// ApplyCoupon validates code against the current subtotal and stores the
// result on the session. A validation overtaken by a newer one or by a cart
// change returns a conflict.
func (s *Service) ApplyCoupon(ctx context.Context, sess *session.Session, code string) (*models.AppliedCoupon, error) {
	subtotal := sess.Totals().Subtotal

	applied, err := s.applier.Apply(ctx, sess.ID(), code, subtotal)
	if errors.Is(err, coupon.ErrSuperseded) {
		return nil, models.NewConflictError("Your cart changed while applying the coupon, please try again", err)
	}
	if err != nil {
		return nil, err
	}

	if err := sess.SetCoupon(ctx, applied); err != nil {
		return nil, err
	}
	s.logger.Info("coupon applied",
		zap.String("session_id", sess.ID()),
		zap.String("code", applied.Coupon.Code),
		zap.String("discount", applied.DiscountAmount.StringFixed(2)))
	return &applied, nil
}

func (s *Service) RemoveCoupon(ctx context.Context, sess *session.Session) error {
	s.applier.Cancel(sess.ID())
	return sess.ClearCoupon(ctx)
}

// CheckPinCode runs the gate and records the outcome on the session. A failed
// lookup leaves the session's previous status in place.
func (s *Service) CheckPinCode(ctx context.Context, sess *session.Session, raw string) (models.PinCodeStatus, error) {
	status, err := s.gate.Check(ctx, raw)
	if err != nil {
		return status, err
	}
	if err := sess.SetPinStatus(ctx, status); err != nil {
		return status, err
	}
	return status, nil
}

func (s *Service) RequestDelivery(ctx context.Context, sess *session.Session, in models.CreateDeliveryRequest) (*models.DeliveryRequest, error) {
	return s.requester.RequestDelivery(ctx, sess.Snapshot().PinCode, in)
}

// NewCheckoutID issues the idempotency key a client sends with PlaceOrder.
func NewCheckoutID() string {
	return uuid.New().String()
}

// PlaceOrder writes the order and then runs the post-order side effects in
// sequence: coupon usage, profile update, notification, cart clearing. Only
// the order write can fail the call; when it does nothing else has happened
// and the request can be resubmitted. Resubmitting a checkout ID that already
// produced an order returns that order to the session or customer that placed
// it; anyone else gets a conflict.
func (s *Service) PlaceOrder(ctx context.Context, sess *session.Session, req models.PlaceOrderRequest) (*models.Order, error) {
	address := normalizeAddress(req.Address)
	if err := validateAddress(address); err != nil {
		return nil, err
	}
	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if method == "" {
		method = models.PaymentMethodCOD
	}
	if method != models.PaymentMethodCOD {
		return nil, models.NewValidationError("Only cash on delivery is available", nil)
	}

	checkoutID := strings.TrimSpace(req.CheckoutID)
	if checkoutID == "" {
		checkoutID = NewCheckoutID()
	}

	existing, err := s.orders.GetOrderByCheckoutID(ctx, checkoutID)
	if err == nil {
		return s.resubmitted(sess, existing)
	}
	if !errors.Is(err, models.ErrRecordNotFound) {
		s.logger.Error("checkout lookup failed", zap.String("checkout_id", checkoutID), zap.Error(err))
		return nil, models.NewExternalError(err)
	}

	locked, err := s.orders.LockCheckout(ctx, checkoutID)
	if err != nil {
		return nil, models.NewExternalError(err)
	}
	if !locked {
		return nil, models.NewConflictError("This order is already being placed", nil)
	}
	defer func() {
		if err := s.orders.ReleaseLock(context.Background(), checkoutID); err != nil {
			s.logger.Warn("failed to release checkout lock", zap.String("checkout_id", checkoutID), zap.Error(err))
		}
	}()

	snap := sess.Snapshot()
	if len(snap.Lines) == 0 {
		return nil, models.NewValidationError("Your cart is empty", nil)
	}

	pin := snap.PinCode
	if pin.PinCode != address.PinCode || !pin.CanSubmit() {
		if pin, err = s.CheckPinCode(ctx, sess, address.PinCode); err != nil {
			return nil, err
		}
	}
	if !pin.CanSubmit() {
		msg := pin.Message
		if msg == "" {
			msg = "Please enter a serviceable pin code"
		}
		return nil, models.NewValidationError(msg, nil)
	}

	totals := pricing.Aggregate(snap.Lines)

	var (
		charge  decimal.Decimal
		applied *models.AppliedCoupon
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		charge = s.deliveryCharge(gctx)
		return nil
	})
	if snap.Coupon != nil {
		code := snap.Coupon.Coupon.Code
		g.Go(func() error {
			fresh, err := s.validator.Validate(gctx, code, totals.Subtotal)
			if err != nil {
				return err
			}
			applied = &fresh
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if appErr, ok := models.AsAppError(err); ok && appErr.Kind != models.KindExternal {
			if clearErr := sess.ClearCoupon(ctx); clearErr != nil {
				s.logger.Warn("failed to drop ineligible coupon", zap.Error(clearErr))
			}
			return nil, models.NewValidationError(noticeFor(snap.Coupon.Coupon.Code, err)+". Please review your total.", err)
		}
		return nil, err
	}

	discount := decimal.Zero
	if applied != nil {
		discount = applied.DiscountAmount
	}

	payload := &models.OrderPayload{
		CheckoutID:     checkoutID,
		SessionID:      sess.ID(),
		CustomerID:     snap.CustomerID,
		Lines:          snap.Lines,
		Subtotal:       totals.Subtotal,
		TotalWeightKg:  totals.TotalWeightKg,
		TotalPieces:    totals.TotalPieces,
		DeliveryCharge: charge,
		Discount:       discount,
		GrandTotal:     pricing.ComputeGrandTotal(totals.Subtotal, charge, discount),
		Coupon:         applied,
		Address:        address,
		PaymentMethod:  method,
		Notes:          strings.TrimSpace(req.Notes),
	}

	order, err := s.orders.PlaceOrder(ctx, payload)
	if errors.Is(err, models.ErrDuplicateCheckout) {
		existing, lookupErr := s.orders.GetOrderByCheckoutID(ctx, checkoutID)
		if lookupErr != nil {
			return nil, models.NewExternalError(lookupErr)
		}
		return s.resubmitted(sess, existing)
	}
	if err != nil {
		s.logger.Error("failed to place order", zap.String("checkout_id", checkoutID), zap.Error(err))
		return nil, models.NewExternalError(err)
	}

	s.logger.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("checkout_id", checkoutID),
		zap.String("grand_total", order.GrandTotal.StringFixed(2)))

	s.afterPlacement(ctx, sess, order)
	return order, nil
}

// resubmitted answers a checkout ID that already has an order. Only the
// session that placed it, or the customer it was placed for, gets it back.
func (s *Service) resubmitted(sess *session.Session, existing *models.Order) (*models.Order, error) {
	if existing.SessionID != "" && existing.SessionID == sess.ID() {
		return existing, nil
	}
	if customerID := sess.Snapshot().CustomerID; customerID != "" && customerID == existing.CustomerID {
		return existing, nil
	}
	s.logger.Warn("checkout id reused by another session",
		zap.String("checkout_id", existing.CheckoutID),
		zap.String("session_id", sess.ID()))
	return nil, models.NewConflictError("This checkout has already been used, please start a new checkout", nil)
}

// afterPlacement never fails: the order is authoritative once written.
func (s *Service) afterPlacement(ctx context.Context, sess *session.Session, order *models.Order) {
	if order.Coupon != nil {
		if err := s.recorder.RecordUsage(ctx, order.Coupon.Coupon.ID, order.ID); err != nil {
			s.logger.Error("failed to record coupon usage",
				zap.String("order_id", order.ID),
				zap.String("coupon_id", order.Coupon.Coupon.ID),
				zap.Error(err))
		}
	}

	if order.CustomerID != "" && s.profiles != nil {
		if err := s.profiles.UpdateDefaultAddress(ctx, order.CustomerID, order.Address); err != nil {
			s.logger.Warn("failed to update customer profile", zap.String("order_id", order.ID), zap.Error(err))
		}
	}

	if s.notifier != nil {
		if err := s.notifier.SendOrderNotification(ctx, order); err != nil {
			s.logger.Warn("failed to queue order notification", zap.String("order_id", order.ID), zap.Error(err))
		}
	}

	if err := sess.Clear(ctx); err != nil {
		s.logger.Warn("failed to clear cart after order", zap.String("order_id", order.ID), zap.Error(err))
	}
}

func noticeFor(code string, err error) string {
	if appErr, ok := models.AsAppError(err); ok {
		return "Coupon " + code + " no longer applies: " + appErr.Message
	}
	return "Coupon " + code + " no longer applies: " + err.Error()
}
