package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"freshcart-api/models"
	"freshcart-api/services/pricing"
)

var ErrLineNotFound = errors.New("cart line not found")

// State is everything a checkout session owns. It is what gets persisted.
type State struct {
	Lines      []models.CartLine     `json:"lines"`
	Coupon     *models.AppliedCoupon `json:"coupon,omitempty"`
	PinCode    models.PinCodeStatus  `json:"pin_code"`
	CustomerID string                `json:"customer_id,omitempty"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

func (s State) clone() State {
	out := s
	out.Lines = append([]models.CartLine(nil), s.Lines...)
	if s.Coupon != nil {
		c := *s.Coupon
		out.Coupon = &c
	}
	return out
}

func (s *State) lineIndex(id string) int {
	for i := range s.Lines {
		if s.Lines[i].ID == id {
			return i
		}
	}
	return -1
}

// Session serializes all mutations of one checkout session and persists the
// new state before it becomes visible. A failed save leaves the state as it was.
type Session struct {
	id       string
	store    Store
	publish  func(Event)
	lastUsed time.Time

	mu    sync.Mutex
	state State
}

func newSession(id string, state State, store Store, publish func(Event)) *Session {
	return &Session{id: id, state: state, store: store, publish: publish, lastUsed: time.Now()}
}

func (s *Session) ID() string {
	return s.id
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *Session) Totals() pricing.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pricing.Aggregate(s.state.Lines)
}

func (s *Session) mutate(ctx context.Context, kind EventKind, fn func(*State) error) error {
	s.mu.Lock()
	next := s.state.clone()
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	next.UpdatedAt = time.Now().UTC()
	if err := s.store.Save(ctx, s.id, next); err != nil {
		s.mu.Unlock()
		return models.NewExternalError(err)
	}
	s.state = next
	s.lastUsed = time.Now()
	s.mu.Unlock()

	if s.publish != nil {
		s.publish(Event{SessionID: s.id, Kind: kind})
	}
	return nil
}

// AddProduct adds quantity of a product, merging into an existing line. A nil
// quantity adds the unit minimum.
func (s *Session) AddProduct(ctx context.Context, p models.Product, quantity *decimal.Decimal) error {
	qty, err := pricing.MinQuantity(p.UnitKind)
	if err != nil {
		return models.NewValidationError("Product has an unknown unit", err)
	}
	if quantity != nil {
		if qty, err = pricing.NormalizeQuantity(*quantity, p.UnitKind); err != nil {
			return models.NewValidationError("Invalid quantity", err)
		}
	}

	return s.mutate(ctx, EventCartChanged, func(st *State) error {
		if i := st.lineIndex(p.ID); i >= 0 {
			st.Lines[i].Quantity = st.Lines[i].Quantity.Add(qty)
			st.Lines[i].UnitPrice = p.Price
			st.Lines[i].StrikePrice = p.StrikePrice
			return nil
		}
		st.Lines = append(st.Lines, models.CartLine{
			ID:          p.ID,
			Name:        p.Name,
			Image:       p.Image,
			UnitKind:    p.UnitKind,
			Quantity:    qty,
			UnitPrice:   p.Price,
			StrikePrice: p.StrikePrice,
		})
		return nil
	})
}

func (s *Session) Increment(ctx context.Context, lineID string) error {
	return s.mutate(ctx, EventCartChanged, func(st *State) error {
		i := st.lineIndex(lineID)
		if i < 0 {
			return lineNotFound()
		}
		next, err := pricing.ClampIncrement(st.Lines[i].Quantity, st.Lines[i].UnitKind)
		if err != nil {
			return models.NewValidationError("Invalid quantity", err)
		}
		st.Lines[i].Quantity = next
		return nil
	})
}

// Decrement steps a line down and removes it at the floor. It reports whether
// the line was removed.
func (s *Session) Decrement(ctx context.Context, lineID string) (bool, error) {
	removed := false
	err := s.mutate(ctx, EventCartChanged, func(st *State) error {
		i := st.lineIndex(lineID)
		if i < 0 {
			return lineNotFound()
		}
		next, err := pricing.ClampDecrement(st.Lines[i].Quantity, st.Lines[i].UnitKind)
		if errors.Is(err, pricing.ErrRemoveLine) {
			st.Lines = append(st.Lines[:i], st.Lines[i+1:]...)
			removed = true
			return nil
		}
		if err != nil {
			return models.NewValidationError("Invalid quantity", err)
		}
		st.Lines[i].Quantity = next
		return nil
	})
	return removed, err
}

// SetQuantity sets a line directly. Piece lines take whole counts; weight lines
// must land on the weight step.
func (s *Session) SetQuantity(ctx context.Context, lineID string, quantity decimal.Decimal) error {
	return s.mutate(ctx, EventCartChanged, func(st *State) error {
		i := st.lineIndex(lineID)
		if i < 0 {
			return lineNotFound()
		}
		var (
			next decimal.Decimal
			err  error
		)
		if st.Lines[i].UnitKind == models.UnitPiece {
			if !quantity.Equal(quantity.Truncate(0)) {
				return models.NewValidationError("Pieces must be a whole number", pricing.ErrInvalidQuantity)
			}
			next, err = pricing.SetPieces(quantity.IntPart())
		} else {
			next, err = pricing.NormalizeQuantity(quantity, st.Lines[i].UnitKind)
		}
		if err != nil {
			return models.NewValidationError("Invalid quantity", err)
		}
		st.Lines[i].Quantity = next
		return nil
	})
}

func (s *Session) RemoveLine(ctx context.Context, lineID string) error {
	return s.mutate(ctx, EventCartChanged, func(st *State) error {
		i := st.lineIndex(lineID)
		if i < 0 {
			return lineNotFound()
		}
		st.Lines = append(st.Lines[:i], st.Lines[i+1:]...)
		return nil
	})
}

// Clear empties the cart and drops any applied coupon.
func (s *Session) Clear(ctx context.Context) error {
	return s.mutate(ctx, EventCartChanged, func(st *State) error {
		st.Lines = nil
		st.Coupon = nil
		return nil
	})
}

func (s *Session) SetCoupon(ctx context.Context, applied models.AppliedCoupon) error {
	return s.mutate(ctx, EventCouponChanged, func(st *State) error {
		st.Coupon = &applied
		return nil
	})
}

// ClearCoupon removes the applied coupon. No coupon store is involved.
func (s *Session) ClearCoupon(ctx context.Context) error {
	return s.mutate(ctx, EventCouponChanged, func(st *State) error {
		st.Coupon = nil
		return nil
	})
}

func (s *Session) SetPinStatus(ctx context.Context, status models.PinCodeStatus) error {
	return s.mutate(ctx, EventPinCodeChanged, func(st *State) error {
		st.PinCode = status
		return nil
	})
}

// BindCustomer attaches the authenticated customer. Binding the same customer
// again is a no-op.
func (s *Session) BindCustomer(ctx context.Context, customerID string) error {
	s.mu.Lock()
	same := s.state.CustomerID == customerID
	s.mu.Unlock()
	if same {
		return nil
	}
	return s.mutate(ctx, EventCustomerChanged, func(st *State) error {
		st.CustomerID = customerID
		return nil
	})
}

func lineNotFound() error {
	return models.NewNotFoundError("Item is not in your cart", ErrLineNotFound)
}
