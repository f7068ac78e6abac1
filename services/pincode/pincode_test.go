package pincode

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"freshcart-api/models"
)

type fakePinStore struct {
	records map[string]models.PinCodeRecord
	err     error
	lookups int
}

func (f *fakePinStore) LookupPinCode(_ context.Context, pin string) (*models.PinCodeRecord, error) {
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.records[pin]
	if !ok {
		return nil, models.ErrRecordNotFound
	}
	return &rec, nil
}

func newGate(store *fakePinStore) *Gate {
	return NewGate(store, "5", zap.NewNop())
}

func TestClassify(t *testing.T) {
	assert.Equal(t, models.PinEmpty, Classify("").State)
	assert.Equal(t, models.PinFormatInvalid, Classify("5600").State)
	assert.Equal(t, models.PinFormatInvalid, Classify("56001a").State)
	assert.Equal(t, models.PinFormatInvalid, Classify("5600011").State)
	assert.Equal(t, models.PinChecking, Classify(" 560001 ").State)
}

func TestCheckValid(t *testing.T) {
	store := &fakePinStore{records: map[string]models.PinCodeRecord{
		"560001": {PinCode: "560001", Area: "MG Road", IsActive: true},
	}}

	status, err := newGate(store).Check(context.Background(), "560001")

	require.NoError(t, err)
	assert.Equal(t, models.PinValid, status.State)
	assert.Equal(t, "MG Road", status.Area)
	assert.True(t, status.CanSubmit())
}

func TestCheckOutsideRegionIsInvalidWithoutLookup(t *testing.T) {
	store := &fakePinStore{}

	status, err := newGate(store).Check(context.Background(), "123456")

	require.NoError(t, err)
	assert.Equal(t, models.PinInvalid, status.State)
	assert.False(t, status.CanSubmit())
	assert.Zero(t, store.lookups)
}

func TestCheckInactiveAndMissingAreInvalid(t *testing.T) {
	store := &fakePinStore{records: map[string]models.PinCodeRecord{
		"560002": {PinCode: "560002", Area: "Old Town", IsActive: false},
	}}
	gate := newGate(store)

	status, err := gate.Check(context.Background(), "560002")
	require.NoError(t, err)
	assert.Equal(t, models.PinInvalid, status.State)

	status, err = gate.Check(context.Background(), "560099")
	require.NoError(t, err)
	assert.Equal(t, models.PinInvalid, status.State)
}

func TestCheckLookupFailureStaysChecking(t *testing.T) {
	store := &fakePinStore{err: errors.New("timeout")}

	status, err := newGate(store).Check(context.Background(), "560001")

	require.Error(t, err)
	appErr, ok := models.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, models.KindExternal, appErr.Kind)
	assert.Equal(t, models.PinChecking, status.State)
	assert.False(t, status.CanSubmit())
}

type fakeRequestStore struct {
	saved []*models.DeliveryRequest
	err   error
}

func (f *fakeRequestStore) CreateDeliveryRequest(_ context.Context, req *models.DeliveryRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.saved = append(f.saved, req)
	return req.ID, nil
}

type fakeNotifier struct {
	calls int
	err   error
}

func (f *fakeNotifier) NotifyDeliveryRequest(context.Context, *models.DeliveryRequest) error {
	f.calls++
	return f.err
}

func TestRequestDeliveryForInvalidPin(t *testing.T) {
	store := &fakeRequestStore{}
	notifier := &fakeNotifier{err: errors.New("queue down")}
	r := NewRequester(store, notifier, zap.NewNop())
	status := models.PinCodeStatus{State: models.PinInvalid, PinCode: "123456"}

	req, err := r.RequestDelivery(context.Background(), status, models.CreateDeliveryRequest{
		Name:  "Asha",
		Phone: "9876543210",
	})

	require.NoError(t, err)
	assert.Equal(t, "123456", req.PinCode)
	assert.False(t, req.Processed)
	assert.NotEmpty(t, req.ID)
	assert.Len(t, store.saved, 1)
	assert.Equal(t, 1, notifier.calls)
}

func TestRequestDeliveryRejectsOtherStates(t *testing.T) {
	r := NewRequester(&fakeRequestStore{}, nil, zap.NewNop())
	status := models.PinCodeStatus{State: models.PinValid, PinCode: "560001", Area: "MG Road"}

	_, err := r.RequestDelivery(context.Background(), status, models.CreateDeliveryRequest{Name: "Asha", Phone: "9876543210"})

	appErr, ok := models.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, models.KindValidation, appErr.Kind)
}

func TestRequestDeliveryValidatesContact(t *testing.T) {
	r := NewRequester(&fakeRequestStore{}, nil, zap.NewNop())
	status := models.PinCodeStatus{State: models.PinInvalid, PinCode: "123456"}

	_, err := r.RequestDelivery(context.Background(), status, models.CreateDeliveryRequest{Name: "Asha", Phone: "12"})
	assert.Error(t, err)

	_, err = r.RequestDelivery(context.Background(), status, models.CreateDeliveryRequest{Phone: "9876543210"})
	assert.Error(t, err)

	_, err = r.RequestDelivery(context.Background(), status, models.CreateDeliveryRequest{Name: "Asha", Phone: "9876543210", Email: "asha@"})
	appErr, ok := models.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "Please enter a valid email address", appErr.Message)
}

func TestRequestDeliveryStoreFailure(t *testing.T) {
	r := NewRequester(&fakeRequestStore{err: errors.New("insert failed")}, nil, zap.NewNop())
	status := models.PinCodeStatus{State: models.PinInvalid, PinCode: "123456"}

	_, err := r.RequestDelivery(context.Background(), status, models.CreateDeliveryRequest{Name: "Asha", Phone: "9876543210"})

	appErr, ok := models.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, models.KindExternal, appErr.Kind)
}
