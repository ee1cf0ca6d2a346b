package locator

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rservers/RightClaw-Build/internal/model"
)

type mockInventory struct {
	mock.Mock
}

func (m *mockInventory) AddressForService(ctx context.Context, serviceID int) (string, bool, error) {
	args := m.Called(ctx, serviceID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func TestLocate_PrimaryWins(t *testing.T) {
	inv := &mockInventory{}
	l := New(inv, zerolog.Nop())

	loc, err := l.Locate(context.Background(), model.LifecycleEvent{ServiceID: 42, DedicatedIP: "10.0.0.5", Domain: "10.0.0.9"})
	require.NoError(t, err)
	assert.Equal(t, Location{Address: "10.0.0.5", Source: SourcePayload}, loc)
	inv.AssertNotCalled(t, "AddressForService", mock.Anything, mock.Anything)
}

func TestLocate_SecondaryWhenPrimaryBlank(t *testing.T) {
	inv := &mockInventory{}
	l := New(inv, zerolog.Nop())

	loc, err := l.Locate(context.Background(), model.LifecycleEvent{ServiceID: 42, DedicatedIP: "  ", Domain: "10.0.0.9"})
	require.NoError(t, err)
	assert.Equal(t, Location{Address: "10.0.0.9", Source: SourcePayloadSecondary}, loc)
	inv.AssertNotCalled(t, "AddressForService", mock.Anything, mock.Anything)
}

func TestLocate_InventoryFallback(t *testing.T) {
	inv := &mockInventory{}
	inv.On("AddressForService", mock.Anything, 42).Return("10.0.0.7", true, nil)
	l := New(inv, zerolog.Nop())

	loc, err := l.Locate(context.Background(), model.LifecycleEvent{ServiceID: 42})
	require.NoError(t, err)
	assert.Equal(t, Location{Address: "10.0.0.7", Source: SourceInventory}, loc)
	inv.AssertExpectations(t)
}

func TestLocate_InventoryMiss(t *testing.T) {
	inv := &mockInventory{}
	inv.On("AddressForService", mock.Anything, 42).Return("", false, nil)
	l := New(inv, zerolog.Nop())

	_, err := l.Locate(context.Background(), model.LifecycleEvent{ServiceID: 42})
	assert.ErrorIs(t, err, ErrAddressUnresolved)
}

func TestLocate_InventoryErrorIsUnresolved(t *testing.T) {
	inv := &mockInventory{}
	inv.On("AddressForService", mock.Anything, 42).Return("", false, errors.New("db down"))
	l := New(inv, zerolog.Nop())

	_, err := l.Locate(context.Background(), model.LifecycleEvent{ServiceID: 42})
	assert.ErrorIs(t, err, ErrAddressUnresolved)
}

func TestLocate_NoInventoryConfigured(t *testing.T) {
	l := New(nil, zerolog.Nop())

	_, err := l.Locate(context.Background(), model.LifecycleEvent{ServiceID: 42})
	assert.ErrorIs(t, err, ErrAddressUnresolved)
}
