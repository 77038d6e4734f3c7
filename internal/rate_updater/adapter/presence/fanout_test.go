package presence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, label string) error {
	args := m.Called(ctx, label)
	return args.Error(0)
}

func TestFanout_PublishesToAll(t *testing.T) {
	ctx := context.Background()
	first := new(MockPublisher)
	second := new(MockPublisher)
	boom := errors.New("boom")

	first.On("Publish", ctx, "label").Return(boom).Once()
	second.On("Publish", ctx, "label").Return(nil).Once()

	err := NewFanout(first, nil, second).Publish(ctx, "label")

	assert.ErrorIs(t, err, boom)
	first.AssertExpectations(t)
	second.AssertExpectations(t)
}

func TestFanout_Empty(t *testing.T) {
	f := NewFanout()

	assert.Empty(t, f)
	assert.NoError(t, f.Publish(context.Background(), "label"))
}
