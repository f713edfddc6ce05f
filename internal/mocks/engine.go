package mocks

import (
	"time"

	"github.com/phrazzld/scry-drill/internal/domain"
	"github.com/phrazzld/scry-drill/internal/domain/srs"
	"github.com/stretchr/testify/mock"
)

var _ srs.Engine = (*MockEngine)(nil)

// MockEngine is a testify mock of srs.Engine.
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) Schedule(item *domain.Item, rating domain.Rating, now time.Time) (*domain.Item, error) {
	args := m.Called(item, rating, now)
	next, _ := args.Get(0).(*domain.Item)
	return next, args.Error(1)
}
