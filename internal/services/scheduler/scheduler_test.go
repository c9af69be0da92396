package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/usage-gate/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ResetDueUsage(ctx context.Context) ([]*models.UsageRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.UsageRecord), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestSchedulerService_resetDueUsage(t *testing.T) {
	record := &models.UsageRecord{
		UserID:         "user-1",
		FeatureID:      "feature-1",
		PlanID:         "plan-1",
		OrganizationID: "org-1",
		UsageCount:     0,
		ResetDate:      time.Now().AddDate(0, 1, 0),
	}

	tests := []struct {
		name       string
		setupMocks func(*MockRepository)
	}{
		{
			name: "success - просроченные счетчики сброшены",
			setupMocks: func(r *MockRepository) {
				r.On("ResetDueUsage", mock.Anything).Return([]*models.UsageRecord{record}, nil).Once()
				// Не ожидаем публикации, так как канал nil
			},
		},
		{
			name: "success - нет просроченных счетчиков",
			setupMocks: func(r *MockRepository) {
				r.On("ResetDueUsage", mock.Anything).Return([]*models.UsageRecord{}, nil).Once()
			},
		},
		{
			name: "repository error",
			setupMocks: func(r *MockRepository) {
				// метод не возвращает ошибку, только логирует
				r.On("ResetDueUsage", mock.Anything).Return(nil, errors.New("db error")).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			service := NewSchedulerService(repo, newNoopLogger())

			tt.setupMocks(repo)

			service.resetDueUsage(context.Background(), nil)

			repo.AssertExpectations(t)
		})
	}
}

func TestSchedulerService_RunStopsOnContextCancel(t *testing.T) {
	repo := new(MockRepository)
	repo.On("ResetDueUsage", mock.Anything).Return([]*models.UsageRecord{}, nil)
	service := NewSchedulerService(repo, newNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		service.Run(ctx, nil, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after context cancel")
	}

	repo.AssertExpectations(t)
}
