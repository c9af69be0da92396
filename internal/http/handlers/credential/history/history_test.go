package history

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/usage-gate/internal/models"
)

// MockService реализует интерфейс history.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) History(ctx context.Context, userID string) ([]*models.Credential, error) {
	args := m.Called(ctx, userID)
	if history, ok := args.Get(0).([]*models.Credential); ok {
		return history, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestHistoryHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	const userID = "6f1e0b52-0000-0000-0000-000000000005"

	tests := []struct {
		name           string
		userID         string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "история с активной и деактивированной записями",
			userID: userID,
			setupMock: func(m *MockService) {
				m.On("History", mock.Anything, userID).Return([]*models.Credential{
					{ID: "cred-2", UserID: userID, IsActive: true},
					{ID: "cred-1", UserID: userID, IsActive: false},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `cred-1`,
		},
		{
			name:   "пустая история",
			userID: userID,
			setupMock: func(m *MockService) {
				m.On("History", mock.Anything, userID).Return([]*models.Credential{}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"success":true`,
		},
		{
			name:           "некорректный ID пользователя",
			userID:         "not-a-uuid",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `invalid user id`,
		},
		{
			name:   "ошибка сервиса",
			userID: userID,
			setupMock: func(m *MockService) {
				m.On("History", mock.Anything, userID).Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not list credential history`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodGet, "/credentials/history/"+tt.userID, nil)
			// Устанавливаем URL параметр userID для chi
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("userID", tt.userID)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())
			mockService.AssertExpectations(t)
		})
	}
}
