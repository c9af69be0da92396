package extend

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
	credentialservice "github.com/magabrotheeeer/usage-gate/internal/services/credential"
)

// MockService реализует интерфейс extend.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) ExtendExpiry(ctx context.Context, id, newExpiry string) (*models.Credential, error) {
	args := m.Called(ctx, id, newExpiry)
	if cred, ok := args.Get(0).(*models.Credential); ok {
		return cred, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestExtendHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	const credentialID = "6f1e0b52-0000-0000-0000-000000000001"
	const validBody = `{"expiry_date": "31-12-2026"}`

	tests := []struct {
		name           string
		id             string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешное продление подписки",
			id:   credentialID,
			body: validBody,
			setupMock: func(m *MockService) {
				m.On("ExtendExpiry", mock.Anything, credentialID, "31-12-2026").
					Return(&models.Credential{ID: credentialID, UserID: "user-1"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   credentialID,
		},
		{
			name:           "некорректный ID",
			id:             "not-a-uuid",
			body:           validBody,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `invalid credential id`,
		},
		{
			name:           "пустое тело запроса",
			id:             credentialID,
			body:           `{}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `ExpiryDate`,
		},
		{
			name: "нераспознанная дата",
			id:   credentialID,
			body: `{"expiry_date": "2026/12/31"}`,
			setupMock: func(m *MockService) {
				m.On("ExtendExpiry", mock.Anything, credentialID, "2026/12/31").
					Return(nil, credentialservice.ErrBadExpiryDate)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `invalid expiry date`,
		},
		{
			name: "неизвестная запись",
			id:   credentialID,
			body: validBody,
			setupMock: func(m *MockService) {
				m.On("ExtendExpiry", mock.Anything, credentialID, "31-12-2026").
					Return(nil, nil)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `credential not found`,
		},
		{
			name: "ошибка сервиса",
			id:   credentialID,
			body: validBody,
			setupMock: func(m *MockService) {
				m.On("ExtendExpiry", mock.Anything, credentialID, "31-12-2026").
					Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not extend expiry`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/credentials/"+tt.id+"/extend", strings.NewReader(tt.body))
			// Устанавливаем URL параметр id для chi
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.id)
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
