package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prameswara/medibook/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockAvailabilityUseCase is a mock implementation of availability.AvailabilityUseCase
type MockAvailabilityUseCase struct {
	mock.Mock
}

func (m *MockAvailabilityUseCase) ListProviders(ctx context.Context) ([]domain.Provider, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Provider), args.Error(1)
}

func (m *MockAvailabilityUseCase) Resolve(ctx context.Context, providerID int64, date time.Time) ([]domain.AvailableSlot, error) {
	args := m.Called(ctx, providerID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AvailableSlot), args.Error(1)
}

func TestProviderHandler_list(t *testing.T) {
	mockService := &MockAvailabilityUseCase{}
	handler := NewProviderHandler(mockService, zap.NewNop())

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Request = httptest.NewRequest("GET", "/providers", nil)

	providers := []domain.Provider{
		{ID: 1, Name: "dr. Ayu", Specialty: "general", BaseHourlyRate: 100000},
		{ID: 2, Name: "dr. Bima", Specialty: "dermatology", BaseHourlyRate: 150000},
	}
	mockService.On("ListProviders", c.Request.Context()).Return(providers, nil)

	handler.list(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response []domain.Provider
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response, 2)

	mockService.AssertExpectations(t)
}

func TestProviderHandler_availability(t *testing.T) {
	mockService := &MockAvailabilityUseCase{}
	handler := NewProviderHandler(mockService, zap.NewNop())

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "id", Value: "1"}}
	c.Request = httptest.NewRequest("GET", "/providers/1/availability?date=2026-09-07", nil)

	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.Local)
	slots := []domain.AvailableSlot{
		{SlotID: 11, Date: date, StartMinute: 9 * 60, DurationMinutes: 60, Taken: true},
		{SlotID: 12, Date: date, StartMinute: 10 * 60, DurationMinutes: 60, Taken: false},
	}
	mockService.On("Resolve", c.Request.Context(), int64(1), date).Return(slots, nil)

	handler.availability(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response []domain.AvailableSlot
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response, 2)
	assert.True(t, response[0].Taken)
	assert.False(t, response[1].Taken)

	mockService.AssertExpectations(t)
}

func TestProviderHandler_availabilityBadProviderID(t *testing.T) {
	handler := NewProviderHandler(&MockAvailabilityUseCase{}, zap.NewNop())

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	c.Request = httptest.NewRequest("GET", "/providers/abc/availability?date=2026-09-07", nil)

	handler.availability(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProviderHandler_availabilityBadDate(t *testing.T) {
	handler := NewProviderHandler(&MockAvailabilityUseCase{}, zap.NewNop())

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "id", Value: "1"}}
	c.Request = httptest.NewRequest("GET", "/providers/1/availability?date=07-09-2026", nil)

	handler.availability(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProviderHandler_availabilityPastDate(t *testing.T) {
	mockService := &MockAvailabilityUseCase{}
	handler := NewProviderHandler(mockService, zap.NewNop())

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "id", Value: "1"}}
	c.Request = httptest.NewRequest("GET", "/providers/1/availability?date=2020-01-06", nil)

	mockService.On("Resolve", c.Request.Context(), int64(1), mock.Anything).Return(nil, domain.ErrInvalidDate)

	handler.availability(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
