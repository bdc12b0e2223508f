package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/loamstore/access/internal/metrics"
	"github.com/loamstore/access/internal/security/domain"
)

// mockBusinessMetrics is a mock implementation of metrics.BusinessMetrics for testing.
type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

var _ metrics.BusinessMetrics = (*mockBusinessMetrics)(nil)

func TestNewSecurityUseCaseWithMetrics(t *testing.T) {
	engine, _ := newTestEngine(t)
	mockMetrics := &mockBusinessMetrics{}

	decorator := NewSecurityUseCaseWithMetrics(engine, mockMetrics)

	assert.NotNil(t, decorator)
	assert.Implements(t, (*SecurityUseCase)(nil), decorator)
}

func TestMetricsDecorator_RecordsSuccess(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	mockMetrics := &mockBusinessMetrics{}

	mockMetrics.On("RecordOperation", ctx, "security", "can_scan", "success").
		Return().
		Once()
	mockMetrics.On("RecordDuration", ctx, "security", "can_scan", mock.AnythingOfType("time.Duration"), "success").
		Return().
		Once()

	decorator := NewSecurityUseCaseWithMetrics(engine, mockMetrics)
	allowed, err := decorator.CanScan(ctx, rootCreds(), domain.MetadataTableID)

	assert.NoError(t, err)
	assert.True(t, allowed)
	mockMetrics.AssertExpectations(t)
}

func TestMetricsDecorator_RecordsError(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	mockMetrics := &mockBusinessMetrics{}

	mockMetrics.On("RecordOperation", ctx, "security", "can_scan", "error").
		Return().
		Once()
	mockMetrics.On("RecordDuration", ctx, "security", "can_scan", mock.AnythingOfType("time.Duration"), "error").
		Return().
		Once()

	decorator := NewSecurityUseCaseWithMetrics(engine, mockMetrics)
	_, err := decorator.CanScan(ctx, rootCreds(), "no-such-table")

	assert.Error(t, err)
	mockMetrics.AssertExpectations(t)
}

func TestMetricsDecorator_RecordsMutations(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	mockMetrics := &mockBusinessMetrics{}

	mockMetrics.On("RecordOperation", ctx, "security", "create_user", "success").
		Return().
		Once()
	mockMetrics.On("RecordDuration", ctx, "security", "create_user", mock.AnythingOfType("time.Duration"), "success").
		Return().
		Once()

	decorator := NewSecurityUseCaseWithMetrics(engine, mockMetrics)
	err := decorator.CreateUser(ctx, rootCreds(), "metrics-user", []byte("secret"), nil)

	require.NoError(t, err)
	mockMetrics.AssertExpectations(t)
}
