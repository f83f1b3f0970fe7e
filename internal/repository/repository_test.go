package repository

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewProviderRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewProviderRepository(pool)
	assert.NotNil(t, repo)
}

func TestNewBookingRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewBookingRepository(pool)
	assert.NotNil(t, repo)
}

func TestNewPaymentSessionRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewPaymentSessionRepository(pool)
	assert.NotNil(t, repo)
}
