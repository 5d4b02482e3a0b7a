package models_test

import (
	"testing"

	"github.com/melihmerall/ilisan-commerce/internal/domain/models"
	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	assert.True(t, models.OrderStatusPending.CanTransition(models.OrderStatusConfirmed))
	assert.True(t, models.OrderStatusPending.CanTransition(models.OrderStatusCancelled))
	assert.True(t, models.OrderStatusConfirmed.CanTransition(models.OrderStatusProcessing))
	assert.True(t, models.OrderStatusConfirmed.CanTransition(models.OrderStatusShipped))
	assert.True(t, models.OrderStatusProcessing.CanTransition(models.OrderStatusShipped))
	assert.True(t, models.OrderStatusProcessing.CanTransition(models.OrderStatusCancelled))
	assert.True(t, models.OrderStatusShipped.CanTransition(models.OrderStatusDelivered))
	assert.True(t, models.OrderStatusShipped.CanTransition(models.OrderStatusReturned))
	assert.True(t, models.OrderStatusDelivered.CanTransition(models.OrderStatusCompleted))
	assert.True(t, models.OrderStatusDelivered.CanTransition(models.OrderStatusReturned))

	// cancellation is only open before fulfillment starts
	assert.False(t, models.OrderStatusShipped.CanTransition(models.OrderStatusCancelled))
	// terminal states never move
	assert.False(t, models.OrderStatusCompleted.CanTransition(models.OrderStatusPending))
	assert.False(t, models.OrderStatusCancelled.CanTransition(models.OrderStatusConfirmed))
	assert.False(t, models.OrderStatusReturned.CanTransition(models.OrderStatusDelivered))
	// no skipping straight to delivered
	assert.False(t, models.OrderStatusPending.CanTransition(models.OrderStatusDelivered))
}

func TestPaymentStatusTransitions(t *testing.T) {
	assert.True(t, models.PaymentStatusPending.CanTransition(models.PaymentStatusProcessing))
	assert.True(t, models.PaymentStatusProcessing.CanTransition(models.PaymentStatusPaid))
	assert.True(t, models.PaymentStatusProcessing.CanTransition(models.PaymentStatusFailed))
	assert.True(t, models.PaymentStatusPaid.CanTransition(models.PaymentStatusRefunded))

	// a definitive success may still arrive after a failure was recorded
	assert.True(t, models.PaymentStatusFailed.CanTransition(models.PaymentStatusPaid))
	// but paid never degrades to failed
	assert.False(t, models.PaymentStatusPaid.CanTransition(models.PaymentStatusFailed))
	assert.False(t, models.PaymentStatusRefunded.CanTransition(models.PaymentStatusPaid))
}

func TestShippingStatusTransitions(t *testing.T) {
	assert.True(t, models.ShippingStatusPending.CanTransition(models.ShippingStatusPreparing))
	assert.True(t, models.ShippingStatusShipped.CanTransition(models.ShippingStatusDelivered))
	assert.True(t, models.ShippingStatusDelivered.CanTransition(models.ShippingStatusReturned))

	assert.False(t, models.ShippingStatusPending.CanTransition(models.ShippingStatusDelivered))
	assert.False(t, models.ShippingStatusReturned.CanTransition(models.ShippingStatusPending))
}
