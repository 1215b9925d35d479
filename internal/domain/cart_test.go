package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCents(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{10, 10},
		{0.333, 0.33},
		{1.005, 1.01},
		{2.499, 2.5},
		{-1, 0},
		{math.NaN(), 0},
		{math.Inf(1), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Cents(tt.in), "Cents(%v)", tt.in)
	}
}

func TestNewLineItem_RoundsPrice(t *testing.T) {
	p := Product{ID: primitive.NewObjectID(), Name: "Herbs", Price: 0.333, CarbonEmission: 0.125, TraderID: "t1"}

	item := NewLineItem(p, 3)
	assert.Equal(t, 0.33, item.UnitPrice)
	assert.Equal(t, 0.125, item.UnitCarbonEmission)
	assert.Equal(t, 3, item.Quantity)
}
