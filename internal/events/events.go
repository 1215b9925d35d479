// Package events publishes domain events to Kafka.
package events

import (
	"time"

	"github.com/healthymarket/healthy-market/internal/domain"
)

const (
	TopicOrderPlaced     = "order-placed"
	EventTypeOrderPlaced = "OrderPlaced"
	HeaderEventType      = "event_type"
)

type OrderPlacedItem struct {
	ProductID      string  `json:"productId"`
	TraderID       string  `json:"traderId"`
	Quantity       int     `json:"quantity"`
	Price          float64 `json:"price"`
	CarbonEmission float64 `json:"carbonEmission"`
}

type OrderPlaced struct {
	OrderNumber    string            `json:"orderNumber"`
	CustomerID     string            `json:"customerId"`
	Items          []OrderPlacedItem `json:"items"`
	TotalPrice     float64           `json:"totalPrice"`
	TotalEmissions float64           `json:"totalEmissions"`
	PlacedAt       time.Time         `json:"placedAt"`
}

func NewOrderPlaced(o *domain.Order) OrderPlaced {
	items := make([]OrderPlacedItem, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderPlacedItem{
			ProductID:      item.ProductID,
			TraderID:       item.TraderID,
			Quantity:       item.Quantity,
			Price:          item.Price,
			CarbonEmission: item.CarbonEmission,
		}
	}
	return OrderPlaced{
		OrderNumber:    o.OrderNumber,
		CustomerID:     o.CustomerID,
		Items:          items,
		TotalPrice:     o.TotalPrice,
		TotalEmissions: o.TotalEmissions,
		PlacedAt:       o.OrderDate,
	}
}
