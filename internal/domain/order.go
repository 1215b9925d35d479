package domain

import "time"

type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodPaypal PaymentMethod = "paypal"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCard || m == PaymentMethodPaypal
}

const DefaultCountry = "USA"

// OrderLineItem is a frozen copy of a cart line taken at submission time.
type OrderLineItem struct {
	ProductID      string  `bson:"product" json:"product"`
	Name           string  `bson:"name" json:"name"`
	Price          float64 `bson:"price" json:"price"`
	Quantity       int     `bson:"quantity" json:"quantity"`
	CarbonEmission float64 `bson:"carbonEmission" json:"carbonEmission"`
	TraderID       string  `bson:"trader" json:"traderId"`
	Image          string  `bson:"image,omitempty" json:"image,omitempty"`
}

type CustomerInfo struct {
	Email   string `bson:"email" json:"email"`
	Address string `bson:"address" json:"address"`
	City    string `bson:"city" json:"city"`
	ZipCode string `bson:"zipCode" json:"zipCode"`
	Country string `bson:"country" json:"country"`
}

type ShippingInfo struct {
	TrackingNumber    string     `bson:"trackingNumber,omitempty" json:"trackingNumber,omitempty"`
	Carrier           string     `bson:"carrier,omitempty" json:"carrier,omitempty"`
	EstimatedDelivery *time.Time `bson:"estimatedDelivery,omitempty" json:"estimatedDelivery,omitempty"`
	ShippedAt         *time.Time `bson:"shippedAt,omitempty" json:"shippedAt,omitempty"`
	DeliveredAt       *time.Time `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
}

type Order struct {
	OrderNumber    string          `bson:"orderNumber" json:"orderNumber"`
	CustomerID     string          `bson:"customer" json:"customerId"`
	Items          []OrderLineItem `bson:"items" json:"items"`
	TotalPrice     float64         `bson:"totalPrice" json:"totalPrice"`
	TotalEmissions float64         `bson:"totalEmissions" json:"totalEmissions"`
	TaxAmount      float64         `bson:"taxAmount" json:"taxAmount"`
	CustomerInfo   CustomerInfo    `bson:"customerInfo" json:"customerInfo"`
	PaymentMethod  PaymentMethod   `bson:"paymentMethod" json:"paymentMethod"`
	PaymentID      string          `bson:"paymentId,omitempty" json:"paymentId,omitempty"`
	Status         OrderStatus     `bson:"status" json:"status"`
	OrderDate      time.Time       `bson:"orderDate" json:"orderDate"`
	ShippingInfo   *ShippingInfo   `bson:"shippingInfo,omitempty" json:"shippingInfo,omitempty"`
	CreatedAt      time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// HasTrader reports whether any line of the order belongs to traderID.
func (o *Order) HasTrader(traderID string) bool {
	for _, item := range o.Items {
		if item.TraderID == traderID {
			return true
		}
	}
	return false
}
