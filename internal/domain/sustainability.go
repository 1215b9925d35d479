package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ActivityType string

const (
	ActivityTransport  ActivityType = "transport"
	ActivityProduction ActivityType = "production"
	ActivityPackaging  ActivityType = "packaging"
	ActivityOther      ActivityType = "other"
)

func (a ActivityType) Valid() bool {
	switch a {
	case ActivityTransport, ActivityProduction, ActivityPackaging, ActivityOther:
		return true
	}
	return false
}

type WasteType string

const (
	WasteOrganic WasteType = "organic"
	WastePlastic WasteType = "plastic"
	WastePaper   WasteType = "paper"
	WasteMetal   WasteType = "metal"
	WasteOther   WasteType = "other"
)

func (w WasteType) Valid() bool {
	switch w {
	case WasteOrganic, WastePlastic, WastePaper, WasteMetal, WasteOther:
		return true
	}
	return false
}

// EmissionLog records kg CO2e produced by a trader activity.
type EmissionLog struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TraderID       string             `bson:"trader" json:"traderId"`
	ProductID      string             `bson:"product,omitempty" json:"productId,omitempty"`
	ActivityType   ActivityType       `bson:"activityType" json:"activityType"`
	CarbonEmission float64            `bson:"carbonEmission" json:"carbonEmission"`
	Notes          string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Date           time.Time          `bson:"date" json:"date"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}

// WasteLog records kg of waste produced by a trader.
type WasteLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TraderID  string             `bson:"trader" json:"traderId"`
	WasteType WasteType          `bson:"wasteType" json:"wasteType"`
	Quantity  float64            `bson:"quantity" json:"quantity"`
	Notes     string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Date      time.Time          `bson:"date" json:"date"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// SaleRecord is one trader's share of a placed order.
type SaleRecord struct {
	OrderNumber    string    `bson:"orderNumber" json:"orderNumber"`
	TraderID       string    `bson:"trader" json:"traderId"`
	ProductID      string    `bson:"product" json:"productId"`
	Quantity       int       `bson:"quantity" json:"quantity"`
	Revenue        float64   `bson:"revenue" json:"revenue"`
	CarbonEmission float64   `bson:"carbonEmission" json:"carbonEmission"`
	Date           time.Time `bson:"date" json:"date"`
}
