package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Product struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Description    string             `bson:"description,omitempty" json:"description,omitempty"`
	Price          float64            `bson:"price" json:"price"`
	Quantity       int                `bson:"quantity" json:"quantity"`
	Unit           string             `bson:"unit" json:"unit"`
	Category       string             `bson:"category,omitempty" json:"category,omitempty"`
	CarbonEmission float64            `bson:"carbonEmission" json:"carbonEmission"`
	Image          string             `bson:"image,omitempty" json:"image,omitempty"`
	TraderID       string             `bson:"trader" json:"traderId"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

const DefaultProductUnit = "pieces"
