package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/healthymarket/healthy-market/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "orders"

type mongoRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{
		collection: db.Collection(collectionName),
		now:        time.Now,
	}
}

func (m *mongoRepository) Create(ctx context.Context, order *domain.Order) error {
	now := m.now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.OrderDate.IsZero() {
		order.OrderDate = now
	}
	order.UpdatedAt = now

	if _, err := m.collection.InsertOne(ctx, order); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (m *mongoRepository) FindByCustomer(ctx context.Context, customerID string) ([]*domain.Order, error) {
	return m.find(ctx, bson.M{"customer": customerID})
}

func (m *mongoRepository) FindByTrader(ctx context.Context, traderID string) ([]*domain.Order, error) {
	return m.find(ctx, bson.M{"items.trader": traderID})
}

func (m *mongoRepository) find(ctx context.Context, filter bson.M) ([]*domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "orderDate", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := make([]*domain.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}

func (m *mongoRepository) FindByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	var order domain.Order
	err := m.collection.FindOne(ctx, bson.M{"orderNumber": orderNumber}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("query order %s: %w", orderNumber, err)
	}
	return &order, nil
}

// UpdateStatus moves the order to status if the lifecycle allows it. The write is
// conditional on the status read, so a concurrent change surfaces as ErrIllegalTransition.
func (m *mongoRepository) UpdateStatus(ctx context.Context, orderNumber string, status domain.OrderStatus, shipping ShippingUpdate) (*domain.Order, error) {
	current, err := m.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransitionTo(current.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, current.Status, status)
	}

	now := m.now().UTC()
	set := bson.M{
		"status":    status,
		"updatedAt": now,
	}
	switch status {
	case domain.OrderStatusShipped:
		set["shippingInfo.shippedAt"] = now
		if shipping.TrackingNumber != "" {
			set["shippingInfo.trackingNumber"] = shipping.TrackingNumber
		}
		if shipping.Carrier != "" {
			set["shippingInfo.carrier"] = shipping.Carrier
		}
		if shipping.EstimatedDelivery != nil {
			set["shippingInfo.estimatedDelivery"] = shipping.EstimatedDelivery.UTC()
		}
	case domain.OrderStatusDelivered:
		set["shippingInfo.deliveredAt"] = now
	}

	filter := bson.M{"orderNumber": orderNumber, "status": current.Status}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated domain.Order
	err = m.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s changed concurrently", ErrIllegalTransition, orderNumber)
		}
		return nil, fmt.Errorf("update order %s status: %w", orderNumber, err)
	}
	return &updated, nil
}
