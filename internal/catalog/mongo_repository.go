package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/healthymarket/healthy-market/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{collection: db.Collection("products")}
}

func (m *mongoRepository) List(ctx context.Context) ([]*domain.Product, error) {
	return m.find(ctx, bson.M{})
}

func (m *mongoRepository) ListByTrader(ctx context.Context, traderID string) ([]*domain.Product, error) {
	return m.find(ctx, bson.M{"trader": traderID})
}

func (m *mongoRepository) find(ctx context.Context, filter bson.M) ([]*domain.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer cursor.Close(ctx)

	products := make([]*domain.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}

func (m *mongoRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrProductNotFound
	}

	var product domain.Product
	if err := m.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&product); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

func (m *mongoRepository) Create(ctx context.Context, product *domain.Product) error {
	if err := Validate(product); err != nil {
		return err
	}

	now := time.Now().UTC()
	product.ID = primitive.NewObjectID()
	product.CreatedAt = now
	product.UpdatedAt = now

	if _, err := m.collection.InsertOne(ctx, product); err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (m *mongoRepository) Delete(ctx context.Context, id, requesterID string, isAdmin bool) error {
	product, err := m.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if !isAdmin && product.TraderID != requesterID {
		return ErrForbidden
	}

	result, err := m.collection.DeleteOne(ctx, bson.M{"_id": product.ID})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}
