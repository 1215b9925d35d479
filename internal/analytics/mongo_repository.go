package analytics

import (
	"context"
	"fmt"

	"github.com/healthymarket/healthy-market/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoRepository struct {
	emissions *mongo.Collection
	waste     *mongo.Collection
	sales     *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{
		emissions: db.Collection("emission_logs"),
		waste:     db.Collection("waste_logs"),
		sales:     db.Collection("sales"),
	}
}

func rangeFilter(traderID string, r Range) bson.M {
	filter := bson.M{}
	if traderID != "" {
		filter["trader"] = traderID
	}
	date := bson.M{}
	if !r.From.IsZero() {
		date["$gte"] = r.From
	}
	if !r.To.IsZero() {
		date["$lt"] = r.To
	}
	if len(date) > 0 {
		filter["date"] = date
	}
	return filter
}

var newestFirst = options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}})

func (m *mongoRepository) AddEmission(ctx context.Context, log *domain.EmissionLog) error {
	log.ID = primitive.NewObjectID()
	if _, err := m.emissions.InsertOne(ctx, log); err != nil {
		return fmt.Errorf("insert emission log: %w", err)
	}
	return nil
}

func (m *mongoRepository) ListEmissions(ctx context.Context, traderID string, r Range) ([]*domain.EmissionLog, error) {
	logs := make([]*domain.EmissionLog, 0)
	if err := findAll(ctx, m.emissions, rangeFilter(traderID, r), &logs); err != nil {
		return nil, fmt.Errorf("list emission logs: %w", err)
	}
	return logs, nil
}

func (m *mongoRepository) AddWaste(ctx context.Context, log *domain.WasteLog) error {
	log.ID = primitive.NewObjectID()
	if _, err := m.waste.InsertOne(ctx, log); err != nil {
		return fmt.Errorf("insert waste log: %w", err)
	}
	return nil
}

func (m *mongoRepository) ListWaste(ctx context.Context, traderID string, r Range) ([]*domain.WasteLog, error) {
	logs := make([]*domain.WasteLog, 0)
	if err := findAll(ctx, m.waste, rangeFilter(traderID, r), &logs); err != nil {
		return nil, fmt.Errorf("list waste logs: %w", err)
	}
	return logs, nil
}

func (m *mongoRepository) RecordSales(ctx context.Context, sales []domain.SaleRecord) error {
	if len(sales) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(sales))
	for _, sale := range sales {
		filter := bson.M{"orderNumber": sale.OrderNumber, "trader": sale.TraderID, "product": sale.ProductID}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(filter).
			SetUpdate(bson.M{"$setOnInsert": sale}).
			SetUpsert(true))
	}

	if _, err := m.sales.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		// a concurrent upsert of the same key loses the race on the unique index
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("record sales: %w", err)
	}
	return nil
}

func (m *mongoRepository) ListSales(ctx context.Context, traderID string, r Range) ([]*domain.SaleRecord, error) {
	sales := make([]*domain.SaleRecord, 0)
	if err := findAll(ctx, m.sales, rangeFilter(traderID, r), &sales); err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	return sales, nil
}

func findAll(ctx context.Context, c *mongo.Collection, filter bson.M, out interface{}) error {
	cursor, err := c.Find(ctx, filter, newestFirst)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}
