package mongodb

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/stockroom/internal/domain/models"
)

const snapshotCollection = "inventory_snapshots"

// SnapshotRepository archives daily inventory snapshots in MongoDB.
type SnapshotRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
}

// snapshotDocument is the stored shape of a snapshot. Amounts are kept as
// decimal strings.
type snapshotDocument struct {
	Date        string    `bson:"date"`
	OwnerID     string    `bson:"owner_id"`
	Products    int       `bson:"products"`
	TotalStock  int       `bson:"total_stock"`
	Warning     int       `bson:"warning"`
	Low         int       `bson:"low"`
	Normal      int       `bson:"normal"`
	CostValue   string    `bson:"cost_value"`
	RetailValue string    `bson:"retail_value"`
	CreatedAt   time.Time `bson:"created_at"`
}

// NewSnapshotRepository connects to uri and verifies the connection.
func NewSnapshotRepository(ctx context.Context, uri string, dbName string) (*SnapshotRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &SnapshotRepository{
		client:   client,
		dbName:   dbName,
		collName: snapshotCollection,
	}, nil
}

// SaveSnapshot stores s, replacing an earlier snapshot of the same owner and
// day.
func (r *SnapshotRepository) SaveSnapshot(ctx context.Context, s models.InventorySnapshot) error {
	doc := toDocument(s)
	filter := bson.M{"owner_id": doc.OwnerID, "date": doc.Date}
	_, err := r.collection().ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save inventory snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns the owner's latest limit snapshots, oldest first.
func (r *SnapshotRepository) ListSnapshots(ctx context.Context, ownerID string, limit int) ([]models.InventorySnapshot, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}}).SetLimit(int64(limit))
	cursor, err := r.collection().Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory snapshots: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []snapshotDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode inventory snapshots: %w", err)
	}

	out := make([]models.InventorySnapshot, 0, len(docs))
	for _, doc := range docs {
		s, err := fromDocument(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	slices.Reverse(out)
	return out, nil
}

// Close closes the MongoDB connection.
func (r *SnapshotRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *SnapshotRepository) collection() *mongo.Collection {
	return r.client.Database(r.dbName).Collection(r.collName)
}

func toDocument(s models.InventorySnapshot) snapshotDocument {
	return snapshotDocument{
		Date:        s.Date.Format(time.DateOnly),
		OwnerID:     s.OwnerID,
		Products:    s.Products,
		TotalStock:  s.TotalStock,
		Warning:     s.Warning,
		Low:         s.Low,
		Normal:      s.Normal,
		CostValue:   s.CostValue.String(),
		RetailValue: s.RetailValue.String(),
		CreatedAt:   s.CreatedAt.UTC(),
	}
}

func fromDocument(doc snapshotDocument) (models.InventorySnapshot, error) {
	date, err := time.Parse(time.DateOnly, doc.Date)
	if err != nil {
		return models.InventorySnapshot{}, fmt.Errorf("snapshot date %q: %w", doc.Date, err)
	}
	cost, err := decimal.NewFromString(doc.CostValue)
	if err != nil {
		return models.InventorySnapshot{}, fmt.Errorf("snapshot cost value: %w", err)
	}
	retail, err := decimal.NewFromString(doc.RetailValue)
	if err != nil {
		return models.InventorySnapshot{}, fmt.Errorf("snapshot retail value: %w", err)
	}
	return models.InventorySnapshot{
		Date:        date,
		OwnerID:     doc.OwnerID,
		Products:    doc.Products,
		TotalStock:  doc.TotalStock,
		Warning:     doc.Warning,
		Low:         doc.Low,
		Normal:      doc.Normal,
		CostValue:   cost,
		RetailValue: retail,
		CreatedAt:   doc.CreatedAt,
	}, nil
}
