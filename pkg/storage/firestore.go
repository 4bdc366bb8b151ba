package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/ehin/ehin/pkg/log"
	"github.com/ehin/ehin/pkg/types"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreProvider implements the Database interface using Google Cloud
// Firestore. Every hour is one document keyed by its RFC3339 UTC start.
type FirestoreProvider struct {
	client     *firestore.Client
	projectID  string
	database   string
	collection string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")
	collection := lflag.String("firestore-collection", "price_history", "Firestore collection holding the hourly prices")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database
		f.collection = *collection

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// the project id may be inferred from the environment
	if f.collection == "" {
		return fmt.Errorf("firestore-collection cannot be empty")
	}
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) prices() (*firestore.CollectionRef, error) {
	if f.client == nil {
		return nil, ErrNotInitialized
	}
	return f.client.Collection(f.collection), nil
}

// Ping reads a single document to check that Firestore is reachable.
func (f *FirestoreProvider) Ping(ctx context.Context) error {
	coll, err := f.prices()
	if err != nil {
		return err
	}
	iter := coll.Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && err != iterator.Done {
		return fmt.Errorf("failed to ping firestore: %w", err)
	}
	return nil
}

// UpsertPrices implements Database. Each hour is written with Create, which
// fails when the document already exists, and the existing document is then
// read back for comparison.
func (f *FirestoreProvider) UpsertPrices(ctx context.Context, entries []types.PriceEntry) (types.IngestionReport, error) {
	var report types.IngestionReport
	coll, err := f.prices()
	if err != nil {
		return report, err
	}

	for _, e := range entries {
		e = e.UTC()
		jsonBytes, err := json.Marshal(e)
		if err != nil {
			return types.IngestionReport{}, fmt.Errorf("failed to marshal price: %w", err)
		}

		doc := coll.Doc(e.Key())
		_, err = doc.Create(ctx, map[string]interface{}{
			"json":      string(jsonBytes),
			"timestamp": e.DeliveryStart,
		})
		if err == nil {
			report.Inserted++
			continue
		}
		if status.Code(err) != codes.AlreadyExists {
			return types.IngestionReport{}, fmt.Errorf("failed to create price %s: %w", e.Key(), err)
		}

		snap, err := doc.Get(ctx)
		if err != nil {
			return types.IngestionReport{}, fmt.Errorf("failed to fetch existing price %s: %w", e.Key(), err)
		}
		stored, err := decodePriceDoc(ctx, snap)
		if err != nil {
			return types.IngestionReport{}, err
		}
		report.Compare(stored.Price, e)
	}
	return report, nil
}

// GetPrices retrieves price records within the specified time range.
// Uses document ID range queries for efficient filtering.
func (f *FirestoreProvider) GetPrices(ctx context.Context, from, to time.Time) ([]types.PriceEntry, error) {
	coll, err := f.prices()
	if err != nil {
		return nil, err
	}

	startDocID := from.UTC().Format(time.RFC3339)
	endDocID := to.UTC().Format(time.RFC3339)

	iter := coll.
		Where(firestore.DocumentID, ">=", coll.Doc(startDocID)).
		Where(firestore.DocumentID, "<", coll.Doc(endDocID)).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var entries []types.PriceEntry
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating prices: %w", err)
		}
		p, err := decodePriceDoc(ctx, doc)
		if err != nil {
			return nil, err
		}
		entries = append(entries, p)
	}
	return entries, nil
}

func decodePriceDoc(ctx context.Context, doc *firestore.DocumentSnapshot) (types.PriceEntry, error) {
	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "price doc missing json", slog.String("docID", doc.Ref.ID), slog.Any("err", err))
		return types.PriceEntry{}, fmt.Errorf("price document %s missing 'json' field: %w", doc.Ref.ID, err)
	}

	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "price doc json not string", slog.String("docID", doc.Ref.ID))
		return types.PriceEntry{}, fmt.Errorf("price document %s 'json' field is not string", doc.Ref.ID)
	}

	var p types.PriceEntry
	if err := json.Unmarshal([]byte(jsonStr), &p); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal price", slog.String("docID", doc.Ref.ID), slog.Any("err", err))
		return types.PriceEntry{}, fmt.Errorf("failed to unmarshal price (id=%s): %w", doc.Ref.ID, err)
	}
	return p.UTC(), nil
}
