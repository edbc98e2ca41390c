package catalog

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"github.com/wattwise/wattwise/pkg/log"
	"github.com/wattwise/wattwise/pkg/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	collectionCategories = "catalog_categories"
	collectionAppliances = "catalog_appliances"
	collectionRates      = "catalog_rates"
)

// FirestoreSource reads the catalog from Firestore collections.
type FirestoreSource struct {
	client    *firestore.Client
	projectID string
	database  string
	fallback  types.Tariff
}

type firestoreCategory struct {
	Name  string `firestore:"name"`
	Order int    `firestore:"order"`
}

type firestoreAppliance struct {
	Name         string `firestore:"name"`
	Category     string `firestore:"category"`
	Order        int    `firestore:"order"`
	MinWatts     int    `firestore:"minWatts"`
	MaxWatts     int    `firestore:"maxWatts"`
	DefaultWatts int    `firestore:"defaultWatts"`
}

type firestoreRate struct {
	Rate      float64   `firestore:"rate"`
	Month     string    `firestore:"month"`
	Year      string    `firestore:"year"`
	Notes     string    `firestore:"notes"`
	Effective time.Time `firestore:"effective"`
}

// NewFirestoreSource returns an uninitialized source. Init must be called
// before use.
func NewFirestoreSource(projectID, database string, fallback types.Tariff) *FirestoreSource {
	return &FirestoreSource{
		projectID: projectID,
		database:  database,
		fallback:  fallback,
	}
}

func configuredFirestore() *FirestoreSource {
	projectID := lflag.String("catalog-firestore-project-id", "", "Google Cloud Project ID for the Firestore catalog")
	database := lflag.String("catalog-firestore-database", "", "Google Cloud Firestore Database for the catalog")
	emulator := lflag.String("catalog-firestore-emulator", "", "Use Firestore emulator at this host:port")

	f := &FirestoreSource{
		fallback: Fallback().Tariff,
	}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the source is properly configured.
func (f *FirestoreSource) Validate() error {
	// an empty project ID is detected from the environment in Init
	return nil
}

// Init creates the Firestore client.
func (f *FirestoreSource) Init(ctx context.Context) error {
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
func (f *FirestoreSource) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// Name implements Source.
func (f *FirestoreSource) Name() string {
	return "firestore"
}

// Categories implements Source. Categories and appliances are ordered by their
// order field, then by name.
func (f *FirestoreSource) Categories(ctx context.Context) ([]types.Category, error) {
	var cats []firestoreCategory
	if err := readAll(ctx, f.client.Collection(collectionCategories).Documents(ctx), &cats); err != nil {
		return nil, fmt.Errorf("failed to read categories: %w", err)
	}
	var apps []firestoreAppliance
	if err := readAll(ctx, f.client.Collection(collectionAppliances).Documents(ctx), &apps); err != nil {
		return nil, fmt.Errorf("failed to read appliances: %w", err)
	}

	slices.SortStableFunc(cats, func(a, b firestoreCategory) int {
		return cmp.Or(cmp.Compare(a.Order, b.Order), strings.Compare(a.Name, b.Name))
	})
	slices.SortStableFunc(apps, func(a, b firestoreAppliance) int {
		return cmp.Or(cmp.Compare(a.Order, b.Order), strings.Compare(a.Name, b.Name))
	})

	categories := make([]types.Category, 0, len(cats))
	for _, c := range cats {
		cat := types.Category{
			Category:   c.Name,
			Appliances: []types.Archetype{},
		}
		for _, a := range apps {
			if a.Category != c.Name {
				continue
			}
			cat.Appliances = append(cat.Appliances, types.Archetype{
				Name:         a.Name,
				MinWatts:     a.MinWatts,
				MaxWatts:     a.MaxWatts,
				DefaultWatts: a.DefaultWatts,
			})
		}
		categories = append(categories, cat)
	}
	return categories, nil
}

// LatestTariff implements Source. The rate with the latest effective time
// wins. An empty collection yields the fallback tariff.
func (f *FirestoreSource) LatestTariff(ctx context.Context) (types.Tariff, error) {
	iter := f.client.Collection(collectionRates).
		OrderBy("effective", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		log.Ctx(ctx).WarnContext(ctx, "no catalog rates found, using fallback tariff")
		return f.fallback, nil
	}
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return f.fallback, nil
		}
		return types.Tariff{}, fmt.Errorf("failed to query latest rate: %w", err)
	}

	var r firestoreRate
	if err := doc.DataTo(&r); err != nil {
		return types.Tariff{}, fmt.Errorf("failed to decode rate %s: %w", doc.Ref.ID, err)
	}
	return tariffFromFields(r.Rate, true, r.Month, r.Year, r.Notes, f.fallback), nil
}

// Seed writes d into the catalog collections. Existing documents with the same
// IDs are overwritten. The tariff is stored with the given effective time.
func (f *FirestoreSource) Seed(ctx context.Context, d Dataset, effective time.Time) error {
	for i, c := range d.Categories {
		if docID(c.Category) == "" {
			return fmt.Errorf("category %d has no usable name: %q", i, c.Category)
		}
		doc := firestoreCategory{Name: c.Category, Order: i}
		if _, err := f.client.Collection(collectionCategories).Doc(docID(c.Category)).Set(ctx, doc); err != nil {
			return fmt.Errorf("failed to set category %s: %w", c.Category, err)
		}
		for j, a := range c.Appliances {
			if docID(a.Name) == "" {
				return fmt.Errorf("appliance %d in %s has no usable name: %q", j, c.Category, a.Name)
			}
			doc := firestoreAppliance{
				Name:         a.Name,
				Category:     c.Category,
				Order:        j,
				MinWatts:     a.MinWatts,
				MaxWatts:     a.MaxWatts,
				DefaultWatts: a.DefaultWatts,
			}
			if _, err := f.client.Collection(collectionAppliances).Doc(docID(a.Name)).Set(ctx, doc); err != nil {
				return fmt.Errorf("failed to set appliance %s: %w", a.Name, err)
			}
		}
	}

	rate := firestoreRate{
		Rate:      d.Tariff.Rate,
		Month:     d.Tariff.Month,
		Year:      d.Tariff.Year,
		Notes:     d.Tariff.Notes,
		Effective: effective.UTC(),
	}
	// document ids sort by effective time
	id := effective.UTC().Format("20060102T150405Z")
	if _, err := f.client.Collection(collectionRates).Doc(id).Set(ctx, rate); err != nil {
		return fmt.Errorf("failed to set rate %s: %w", id, err)
	}

	log.Ctx(ctx).InfoContext(
		ctx,
		"seeded firestore catalog",
		slog.Int("categories", len(d.Categories)),
		slog.String("rateID", id),
	)
	return nil
}

func readAll[T any](ctx context.Context, iter *firestore.DocumentIterator, out *[]T) error {
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return err
		}
		var v T
		if err := doc.DataTo(&v); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "skipping malformed catalog document", slog.String("id", doc.Ref.ID), slog.Any("error", err))
			continue
		}
		*out = append(*out, v)
	}
	return nil
}

// docID turns a display name into a Firestore-safe document ID.
func docID(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
