// Package mongo implements the Factor store on MongoDB via Grove ORM.
// Conditional writes are expressed as a {_id, version} filter: a zero
// MatchedCount means the caller's version token went stale.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	factor "github.com/xraph/factor"
	"github.com/xraph/factor/id"
	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/offer"
	factorstore "github.com/xraph/factor/store"
)

// Collection name constants.
const (
	colInvoices = "factor_invoices"
	colOffers   = "factor_offers"
)

// compile-time interface check
var _ factorstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all factor collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("factor/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Invoice Store ====================

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	m := toInvoiceModel(inv)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return factor.ErrAlreadyExists
		}
		return fmt.Errorf("factor/mongo: create invoice: %w", err)
	}
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	var m invoiceModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": invID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, factor.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("factor/mongo: get invoice: %w", err)
	}
	return fromInvoiceModel(&m)
}

// UpdateInvoice is a conditional write fenced on the invoice's loaded
// version. The committed revision is reflected back onto the caller's
// copy.
func (s *Store) UpdateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	m := toInvoiceModel(inv)
	m.Version = inv.Version + 1
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID, "version": inv.Version}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("factor/mongo: update invoice: %w", err)
	}
	if res.MatchedCount() == 0 {
		return s.classifyInvoiceMiss(ctx, inv.ID)
	}

	inv.Version = m.Version
	inv.UpdatedAt = m.UpdatedAt
	return nil
}

// classifyInvoiceMiss distinguishes "gone" from "stale token" after a
// conditional write matched nothing.
func (s *Store) classifyInvoiceMiss(ctx context.Context, invID id.InvoiceID) error {
	err := s.mdb.NewFind(&invoiceModel{}).
		Filter(bson.M{"_id": invID.String()}).
		Scan(ctx)
	if isNoDocuments(err) {
		return factor.ErrInvoiceNotFound
	}
	if err != nil {
		return fmt.Errorf("factor/mongo: classify invoice miss: %w", err)
	}
	return factor.ErrVersionConflict
}

func (s *Store) ListInvoicesBySeller(ctx context.Context, sellerID id.SellerID, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	var models []invoiceModel

	filter := bson.M{"seller_id": sellerID.String()}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("factor/mongo: list invoices by seller: %w", err)
	}

	return fromInvoiceModels(models)
}

func (s *Store) BrowseListedInvoices(ctx context.Context, opts invoice.BrowseOpts) ([]*invoice.Invoice, error) {
	var models []invoiceModel

	browseNow := opts.Now
	if browseNow.IsZero() {
		browseNow = now()
	}

	filter := bson.M{"status": string(invoice.StatusListed)}
	if opts.MinAmount > 0 || opts.MaxAmount > 0 {
		amount := bson.M{}
		if opts.MinAmount > 0 {
			amount["$gte"] = opts.MinAmount
		}
		if opts.MaxAmount > 0 {
			amount["$lte"] = opts.MaxAmount
		}
		filter["face_amount_cents"] = amount
	}
	if !opts.AnchorID.IsNil() {
		filter["anchor_id"] = opts.AnchorID.String()
	}
	if opts.MaxDaysUntilDue > 0 {
		// ceil(due - now) <= N days is exactly due <= now + N days.
		filter["due_date"] = bson.M{"$lte": browseNow.AddDate(0, 0, opts.MaxDaysUntilDue)}
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("factor/mongo: browse listed invoices: %w", err)
	}

	return fromInvoiceModels(models)
}

func (s *Store) CountInvoicesByStatus(ctx context.Context) (map[invoice.Status]int64, error) {
	pipeline := bson.A{
		bson.M{"$group": bson.M{
			"_id":   "$status",
			"count": bson.M{"$sum": 1},
		}},
	}

	cursor, err := s.mdb.Collection(colInvoices).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("factor/mongo: count invoices: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("factor/mongo: count invoices decode: %w", err)
	}

	counts := make(map[invoice.Status]int64, len(results))
	for _, r := range results {
		counts[invoice.Status(r.Status)] = r.Count
	}
	return counts, nil
}

// ==================== Offer Store ====================

func (s *Store) CreateOffer(ctx context.Context, o *offer.Offer) error {
	m := toOfferModel(o)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return factor.ErrAlreadyExists
		}
		return fmt.Errorf("factor/mongo: create offer: %w", err)
	}
	return nil
}

func (s *Store) GetOffer(ctx context.Context, offerID id.OfferID) (*offer.Offer, error) {
	var m offerModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": offerID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, factor.ErrOfferNotFound
		}
		return nil, fmt.Errorf("factor/mongo: get offer: %w", err)
	}
	return fromOfferModel(&m)
}

// UpdateOffer is a conditional write fenced on the offer's loaded
// version, mirroring UpdateInvoice.
func (s *Store) UpdateOffer(ctx context.Context, o *offer.Offer) error {
	m := toOfferModel(o)
	m.Version = o.Version + 1
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID, "version": o.Version}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("factor/mongo: update offer: %w", err)
	}
	if res.MatchedCount() == 0 {
		return s.classifyOfferMiss(ctx, o.ID)
	}

	o.Version = m.Version
	o.UpdatedAt = m.UpdatedAt
	return nil
}

func (s *Store) classifyOfferMiss(ctx context.Context, offerID id.OfferID) error {
	err := s.mdb.NewFind(&offerModel{}).
		Filter(bson.M{"_id": offerID.String()}).
		Scan(ctx)
	if isNoDocuments(err) {
		return factor.ErrOfferNotFound
	}
	if err != nil {
		return fmt.Errorf("factor/mongo: classify offer miss: %w", err)
	}
	return factor.ErrVersionConflict
}

func (s *Store) ListOffersByInvoice(ctx context.Context, invoiceID id.InvoiceID, opts offer.ListOpts) ([]*offer.Offer, error) {
	var models []offerModel

	filter := bson.M{"invoice_id": invoiceID.String()}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("factor/mongo: list offers by invoice: %w", err)
	}

	return fromOfferModels(models)
}

func (s *Store) ListOffersByLender(ctx context.Context, lenderID id.LenderID, opts offer.PortfolioOpts) ([]*offer.Offer, error) {
	var models []offerModel

	filter := bson.M{"lender_id": lenderID.String()}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	if !opts.From.IsZero() || !opts.To.IsZero() {
		created := bson.M{}
		if !opts.From.IsZero() {
			created["$gte"] = opts.From
		}
		if !opts.To.IsZero() {
			created["$lt"] = opts.To
		}
		filter["created_at"] = created
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("factor/mongo: list offers by lender: %w", err)
	}

	return fromOfferModels(models)
}

func (s *Store) ListExpirableOffers(ctx context.Context, dueAt time.Time, limit int) ([]*offer.Offer, error) {
	var models []offerModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{
			"status":     string(offer.StatusPending),
			"expires_at": bson.M{"$lte": dueAt},
		}).
		Sort(bson.D{{Key: "expires_at", Value: 1}})

	if limit > 0 {
		q = q.Limit(int64(limit))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("factor/mongo: list expirable offers: %w", err)
	}

	return fromOfferModels(models)
}

func (s *Store) CountOffersByStatus(ctx context.Context) (map[offer.Status]int64, error) {
	pipeline := bson.A{
		bson.M{"$group": bson.M{
			"_id":   "$status",
			"count": bson.M{"$sum": 1},
		}},
	}

	cursor, err := s.mdb.Collection(colOffers).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("factor/mongo: count offers: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("factor/mongo: count offers decode: %w", err)
	}

	counts := make(map[offer.Status]int64, len(results))
	for _, r := range results {
		counts[offer.Status(r.Status)] = r.Count
	}
	return counts, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

func fromInvoiceModels(models []invoiceModel) ([]*invoice.Invoice, error) {
	result := make([]*invoice.Invoice, len(models))
	for i := range models {
		inv, err := fromInvoiceModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = inv
	}
	return result, nil
}

func fromOfferModels(models []offerModel) ([]*offer.Offer, error) {
	result := make([]*offer.Offer, len(models))
	for i := range models {
		o, err := fromOfferModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = o
	}
	return result, nil
}

// migrationIndexes returns the index definitions for all factor collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colInvoices: {
			{Keys: bson.D{{Key: "seller_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "anchor_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "due_date", Value: 1}}},
		},
		colOffers: {
			{Keys: bson.D{{Key: "invoice_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "lender_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}}},
			{
				Keys: bson.D{{Key: "invoice_id", Value: 1}, {Key: "status", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetName("one_accepted_offer_per_invoice").
					SetPartialFilterExpression(bson.M{"status": string(offer.StatusAccepted)}),
			},
		},
	}
}
