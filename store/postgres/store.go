// Package postgres implements the Factor store on PostgreSQL via Grove
// ORM. Conditional writes are expressed as UPDATE ... WHERE id AND
// version: zero rows affected means the caller's version token went
// stale.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	factor "github.com/xraph/factor"
	"github.com/xraph/factor/id"
	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/offer"
	factorstore "github.com/xraph/factor/store"
)

// compile-time interface check
var _ factorstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("factor/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("factor/postgres: migration failed: %w", err)
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
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	m := new(invoiceModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", invID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, factor.ErrInvoiceNotFound
		}
		return nil, err
	}
	return fromInvoiceModel(m)
}

// UpdateInvoice is a conditional write fenced on the invoice's loaded
// version. The committed revision is reflected back onto the caller's
// copy.
func (s *Store) UpdateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	m := toInvoiceModel(inv)
	m.Version = inv.Version + 1
	m.UpdatedAt = now()

	res, err := s.pg.NewUpdate(m).
		Where("id = $1", m.ID).
		Where("version = $2", inv.Version).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return s.classifyInvoiceMiss(ctx, inv.ID)
	}

	inv.Version = m.Version
	inv.UpdatedAt = m.UpdatedAt
	return nil
}

// classifyInvoiceMiss distinguishes "gone" from "stale token" after a
// conditional write touched no rows.
func (s *Store) classifyInvoiceMiss(ctx context.Context, invID id.InvoiceID) error {
	err := s.pg.NewSelect(new(invoiceModel)).
		Where("id = $1", invID.String()).
		Scan(ctx)
	if isNoRows(err) {
		return factor.ErrInvoiceNotFound
	}
	if err != nil {
		return err
	}
	return factor.ErrVersionConflict
}

func (s *Store) ListInvoicesBySeller(ctx context.Context, sellerID id.SellerID, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	var models []invoiceModel
	q := s.pg.NewSelect(&models).Where("seller_id = $1", sellerID.String())

	argIdx := 1
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromInvoiceModels(models)
}

func (s *Store) BrowseListedInvoices(ctx context.Context, opts invoice.BrowseOpts) ([]*invoice.Invoice, error) {
	var models []invoiceModel

	browseNow := opts.Now
	if browseNow.IsZero() {
		browseNow = now()
	}

	q := s.pg.NewSelect(&models).Where("status = $1", string(invoice.StatusListed))

	argIdx := 1
	if opts.MinAmount > 0 {
		argIdx++
		q = q.Where(fmt.Sprintf("face_amount_cents >= $%d", argIdx), opts.MinAmount)
	}
	if opts.MaxAmount > 0 {
		argIdx++
		q = q.Where(fmt.Sprintf("face_amount_cents <= $%d", argIdx), opts.MaxAmount)
	}
	if !opts.AnchorID.IsNil() {
		argIdx++
		q = q.Where(fmt.Sprintf("anchor_id = $%d", argIdx), opts.AnchorID.String())
	}
	if opts.MaxDaysUntilDue > 0 {
		// ceil(due - now) <= N days is exactly due <= now + N days.
		argIdx++
		q = q.Where(fmt.Sprintf("due_date <= $%d", argIdx), browseNow.AddDate(0, 0, opts.MaxDaysUntilDue))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromInvoiceModels(models)
}

func (s *Store) CountInvoicesByStatus(ctx context.Context) (map[invoice.Status]int64, error) {
	statuses := []invoice.Status{
		invoice.StatusDraft, invoice.StatusSubmitted, invoice.StatusAnchorApproved,
		invoice.StatusAdminVerified, invoice.StatusListed, invoice.StatusFunded,
		invoice.StatusRepaid, invoice.StatusSettled, invoice.StatusRejected,
	}

	counts := make(map[invoice.Status]int64)
	for _, status := range statuses {
		var count int64
		err := s.pg.NewRaw(`
			SELECT COUNT(*) FROM factor_invoices WHERE status = $1
		`, string(status)).Scan(ctx, &count)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			counts[status] = count
		}
	}
	return counts, nil
}

// ==================== Offer Store ====================

func (s *Store) CreateOffer(ctx context.Context, o *offer.Offer) error {
	m := toOfferModel(o)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetOffer(ctx context.Context, offerID id.OfferID) (*offer.Offer, error) {
	m := new(offerModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", offerID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, factor.ErrOfferNotFound
		}
		return nil, err
	}
	return fromOfferModel(m)
}

// UpdateOffer is a conditional write fenced on the offer's loaded
// version, mirroring UpdateInvoice.
func (s *Store) UpdateOffer(ctx context.Context, o *offer.Offer) error {
	m := toOfferModel(o)
	m.Version = o.Version + 1
	m.UpdatedAt = now()

	res, err := s.pg.NewUpdate(m).
		Where("id = $1", m.ID).
		Where("version = $2", o.Version).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return s.classifyOfferMiss(ctx, o.ID)
	}

	o.Version = m.Version
	o.UpdatedAt = m.UpdatedAt
	return nil
}

func (s *Store) classifyOfferMiss(ctx context.Context, offerID id.OfferID) error {
	err := s.pg.NewSelect(new(offerModel)).
		Where("id = $1", offerID.String()).
		Scan(ctx)
	if isNoRows(err) {
		return factor.ErrOfferNotFound
	}
	if err != nil {
		return err
	}
	return factor.ErrVersionConflict
}

func (s *Store) ListOffersByInvoice(ctx context.Context, invoiceID id.InvoiceID, opts offer.ListOpts) ([]*offer.Offer, error) {
	var models []offerModel
	q := s.pg.NewSelect(&models).Where("invoice_id = $1", invoiceID.String())

	argIdx := 1
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromOfferModels(models)
}

func (s *Store) ListOffersByLender(ctx context.Context, lenderID id.LenderID, opts offer.PortfolioOpts) ([]*offer.Offer, error) {
	var models []offerModel
	q := s.pg.NewSelect(&models).Where("lender_id = $1", lenderID.String())

	argIdx := 1
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if !opts.From.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("created_at >= $%d", argIdx), opts.From)
	}
	if !opts.To.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("created_at < $%d", argIdx), opts.To)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromOfferModels(models)
}

func (s *Store) ListExpirableOffers(ctx context.Context, dueAt time.Time, limit int) ([]*offer.Offer, error) {
	var models []offerModel
	q := s.pg.NewSelect(&models).
		Where("status = $1", string(offer.StatusPending)).
		Where("expires_at <= $2", dueAt).
		OrderExpr("expires_at ASC")

	if limit > 0 {
		q = q.Limit(limit)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromOfferModels(models)
}

func (s *Store) CountOffersByStatus(ctx context.Context) (map[offer.Status]int64, error) {
	statuses := []offer.Status{
		offer.StatusPending, offer.StatusAccepted, offer.StatusRejected,
		offer.StatusWithdrawn, offer.StatusExpired,
	}

	counts := make(map[offer.Status]int64)
	for _, status := range statuses {
		var count int64
		err := s.pg.NewRaw(`
			SELECT COUNT(*) FROM factor_offers WHERE status = $1
		`, string(status)).Scan(ctx, &count)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			counts[status] = count
		}
	}
	return counts, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks if an error wraps sql.ErrNoRows.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
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
