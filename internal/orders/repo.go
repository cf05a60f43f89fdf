package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// Repo is the Postgres-backed Store.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) GetBuyer(ctx context.Context, id string) (Buyer, error) {
	var b Buyer
	err := r.DB.QueryRow(ctx,
		`SELECT id, name, role, total_money_cents FROM buyers WHERE id=$1`, id).
		Scan(&b.ID, &b.Name, &b.Role, &b.TotalMoneyCents)
	if errors.Is(err, pgx.ErrNoRows) {
		return Buyer{}, ErrBuyerNotFound
	}
	if err != nil {
		return Buyer{}, err
	}
	return b, nil
}

func (r *Repo) GetProProfile(ctx context.Context, buyerID string) (*ProProfile, error) {
	p := &ProProfile{BuyerID: buyerID, Assets: map[string]ProTerms{}}
	err := r.DB.QueryRow(ctx,
		`SELECT credit_limit_cents FROM pro_profiles WHERE buyer_id=$1`, buyerID).
		Scan(&p.CreditLimitCents)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx,
		`SELECT asset_name, min_quantity, max_quantity, price_cents
		 FROM pro_overrides WHERE buyer_id=$1`, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var t ProTerms
		if err := rows.Scan(&name, &t.MinQuantity, &t.MaxQuantity, &t.PriceCents); err != nil {
			return nil, err
		}
		p.Assets[name] = t
	}
	return p, rows.Err()
}

func (r *Repo) ListAssets(ctx context.Context) ([]Asset, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT name, price_cents, stock, min_quantity, max_quantity, created_at, updated_at
		 FROM assets ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Asset
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.Name, &a.PriceCents, &a.Stock, &a.MinQuantity, &a.MaxQuantity, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAssets loads the named assets; missing names are simply absent from
// the result.
func (r *Repo) GetAssets(ctx context.Context, names []string) ([]Asset, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT name, price_cents, stock, min_quantity, max_quantity, created_at, updated_at
		 FROM assets WHERE name = ANY($1)`, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Asset
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.Name, &a.PriceCents, &a.Stock, &a.MinQuantity, &a.MaxQuantity, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repo) ListBuyerOrdersSince(ctx context.Context, buyerID string, since time.Time, statuses []Status) ([]Order, error) {
	ss := make([]string, 0, len(statuses))
	for _, s := range statuses {
		ss = append(ss, string(s))
	}
	rows, err := r.DB.Query(ctx,
		`SELECT o.id, o.order_ref, o.amount_cents, o.status, o.created_at,
		        l.asset_name, l.quantity, l.price_cents
		 FROM orders o JOIN order_lines l ON l.order_id = o.id
		 WHERE o.buyer_id=$1 AND o.created_at >= $2 AND o.status = ANY($3)
		 ORDER BY o.created_at`, buyerID, since, ss)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	idx := map[string]int{}
	for rows.Next() {
		var o Order
		var l OrderLine
		if err := rows.Scan(&o.ID, &o.OrderRef, &o.AmountCents, &o.Status, &o.CreatedAt,
			&l.AssetName, &l.Quantity, &l.PriceCents); err != nil {
			return nil, err
		}
		i, ok := idx[o.ID]
		if !ok {
			o.BuyerID = buyerID
			out = append(out, o)
			i = len(out) - 1
			idx[o.ID] = i
		}
		out[i].Lines = append(out[i].Lines, l)
	}
	return out, rows.Err()
}

// Settle applies the whole settlement in one transaction. The buyer row
// and every asset row are locked FOR UPDATE, and stock and funding are
// re-validated under those locks: the pre-commit checks may be stale by
// the time we get here.
func (r *Repo) Settle(ctx context.Context, s Settlement) (int64, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		role        Role
		balance     int64
		creditLimit int64
	)
	err = tx.QueryRow(ctx,
		`SELECT b.role, b.total_money_cents, COALESCE(p.credit_limit_cents, 0)
		 FROM buyers b LEFT JOIN pro_profiles p ON p.buyer_id = b.id
		 WHERE b.id=$1 FOR UPDATE OF b`, s.Order.BuyerID).
		Scan(&role, &balance, &creditLimit)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrBuyerNotFound
	}
	if err != nil {
		return 0, err
	}

	newBalance := balance - s.Order.AmountCents
	floor := int64(0)
	if role == RolePro {
		floor = -creditLimit
	}
	if newBalance < floor {
		return 0, ErrFundsConflict
	}

	// Lock assets in name order so two settlements over overlapping carts
	// cannot deadlock on each other's row locks.
	for _, l := range sortedByAsset(s.Order.Lines) {
		var stock int
		err := tx.QueryRow(ctx, `SELECT stock FROM assets WHERE name=$1 FOR UPDATE`, l.AssetName).Scan(&stock)
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%s: %w", l.AssetName, ErrStockConflict)
		}
		if err != nil {
			return 0, err
		}
		if stock < l.Quantity {
			return 0, fmt.Errorf("%s: %w", l.AssetName, ErrStockConflict)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE assets SET stock = stock - $2, updated_at = now() WHERE name=$1`,
			l.AssetName, l.Quantity); err != nil {
			return 0, err
		}
	}

	var extID any
	if s.Order.ExternalID != "" {
		extID = s.Order.ExternalID
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO orders(id, order_ref, external_id, buyer_id, amount_cents, status, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		s.Order.ID, s.Order.OrderRef, extID, s.Order.BuyerID, s.Order.AmountCents, s.Order.Status, s.Order.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			if strings.Contains(pgErr.ConstraintName, "external_id") {
				return 0, ErrExternalIDConflict
			}
			return 0, ErrRefConflict
		}
		return 0, err
	}

	for _, l := range s.Order.Lines {
		if _, err := tx.Exec(ctx,
			`INSERT INTO order_lines(order_id, asset_name, quantity, price_cents)
			 VALUES ($1,$2,$3,$4)`,
			s.Order.ID, l.AssetName, l.Quantity, l.PriceCents); err != nil {
			return 0, err
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE buyers SET total_money_cents=$2 WHERE id=$1`,
		s.Order.BuyerID, newBalance); err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO wallet_entries(buyer_id, amount_cents, order_ref, purpose, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		s.Order.BuyerID, s.Order.AmountCents, s.Order.OrderRef, s.Purpose, s.Order.CreatedAt); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// sortedByAsset returns a name-ordered copy; the caller's slice keeps the
// submission order for inserts.
func sortedByAsset(lines []OrderLine) []OrderLine {
	out := make([]OrderLine, len(lines))
	copy(out, lines)
	sort.Slice(out, func(i, j int) bool { return out[i].AssetName < out[j].AssetName })
	return out
}

func (r *Repo) GetOrderByExternalID(ctx context.Context, externalID string) (Order, error) {
	var o Order
	o.ExternalID = externalID
	err := r.DB.QueryRow(ctx,
		`SELECT id, order_ref, buyer_id, amount_cents, status, created_at
		 FROM orders WHERE external_id=$1`, externalID).
		Scan(&o.ID, &o.OrderRef, &o.BuyerID, &o.AmountCents, &o.Status, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *Repo) GetOrderStatus(ctx context.Context, orderRef string) (Status, error) {
	var s string
	err := r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE order_ref=$1`, orderRef).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrOrderNotFound
	}
	if err != nil {
		return "", err
	}
	return Status(s), nil
}

func (r *Repo) ListWalletEntries(ctx context.Context, buyerID string) ([]WalletEntry, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, buyer_id, amount_cents, order_ref, purpose, created_at
		 FROM wallet_entries WHERE buyer_id=$1 ORDER BY created_at DESC`, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WalletEntry
	for rows.Next() {
		var e WalletEntry
		if err := rows.Scan(&e.ID, &e.BuyerID, &e.AmountCents, &e.OrderRef, &e.Purpose, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
