package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sharedtable/fare/internal/domain"
)

// ─── Loyalty Shop ───────────────────────────────────────────────────────────

const itemQuery = `SELECT id, name, description, cost, stock_quantity, available FROM loyalty_items`

// UpsertLoyaltyItem inserts or updates a catalog item.
func (d *DB) UpsertLoyaltyItem(item domain.LoyaltyItem) error {
	var stock sql.NullInt64
	if item.StockQuantity != nil {
		stock = sql.NullInt64{Int64: int64(*item.StockQuantity), Valid: true}
	}
	_, err := d.db.Exec(
		`INSERT INTO loyalty_items (id, name, description, cost, stock_quantity, available)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name=excluded.name,
			description=excluded.description,
			cost=excluded.cost,
			stock_quantity=excluded.stock_quantity,
			available=excluded.available`,
		item.ID, item.Name, item.Description, item.Cost, stock, item.Available,
	)
	return err
}

// LoyaltyItems returns the catalog ordered by cost.
func (d *DB) LoyaltyItems() ([]domain.LoyaltyItem, error) {
	rows, err := d.db.Query(itemQuery + ` ORDER BY cost, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.LoyaltyItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

// LoyaltyItemRow reads one catalog item inside the transaction, or nil.
func (t *Tx) LoyaltyItemRow(itemID string) (*domain.LoyaltyItem, error) {
	return scanItem(t.tx.QueryRow(itemQuery+` WHERE id = ?`, itemID))
}

// DecrementStock conditionally takes one unit of a stock-limited item.
// The guard is the statement itself, so stock can never go negative. Returns
// false when no unit was available.
func (t *Tx) DecrementStock(itemID string) (bool, error) {
	res, err := t.tx.Exec(
		`UPDATE loyalty_items SET stock_quantity = stock_quantity - 1
		 WHERE id = ? AND stock_quantity IS NOT NULL AND stock_quantity > 0`,
		itemID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// InsertRedemption records one spend against the catalog.
func (t *Tx) InsertRedemption(r domain.LoyaltyRedemption) error {
	_, err := t.tx.Exec(
		`INSERT INTO loyalty_redemptions (id, user_id, item_id, code, points_spent, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.ItemID, r.Code, r.PointsSpent, r.CreatedAt.Unix(),
	)
	return err
}

// Redemptions returns a user's redemption history, newest first.
func (d *DB) Redemptions(userID string, limit int) ([]domain.LoyaltyRedemption, error) {
	rows, err := d.db.Query(
		`SELECT id, user_id, item_id, code, points_spent, created_at
		 FROM loyalty_redemptions WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reds []domain.LoyaltyRedemption
	for rows.Next() {
		var r domain.LoyaltyRedemption
		var createdAt int64
		if err := rows.Scan(&r.ID, &r.UserID, &r.ItemID, &r.Code, &r.PointsSpent, &createdAt); err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		r.CreatedAt = time.Unix(createdAt, 0).UTC()
		reds = append(reds, r)
	}
	return reds, rows.Err()
}

func scanItem(s scanner) (*domain.LoyaltyItem, error) {
	var it domain.LoyaltyItem
	var stock sql.NullInt64
	err := s.Scan(&it.ID, &it.Name, &it.Description, &it.Cost, &stock, &it.Available)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan loyalty item: %w", err)
	}
	if stock.Valid {
		n := int(stock.Int64)
		it.StockQuantity = &n
	}
	return &it, nil
}
