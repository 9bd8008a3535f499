package sampledata

import (
	"context"
	"database/sql"
	"fmt"
)

const insertOrderSQL = `INSERT INTO orders (id, customer_id, product_id, quantity, status, channel, total, ordered_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// LoadOrders appends count generated orders in a single transaction and
// returns the number inserted.
func LoadOrders(ctx context.Context, db *sql.DB, seed int64, count int) (int, error) {
	if count <= 0 {
		return 0, nil
	}
	customers, err := loadCustomerIDs(ctx, db)
	if err != nil {
		return 0, err
	}
	products, err := loadProducts(ctx, db)
	if err != nil {
		return 0, err
	}
	generator, err := NewGenerator(seed, customers, products)
	if err != nil {
		return 0, err
	}

	var lastID int64
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM orders`).Scan(&lastID); err != nil {
		return 0, fmt.Errorf("read last order id: %w", err)
	}
	generator.StartAfter(lastID)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertOrderSQL)
	if err != nil {
		return 0, fmt.Errorf("prepare order insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := 0; i < count; i++ {
		order := generator.NextOrder()
		if _, err := stmt.ExecContext(ctx,
			order.ID, order.CustomerID, order.ProductID, order.Quantity,
			order.Status, order.Channel, order.Total, order.OrderedAt,
		); err != nil {
			return 0, fmt.Errorf("insert order %d: %w", order.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit orders: %w", err)
	}
	return count, nil
}

func loadCustomerIDs(ctx context.Context, db *sql.DB) ([]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT id FROM customers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return ids, nil
}

func loadProducts(ctx context.Context, db *sql.DB) ([]Product, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, CAST(unit_price AS DOUBLE PRECISION) FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var products []Product
	for rows.Next() {
		var product Product
		if err := rows.Scan(&product.ID, &product.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return products, nil
}
