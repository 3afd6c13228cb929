package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rl1809/plate-catalog/internal/core/domain"
	"github.com/rl1809/plate-catalog/internal/port"
)

type Dialect string

const (
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
)

const plateColumns = `id, registration, letters, numbers, purchase_price, status, version, seq, created_at, updated_at`

// SQLAdapter persists plates and sales through database/sql. Queries are
// written with ? placeholders and rebound for postgres.
type SQLAdapter struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLAdapter(db *sql.DB, dialect Dialect) *SQLAdapter {
	return &SQLAdapter{db: db, dialect: dialect}
}

func (s *SQLAdapter) Get(ctx context.Context, id string) (*domain.Plate, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+plateColumns+`
		FROM plates WHERE id = ?`), id,
	)

	p, err := scanPlate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query plate: %w", err)
	}
	return &p, nil
}

func (s *SQLAdapter) List(ctx context.Context, filter port.ListFilter) ([]domain.Plate, error) {
	where, args := whereClause(filter)
	query := `SELECT ` + plateColumns + ` FROM plates` + where + ` ORDER BY ` + orderClause(filter.OrderBy)
	switch {
	case filter.Limit > 0:
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, max(filter.Offset, 0))
	case filter.Offset > 0 && s.dialect == DialectPostgres:
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	case filter.Offset > 0:
		// mysql has no OFFSET without LIMIT
		query += ` LIMIT 18446744073709551615 OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query plates: %w", err)
	}
	defer rows.Close()

	plates := make([]domain.Plate, 0)
	for rows.Next() {
		p, err := scanPlate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plate: %w", err)
		}
		plates = append(plates, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plates: %w", err)
	}
	return plates, nil
}

func (s *SQLAdapter) Count(ctx context.Context, filter port.ListFilter) (int, error) {
	where, args := whereClause(filter)

	var count int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM plates`+where), args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count plates: %w", err)
	}
	return count, nil
}

func (s *SQLAdapter) Add(ctx context.Context, plate domain.Plate) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO plates (id, registration, letters, numbers, purchase_price, status, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		plate.ID, plate.Registration, plate.Letters, plate.Numbers, plate.PurchasePrice,
		string(plate.Status), plate.Version, plate.CreatedAt, plate.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert plate: %w", err)
	}
	return nil
}

func (s *SQLAdapter) Save(ctx context.Context, plate domain.Plate) error {
	return s.update(ctx, s.db, plate)
}

func (s *SQLAdapter) SaveWithSale(ctx context.Context, plate domain.Plate, sale domain.Sale) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.update(ctx, tx, plate); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO sales (id, plate_id, purchase_price, sale_price, sold_at)
		VALUES (?, ?, ?, ?, ?)`),
		sale.ID, sale.PlateID, sale.PurchasePrice, sale.SalePrice, sale.SoldAt,
	)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}

	return tx.Commit()
}

func (s *SQLAdapter) Sales(ctx context.Context) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, plate_id, purchase_price, sale_price, sold_at
		FROM sales ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0)
	for rows.Next() {
		var sale domain.Sale
		if err := rows.Scan(&sale.ID, &sale.PlateID, &sale.PurchasePrice, &sale.SalePrice, &sale.SoldAt); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales: %w", err)
	}
	return sales, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLAdapter) update(ctx context.Context, db execer, plate domain.Plate) error {
	result, err := db.ExecContext(ctx, s.rebind(`
		UPDATE plates
		SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`),
		string(plate.Status), plate.UpdatedAt, plate.ID, plate.Version,
	)
	if err != nil {
		return fmt.Errorf("update plate: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update plate rows affected: %w", err)
	}
	if rows == 0 {
		return port.ErrOptimisticLock
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlate(row scanner) (domain.Plate, error) {
	var (
		p      domain.Plate
		status string
	)
	err := row.Scan(&p.ID, &p.Registration, &p.Letters, &p.Numbers, &p.PurchasePrice,
		&status, &p.Version, &p.Seq, &p.CreatedAt, &p.UpdatedAt)
	p.Status = domain.PlateStatus(status)
	return p, err
}

func whereClause(filter port.ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.Contains != "" {
		conds = append(conds, `registration LIKE ? ESCAPE '!'`)
		args = append(args, "%"+escapeLike(filter.Contains)+"%")
	}
	if filter.ExcludeReserved {
		conds = append(conds, `status <> ?`)
		args = append(args, string(domain.PlateStatusReserved))
	}
	if filter.ExcludeSold {
		conds = append(conds, `status <> ?`)
		args = append(args, string(domain.PlateStatusSold))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return ` WHERE ` + strings.Join(conds, ` AND `), args
}

// Sale price is a non-decreasing function of the two-decimal purchase price,
// so ordering by the stored column gives the same order.
func orderClause(orderBy domain.SortKey) string {
	switch orderBy {
	case domain.SortRegistrationDescending:
		return `registration DESC, seq ASC`
	case domain.SortSalePriceAscending:
		return `purchase_price ASC, seq ASC`
	case domain.SortSalePriceDescending:
		return `purchase_price DESC, seq ASC`
	default:
		return `registration ASC, seq ASC`
	}
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (s *SQLAdapter) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}

	var (
		b strings.Builder
		n int
	)
	b.Grow(len(query) + 8)
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
