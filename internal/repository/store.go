package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mogumap/coupon-engine/internal/domain"
)

// Constraint names from db/migrations; used to tell a lost code race apart
// from a duplicate issuance when an insert hits a unique index.
const (
	ConstraintGrantCode = "coupon_grants_code_key"
	ConstraintGrantUser = "coupon_grants_definition_id_user_id_key"
)

type CreateDefinitionParams struct {
	UUID           string
	StoreID        string
	Kind           domain.CouponKind
	DiscountType   string
	DiscountAmount int
	GiftMenuName   string
	ExpiryDate     *time.Time
}

type InsertGrantParams struct {
	DefinitionID int64
	UserID       string
	Code         string
	ImageRef     string
}

type Store interface {
	ExecTx(ctx context.Context, fn func(Querier) error) error
	CreateDefinition(ctx context.Context, arg CreateDefinitionParams) (domain.CouponDefinition, error)
	GetDefinitionByUUID(ctx context.Context, uuid string) (domain.CouponDefinition, error)
	ListDueDefinitions(ctx context.Context, now time.Time) ([]domain.CouponDefinition, error)
	InsertGrant(ctx context.Context, arg InsertGrantParams) (domain.CouponGrant, error)
	GetGrantByCode(ctx context.Context, code string) (domain.CouponGrant, error)
	GrantExists(ctx context.Context, definitionID int64, userID string) (bool, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	ListGrantsByUser(ctx context.Context, userID string) ([]domain.CouponGrant, error)
	MarkGrantUsed(ctx context.Context, code string) (domain.CouponGrant, error)
	AttachGrantImage(ctx context.Context, grantID int64, imageRef string) error
	CountGrantsByDefinition(ctx context.Context, definitionID int64) (domain.DefinitionStats, error)
}

// Querier is the transaction-scoped subset used by the sweeper: one
// definition's status flip and its grant propagation commit together.
type Querier interface {
	ExpireDefinition(ctx context.Context, id int64) (int64, error)
	ExpireOpenGrants(ctx context.Context, definitionID int64) (int64, error)
}

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type queries struct {
	db DBTX
}

type store struct {
	pool *pgxpool.Pool
	queries
}

func New(pool *pgxpool.Pool) Store {
	return &store{pool: pool, queries: queries{db: pool}}
}

func (s *store) ExecTx(ctx context.Context, fn func(Querier) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	q := &queries{db: tx}
	if err := fn(q); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx err: %v, rollback err: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const definitionColumns = `id, uuid, store_id, kind,
       COALESCE(discount_type, ''), COALESCE(discount_amount, 0),
       COALESCE(gift_menu_name, ''), status, has_expiry_date, expiry_date, created_at`

func scanDefinition(row pgx.Row) (domain.CouponDefinition, error) {
	var d domain.CouponDefinition
	err := row.Scan(
		&d.ID,
		&d.UUID,
		&d.StoreID,
		&d.Kind,
		&d.DiscountType,
		&d.DiscountAmount,
		&d.GiftMenuName,
		&d.Status,
		&d.HasExpiryDate,
		&d.ExpiryDate,
		&d.CreatedAt,
	)
	return d, err
}

func (q *queries) CreateDefinition(ctx context.Context, arg CreateDefinitionParams) (domain.CouponDefinition, error) {
	query := `
		INSERT INTO coupon_definitions
			(uuid, store_id, kind, discount_type, discount_amount, gift_menu_name, has_expiry_date, expiry_date)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, 0), NULLIF($6, ''), $7, $8)
		RETURNING ` + definitionColumns
	return scanDefinition(q.db.QueryRow(ctx, query,
		arg.UUID,
		arg.StoreID,
		arg.Kind,
		arg.DiscountType,
		arg.DiscountAmount,
		arg.GiftMenuName,
		arg.ExpiryDate != nil,
		arg.ExpiryDate,
	))
}

func (q *queries) GetDefinitionByUUID(ctx context.Context, uuid string) (domain.CouponDefinition, error) {
	query := `SELECT ` + definitionColumns + ` FROM coupon_definitions WHERE uuid = $1`
	return scanDefinition(q.db.QueryRow(ctx, query, uuid))
}

func (q *queries) ListDueDefinitions(ctx context.Context, now time.Time) ([]domain.CouponDefinition, error) {
	query := `
		SELECT ` + definitionColumns + `
		FROM coupon_definitions
		WHERE has_expiry_date AND status = $1 AND expiry_date < $2
		ORDER BY id`
	rows, err := q.db.Query(ctx, query, domain.StatusActive, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []domain.CouponDefinition
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

func (q *queries) ExpireDefinition(ctx context.Context, id int64) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE coupon_definitions SET status = $1 WHERE id = $2 AND status = $3`,
		domain.StatusExpired, id, domain.StatusActive)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const grantColumns = `id, definition_id, user_id, code, used, expired,
       COALESCE(image_ref, ''), created_at, used_at`

func scanGrant(row pgx.Row) (domain.CouponGrant, error) {
	var g domain.CouponGrant
	err := row.Scan(
		&g.ID,
		&g.DefinitionID,
		&g.UserID,
		&g.Code,
		&g.Used,
		&g.Expired,
		&g.ImageRef,
		&g.CreatedAt,
		&g.UsedAt,
	)
	return g, err
}

func (q *queries) InsertGrant(ctx context.Context, arg InsertGrantParams) (domain.CouponGrant, error) {
	query := `
		INSERT INTO coupon_grants (definition_id, user_id, code, image_ref)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		RETURNING ` + grantColumns
	return scanGrant(q.db.QueryRow(ctx, query, arg.DefinitionID, arg.UserID, arg.Code, arg.ImageRef))
}

func (q *queries) GetGrantByCode(ctx context.Context, code string) (domain.CouponGrant, error) {
	query := `SELECT ` + grantColumns + ` FROM coupon_grants WHERE code = $1`
	return scanGrant(q.db.QueryRow(ctx, query, code))
}

func (q *queries) GrantExists(ctx context.Context, definitionID int64, userID string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM coupon_grants WHERE definition_id = $1 AND user_id = $2)`,
		definitionID, userID).Scan(&exists)
	return exists, err
}

func (q *queries) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM coupon_grants WHERE code = $1)`,
		code).Scan(&exists)
	return exists, err
}

func (q *queries) ListGrantsByUser(ctx context.Context, userID string) ([]domain.CouponGrant, error) {
	query := `SELECT ` + grantColumns + ` FROM coupon_grants WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := q.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []domain.CouponGrant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// MarkGrantUsed is the single conditional update behind redemption: of any
// number of concurrent calls for one code, exactly one sees a row. Losers
// get pgx.ErrNoRows and must re-read to learn the terminal state.
func (q *queries) MarkGrantUsed(ctx context.Context, code string) (domain.CouponGrant, error) {
	query := `
		UPDATE coupon_grants
		SET used = TRUE, used_at = now()
		WHERE code = $1 AND NOT used AND NOT expired
		RETURNING ` + grantColumns
	return scanGrant(q.db.QueryRow(ctx, query, code))
}

func (q *queries) ExpireOpenGrants(ctx context.Context, definitionID int64) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE coupon_grants SET expired = TRUE WHERE definition_id = $1 AND NOT used AND NOT expired`,
		definitionID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *queries) AttachGrantImage(ctx context.Context, grantID int64, imageRef string) error {
	_, err := q.db.Exec(ctx,
		`UPDATE coupon_grants SET image_ref = $1 WHERE id = $2`,
		imageRef, grantID)
	return err
}

func (q *queries) CountGrantsByDefinition(ctx context.Context, definitionID int64) (domain.DefinitionStats, error) {
	var s domain.DefinitionStats
	err := q.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE used),
		       COUNT(*) FILTER (WHERE expired),
		       COUNT(*) FILTER (WHERE NOT used AND NOT expired)
		FROM coupon_grants
		WHERE definition_id = $1`,
		definitionID).Scan(&s.Total, &s.Used, &s.Expired, &s.Open)
	return s, err
}

// IsUniqueViolation reports whether err is a Postgres unique violation on
// the given constraint; an empty constraint matches any unique violation.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
