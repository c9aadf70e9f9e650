package postgres

import (
	"context"
	"errors"
	"time"

	"admitpay/internal/domain/payment"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// paymentRepository implements repositories.PaymentStore with pure data access.
type paymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *paymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `id, reference, applicant_user_id, session_id, program_id,
	amount, payment_type, status, paid_at, application_id, created_at, updated_at`

// Create inserts a new pending record. The unique index on reference turns
// a replayed insert into payment.ErrDuplicateReference.
func (r *paymentRepository) Create(ctx context.Context, rec *payment.Record) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO payment_records (
			reference, applicant_user_id, session_id, program_id,
			amount, payment_type, status, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id`,
		rec.Reference, rec.ApplicantUserID, rec.SessionID, rec.ProgramID,
		int64(rec.Amount), string(rec.Type), string(rec.Status),
		rec.CreatedAt, rec.UpdatedAt,
	).Scan(&rec.ID)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return payment.ErrDuplicateReference
	}
	return err
}

func (r *paymentRepository) FindByReference(ctx context.Context, reference string) (*payment.Record, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		  FROM payment_records
		 WHERE reference = $1`, reference)
	rec, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, payment.ErrNotFound
	}
	return rec, err
}

// UpdateStatusIfPending is the compare-and-swap of the whole subsystem:
// a single conditional UPDATE whose affected-row count tells the caller
// whether it won the race. Concurrent webhook and verify deliveries for
// the same reference serialize here, with no in-process locking.
func (r *paymentRepository) UpdateStatusIfPending(ctx context.Context, reference string, status payment.Status, amount payment.Money, paidAt *time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE payment_records
		   SET status     = $2,
		       amount     = CASE WHEN $3 > 0 THEN $3 ELSE amount END,
		       paid_at    = COALESCE($4, paid_at),
		       updated_at = now()
		 WHERE reference = $1 AND status = 'pending'`,
		reference, string(status), int64(amount), paidAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *paymentRepository) SetApplicationID(ctx context.Context, reference string, applicationID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE payment_records
		   SET application_id = $2, updated_at = now()
		 WHERE reference = $1 AND application_id IS NULL`,
		reference, applicationID,
	)
	return err
}

func (r *paymentRepository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*payment.Record, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+paymentColumns+`
		  FROM payment_records
		 WHERE status = 'pending' AND created_at < $1
		 ORDER BY created_at ASC
		 LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPayments(rows)
}

func (r *paymentRepository) ListByApplicant(ctx context.Context, applicantUserID int64, limit, offset int) ([]*payment.Record, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+paymentColumns+`
		  FROM payment_records
		 WHERE applicant_user_id = $1
		 ORDER BY id DESC
		 LIMIT $2 OFFSET $3`, applicantUserID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPayments(rows)
}

func scanPayment(row pgx.Row) (*payment.Record, error) {
	var rec payment.Record
	var amount int64
	var typ, status string
	err := row.Scan(
		&rec.ID, &rec.Reference, &rec.ApplicantUserID, &rec.SessionID, &rec.ProgramID,
		&amount, &typ, &status, &rec.PaidAt, &rec.ApplicationID, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Amount = payment.Money(amount)
	rec.Type = payment.Type(typ)
	rec.Status = payment.Status(status)
	return &rec, nil
}

func collectPayments(rows pgx.Rows) ([]*payment.Record, error) {
	var out []*payment.Record
	for rows.Next() {
		rec, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
