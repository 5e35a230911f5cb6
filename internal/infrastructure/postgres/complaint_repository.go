package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/complaint-hub/complaint-hub/internal/domain/complaint"
)

const (
	uniqueViolation      = "23505"
	onePendingConstraint = "information_requests_one_pending"
)

const complaintColumns = `id, tracking_number, type, governorate, agency, description, status, version, locked, lock_owner_id, citizen_id, assigned_employee_id, response, responded_at, history_seq, created_at, updated_at`

const historyColumns = `id, complaint_id, sequence, action, field_name, old_value, new_value, metadata, actor_kind, actor_id, actor_name, signature, created_at`

const attachmentColumns = `id, complaint_id, original_name, stored_name, relative_path, content_type, size, checksum, uploaded_by, uploaded_at`

const requestColumns = `id, complaint_id, status, question, answer, reason, requested_by, requested_at, closed_by, closed_at`

// ComplaintRepository implements complaint.Repository.
type ComplaintRepository struct {
	pool *pgxpool.Pool
}

func NewComplaintRepository(pool *pgxpool.Pool) *ComplaintRepository {
	return &ComplaintRepository{pool: pool}
}

func (r *ComplaintRepository) Create(ctx context.Context, c *complaint.Complaint, history []*complaint.HistoryEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create complaint: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `
		INSERT INTO complaints (`+complaintColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`, c.ID, c.TrackingNumber, c.Type, c.Governorate, c.Agency, c.Description, c.Status, c.Version, c.Locked, c.LockOwnerID, c.CitizenID, c.AssignedEmployeeID, c.Response, c.RespondedAt, c.HistorySeq, c.CreatedAt, c.UpdatedAt); err != nil {
		return fmt.Errorf("insert complaint: %w", err)
	}
	if err := insertHistory(ctx, tx, history); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create complaint: %w", err)
	}
	return nil
}

func (r *ComplaintRepository) GetByID(ctx context.Context, id uuid.UUID) (*complaint.Complaint, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE id=$1`, id)
	return scanComplaint(row)
}

func (r *ComplaintRepository) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*complaint.Complaint, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE tracking_number=$1`, trackingNumber)
	return scanComplaint(row)
}

func (r *ComplaintRepository) List(ctx context.Context, filter complaint.Filter, limit, offset int) ([]*complaint.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints`
	args := []interface{}{}
	idx := 1
	if filter.Status != nil {
		query += addWhere(query) + " status=$" + itoa(idx)
		args = append(args, *filter.Status)
		idx++
	}
	if filter.CitizenID != nil {
		query += addWhere(query) + " citizen_id=$" + itoa(idx)
		args = append(args, *filter.CitizenID)
		idx++
	}
	if filter.AssignedEmployeeID != nil {
		query += addWhere(query) + " assigned_employee_id=$" + itoa(idx)
		args = append(args, *filter.AssignedEmployeeID)
		idx++
	}
	if filter.Agency != nil {
		query += addWhere(query) + " agency=$" + itoa(idx)
		args = append(args, *filter.Agency)
		idx++
	}
	query += " ORDER BY created_at DESC, tracking_number DESC LIMIT $" + itoa(idx) + " OFFSET $" + itoa(idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*complaint.Complaint{}
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Commit applies a change in one transaction. The complaint row update is
// conditional on the expected version; zero affected rows means another
// writer got there first and nothing else in the change is written.
func (r *ComplaintRepository) Commit(ctx context.Context, change *complaint.Change) error {
	c := change.Complaint
	if c.Version != change.ExpectedVersion+1 {
		return fmt.Errorf("commit must advance version by one: %d -> %d", change.ExpectedVersion, c.Version)
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	tag, err := tx.Exec(ctx, `
		UPDATE complaints
		SET type=$1, governorate=$2, agency=$3, description=$4, status=$5, version=$6, locked=$7, lock_owner_id=$8,
		    assigned_employee_id=$9, response=$10, responded_at=$11, history_seq=$12, updated_at=$13
		WHERE id=$14 AND version=$15
	`, c.Type, c.Governorate, c.Agency, c.Description, c.Status, c.Version, c.Locked, c.LockOwnerID,
		c.AssignedEmployeeID, c.Response, c.RespondedAt, c.HistorySeq, c.UpdatedAt, c.ID, change.ExpectedVersion)
	if err != nil {
		return fmt.Errorf("update complaint: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var current int64
		err := tx.QueryRow(ctx, `SELECT version FROM complaints WHERE id=$1`, c.ID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return complaint.NewNotFoundError("complaint", c.ID.String())
		}
		if err != nil {
			return fmt.Errorf("read current version: %w", err)
		}
		return complaint.NewConcurrentModificationError(change.ExpectedVersion, current)
	}

	if err := insertHistory(ctx, tx, change.History); err != nil {
		return err
	}
	if req := change.Request; req != nil {
		if err := writeRequest(ctx, tx, req, change.NewRequest); err != nil {
			return err
		}
	}
	if a := change.AddAttachment; a != nil {
		if _, err := tx.Exec(ctx, `
			INSERT INTO complaint_attachments (`+attachmentColumns+`, tracking_number)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		`, a.ID, a.ComplaintID, a.OriginalName, a.StoredName, a.RelativePath, a.ContentType, a.Size, a.Checksum, a.UploadedBy, a.UploadedAt, c.TrackingNumber); err != nil {
			return fmt.Errorf("insert attachment: %w", err)
		}
	}
	if id := change.RemoveAttachment; id != nil {
		tag, err := tx.Exec(ctx, `DELETE FROM complaint_attachments WHERE id=$1 AND complaint_id=$2`, *id, c.ID)
		if err != nil {
			return fmt.Errorf("delete attachment: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return complaint.NewNotFoundError("attachment", id.String())
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit change: %w", err)
	}
	return nil
}

func (r *ComplaintRepository) Delete(ctx context.Context, id uuid.UUID, expectedVersion int64, tombstone *complaint.HistoryEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete complaint: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	tag, err := tx.Exec(ctx, `DELETE FROM complaints WHERE id=$1 AND version=$2`, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("delete complaint: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var current int64
		err = tx.QueryRow(ctx, `SELECT version FROM complaints WHERE id=$1`, id).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return complaint.NewNotFoundError("complaint", id.String())
		}
		if err != nil {
			return fmt.Errorf("read current version: %w", err)
		}
		return complaint.NewConcurrentModificationError(expectedVersion, current)
	}
	if tombstone != nil {
		if err := insertHistory(ctx, tx, []*complaint.HistoryEntry{tombstone}); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete complaint: %w", err)
	}
	return nil
}

func (r *ComplaintRepository) ListHistory(ctx context.Context, complaintID uuid.UUID) ([]*complaint.HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+historyColumns+` FROM complaint_history WHERE complaint_id=$1 ORDER BY sequence ASC
	`, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*complaint.HistoryEntry{}
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *ComplaintRepository) ListAttachments(ctx context.Context, complaintID uuid.UUID) ([]*complaint.Attachment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+attachmentColumns+` FROM complaint_attachments WHERE complaint_id=$1 ORDER BY uploaded_at ASC, id ASC
	`, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*complaint.Attachment{}
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *ComplaintRepository) GetAttachment(ctx context.Context, complaintID, attachmentID uuid.UUID) (*complaint.Attachment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+attachmentColumns+` FROM complaint_attachments WHERE complaint_id=$1 AND id=$2
	`, complaintID, attachmentID)
	return scanAttachment(row)
}

func (r *ComplaintRepository) ListInformationRequests(ctx context.Context, complaintID uuid.UUID) ([]*complaint.InformationRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+requestColumns+` FROM information_requests WHERE complaint_id=$1 ORDER BY requested_at ASC, id ASC
	`, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*complaint.InformationRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *ComplaintRepository) GetInformationRequest(ctx context.Context, complaintID, requestID uuid.UUID) (*complaint.InformationRequest, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+requestColumns+` FROM information_requests WHERE complaint_id=$1 AND id=$2
	`, complaintID, requestID)
	return scanRequest(row)
}

func (r *ComplaintRepository) GetPendingInformationRequest(ctx context.Context, complaintID uuid.UUID) (*complaint.InformationRequest, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+requestColumns+` FROM information_requests WHERE complaint_id=$1 AND status='PENDING'
	`, complaintID)
	return scanRequest(row)
}

func insertHistory(ctx context.Context, tx pgx.Tx, entries []*complaint.HistoryEntry) error {
	for _, h := range entries {
		var name *string
		if h.Actor.Name != "" {
			name = &h.Actor.Name
		}
		var metadata []byte
		if len(h.Metadata) > 0 {
			metadata = h.Metadata
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO complaint_history (`+historyColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		`, h.ID, h.ComplaintID, h.Sequence, h.Action, h.FieldName, h.OldValue, h.NewValue, metadata, h.Actor.Kind, h.Actor.ID, name, h.Signature, h.CreatedAt); err != nil {
			return fmt.Errorf("insert history entry %d: %w", h.Sequence, err)
		}
	}
	return nil
}

func writeRequest(ctx context.Context, tx pgx.Tx, req *complaint.InformationRequest, isNew bool) error {
	if isNew {
		_, err := tx.Exec(ctx, `
			INSERT INTO information_requests (`+requestColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`, req.ID, req.ComplaintID, req.Status, req.Question, req.Answer, req.Reason, req.RequestedBy, req.RequestedAt, req.ClosedBy, req.ClosedAt)
		if isPendingConflict(err) {
			return complaint.NewDuplicateRequestError()
		}
		if err != nil {
			return fmt.Errorf("insert information request: %w", err)
		}
		return nil
	}
	tag, err := tx.Exec(ctx, `
		UPDATE information_requests
		SET status=$1, answer=$2, reason=$3, closed_by=$4, closed_at=$5
		WHERE id=$6 AND complaint_id=$7
	`, req.Status, req.Answer, req.Reason, req.ClosedBy, req.ClosedAt, req.ID, req.ComplaintID)
	if err != nil {
		return fmt.Errorf("update information request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return complaint.NewNotFoundError("information request", req.ID.String())
	}
	return nil
}

func isPendingConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == onePendingConstraint
}

func scanComplaint(row pgx.Row) (*complaint.Complaint, error) {
	var c complaint.Complaint
	if err := row.Scan(&c.ID, &c.TrackingNumber, &c.Type, &c.Governorate, &c.Agency, &c.Description, &c.Status, &c.Version, &c.Locked, &c.LockOwnerID, &c.CitizenID, &c.AssignedEmployeeID, &c.Response, &c.RespondedAt, &c.HistorySeq, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func scanHistory(row pgx.Row) (*complaint.HistoryEntry, error) {
	var h complaint.HistoryEntry
	var metadata []byte
	var name *string
	if err := row.Scan(&h.ID, &h.ComplaintID, &h.Sequence, &h.Action, &h.FieldName, &h.OldValue, &h.NewValue, &metadata, &h.Actor.Kind, &h.Actor.ID, &name, &h.Signature, &h.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if len(metadata) > 0 {
		h.Metadata = metadata
	}
	if name != nil {
		h.Actor.Name = *name
	}
	return &h, nil
}

func scanAttachment(row pgx.Row) (*complaint.Attachment, error) {
	var a complaint.Attachment
	if err := row.Scan(&a.ID, &a.ComplaintID, &a.OriginalName, &a.StoredName, &a.RelativePath, &a.ContentType, &a.Size, &a.Checksum, &a.UploadedBy, &a.UploadedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func scanRequest(row pgx.Row) (*complaint.InformationRequest, error) {
	var req complaint.InformationRequest
	if err := row.Scan(&req.ID, &req.ComplaintID, &req.Status, &req.Question, &req.Answer, &req.Reason, &req.RequestedBy, &req.RequestedAt, &req.ClosedBy, &req.ClosedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func addWhere(query string) string {
	if strings.Contains(query, " WHERE ") {
		return " AND"
	}
	return " WHERE"
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
