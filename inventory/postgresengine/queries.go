package postgresengine

import (
	"errors"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

const (
	dialectPostgres = "postgres"
	dateLayout      = "2006-01-02"
	castText        = "?::text"
	castJsonb       = "?::jsonb"
	excluded        = "EXCLUDED."

	colID                  = "id"
	colName                = "name"
	colUnitPrice           = "unit_price"
	colMode                = "mode"
	colTotalCapacity       = "total_capacity"
	colAvailableCount      = "available_count"
	colCreatedAt           = "created_at"
	colUpdatedAt           = "updated_at"
	colProductID           = "product_id"
	colSerial              = "serial"
	colStatus              = "status"
	colReference           = "reference"
	colCustomerID          = "customer_id"
	colInProgress          = "in_progress"
	colPeriodStart         = "period_start"
	colPeriodEnd           = "period_end"
	colGross               = "gross"
	colDiscountPercent     = "discount_percent"
	colDiscountFixed       = "discount_fixed"
	colNet                 = "net"
	colPaid                = "paid"
	colExpiresAt           = "expires_at"
	colStockCommitted      = "stock_committed"
	colVersion             = "version"
	colComments            = "comments"
	colReservationID       = "reservation_id"
	colPosition            = "position"
	colQuantity            = "quantity"
	colStartDay            = "start_day"
	colEndDay              = "end_day"
	colDeliveryStatus      = "delivery_status"
	colLineID              = "line_id"
	colInstanceID          = "instance_id"
	colSequenceNumber      = "sequence_number"
	colKind                = "kind"
	colSnapshot            = "snapshot"
	colInstanceStatusAfter = "instance_status_after"
	colActorID             = "actor_id"
	colReason              = "reason"
	colOccurredAt          = "occurred_at"
	colEventType           = "event_type"
	colPayload             = "payload"
	colPublishedAt         = "published_at"

	aliasLine        = "l"
	aliasReservation = "r"
	aliasInstance    = "li"
)

// queryBuilder renders every statement of the store as interpolated SQL.
type queryBuilder struct {
	t tables
}

func (qb queryBuilder) dialect() goqu.DialectWrapper {
	return goqu.Dialect(dialectPostgres)
}

type sqlBuilder interface {
	ToSQL() (string, []interface{}, error)
}

func toSQL(stmt sqlBuilder) (string, error) {
	sqlQuery, _, err := stmt.ToSQL()
	if err != nil {
		return "", errors.Join(inventory.ErrBuildingQueryFailed, err)
	}

	return sqlQuery, nil
}

func asText(column string) exp.LiteralExpression {
	return goqu.L(castText, goqu.I(column))
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}

	return out
}

func nullableID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}

	return id.String()
}

/***** products and instances *****/

func (qb queryBuilder) selectProducts() *goqu.SelectDataset {
	return qb.dialect().
		From(qb.t.products).
		Select(asText(colID), colName, asText(colUnitPrice), colMode, colTotalCapacity, colAvailableCount, colCreatedAt)
}

func (qb queryBuilder) selectProduct(id uuid.UUID) (string, error) {
	return toSQL(qb.selectProducts().Where(goqu.C(colID).Eq(id.String())))
}

func (qb queryBuilder) selectAllProducts() (string, error) {
	return toSQL(qb.selectProducts().Order(goqu.C(colName).Asc(), goqu.C(colID).Asc()))
}

// lockProducts locks the product rows in ascending id order, so that concurrent transactions
// touching overlapping products cannot deadlock on them.
func (qb queryBuilder) lockProducts(ids []uuid.UUID) (string, error) {
	return toSQL(qb.dialect().
		From(qb.t.products).
		Select(asText(colID)).
		Where(goqu.C(colID).In(idStrings(inventory.SortedUniqueIDs(ids)))).
		Order(goqu.C(colID).Asc()).
		ForUpdate(exp.Wait))
}

func (qb queryBuilder) upsertProduct(p inventory.Product) (string, error) {
	return toSQL(qb.dialect().
		Insert(qb.t.products).
		Rows(goqu.Record{
			colID:             p.ID.String(),
			colName:           p.Name,
			colUnitPrice:      p.UnitPrice.String(),
			colMode:           string(p.Mode),
			colTotalCapacity:  p.TotalCapacity,
			colAvailableCount: p.AvailableCount,
			colCreatedAt:      p.CreatedAt.UTC(),
		}).
		OnConflict(goqu.DoUpdate(colID, goqu.Record{
			colName:           goqu.L(excluded + colName),
			colUnitPrice:      goqu.L(excluded + colUnitPrice),
			colTotalCapacity:  goqu.L(excluded + colTotalCapacity),
			colAvailableCount: goqu.L(excluded + colAvailableCount),
		})))
}

func (qb queryBuilder) selectInstances() *goqu.SelectDataset {
	return qb.dialect().
		From(qb.t.instances).
		Select(asText(colID), asText(colProductID), colSerial, colStatus)
}

func (qb queryBuilder) selectInstancesOf(productID uuid.UUID) (string, error) {
	return toSQL(qb.selectInstances().
		Where(goqu.C(colProductID).Eq(productID.String())).
		Order(goqu.C(colSerial).Asc()))
}

func (qb queryBuilder) selectInstance(id uuid.UUID) (string, error) {
	return toSQL(qb.selectInstances().Where(goqu.C(colID).Eq(id.String())))
}

func (qb queryBuilder) upsertInstance(i inventory.ProductInstance) (string, error) {
	return toSQL(qb.dialect().
		Insert(qb.t.instances).
		Rows(goqu.Record{
			colID:        i.ID.String(),
			colProductID: i.ProductID.String(),
			colSerial:    i.Serial,
			colStatus:    string(i.Status),
		}).
		OnConflict(goqu.DoUpdate(colID, goqu.Record{
			colStatus: goqu.L(excluded + colStatus),
		})))
}

/***** commitments *****/

// selectCommitments reads the lines of CONFIRMED reservations with committed stock, with one row per
// assigned instance for serialized lines and one row with a NULL instance for pooled lines.
func (qb queryBuilder) selectCommitments(query inventory.CommitmentQuery) (string, error) {
	line := func(col string) exp.IdentifierExpression { return goqu.T(aliasLine).Col(col) }

	stmt := qb.dialect().
		From(goqu.T(qb.t.lines).As(aliasLine)).
		Join(
			goqu.T(qb.t.reservations).As(aliasReservation),
			goqu.On(goqu.T(aliasReservation).Col(colID).Eq(line(colReservationID))),
		).
		LeftJoin(
			goqu.T(qb.t.lineInstances).As(aliasInstance),
			goqu.On(goqu.T(aliasInstance).Col(colLineID).Eq(line(colID))),
		).
		Select(
			goqu.L(castText, line(colReservationID)),
			goqu.L(castText, line(colID)),
			goqu.L(castText, line(colProductID)),
			goqu.L(castText, goqu.T(aliasInstance).Col(colInstanceID)),
			line(colQuantity),
			goqu.L(castText, line(colStartDay)),
			goqu.L(castText, line(colEndDay)),
			line(colDeliveryStatus),
		).
		Where(
			goqu.T(aliasReservation).Col(colStatus).Eq(string(inventory.StatusConfirmed)),
			goqu.T(aliasReservation).Col(colStockCommitted).IsTrue(),
		).
		Order(line(colStartDay).Asc(), line(colID).Asc(), goqu.T(aliasInstance).Col(colPosition).Asc())

	if len(query.ProductIDs) > 0 {
		stmt = stmt.Where(line(colProductID).In(idStrings(query.ProductIDs)))
	}

	if query.Overlapping != nil {
		stmt = stmt.Where(
			line(colStartDay).Lte(query.Overlapping.End.Format(dateLayout)),
			line(colEndDay).Gte(query.Overlapping.Start.Format(dateLayout)),
		)
	}

	if query.ExcludeReservationID != uuid.Nil {
		stmt = stmt.Where(line(colReservationID).Neq(query.ExcludeReservationID.String()))
	}

	return toSQL(stmt)
}

/***** reservations *****/

func (qb queryBuilder) selectReservation(id uuid.UUID) (string, error) {
	return toSQL(qb.dialect().
		From(qb.t.reservations).
		Select(
			asText(colID), colReference, colCustomerID, colStatus, colInProgress,
			asText(colPeriodStart), asText(colPeriodEnd),
			asText(colGross), asText(colDiscountPercent), asText(colDiscountFixed), asText(colNet), asText(colPaid),
			colExpiresAt, colStockCommitted, colVersion, asText(colComments), colCreatedAt, colUpdatedAt,
		).
		Where(goqu.C(colID).Eq(id.String())))
}

func (qb queryBuilder) selectLines(reservationID uuid.UUID) (string, error) {
	return toSQL(qb.dialect().
		From(qb.t.lines).
		Select(
			asText(colID), asText(colProductID), colQuantity, asText(colUnitPrice),
			asText(colStartDay), asText(colEndDay), colDeliveryStatus,
		).
		Where(goqu.C(colReservationID).Eq(reservationID.String())).
		Order(goqu.C(colPosition).Asc()))
}

func (qb queryBuilder) selectLineInstances(lineIDs []uuid.UUID) (string, error) {
	return toSQL(qb.dialect().
		From(qb.t.lineInstances).
		Select(asText(colLineID), asText(colInstanceID)).
		Where(goqu.C(colLineID).In(idStrings(lineIDs))).
		Order(goqu.C(colLineID).Asc(), goqu.C(colPosition).Asc()))
}

func (qb queryBuilder) selectReservationIDByLine(lineID uuid.UUID) (string, error) {
	return toSQL(qb.dialect().
		From(qb.t.lines).
		Select(asText(colReservationID)).
		Where(goqu.C(colID).Eq(lineID.String())))
}

func (qb queryBuilder) selectReservationIDs(query inventory.ReservationQuery) (string, error) {
	stmt := qb.dialect().
		From(qb.t.reservations).
		Select(asText(colID)).
		Order(goqu.C(colCreatedAt).Asc(), goqu.C(colID).Asc())

	if query.Status != "" {
		stmt = stmt.Where(goqu.C(colStatus).Eq(string(query.Status)))
	}

	if !query.ExpiresBefore.IsZero() {
		stmt = stmt.Where(goqu.C(colExpiresAt).Lt(query.ExpiresBefore.UTC()))
	}

	if !query.LineStartsOn.IsZero() || query.LineDeliveryStatus != "" {
		lines := qb.dialect().From(qb.t.lines).Select(colReservationID)

		if !query.LineStartsOn.IsZero() {
			lines = lines.Where(goqu.C(colStartDay).Eq(query.LineStartsOn.Format(dateLayout)))
		}

		if query.LineDeliveryStatus != "" {
			lines = lines.Where(goqu.C(colDeliveryStatus).Eq(string(query.LineDeliveryStatus)))
		}

		stmt = stmt.Where(goqu.C(colID).In(lines))
	}

	if query.Limit > 0 {
		stmt = stmt.Limit(uint(query.Limit))
	}

	return toSQL(stmt)
}

func (qb queryBuilder) reservationRecord(r inventory.Reservation, comments string) goqu.Record {
	var expiresAt any
	if !r.ExpiresAt.IsZero() {
		expiresAt = r.ExpiresAt.UTC()
	}

	return goqu.Record{
		colReference:       r.Reference,
		colCustomerID:      r.CustomerID,
		colStatus:          string(r.Status),
		colInProgress:      r.InProgress,
		colPeriodStart:     r.Period.Start.Format(dateLayout),
		colPeriodEnd:       r.Period.End.Format(dateLayout),
		colGross:           r.Amounts.Gross.String(),
		colDiscountPercent: r.Amounts.DiscountPercent.String(),
		colDiscountFixed:   r.Amounts.DiscountFixed.String(),
		colNet:             r.Amounts.Net.String(),
		colPaid:            r.Amounts.Paid.String(),
		colExpiresAt:       expiresAt,
		colStockCommitted:  r.StockCommitted,
		colVersion:         r.Version,
		colComments:        goqu.L(castJsonb, comments),
		colCreatedAt:       r.CreatedAt.UTC(),
		colUpdatedAt:       r.UpdatedAt.UTC(),
	}
}

func (qb queryBuilder) insertReservation(r inventory.Reservation, comments string) (string, error) {
	record := qb.reservationRecord(r, comments)
	record[colID] = r.ID.String()

	return toSQL(qb.dialect().Insert(qb.t.reservations).Rows(record))
}

// updateReservation only matches if the persisted version equals expectedVersion.
func (qb queryBuilder) updateReservation(r inventory.Reservation, comments string, expectedVersion int) (string, error) {
	record := qb.reservationRecord(r, comments)
	delete(record, colCreatedAt)

	return toSQL(qb.dialect().
		Update(qb.t.reservations).
		Set(record).
		Where(goqu.C(colID).Eq(r.ID.String()), goqu.C(colVersion).Eq(expectedVersion)))
}

// deleteLines removes all lines of a reservation; their instance assignments cascade.
func (qb queryBuilder) deleteLines(reservationID uuid.UUID) (string, error) {
	return toSQL(qb.dialect().
		Delete(qb.t.lines).
		Where(goqu.C(colReservationID).Eq(reservationID.String())))
}

func (qb queryBuilder) insertLines(r inventory.Reservation) (string, error) {
	rows := make([]any, 0, len(r.Lines))
	for position, line := range r.Lines {
		rows = append(rows, goqu.Record{
			colID:             line.ID.String(),
			colReservationID:  r.ID.String(),
			colPosition:       position,
			colProductID:      line.ProductID.String(),
			colQuantity:       line.Quantity,
			colUnitPrice:      line.UnitPrice.String(),
			colStartDay:       line.Period.Start.Format(dateLayout),
			colEndDay:         line.Period.End.Format(dateLayout),
			colDeliveryStatus: string(line.DeliveryStatus),
		})
	}

	return toSQL(qb.dialect().Insert(qb.t.lines).Rows(rows...))
}

// insertLineInstances returns an empty string if no line has assigned instances.
func (qb queryBuilder) insertLineInstances(r inventory.Reservation) (string, error) {
	var rows []any
	for _, line := range r.Lines {
		for position, instanceID := range line.InstanceIDs {
			rows = append(rows, goqu.Record{
				colLineID:     line.ID.String(),
				colInstanceID: instanceID.String(),
				colPosition:   position,
			})
		}
	}

	if len(rows) == 0 {
		return "", nil
	}

	return toSQL(qb.dialect().Insert(qb.t.lineInstances).Rows(rows...))
}

/***** stock ledger *****/

func (qb queryBuilder) insertMovements(movements []inventory.StockMovement, snapshots []string) (string, error) {
	rows := make([]any, 0, len(movements))
	for i, m := range movements {
		var snapshot any
		if snapshots[i] != "" {
			snapshot = goqu.L(castJsonb, snapshots[i])
		}

		var statusAfter any
		if m.InstanceStatusAfter != "" {
			statusAfter = string(m.InstanceStatusAfter)
		}

		rows = append(rows, goqu.Record{
			colID:                  m.ID.String(),
			colProductID:           m.ProductID.String(),
			colInstanceID:          nullableID(m.InstanceID),
			colKind:                string(m.Kind),
			colQuantity:            m.Quantity,
			colSnapshot:            snapshot,
			colInstanceStatusAfter: statusAfter,
			colReservationID:       nullableID(m.ReservationID),
			colLineID:              nullableID(m.LineID),
			colActorID:             m.ActorID,
			colReason:              m.Reason,
			colOccurredAt:          m.OccurredAt.UTC(),
		})
	}

	return toSQL(qb.dialect().Insert(qb.t.movements).Rows(rows...))
}

func (qb queryBuilder) selectMovements(filter inventory.MovementFilter) (string, error) {
	stmt := qb.dialect().
		From(qb.t.movements).
		Select(
			asText(colID), asText(colProductID), asText(colInstanceID), colKind, colQuantity,
			asText(colSnapshot), colInstanceStatusAfter, asText(colReservationID), asText(colLineID),
			colActorID, colReason, colOccurredAt,
		).
		Order(goqu.C(colSequenceNumber).Asc())

	if ids := filter.ProductIDs(); len(ids) > 0 {
		stmt = stmt.Where(goqu.C(colProductID).In(idStrings(ids)))
	}

	if ids := filter.InstanceIDs(); len(ids) > 0 {
		stmt = stmt.Where(goqu.C(colInstanceID).In(idStrings(ids)))
	}

	if ids := filter.ReservationIDs(); len(ids) > 0 {
		stmt = stmt.Where(goqu.C(colReservationID).In(idStrings(ids)))
	}

	if kinds := filter.Kinds(); len(kinds) > 0 {
		values := make([]string, 0, len(kinds))
		for _, kind := range kinds {
			values = append(values, string(kind))
		}

		stmt = stmt.Where(goqu.C(colKind).In(values))
	}

	if from := filter.OccurredFrom(); !from.IsZero() {
		stmt = stmt.Where(goqu.C(colOccurredAt).Gte(from.UTC()))
	}

	if until := filter.OccurredUntil(); !until.IsZero() {
		stmt = stmt.Where(goqu.C(colOccurredAt).Lte(until.UTC()))
	}

	if filter.Limit() > 0 {
		stmt = stmt.Limit(uint(filter.Limit()))
	}

	return toSQL(stmt)
}

/***** outbox *****/

func (qb queryBuilder) insertOutboxEvent(event inventory.Event, payload string) (string, error) {
	return toSQL(qb.dialect().
		Insert(qb.t.outbox).
		Rows(goqu.Record{
			colID:            event.ID.String(),
			colEventType:     string(event.Type),
			colReservationID: event.ReservationID.String(),
			colPayload:       goqu.L(castJsonb, payload),
			colOccurredAt:    event.OccurredAt.UTC(),
		}).
		OnConflict(goqu.DoNothing()))
}

func (qb queryBuilder) selectUnpublishedEvents(limit int) (string, error) {
	stmt := qb.dialect().
		From(qb.t.outbox).
		Select(asText(colPayload)).
		Where(goqu.C(colPublishedAt).IsNull()).
		Order(goqu.C(colSequenceNumber).Asc())

	if limit > 0 {
		stmt = stmt.Limit(uint(limit))
	}

	return toSQL(stmt)
}

func (qb queryBuilder) markPublished(ids []uuid.UUID, at any) (string, error) {
	return toSQL(qb.dialect().
		Update(qb.t.outbox).
		Set(goqu.Record{colPublishedAt: at}).
		Where(goqu.C(colID).In(idStrings(ids)), goqu.C(colPublishedAt).IsNull()))
}
