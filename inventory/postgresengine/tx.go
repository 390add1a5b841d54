package postgresengine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
	"github.com/AntonStoeckl/rental-reservation-engine/inventory/postgresengine/internal/adapters"
)

// tx implements inventory.Tx on one database transaction.
type tx struct {
	store *Store
	db    adapters.DBTx
	qb    queryBuilder
}

func (t *tx) query(ctx context.Context, action, sqlQuery string, buildErr error) (adapters.DBRows, error) {
	if buildErr != nil {
		t.store.logError(ctx, logMsgBuildQueryFailed, buildErr, logAttrAction, action)
		return nil, buildErr
	}

	start := time.Now()
	rows, err := t.db.Query(ctx, sqlQuery)
	t.store.logQueryWithDuration(ctx, sqlQuery, action, time.Since(start))

	if err != nil {
		t.store.logError(ctx, logMsgDBQueryFailed, err, logAttrAction, action)
		return nil, errors.Join(inventory.ErrQueryingFailed, err)
	}

	return rows, nil
}

func (t *tx) exec(ctx context.Context, action, sqlQuery string, buildErr error) (int64, error) {
	if buildErr != nil {
		t.store.logError(ctx, logMsgBuildQueryFailed, buildErr, logAttrAction, action)
		return 0, buildErr
	}

	start := time.Now()
	result, err := t.db.Exec(ctx, sqlQuery)
	t.store.logQueryWithDuration(ctx, sqlQuery, action, time.Since(start))

	if err != nil {
		t.store.logError(ctx, logMsgDBExecFailed, err, logAttrAction, action)
		return 0, errors.Join(inventory.ErrWritingFailed, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		t.store.logError(ctx, logMsgRowsAffectedFailed, err, logAttrAction, action)
		return 0, errors.Join(inventory.ErrWritingFailed, err)
	}

	return rowsAffected, nil
}

// collect scans all rows and closes them.
func collect[T any](rows adapters.DBRows, scan func(rows adapters.DBRows) (T, error)) (items []T, err error) {
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = errors.Join(inventory.ErrQueryingFailed, closeErr)
		}
	}()

	for rows.Next() {
		item, scanErr := scan(rows)
		if scanErr != nil {
			return nil, scanErr
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Join(inventory.ErrQueryingFailed, err)
	}

	return items, nil
}

func scanFailed(err error) error {
	return errors.Join(inventory.ErrScanningDBRowFailed, err)
}

/***** products and instances *****/

func scanProduct(rows adapters.DBRows) (inventory.Product, error) {
	var id, unitPrice, mode string
	var product inventory.Product

	if err := rows.Scan(&id, &product.Name, &unitPrice, &mode, &product.TotalCapacity, &product.AvailableCount, &product.CreatedAt); err != nil {
		return inventory.Product{}, scanFailed(err)
	}

	p := parser{}
	product.ID = p.id(id)
	product.UnitPrice = p.money(unitPrice)
	product.Mode = inventory.Mode(mode)
	product.CreatedAt = product.CreatedAt.UTC()

	return product, p.err
}

func scanInstance(rows adapters.DBRows) (inventory.ProductInstance, error) {
	var id, productID, status string
	var instance inventory.ProductInstance

	if err := rows.Scan(&id, &productID, &instance.Serial, &status); err != nil {
		return inventory.ProductInstance{}, scanFailed(err)
	}

	p := parser{}
	instance.ID = p.id(id)
	instance.ProductID = p.id(productID)
	instance.Status = inventory.InstanceStatus(status)

	return instance, p.err
}

func (t *tx) Product(ctx context.Context, id uuid.UUID) (inventory.Product, error) {
	sqlQuery, err := t.qb.selectProduct(id)

	rows, err := t.query(ctx, actionReadProduct, sqlQuery, err)
	if err != nil {
		return inventory.Product{}, err
	}

	products, err := collect(rows, scanProduct)
	if err != nil {
		return inventory.Product{}, err
	}

	if len(products) == 0 {
		return inventory.Product{}, inventory.NewNotFoundError("product", id)
	}

	return products[0], nil
}

func (t *tx) Products(ctx context.Context) ([]inventory.Product, error) {
	sqlQuery, err := t.qb.selectAllProducts()

	rows, err := t.query(ctx, actionReadProducts, sqlQuery, err)
	if err != nil {
		return nil, err
	}

	return collect(rows, scanProduct)
}

func (t *tx) Instances(ctx context.Context, productID uuid.UUID) ([]inventory.ProductInstance, error) {
	sqlQuery, err := t.qb.selectInstancesOf(productID)

	rows, err := t.query(ctx, actionReadInstances, sqlQuery, err)
	if err != nil {
		return nil, err
	}

	return collect(rows, scanInstance)
}

func (t *tx) Instance(ctx context.Context, id uuid.UUID) (inventory.ProductInstance, error) {
	sqlQuery, err := t.qb.selectInstance(id)

	rows, err := t.query(ctx, actionReadInstances, sqlQuery, err)
	if err != nil {
		return inventory.ProductInstance{}, err
	}

	instances, err := collect(rows, scanInstance)
	if err != nil {
		return inventory.ProductInstance{}, err
	}

	if len(instances) == 0 {
		return inventory.ProductInstance{}, inventory.NewNotFoundError("instance", id)
	}

	return instances[0], nil
}

func (t *tx) LockProducts(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	sqlQuery, err := t.qb.lockProducts(ids)

	rows, err := t.query(ctx, actionLockProducts, sqlQuery, err)
	if err != nil {
		return err
	}

	_, err = collect(rows, func(rows adapters.DBRows) (string, error) {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", scanFailed(err)
		}

		return id, nil
	})

	return err
}

func (t *tx) SaveProduct(ctx context.Context, product inventory.Product) error {
	sqlQuery, err := t.qb.upsertProduct(product)
	_, err = t.exec(ctx, actionSaveProduct, sqlQuery, err)

	return err
}

func (t *tx) SaveInstance(ctx context.Context, instance inventory.ProductInstance) error {
	sqlQuery, err := t.qb.upsertInstance(instance)
	_, err = t.exec(ctx, actionSaveInstance, sqlQuery, err)

	return err
}

/***** commitments *****/

func scanCommitment(rows adapters.DBRows) (inventory.Commitment, error) {
	var reservationID, lineID, productID, start, end, deliveryStatus string
	var instanceID *string
	var c inventory.Commitment

	if err := rows.Scan(&reservationID, &lineID, &productID, &instanceID, &c.Quantity, &start, &end, &deliveryStatus); err != nil {
		return inventory.Commitment{}, scanFailed(err)
	}

	p := parser{}
	c.ReservationID = p.id(reservationID)
	c.LineID = p.id(lineID)
	c.ProductID = p.id(productID)
	c.InstanceID = p.optionalID(instanceID)
	c.Period = p.period(start, end)
	c.OutOnRental = inventory.DeliveryStatus(deliveryStatus).IsOutOnRental()

	if c.InstanceID != uuid.Nil {
		c.Quantity = 1
	}

	return c, p.err
}

func (t *tx) Commitments(ctx context.Context, query inventory.CommitmentQuery) ([]inventory.Commitment, error) {
	sqlQuery, err := t.qb.selectCommitments(query)

	rows, err := t.query(ctx, actionReadCommitments, sqlQuery, err)
	if err != nil {
		return nil, err
	}

	return collect(rows, scanCommitment)
}

/***** reservations *****/

func scanReservation(rows adapters.DBRows) (inventory.Reservation, error) {
	var id, status, periodStart, periodEnd, gross, discountPercent, discountFixed, net, paid, comments string
	var expiresAt *time.Time
	var r inventory.Reservation

	err := rows.Scan(
		&id, &r.Reference, &r.CustomerID, &status, &r.InProgress,
		&periodStart, &periodEnd,
		&gross, &discountPercent, &discountFixed, &net, &paid,
		&expiresAt, &r.StockCommitted, &r.Version, &comments, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return inventory.Reservation{}, scanFailed(err)
	}

	p := parser{}
	r.ID = p.id(id)
	r.Status = inventory.ReservationStatus(status)
	r.Period = p.period(periodStart, periodEnd)
	r.Amounts = inventory.Amounts{
		Gross:           p.money(gross),
		DiscountPercent: p.money(discountPercent),
		DiscountFixed:   p.money(discountFixed),
		Net:             p.money(net),
		Paid:            p.money(paid),
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()

	if expiresAt != nil {
		r.ExpiresAt = expiresAt.UTC()
	}

	if p.err != nil {
		return inventory.Reservation{}, p.err
	}

	r.Comments, err = unmarshalComments(comments)

	return r, err
}

func scanLine(rows adapters.DBRows) (inventory.ReservationLine, error) {
	var id, productID, unitPrice, start, end, deliveryStatus string
	var line inventory.ReservationLine

	if err := rows.Scan(&id, &productID, &line.Quantity, &unitPrice, &start, &end, &deliveryStatus); err != nil {
		return inventory.ReservationLine{}, scanFailed(err)
	}

	p := parser{}
	line.ID = p.id(id)
	line.ProductID = p.id(productID)
	line.UnitPrice = p.money(unitPrice)
	line.Period = p.period(start, end)
	line.DeliveryStatus = inventory.DeliveryStatus(deliveryStatus)

	return line, p.err
}

type lineInstance struct {
	lineID     uuid.UUID
	instanceID uuid.UUID
}

func scanLineInstance(rows adapters.DBRows) (lineInstance, error) {
	var lineID, instanceID string
	if err := rows.Scan(&lineID, &instanceID); err != nil {
		return lineInstance{}, scanFailed(err)
	}

	p := parser{}

	return lineInstance{lineID: p.id(lineID), instanceID: p.id(instanceID)}, p.err
}

func (t *tx) Reservation(ctx context.Context, id uuid.UUID) (inventory.Reservation, error) {
	sqlQuery, err := t.qb.selectReservation(id)

	rows, err := t.query(ctx, actionReadReservation, sqlQuery, err)
	if err != nil {
		return inventory.Reservation{}, err
	}

	reservations, err := collect(rows, scanReservation)
	if err != nil {
		return inventory.Reservation{}, err
	}

	if len(reservations) == 0 {
		return inventory.Reservation{}, inventory.NewNotFoundError("reservation", id)
	}

	r := reservations[0]

	if r.Lines, err = t.lines(ctx, id); err != nil {
		return inventory.Reservation{}, err
	}

	return r, nil
}

func (t *tx) lines(ctx context.Context, reservationID uuid.UUID) ([]inventory.ReservationLine, error) {
	sqlQuery, err := t.qb.selectLines(reservationID)

	rows, err := t.query(ctx, actionReadReservation, sqlQuery, err)
	if err != nil {
		return nil, err
	}

	lines, err := collect(rows, scanLine)
	if err != nil || len(lines) == 0 {
		return lines, err
	}

	lineIDs := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		lineIDs = append(lineIDs, line.ID)
	}

	sqlQuery, err = t.qb.selectLineInstances(lineIDs)

	rows, err = t.query(ctx, actionReadReservation, sqlQuery, err)
	if err != nil {
		return nil, err
	}

	assignments, err := collect(rows, scanLineInstance)
	if err != nil {
		return nil, err
	}

	for _, a := range assignments {
		for i := range lines {
			if lines[i].ID == a.lineID {
				lines[i].InstanceIDs = append(lines[i].InstanceIDs, a.instanceID)
			}
		}
	}

	return lines, nil
}

func scanID(rows adapters.DBRows) (uuid.UUID, error) {
	var id string
	if err := rows.Scan(&id); err != nil {
		return uuid.Nil, scanFailed(err)
	}

	p := parser{}

	return p.id(id), p.err
}

func (t *tx) ReservationIDByLine(ctx context.Context, lineID uuid.UUID) (uuid.UUID, error) {
	sqlQuery, err := t.qb.selectReservationIDByLine(lineID)

	rows, err := t.query(ctx, actionReadReservation, sqlQuery, err)
	if err != nil {
		return uuid.Nil, err
	}

	ids, err := collect(rows, scanID)
	if err != nil {
		return uuid.Nil, err
	}

	if len(ids) == 0 {
		return uuid.Nil, inventory.NewNotFoundError("line", lineID)
	}

	return ids[0], nil
}

func (t *tx) ReservationIDs(ctx context.Context, query inventory.ReservationQuery) ([]uuid.UUID, error) {
	sqlQuery, err := t.qb.selectReservationIDs(query)

	rows, err := t.query(ctx, actionListReservations, sqlQuery, err)
	if err != nil {
		return nil, err
	}

	return collect(rows, scanID)
}

func (t *tx) InsertReservation(ctx context.Context, r inventory.Reservation) error {
	comments, err := marshalComments(r.Comments)
	if err != nil {
		return err
	}

	sqlQuery, err := t.qb.insertReservation(r, comments)
	if _, err := t.exec(ctx, actionInsertReservation, sqlQuery, err); err != nil {
		return err
	}

	return t.insertLines(ctx, r)
}

// UpdateReservation writes the reservation row with a version check and replaces all of its lines.
func (t *tx) UpdateReservation(ctx context.Context, r inventory.Reservation, expectedVersion int) error {
	comments, err := marshalComments(r.Comments)
	if err != nil {
		return err
	}

	sqlQuery, err := t.qb.updateReservation(r, comments, expectedVersion)

	rowsAffected, err := t.exec(ctx, actionUpdateReservation, sqlQuery, err)
	if err != nil {
		return err
	}

	if rowsAffected < 1 {
		t.store.logConcurrencyConflict(ctx, r.ID, expectedVersion)
		return inventory.ErrConcurrencyConflict
	}

	sqlQuery, err = t.qb.deleteLines(r.ID)
	if _, err := t.exec(ctx, actionUpdateReservation, sqlQuery, err); err != nil {
		return err
	}

	return t.insertLines(ctx, r)
}

func (t *tx) insertLines(ctx context.Context, r inventory.Reservation) error {
	if len(r.Lines) == 0 {
		return nil
	}

	sqlQuery, err := t.qb.insertLines(r)
	if _, err := t.exec(ctx, actionWriteLines, sqlQuery, err); err != nil {
		return err
	}

	sqlQuery, err = t.qb.insertLineInstances(r)
	if err != nil || sqlQuery == "" {
		return err
	}

	_, err = t.exec(ctx, actionWriteLines, sqlQuery, nil)

	return err
}

/***** stock ledger *****/

func scanMovement(rows adapters.DBRows) (inventory.StockMovement, error) {
	var id, productID, kind string
	var instanceID, snapshot, statusAfter, reservationID, lineID *string
	var m inventory.StockMovement

	err := rows.Scan(
		&id, &productID, &instanceID, &kind, &m.Quantity,
		&snapshot, &statusAfter, &reservationID, &lineID,
		&m.ActorID, &m.Reason, &m.OccurredAt,
	)
	if err != nil {
		return inventory.StockMovement{}, scanFailed(err)
	}

	p := parser{}
	m.ID = p.id(id)
	m.ProductID = p.id(productID)
	m.InstanceID = p.optionalID(instanceID)
	m.ReservationID = p.optionalID(reservationID)
	m.LineID = p.optionalID(lineID)
	m.Kind = inventory.MovementKind(kind)
	m.OccurredAt = m.OccurredAt.UTC()

	if statusAfter != nil {
		m.InstanceStatusAfter = inventory.InstanceStatus(*statusAfter)
	}

	if p.err != nil {
		return inventory.StockMovement{}, p.err
	}

	m.Snapshot, err = unmarshalSnapshot(snapshot)

	return m, err
}

func (t *tx) Movements(ctx context.Context, filter inventory.MovementFilter) ([]inventory.StockMovement, error) {
	sqlQuery, err := t.qb.selectMovements(filter)

	rows, err := t.query(ctx, actionReadMovements, sqlQuery, err)
	if err != nil {
		return nil, err
	}

	return collect(rows, scanMovement)
}

func (t *tx) AppendMovements(ctx context.Context, movements ...inventory.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}

	snapshots, err := marshalSnapshots(movements)
	if err != nil {
		return err
	}

	sqlQuery, err := t.qb.insertMovements(movements, snapshots)
	_, err = t.exec(ctx, actionAppendMovements, sqlQuery, err)

	return err
}
