package postgresengine

import (
	"errors"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// commentRecord is the jsonb shape of one audit comment.
type commentRecord struct {
	ID        uuid.UUID `json:"id"`
	ActorID   string    `json:"actorId"`
	ActorRole string    `json:"actorRole"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// snapshotRecord is the jsonb shape of a pooled movement's counters.
type snapshotRecord struct {
	CapacityBefore  int `json:"capacityBefore"`
	CapacityAfter   int `json:"capacityAfter"`
	AvailableBefore int `json:"availableBefore"`
	AvailableAfter  int `json:"availableAfter"`
}

func marshalComments(comments []inventory.Comment) (string, error) {
	records := make([]commentRecord, 0, len(comments))
	for _, c := range comments {
		records = append(records, commentRecord(c))
	}

	data, err := json.Marshal(records)
	if err != nil {
		return "", errors.Join(inventory.ErrWritingFailed, err)
	}

	return string(data), nil
}

func unmarshalComments(data string) ([]inventory.Comment, error) {
	var records []commentRecord
	if err := json.UnmarshalFromString(data, &records); err != nil {
		return nil, errors.Join(inventory.ErrScanningDBRowFailed, err)
	}

	comments := make([]inventory.Comment, 0, len(records))
	for _, r := range records {
		comments = append(comments, inventory.Comment(r))
	}

	return comments, nil
}

func marshalSnapshots(movements []inventory.StockMovement) ([]string, error) {
	snapshots := make([]string, len(movements))
	for i, m := range movements {
		if m.Snapshot == nil {
			continue
		}

		data, err := json.Marshal(snapshotRecord(*m.Snapshot))
		if err != nil {
			return nil, errors.Join(inventory.ErrWritingFailed, err)
		}

		snapshots[i] = string(data)
	}

	return snapshots, nil
}

func unmarshalSnapshot(data *string) (*inventory.CountSnapshot, error) {
	if data == nil {
		return nil, nil
	}

	var record snapshotRecord
	if err := json.UnmarshalFromString(*data, &record); err != nil {
		return nil, errors.Join(inventory.ErrScanningDBRowFailed, err)
	}

	snapshot := inventory.CountSnapshot(record)

	return &snapshot, nil
}

// parser collects the first conversion error of a row.
type parser struct {
	err error
}

func (p *parser) id(value string) uuid.UUID {
	id, err := uuid.Parse(value)
	if err != nil && p.err == nil {
		p.err = errors.Join(inventory.ErrScanningDBRowFailed, err)
	}

	return id
}

func (p *parser) optionalID(value *string) uuid.UUID {
	if value == nil {
		return uuid.Nil
	}

	return p.id(*value)
}

func (p *parser) money(value string) inventory.Money {
	amount, err := decimal.NewFromString(value)
	if err != nil && p.err == nil {
		p.err = errors.Join(inventory.ErrScanningDBRowFailed, err)
	}

	return amount
}

func (p *parser) day(value string) time.Time {
	day, err := time.Parse(dateLayout, value)
	if err != nil && p.err == nil {
		p.err = errors.Join(inventory.ErrScanningDBRowFailed, err)
	}

	return day
}

func (p *parser) period(start, end string) inventory.DateRange {
	return inventory.DateRange{Start: p.day(start), End: p.day(end)}
}
