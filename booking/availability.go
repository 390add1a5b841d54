package booking

import (
	"context"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

// CheckAvailability answers whether the requested quantity of a product is free over the period.
//
// Only CONFIRMED reservations with committed stock count, PENDING quotes never do. The check is
// read-only and holds no locks, so its answer is a preview and not a reservation.
func (e *Engine) CheckAvailability(ctx context.Context, query AvailabilityQuery) (AvailabilityResult, error) {
	return runView(ctx, e, opCheckAvailability, func(ctx context.Context, tx inventory.ReadTx) (AvailabilityResult, error) {
		return checkAvailability(ctx, tx, query)
	})
}

// CheckAvailabilities runs CheckAvailability for every query independently and returns one result per
// query, in the same order. A rejected query has its error in the result's Err field.
//
// There is no atomicity across the entries: each one sees the state at the time it is checked, and a
// positive answer for all of them does not guarantee that a quote built from them can be accepted.
// Only a cancelled or expired context aborts the batch.
func (e *Engine) CheckAvailabilities(ctx context.Context, queries []AvailabilityQuery) ([]AvailabilityResult, error) {
	results := make([]AvailabilityResult, 0, len(queries))

	for _, query := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := e.CheckAvailability(ctx, query)
		if err != nil {
			result = AvailabilityResult{Query: query, Err: err}
		}

		results = append(results, result)
	}

	return results, nil
}

func checkAvailability(ctx context.Context, tx inventory.ReadTx, query AvailabilityQuery) (AvailabilityResult, error) {
	period, err := query.validate()
	if err != nil {
		return AvailabilityResult{}, err
	}

	stock, err := loadInventory(ctx, tx, query.ProductID)
	if err != nil {
		return AvailabilityResult{}, err
	}

	commitments, err := tx.Commitments(ctx, inventory.CommitmentQuery{
		ProductIDs:  []uuid.UUID{query.ProductID},
		Overlapping: &period,
	})
	if err != nil {
		return AvailabilityResult{}, err
	}

	availability := stock.Availability(period, query.Quantity, commitments)

	return AvailabilityResult{
		Query:              query,
		Available:          availability.Available,
		FreeCapacity:       availability.FreeCapacity,
		CandidateInstances: availability.CandidateInstances,
		CandidateIDs:       availability.CandidateInstanceIDs,
	}, nil
}
