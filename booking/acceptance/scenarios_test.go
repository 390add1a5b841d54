package acceptance

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	"github.com/AntonStoeckl/rental-reservation-engine/booking"
	"github.com/AntonStoeckl/rental-reservation-engine/booking/scheduler"
	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
	"github.com/AntonStoeckl/rental-reservation-engine/inventory/memengine"
)

const dateLayout = "2006-01-02"

type scenarioContext struct {
	ctx       context.Context
	now       time.Time
	engine    *booking.Engine
	products  map[string]inventory.Product
	quote     inventory.Reservation
	netBefore inventory.Money
	result    booking.AvailabilityResult
	err       error
}

func (c *scenarioContext) reset() error {
	store, err := memengine.NewStore()
	if err != nil {
		return err
	}

	c.now = time.Date(2025, time.May, 1, 10, 0, 0, 0, time.UTC)
	c.engine, err = booking.NewEngine(store, booking.WithClock(c.clock))
	if err != nil {
		return err
	}

	c.ctx = inventory.WithActor(context.Background(), inventory.Actor{ID: "staff-1", Role: "staff"})
	c.products = make(map[string]inventory.Product)
	c.quote = inventory.Reservation{}
	c.netBefore = decimal.Zero
	c.result = booking.AvailabilityResult{}
	c.err = nil

	return nil
}

func (c *scenarioContext) clock() time.Time {
	return c.now
}

func (c *scenarioContext) product(name string) (inventory.Product, error) {
	product, ok := c.products[name]
	if !ok {
		return inventory.Product{}, fmt.Errorf("unknown product %q", name)
	}

	return product, nil
}

func (c *scenarioContext) lineRequest(quantity int, name, start, end string) (booking.LineRequest, error) {
	product, err := c.product(name)
	if err != nil {
		return booking.LineRequest{}, err
	}

	from, err := time.Parse(dateLayout, start)
	if err != nil {
		return booking.LineRequest{}, err
	}

	until, err := time.Parse(dateLayout, end)
	if err != nil {
		return booking.LineRequest{}, err
	}

	return booking.LineRequest{ProductID: product.ID, Quantity: quantity, Start: from, End: until}, nil
}

func (c *scenarioContext) createQuote(lines ...booking.LineRequest) (inventory.Reservation, error) {
	quote, err := c.engine.CreateQuote(c.ctx, booking.CreateQuote{CustomerID: "customer-1", Lines: lines})
	if err != nil {
		return inventory.Reservation{}, err
	}

	return quote.Reservation, nil
}

func (c *scenarioContext) aPooledProduct(name string, capacity int, price string) error {
	unitPrice, err := decimal.NewFromString(price)
	if err != nil {
		return err
	}

	product, err := c.engine.RegisterProduct(c.ctx, booking.RegisterProduct{
		Name:      name,
		UnitPrice: unitPrice,
		Mode:      inventory.ModePooled,
		Capacity:  capacity,
	})
	if err != nil {
		return err
	}

	c.products[name] = product

	return nil
}

func (c *scenarioContext) aConfirmedReservation(quantity int, name, start, end string) error {
	line, err := c.lineRequest(quantity, name, start, end)
	if err != nil {
		return err
	}

	other, err := c.createQuote(line)
	if err != nil {
		return err
	}

	_, err = c.engine.AcceptQuote(c.ctx, other.ID)

	return err
}

func (c *scenarioContext) aQuoteFor(quantity int, name, start, end string) error {
	line, err := c.lineRequest(quantity, name, start, end)
	if err != nil {
		return err
	}

	c.quote, err = c.createQuote(line)

	return err
}

func (c *scenarioContext) aConfirmedQuoteWithLines(table *godog.Table) error {
	var lines []booking.LineRequest

	for _, row := range table.Rows[1:] {
		quantity, err := strconv.Atoi(row.Cells[1].Value)
		if err != nil {
			return err
		}

		line, err := c.lineRequest(quantity, row.Cells[0].Value, row.Cells[2].Value, row.Cells[3].Value)
		if err != nil {
			return err
		}

		lines = append(lines, line)
	}

	quote, err := c.createQuote(lines...)
	if err != nil {
		return err
	}

	c.quote, err = c.engine.AcceptQuote(c.ctx, quote.ID)
	c.netBefore = c.quote.Amounts.Net

	return err
}

func (c *scenarioContext) hoursHavePassed(hours int) error {
	c.now = c.now.Add(time.Duration(hours) * time.Hour)

	return nil
}

func (c *scenarioContext) iCheckAvailability(quantity int, name, start, end string) error {
	line, err := c.lineRequest(quantity, name, start, end)
	if err != nil {
		return err
	}

	c.result, c.err = c.engine.CheckAvailability(c.ctx, booking.AvailabilityQuery{
		ProductID: line.ProductID,
		Quantity:  line.Quantity,
		Start:     line.Start,
		End:       line.End,
	})

	return c.err
}

func (c *scenarioContext) iAcceptTheQuote() error {
	_, c.err = c.engine.AcceptQuote(c.ctx, c.quote.ID)

	return nil
}

func (c *scenarioContext) iShiftAllLines(days int) error {
	c.quote, c.err = c.engine.ShiftAllLines(c.ctx, booking.ShiftAllLines{ReservationID: c.quote.ID, Days: days})

	return c.err
}

func (c *scenarioContext) theSchedulerRuns() error {
	runner, err := scheduler.NewRunner(c.engine, scheduler.WithClock(c.clock))
	if err != nil {
		return err
	}

	_, err = runner.RunOnce(c.ctx)

	return err
}

func (c *scenarioContext) theProductIsAvailable() error {
	if !c.result.Available {
		return fmt.Errorf("expected available, free capacity is %d", c.result.FreeCapacity)
	}

	return nil
}

func (c *scenarioContext) theProductIsNotAvailable() error {
	if c.result.Available {
		return fmt.Errorf("expected not available, free capacity is %d", c.result.FreeCapacity)
	}

	return nil
}

func (c *scenarioContext) theFreeCapacityIs(expected int) error {
	if c.result.FreeCapacity != expected {
		return fmt.Errorf("expected free capacity %d, got %d", expected, c.result.FreeCapacity)
	}

	return nil
}

func (c *scenarioContext) theFreeCapacityOfIs(name, start, end string, expected int) error {
	if err := c.iCheckAvailability(1, name, start, end); err != nil {
		return err
	}

	return c.theFreeCapacityIs(expected)
}

func (c *scenarioContext) theQuoteIs(status string) error {
	current, err := c.engine.Reservation(c.ctx, c.quote.ID)
	if err != nil {
		return err
	}

	if string(current.Status) != status {
		return fmt.Errorf("expected status %s, got %s", status, current.Status)
	}

	return nil
}

func (c *scenarioContext) theOperationIsRejectedAs(errorType string) error {
	if c.err == nil {
		return errors.New("expected the operation to fail but it succeeded")
	}

	if actual := inventory.ErrorType(c.err); actual != errorType {
		return fmt.Errorf("expected error type %s, got %s (%v)", errorType, actual, c.err)
	}

	return nil
}

func (c *scenarioContext) theQuoteHasNoLedgerRows() error {
	movements, err := c.engine.Ledger(c.ctx, inventory.BuildMovementFilter().ForReservations(c.quote.ID).Finalize())
	if err != nil {
		return err
	}

	if len(movements) != 0 {
		return fmt.Errorf("expected no ledger rows, got %d", len(movements))
	}

	return nil
}

func (c *scenarioContext) theReservationPeriodIs(start, end string) error {
	if actual := c.quote.Period.Start.Format(dateLayout); actual != start {
		return fmt.Errorf("expected period start %s, got %s", start, actual)
	}

	if actual := c.quote.Period.End.Format(dateLayout); actual != end {
		return fmt.Errorf("expected period end %s, got %s", end, actual)
	}

	return nil
}

func (c *scenarioContext) theNetAmountIsUnchanged() error {
	if !c.quote.Amounts.Net.Equal(c.netBefore) {
		return fmt.Errorf("expected net amount %s, got %s", c.netBefore, c.quote.Amounts.Net)
	}

	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	sc := &scenarioContext{}

	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		return ctx, sc.reset()
	})

	// Given steps
	ctx.Step(`^a pooled product "([^"]*)" with capacity (\d+) at ([\d.]+) per day$`, sc.aPooledProduct)
	ctx.Step(`^a confirmed reservation of (\d+) "([^"]*)" from "([^"]*)" to "([^"]*)"$`, sc.aConfirmedReservation)
	ctx.Step(`^a quote for (\d+) "([^"]*)" from "([^"]*)" to "([^"]*)"$`, sc.aQuoteFor)
	ctx.Step(`^a confirmed quote with lines:$`, sc.aConfirmedQuoteWithLines)
	ctx.Step(`^(\d+) hours have passed$`, sc.hoursHavePassed)

	// When steps
	ctx.Step(`^I check availability of (\d+) "([^"]*)" from "([^"]*)" to "([^"]*)"$`, sc.iCheckAvailability)
	ctx.Step(`^I create a quote for (\d+) "([^"]*)" from "([^"]*)" to "([^"]*)"$`, sc.aQuoteFor)
	ctx.Step(`^I accept the quote$`, sc.iAcceptTheQuote)
	ctx.Step(`^I shift all lines by (-?\d+) days$`, sc.iShiftAllLines)
	ctx.Step(`^the scheduler runs$`, sc.theSchedulerRuns)

	// Then steps
	ctx.Step(`^the product is available$`, sc.theProductIsAvailable)
	ctx.Step(`^the product is not available$`, sc.theProductIsNotAvailable)
	ctx.Step(`^the free capacity is (\d+)$`, sc.theFreeCapacityIs)
	ctx.Step(`^the free capacity of "([^"]*)" from "([^"]*)" to "([^"]*)" is (\d+)$`, sc.theFreeCapacityOfIs)
	ctx.Step(`^the quote is "([^"]*)"$`, sc.theQuoteIs)
	ctx.Step(`^the operation is rejected as "([^"]*)"$`, sc.theOperationIsRejectedAs)
	ctx.Step(`^the quote has no ledger rows$`, sc.theQuoteHasNoLedgerRows)
	ctx.Step(`^the reservation period is from "([^"]*)" to "([^"]*)"$`, sc.theReservationPeriodIs)
	ctx.Step(`^the net amount is unchanged$`, sc.theNetAmountIsUnchanged)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
