package testdoubles

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

// NotifierSpy implements inventory.Notifier. It records every event, including those it fails on.
type NotifierSpy struct {
	mu     sync.Mutex
	events []inventory.Event
	err    error
}

// NewNotifierSpy creates a NotifierSpy that returns err from every call; nil means success.
func NewNotifierSpy(err error) *NotifierSpy {
	return &NotifierSpy{err: err}
}

func (s *NotifierSpy) Notify(_ context.Context, event inventory.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, event)

	return s.err
}

// Events returns the recorded events.
func (s *NotifierSpy) Events() []inventory.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]inventory.Event(nil), s.events...)
}

// EventTypes returns the types of the recorded events in call order.
func (s *NotifierSpy) EventTypes() []inventory.EventType {
	events := s.Events()
	types := make([]inventory.EventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}

	return types
}

// InvoicerSpy implements inventory.Invoicer.
type InvoicerSpy struct {
	mu           sync.Mutex
	reservations []inventory.Reservation
	err          error
}

// NewInvoicerSpy creates an InvoicerSpy that returns err from every call; nil means success.
func NewInvoicerSpy(err error) *InvoicerSpy {
	return &InvoicerSpy{err: err}
}

func (s *InvoicerSpy) IssueProForma(_ context.Context, reservation inventory.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reservations = append(s.reservations, reservation)

	return s.err
}

// Reservations returns the reservations a pro-forma was requested for.
func (s *InvoicerSpy) Reservations() []inventory.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]inventory.Reservation(nil), s.reservations...)
}
