package customer

import (
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

const AggregateTypeCustomer = "Customer"

const (
	EventTypeCustomerRegistered = "CustomerRegistered"
	EventTypeCustomerLocked     = "CustomerLocked"
)

// CustomerRegisteredEvent is published when a new customer account is created.
type CustomerRegisteredEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID `json:"customer_id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	Federated  bool      `json:"federated"`
}

func NewCustomerRegisteredEvent(c *Customer) *CustomerRegisteredEvent {
	return &CustomerRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerRegistered, AggregateTypeCustomer, c.ID),
		CustomerID:      c.ID,
		Email:           c.Email,
		FirstName:       c.FirstName,
		Federated:       c.OIDCSubject != "",
	}
}

// CustomerLockedEvent is published when repeated login failures lock an account.
type CustomerLockedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID `json:"customer_id"`
	Email      string    `json:"email"`
	Attempts   int       `json:"attempts"`
}

func NewCustomerLockedEvent(c *Customer) *CustomerLockedEvent {
	return &CustomerLockedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerLocked, AggregateTypeCustomer, c.ID),
		CustomerID:      c.ID,
		Email:           c.Email,
		Attempts:        c.FailedAttempts,
	}
}
