package customer

import (
	"context"

	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/customer"
	"github.com/storefront/backend/internal/domain/shared"
)

// CustomerService handles profile management and the admin listing.
type CustomerService struct {
	customerRepo customer.CustomerRepository
}

// NewCustomerService creates a new CustomerService.
func NewCustomerService(customerRepo customer.CustomerRepository) *CustomerService {
	return &CustomerService{customerRepo: customerRepo}
}

// GetProfile returns the customer's own profile.
func (s *CustomerService) GetProfile(ctx context.Context, customerID uuid.UUID) (*CustomerResponse, error) {
	c, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return ToCustomerResponse(c), nil
}

// UpdateProfile updates name, contact details, and notification opt-ins.
func (s *CustomerService) UpdateProfile(ctx context.Context, customerID uuid.UUID, req UpdateProfileRequest) (*CustomerResponse, error) {
	c, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if err := c.UpdateProfile(req.FirstName, req.LastName, req.Phone, req.Address, req.City, req.Country); err != nil {
		return nil, err
	}

	if req.SMSOptIn != nil || req.EmailOptIn != nil {
		sms := c.SMSOptIn
		if req.SMSOptIn != nil {
			sms = *req.SMSOptIn
		}
		email := c.EmailOptIn
		if req.EmailOptIn != nil {
			email = *req.EmailOptIn
		}
		c.SetNotificationPreferences(sms, email)
	}

	if err := s.customerRepo.Save(ctx, c); err != nil {
		return nil, err
	}

	return ToCustomerResponse(c), nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *CustomerService) ChangePassword(ctx context.Context, customerID uuid.UUID, req ChangePasswordRequest) error {
	c, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return err
	}

	if err := c.ChangePassword(req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}

	return s.customerRepo.Save(ctx, c)
}

// List returns customers matching the filter, paginated. Admin only.
func (s *CustomerService) List(ctx context.Context, filter CustomerListFilter) (*shared.Paginated[CustomerResponse], error) {
	domainFilter := shared.DefaultFilter()
	domainFilter.Search = filter.Search
	domainFilter.OrderBy = filter.OrderBy
	domainFilter.OrderDir = filter.OrderDir
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.Role != "" {
		domainFilter.Filters["role"] = filter.Role
	}

	customers, err := s.customerRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.customerRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, err
	}

	page := shared.NewPaginated(ToCustomerResponses(customers), total, domainFilter.Page, domainFilter.PageSize)
	return &page, nil
}

// GetByID returns any customer by ID. Admin only.
func (s *CustomerService) GetByID(ctx context.Context, id uuid.UUID) (*CustomerResponse, error) {
	c, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToCustomerResponse(c), nil
}

// Deactivate closes a customer account. Admin only.
func (s *CustomerService) Deactivate(ctx context.Context, id uuid.UUID) error {
	c, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := c.Deactivate(); err != nil {
		return err
	}
	return s.customerRepo.Save(ctx, c)
}
