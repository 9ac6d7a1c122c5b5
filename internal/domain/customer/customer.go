package customer

import (
	"regexp"
	"strings"
	"time"

	"github.com/storefront/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// CustomerStatus represents the status of a customer account.
type CustomerStatus string

const (
	CustomerStatusActive      CustomerStatus = "active"
	CustomerStatusLocked      CustomerStatus = "locked"
	CustomerStatusDeactivated CustomerStatus = "deactivated"
)

const bcryptCost = 12

// CustomerRole distinguishes shoppers from staff accounts.
type CustomerRole string

const (
	RoleCustomer CustomerRole = "customer"
	RoleAdmin    CustomerRole = "admin"
)

// Customer is the aggregate root for a shopper account. Email is the login
// identifier. Accounts created through an external identity provider carry
// the provider's issuer/subject pair and may have no local password.
type Customer struct {
	shared.BaseAggregateRoot
	Email          string         `gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash   string         `gorm:"type:varchar(255)"`
	FirstName      string         `gorm:"type:varchar(100)"`
	LastName       string         `gorm:"type:varchar(100)"`
	Phone          string         `gorm:"type:varchar(20)"`
	Address        string         `gorm:"type:varchar(255)"`
	City           string         `gorm:"type:varchar(100)"`
	Country        string         `gorm:"type:varchar(100)"`
	Role           CustomerRole   `gorm:"type:varchar(20);not null;default:'customer'"`
	SMSOptIn       bool           `gorm:"not null;default:true"`
	EmailOptIn     bool           `gorm:"not null;default:true"`
	OIDCIssuer     string         `gorm:"type:varchar(255);index:idx_customer_oidc,priority:1"`
	OIDCSubject    string         `gorm:"type:varchar(255);index:idx_customer_oidc,priority:2"`
	Status         CustomerStatus `gorm:"type:varchar(20);not null;default:'active'"`
	FailedAttempts int            `gorm:"not null;default:0"`
	LockedUntil    *time.Time
	LastLoginAt    *time.Time
}

// TableName returns the table name for GORM.
func (Customer) TableName() string {
	return "customers"
}

// NewCustomer creates a customer with a local password credential.
func NewCustomer(email, password, firstName, lastName string) (*Customer, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	c := &Customer{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Email:             email,
		PasswordHash:      hash,
		FirstName:         strings.TrimSpace(firstName),
		LastName:          strings.TrimSpace(lastName),
		Role:              RoleCustomer,
		SMSOptIn:          true,
		EmailOptIn:        true,
		Status:            CustomerStatusActive,
	}

	c.AddDomainEvent(NewCustomerRegisteredEvent(c))

	return c, nil
}

// NewFederatedCustomer creates a customer from a verified external identity.
// Such accounts have no local password until one is set explicitly.
func NewFederatedCustomer(email, issuer, subject, firstName, lastName string) (*Customer, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if issuer == "" || subject == "" {
		return nil, shared.NewDomainError("INVALID_IDENTITY", "Issuer and subject are required")
	}

	c := &Customer{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Email:             email,
		FirstName:         strings.TrimSpace(firstName),
		LastName:          strings.TrimSpace(lastName),
		Role:              RoleCustomer,
		OIDCIssuer:        issuer,
		OIDCSubject:       subject,
		SMSOptIn:          true,
		EmailOptIn:        true,
		Status:            CustomerStatusActive,
	}

	c.AddDomainEvent(NewCustomerRegisteredEvent(c))

	return c, nil
}

// FullName returns the customer's display name, falling back to the email.
func (c *Customer) FullName() string {
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if name == "" {
		return c.Email
	}
	return name
}

// UpdateProfile updates name and contact details.
func (c *Customer) UpdateProfile(firstName, lastName, phone, address, city, country string) error {
	if phone != "" {
		if err := validatePhone(phone); err != nil {
			return err
		}
	}
	if len(firstName) > 100 || len(lastName) > 100 {
		return shared.NewDomainError("INVALID_NAME", "Name cannot exceed 100 characters")
	}

	c.FirstName = strings.TrimSpace(firstName)
	c.LastName = strings.TrimSpace(lastName)
	c.Phone = strings.TrimSpace(phone)
	c.Address = strings.TrimSpace(address)
	c.City = strings.TrimSpace(city)
	c.Country = strings.TrimSpace(country)
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	return nil
}

// SetNotificationPreferences sets the per-channel opt-ins.
func (c *Customer) SetNotificationPreferences(sms, email bool) {
	c.SMSOptIn = sms
	c.EmailOptIn = email
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// ChangePassword verifies the current password before setting a new one.
func (c *Customer) ChangePassword(currentPassword, newPassword string) error {
	if !c.VerifyPassword(currentPassword) {
		return shared.NewDomainError("INVALID_PASSWORD", "Current password is incorrect")
	}
	return c.SetPassword(newPassword)
}

// SetPassword sets a new password without checking the old one.
func (c *Customer) SetPassword(newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	c.PasswordHash = hash
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	return nil
}

// VerifyPassword reports whether the given password matches the stored hash.
// Always false for accounts without a local credential.
func (c *Customer) VerifyPassword(password string) bool {
	if c.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) == nil
}

// LinkIdentity attaches an external identity to an existing account.
func (c *Customer) LinkIdentity(issuer, subject string) error {
	if issuer == "" || subject == "" {
		return shared.NewDomainError("INVALID_IDENTITY", "Issuer and subject are required")
	}

	c.OIDCIssuer = issuer
	c.OIDCSubject = subject
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	return nil
}

// RecordLoginSuccess resets the failure counter and stamps the login time.
func (c *Customer) RecordLoginSuccess() {
	now := time.Now()
	c.LastLoginAt = &now
	c.FailedAttempts = 0
	if c.Status == CustomerStatusLocked {
		c.Status = CustomerStatusActive
		c.LockedUntil = nil
	}
	c.UpdatedAt = now
	c.IncrementVersion()
}

// RecordLoginFailure counts a failed attempt and locks the account once the
// limit is reached. Returns true when the account was locked by this call.
func (c *Customer) RecordLoginFailure(maxAttempts int, lockDuration time.Duration) bool {
	c.FailedAttempts++
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	if c.FailedAttempts >= maxAttempts {
		until := time.Now().Add(lockDuration)
		c.Status = CustomerStatusLocked
		c.LockedUntil = &until
		c.AddDomainEvent(NewCustomerLockedEvent(c))
		return true
	}

	return false
}

// IsLocked reports whether the account is currently locked. An expired lock
// no longer counts.
func (c *Customer) IsLocked() bool {
	if c.Status != CustomerStatusLocked {
		return false
	}
	if c.LockedUntil != nil && time.Now().After(*c.LockedUntil) {
		return false
	}
	return true
}

// CanLogin reports whether the account may authenticate.
func (c *Customer) CanLogin() bool {
	if c.Status == CustomerStatusDeactivated {
		return false
	}
	return !c.IsLocked()
}

// Deactivate closes the account.
func (c *Customer) Deactivate() error {
	if c.Status == CustomerStatusDeactivated {
		return shared.NewDomainError("ALREADY_DEACTIVATED", "Customer is already deactivated")
	}

	c.Status = CustomerStatusDeactivated
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	return nil
}

// IsAdmin reports whether the account has staff privileges.
func (c *Customer) IsAdmin() bool {
	return c.Role == RoleAdmin
}

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

func validateEmail(email string) error {
	if email == "" {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	}
	if len(email) > 255 || !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Email format is invalid")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		// bcrypt truncates beyond 72 bytes
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	return nil
}

func validatePhone(phone string) error {
	if !phoneRegex.MatchString(phone) {
		return shared.NewDomainError("INVALID_PHONE", "Phone number format is invalid")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
