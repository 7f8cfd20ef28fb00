package storefront

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Remote Error Classification
// ---------------------------------------------------------------------------

// ErrorCode is a stable classification of a remote admin-API failure. The
// upstream platform reports failures as human-readable field/message lists;
// the client adapter maps those onto codes once, at the edge, so callers
// switch over a code instead of substring-matching messages.
type ErrorCode string

const (
	// ErrorCodeAlreadyExists means the resource is already configured
	// remotely; callers usually treat this as success.
	ErrorCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	// ErrorCodeNotFound means the resource does not exist remotely.
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrorCodeForbidden means the credential cannot mutate the resource,
	// e.g. it belongs to a different app installation.
	ErrorCodeForbidden ErrorCode = "FORBIDDEN"
	// ErrorCodeRateLimited means the platform throttled the call.
	ErrorCodeRateLimited ErrorCode = "RATE_LIMITED"
	// ErrorCodeInvalid means the platform rejected the request payload.
	ErrorCodeInvalid ErrorCode = "INVALID"
	// ErrorCodeTransport means the call never produced a platform response.
	ErrorCodeTransport ErrorCode = "TRANSPORT"
	// ErrorCodeUnknown is any remote failure that fits no other code.
	ErrorCodeUnknown ErrorCode = "UNKNOWN"
)

// FieldError is one field/message pair from a remote validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RemoteError is a classified failure from the upstream admin API.
type RemoteError struct {
	Code       ErrorCode
	StatusCode int
	Message    string
	Fields     []FieldError
}

// Error implements the error interface
func (e *RemoteError) Error() string {
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
		}
		return fmt.Sprintf("storefront: %s (%s)", e.Code, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("storefront: %s: %s", e.Code, e.Message)
}

// NewRemoteError creates a classified remote error.
func NewRemoteError(code ErrorCode, statusCode int, message string, fields ...FieldError) *RemoteError {
	return &RemoteError{Code: code, StatusCode: statusCode, Message: message, Fields: fields}
}

// CodeOf extracts the classification from an error chain. Plain errors
// (network failures wrapped by the client) classify as TRANSPORT only when
// wrapped as such; anything unclassified is UNKNOWN.
func CodeOf(err error) ErrorCode {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Code
	}
	return ErrorCodeUnknown
}

// IsCode reports whether the error chain carries the given classification.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// ---------------------------------------------------------------------------
// Fulfillment
// ---------------------------------------------------------------------------

// FulfillmentLineInput selects one remote line item and quantity to fulfill.
type FulfillmentLineInput struct {
	// LineItemID is the upstream line item ID.
	LineItemID int64
	// Quantity is the number of units to fulfill.
	Quantity int
}

// FulfillmentRequest asks the platform to create a fulfillment for an order.
type FulfillmentRequest struct {
	// OrderID is the upstream order ID.
	OrderID int64
	// Lines are the line items to fulfill; empty means the whole order.
	Lines []FulfillmentLineInput
	// NotifyCustomer controls the platform's shipment notification email.
	// The automatic trigger always sends false.
	NotifyCustomer bool
}

// Fulfillment is the platform's record of a created fulfillment.
type Fulfillment struct {
	ID     int64
	Status string
}

// ---------------------------------------------------------------------------
// Carrier Services
// ---------------------------------------------------------------------------

// CarrierService is the platform-owned registration instructing it to call
// back into this system for live shipping rates during checkout.
type CarrierService struct {
	ID                int64
	Name              string
	CallbackURL       string
	Active            bool
	SupportsDiscovery bool
}

// CarrierServiceInput is the mutable portion of a carrier service.
type CarrierServiceInput struct {
	Name              string
	CallbackURL       string
	Active            bool
	SupportsDiscovery bool
}

// ---------------------------------------------------------------------------
// Client Port
// ---------------------------------------------------------------------------

// Client is the port for the upstream platform's admin API. All operations
// carry bounded timeouts via ctx; failures surface as *RemoteError where a
// platform response was received.
type Client interface {
	// CreateFulfillment creates a fulfillment for an order.
	CreateFulfillment(ctx context.Context, conn *ShopConnection, req *FulfillmentRequest) (*Fulfillment, error)

	// ListCarrierServices lists the shop's carrier-service registrations.
	ListCarrierServices(ctx context.Context, conn *ShopConnection) ([]CarrierService, error)

	// CreateCarrierService registers a new carrier service.
	CreateCarrierService(ctx context.Context, conn *ShopConnection, input *CarrierServiceInput) (*CarrierService, error)

	// UpdateCarrierService updates an existing registration in place.
	UpdateCarrierService(ctx context.Context, conn *ShopConnection, id int64, input *CarrierServiceInput) (*CarrierService, error)

	// DeleteCarrierService removes a registration by ID.
	DeleteCarrierService(ctx context.Context, conn *ShopConnection, id int64) error
}
