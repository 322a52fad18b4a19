package errors

import "net/http"

// Code is the stable machine-readable identifier clients switch on.
type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeIdempotency  Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"

	CodeSellerConflict           Code = "SELLER_CONFLICT"
	CodeInvalidQuantity          Code = "INVALID_QUANTITY"
	CodeItemNotFound             Code = "ITEM_NOT_FOUND"
	CodeEmptyCart                Code = "EMPTY_CART"
	CodeCartExpired              Code = "CART_EXPIRED"
	CodeInvalidTransition        Code = "INVALID_TRANSITION"
	CodeNotAuthorized            Code = "NOT_AUTHORIZED"
	CodeCheckoutInitiationFailed Code = "CHECKOUT_INITIATION_FAILED"
)

// Metadata controls how a code is rendered. Domain codes are refusals the
// buyer or seller can act on; the rest are request or infrastructure
// failures.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	Domain         bool
	PublicMessage  string
	DetailsAllowed bool
}

type flag uint8

const (
	retryable flag = 1 << iota
	domain
	withDetails
)

func meta(status int, msg string, flags flag) Metadata {
	return Metadata{
		HTTPStatus:     status,
		PublicMessage:  msg,
		Retryable:      flags&retryable != 0,
		Domain:         flags&domain != 0,
		DetailsAllowed: flags&withDetails != 0,
	}
}

var catalog = map[Code]Metadata{
	CodeValidation:   meta(http.StatusBadRequest, "validation failed", withDetails),
	CodeUnauthorized: meta(http.StatusUnauthorized, "authentication required", 0),
	CodeNotFound:     meta(http.StatusNotFound, "resource not found", 0),
	CodeConflict:     meta(http.StatusConflict, "conflict detected", 0),
	CodeIdempotency:  meta(http.StatusConflict, "idempotency key reused", withDetails),
	CodeInternal:     meta(http.StatusInternalServerError, "internal server error", retryable),
	CodeDependency:   meta(http.StatusServiceUnavailable, "dependency unavailable", retryable|withDetails),

	CodeSellerConflict:    meta(http.StatusConflict, "cart already contains items from another seller", domain|withDetails),
	CodeInvalidQuantity:   meta(http.StatusBadRequest, "quantity must be at least 1", domain),
	CodeItemNotFound:      meta(http.StatusNotFound, "item not found in cart", domain),
	CodeEmptyCart:         meta(http.StatusUnprocessableEntity, "cart is empty", domain),
	CodeCartExpired:       meta(http.StatusUnprocessableEntity, "cart has expired", domain),
	CodeInvalidTransition: meta(http.StatusConflict, "order status change not allowed", domain|withDetails),
	CodeNotAuthorized:     meta(http.StatusForbidden, "not authorized to view this order", domain),

	CodeCheckoutInitiationFailed: meta(http.StatusBadGateway, "could not start checkout, please try again", retryable),
}

// MetadataFor falls back to the internal error entry for unknown codes.
func MetadataFor(code Code) Metadata {
	if m, ok := catalog[code]; ok {
		return m
	}
	return catalog[CodeInternal]
}
