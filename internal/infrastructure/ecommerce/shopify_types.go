package ecommerce

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Wire envelopes for the Shopify admin REST API
// ---------------------------------------------------------------------------

// carrierServiceWire is the carrier_service resource as the admin API
// represents it.
type carrierServiceWire struct {
	ID               int64  `json:"id,omitempty"`
	Name             string `json:"name"`
	CallbackURL      string `json:"callback_url"`
	Active           bool   `json:"active"`
	ServiceDiscovery bool   `json:"service_discovery"`
}

type carrierServiceEnvelope struct {
	CarrierService carrierServiceWire `json:"carrier_service"`
}

type carrierServiceListEnvelope struct {
	CarrierServices []carrierServiceWire `json:"carrier_services"`
}

// fulfillmentLineWire is one line item reference inside a fulfillment request.
type fulfillmentLineWire struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

type fulfillmentWire struct {
	ID             int64                 `json:"id,omitempty"`
	Status         string                `json:"status,omitempty"`
	NotifyCustomer bool                  `json:"notify_customer"`
	LineItems      []fulfillmentLineWire `json:"line_items,omitempty"`
}

type fulfillmentEnvelope struct {
	Fulfillment fulfillmentWire `json:"fulfillment"`
}

// errorEnvelope is the admin API error body. The "errors" value is
// shape-shifting: a plain string, a list, or a map of field names to
// message lists.
type errorEnvelope struct {
	Errors json.RawMessage `json:"errors"`
	Error  string          `json:"error"`
}

// flatten renders the error body into one message string plus per-field
// messages when the map form was used.
func (e *errorEnvelope) flatten() (string, map[string][]string) {
	if e.Error != "" {
		return e.Error, nil
	}
	if len(e.Errors) == 0 {
		return "", nil
	}

	var asString string
	if err := json.Unmarshal(e.Errors, &asString); err == nil {
		return asString, nil
	}

	var asList []string
	if err := json.Unmarshal(e.Errors, &asList); err == nil {
		return strings.Join(asList, "; "), nil
	}

	var asMap map[string][]string
	if err := json.Unmarshal(e.Errors, &asMap); err == nil {
		parts := make([]string, 0, len(asMap))
		for field, msgs := range asMap {
			parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(msgs, ", ")))
		}
		return strings.Join(parts, "; "), asMap
	}

	return string(e.Errors), nil
}
