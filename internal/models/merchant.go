package models

import "encoding/json"

// Topology says how the merchants of a region are addressed upstream.
type Topology string

const (
	// TopologyDirect merchants are independent accounts fetched one by one.
	TopologyDirect Topology = "direct"
	// TopologyMCA merchants are children of one multi-client account and are
	// fetched with a single list call against the parent.
	TopologyMCA Topology = "mca"
)

type MerchantDescriptor struct {
	DisplayName     string `json:"name"`
	AccountID       string `json:"accountId"`
	ParentAccountID string `json:"parentAccountId,omitempty"`
}

type Region struct {
	Key             string               `json:"region"`
	Label           string               `json:"name"`
	Topology        Topology             `json:"topology"`
	ParentAccountID string               `json:"parentAccountId,omitempty"`
	Merchants       []MerchantDescriptor `json:"merchants"`
}

// AccountStatus is one record of a parent account list response.
type AccountStatus struct {
	AccountID string
	Payload   json.RawMessage
}

// StatusResult carries either Data or Error, never both.
type StatusResult struct {
	Name  string          `json:"name"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

func Success(name string, payload json.RawMessage) StatusResult {
	return StatusResult{Name: name, Data: payload}
}

func Failure(name, message string) StatusResult {
	if message == "" {
		message = "unknown error"
	}
	return StatusResult{Name: name, Error: message}
}

func (r StatusResult) OK() bool {
	return r.Error == ""
}

type AggregationResponse struct {
	Name string         `json:"name"`
	Data []StatusResult `json:"data"`

	// Transient is set when some entry failed for a reason that may clear up
	// on its own, like a timeout or a throttled request. Never serialized.
	Transient bool `json:"-"`
}
