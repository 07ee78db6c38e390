// Package background is the settings, seller-cache and stats owner. The
// page side talks to it only through messages, and a single goroutine
// applies them to the store one at a time.
package background

import (
	"encoding/json"
	"fmt"

	"trust-checker/models"
)

// MessageType tags a message on the wire.
type MessageType string

const (
	TypeScanComplete    MessageType = "SCAN_COMPLETE"
	TypeGetSettings     MessageType = "GET_SETTINGS"
	TypeCacheSeller     MessageType = "CACHE_SELLER"
	TypeGetCachedSeller MessageType = "GET_CACHED_SELLER"
)

// Message is one of ScanComplete, GetSettings, CacheSeller or GetCachedSeller.
type Message interface {
	Type() MessageType
	isMessage()
}

// ScanComplete reports a finished analysis.
type ScanComplete struct {
	RiskScore   int                    `json:"riskScore"`
	RiskLevel   models.RiskLevel       `json:"riskLevel,omitempty"`
	ListingData *models.ListingSignals `json:"listingData,omitempty"`
}

// GetSettings asks for the current settings.
type GetSettings struct{}

// CacheSeller upserts a seller record; CachedAt is set by the receiver.
type CacheSeller struct {
	Seller models.CachedSeller
}

// GetCachedSeller asks for a fresh cache entry.
type GetCachedSeller struct {
	SellerID string
}

func (ScanComplete) Type() MessageType    { return TypeScanComplete }
func (GetSettings) Type() MessageType     { return TypeGetSettings }
func (CacheSeller) Type() MessageType     { return TypeCacheSeller }
func (GetCachedSeller) Type() MessageType { return TypeGetCachedSeller }

func (ScanComplete) isMessage()    {}
func (GetSettings) isMessage()     {}
func (CacheSeller) isMessage()     {}
func (GetCachedSeller) isMessage() {}

// Reply is one of Ack, SettingsReply, CachedSellerReply or ErrorReply.
type Reply interface {
	isReply()
}

// Ack acknowledges a write.
type Ack struct {
	Success bool `json:"success"`
}

// SettingsReply carries the settings object.
type SettingsReply struct {
	models.Settings
}

// CachedSellerReply carries a fresh cache entry, or nil.
type CachedSellerReply struct {
	Seller *models.CachedSeller
}

// MarshalJSON encodes the bare entry, or null when absent.
func (r CachedSellerReply) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Seller)
}

// ErrorReply reports a message the worker could not handle.
type ErrorReply struct {
	Error string `json:"error"`
}

func (Ack) isReply()               {}
func (SettingsReply) isReply()     {}
func (CachedSellerReply) isReply() {}
func (ErrorReply) isReply()        {}

// UnknownMessageError is returned when decoding an unrecognized type.
type UnknownMessageError struct {
	Type MessageType
}

func (e *UnknownMessageError) Error() string {
	return fmt.Sprintf("background: unknown message type %q", e.Type)
}

// Envelope is the JSON wire form of a message.
type Envelope struct {
	Type     MessageType     `json:"type"`
	Data     json.RawMessage `json:"data,omitempty"`
	SellerID string          `json:"sellerId,omitempty"`
}

// Decode parses a wire message into its typed form.
func Decode(raw []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("background: decode envelope: %w", err)
	}

	switch env.Type {
	case TypeScanComplete:
		var m ScanComplete
		if err := decodeData(env, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeGetSettings:
		return GetSettings{}, nil
	case TypeCacheSeller:
		var seller models.CachedSeller
		if err := decodeData(env, &seller); err != nil {
			return nil, err
		}
		return CacheSeller{Seller: seller}, nil
	case TypeGetCachedSeller:
		return GetCachedSeller{SellerID: env.SellerID}, nil
	default:
		return nil, &UnknownMessageError{Type: env.Type}
	}
}

func decodeData(env Envelope, dst any) error {
	if len(env.Data) == 0 {
		return fmt.Errorf("background: %s: missing data", env.Type)
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return fmt.Errorf("background: %s: decode data: %w", env.Type, err)
	}
	return nil
}

// Encode renders a typed message in wire form.
func Encode(m Message) ([]byte, error) {
	env := Envelope{Type: m.Type()}
	var data any
	switch v := m.(type) {
	case ScanComplete:
		data = v
	case CacheSeller:
		data = v.Seller
	case GetCachedSeller:
		env.SellerID = v.SellerID
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("background: encode %s: %w", m.Type(), err)
		}
		env.Data = raw
	}
	return json.Marshal(env)
}
