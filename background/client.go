package background

import (
	"context"
	"fmt"

	"trust-checker/models"
)

// Sender delivers a message and returns its reply. *Service implements it.
type Sender interface {
	Send(ctx context.Context, msg Message) (Reply, error)
}

// Client wraps a Sender with one typed call per message kind.
type Client struct {
	sender Sender
}

// NewClient creates a Client over sender.
func NewClient(sender Sender) *Client {
	return &Client{sender: sender}
}

// ReportScan sends SCAN_COMPLETE.
func (c *Client) ReportScan(ctx context.Context, signals *models.ListingSignals, a models.RiskAssessment) error {
	reply, err := c.sender.Send(ctx, ScanComplete{RiskScore: a.Score, RiskLevel: a.Level, ListingData: signals})
	if err != nil {
		return err
	}
	return ackError(TypeScanComplete, reply)
}

// Settings sends GET_SETTINGS.
func (c *Client) Settings(ctx context.Context) (models.Settings, error) {
	reply, err := c.sender.Send(ctx, GetSettings{})
	if err != nil {
		return models.Settings{}, err
	}
	r, ok := reply.(SettingsReply)
	if !ok {
		return models.Settings{}, unexpected(TypeGetSettings, reply)
	}
	return r.Settings, nil
}

// CacheSeller sends CACHE_SELLER.
func (c *Client) CacheSeller(ctx context.Context, seller models.CachedSeller) error {
	reply, err := c.sender.Send(ctx, CacheSeller{Seller: seller})
	if err != nil {
		return err
	}
	return ackError(TypeCacheSeller, reply)
}

// CachedSeller sends GET_CACHED_SELLER. It returns nil when there is no
// fresh entry.
func (c *Client) CachedSeller(ctx context.Context, sellerID string) (*models.CachedSeller, error) {
	reply, err := c.sender.Send(ctx, GetCachedSeller{SellerID: sellerID})
	if err != nil {
		return nil, err
	}
	r, ok := reply.(CachedSellerReply)
	if !ok {
		return nil, unexpected(TypeGetCachedSeller, reply)
	}
	return r.Seller, nil
}

func ackError(t MessageType, reply Reply) error {
	switch r := reply.(type) {
	case Ack:
		if !r.Success {
			return fmt.Errorf("background: %s not applied", t)
		}
		return nil
	case ErrorReply:
		return fmt.Errorf("background: %s: %s", t, r.Error)
	default:
		return unexpected(t, reply)
	}
}

func unexpected(t MessageType, reply Reply) error {
	if e, ok := reply.(ErrorReply); ok {
		return fmt.Errorf("background: %s: %s", t, e.Error)
	}
	return fmt.Errorf("background: %s: unexpected reply %T", t, reply)
}
