package opcua

import (
	"context"
	"fmt"
	"strings"

	"github.com/ghalamif/opcbridge/internal/domain"
	"github.com/ghalamif/opcbridge/internal/ports"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"
)

// Variant encoding mask layout: low six bits carry the built-in type id,
// bit 7 flags an array.
const (
	variantTypeMask    = 0x3f
	variantArrayValues = 0x80
)

// Client reads single values by string node id within one namespace.
// It wraps exactly one gopcua session and is discarded after a failed
// connect.
type Client struct {
	endpoint  string
	namespace uint16
	ua        *opcua.Client
}

// NewFactory returns the ClientFactory the connection manager uses to
// allocate fresh handles.
func NewFactory(cfg Config) ports.ClientFactory {
	return func(endpoint string) (ports.ReadClient, error) {
		return NewClient(endpoint, cfg)
	}
}

func NewClient(endpoint string, cfg Config) (*Client, error) {
	uc, err := opcua.NewClient(endpoint, buildClientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("opcua new client: %w", err)
	}
	return &Client{
		endpoint:  endpoint,
		namespace: uint16(cfg.Namespace),
		ua:        uc,
	}, nil
}

func (c *Client) Connect(ctx context.Context) error {
	if err := c.ua.Connect(ctx); err != nil {
		return fmt.Errorf("opcua connect %s: %w", c.endpoint, err)
	}
	return nil
}

func (c *Client) Read(ctx context.Context, identifier string) (domain.RawScalar, error) {
	req := &ua.ReadRequest{
		NodesToRead: []*ua.ReadValueID{{
			NodeID:      ua.NewStringNodeID(c.namespace, identifier),
			AttributeID: ua.AttributeIDValue,
		}},
		TimestampsToReturn: ua.TimestampsToReturnNeither,
	}

	resp, err := c.ua.Read(ctx, req)
	if err != nil {
		return domain.RawScalar{}, fmt.Errorf("%w: %s: %v", domain.ErrReadFailed, identifier, err)
	}
	if resp == nil || len(resp.Results) == 0 {
		return domain.RawScalar{}, fmt.Errorf("%w: %s: empty result", domain.ErrReadFailed, identifier)
	}
	dv := resp.Results[0]
	if dv.Status != ua.StatusOK {
		return domain.RawScalar{}, fmt.Errorf("%w: %s: %s", domain.ErrReadFailed, identifier, dv.Status)
	}
	return variantToRaw(identifier, dv.Value)
}

func (c *Client) Close(ctx context.Context) error {
	return c.ua.Close(ctx)
}

// variantToRaw re-encodes the variant to its binary form and strips the mask
// byte, so the poll cycle decodes exactly what the server sent.
func variantToRaw(identifier string, v *ua.Variant) (domain.RawScalar, error) {
	if v == nil {
		return domain.RawScalar{}, fmt.Errorf("%w: %s: no value", domain.ErrReadFailed, identifier)
	}
	b, err := v.Encode()
	if err != nil {
		return domain.RawScalar{}, fmt.Errorf("%w: %s: encode variant: %v", domain.ErrReadFailed, identifier, err)
	}
	if len(b) == 0 || b[0]&variantTypeMask == 0 {
		return domain.RawScalar{}, fmt.Errorf("%w: %s: null variant", domain.ErrReadFailed, identifier)
	}
	if b[0]&variantArrayValues != 0 {
		return domain.RawScalar{}, fmt.Errorf("%w: %s", domain.ErrNotScalar, identifier)
	}
	return domain.RawScalar{
		Type: domain.WireType(b[0] & variantTypeMask),
		Body: b[1:],
	}, nil
}

func buildClientOptions(cfg Config) []opcua.Option {
	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(cfg.SecurityMode)),
		opcua.SecurityPolicy(normalizeSecurityPolicy(cfg.SecurityPolicy)),
		opcua.ApplicationName(cfg.ApplicationName),
		// The connection manager owns reconnects.
		opcua.AutoReconnect(false),
	}
	if cfg.RequestTimeout > 0 {
		opts = append(opts, opcua.RequestTimeout(cfg.RequestTimeout))
	}

	if cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(cfg.Username, cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}
	return opts
}

func normalizeSecurityMode(mode string) string {
	switch strings.ToLower(mode) {
	case "sign":
		return "Sign"
	case "signandencrypt", "signencrypt", "sign_and_encrypt", "sign+encrypt":
		return "SignAndEncrypt"
	default:
		return "None"
	}
}

func normalizeSecurityPolicy(policy string) string {
	if policy == "" {
		return "None"
	}
	return policy
}

var _ ports.ReadClient = (*Client)(nil)
