package payment

import (
	"fmt"

	"github.com/Fruitloop24/metergate/ports"
)

// NewProvider creates a payment provider based on the configured mode.
func NewProvider(mode string, stripeCfg StripeConfig) (ports.PaymentProvider, error) {
	switch mode {
	case "stripe":
		if stripeCfg.SecretKey == "" {
			return nil, fmt.Errorf("stripe secret key is required")
		}
		return NewStripeProvider(stripeCfg), nil

	case "none", "":
		return NewNoopProvider(), nil

	default:
		return nil, fmt.Errorf("unknown payment provider %q", mode)
	}
}
