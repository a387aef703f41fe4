// Package trade runs the order-submission flow on an already-open page:
// navigate, pick the order kind tab, fill price and size, submit, confirm.
package trade

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hyskdev/mexc_runner/internal/browser"
)

// OrderKind selects the order form tab.
type OrderKind string

const (
	KindMarket OrderKind = "market"
	KindLimit  OrderKind = "limit"
)

// Side is the position direction.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Config describes one order submission.
type Config struct {
	// TargetURL is the trading pair page. A missing scheme is fixed to
	// https:// before navigation.
	TargetURL string    `json:"target_url"`
	Kind      OrderKind `json:"kind"`
	Side      Side      `json:"side"`

	// Preset selects a size slider stop (25, 50, 75, 100). Zero means
	// Percent carries a custom size instead.
	Preset  int     `json:"preset,omitempty"`
	Percent float64 `json:"percent,omitempty"`

	// LimitPrice is required for limit orders and ignored for market.
	LimitPrice float64 `json:"limit_price,omitempty"`
}

// Validate rejects configs the page would refuse, before any browser work.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.TargetURL) == "" {
		return browser.NewError(browser.CodeValidation, "target url is required", nil)
	}
	switch c.Kind {
	case KindMarket, KindLimit:
	default:
		return browser.NewError(browser.CodeValidation, fmt.Sprintf("unknown order kind: %q", c.Kind), nil)
	}
	switch c.Side {
	case SideLong, SideShort:
	default:
		return browser.NewError(browser.CodeValidation, fmt.Sprintf("unknown side: %q", c.Side), nil)
	}
	switch c.Preset {
	case 0:
		if c.Percent <= 0 || c.Percent > 100 {
			return browser.NewError(browser.CodeValidation,
				fmt.Sprintf("position size must be in (0, 100], got %v", c.Percent), nil)
		}
	case 25, 50, 75, 100:
	default:
		return browser.NewError(browser.CodeValidation,
			fmt.Sprintf("preset must be 25, 50, 75 or 100, got %d", c.Preset), nil)
	}
	if c.Kind == KindLimit && c.LimitPrice <= 0 {
		return browser.NewError(browser.CodeValidation,
			fmt.Sprintf("limit price must be positive, got %v", c.LimitPrice), nil)
	}
	return nil
}

// FixURL prepends https:// when the scheme is missing.
func FixURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return u
	}
	if strings.Contains(u, "://") {
		return u
	}
	return "https://" + u
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
