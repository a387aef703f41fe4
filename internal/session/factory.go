package session

import (
	"context"
	"time"

	"github.com/hyskdev/mexc_runner/internal/browser"
	"github.com/hyskdev/mexc_runner/internal/config"
	"github.com/hyskdev/mexc_runner/internal/dompick"
	"github.com/hyskdev/mexc_runner/internal/profile"
	"github.com/hyskdev/mexc_runner/internal/status"
	"github.com/hyskdev/mexc_runner/internal/trade"
)

// NewForProfile wires a real session: a dedicated Chrome on the profile's
// user data directory and the trade protocol on top of it.
func NewForProfile(req Request, cfg *config.Config, store *profile.Store, rep *status.Reporter) *Session {
	deps := Deps{
		Reporter: rep,
		Launch: func(ctx context.Context) (Driver, error) {
			return browser.Launch(ctx, browser.LaunchOptions{
				UserDataDir: store.UserDataDir(req.Profile.Name),
				Proxy:       profile.ParseProxy(req.Profile.Proxy),
				Headless:    cfg.Headless,
				WindowSize:  cfg.WindowSize,
				EvalTimeout: cfg.ResolveTimeoutMS,
			})
		},
		RunFlow: func(ctx context.Context, drv Driver, onState func(trade.State)) error {
			picker := dompick.NewResolver(drv)
			proto := trade.NewProtocol(drv, picker, req.Trade, trade.Timeouts{
				PageSettle:  time.Duration(cfg.PageSettleMS) * time.Millisecond,
				ClickSettle: time.Duration(cfg.ClickSettleMS) * time.Millisecond,
				Resolve:     time.Duration(cfg.ResolveTimeoutMS) * time.Millisecond,
				Confirm:     time.Duration(cfg.ConfirmTimeoutMS) * time.Millisecond,
			}, onState)
			return proto.Run(ctx)
		},
	}
	return New(req, deps)
}
