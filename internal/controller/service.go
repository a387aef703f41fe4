// Package controller bridges the control API to the profile store, the
// orchestrator, and the status reporter.
package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hyskdev/mexc_runner/internal/browser"
	"github.com/hyskdev/mexc_runner/internal/orchestrator"
	"github.com/hyskdev/mexc_runner/internal/profile"
	"github.com/hyskdev/mexc_runner/internal/session"
	"github.com/hyskdev/mexc_runner/internal/status"
	"github.com/hyskdev/mexc_runner/internal/trade"
)

// BatchEntry is one profile's slot in a submitted batch.
type BatchEntry struct {
	Profile string       `json:"profile"`
	Mode    string       `json:"mode,omitempty" enum:"trade,open" default:"trade"`
	Trade   trade.Config `json:"trade,omitempty"`
}

// ProfileInfo is the API-safe profile view: credentials are masked, the
// 2FA secret reduced to a presence flag.
type ProfileInfo struct {
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Proxy      string    `json:"proxy,omitempty"`
	HasTwoFA   bool      `json:"has_twofa"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
}

// TOTPInfo is a current 2FA code with its validity window.
type TOTPInfo struct {
	Code      string `json:"code"`
	Remaining int    `json:"remaining_seconds"`
}

// Service implements the control operations the API exposes.
type Service struct {
	store    *profile.Store
	orch     *orchestrator.Orchestrator
	reporter *status.Reporter
}

func New(store *profile.Store, orch *orchestrator.Orchestrator, reporter *status.Reporter) *Service {
	return &Service{store: store, orch: orch, reporter: reporter}
}

// SubmitBatch validates every entry up front, then starts the whole batch
// under one run id. A single invalid entry rejects the batch; a profile
// that is merely busy does not.
func (s *Service) SubmitBatch(ctx context.Context, entries []BatchEntry) (orchestrator.BatchResult, error) {
	if len(entries) == 0 {
		return orchestrator.BatchResult{}, browser.NewError(browser.CodeValidation, "batch is empty", nil)
	}

	reqs := make([]session.Request, 0, len(entries))
	for i, e := range entries {
		p, err := s.store.Get(e.Profile)
		if err != nil {
			return orchestrator.BatchResult{}, browser.NewError(browser.CodeValidation,
				fmt.Sprintf("entry %d: %v", i, err), nil)
		}

		mode := session.Mode(e.Mode)
		if mode == "" {
			mode = session.ModeTrade
		}
		switch mode {
		case session.ModeTrade:
			if err := e.Trade.Validate(); err != nil {
				return orchestrator.BatchResult{}, browser.NewError(browser.CodeValidation,
					fmt.Sprintf("entry %d (%s): %v", i, e.Profile, err), nil)
			}
		case session.ModeOpen:
		default:
			return orchestrator.BatchResult{}, browser.NewError(browser.CodeValidation,
				fmt.Sprintf("entry %d: unknown mode %q", i, e.Mode), nil)
		}

		reqs = append(reqs, session.Request{Profile: p, Mode: mode, Trade: e.Trade})
	}

	runID := uuid.NewString()
	for _, r := range reqs {
		_ = s.store.Touch(r.Profile.Name)
	}
	return s.orch.Submit(runID, reqs), nil
}

// ListSessions reports the live sessions.
func (s *Service) ListSessions(ctx context.Context) []orchestrator.Info {
	return s.orch.Live()
}

// StopSession requests a cooperative stop for one profile's session.
func (s *Service) StopSession(ctx context.Context, profileName string) error {
	if !s.orch.Stop(profileName) {
		return browser.NewError(browser.CodeResolveNotFound, "no live session for profile: "+profileName, nil)
	}
	return nil
}

// ListProfiles returns the masked profile listing.
func (s *Service) ListProfiles(ctx context.Context) []ProfileInfo {
	stored := s.store.List()
	out := make([]ProfileInfo, 0, len(stored))
	for _, p := range stored {
		out = append(out, ProfileInfo{
			Name:       p.Name,
			Email:      p.Email,
			Proxy:      profile.MaskProxy(p.Proxy),
			HasTwoFA:   p.TwoFASecret != "",
			CreatedAt:  p.CreatedAt,
			LastUsedAt: p.LastUsedAt,
		})
	}
	return out
}

// CreateProfile registers a profile; the name is derived from the email
// when not given.
func (s *Service) CreateProfile(ctx context.Context, p profile.Profile) error {
	if p.Name == "" {
		p.Name = profile.SanitizeName(p.Email)
	}
	p.Proxy = profile.ParseProxy(p.Proxy)
	if err := s.store.Create(p); err != nil {
		return browser.NewError(browser.CodeValidation, err.Error(), nil)
	}
	return nil
}

// DeleteProfile removes a profile unless it has a live session.
func (s *Service) DeleteProfile(ctx context.Context, name string) error {
	for _, live := range s.orch.Live() {
		if live.Profile == name {
			return browser.NewError(browser.CodeValidation, "profile has a live session: "+name, nil)
		}
	}
	if err := s.store.Delete(name); err != nil {
		return browser.NewError(browser.CodeResolveNotFound, err.Error(), nil)
	}
	return nil
}

// ImportProfiles bulk-imports accounts from an Excel workbook on disk.
func (s *Service) ImportProfiles(ctx context.Context, path string) (profile.ImportResult, error) {
	res, err := s.store.ImportExcel(path)
	if err != nil {
		return profile.ImportResult{}, browser.NewError(browser.CodeValidation, err.Error(), nil)
	}
	return res, nil
}

// TOTP returns the current 2FA code for a profile.
func (s *Service) TOTP(ctx context.Context, name string) (TOTPInfo, error) {
	p, err := s.store.Get(name)
	if err != nil {
		return TOTPInfo{}, browser.NewError(browser.CodeResolveNotFound, err.Error(), nil)
	}
	code, remaining, err := profile.TOTPCode(p.TwoFASecret, time.Now())
	if err != nil {
		return TOTPInfo{}, browser.NewError(browser.CodeValidation, err.Error(), nil)
	}
	return TOTPInfo{Code: code, Remaining: remaining}, nil
}

// DrainEvents returns up to max pending status events without blocking.
func (s *Service) DrainEvents(ctx context.Context, max int) []status.Event {
	if max <= 0 {
		max = 100
	}
	out := make([]status.Event, 0, max)
	for len(out) < max {
		select {
		case ev := <-s.reporter.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
	return out
}
