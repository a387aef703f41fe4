// Package api exposes the runner's control surface over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hyskdev/mexc_runner/internal/browser"
	"github.com/hyskdev/mexc_runner/internal/controller"
	"github.com/hyskdev/mexc_runner/internal/orchestrator"
	"github.com/hyskdev/mexc_runner/internal/profile"
	"github.com/hyskdev/mexc_runner/internal/status"
)

type Service interface {
	SubmitBatch(ctx context.Context, entries []controller.BatchEntry) (orchestrator.BatchResult, error)
	ListSessions(ctx context.Context) []orchestrator.Info
	StopSession(ctx context.Context, profileName string) error
	ListProfiles(ctx context.Context) []controller.ProfileInfo
	CreateProfile(ctx context.Context, p profile.Profile) error
	DeleteProfile(ctx context.Context, name string) error
	ImportProfiles(ctx context.Context, path string) (profile.ImportResult, error)
	TOTP(ctx context.Context, name string) (controller.TOTPInfo, error)
	DrainEvents(ctx context.Context, max int) []status.Event
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *browser.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case browser.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case browser.CodeResolveNotFound:
			return huma.Error404NotFound(coded.Message)
		case browser.CodeEvalTimeout:
			return huma.Error504GatewayTimeout(coded.Message)
		case browser.CodeCDPUnavailable, browser.CodeNavigationFailed:
			return huma.Error502BadGateway(coded.Message)
		case browser.CodeCancelled:
			return huma.Error409Conflict(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}

func NewServer(svc Service) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("Runner Controller API", "1.0.0")
	api := humachi.New(router, cfg)

	registerBatchHandlers(api, svc)
	registerProfileHandlers(api, svc)

	return router
}

func registerBatchHandlers(api huma.API, svc Service) {
	type healthOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			return out, nil
		})

	type submitInput struct {
		Body struct {
			Entries []controller.BatchEntry `json:"entries"`
		}
	}
	type submitOutput struct {
		Body orchestrator.BatchResult
	}
	huma.Register(api, huma.Operation{OperationID: "submit-batch", Method: http.MethodPost, Path: "/api/v1/batches", Summary: "Submit a batch of sessions", Tags: []string{"Batches"}, DefaultStatus: http.StatusAccepted},
		func(ctx context.Context, input *submitInput) (*submitOutput, error) {
			res, err := svc.SubmitBatch(ctx, input.Body.Entries)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &submitOutput{}
			out.Body = res
			return out, nil
		})

	type sessionsOutput struct {
		Body struct {
			Sessions []orchestrator.Info `json:"sessions"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-sessions", Method: http.MethodGet, Path: "/api/v1/sessions", Summary: "List live sessions", Tags: []string{"Sessions"}},
		func(ctx context.Context, input *struct{}) (*sessionsOutput, error) {
			out := &sessionsOutput{}
			out.Body.Sessions = svc.ListSessions(ctx)
			return out, nil
		})

	type stopInput struct {
		Profile string `path:"profile"`
	}
	type stopOutput struct {
		Body struct {
			Stopped string `json:"stopped"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "stop-session", Method: http.MethodDelete, Path: "/api/v1/sessions/{profile}", Summary: "Stop a session cooperatively", Tags: []string{"Sessions"}},
		func(ctx context.Context, input *stopInput) (*stopOutput, error) {
			if err := svc.StopSession(ctx, input.Profile); err != nil {
				return nil, mapErr(err)
			}
			out := &stopOutput{}
			out.Body.Stopped = input.Profile
			return out, nil
		})

	type eventsInput struct {
		Max int `query:"max" default:"100" doc:"Maximum number of events to drain"`
	}
	type eventsOutput struct {
		Body struct {
			Events []status.Event `json:"events"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "drain-events", Method: http.MethodGet, Path: "/api/v1/events", Summary: "Drain pending status events", Tags: []string{"Sessions"}},
		func(ctx context.Context, input *eventsInput) (*eventsOutput, error) {
			out := &eventsOutput{}
			out.Body.Events = svc.DrainEvents(ctx, input.Max)
			return out, nil
		})
}

func registerProfileHandlers(api huma.API, svc Service) {
	type profilesOutput struct {
		Body struct {
			Profiles []controller.ProfileInfo `json:"profiles"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-profiles", Method: http.MethodGet, Path: "/api/v1/profiles", Summary: "List profiles", Tags: []string{"Profiles"}},
		func(ctx context.Context, input *struct{}) (*profilesOutput, error) {
			out := &profilesOutput{}
			out.Body.Profiles = svc.ListProfiles(ctx)
			return out, nil
		})

	type createProfileInput struct {
		Body struct {
			Name        string `json:"name,omitempty"`
			Email       string `json:"email"`
			Password    string `json:"password,omitempty"`
			Proxy       string `json:"proxy,omitempty"`
			TwoFASecret string `json:"twofa_secret,omitempty"`
		}
	}
	type createProfileOutput struct {
		Body struct {
			Created string `json:"created"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "create-profile", Method: http.MethodPost, Path: "/api/v1/profiles", Summary: "Create a profile", Tags: []string{"Profiles"}, DefaultStatus: http.StatusCreated},
		func(ctx context.Context, input *createProfileInput) (*createProfileOutput, error) {
			p := profile.Profile{
				Name:        input.Body.Name,
				Email:       input.Body.Email,
				Password:    input.Body.Password,
				Proxy:       input.Body.Proxy,
				TwoFASecret: input.Body.TwoFASecret,
			}
			if p.Name == "" {
				p.Name = profile.SanitizeName(p.Email)
			}
			if err := svc.CreateProfile(ctx, p); err != nil {
				return nil, mapErr(err)
			}
			out := &createProfileOutput{}
			out.Body.Created = p.Name
			return out, nil
		})

	type profileNameInput struct {
		Name string `path:"name"`
	}
	type deleteProfileOutput struct {
		Body struct {
			Deleted string `json:"deleted"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "delete-profile", Method: http.MethodDelete, Path: "/api/v1/profiles/{name}", Summary: "Delete a profile", Tags: []string{"Profiles"}},
		func(ctx context.Context, input *profileNameInput) (*deleteProfileOutput, error) {
			if err := svc.DeleteProfile(ctx, input.Name); err != nil {
				return nil, mapErr(err)
			}
			out := &deleteProfileOutput{}
			out.Body.Deleted = input.Name
			return out, nil
		})

	type importInput struct {
		Body struct {
			Path string `json:"path" doc:"Path to an .xlsx workbook on the runner host"`
		}
	}
	type importOutput struct {
		Body profile.ImportResult
	}
	huma.Register(api, huma.Operation{OperationID: "import-profiles", Method: http.MethodPost, Path: "/api/v1/profiles/import", Summary: "Bulk import profiles from Excel", Tags: []string{"Profiles"}},
		func(ctx context.Context, input *importInput) (*importOutput, error) {
			res, err := svc.ImportProfiles(ctx, input.Body.Path)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &importOutput{}
			out.Body = res
			return out, nil
		})

	type totpOutput struct {
		Body controller.TOTPInfo
	}
	huma.Register(api, huma.Operation{OperationID: "profile-totp", Method: http.MethodGet, Path: "/api/v1/profiles/{name}/totp", Summary: "Current 2FA code for a profile", Tags: []string{"Profiles"}},
		func(ctx context.Context, input *profileNameInput) (*totpOutput, error) {
			info, err := svc.TOTP(ctx, input.Name)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &totpOutput{}
			out.Body = info
			return out, nil
		})
}
