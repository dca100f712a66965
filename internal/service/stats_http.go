package service

import (
	"context"
	"strconv"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/transport/http"
)

const (
	OperationListOrigins = "/scoutbot.v1.Stats/ListOrigins"
	OperationBlockStats  = "/scoutbot.v1.Stats/BlockStats"
	OperationAlerts      = "/scoutbot.v1.Stats/Alerts"
	OperationResetOrigin = "/scoutbot.v1.Stats/ResetOrigin"
)

// RegisterStatsHTTPServer mounts the stats routes on s.
func RegisterStatsHTTPServer(s *http.Server, svc *StatsService) {
	r := s.Route("/")
	r.GET("/v1/origins", listOriginsHandler(svc))
	r.GET("/v1/blockstats", blockStatsHandler(svc))
	r.GET("/v1/alerts", alertsHandler(svc))
	r.POST("/v1/origins/{origin}/reset", resetOriginHandler(svc))
}

func listOriginsHandler(svc *StatsService) http.HandlerFunc {
	return func(ctx http.Context) error {
		http.SetOperation(ctx, OperationListOrigins)
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.ListOrigins(ctx)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func blockStatsHandler(svc *StatsService) http.HandlerFunc {
	return func(ctx http.Context) error {
		http.SetOperation(ctx, OperationBlockStats)

		top := 0
		if raw := ctx.Query().Get("top"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return kerrors.BadRequest("INVALID_TOP", "top must be an integer")
			}
			top = n
		}

		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.BlockStats(ctx, top)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.String(200, out.(string))
	}
}

func alertsHandler(svc *StatsService) http.HandlerFunc {
	return func(ctx http.Context) error {
		http.SetOperation(ctx, OperationAlerts)
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.Alerts(ctx)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func resetOriginHandler(svc *StatsService) http.HandlerFunc {
	return func(ctx http.Context) error {
		http.SetOperation(ctx, OperationResetOrigin)
		target := ctx.Vars().Get("origin")
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.ResetOrigin(ctx, target)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}
