package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/pos-ledger/api/responses"
	"github.com/angelmondragon/pos-ledger/pkg/config"
	"github.com/angelmondragon/pos-ledger/pkg/db"
	pkgerrors "github.com/angelmondragon/pos-ledger/pkg/errors"
	"github.com/angelmondragon/pos-ledger/pkg/logger"
)

const (
	envHeader        = "X-POS-Env"
	readinessTimeout = 2 * time.Second
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready once the store answers a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		if dbP == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeStorage, "database not configured"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := dbP.Ping(ctx); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "database ping failed"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready", "database": "ok"})
	}
}
