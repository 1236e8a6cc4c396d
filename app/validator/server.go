package validator

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/domos-network/domosx/app/validator/controller"
	"github.com/domos-network/domosx/app/validator/types"
	"github.com/domos-network/domosx/pkg/utils"
)

// NewServer builds the HTTP server for the peer digest endpoint and the
// operator API.
func NewServer(app *types.App) {
	ctler := controller.NewController(app)

	// use <ip>:<port> to bind to a specific interface or :<port> to bind to all interfaces
	addr := utils.Env("ADDR", ":3004")

	app.Server = &http.Server{
		Addr:              addr,
		Handler:           ctler.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	app.Logger.Info("Starting server", zap.String("addr", addr))
}
