package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flexvault/internal/config"
	"flexvault/internal/handler"
	"flexvault/internal/middleware"
	auth "flexvault/internal/usecase/auth_usecase"
	"flexvault/internal/validator"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// ルーティングに渡すハンドラ一式
type Handlers struct {
	Auth   *handler.AuthHandler
	Items  *handler.ItemHandler
	Cart   *handler.CartHandler
	Orders *handler.OrderHandler
}

// 共通ミドルウェアとルートを載せたechoを作る。counterはnil可（rate limitなし）
func New(cfg config.Config, log *logrus.Logger, h Handlers, verifier auth.AccessTokenVerifier, counter middleware.RateCounter) *echo.Echo {
	// 金額はJSONで数値として返す
	decimal.MarshalJSONWithoutQuotes = true

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validator.New()

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins(),
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, handler.HeaderIdempotencyKey},
		ExposeHeaders: []string{echo.HeaderContentLength, echo.HeaderXRequestID},
		MaxAge:        int((12 * time.Hour).Seconds()),
	}))
	if cfg.HTTPLogEnabled {
		e.Use(middleware.RequestLogger(log))
	}

	authMW := middleware.AuthJWT(verifier)
	rateLimit := middleware.RateLimit(counter, cfg.LoginRateLimit, cfg.LoginRateWindow, middleware.KeyByIPAndPath("rl:auth"), log)

	RegisterRoutes(e, h, authMW, rateLimit)
	return e
}

// SIGINT/SIGTERMまでサーバーを動かし、受けたら止める
func Run(e *echo.Echo, addr string, log *logrus.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	log.Info("server exited properly")
	return nil
}
