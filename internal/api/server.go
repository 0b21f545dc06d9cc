package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/ledger"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/models"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type transactionRequest struct {
	Type   string         `json:"type"`
	Client uint16         `json:"client"`
	Tx     uint32         `json:"tx"`
	Amount *models.Amount `json:"amount"`
}

func (r transactionRequest) record() models.Record {
	rec := models.Record{Type: r.Type, Client: r.Client, Tx: r.Tx}
	if r.Amount != nil {
		rec.Amount = r.Amount.String()
	}
	return rec
}

// Server exposes an Engine over HTTP. The engine is single threaded, so
// every handler that touches it holds mu.
type Server struct {
	mu     sync.Mutex
	engine *ledger.Engine
	logger *zap.Logger
	app    *fiber.App
}

func NewServer(engine *ledger.Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{engine: engine, logger: logger}

	s.app = fiber.New(fiber.Config{
		AppName:               "ledger",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(s.logRequests)

	s.app.Get("/health", s.health)
	s.app.Post("/transactions", s.postTransaction)
	s.app.Get("/accounts", s.listAccounts)
	s.app.Get("/accounts/:client", s.getAccount)

	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("latency", time.Since(start)),
	)
	return err
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(ErrorResponse{Code: "http_error", Message: fe.Message})
	}
	s.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{Code: "internal", Message: "internal error"})
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "ok"})
}

func (s *Server) postTransaction(c *fiber.Ctx) error {
	var req transactionRequest
	if err := c.BodyParser(&req); err != nil {
		// Amount decoding errors are precise enough to hand back.
		message := "invalid request body"
		if errors.Is(err, models.ErrMalformed) {
			message = err.Error()
		}
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{Code: "malformed", Message: message})
	}

	tx, err := req.record().Transaction()
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{Code: ledger.Reason(err), Message: err.Error()})
	}

	s.mu.Lock()
	err = s.engine.Apply(c.UserContext(), tx)
	acct, _ := s.engine.Account(tx.ClientID())
	s.mu.Unlock()

	if err != nil {
		status := http.StatusUnprocessableEntity
		if ledger.ClassOf(err) == ledger.ClassMalformed {
			status = http.StatusBadRequest
		}
		return c.Status(status).JSON(ErrorResponse{Code: ledger.Reason(err), Message: err.Error()})
	}
	return c.Status(http.StatusCreated).JSON(acct)
}

func (s *Server) listAccounts(c *fiber.Ctx) error {
	s.mu.Lock()
	accounts := s.engine.Snapshot()
	s.mu.Unlock()

	return c.Status(http.StatusOK).JSON(accounts)
}

func (s *Server) getAccount(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("client"), 10, 16)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{Code: "malformed", Message: "client must be an integer between 0 and 65535"})
	}

	s.mu.Lock()
	acct, ok := s.engine.Account(models.ClientID(id))
	s.mu.Unlock()

	if !ok {
		return c.Status(http.StatusNotFound).JSON(ErrorResponse{Code: "account_not_found", Message: "no account for client " + strconv.FormatUint(id, 10)})
	}
	return c.Status(http.StatusOK).JSON(acct)
}
