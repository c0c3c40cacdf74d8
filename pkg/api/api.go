// Package api implements the REST API for evaluating expressions and
// browsing the evaluation history.
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"github.com/lemonberrylabs/calc/pkg/calc"
	"github.com/lemonberrylabs/calc/pkg/store"
)

// DefaultMaxExpressionLength bounds request expressions when Options leaves
// MaxExpressionLength unset.
const DefaultMaxExpressionLength = 400

// Options configures the API server.
type Options struct {
	// MaxExpressionLength is the longest accepted expression, in characters.
	MaxExpressionLength int
	// Strict rejects expressions with tokens left after the outermost
	// expression.
	Strict bool
	Logger *slog.Logger
}

// Server is the REST API server.
type Server struct {
	app   *fiber.App
	store *store.Store
	opts  Options
	log   *slog.Logger
}

// New creates a new API server.
func New(s *store.Store, opts Options) *Server {
	if opts.MaxExpressionLength <= 0 {
		opts.MaxExpressionLength = DefaultMaxExpressionLength
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		store: s,
		opts:  opts,
		log:   logger.With("component", "api"),
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	srv.app = app
	srv.Register(app)
	return srv
}

// Register mounts the API routes on app. It lets other hosts share one
// fiber app with the API.
func (s *Server) Register(app *fiber.App) {
	app.Get("/healthz", s.healthz)

	app.Post("/v1/evaluations", s.createEvaluation)
	app.Get("/v1/evaluations", s.listEvaluations)
	app.Get("/v1/evaluations/:id", s.getEvaluation)
	app.Delete("/v1/evaluations/:id", s.deleteEvaluation)
	app.Delete("/v1/evaluations", s.clearEvaluations)

	app.Post("/v1/tokens", s.tokenize)
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

type expressionRequest struct {
	Expression string `json:"expression"`
}

func (s *Server) healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) createEvaluation(c *fiber.Ctx) error {
	expr, err := s.readExpression(c)
	if err != nil {
		return invalidArgument(c, err.Error())
	}

	ev := s.store.Evaluate(expr, s.opts.Strict)
	if ev.Error != nil {
		s.log.Info("evaluation failed", "name", ev.Name, "kind", ev.Error.Kind, "error", ev.Error.Message)
	} else {
		s.log.Debug("evaluation succeeded", "name", ev.Name, "result", ev.Result)
	}
	return c.JSON(EvaluationToJSON(ev))
}

func (s *Server) getEvaluation(c *fiber.Ctx) error {
	ev, err := s.store.Get(c.Params("id"))
	if err != nil {
		return notFound(c, err)
	}
	return c.JSON(EvaluationToJSON(ev))
}

func (s *Server) listEvaluations(c *fiber.Ctx) error {
	evaluations := s.store.List()

	items := make([]fiber.Map, len(evaluations))
	for i, ev := range evaluations {
		items[i] = EvaluationToJSON(ev)
	}

	return c.JSON(fiber.Map{
		"evaluations": items,
	})
}

func (s *Server) deleteEvaluation(c *fiber.Ctx) error {
	if err := s.store.Delete(c.Params("id")); err != nil {
		return notFound(c, err)
	}
	return c.JSON(fiber.Map{})
}

func (s *Server) clearEvaluations(c *fiber.Ctx) error {
	s.store.Clear()
	return c.JSON(fiber.Map{})
}

func (s *Server) tokenize(c *fiber.Ctx) error {
	expr, err := s.readExpression(c)
	if err != nil {
		return invalidArgument(c, err.Error())
	}

	tokens, err := calc.Tokenize(expr)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    400,
				"message": err.Error(),
				"status":  "INVALID_ARGUMENT",
				"kind":    calc.KindOf(err).String(),
			},
		})
	}

	items := make([]fiber.Map, len(tokens))
	for i, tok := range tokens {
		items[i] = TokenToJSON(tok)
	}
	return c.JSON(fiber.Map{
		"tokens": items,
	})
}

func (s *Server) readExpression(c *fiber.Ctx) (string, error) {
	var req expressionRequest
	if err := c.BodyParser(&req); err != nil {
		return "", fmt.Errorf("invalid request body: %v", err)
	}
	if req.Expression == "" {
		return "", errors.New("expression is required")
	}
	if n := utf8.RuneCountInString(req.Expression); n > s.opts.MaxExpressionLength {
		return "", fmt.Errorf("expression is %d characters long, the limit is %d", n, s.opts.MaxExpressionLength)
	}
	return req.Expression, nil
}

// --- Helpers ---

func invalidArgument(c *fiber.Ctx, msg string) error {
	return c.Status(400).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    400,
			"message": msg,
			"status":  "INVALID_ARGUMENT",
		},
	})
}

func notFound(c *fiber.Ctx, err error) error {
	return c.Status(404).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    404,
			"message": err.Error(),
			"status":  "NOT_FOUND",
		},
	})
}

// EvaluationToJSON renders an evaluation as the REST resource.
func EvaluationToJSON(ev *store.Evaluation) fiber.Map {
	result := fiber.Map{
		"name":       ev.Name,
		"expression": ev.Expression,
		"state":      ev.State,
		"tokens":     ev.Tokens,
		"createTime": ev.CreateTime.Format(time.RFC3339Nano),
		"endTime":    ev.EndTime.Format(time.RFC3339Nano),
	}

	if ev.Error != nil {
		result["error"] = fiber.Map{
			"kind":    ev.Error.Kind,
			"message": ev.Error.Message,
		}
	} else {
		// JSON has no Inf or NaN; those travel as their formatted text.
		if calc.IsFinite(ev.Result) {
			result["result"] = ev.Result
		} else {
			result["result"] = calc.FormatResult(ev.Result)
		}
	}

	return result
}

// TokenToJSON renders a token as the REST resource.
func TokenToJSON(tok calc.Token) fiber.Map {
	m := fiber.Map{
		"type": tok.Type.String(),
		"pos":  tok.Pos,
	}
	if tok.Type == calc.TokenNumber {
		if calc.IsFinite(tok.Value) {
			m["value"] = tok.Value
		} else {
			m["value"] = calc.FormatResult(tok.Value)
		}
	}
	return m
}
