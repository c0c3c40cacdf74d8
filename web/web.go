// Package web provides the embedded web UI for the calculator.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"github.com/lemonberrylabs/calc/pkg/api"
	"github.com/lemonberrylabs/calc/pkg/calc"
	"github.com/lemonberrylabs/calc/pkg/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// recentLimit is how many evaluations the dashboard shows.
const recentLimit = 10

// Options configures the web UI.
type Options struct {
	MaxExpressionLength int
	Strict              bool
}

// Handler serves the web UI pages.
type Handler struct {
	store   *store.Store
	opts    Options
	funcMap template.FuncMap
}

// pageData wraps all page-specific data with common fields.
type pageData struct {
	NavActive string
	Strict    bool
	Data      interface{}
}

// New creates a new web UI handler.
func New(s *store.Store, opts Options) *Handler {
	if opts.MaxExpressionLength <= 0 {
		opts.MaxExpressionLength = api.DefaultMaxExpressionLength
	}
	return &Handler{
		store: s,
		opts:  opts,
		funcMap: template.FuncMap{
			"evalID":       store.ID,
			"timeAgo":      timeAgo,
			"formatTime":   formatTime,
			"duration":     duration,
			"stateClass":   stateClass,
			"stateIcon":    stateIcon,
			"truncate":     truncate,
			"formatResult": calc.FormatResult,
		},
	}
}

func (h *Handler) render(c *fiber.Ctx, page string, navActive string, data interface{}) error {
	// Each page is parsed with the layout alone so define blocks never
	// collide across pages.
	tmpl := template.Must(
		template.New("").Funcs(h.funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+page),
	)

	pd := pageData{
		NavActive: navActive,
		Strict:    h.opts.Strict,
		Data:      data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, page, pd); err != nil {
		return c.Status(500).SendString(fmt.Sprintf("template error: %v", err))
	}

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Send(buf.Bytes())
}

// Register adds web UI routes to the Fiber app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/ui", h.dashboard)
	app.Post("/ui/evaluate", h.evaluate)
	app.Get("/ui/evaluations", h.evaluationList)
	app.Get("/ui/evaluations/:id", h.evaluationDetail)

	// Redirect root to UI
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/ui")
	})
}

// --- Page Data Types ---

type dashboardContent struct {
	Recent         []*store.Evaluation
	Stats          store.Stats
	Expression     string
	FormError      string
	MaxExpressions int
}

type evaluationListContent struct {
	Evaluations []*store.Evaluation
}

type evaluationDetailContent struct {
	Evaluation *store.Evaluation
	ID         string
	Tokens     []calc.Token
	// TokenError is set when the expression did not scan.
	TokenError string
}

type notFoundContent struct {
	Message string
}

// --- Page Handlers ---

func (h *Handler) dashboard(c *fiber.Ctx) error {
	return h.renderDashboard(c, "", "")
}

func (h *Handler) renderDashboard(c *fiber.Ctx, expr, formErr string) error {
	recent := h.store.List()
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}

	return h.render(c, "dashboard.html", "dashboard", dashboardContent{
		Recent:         recent,
		Stats:          h.store.Stats(),
		Expression:     expr,
		FormError:      formErr,
		MaxExpressions: h.opts.MaxExpressionLength,
	})
}

func (h *Handler) evaluate(c *fiber.Ctx) error {
	expr := c.FormValue("expression")
	if expr == "" {
		return h.renderDashboard(c, "", "Enter an expression to evaluate.")
	}
	if n := utf8.RuneCountInString(expr); n > h.opts.MaxExpressionLength {
		return h.renderDashboard(c, expr, fmt.Sprintf("Expression is %d characters long, the limit is %d.", n, h.opts.MaxExpressionLength))
	}

	ev := h.store.Evaluate(expr, h.opts.Strict)
	return c.Redirect("/ui/evaluations/"+store.ID(ev.Name), fiber.StatusSeeOther)
}

func (h *Handler) evaluationList(c *fiber.Ctx) error {
	return h.render(c, "evaluation_list.html", "evaluations", evaluationListContent{
		Evaluations: h.store.List(),
	})
}

func (h *Handler) evaluationDetail(c *fiber.Ctx) error {
	id := c.Params("id")

	ev, err := h.store.Get(id)
	if err != nil {
		return h.render(c, "not_found.html", "", notFoundContent{
			Message: fmt.Sprintf("Evaluation '%s' not found", id),
		})
	}

	content := evaluationDetailContent{
		Evaluation: ev,
		ID:         id,
	}
	tokens, err := calc.Tokenize(ev.Expression)
	if err != nil {
		content.TokenError = err.Error()
	} else {
		content.Tokens = tokens
	}

	return h.render(c, "evaluation_detail.html", "evaluations", content)
}

// --- Template Helpers ---

func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", m)
	case d < 24*time.Hour:
		h := int(d.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func duration(start, end time.Time) string {
	d := end.Sub(start)
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
}

func stateClass(state store.EvaluationState) string {
	switch state {
	case store.EvaluationSucceeded:
		return "state-succeeded"
	case store.EvaluationFailed:
		return "state-failed"
	default:
		return ""
	}
}

func stateIcon(state store.EvaluationState) template.HTML {
	switch state {
	case store.EvaluationSucceeded:
		return "&#10003;"
	case store.EvaluationFailed:
		return "&#10007;"
	default:
		return "&#8226;"
	}
}

func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}
