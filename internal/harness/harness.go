package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/roach88/sift/internal/compiler"
	"github.com/roach88/sift/internal/queryir"
	"github.com/roach88/sift/internal/querysql"
	"github.com/roach88/sift/internal/schema"
	"github.com/roach88/sift/internal/store"
	"github.com/roach88/sift/internal/transport"
)

// Harness is the test execution engine. Each harness owns a fresh
// in-memory database and the registry compiled from the scenario schemas.
type Harness struct {
	store    *store.Store
	registry *schema.Registry
	logger   *slog.Logger
}

// Option configures Run.
type Option func(*Harness)

// WithLogger sets the logger used for per-case debug output.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Compile the scenario's CUE schemas
// 2. Create a fresh in-memory SQLite database and run the setup scripts
// 3. Bind, validate, compile and execute every case
// 4. Check each case against its expectations
//
// A returned error means the scenario could not run at all; expectation
// failures are reported in the Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	reg, errs := compiler.Load(scenario.Schemas)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to compile schemas: %w", errors.Join(errs...))
	}

	ctx := context.Background()
	st, err := store.Open(ctx, "sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:    st,
		registry: reg,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	for i, script := range scenario.Setup {
		if err := st.Exec(ctx, script); err != nil {
			return nil, fmt.Errorf("failed to execute setup[%d]: %w", i, err)
		}
	}

	result := NewResult()
	for _, c := range scenario.Cases {
		cr, err := h.runCase(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("case %q: %w", c.Name, err)
		}
		result.Cases = append(result.Cases, *cr)
		for _, msg := range EvaluateExpect(c, cr, h.keyOf(c.Filter)) {
			result.AddError(fmt.Sprintf("case %q: %s", c.Name, msg))
		}
	}
	return result, nil
}

// runCase runs one request. Client-caused rejections are recorded in the
// CaseResult; anything else is returned as an error.
func (h *Harness) runCase(ctx context.Context, c Case) (*CaseResult, error) {
	def, ok := h.registry.Get(c.Filter)
	if !ok {
		return nil, fmt.Errorf("unknown filter %q", c.Filter)
	}
	values, err := url.ParseQuery(c.Query)
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}

	cr := &CaseResult{Name: c.Name, Filter: c.Filter, Query: c.Query}

	var bindOpts []transport.Option
	if c.IgnoreUnknown {
		bindOpts = append(bindOpts, transport.IgnoreUnknown())
	}
	req, err := transport.ShadowOf(def).Bind(values, bindOpts...)
	if err != nil {
		return rejected(cr, err)
	}

	plan, err := req.Apply(queryir.Plan{})
	if err != nil {
		return rejected(cr, err)
	}
	cr.Plan = plan.(queryir.Plan).Snapshot()

	q, err := req.Apply(h.store.Select(querysql.SourceOf(def.Entity())))
	if err != nil {
		return nil, err
	}
	sel := q.(querysql.Select)
	if cr.SQL, _, err = sel.Compile(); err != nil {
		return nil, err
	}
	if cr.Rows, err = h.store.List(ctx, sel); err != nil {
		return nil, err
	}

	h.logger.Debug("case executed",
		"case", c.Name,
		"filter", c.Filter,
		"rows", len(cr.Rows),
	)
	return cr, nil
}

func rejected(cr *CaseResult, err error) (*CaseResult, error) {
	re, ok := transport.AsRequestError(err)
	if !ok {
		return nil, err
	}
	cr.Report = re.Report
	return cr, nil
}

// keyOf returns the key attribute of the filter's entity.
func (h *Harness) keyOf(name string) string {
	if def, ok := h.registry.Get(name); ok {
		return def.Entity().Key
	}
	return ""
}
