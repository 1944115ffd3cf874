package agent

import (
	"errors"
	"log/slog"

	"github.com/randalmurphal/agentgraph/pkg/agentgraph"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/checkpoint"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/config"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/observability"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/provider"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/state"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/tool"
)

// Builder compiles an AgentConfig plus runtime collaborators into an
// executable Agent. The config is never mutated.
//
// Example:
//
//	agent, err := agent.NewBuilder(cfg,
//	    agent.WithProvider(model),
//	    agent.WithTools(tools),
//	    agent.WithCheckpointStore(store),
//	).Build()
type Builder struct {
	cfg       *config.AgentConfig
	provider  provider.Provider
	tools     *tool.Registry
	handlers  map[string]Handler
	evaluator ConditionEvaluator
	logger    *slog.Logger
	store     checkpoint.Store
	metrics   observability.MetricsRecorder
	spans     observability.SpanManager
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithProvider sets the LLM provider. Required when the config declares
// llm nodes.
func WithProvider(p provider.Provider) BuilderOption {
	return func(b *Builder) { b.provider = p }
}

// WithTools sets the tool registry. Every tool node's tool must be
// registered before Build.
func WithTools(reg *tool.Registry) BuilderOption {
	return func(b *Builder) { b.tools = reg }
}

// WithHandler binds a custom node handler by name.
func WithHandler(name string, h Handler) BuilderOption {
	return func(b *Builder) {
		if b.handlers == nil {
			b.handlers = make(map[string]Handler)
		}
		b.handlers[name] = h
	}
}

// WithEvaluator replaces the default condition evaluator.
func WithEvaluator(eval ConditionEvaluator) BuilderOption {
	return func(b *Builder) {
		if eval != nil {
			b.evaluator = eval
		}
	}
}

// WithLogger sets the logger for build warnings and run events.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) { b.logger = logger }
}

// WithCheckpointStore enables thread-keyed checkpointing and resume.
func WithCheckpointStore(store checkpoint.Store) BuilderOption {
	return func(b *Builder) { b.store = store }
}

// WithMetrics sets the metrics recorder, honored when the config enables
// metrics.
func WithMetrics(m observability.MetricsRecorder) BuilderOption {
	return func(b *Builder) { b.metrics = m }
}

// WithTracing sets the span manager, honored when the config enables
// tracing.
func WithTracing(spans observability.SpanManager) BuilderOption {
	return func(b *Builder) { b.spans = spans }
}

// NewBuilder creates a builder for the given config.
func NewBuilder(cfg *config.AgentConfig, opts ...BuilderOption) *Builder {
	b := &Builder{
		cfg:       cfg,
		evaluator: NewExprEvaluator(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build validates the config and its runtime bindings, compiles the
// workflow graph, and returns the executable agent.
//
// Binding checks (joined into one error):
//   - llm nodes require a provider
//   - tool nodes require their tool to be registered
//   - custom nodes require their handler to be bound
func (b *Builder) Build() (*Agent, error) {
	if b.cfg == nil {
		return nil, errors.New("agent: config is required")
	}
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := b.checkBindings(); err != nil {
		return nil, err
	}

	g := agentgraph.NewGraph[state.State]()
	for _, nc := range b.cfg.Nodes {
		g.AddNode(nc.ID, b.buildUnit(nc))
		if nc.Type == config.NodeConditional {
			g.AddConditionalEdge(nc.ID, newConditionalRouter(nc, b.evaluator))
		}
	}

	b.wireTopology(g)

	entry := b.cfg.EntryPoint
	if entry == "" {
		entry = b.cfg.Nodes[0].ID
	}
	g.SetEntry(entry)

	compiled, err := g.Compile()
	if err != nil {
		return nil, err
	}

	return &Agent{
		cfg:      b.cfg,
		compiled: compiled,
		provider: b.provider,
		tools:    b.tools,
		logger:   b.logger,
		store:    b.store,
		metrics:  b.metrics,
		spans:    b.spans,
	}, nil
}

// checkBindings verifies every capability the config references is
// resolvable now, so an unusable agent is never built. The declared
// tools list and tool nodes both require registration; each missing
// tool is reported once.
func (b *Builder) checkBindings() error {
	var errs []error

	missingTools := make(map[string]bool)
	requireTool := func(name string) {
		if b.tools != nil && b.tools.Has(name) {
			return
		}
		if !missingTools[name] {
			missingTools[name] = true
			errs = append(errs, &tool.NotFoundError{Name: name})
		}
	}

	for _, name := range b.cfg.Tools {
		requireTool(name)
	}

	providerChecked := false
	for _, nc := range b.cfg.Nodes {
		switch nc.Type {
		case config.NodeLLM:
			if b.provider == nil && !providerChecked {
				errs = append(errs, ErrProviderRequired)
				providerChecked = true
			}
		case config.NodeTool:
			requireTool(nc.Tool)
		case config.NodeCustom:
			if _, ok := b.handlers[nc.Handler]; !ok {
				errs = append(errs, &HandlerNotFoundError{Name: nc.Handler})
			}
		}
	}

	return errors.Join(errs...)
}

// buildUnit constructs the execution unit for a node, wrapped with its
// retry policy and timeout. The node retry block overrides the agent's.
func (b *Builder) buildUnit(nc config.NodeConfig) agentgraph.NodeFunc[state.State] {
	var fn agentgraph.NodeFunc[state.State]
	switch nc.Type {
	case config.NodeLLM:
		fn = newLLMNode(nc, b.cfg.SystemPrompt)
	case config.NodeTool:
		fn = newToolNode(nc)
	case config.NodeConditional:
		fn = newConditionalNode(nc)
	case config.NodeHumanInput:
		fn = newHumanInputNode(nc)
	case config.NodeCustom:
		fn = newCustomNode(nc, b.handlers[nc.Handler])
	}

	retry := nc.Retry
	if retry == nil {
		retry = b.cfg.Retry
	}
	fn = withNodeTimeout(nc.ID, nc.Timeout.Std(), fn)
	fn = withRetry(nc.ID, retryFromConfig(retry), fn)

	if b.cfg.Workflow == config.WorkflowCyclic {
		fn = withIterationTick(fn)
	}
	return fn
}

// withIterationTick bumps the state iteration counter after each
// successful execution in a cyclic workflow.
func withIterationTick(fn agentgraph.NodeFunc[state.State]) agentgraph.NodeFunc[state.State] {
	return func(ctx agentgraph.Context, st state.State) (state.State, error) {
		result, err := fn(ctx, st)
		if err != nil {
			return result, err
		}
		result.IncrementIterations()
		return result, nil
	}
}

// wireTopology adds edges according to the workflow type.
func (b *Builder) wireTopology(g *agentgraph.Graph[state.State]) {
	switch b.cfg.Workflow {
	case config.WorkflowSequential:
		b.wireSequential(g)
	case config.WorkflowParallel:
		b.wireParallel(g)
	case config.WorkflowConditional:
		if len(b.cfg.Edges) > 0 {
			b.wireExplicit(g)
		} else {
			b.wireSequential(g)
		}
	case config.WorkflowCyclic:
		if len(b.cfg.Edges) > 0 {
			b.wireExplicit(g)
		} else {
			b.wireRing(g)
		}
	case config.WorkflowCustom:
		b.wireExplicit(g)
	}
}

// wireSequential chains non-conditional nodes in declared order; the last
// one routes to END. Conditional nodes own their routing and are excluded
// from the chain.
func (b *Builder) wireSequential(g *agentgraph.Graph[state.State]) {
	var chain []string
	for _, nc := range b.cfg.Nodes {
		if nc.Type == config.NodeConditional {
			continue
		}
		chain = append(chain, nc.ID)
	}
	for i := 0; i+1 < len(chain); i++ {
		g.AddEdge(chain[i], chain[i+1])
	}
	if len(chain) > 0 {
		g.AddEdge(chain[len(chain)-1], agentgraph.END)
	}
}

// wireParallel routes every non-conditional node directly to END.
// Execution stays sequential from the entry point; this is all-roots
// fan-out, not scatter-gather, and callers are warned.
func (b *Builder) wireParallel(g *agentgraph.Graph[state.State]) {
	for _, nc := range b.cfg.Nodes {
		if nc.Type == config.NodeConditional {
			continue
		}
		g.AddEdge(nc.ID, agentgraph.END)
	}
	b.logger.Warn("parallel topology executes as all-roots fan-out, not concurrent scatter-gather",
		"agent", b.cfg.Name,
	)
}

// wireRing wires node i to node (i+1) mod N with constant routers, forming
// the default cycle. Routers are used so compilation accepts the cycle;
// the run's iteration limit is what terminates it. Conditional nodes keep
// their own branch routers.
func (b *Builder) wireRing(g *agentgraph.Graph[state.State]) {
	n := len(b.cfg.Nodes)
	for i, nc := range b.cfg.Nodes {
		if nc.Type == config.NodeConditional {
			continue
		}
		next := b.cfg.Nodes[(i+1)%n].ID
		g.AddConditionalEdge(nc.ID, constRouter(next))
	}
}

// wireExplicit wires the config's explicit edges. Unconditional edges
// become simple edges; a node with any conditioned edge gets a router that
// evaluates its edges in declared order and takes the first match, falling
// back to END. Edges out of conditional nodes are ignored (their branch
// router owns routing). Non-conditional nodes left without an outgoing
// edge route to END.
func (b *Builder) wireExplicit(g *agentgraph.Graph[state.State]) {
	grouped := make(map[string][]config.EdgeConfig)
	var order []string
	for _, e := range b.cfg.Edges {
		if _, seen := grouped[e.From]; !seen {
			order = append(order, e.From)
		}
		grouped[e.From] = append(grouped[e.From], e)
	}

	routed := make(map[string]bool)
	for _, from := range order {
		if nc, ok := b.cfg.Node(from); ok && nc.Type == config.NodeConditional {
			b.logger.Warn("ignoring explicit edges out of conditional node, branches own routing",
				"agent", b.cfg.Name,
				"node_id", from,
			)
			continue
		}

		edges := grouped[from]
		if hasConditionedEdge(edges) {
			g.AddConditionalEdge(from, b.edgeRouter(edges))
			routed[from] = true
			continue
		}
		for _, e := range edges {
			g.AddEdge(from, e.To)
		}
		routed[from] = true
	}

	for _, nc := range b.cfg.Nodes {
		if nc.Type == config.NodeConditional || routed[nc.ID] {
			continue
		}
		g.AddEdge(nc.ID, agentgraph.END)
	}
}

// edgeRouter evaluates conditioned edges in declared order.
// An unconditional edge in the list always matches when reached; a failed
// evaluation skips the edge. No match routes to END. END aliases in edge
// targets are normalized by the engine.
func (b *Builder) edgeRouter(edges []config.EdgeConfig) agentgraph.RouterFunc[state.State] {
	return func(ctx agentgraph.Context, st state.State) string {
		for _, e := range edges {
			if e.Condition == "" {
				return e.To
			}
			result, err := b.evaluator.Evaluate(e.Condition, st)
			if err != nil {
				ctx.Logger().Warn("edge condition evaluation failed, skipping edge",
					"to", e.To,
					"condition", e.Condition,
					"error", err.Error(),
				)
				continue
			}
			if isTruthyResult(result) {
				return e.To
			}
		}
		return agentgraph.END
	}
}

// hasConditionedEdge reports whether any edge in the list carries a condition.
func hasConditionedEdge(edges []config.EdgeConfig) bool {
	for _, e := range edges {
		if e.Condition != "" {
			return true
		}
	}
	return false
}

// constRouter always routes to the same target.
func constRouter(target string) agentgraph.RouterFunc[state.State] {
	return func(ctx agentgraph.Context, st state.State) string {
		return target
	}
}

// isTruthyResult interprets an evaluated condition string as a boolean.
func isTruthyResult(result string) bool {
	switch result {
	case "", "false", "null", "0":
		return false
	}
	return true
}
