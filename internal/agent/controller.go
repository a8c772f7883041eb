package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dusk-indust/coauthor/internal/remote"
	"github.com/dusk-indust/coauthor/internal/retry"
)

// EditProposer produces one edit proposal per cycle.
type EditProposer interface {
	Propose(ctx context.Context, documentText, chatSummary string, role remote.RoleSpec) (*Proposal, error)
}

var _ EditProposer = (*Proposer)(nil)

// Settings tunes a Controller.
type Settings struct {
	// DocumentID targets one document; empty follows the store's current one.
	DocumentID string

	// CycleDelay is the pause between cycles and between document polls
	// while awaiting a document.
	CycleDelay time.Duration

	// ChatFetchLimit caps messages per chat fetch; 0 uses the service default.
	ChatFetchLimit int

	// SummaryMessages caps messages rendered into the prompt.
	SummaryMessages int

	// ShutdownGrace bounds how long the goodbye message may take.
	ShutdownGrace time.Duration
}

// DefaultShutdownGrace is used when Settings.ShutdownGrace is zero.
const DefaultShutdownGrace = 2 * time.Second

// Controller runs one agent's cycles: await a document, then repeatedly read
// it, propose an edit, validate and submit it, and announce the outcome.
//
// Shutdown is cooperative. Cancelling the context passed to Run is noticed
// between cycles, between the steps of a cycle, and during sleeps; requests
// already on the wire are allowed to finish.
type Controller struct {
	store    remote.DocumentStore
	chat     remote.ChatFeed
	proposer EditProposer
	chatCtx  *ChatContext
	settings Settings
	initial  AgentState
	logger   *slog.Logger
	sleep    retry.SleepFunc
	observe  func(Event)
	now      func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithSleep replaces the timer used between cycles.
func WithSleep(sleep retry.SleepFunc) Option {
	return func(c *Controller) {
		c.sleep = sleep
	}
}

// WithObserver registers a callback invoked synchronously for every event.
func WithObserver(fn func(Event)) Option {
	return func(c *Controller) {
		c.observe = fn
	}
}

// NewController creates a Controller that starts from state.
func NewController(state AgentState, store remote.DocumentStore, chat remote.ChatFeed, proposer EditProposer, settings Settings, opts ...Option) (*Controller, error) {
	if store == nil || chat == nil || proposer == nil {
		return nil, errors.New("agent: controller requires a store, a chat feed and a proposer")
	}
	if state.AgentID == "" {
		return nil, errors.New("agent: controller requires an agent id")
	}
	if state.EditLimit < 1 {
		return nil, fmt.Errorf("agent: edit limit must be positive, got %d", state.EditLimit)
	}
	if settings.ShutdownGrace <= 0 {
		settings.ShutdownGrace = DefaultShutdownGrace
	}
	if settings.SummaryMessages <= 0 {
		settings.SummaryMessages = DefaultSummaryMessages
	}

	state.Phase = PhaseAwaitingDocument
	state.StopReason = StopNone
	c := &Controller{
		store:    store,
		chat:     chat,
		proposer: proposer,
		chatCtx:  NewChatContext(chat, settings.DocumentID, settings.ChatFetchLimit),
		settings: settings,
		initial:  state,
		logger:   slog.Default(),
		sleep:    retry.Sleep,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("agent_id", state.AgentID)
	return c, nil
}

// Run drives the agent until it stops and returns its final state. Stopping
// for any reason, including a spent budget or shutdown, is not an error.
func (c *Controller) Run(ctx context.Context) AgentState {
	st := c.initial
	c.logger.Info("agent starting", "role", st.RoleName, "edit_limit", st.EditLimit)

	doc, err := c.awaitDocument(ctx, &st)
	switch {
	case errors.Is(err, remote.ErrQuotaExceeded):
		c.stopForQuota(ctx, &st)
	case err != nil:
		st.stop(StopShutdown)
		c.logger.Info("agent stopped before a document was found")
		c.emit(Event{AgentID: st.AgentID, Kind: EventStopped, Detail: string(st.StopReason)})
		return st
	default:
		st.ApplySnapshot(doc)
		st.Phase = PhaseWorking
		c.logger.Info("document found, starting work", "document_id", doc.DocumentID, "role", st.RoleName, "edit_limit", st.EditLimit)
		if err := c.post(context.WithoutCancel(ctx), &st, introMessage(&st), nil); errors.Is(err, remote.ErrQuotaExceeded) {
			c.stopForQuota(ctx, &st)
		} else {
			c.emit(Event{AgentID: st.AgentID, Kind: EventIntroduced, Detail: st.RoleName})
		}
		c.work(ctx, &st)
	}

	c.farewell(ctx, &st)
	return st
}

// work runs cycles until the state leaves PhaseWorking.
func (c *Controller) work(ctx context.Context, st *AgentState) {
	for st.Phase == PhaseWorking {
		if ctx.Err() != nil {
			st.stop(StopShutdown)
			return
		}

		c.Cycle(ctx, st)
		if st.Phase != PhaseWorking {
			return
		}
		if st.LimitReached() {
			st.stop(StopLimitReached)
			return
		}

		c.logger.Debug("waiting before next cycle", "delay", c.settings.CycleDelay)
		if err := c.sleep(ctx, c.settings.CycleDelay); err != nil {
			st.stop(StopShutdown)
		}
	}
}

// awaitDocument polls until a document exists. It returns ctx's error on
// shutdown and an ErrQuotaExceeded error when the budget is spent.
func (c *Controller) awaitDocument(ctx context.Context, st *AgentState) (*remote.DocumentSnapshot, error) {
	c.logger.Info("waiting for document to be initialized")
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		doc, err := c.store.CurrentDocument(context.WithoutCancel(ctx), c.settings.DocumentID)
		switch {
		case err == nil:
			return doc, nil
		case errors.Is(err, remote.ErrQuotaExceeded):
			return nil, err
		case errors.Is(err, remote.ErrNotFound):
			c.logger.Info("no document yet, waiting", "delay", c.settings.CycleDelay)
			c.emit(Event{AgentID: st.AgentID, Kind: EventWaiting})
		default:
			c.logger.Warn("error checking document, retrying", "delay", c.settings.CycleDelay, "error", err)
		}

		if err := c.sleep(ctx, c.settings.CycleDelay); err != nil {
			return nil, err
		}
	}
}

// Cycle runs one Working iteration against st. Failures other than a spent
// budget are logged and end the cycle; the agent keeps running.
func (c *Controller) Cycle(ctx context.Context, st *AgentState) {
	st.Cycles++
	c.logger.Info("starting edit cycle", "cycle", st.Cycles, "completed", st.CompletedEdits, "edit_limit", st.EditLimit)

	err := c.runCycle(ctx, st)
	switch {
	case err == nil:
	case errors.Is(err, remote.ErrQuotaExceeded):
		c.stopForQuota(ctx, st)
	default:
		c.logger.Error("error in agent cycle", "cycle", st.Cycles, "error", err)
		c.emit(Event{AgentID: st.AgentID, Kind: EventFailed, Cycle: st.Cycles, Err: err})
	}
}

func (c *Controller) runCycle(ctx context.Context, st *AgentState) error {
	calls := context.WithoutCancel(ctx)

	doc, err := c.store.CurrentDocument(calls, c.settings.DocumentID)
	if errors.Is(err, remote.ErrNotFound) {
		c.logger.Info("no document found, waiting")
		c.emit(Event{AgentID: st.AgentID, Kind: EventWaiting, Cycle: st.Cycles})
		return nil
	}
	if err != nil {
		return err
	}

	switch {
	case !doc.Active():
		c.logger.Info("document is no longer active, stopping", "document_id", doc.DocumentID, "status", doc.Status)
		st.stop(StopDocumentClosed)
		return c.post(calls, st, inactiveMessage(doc.Status), nil)
	case doc.CeilingReached():
		c.logger.Info("document reached its edit ceiling, stopping", "document_id", doc.DocumentID, "max_edits", doc.MaxEdits)
		st.stop(StopCeilingReached)
		return c.post(calls, st, ceilingMessage(doc.MaxEdits), nil)
	}

	st.ApplySnapshot(doc)
	if st.LimitReached() {
		c.logger.Info("reached per-agent edit limit, stopping", "edit_limit", st.EditLimit)
		st.stop(StopLimitReached)
		return c.post(calls, st, limitMessage(st), nil)
	}

	msgs, watermark, err := c.chatCtx.FetchSince(calls, st.Watermark)
	if err != nil {
		return err
	}
	st.Watermark = watermark
	c.logger.Info("fetched document and chat",
		"document_id", doc.DocumentID, "version", doc.Version, "length", len(doc.Text), "messages", len(msgs))

	if c.interrupted(ctx, st) {
		return nil
	}
	role := remote.RoleSpec{Name: st.RoleName, Prompt: st.RolePrompt}
	proposal, err := c.proposer.Propose(calls, doc.Text, Summarize(msgs, c.settings.SummaryMessages), role)
	if err != nil {
		return err
	}
	c.logger.Info("generated edit", "operation", proposal.Edit.Operation(), "reasoning", proposal.Reasoning)

	if err := Validate(proposal, doc.Text); err != nil {
		c.logger.Warn("anchor not found in document, skipping edit", "anchor", proposal.Edit.AnchorText())
		c.emit(Event{AgentID: st.AgentID, Kind: EventSkipped, Cycle: st.Cycles, Operation: proposal.Edit.Operation(), Detail: "anchor not found"})
		return c.post(calls, st, skippedMessage(proposal), newIntent(st.AgentID, proposal, remote.IntentCancelled, c.now()))
	}

	if c.interrupted(ctx, st) {
		return nil
	}
	documentID := c.settings.DocumentID
	if documentID == "" {
		documentID = doc.DocumentID
	}
	result, err := c.store.SubmitEdit(calls, proposal.Request(documentID, st.AgentID))
	if err != nil {
		return err
	}
	c.logger.Info("edit submitted", "status", result.Status, "edit_id", result.EditID, "version", result.Version)

	if result.Accepted() {
		st.RecordAccepted()
		c.emit(Event{AgentID: st.AgentID, Kind: EventApplied, Cycle: st.Cycles, Operation: proposal.Edit.Operation()})
		return c.post(calls, st, appliedMessage(proposal), newIntent(st.AgentID, proposal, remote.IntentExecuted, c.now()))
	}
	c.emit(Event{AgentID: st.AgentID, Kind: EventRejected, Cycle: st.Cycles, Operation: proposal.Edit.Operation()})
	return c.post(calls, st, rejectedMessage(proposal), newIntent(st.AgentID, proposal, remote.IntentCancelled, c.now()))
}

// interrupted moves st to PhaseStopped when shutdown has been requested.
func (c *Controller) interrupted(ctx context.Context, st *AgentState) bool {
	if ctx.Err() == nil {
		return false
	}
	c.logger.Info("shutdown requested, abandoning cycle", "cycle", st.Cycles)
	st.stop(StopShutdown)
	return true
}

// post announces text in the chat using ctx as is, so callers pass a context
// detached from shutdown. Only a spent budget is returned; other failures are
// logged because announcements never decide the agent's fate.
func (c *Controller) post(ctx context.Context, st *AgentState, text string, intent *remote.EditIntent) error {
	_, err := c.chat.PostMessage(ctx, remote.PostMessageRequest{
		AgentID:    st.AgentID,
		Message:    text,
		DocumentID: c.settings.DocumentID,
		AgentRole:  st.RoleName,
		Intent:     intent,
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, remote.ErrQuotaExceeded) {
		return err
	}
	c.logger.Warn("failed to post chat message", "error", err)
	return nil
}

// stopForQuota stops the agent because its budget is spent. A state that is
// already stopped keeps its original reason.
func (c *Controller) stopForQuota(ctx context.Context, st *AgentState) {
	c.logger.Warn("budget exceeded, stopping agent")
	if st.Phase == PhaseStopped {
		return
	}
	st.stop(StopQuotaExceeded)
	if err := c.post(context.WithoutCancel(ctx), st, quotaMessage, nil); err != nil {
		c.logger.Warn("failed to announce budget stop", "error", err)
	}
}

// farewell posts the goodbye message once, within the shutdown grace period.
func (c *Controller) farewell(ctx context.Context, st *AgentState) {
	c.logger.Info("agent finished", "completed", st.CompletedEdits, "edit_limit", st.EditLimit, "reason", st.StopReason)

	gctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.settings.ShutdownGrace)
	defer cancel()
	if err := c.post(gctx, st, goodbyeMessage(st), nil); err != nil {
		c.logger.Warn("failed to post goodbye message", "error", err)
	}
	c.emit(Event{AgentID: st.AgentID, Kind: EventStopped, Cycle: st.Cycles, Detail: string(st.StopReason)})
}

// emit sends an event if an observer is registered.
func (c *Controller) emit(ev Event) {
	if c.observe != nil {
		c.observe(ev)
	}
}
