package draft

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Phase is the edit session state. It gates which edit affordances are
// active; transitions are driven by the Controller.
type Phase int

const (
	// PhaseViewOnly is the initial state: the record is displayed, no
	// editing has been requested.
	PhaseViewOnly Phase = iota
	// PhaseEditing means an authorized store is attached and edits flow.
	PhaseEditing
	// PhasePreviewing pauses widget affordances without network effect.
	PhasePreviewing
	// PhaseDone is terminal: the session is closed server-side.
	PhaseDone
	// PhaseOutsideAuthority means the backend tracks no draft for this
	// resource. Edit affordances are hidden gracefully; this is not an
	// error state.
	PhaseOutsideAuthority
)

func (p Phase) String() string {
	switch p {
	case PhaseViewOnly:
		return "view-only"
	case PhaseEditing:
		return "editing"
	case PhasePreviewing:
		return "previewing"
	case PhaseDone:
		return "done"
	case PhaseOutsideAuthority:
		return "outside-authority"
	default:
		return "invalid"
	}
}

// Controller drives the edit session state machine: it brokers
// authorization, attaches the store to the synchronizer, and owns the phase
// transitions.
type Controller struct {
	resourceID string
	broker     Broker
	sync       *Synchronizer
	msg        Messenger
	log        *zap.Logger

	phase   Phase
	resumed bool
}

// NewController creates a session controller for one resource, starting in
// the view-only phase.
func NewController(resourceID string, broker Broker, sync *Synchronizer, msg Messenger, log *zap.Logger) *Controller {
	if msg == nil {
		msg = NopMessenger{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		resourceID: resourceID,
		broker:     broker,
		sync:       sync,
		msg:        msg,
		log:        log,
		phase:      PhaseViewOnly,
	}
}

// Phase returns the current session phase.
func (c *Controller) Phase() Phase {
	return c.phase
}

// Synchronizer exposes the underlying synchronizer for editing widgets.
func (c *Controller) Synchronizer() *Synchronizer {
	return c.sync
}

// Start inspects the page URL for the post-login resume marker. When the
// marker is present it is consumed and editing restarts non-interactively,
// exactly once. The cleaned URL is returned for the address bar.
func (c *Controller) Start(ctx context.Context, rawURL string) (string, error) {
	clean, present := ConsumeEditMarker(rawURL)
	if !present || c.resumed {
		return clean, nil
	}
	c.resumed = true
	c.log.Info("resuming edit session from login round trip",
		zap.String("resource", c.resourceID))
	return clean, c.StartEditing(ctx)
}

// StartEditing moves the session into editing. If a store is already
// attached the transition is immediate; otherwise the broker resolves
// authorization and the draft is loaded. A draft-fetch 404 lands in
// outside-authority; an authorization denial or failure lands in previewing
// with a user-facing message.
func (c *Controller) StartEditing(ctx context.Context) error {
	if c.phase == PhaseDone {
		c.log.Warn("start editing requested after the session was closed")
		return nil
	}

	if c.sync.Bound() {
		c.phase = PhaseEditing
		return nil
	}

	store, err := c.broker.AuthorizeEditing(ctx, c.resourceID)
	if errors.Is(err, ErrLoginRedirect) {
		// the browser is navigating away; nothing more to do here
		return nil
	}
	if err != nil {
		c.phase = PhasePreviewing
		c.msg.SystemError("unable to determine your editing permissions: " + err.Error())
		return err
	}
	if store == nil {
		c.phase = PhasePreviewing
		c.msg.UserMessage("You do not have permission to edit this record.")
		return nil
	}

	c.sync.Bind(store)
	if src, ok := c.broker.(CredentialSource); ok {
		c.sync.SetUser(src.Credential().UserID)
	}

	record, err := c.sync.LoadDraft(ctx)
	if err != nil {
		if IsNotFound(err) {
			c.phase = PhaseOutsideAuthority
			c.log.Info("no draft tracked for resource; hiding edit affordances",
				zap.String("resource", c.resourceID))
			return nil
		}
		c.phase = PhasePreviewing
		return err
	}

	// the server draft may already hold edits from an earlier visit
	c.sync.CheckUpdatedFields(record)
	c.phase = PhaseEditing
	return nil
}

// Preview toggles from editing to previewing with no network effect.
func (c *Controller) Preview() {
	if c.phase == PhaseEditing {
		c.phase = PhasePreviewing
	}
}

// ResumeEditing toggles back from previewing to editing.
func (c *Controller) ResumeEditing() {
	if c.phase == PhasePreviewing && c.sync.Bound() {
		c.phase = PhaseEditing
	}
}

// Discard reverts the draft to its committed baseline and moves to
// previewing.
func (c *Controller) Discard(ctx context.Context) error {
	if c.phase != PhaseEditing && c.phase != PhasePreviewing {
		return nil
	}
	if err := c.sync.DiscardAll(ctx); err != nil {
		return err
	}
	c.phase = PhasePreviewing
	return nil
}

// Finish closes the session. Done is terminal: no transition leaves it.
func (c *Controller) Finish(ctx context.Context) error {
	if c.phase != PhaseEditing {
		return nil
	}
	if err := c.sync.Finish(ctx); err != nil {
		return err
	}
	c.phase = PhaseDone
	return nil
}
