package session

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/apolopay/payment-button-go/app/factory"
	"github.com/apolopay/payment-button-go/app/types"
)

type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseLoadingCatalog       Phase = "loading_catalog"
	PhaseSelectingAsset       Phase = "selecting_asset"
	PhaseSelectingNetwork     Phase = "selecting_network"
	PhaseResolvingDeposit     Phase = "resolving_deposit"
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation"
	PhaseSucceeded            Phase = "succeeded"
	PhaseFailed               Phase = "failed"
)

type Outcome string

const (
	OutcomeNone    Outcome = "none"
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrNoAssetSelected   = errors.New("network selected before asset")
	ErrAssetNotFound     = errors.New("asset not available")
	ErrNetworkNotFound   = errors.New("network not available for asset")
)

type catalogClient interface {
	FetchAssets(ctx context.Context) ([]types.Asset, error)
}

type depositResolver interface {
	ResolveDeposit(ctx context.Context, processID, assetID, networkID string) (*types.DepositInfo, error)
}

type confirmationChannel interface {
	Open(processID string, epoch int, onConfirmed func(types.ConfirmationResult), onFailed func(*types.PaymentError)) error
	Close(epoch int)
}

type expiryTimer interface {
	Start(expiresAtMs int64, onTick func(remaining string), onExpired func())
	Stop()
}

// Hooks are the host-facing terminal callbacks, mirroring the onSuccess /
// onError pair the embedding page registers. Either may be nil.
type Hooks struct {
	OnSuccess func(types.ConfirmationResult)
	OnError   func(*types.PaymentError)
}

// Snapshot is an immutable view of the session handed to subscribers on every
// state change. The UI layer renders from it and nothing else.
type Snapshot struct {
	Phase             Phase
	Outcome           Outcome
	Assets            []types.Asset
	SelectedAssetID   string
	SelectedNetworkID string
	Deposit           *types.DepositInfo
	Countdown         string
	Err               *types.PaymentError
	Result            *types.ConfirmationResult
}

// Controller owns the one mutable PaymentSession and drives its lifecycle:
// catalog load, asset/network selection, deposit resolution, realtime
// confirmation and expiry. All collaborators are stateless or emit-only; only
// the controller mutates session state, serialized behind its mutex. The
// first terminal event wins; everything after it is a no-op.
type Controller struct {
	opts     types.SessionOptions
	catalog  catalogClient
	resolver depositResolver
	channel  confirmationChannel
	timer    expiryTimer
	hooks    Hooks
	logger   logrus.FieldLogger

	mu                sync.Mutex
	seq               int
	phase             Phase
	outcome           Outcome
	assets            []types.Asset
	selectedAssetID   string
	selectedNetworkID string
	deposit           *types.DepositInfo
	countdown         string
	lastErr           *types.PaymentError
	result            *types.ConfirmationResult

	listeners    map[int]func(Snapshot)
	nextListener int
}

func New(opts types.SessionOptions, catalog catalogClient, resolver depositResolver, channel confirmationChannel, timer expiryTimer, hooks Hooks) (*Controller, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Controller{
		opts:      opts,
		catalog:   catalog,
		resolver:  resolver,
		channel:   channel,
		timer:     timer,
		hooks:     hooks,
		logger:    factory.LoggerWithProcess(factory.NewModuleLogger("payment-session"), opts.ProcessID),
		phase:     PhaseIdle,
		outcome:   OutcomeNone,
		listeners: map[int]func(Snapshot){},
	}, nil
}

// Subscribe registers a listener invoked with a snapshot after every state
// change. The returned function unsubscribes it.
func (c *Controller) Subscribe(listener func(Snapshot)) func() {
	c.mu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = listener
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Snapshot returns the current session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Open starts a fresh session: any prior channel and timer are torn down, the
// asset catalog is fetched, and the session lands in selecting_asset. A
// catalog failure is terminal for the session (data_load_error).
func (c *Controller) Open(ctx context.Context) error {
	c.mu.Lock()
	c.resetLocked()
	mySeq := c.seq
	c.phase = PhaseLoadingCatalog
	c.notifyLocked()
	c.mu.Unlock()

	assets, err := c.catalog.FetchAssets(ctx)

	c.mu.Lock()
	if c.seq != mySeq {
		c.mu.Unlock()
		c.logger.Debug("Discarding catalog response for superseded session")
		return nil
	}

	if err != nil {
		pe := types.NewPaymentError(types.CodeDataLoadError, "could not load payment options", err)
		c.logger.WithError(err).Error("Catalog load failed")
		c.failLocked(pe)
		hook := c.hooks.OnError
		c.mu.Unlock()
		if hook != nil {
			hook(pe)
		}
		return pe
	}

	c.assets = assets
	c.phase = PhaseSelectingAsset
	c.notifyLocked()
	c.mu.Unlock()
	return nil
}

// SelectAsset records the payer's asset choice and moves to network
// selection, clearing any stale network or deposit data from a prior attempt.
func (c *Controller) SelectAsset(assetID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseSelectingAsset && c.phase != PhaseSelectingNetwork {
		return ErrInvalidTransition
	}
	if _, ok := c.findAssetLocked(assetID); !ok {
		return ErrAssetNotFound
	}

	c.selectedAssetID = assetID
	c.selectedNetworkID = ""
	c.deposit = nil
	c.countdown = ""
	c.lastErr = nil
	c.phase = PhaseSelectingNetwork
	c.notifyLocked()
	return nil
}

// SelectNetwork resolves the deposit target for the chosen asset+network,
// then opens the confirmation channel and starts the expiry countdown. A
// resolver failure is recoverable: the session returns to network selection
// with the error attached and the asset choice preserved.
func (c *Controller) SelectNetwork(ctx context.Context, networkID string) error {
	c.mu.Lock()
	if c.selectedAssetID == "" {
		c.mu.Unlock()
		return ErrNoAssetSelected
	}
	if c.phase != PhaseSelectingNetwork {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	asset, ok := c.findAssetLocked(c.selectedAssetID)
	if !ok {
		c.mu.Unlock()
		return ErrAssetNotFound
	}
	if _, ok := asset.FindNetwork(networkID); !ok {
		c.mu.Unlock()
		return ErrNetworkNotFound
	}

	mySeq := c.seq
	assetID := c.selectedAssetID
	c.selectedNetworkID = networkID
	c.lastErr = nil
	c.phase = PhaseResolvingDeposit
	c.notifyLocked()
	c.mu.Unlock()

	deposit, err := c.resolver.ResolveDeposit(ctx, c.opts.ProcessID, assetID, networkID)

	c.mu.Lock()
	if c.seq != mySeq {
		c.mu.Unlock()
		c.logger.Debug("Discarding deposit resolution for superseded session")
		return nil
	}

	if err != nil {
		c.logger.WithError(err).Warn("Deposit resolution failed")
		c.lastErr = asPaymentError(err, types.CodeAPIError, "could not resolve deposit")
		c.phase = PhaseSelectingNetwork
		c.notifyLocked()
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	// The dial runs outside the lock so Cancel and Snapshot stay responsive.
	// A teardown during the dial invalidates the attempt's epoch and the
	// channel discards the connection itself.
	openErr := c.channel.Open(c.opts.ProcessID, mySeq, c.onConfirmed(mySeq), c.onFailed(mySeq))

	c.mu.Lock()
	if c.seq != mySeq {
		c.mu.Unlock()
		c.logger.Debug("Discarding channel open for superseded session")
		return nil
	}

	if openErr != nil {
		pe := asPaymentError(openErr, types.CodeConnectError, "realtime connection failed")
		c.failLocked(pe)
		hook := c.hooks.OnError
		c.mu.Unlock()
		if hook != nil {
			hook(pe)
		}
		return pe
	}

	c.deposit = deposit
	c.phase = PhaseAwaitingConfirmation
	c.timer.Start(deposit.ExpiresAtMs, c.onTick(mySeq), c.onExpired(mySeq))
	c.notifyLocked()
	c.mu.Unlock()
	return nil
}

// Back navigates to an earlier selection step, tearing down the channel and
// timer when leaving awaiting_confirmation. Only selecting_asset and
// selecting_network are valid targets.
func (c *Controller) Back(to Phase) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if to != PhaseSelectingAsset && to != PhaseSelectingNetwork {
		return ErrInvalidTransition
	}
	switch c.phase {
	case PhaseSelectingNetwork, PhaseAwaitingConfirmation:
	default:
		return ErrInvalidTransition
	}

	if c.phase == PhaseAwaitingConfirmation {
		c.channel.Close(c.seq)
		c.timer.Stop()
		c.seq++
	}

	c.deposit = nil
	c.countdown = ""
	c.lastErr = nil
	if to == PhaseSelectingAsset {
		c.selectedAssetID = ""
	}
	c.selectedNetworkID = ""
	c.phase = to
	c.notifyLocked()
	return nil
}

// Cancel abandons the session from any state: channel closed, timer stopped,
// state reset to idle. It is not a terminal outcome. In-flight catalog or
// resolver responses arriving afterwards are discarded.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	c.notifyLocked()
}

// Close releases the session on host disposal; identical to Cancel.
func (c *Controller) Close() {
	c.Cancel()
}

// resetLocked invalidates the current attempt (so in-flight catalog, resolver
// or dial results get discarded) and returns the session to idle.
func (c *Controller) resetLocked() {
	c.channel.Close(c.seq)
	c.timer.Stop()
	c.seq++
	c.phase = PhaseIdle
	c.outcome = OutcomeNone
	c.assets = nil
	c.selectedAssetID = ""
	c.selectedNetworkID = ""
	c.deposit = nil
	c.countdown = ""
	c.lastErr = nil
	c.result = nil
}

func (c *Controller) onConfirmed(seq int) func(types.ConfirmationResult) {
	return func(result types.ConfirmationResult) {
		c.mu.Lock()
		if c.seq != seq || c.outcome != OutcomeNone {
			c.mu.Unlock()
			return
		}
		c.timer.Stop()
		c.channel.Close(seq)
		c.outcome = OutcomeSuccess
		c.phase = PhaseSucceeded
		r := result
		c.result = &r
		c.logger.WithField("status", result.Status).Info("Payment confirmed")
		c.notifyLocked()
		hook := c.hooks.OnSuccess
		c.mu.Unlock()

		if hook != nil {
			hook(result)
		}
	}
}

func (c *Controller) onFailed(seq int) func(*types.PaymentError) {
	return func(pe *types.PaymentError) {
		c.mu.Lock()
		if c.seq != seq || c.outcome != OutcomeNone {
			c.mu.Unlock()
			return
		}
		c.timer.Stop()
		c.channel.Close(seq)
		c.failLocked(pe)
		hook := c.hooks.OnError
		c.mu.Unlock()

		if hook != nil {
			hook(pe)
		}
	}
}

func (c *Controller) onExpired(seq int) func() {
	return func() {
		c.mu.Lock()
		if c.seq != seq || c.outcome != OutcomeNone {
			c.mu.Unlock()
			return
		}
		c.channel.Close(seq)
		c.timer.Stop()
		pe := types.NewPaymentError(types.CodePaymentTimeout, "payment window expired", nil)
		c.countdown = "00:00"
		c.failLocked(pe)
		hook := c.hooks.OnError
		c.mu.Unlock()

		if hook != nil {
			hook(pe)
		}
	}
}

func (c *Controller) onTick(seq int) func(string) {
	return func(remaining string) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.seq != seq || c.phase != PhaseAwaitingConfirmation {
			return
		}
		c.countdown = remaining
		c.notifyLocked()
	}
}

// failLocked records a terminal error. Callers must hold the mutex and have
// already checked the terminal guard.
func (c *Controller) failLocked(pe *types.PaymentError) {
	c.outcome = OutcomeError
	c.phase = PhaseFailed
	c.lastErr = pe
	c.logger.WithField("code", pe.Code).Warn("Session failed")
	c.notifyLocked()
}

func (c *Controller) findAssetLocked(assetID string) (types.Asset, bool) {
	for _, asset := range c.assets {
		if asset.ID == assetID {
			return asset, true
		}
	}
	return types.Asset{}, false
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		Phase:             c.phase,
		Outcome:           c.outcome,
		SelectedAssetID:   c.selectedAssetID,
		SelectedNetworkID: c.selectedNetworkID,
		Countdown:         c.countdown,
		Err:               c.lastErr,
	}
	if len(c.assets) > 0 {
		snap.Assets = make([]types.Asset, len(c.assets))
		copy(snap.Assets, c.assets)
	}
	if c.deposit != nil {
		deposit := *c.deposit
		snap.Deposit = &deposit
	}
	if c.result != nil {
		result := *c.result
		snap.Result = &result
	}
	return snap
}

// notifyLocked fans the current snapshot out to subscribers. Listeners run on
// the mutating goroutine; they must not call back into the controller.
func (c *Controller) notifyLocked() {
	if len(c.listeners) == 0 {
		return
	}
	snap := c.snapshotLocked()
	for _, listener := range c.listeners {
		listener(snap)
	}
}

func asPaymentError(err error, code, message string) *types.PaymentError {
	var pe *types.PaymentError
	if errors.As(err, &pe) {
		return pe
	}
	return types.NewPaymentError(code, message, err)
}
