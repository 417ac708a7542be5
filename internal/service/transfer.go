package service

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wallet-hub/internal/adapter"
	"github.com/wallet-hub/internal/errors"
	"github.com/wallet-hub/internal/identity"
	"github.com/wallet-hub/internal/logging"
	"github.com/wallet-hub/internal/models"
	"github.com/wallet-hub/internal/types"
)

// SideEffectStore persists the optional post-success artifacts (contacts,
// transfer templates).
type SideEffectStore interface {
	SaveContact(ctx context.Context, contact *models.Contact) error
	SaveTemplate(ctx context.Context, template *models.TransferTemplate) error
}

// TransferOrchestrator drives the transfer flow state machine:
// recipient -> details -> confirm -> processing -> success, with processing
// substages initiating -> signing -> broadcasting -> recording -> completed.
// A pipeline error parks the flow at failed for a short display delay and
// then returns it to confirm with its details and idempotency key intact.
//
// Once processing starts the flow is not user-cancelable; only context
// cancellation stops it. Flows are discarded on abandonment and a retention
// interval after success; every operation checks the caller owns the flow.
type TransferOrchestrator struct {
	flows       *FlowManager
	provider    identity.Provider
	recorder    *Recorder
	aggregator  *Aggregator
	registry    *adapter.Registry
	sideEffects SideEffectStore
	logger      *logging.Logger

	broadcastGrace      time.Duration
	failureDisplayDelay time.Duration
	successRetention    time.Duration
}

// NewTransferOrchestrator creates a new transfer orchestrator
func NewTransferOrchestrator(
	flows *FlowManager,
	provider identity.Provider,
	recorder *Recorder,
	aggregator *Aggregator,
	registry *adapter.Registry,
	sideEffects SideEffectStore,
	broadcastGrace time.Duration,
	failureDisplayDelay time.Duration,
	successRetention time.Duration,
	logger *logging.Logger,
) *TransferOrchestrator {
	return &TransferOrchestrator{
		flows:               flows,
		provider:            provider,
		recorder:            recorder,
		aggregator:          aggregator,
		registry:            registry,
		sideEffects:         sideEffects,
		broadcastGrace:      broadcastGrace,
		failureDisplayDelay: failureDisplayDelay,
		successRetention:    successRetention,
		logger:              logger,
	}
}

// Begin starts a transfer flow for the active account.
func (o *TransferOrchestrator) Begin(userID string, active models.ActiveAccount) FlowView {
	flow := o.flows.Create(userID, active)
	return flow.View()
}

// flowFor looks up a flow and checks the caller owns it. A flow belonging to
// another user reads the same as a missing one.
func (o *TransferOrchestrator) flowFor(userID, flowID string) (*Flow, error) {
	flow, ok := o.flows.Get(flowID)
	if !ok || flow.UserID != userID {
		return nil, errors.NewInvalidParameterError("flowId", "unknown flow")
	}
	return flow, nil
}

// Flow returns the current view of a flow.
func (o *TransferOrchestrator) Flow(userID, flowID string) (FlowView, error) {
	flow, err := o.flowFor(userID, flowID)
	if err != nil {
		return FlowView{}, err
	}
	return flow.View(), nil
}

// Abandon discards a flow the user walked away from. Allowed at any step
// before processing starts; a flow that may already have broadcast cannot be
// abandoned, it runs to success or returns to review.
func (o *TransferOrchestrator) Abandon(userID, flowID string) error {
	flow, err := o.flowFor(userID, flowID)
	if err != nil {
		return err
	}

	flow.mu.Lock()
	switch flow.State {
	case types.FlowRecipient, types.FlowDetails, types.FlowConfirm:
	default:
		flow.mu.Unlock()
		return errors.NewInvalidParameterError("state", "only an unexecuted flow can be abandoned")
	}
	flow.mu.Unlock()

	o.flows.Remove(flowID)
	return nil
}

// SelectRecipient records the recipient and advances to the details step.
// The address must be non-empty and well-formed for the flow's chain.
func (o *TransferOrchestrator) SelectRecipient(userID, flowID, address string, recipientUserID *string) (FlowView, error) {
	flow, err := o.flowFor(userID, flowID)
	if err != nil {
		return FlowView{}, err
	}

	address = strings.TrimSpace(address)
	if address == "" {
		return FlowView{}, errors.NewInvalidParameterError("recipientAddress", "must not be empty")
	}

	chain := flow.Active.ChainType
	if chainAdapter, err := o.registry.ForChain(chain); err == nil {
		if !chainAdapter.ValidateAddress(address) {
			return FlowView{}, errors.NewInvalidAddressError(chain, address)
		}
	}

	flow.mu.Lock()
	defer flow.mu.Unlock()

	if flow.State != types.FlowRecipient && flow.State != types.FlowDetails {
		return FlowView{}, errors.NewInvalidParameterError("state", "recipient can only be set before confirmation")
	}

	flow.Intent.RecipientAddress = address
	flow.Intent.RecipientUserID = recipientUserID
	flow.State = types.FlowDetails
	return o.viewLocked(flow), nil
}

// ConfirmDetails records the amount and memo and advances to the review
// step. The idempotency key for this attempt is minted here and nowhere
// else; re-running the same attempt after a failure reuses it, while editing
// details discards it and a fresh confirmation mints a new one.
func (o *TransferOrchestrator) ConfirmDetails(userID, flowID string, amount decimal.Decimal, memo *string) (FlowView, error) {
	flow, err := o.flowFor(userID, flowID)
	if err != nil {
		return FlowView{}, err
	}

	if !amount.IsPositive() {
		return FlowView{}, errors.NewInvalidParameterError("amount", "must be greater than zero")
	}

	flow.mu.Lock()
	defer flow.mu.Unlock()

	if flow.State != types.FlowDetails {
		return FlowView{}, errors.NewInvalidParameterError("state", "details can only be confirmed from the details step")
	}

	flow.Intent.Amount = amount
	flow.Intent.Currency = flow.Active.ChainType.NativeCurrency()
	flow.Intent.Memo = memo
	flow.Intent.IdempotencyKey = uuid.New().String()
	flow.State = types.FlowConfirm
	return o.viewLocked(flow), nil
}

// EditDetails returns a flow from review to the details step. The pending
// attempt is abandoned: its idempotency key and any stale failure state are
// dropped, so the next confirmation is a new attempt.
func (o *TransferOrchestrator) EditDetails(userID, flowID string) (FlowView, error) {
	flow, err := o.flowFor(userID, flowID)
	if err != nil {
		return FlowView{}, err
	}

	flow.mu.Lock()
	defer flow.mu.Unlock()

	if flow.State != types.FlowConfirm {
		return FlowView{}, errors.NewInvalidParameterError("state", "details can only be edited from the review step")
	}

	flow.Intent.IdempotencyKey = ""
	flow.Intent.TxHash = nil
	flow.LastError = nil
	flow.FailedStage = ""
	flow.State = types.FlowDetails
	return o.viewLocked(flow), nil
}

// Execute runs the processing pipeline for a confirmed flow. The call blocks
// until the pipeline completes or fails; the signing stage in particular may
// wait on out-of-band human approval for an unbounded time, bounded only by
// ctx.
func (o *TransferOrchestrator) Execute(ctx context.Context, userID, flowID string) error {
	flow, err := o.flowFor(userID, flowID)
	if err != nil {
		return err
	}

	flow.mu.Lock()
	if flow.State != types.FlowConfirm {
		flow.mu.Unlock()
		return errors.NewInvalidParameterError("state", "transfer can only be executed from the review step")
	}
	if flow.Intent.IdempotencyKey == "" {
		flow.mu.Unlock()
		return errors.NewInternalError("flow has no idempotency key", nil)
	}
	flow.State = types.FlowProcessing
	flow.Stage = types.StageInitiating
	flow.LastError = nil
	flow.FailedStage = ""
	active := flow.Active
	flow.mu.Unlock()

	log := o.logger.WithFields(map[string]interface{}{
		"flow_id": flowID,
		"user_id": flow.UserID,
		"chain":   string(active.ChainType),
	})

	signer, err := o.provider.GetSigner(ctx, active.LinkedAccount)
	if err != nil {
		log.WithError(err).Warn("transfer failed before signing: no signer")
		return o.fail(flow, types.StageInitiating, errors.NewNoSignerError(active.Address))
	}

	o.setStage(flow, types.StageSigning)

	flow.mu.Lock()
	req := identity.SignRequest{
		From:     active.Address,
		To:       flow.Intent.RecipientAddress,
		Amount:   flow.Intent.Amount,
		Currency: flow.Intent.Currency,
	}
	flow.mu.Unlock()

	txHash, err := signer.SignAndBroadcast(ctx, req)
	if err != nil {
		if stderrors.Is(err, identity.ErrSignerRejected) {
			log.WithError(err).Info("transfer rejected at signing")
			return o.fail(flow, types.StageSigning, errors.NewSignerRejectedError(err))
		}
		log.WithError(err).Error("transfer failed at signing")
		return o.fail(flow, types.StageSigning, errors.NewBroadcastError(err))
	}

	// The hash is on the flow from this point on. Whatever happens next, the
	// user keeps proof of the on-chain action.
	flow.mu.Lock()
	flow.Intent.TxHash = &txHash
	flow.mu.Unlock()

	o.setStage(flow, types.StageBroadcasting)
	select {
	case <-time.After(o.broadcastGrace):
	case <-ctx.Done():
		return o.fail(flow, types.StageBroadcasting, errors.NewBroadcastError(ctx.Err()))
	}

	o.setStage(flow, types.StageRecording)

	flow.mu.Lock()
	intent := flow.Intent
	flow.mu.Unlock()

	recorded, cached, err := o.recorder.Record(ctx, flow.UserID, intent)
	if err != nil {
		log.WithError(err).WithField("tx_hash", txHash).Error("transfer broadcast but recording failed")
		return o.fail(flow, types.StageRecording, errors.NewRecordingError(txHash, err))
	}

	o.complete(ctx, flow, recorded, cached)
	log.WithField("tx_hash", txHash).Info("transfer completed")
	return nil
}

// RetryRecording re-runs only the recording stage after a recording failure,
// with the same idempotency key. A transfer that did reach the ledger on a
// previous attempt resolves as cached rather than double-recording.
func (o *TransferOrchestrator) RetryRecording(ctx context.Context, userID, flowID string) error {
	flow, err := o.flowFor(userID, flowID)
	if err != nil {
		return err
	}

	flow.mu.Lock()
	if flow.FailedStage != types.StageRecording || flow.Intent.TxHash == nil {
		flow.mu.Unlock()
		return errors.NewInvalidParameterError("state", "no failed recording to retry")
	}
	flow.State = types.FlowProcessing
	flow.Stage = types.StageRecording
	flow.LastError = nil
	intent := flow.Intent
	txHash := *flow.Intent.TxHash
	flow.mu.Unlock()

	recorded, cached, err := o.recorder.Record(ctx, flow.UserID, intent)
	if err != nil {
		o.logger.WithError(err).WithField("flow_id", flowID).Error("recording retry failed")
		return o.fail(flow, types.StageRecording, errors.NewRecordingError(txHash, err))
	}

	o.complete(ctx, flow, recorded, cached)
	return nil
}

// SaveRecipientAsContact saves the flow's recipient as a contact. Offered on
// the success screen; failures are logged, never surfaced.
func (o *TransferOrchestrator) SaveRecipientAsContact(userID, flowID, name string) error {
	flow, err := o.flowFor(userID, flowID)
	if err != nil {
		return err
	}

	flow.mu.Lock()
	if flow.State != types.FlowSuccess {
		flow.mu.Unlock()
		return errors.NewInvalidParameterError("state", "contacts can only be saved after a successful transfer")
	}
	contact := &models.Contact{
		UserID:    flow.UserID,
		Name:      name,
		Address:   flow.Intent.RecipientAddress,
		ChainType: flow.Active.ChainType,
	}
	flow.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := o.sideEffects.SaveContact(ctx, contact); err != nil {
			o.logger.WithError(err).WithField("flow_id", flowID).Warn("failed to save contact")
		}
	}()
	return nil
}

// SaveAsTemplate saves the completed transfer's shape as a reusable
// template. Failures are logged, never surfaced.
func (o *TransferOrchestrator) SaveAsTemplate(userID, flowID, name string) error {
	flow, err := o.flowFor(userID, flowID)
	if err != nil {
		return err
	}

	flow.mu.Lock()
	if flow.State != types.FlowSuccess {
		flow.mu.Unlock()
		return errors.NewInvalidParameterError("state", "templates can only be saved after a successful transfer")
	}
	template := &models.TransferTemplate{
		UserID:           flow.UserID,
		Name:             name,
		RecipientAddress: flow.Intent.RecipientAddress,
		Amount:           flow.Intent.Amount,
		Currency:         flow.Intent.Currency,
		Memo:             flow.Intent.Memo,
	}
	flow.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := o.sideEffects.SaveTemplate(ctx, template); err != nil {
			o.logger.WithError(err).WithField("flow_id", flowID).Warn("failed to save template")
		}
	}()
	return nil
}

func (o *TransferOrchestrator) setStage(flow *Flow, stage types.ProcessingStage) {
	flow.mu.Lock()
	flow.Stage = stage
	flow.mu.Unlock()
}

func (o *TransferOrchestrator) complete(ctx context.Context, flow *Flow, recorded *models.LedgerTransaction, cached bool) {
	flow.mu.Lock()
	flow.Stage = types.StageCompleted
	flow.State = types.FlowSuccess
	flow.Result = recorded
	flow.Cached = cached
	flowID := flow.ID
	userID := flow.UserID
	active := flow.Active
	flow.mu.Unlock()

	// The just-sent transfer should show up on the next page load.
	go func() {
		refreshCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		o.aggregator.ClearChain(refreshCtx, userID, active.ChainType)
		if _, err := o.aggregator.Refresh(refreshCtx, userID, active); err != nil {
			o.logger.WithError(err).WithField("user_id", userID).Warn("post-transfer refresh failed")
		}
	}()

	// The success screen lingers long enough to read the receipt and save
	// contacts or templates, then the flow is discarded.
	go func() {
		time.Sleep(o.successRetention)
		o.flows.Remove(flowID)
	}()
}

// fail parks the flow at failed for the display delay, then returns it to
// the review step with recipient, amount, and idempotency key preserved.
func (o *TransferOrchestrator) fail(flow *Flow, stage types.ProcessingStage, categorized *errors.CategorizedError) error {
	flow.mu.Lock()
	flow.State = types.FlowFailed
	flow.Stage = stage
	flow.FailedStage = stage
	flow.LastError = categorized.ToServiceError()
	flow.mu.Unlock()

	go func() {
		time.Sleep(o.failureDisplayDelay)
		flow.mu.Lock()
		if flow.State == types.FlowFailed {
			flow.State = types.FlowConfirm
		}
		flow.mu.Unlock()
	}()

	return categorized
}

func (o *TransferOrchestrator) viewLocked(flow *Flow) FlowView {
	return FlowView{
		ID:          flow.ID,
		State:       flow.State,
		Stage:       flow.Stage,
		Intent:      flow.Intent,
		LastError:   flow.LastError,
		FailedStage: flow.FailedStage,
		Result:      flow.Result,
		Cached:      flow.Cached,
	}
}
