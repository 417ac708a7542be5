package service

import (
	"sync"

	"github.com/google/uuid"
	"github.com/wallet-hub/internal/models"
	"github.com/wallet-hub/internal/types"
)

// Flow is one in-flight transfer attempt. Flows live in process memory only;
// a restart abandons them, and any transfer that already broadcast recovers
// through RetryRecording from a fresh flow.
type Flow struct {
	mu sync.Mutex

	ID     string
	UserID string
	Active models.ActiveAccount

	State types.FlowState
	// Stage is meaningful while State is processing or failed.
	Stage types.ProcessingStage

	Intent models.TransferIntent

	// LastError describes the most recent pipeline failure, kept for display
	// after the flow returns to the review step.
	LastError *types.ServiceError
	// FailedStage is the stage the last failure happened at.
	FailedStage types.ProcessingStage

	// Result is the ledger row once recording succeeds.
	Result *models.LedgerTransaction
	// Cached is true when recording found an existing row for the key.
	Cached bool
}

// View is a consistent copy of the flow for reading. The returned value
// shares no mutable state with the live flow.
func (f *Flow) View() FlowView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FlowView{
		ID:          f.ID,
		State:       f.State,
		Stage:       f.Stage,
		Intent:      f.Intent,
		LastError:   f.LastError,
		FailedStage: f.FailedStage,
		Result:      f.Result,
		Cached:      f.Cached,
	}
}

// FlowView is the read-only snapshot of a flow returned to callers.
type FlowView struct {
	ID          string                    `json:"id"`
	State       types.FlowState           `json:"state"`
	Stage       types.ProcessingStage     `json:"stage,omitempty"`
	Intent      models.TransferIntent     `json:"intent"`
	LastError   *types.ServiceError       `json:"lastError,omitempty"`
	FailedStage types.ProcessingStage     `json:"failedStage,omitempty"`
	Result      *models.LedgerTransaction `json:"result,omitempty"`
	Cached      bool                      `json:"cached"`
}

// FlowManager holds in-flight transfer flows by id.
type FlowManager struct {
	mu    sync.RWMutex
	flows map[string]*Flow
}

// NewFlowManager creates an empty flow manager.
func NewFlowManager() *FlowManager {
	return &FlowManager{flows: make(map[string]*Flow)}
}

// Create starts a new flow at the recipient step.
func (m *FlowManager) Create(userID string, active models.ActiveAccount) *Flow {
	flow := &Flow{
		ID:     uuid.New().String(),
		UserID: userID,
		Active: active,
		State:  types.FlowRecipient,
	}

	m.mu.Lock()
	m.flows[flow.ID] = flow
	m.mu.Unlock()

	return flow
}

// Get returns the flow by id.
func (m *FlowManager) Get(id string) (*Flow, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	flow, ok := m.flows[id]
	return flow, ok
}

// Remove drops a flow.
func (m *FlowManager) Remove(id string) {
	m.mu.Lock()
	delete(m.flows, id)
	m.mu.Unlock()
}
