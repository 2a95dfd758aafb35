package statemachine

import (
	"context"
	"fmt"
	"time"

	"github.com/looplab/fsm"
	"github.com/sjperalta/society-ledger/internal/models"
)

// Maturity events
const (
	MaturityEventMature = "mature"
	MaturityEventClaim  = "claim"
)

// MaturityFSM wraps a maturity record with its state machine.
// Transitions only move forward: active → matured → claimed.
type MaturityFSM struct {
	record *models.MaturityRecord
	fsm    *fsm.FSM
}

// NewMaturityFSM creates a new maturity state machine
func NewMaturityFSM(record *models.MaturityRecord) *MaturityFSM {
	mfsm := &MaturityFSM{
		record: record,
	}

	mfsm.fsm = fsm.NewFSM(
		record.Status,
		fsm.Events{
			{Name: MaturityEventMature, Src: []string{models.MaturityStatusActive}, Dst: models.MaturityStatusMatured},
			{Name: MaturityEventClaim, Src: []string{models.MaturityStatusMatured}, Dst: models.MaturityStatusClaimed},
		},
		fsm.Callbacks{},
	)

	return mfsm
}

// Mature marks the record as matured
func (m *MaturityFSM) Mature(ctx context.Context) error {
	if err := m.fsm.Event(ctx, MaturityEventMature); err != nil {
		return fmt.Errorf("failed to mature record: %w", err)
	}

	m.record.Status = m.fsm.Current()
	return nil
}

// Claim marks a matured record as claimed
func (m *MaturityFSM) Claim(ctx context.Context, at time.Time) error {
	if !m.record.MayClaim() {
		return fmt.Errorf("maturity record cannot be claimed in current state: %s", m.record.Status)
	}

	if err := m.fsm.Event(ctx, MaturityEventClaim); err != nil {
		return fmt.Errorf("failed to claim maturity: %w", err)
	}

	m.record.Status = m.fsm.Current()
	m.record.ClaimedAt = &at
	return nil
}

// Current returns the current state
func (m *MaturityFSM) Current() string {
	return m.fsm.Current()
}

// Can checks if a transition is possible
func (m *MaturityFSM) Can(event string) bool {
	return m.fsm.Can(event)
}
