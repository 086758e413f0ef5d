package portal

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

type StageStatus string

const (
	StatusSubmitted StageStatus = "submitted"
	StatusExecuting StageStatus = "executing"
	StatusCompleted StageStatus = "completed"
	StatusError     StageStatus = "error"
)

// Stage names used in URLs and status payloads.
const (
	StageAnalysis       = "analysis"
	StageMealPlan       = "meal-plan"
	StageHospitalSearch = "hospital-search"
)

// CaseStages lists every stage a submission runs, in execution order.
var CaseStages = []string{StageAnalysis, StageMealPlan, StageHospitalSearch}

type stageState struct {
	status StageStatus
	report string
	reason string
	ready  bool
}

type caseRecord struct {
	token     string
	caseID    string
	createdAt time.Time
	stages    map[string]*stageState
}

// StageSnapshot is a copy of one stage's state, safe to use without the
// store lock.
type StageSnapshot struct {
	Status StageStatus `json:"status"`
	Ready  bool        `json:"ready"`
	Error  string      `json:"error,omitempty"`
}

// CaseSnapshot is a copy of a case's state at one instant.
type CaseSnapshot struct {
	Token     string                   `json:"token"`
	CaseID    string                   `json:"case_id"`
	CreatedAt time.Time                `json:"created_at"`
	Status    string                   `json:"status"`
	Stages    map[string]StageSnapshot `json:"stages"`
}

// CaseStore holds submission state for every case. All access goes through
// the mutex; snapshots returned to handlers are copies.
type CaseStore struct {
	mu    sync.RWMutex
	cases map[string]*caseRecord
}

func NewCaseStore() *CaseStore {
	return &CaseStore{cases: make(map[string]*caseRecord)}
}

func generateToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Create registers a new case with every stage in StatusSubmitted and
// returns its token.
func (s *CaseStore) Create(caseID string) string {
	token := generateToken()
	stages := make(map[string]*stageState, len(CaseStages))
	for _, name := range CaseStages {
		stages[name] = &stageState{status: StatusSubmitted}
	}
	s.mu.Lock()
	s.cases[token] = &caseRecord{
		token:     token,
		caseID:    caseID,
		createdAt: time.Now(),
		stages:    stages,
	}
	s.mu.Unlock()
	return token
}

// Snapshot returns a copy of the case state, or false when the token is
// unknown.
func (s *CaseStore) Snapshot(token string) (CaseSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.cases[token]
	if !ok {
		return CaseSnapshot{}, false
	}
	snap := CaseSnapshot{
		Token:     rec.token,
		CaseID:    rec.caseID,
		CreatedAt: rec.createdAt,
		Stages:    make(map[string]StageSnapshot, len(rec.stages)),
	}
	for name, st := range rec.stages {
		snap.Stages[name] = StageSnapshot{Status: st.status, Ready: st.ready, Error: st.reason}
	}
	snap.Status = overallStatus(rec)
	return snap, true
}

// StageReport returns the stored report for a completed stage. The second
// return is false when the token or stage is unknown or the report is not
// ready yet.
func (s *CaseStore) StageReport(token, stage string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.cases[token]
	if !ok {
		return "", false
	}
	st, ok := rec.stages[stage]
	if !ok || !st.ready {
		return "", false
	}
	return st.report, true
}

// SetExecuting moves a stage to StatusExecuting.
func (s *CaseStore) SetExecuting(token, stage string) {
	s.mutate(token, stage, func(st *stageState) {
		st.status = StatusExecuting
	})
}

// Complete stores a stage's report and marks it ready.
func (s *CaseStore) Complete(token, stage, report string) {
	s.mutate(token, stage, func(st *stageState) {
		st.status = StatusCompleted
		st.report = report
		st.ready = true
	})
}

// Fail marks a stage as errored with a human-readable reason.
func (s *CaseStore) Fail(token, stage, reason string) {
	s.mutate(token, stage, func(st *stageState) {
		st.status = StatusError
		st.reason = reason
	})
}

func (s *CaseStore) mutate(token, stage string, fn func(*stageState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.cases[token]
	if !ok {
		return
	}
	st, ok := rec.stages[stage]
	if !ok {
		return
	}
	fn(st)
}

// overallStatus aggregates stage statuses. Any error wins; otherwise all
// completed is completed, any executing is partial, else submitted.
// Caller holds the store lock.
func overallStatus(rec *caseRecord) string {
	allCompleted := true
	for _, st := range rec.stages {
		if st.status == StatusError {
			return "error"
		}
		if st.status != StatusCompleted {
			allCompleted = false
		}
	}
	if allCompleted {
		return "completed"
	}
	for _, st := range rec.stages {
		if st.status == StatusExecuting {
			return "partial"
		}
	}
	return "submitted"
}
