package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents different types of engine events
type EventType string

const (
	// Session events
	EventSessionStarted   EventType = "session.started"
	EventSessionFinalized EventType = "session.finalized"

	// Contest events
	EventContestStatusChanged EventType = "contest.status_changed"
	EventContestFinalized     EventType = "contest.finalized"

	// Ranking events
	EventResultsReranked EventType = "result.reranked"
)

// EngineEvent is the base event structure for all engine events
type EngineEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Session event payloads

type SessionStartedEvent struct {
	SessionID uint      `json:"session_id"`
	ExamID    uint      `json:"exam_id"`
	UserID    uint      `json:"user_id"`
	StartedAt time.Time `json:"started_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SessionFinalizedEvent struct {
	SessionID   uint      `json:"session_id"`
	ExamID      uint      `json:"exam_id"`
	UserID      uint      `json:"user_id"`
	Score       float64   `json:"score"`
	Passed      bool      `json:"passed"`
	Expired     bool      `json:"expired"` // true when a sweep closed the session
	FinalizedAt time.Time `json:"finalized_at"`
}

// Contest event payloads

type ContestStatusChangedEvent struct {
	ContestID uint      `json:"contest_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	ChangedAt time.Time `json:"changed_at"`
}

type ContestFinalizedEvent struct {
	ContestID    uint      `json:"contest_id"`
	Participants int       `json:"participants"`
	FinalizedAt  time.Time `json:"finalized_at"`
}

// Ranking event payload

type ResultsRerankedEvent struct {
	ExamID     *uint     `json:"exam_id,omitempty"`
	ContestID  *uint     `json:"contest_id,omitempty"`
	RankedRows int       `json:"ranked_rows"`
	RerankedAt time.Time `json:"reranked_at"`
}

// Event factory functions

func NewSessionStartedEvent(sessionID, examID, userID uint, startedAt, expiresAt time.Time) *EngineEvent {
	return &EngineEvent{
		ID:        generateEventID(),
		Type:      EventSessionStarted,
		Timestamp: time.Now(),
		Source:    "exam-engine",
		Version:   "1.0",
		Data: SessionStartedEvent{
			SessionID: sessionID,
			ExamID:    examID,
			UserID:    userID,
			StartedAt: startedAt,
			ExpiresAt: expiresAt,
		},
	}
}

func NewSessionFinalizedEvent(sessionID, examID, userID uint, score float64, passed, expired bool, finalizedAt time.Time) *EngineEvent {
	return &EngineEvent{
		ID:        generateEventID(),
		Type:      EventSessionFinalized,
		Timestamp: time.Now(),
		Source:    "exam-engine",
		Version:   "1.0",
		Data: SessionFinalizedEvent{
			SessionID:   sessionID,
			ExamID:      examID,
			UserID:      userID,
			Score:       score,
			Passed:      passed,
			Expired:     expired,
			FinalizedAt: finalizedAt,
		},
	}
}

func NewContestStatusChangedEvent(contestID uint, from, to string, changedAt time.Time) *EngineEvent {
	return &EngineEvent{
		ID:        generateEventID(),
		Type:      EventContestStatusChanged,
		Timestamp: time.Now(),
		Source:    "exam-engine",
		Version:   "1.0",
		Data: ContestStatusChangedEvent{
			ContestID: contestID,
			From:      from,
			To:        to,
			ChangedAt: changedAt,
		},
	}
}

func NewContestFinalizedEvent(contestID uint, participants int, finalizedAt time.Time) *EngineEvent {
	return &EngineEvent{
		ID:        generateEventID(),
		Type:      EventContestFinalized,
		Timestamp: time.Now(),
		Source:    "exam-engine",
		Version:   "1.0",
		Data: ContestFinalizedEvent{
			ContestID:    contestID,
			Participants: participants,
			FinalizedAt:  finalizedAt,
		},
	}
}

func NewResultsRerankedEvent(examID, contestID *uint, rankedRows int, rerankedAt time.Time) *EngineEvent {
	return &EngineEvent{
		ID:        generateEventID(),
		Type:      EventResultsReranked,
		Timestamp: time.Now(),
		Source:    "exam-engine",
		Version:   "1.0",
		Data: ResultsRerankedEvent{
			ExamID:     examID,
			ContestID:  contestID,
			RankedRows: rankedRows,
			RerankedAt: rerankedAt,
		},
	}
}

func generateEventID() string {
	return uuid.New().String()
}
