// Package models defines data structures for the Legalis assistant client.
package models

import (
	"strings"
	"time"
)

// SessionStatus represents the lifecycle state of a session.
type SessionStatus string

const (
	StatusActive   SessionStatus = "active"
	StatusArchived SessionStatus = "archived"
	StatusDeleted  SessionStatus = "deleted"
)

// Message roles. The engine does not enforce alternation; any
// server-returned ordering is accepted as-is.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Legal categories recognized by the assistant backend.
const (
	CategoryCivil          = "Civil Law"
	CategoryCriminal       = "Criminal Law"
	CategoryLabor          = "Labor Law"
	CategoryCommercial     = "Commercial Law"
	CategoryTax            = "Tax Law"
	CategoryAdministrative = "Administrative Law"
	CategoryFamily         = "Family Law"
)

// Categories lists all recognized legal categories.
var Categories = []string{
	CategoryCivil,
	CategoryCriminal,
	CategoryLabor,
	CategoryCommercial,
	CategoryTax,
	CategoryAdministrative,
	CategoryFamily,
}

// Id prefixes marking sessions that exist only in local state. Such ids
// are never transmitted to the server as a target sessionId.
const (
	TempIDPrefix  = "temp_"
	ErrorIDPrefix = "error_"
)

// Session represents a persisted (or locally-placeholder) multi-turn
// conversation with the assistant, scoped to one legal category.
// The backend identifies sessions by the "_id" key.
type Session struct {
	ID           string        `json:"_id"`
	Title        string        `json:"title"`
	Category     string        `json:"category"`
	Messages     []Message     `json:"messages"`
	Status       SessionStatus `json:"status"`
	Tags         []string      `json:"tags,omitempty"`
	Summary      string        `json:"summary,omitempty"`
	LegalContext LegalContext  `json:"legalContext"`
	Analytics    Analytics     `json:"analytics"`
	LastActivity time.Time     `json:"lastActivity"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// IsTemporary reports whether the session exists only in local state and
// has not been acknowledged by the server.
func (s *Session) IsTemporary() bool {
	return strings.HasPrefix(s.ID, TempIDPrefix) || strings.HasPrefix(s.ID, ErrorIDPrefix)
}

// Clone returns a deep copy of the session. The engine hands out clones so
// callers can never mutate stored state behind its back.
func (s *Session) Clone() *Session {
	c := *s
	c.Messages = make([]Message, len(s.Messages))
	copy(c.Messages, s.Messages)
	c.Tags = append([]string(nil), s.Tags...)
	c.LegalContext.PrimaryLaws = append([]string(nil), s.LegalContext.PrimaryLaws...)
	if s.Analytics.UserSatisfaction != nil {
		sat := *s.Analytics.UserSatisfaction
		c.Analytics.UserSatisfaction = &sat
	}
	for i, m := range s.Messages {
		if m.Metadata != nil {
			md := *m.Metadata
			md.LawReferences = append([]LawReference(nil), m.Metadata.LawReferences...)
			c.Messages[i].Metadata = &md
		}
	}
	return &c
}

// LegalContext carries the legal framing of a conversation.
type LegalContext struct {
	PrimaryLaws  []string `json:"primaryLaws,omitempty"`
	Jurisdiction string   `json:"jurisdiction"`
	Complexity   string   `json:"complexity,omitempty"`
}

// Analytics aggregates per-session conversation statistics.
// TotalMessages must equal len(Session.Messages) after every committed
// mutation; a divergence is a correctness bug.
type Analytics struct {
	TotalMessages       int           `json:"totalMessages"`
	TotalTokens         int           `json:"totalTokens"`
	AverageResponseTime float64       `json:"averageResponseTime,omitempty"`
	UserSatisfaction    *Satisfaction `json:"userSatisfaction,omitempty"`
}

// Satisfaction holds user feedback for a session.
type Satisfaction struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback,omitempty"`
}

// Message is a single entry in a session's conversation. Messages are
// exclusively owned by their session.
type Message struct {
	ID        string           `json:"id"`
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
}

// MessageMetadata carries assistant-reply annotations.
type MessageMetadata struct {
	LawReferences  []LawReference `json:"lawReferences,omitempty"`
	Confidence     float64        `json:"confidence,omitempty"`
	ProcessingTime float64        `json:"processingTime,omitempty"`
	Tokens         int            `json:"tokens,omitempty"`
}

// LawReference points at a legal provision cited by the assistant.
type LawReference struct {
	Article        string  `json:"article"`
	Law            string  `json:"law"`
	Section        string  `json:"section,omitempty"`
	RelevanceScore float64 `json:"relevanceScore,omitempty"`
}
