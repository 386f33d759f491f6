// Package events provides the lifecycle event bus for the document
// platform. Collaborators subscribe explicitly to named events; there is
// no implicit global listener registry.
package events

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Lifecycle event names emitted by the services.
const (
	DocumentUploaded          = "documentUploaded"
	DocumentDownloaded        = "documentDownloaded"
	DocumentDeleted           = "documentDeleted"
	DocumentArchived          = "documentArchived"
	VersionCreated            = "versionCreated"
	VersionRestored           = "versionRestored"
	SignatureInitiated        = "signatureInitiated"
	ComplianceReportGenerated = "complianceReportGenerated"
	TemplateCreated           = "templateCreated"
	ArchivePolicyUpdated      = "archivePolicyUpdated"
)

// Event is one lifecycle notification.
type Event struct {
	Name       string                 `json:"name"`
	DocumentID string                 `json:"documentId,omitempty"`
	TenantID   string                 `json:"tenantId,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
	OccurredAt time.Time              `json:"occurredAt"`
}

// Subscriber receives published events. Errors are logged, never
// propagated: a failing subscriber must not roll back the operation
// that triggered the event.
type Subscriber interface {
	Handle(Event) error
}

// SubscriberFunc adapts a plain function to the Subscriber interface.
type SubscriberFunc func(Event) error

// Handle implements Subscriber.
func (f SubscriberFunc) Handle(evt Event) error {
	return f(evt)
}

// Bus fans events out to registered subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]Subscriber
	all    []Subscriber
	logger *zap.Logger
}

// NewBus constructs an event bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		subs:   make(map[string][]Subscriber),
		logger: logger,
	}
}

// Subscribe registers a subscriber for one named event.
func (b *Bus) Subscribe(name string, sub Subscriber) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[name] = append(b.subs[name], sub)
}

// SubscribeAll registers a subscriber for every event.
func (b *Bus) SubscribeAll(sub Subscriber) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, sub)
}

// Publish delivers the event to all matching subscribers in
// registration order. Delivery happens on the caller's goroutine but is
// fire-and-forget with respect to outcome: subscriber errors and panics
// are logged and swallowed.
func (b *Bus) Publish(evt Event) {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	b.mu.RLock()
	targets := make([]Subscriber, 0, len(b.subs[evt.Name])+len(b.all))
	targets = append(targets, b.subs[evt.Name]...)
	targets = append(targets, b.all...)
	b.mu.RUnlock()

	for _, sub := range targets {
		b.deliver(sub, evt)
	}
}

func (b *Bus) deliver(sub Subscriber, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event subscriber panicked",
				zap.String("event", evt.Name),
				zap.String("document_id", evt.DocumentID),
				zap.Any("panic", r))
		}
	}()
	if err := sub.Handle(evt); err != nil {
		b.logger.Warn("event subscriber failed",
			zap.String("event", evt.Name),
			zap.String("document_id", evt.DocumentID),
			zap.Error(err))
	}
}
