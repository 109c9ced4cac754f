package eventbus

import (
	"dnsync/internal/reconciler"
	"dnsync/pkg/provider"
)

// RouterSnapshotEvent carries the full set of hostnames currently exposed
// by a polled router source (e.g. Traefik's live router table).
type RouterSnapshotEvent struct {
	Hostnames []string
}

// ContainerStartedEvent fires when a container or service is observed
// starting.
type ContainerStartedEvent struct {
	ID   string
	Name string
}

// ContainerStoppedEvent fires when a container or service is observed
// stopping or being removed.
type ContainerStoppedEvent struct {
	ID   string
	Name string
}

// DesiredRecordsUpdatedEvent fires whenever the merged desired-record set
// changes size, independent of which source triggered the change.
type DesiredRecordsUpdatedEvent struct {
	Count int
}

// DNSRecordCreatedEvent fires after a provider confirms a record creation.
type DNSRecordCreatedEvent struct {
	ProviderID string
	Record     provider.Record
}

// DNSRecordUpdatedEvent fires after a provider confirms a record update.
type DNSRecordUpdatedEvent struct {
	ProviderID string
	Record     provider.Record
}

// DNSRecordDeletedEvent fires after a provider confirms a record deletion.
type DNSRecordDeletedEvent struct {
	ProviderID string
	Record     provider.Record
}

// ReconcileCompletedEvent fires once per provider at the end of a
// reconcile pass.
type ReconcileCompletedEvent struct {
	ProviderID string
	Stats      *reconciler.Result
}

// ErrorOccurredEvent carries a non-fatal error surfaced by any component,
// for centralized logging/metrics without coupling components together.
type ErrorOccurredEvent struct {
	Component string
	Err       error
}

// SystemStartedEvent fires once all components have finished initializing.
type SystemStartedEvent struct{}

// SystemShutdownEvent fires when a graceful shutdown has been requested.
type SystemShutdownEvent struct{}
