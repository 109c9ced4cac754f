package scheduler

import (
	"context"
	"strings"
	"sync"

	"dnsync/internal/eventbus"
	"dnsync/internal/hostnameresolver"
	"dnsync/internal/metrics"
	"dnsync/internal/reconciler"
	"dnsync/pkg/provider"
)

// reconcileProvider runs the §4.7 Reconciler steps for one provider's
// share of the desired-record set: validate, classify against the
// provider's cache via CompareRecordSets, then apply creates before
// updates. Each operation is independent; a failure is recorded as a
// failed Action and does not abort the batch.
func (s *Scheduler) reconcileProvider(ctx context.Context, name string, prov provider.Provider, desired []hostnameresolver.DesiredRecord) *reconciler.Result {
	dryRun := s.operationMode == "noop"
	result := reconciler.NewResult(dryRun)
	defer result.Complete()

	existing, err := prov.List(ctx)
	if err != nil {
		s.logger.Warn("scheduler: listing existing records failed", "provider", name, "error", err)
		result.AddAction(reconciler.Action{
			Type:     reconciler.ActionSkip,
			Status:   reconciler.StatusFailed,
			Provider: name,
			Error:    err.Error(),
		})
		return result
	}

	caps := prov.Capabilities()
	trackOwnership := caps.SupportsOwnershipMarker()

	desiredRecords := make([]provider.Record, 0, len(desired))
	for _, rec := range desired {
		if rec.NeedsPublicIPv4 || rec.NeedsPublicIPv6 {
			s.logger.Warn("scheduler: skipping record pending unresolved public IP", "hostname", rec.Name, "provider", name)
			result.AddAction(reconciler.Action{
				Type:       reconciler.ActionSkip,
				Status:     reconciler.StatusFailed,
				Provider:   name,
				Hostname:   rec.Name,
				RecordType: string(rec.Type),
				Error:      provider.ErrNoPublicIP.Error(),
			})
			continue
		}

		wire := toProviderRecord(rec)
		if validationErr := validateDesired(caps, wire); validationErr != nil {
			s.logger.Warn("scheduler: record failed validation", "hostname", rec.Name, "provider", name, "error", validationErr)
			result.AddAction(reconciler.Action{
				Type:       reconciler.ActionSkip,
				Status:     reconciler.StatusFailed,
				Provider:   name,
				Hostname:   rec.Name,
				RecordType: string(rec.Type),
				Error:      validationErr.Error(),
			})
			continue
		}

		desiredRecords = append(desiredRecords, wire)
		if trackOwnership && s.operationMode != "" {
			desiredRecords = append(desiredRecords, provider.OwnershipRecord(rec.Name, wire.TTL))
		}
	}

	diff := reconciler.CompareRecordSets(existing, desiredRecords)

	if batcher, ok := prov.(provider.BatchApplier); ok && !dryRun && (len(diff.ToCreate) > 0 || len(diff.ToUpdate) > 0) {
		s.applyBatch(ctx, name, batcher, diff, result)
	} else {
		s.applyIndividually(ctx, name, prov, diff, result, dryRun)
	}

	return result
}

// applyIndividually runs diff's creates then updates one provider call at a
// time per record, bounded by s.concurrency in-flight calls (§5: a fixed
// (type, name) has at most one mutation in flight, but independent records
// may pipeline up to the configured cap). Creates and updates are each
// their own wave so a record's create always lands before any update pass
// depending on it runs.
func (s *Scheduler) applyIndividually(ctx context.Context, name string, prov provider.Provider, diff reconciler.RecordDiff, result *reconciler.Result, dryRun bool) {
	limit := s.concurrency
	if limit < 1 {
		limit = 1
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for _, rec := range diff.ToCreate {
		rec := rec
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			s.applyCreate(ctx, name, prov, rec, result, dryRun)
		}()
	}
	wg.Wait()

	for _, pair := range diff.ToUpdate {
		pair := pair
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			s.applyUpdate(ctx, name, prov, pair, result, dryRun)
		}()
	}
	wg.Wait()
}

// applyBatch submits a provider's whole create+update set through
// BatchApplier in as few requests as the provider's batching allows,
// instead of one applyCreate/applyUpdate call per record.
func (s *Scheduler) applyBatch(ctx context.Context, name string, batcher provider.BatchApplier, diff reconciler.RecordDiff, result *reconciler.Result) {
	updates := make([]provider.RecordUpdate, len(diff.ToUpdate))
	for i, pair := range diff.ToUpdate {
		updates[i] = provider.RecordUpdate{Existing: pair.Existing, Desired: pair.Desired}
	}

	batchResult, err := batcher.ApplyBatch(ctx, diff.ToCreate, updates)
	if err != nil {
		s.logger.Warn("scheduler: batch apply reported failures", "provider", name, "error", err)
		eventbus.Publish(s.bus, eventbus.ErrorOccurredEvent{Component: "scheduler", Err: err})
	}

	for _, rec := range diff.ToCreate {
		s.recordBatchOutcome(name, reconciler.ActionCreate, rec, batchResult, result)
	}
	for _, pair := range diff.ToUpdate {
		s.recordBatchOutcome(name, reconciler.ActionUpdate, pair.Desired, batchResult, result)
	}
}

func (s *Scheduler) recordBatchOutcome(name string, actionType reconciler.ActionType, rec provider.Record, batchResult provider.BatchResult, result *reconciler.Result) {
	action := reconciler.Action{
		Type:       actionType,
		Provider:   name,
		Hostname:   rec.Hostname,
		RecordType: string(rec.Type),
		Target:     rec.Target,
	}

	if batchErr, failed := batchResult.Failed[rec]; failed {
		action.Status = reconciler.StatusFailed
		action.Error = batchErr.Error()
		result.AddAction(action)
		metrics.RecordsFailedTotal.WithLabelValues(name, strings.ToLower(string(actionType))).Inc()
		return
	}

	action.Status = reconciler.StatusSuccess
	result.AddAction(action)
	switch actionType {
	case reconciler.ActionCreate:
		metrics.RecordsCreatedTotal.WithLabelValues(name).Inc()
		eventbus.Publish(s.bus, eventbus.DNSRecordCreatedEvent{ProviderID: name, Record: rec})
	case reconciler.ActionUpdate:
		metrics.RecordsUpdatedTotal.WithLabelValues(name).Inc()
		eventbus.Publish(s.bus, eventbus.DNSRecordUpdatedEvent{ProviderID: name, Record: rec})
	}
}

func (s *Scheduler) applyCreate(ctx context.Context, name string, prov provider.Provider, rec provider.Record, result *reconciler.Result, dryRun bool) {
	action := reconciler.Action{
		Type:       reconciler.ActionCreate,
		Provider:   name,
		Hostname:   rec.Hostname,
		RecordType: string(rec.Type),
		Target:     rec.Target,
	}

	if dryRun {
		action.Status = reconciler.StatusSuccess
		result.AddAction(action)
		return
	}

	if err := prov.Create(ctx, rec); err != nil {
		if provider.IsConflict(err) {
			action.Status = reconciler.StatusSkipped
			result.AddAction(action)
			return
		}
		action.Status = reconciler.StatusFailed
		action.Error = err.Error()
		result.AddAction(action)
		metrics.RecordsFailedTotal.WithLabelValues(name, "create").Inc()
		eventbus.Publish(s.bus, eventbus.ErrorOccurredEvent{Component: "scheduler", Err: err})
		return
	}

	action.Status = reconciler.StatusSuccess
	result.AddAction(action)
	metrics.RecordsCreatedTotal.WithLabelValues(name).Inc()
	eventbus.Publish(s.bus, eventbus.DNSRecordCreatedEvent{ProviderID: name, Record: rec})
}

func (s *Scheduler) applyUpdate(ctx context.Context, name string, prov provider.Provider, pair reconciler.RecordPair, result *reconciler.Result, dryRun bool) {
	action := reconciler.Action{
		Type:       reconciler.ActionUpdate,
		Provider:   name,
		Hostname:   pair.Desired.Hostname,
		RecordType: string(pair.Desired.Type),
		Target:     pair.Desired.Target,
	}

	if dryRun {
		action.Status = reconciler.StatusSuccess
		result.AddAction(action)
		return
	}

	var err error
	if updater, ok := prov.(provider.Updater); ok {
		err = updater.Update(ctx, pair.Existing, pair.Desired)
	} else {
		if delErr := prov.Delete(ctx, pair.Existing); delErr != nil && !provider.IsNotFound(delErr) {
			err = delErr
		} else {
			err = prov.Create(ctx, pair.Desired)
		}
	}

	if err != nil {
		action.Status = reconciler.StatusFailed
		action.Error = err.Error()
		result.AddAction(action)
		metrics.RecordsFailedTotal.WithLabelValues(name, "update").Inc()
		eventbus.Publish(s.bus, eventbus.ErrorOccurredEvent{Component: "scheduler", Err: err})
		return
	}

	action.Status = reconciler.StatusSuccess
	result.AddAction(action)
	metrics.RecordsUpdatedTotal.WithLabelValues(name).Inc()
	eventbus.Publish(s.bus, eventbus.DNSRecordUpdatedEvent{ProviderID: name, Record: pair.Desired})
}

// sweepOrphans runs the OrphanReaper pass for one provider, publishes its
// deletions on the event bus, then emits ReconcileCompletedEvent with the
// stats gathered across both the reconcile and sweep steps.
func (s *Scheduler) sweepOrphans(ctx context.Context, name string, prov provider.Provider, desiredNames map[string]struct{}, result *reconciler.Result) {
	if s.reaper == nil {
		eventbus.Publish(s.bus, eventbus.ReconcileCompletedEvent{ProviderID: name, Stats: result})
		return
	}

	sweep, err := s.reaper.Sweep(ctx, name, prov, desiredNames, s.cleanupEnabled)
	if err != nil {
		s.logger.Warn("scheduler: orphan sweep failed", "provider", name, "error", err)
		eventbus.Publish(s.bus, eventbus.ErrorOccurredEvent{Component: "orphanreaper", Err: err})
		eventbus.Publish(s.bus, eventbus.ReconcileCompletedEvent{ProviderID: name, Stats: result})
		return
	}

	for _, rec := range sweep.Deleted {
		metrics.RecordsDeletedTotal.WithLabelValues(name).Inc()
		result.AddAction(reconciler.Action{
			Type:       reconciler.ActionDelete,
			Status:     reconciler.StatusSuccess,
			Provider:   name,
			Hostname:   rec.Hostname,
			RecordType: string(rec.Type),
			Target:     rec.Target,
		})
	}

	eventbus.Publish(s.bus, eventbus.ReconcileCompletedEvent{ProviderID: name, Stats: result})
}

func toProviderRecord(rec hostnameresolver.DesiredRecord) provider.Record {
	return provider.Record{
		Hostname: strings.ToLower(strings.TrimSuffix(rec.Name, ".")),
		Type:     rec.Type,
		Target:   rec.Content,
		TTL:      rec.TTL,
		Priority: rec.Priority,
		Weight:   rec.Weight,
		Port:     rec.Port,
		Flags:    rec.Flags,
		Tag:      rec.Tag,
		Proxied:  rec.Proxied,
	}
}

// validateDesired applies the type-specific checks of §4.1: A requires an
// IPv4 dotted-quad literal, AAAA requires a colon-hex literal, MX/SRV/CAA
// require their type-specific extras, TTL must fall within the provider's
// advertised min..max, and the record type must be one the provider
// supports.
func validateDesired(caps provider.Capabilities, rec provider.Record) error {
	if len(caps.SupportedRecordTypes) > 0 && !caps.SupportsRecordType(rec.Type) {
		return provider.ErrValidation
	}

	switch rec.Type {
	case provider.RecordTypeA:
		if !provider.IsIPv4Address(rec.Target) {
			return provider.ErrValidation
		}
	case provider.RecordTypeAAAA:
		if !provider.IsIPv6Address(rec.Target) {
			return provider.ErrValidation
		}
	case provider.RecordTypeMX:
		if rec.Priority == 0 {
			return provider.ErrValidation
		}
	case provider.RecordTypeSRV:
		if rec.Port == 0 {
			return provider.ErrValidation
		}
	case provider.RecordTypeCAA:
		if rec.Tag == "" {
			return provider.ErrValidation
		}
	}

	if rec.TTL != provider.TTLSentinelAuto {
		if caps.MinTTL > 0 && rec.TTL < caps.MinTTL {
			return provider.ErrValidation
		}
		if caps.MaxTTL > 0 && rec.TTL > caps.MaxTTL {
			return provider.ErrValidation
		}
	}
	return nil
}
