// Package reconciler implements the core logic for comparing desired DNS state
// (from sources) with actual DNS state (from providers) and applying changes.
package reconciler

import (
	"strings"

	"dnsync/pkg/provider"
	"dnsync/pkg/source"
)

// recordSRVEqualsData reports whether a record's SRV fields match the given
// SRV parameter bundle. A nil bundle matches only a record with zero values.
func recordSRVEqualsData(r provider.Record, srv *provider.SRVData) bool {
	if srv == nil {
		return r.Priority == 0 && r.Weight == 0 && r.Port == 0
	}
	return r.Priority == srv.Priority && r.Weight == srv.Weight && r.Port == srv.Port
}

// RecordPair represents an existing record and its desired replacement.
// Used in RecordDiff.ToUpdate to show what needs to change.
type RecordPair struct {
	Existing provider.Record
	Desired  provider.Record
}

// RecordDiff represents the differences between existing and desired records.
// This is the output of CompareRecordSets() and can be used by providers
// or the reconciler to understand what changes need to be made.
type RecordDiff struct {
	// ToCreate contains records that exist in desired but not in existing.
	ToCreate []provider.Record

	// ToUpdate contains pairs of records where the target or other fields changed.
	// Each pair has the existing record and the desired record.
	ToUpdate []RecordPair

	// ToDelete contains records that exist in existing but not in desired.
	ToDelete []provider.Record

	// Unchanged contains records that are the same in both sets.
	Unchanged []provider.Record
}

// HasChanges returns true if there are any records to create, update, or delete.
func (d *RecordDiff) HasChanges() bool {
	return len(d.ToCreate) > 0 || len(d.ToUpdate) > 0 || len(d.ToDelete) > 0
}

// TotalChanges returns the total number of changes (create + update + delete).
func (d *RecordDiff) TotalChanges() int {
	return len(d.ToCreate) + len(d.ToUpdate) + len(d.ToDelete)
}

// CompareRecordSets compares existing and desired records and returns a diff.
// This is the core comparison logic that providers and the reconciler use
// instead of implementing their own comparison.
//
// Records are matched by hostname (case-insensitive, trailing dot ignored)
// and type. For non-SRV records, only one record per hostname+type is
// expected, so a target/TTL/extras change on that pair is an update, never
// a create+delete. For SRV records, multiple records with the same hostname
// but different targets are allowed, so target is part of the key; a
// priority/weight/port change at a fixed target is still an update.
//
// Comparison rules:
// - Same key, logically equal (provider.RecordEquals) → unchanged
// - Same key, differs in target/TTL/extras → update
// - In desired but not existing → create
// - In existing but not desired → delete
func CompareRecordSets(existing, desired []provider.Record) RecordDiff {
	diff := RecordDiff{}

	// Build a map of existing records by normalized hostname + type (+ target for SRV)
	existingMap := make(map[string]provider.Record)
	for _, r := range existing {
		key := recordKey(r)
		existingMap[key] = r
	}

	// Build a map of desired records
	desiredMap := make(map[string]provider.Record)
	for _, r := range desired {
		key := recordKey(r)
		desiredMap[key] = r
	}

	// Find records to create or update
	for key, desiredRecord := range desiredMap {
		if existingRecord, exists := existingMap[key]; exists {
			// Record exists - check if it needs updating
			if recordNeedsUpdate(existingRecord, desiredRecord) {
				diff.ToUpdate = append(diff.ToUpdate, RecordPair{
					Existing: existingRecord,
					Desired:  desiredRecord,
				})
			} else {
				diff.Unchanged = append(diff.Unchanged, existingRecord)
			}
		} else {
			// Record doesn't exist - need to create
			diff.ToCreate = append(diff.ToCreate, desiredRecord)
		}
	}

	// Find records to delete (exist but not desired)
	for key, existingRecord := range existingMap {
		if _, exists := desiredMap[key]; !exists {
			diff.ToDelete = append(diff.ToDelete, existingRecord)
		}
	}

	return diff
}

// CompareForHostname compares records for a single hostname and returns a diff.
// This is a convenience wrapper around CompareRecordSets for single-hostname operations.
func CompareForHostname(existing, desired []provider.Record, hostname string) RecordDiff {
	// Filter both sets to only include records for this hostname
	normalizedHostname := source.NormalizeHostname(hostname)

	var filteredExisting, filteredDesired []provider.Record
	for _, r := range existing {
		if source.NormalizeHostname(r.Hostname) == normalizedHostname {
			filteredExisting = append(filteredExisting, r)
		}
	}
	for _, r := range desired {
		if source.NormalizeHostname(r.Hostname) == normalizedHostname {
			filteredDesired = append(filteredDesired, r)
		}
	}

	return CompareRecordSets(filteredExisting, filteredDesired)
}

// recordKey generates the identity key CompareRecordSets matches records on:
// normalized hostname + type. SRV also folds in the (trailing-dot-trimmed)
// target, since a hostname can carry several SRV records pointing at
// different hosts; everything else is expected to be a singleton per
// hostname+type, so a target change there is an update, not a new identity.
func recordKey(r provider.Record) string {
	normalized := source.NormalizeHostname(r.Hostname)
	key := normalized + "|" + string(r.Type)

	if r.Type == provider.RecordTypeSRV {
		key += "|" + normalizeTarget(r.Target)
	}

	return key
}

// normalizeTarget strips the trailing dot some providers preserve in List()
// output so that two otherwise-identical targets compare equal regardless
// of which adapter produced them.
func normalizeTarget(target string) string {
	return strings.TrimSuffix(target, ".")
}

// normalizeForCompare returns a copy of r with hostname and target put in
// the canonical form recordKey/recordNeedsUpdate compare on.
func normalizeForCompare(r provider.Record) provider.Record {
	r.Hostname = source.NormalizeHostname(r.Hostname)
	r.Target = normalizeTarget(r.Target)
	return r
}

// recordNeedsUpdate reports whether an existing record's values have
// drifted from desired, once both are put in canonical form. Two records
// sharing a recordKey are identity-equal already; this only needs to catch
// target/TTL/extras drift.
func recordNeedsUpdate(existing, desired provider.Record) bool {
	return !provider.RecordEquals(normalizeForCompare(existing), normalizeForCompare(desired))
}

// CategorizeSameHostnameRecords groups records by whether they match the desired type.
// Returns (sameType, differentType) slices.
// This is used when checking for type conflicts before creating a record.
func CategorizeSameHostnameRecords(records []provider.Record, desiredType provider.RecordType) (sameType, differentType []provider.Record) {
	for _, r := range records {
		if r.Type == desiredType {
			sameType = append(sameType, r)
		} else {
			differentType = append(differentType, r)
		}
	}
	return
}

// FindExactMatch finds a record with matching target (and SRV data if applicable).
// Returns the matching record and true if found, or empty record and false if not.
func FindExactMatch(records []provider.Record, target string, recordType provider.RecordType, srvData *provider.SRVData) (provider.Record, bool) {
	for _, r := range records {
		if r.Type != recordType {
			continue
		}
		if r.Target != target {
			continue
		}

		// For SRV records, also check SRV-specific data
		if recordType == provider.RecordTypeSRV {
			if recordSRVEqualsData(r, srvData) {
				return r, true
			}
		} else {
			return r, true
		}
	}
	return provider.Record{}, false
}

// FindStaleSRVRecords finds SRV records with matching target but different priority/weight/port.
// These are records that need to be deleted and recreated with new SRV data.
func FindStaleSRVRecords(records []provider.Record, target string, desiredSRV *provider.SRVData) []provider.Record {
	var stale []provider.Record
	for _, r := range records {
		if r.Type != provider.RecordTypeSRV {
			continue
		}
		if r.Target != target {
			continue
		}
		// Same target but different SRV data = stale
		if !recordSRVEqualsData(r, desiredSRV) {
			stale = append(stale, r)
		}
	}
	return stale
}
