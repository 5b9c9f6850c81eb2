// Package timerange derives time windows and selects the records of a
// dataset that fall inside one.
//
// Every window reduces to the same inclusive calendar-date test, whatever its
// granularity. Granularity only governs how the start and end are derived.
// Month, quarter and year windows end at the earlier of the period end and
// the declared data domain end.
package timerange
