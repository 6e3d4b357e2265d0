// Package traffic turns a closed set of intersection trajectories into
// movement-based traffic reports.
//
// Responsibilities: endpoint-to-zone classification, movement-code
// resolution, manual correction overlay, and the five report computations
// (interval volumes, speed statistics, TTC conflicts, forbidden-movement
// violations and QC reconciliation).
//
// Every report is a pure function of a Snapshot. A Snapshot is validated
// once by NewSnapshot and never mutated afterwards, so reports for the same
// Snapshot may be computed concurrently and always produce identical output.
//
// No SQL or HTTP code is allowed in this package.
package traffic
