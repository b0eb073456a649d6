// Package core provides the import and export engine for roster data.
//
// The package holds all domain logic independent of any transport or
// database. The HTTP server, rosterctl and tests drive the same [Service].
//
// # Architecture
//
// The package is organized around a few concepts:
//
//   - Schemas: each [Kind] (members, payments, attendance, classes) is
//     declared once as a [Schema] of [FieldSpec]s and collected in a
//     [Catalog]. Package kinds provides the default catalog.
//   - Validation: a [Validator] resolves file headers to fields through
//     their aliases, then converts and checks every row independently.
//   - Commit: a [Committer] writes valid rows in batches through the narrow
//     [Store] interface, upserting on the natural key in merge mode or
//     wiping the kind first in replace mode.
//   - Service: the entry point for imports, exports and templates. Runs can
//     be synchronous ([Service.Import]) or asynchronous
//     ([Service.StartImport]) with progress subscriptions.
//
// # Import Flow
//
//  1. The file is decoded by package tabular (CSV, XLSX or JSON)
//  2. The per-kind [Locker] is taken, failing fast if another run holds it
//  3. Rows are validated; row errors are collected, never fatal
//  4. Valid rows are committed in batches; a failed batch is reported and
//     the remaining batches still run
//  5. Progress is broadcast to subscribers via [Service.SubscribeProgress]
//
// Asynchronous runs share an [ImportLimiter] so a burst of uploads cannot
// exhaust store connections.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError]. Each
// category has a code users can quote:
//
//   - DB001-DB006: store errors
//   - VAL001-VAL005: validation errors
//   - FILE001-FILE006: file errors
//   - IMP001-IMP007: import run errors
//   - KND001-KND002: unknown kinds and modes
package core
