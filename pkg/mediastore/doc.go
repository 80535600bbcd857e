// Package mediastore provides a reusable library for entity-scoped media
// storage with pluggable content stores and metadata stores.
//
// It exposes a single Service interface that orchestrates, for every mutating
// request, authorization against an external verifier, metadata extraction
// from the uploaded bytes, the content-store and metadata-store writes, and a
// best-effort change notification. Implementations of content stores (memory,
// filesystem, S3) and metadata stores (memory, Postgres) are provided under
// subpackages, as are an HTTP authorizer client and a Redis notifier.
//
// Consistency Model
//
// The two stores are coordinated without a shared transactional substrate.
// On creation and update the content write precedes the metadata write; a
// metadata-write failure triggers a best-effort compensating content delete.
// On deletion the order is reversed. Notification happens last and never
// rolls back committed storage state: a failed publish is reported on the
// operation result as a degraded success, not as an error.
package mediastore
