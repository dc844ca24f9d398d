// Package repo provides the sync repositories between the REST API and the
// local cache.
//
// Overview
//
// A repository is the only writer of its cache tables and the only caller of
// the API's mutating endpoints. Reads never touch the network:
//
//	REST API
//	   │  Refresh: list → convert → ReplaceXxx (one transaction)
//	   ▼
//	cache.DB ──Observe──▶ snapshot stream (CLI, daemon, dashboard)
//	   ▲
//	   │  Create: POST → Upsert → Refresh
//	   │  Update: PUT → Refresh(parent scope)
//	   │  Delete: DELETE → cache delete → cancel alarm
//	caller
//
// Failed remote calls leave the cache untouched and are returned to the
// caller; every repository follows the same policy.
//
// Concurrent Refresh calls for the same scope are not deduplicated. Both run
// and the last commit wins, so callers should serialize them.
package repo
