// Package storage holds the storage configuration shared by the account,
// rate-limit and revocation backends.
//
// Implementations live in sub-packages:
//
//   - storage/memory:     single-process maps, for tests and local development
//   - storage/postgres:   lib/pq backed accounts, profiles, counters and revocations
//   - storage/redisstore: go-redis backed counters and revocations shared across nodes
//   - storage/cache:      a local LRU in front of any revocation registry
//
// Every backend satisfies the narrow interfaces declared in pkg/auth, so the
// gateway never depends on a concrete store.
package storage
