// Package engagement provides the Q&A forum engagement core.

// The binary lives in cmd/engagement. The work is split into subpackages:

// - internal/models: the event, question, answer and comment schemas
// - internal/events: the append-only event store, recorder and reader
// - internal/engagement: classification, weights, decay, metrics and scores
// - internal/ranking: weighted, recency-decayed ranking of items
// - internal/trending: trending lists with a result cache
// - internal/feed: ranked question feeds with comment trees and feed CTR
// - internal/users: activity summaries and profile metrics
// - internal/handlers: the HTTP API
// - internal/cmd: the command line (serve, migrate, seed, trending, reconcile)
package engagement
