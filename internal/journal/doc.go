// Package journal records delivery outcomes for operational inspection.
//
// It is intentionally not a persistence layer for broker state: entries are
// appended as messages are delivered, dropped, published or swept, and the
// broker never reads them back.
package journal
