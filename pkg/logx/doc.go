// Package logx provides structured logging for courier.
//
// It wraps zerolog behind a small Logger value type with closure-based
// fields, so call sites stay compact and the sink configuration (console,
// file, level) can be swapped at runtime via Service.Apply without
// invalidating loggers already handed out.
package logx
