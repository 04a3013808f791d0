// Package logx wraps zerolog behind a small structured logging API.
//
// It fans log events out to up to three sinks:
//   - Console (human-friendly, all levels down to the configured one)
//   - Error file (append-only, error level and above; survives reboots so a
//     headless device keeps a trail of what went wrong)
//   - Alert sender (optional, rate limited; used to push error-level events
//     to an operator chat)
//
// The root logger is stored atomically so Apply() can swap sinks and levels
// at runtime without invalidating loggers already handed out.
package logx
