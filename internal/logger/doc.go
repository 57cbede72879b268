// Package logger wraps zap for agkit:
//   - a global sugared logger writing a colored console format to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV) so every component
//     logs through the context handed to it,
//   - level parsing for the --log-level flag,
//   - convenience functions (Infof, WarnKV, etc.).
//
// Human-facing progress lines are not written here; see package ui.
package logger
