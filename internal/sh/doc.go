// Package sh runs external executables and finds them on PATH.
//
// Output is captured, never streamed. A Result is always trimmed of trailing
// whitespace; an ExitError keeps both streams exactly as the tool wrote them
// so the caller can show the raw diagnostics.
package sh
