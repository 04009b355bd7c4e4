// Package live implements a bidirectional audio session against the
// Gemini Live API (BidiGenerateContent over WebSocket).
//
// A Session owns the socket: one write path serialized by a mutex, one
// read loop decoding server frames into typed events. Callers send
// microphone PCM with SendAudio and consume Events() for decoded model
// audio, transcripts, interruptions, and turn boundaries. Playback
// pacing is the caller's job; AudioOutput provides pre-buffering and
// flush-on-interrupt so players do not glitch or replay stale audio.
package live
