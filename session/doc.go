/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package session owns one authenticated game socket and the local view
// reconciled from it.
//
// A Client moves through Disconnected → Connecting → Signed → Closed.
// Every inbound event and every outbound command is handled on a single
// loop goroutine, in arrival order. State only changes in response to
// server events; the exceptions are the local selection cache (own
// character, discarded tiles), recorded once the command is written, and
// leaving a lobby. The server echoes neither.
package session
