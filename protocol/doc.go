/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package protocol describes the Khawawish game socket contract.
//
// Every frame in either direction is a flat JSON object carrying a
// mandatory "type" string and a set of sibling fields that depend on
// that type. There is no envelope versioning, correlation id or
// timestamp. Commands travel client → server, events server → client.
package protocol
