/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// detailError is an error whose text is shown to api callers as-is.
type detailError string

func (e detailError) Error() string { return string(e) }

const (
	errBadCredentials detailError = "Incorrect username or password"
	errEmailTaken     detailError = "Email already registered"
	errInvalidToken   detailError = "Could not validate credentials"
	errMissingFields  detailError = "Username and password are required"
	errUserNotFound   detailError = "User not found"
	errUsernameTaken  detailError = "Username already registered"
)

func newLogger(cfg *Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(logDate)
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	zc.DisableCaller = true
	zc.DisableStacktrace = true
	zc.Sampling = nil

	zc.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	if cfg.verbose {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	return zc.Build()
}

// writeError replies with the {"detail": ...} body the api client reads.
func writeError(cfg *Config, w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

func writeJSON(cfg *Config, w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	securityHeaders(cfg, w)
	w.WriteHeader(http.StatusOK)

	return json.NewEncoder(w).Encode(v)
}
