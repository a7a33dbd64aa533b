// Murmur Discovery - Audio Clip Feed Ranking
// Copyright 2026 Murmur Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import (
	"time"
)

// APIResponse is the standard response wrapper for all HTTP endpoints.
//
// Status is "success" (see Data) or "error" (see Error).
//
// Example:
//
//	{
//	  "status": "success",
//	  "data": {"items": [...], "count": 20},
//	  "metadata": {"timestamp": "2026-08-30T12:00:00Z", "query_time_ms": 12}
//	}
type APIResponse struct {
	Status   string    `json:"status"`
	Data     any       `json:"data"`
	Metadata Metadata  `json:"metadata"`
	Error    *APIError `json:"error,omitempty"`
}

// Metadata carries response timing information for observability.
type Metadata struct {
	// Timestamp is when the response was generated.
	Timestamp time.Time `json:"timestamp"`

	// QueryTimeMS is the total assembly time in milliseconds.
	QueryTimeMS int64 `json:"query_time_ms"`
}

// APIError describes a request failure.
type APIError struct {
	// Code is a stable machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Details carries optional field-level context.
	Details map[string]interface{} `json:"details,omitempty"`
}
