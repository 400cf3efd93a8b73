// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

// Package validation provides request validation using go-playground/validator v10.
//
// A single validator instance is built once and shared; it caches struct
// metadata, so repeated validation of the same request type is cheap.
// Field names in errors are taken from the `query` struct tag when present,
// so messages name the query parameter the client actually sent:
//
//	type cascadeQuery struct {
//	    RiskLevels []string `query:"risk_level" validate:"dive,risk_level"`
//	    Page       int      `query:"page" validate:"min=1"`
//	}
//
//	if verr := validation.ValidateStruct(&q); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	    return
//	}
//
// # Custom Tags
//
//   - risk_level: a case-insensitive risk tier name (High, Medium, Low)
//
// # Thread Safety
//
// GetValidator and ValidateStruct are safe for concurrent use.
package validation
