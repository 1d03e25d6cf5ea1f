// Proofcheck - Proof-of-Visit Verification for Location Challenges
// Copyright 2026 WanderWin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wanderwin/proofcheck

package models

// ValidationIssue is one field-level error or warning. Code is the stable
// wire contract; consumers must branch on Code, never on Message.
type ValidationIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidationResult is the unified outcome of validating one submission.
// It is always returned as a value, never raised: business failures are
// data, not exceptions.
type ValidationResult struct {
	IsValid  bool              `json:"is_valid"`
	Errors   []ValidationIssue `json:"errors"`
	Warnings []ValidationIssue `json:"warnings"`
}

// NewValidationResult returns a passing result with no findings.
func NewValidationResult() ValidationResult {
	return ValidationResult{IsValid: true}
}

// AddError appends an error and marks the result invalid.
func (r *ValidationResult) AddError(field, code, message string) {
	r.Errors = append(r.Errors, ValidationIssue{Field: field, Code: code, Message: message})
	r.IsValid = false
}

// AddWarning appends a warning. Warnings never affect validity.
func (r *ValidationResult) AddWarning(field, code, message string) {
	r.Warnings = append(r.Warnings, ValidationIssue{Field: field, Code: code, Message: message})
}

// Merge folds another result's findings into this one.
func (r *ValidationResult) Merge(other ValidationResult) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	if !other.IsValid {
		r.IsValid = false
	}
}

// HasErrorCode returns true if any error carries the given code.
func (r *ValidationResult) HasErrorCode(code string) bool {
	for _, e := range r.Errors {
		if e.Code == code {
			return true
		}
	}
	return false
}

// HasWarningCode returns true if any warning carries the given code.
func (r *ValidationResult) HasWarningCode(code string) bool {
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

// SystemErrorResult returns the single-error result used when an unexpected
// internal failure is caught at the validator boundary. The public entry
// point never propagates panics or collaborator errors; they all collapse
// into exactly this shape.
func SystemErrorResult() ValidationResult {
	return ValidationResult{
		IsValid: false,
		Errors: []ValidationIssue{{
			Field:   "submission",
			Code:    CodeValidationSystemError,
			Message: "submission could not be validated due to an internal error",
		}},
	}
}
