// Proofcheck - Proof-of-Visit Verification for Location Challenges
// Copyright 2026 WanderWin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wanderwin/proofcheck

package models

// Stable validation error and warning codes. These strings are the wire
// contract with API consumers and the security monitor's code-to-event
// lookup; renaming one is a breaking change.
const (
	CodeMissingChallengeID = "MISSING_CHALLENGE_ID"
	CodeMissingUsername    = "MISSING_USERNAME"
	CodeMissingProofType   = "MISSING_PROOF_TYPE"

	CodeChallengeExpired    = "CHALLENGE_EXPIRED"
	CodeChallengeNotStarted = "CHALLENGE_NOT_STARTED"

	CodeDuplicateSubmission = "DUPLICATE_SUBMISSION"
	CodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	CodeInvalidProofType    = "INVALID_PROOF_TYPE"

	CodePoorGPSAccuracy = "POOR_GPS_ACCURACY"
	CodeLocationTooFar  = "LOCATION_TOO_FAR"

	CodeMissingPhoto        = "MISSING_PHOTO"
	CodeInvalidPhotoData    = "INVALID_PHOTO_DATA"
	CodePhotoQualityWarning = "PHOTO_QUALITY_WARNING"

	CodeMissingReceiptImage     = "MISSING_RECEIPT_IMAGE"
	CodeMissingBusinessName     = "MISSING_BUSINESS_NAME"
	CodeMissingReceiptTimestamp = "MISSING_RECEIPT_TIMESTAMP"
	CodeReceiptTooOld           = "RECEIPT_TOO_OLD"

	CodeMissingCheckinTime = "MISSING_CHECKIN_TIME"

	CodeMissingAnswer   = "MISSING_ANSWER"
	CodeIncorrectAnswer = "INCORRECT_ANSWER"

	CodeFraudDetected = "FRAUD_DETECTED"
	CodeFraudWarning  = "FRAUD_WARNING"

	CodeValidationSystemError = "VALIDATION_SYSTEM_ERROR"
)
