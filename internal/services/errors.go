package services

import (
	apperrors "issuepulse/internal/errors"
)

// Dashboard service errors. They are AppErrors so the HTTP layer can map them
// to status codes without importing this package.
var (
	// Session errors
	ErrSessionNotFound = apperrors.NewNotFoundError("session")

	// Dataset errors
	ErrNoDataset                 = apperrors.NewConflictError("no dataset loaded; upload a file first")
	ErrDefaultDatasetUnavailable = apperrors.NewNotFoundError("default dataset")

	// Export errors
	ErrUnsupportedExportFormat = apperrors.NewAppValidationError("unsupported export format")
)
