package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidRiskInput     ErrorCode = 102
	ErrCodeInvalidPeriod        ErrorCode = 103
	ErrCodeInvalidQuantity      ErrorCode = 104

	// Data/Resource errors (200-299)
	ErrCodeDataUnavailable     ErrorCode = 200
	ErrCodeInsufficientHistory ErrorCode = 201
	ErrCodeQueryFailed         ErrorCode = 202

	// External service errors (300-399)
	ErrCodeExternalServiceFailure ErrorCode = 300
	ErrCodeSentimentUnavailable   ErrorCode = 301
	ErrCodeCorrelationUnavailable ErrorCode = 302

	// Strategy errors (400-499)
	ErrCodeUnsupportedStrategy ErrorCode = 400
	ErrCodeStrategyConfigError ErrorCode = 401

	// Trading errors (500-599)
	ErrCodeOrderFailed      ErrorCode = 500
	ErrCodePositionNotFound ErrorCode = 501

	// Simulation errors (600-699)
	ErrCodeSimulationInvariant ErrorCode = 600
	ErrCodeInsufficientCash    ErrorCode = 601
	ErrCodeTradeLogFailed      ErrorCode = 602

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataParseFailed ErrorCode = 701
	ErrCodeInvalidTimeframe      ErrorCode = 702
	ErrCodeInvalidProvider       ErrorCode = 703
)
