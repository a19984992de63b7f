package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeConfigurationError Code = "CONFIGURATION_ERROR"
	CodeServiceTimeout     Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeInternalError      Code = "INTERNAL_ERROR"
	CodeUnknownError       Code = "UNKNOWN_ERROR"
)

// Pricing errors
const (
	CodeInvalidReserves       Code = "INVALID_RESERVES"
	CodeInsufficientLiquidity Code = "INSUFFICIENT_LIQUIDITY"
	CodeInvalidFeeRate        Code = "INVALID_FEE_RATE"
)

// Order protocol errors
const (
	CodeMalformedMessage  Code = "MALFORMED_MESSAGE"
	CodeUnsupportedMethod Code = "UNSUPPORTED_METHOD"
	CodeNodeNotReady      Code = "NODE_NOT_READY"
)

// Settlement errors
const (
	CodeSettlementFailed    Code = "SETTLEMENT_FAILED"
	CodeSettlementBusy      Code = "SETTLEMENT_BUSY"
	CodeSlippageExceeded    Code = "SLIPPAGE_EXCEEDED"
	CodeTransactionReverted Code = "TRANSACTION_REVERTED"
)

// Blockchain / transport errors
const (
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeContractCallFailed       Code = "CONTRACT_CALL_FAILED"
	CodeGasEstimationFailed      Code = "GAS_ESTIMATION_FAILED"
	CodeMessagingError           Code = "MESSAGING_ERROR"
	CodeCircuitOpen              Code = "CIRCUIT_OPEN"
)
