package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeInvalidInput:       "Invalid input provided",
	CodeConfigurationError: "Configuration error",
	CodeServiceTimeout:     "Service request timeout",
	CodeServiceUnavailable: "Service temporarily unavailable",
	CodeInternalError:      "Internal error",
	CodeUnknownError:       "An unknown error occurred",

	CodeInvalidReserves:       "Reserves should be greater than zero",
	CodeInsufficientLiquidity: "Output amount exceeds pool reserve",
	CodeInvalidFeeRate:        "Invalid operator fee rate",

	CodeMalformedMessage:  "Malformed order message",
	CodeUnsupportedMethod: "Unsupported order method",
	CodeNodeNotReady:      "Node is not connected or not in sync",

	CodeSettlementFailed:    "Buy settlement failed",
	CodeSettlementBusy:      "Another settlement is still in flight",
	CodeSlippageExceeded:    "Expected output is below the minimum accepted",
	CodeTransactionReverted: "Settlement transaction reverted",

	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeEthereumRPCError:         "Ethereum RPC call failed",
	CodeContractCallFailed:       "Smart contract call failed",
	CodeGasEstimationFailed:      "Gas estimation failed",
	CodeMessagingError:           "Messaging transport error",
	CodeCircuitOpen:              "Circuit breaker is open",
}
