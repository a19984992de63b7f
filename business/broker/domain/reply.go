package domain

import (
	"encoding/json"
)

// ReplyStatus is the outcome reported to the kiosk.
type ReplyStatus string

const (
	StatusSuccess ReplyStatus = "success"
	StatusError   ReplyStatus = "error"
)

// Fixed failure results. They never carry internal error detail.
const (
	ResultSellNotSupported = "Sell not supported yet"
	ResultInvalidMethod    = "Invalid method"
	ResultSettlementError  = "error while processing buy order"
	ResultSettlementBusy   = "settlement busy"
	invalidMessagePrefix   = "invalid message: "
)

// OrderReply is the single answer to an order.
type OrderReply struct {
	Status ReplyStatus `json:"status"`
	Result string      `json:"result"`
}

// Success reports a settled order; result is the delivered wei.
func Success(result string) OrderReply {
	return OrderReply{Status: StatusSuccess, Result: result}
}

// Failure reports a rejected or failed order.
func Failure(reason string) OrderReply {
	return OrderReply{Status: StatusError, Result: reason}
}

// InvalidMessage is the failure for a malformed order.
func InvalidMessage(reason string) OrderReply {
	return Failure(invalidMessagePrefix + reason)
}

// Marshal encodes the reply. It cannot fail for this shape.
func (r OrderReply) Marshal() []byte {
	data, _ := json.Marshal(r)
	return data
}

// OK reports whether the order succeeded.
func (r OrderReply) OK() bool {
	return r.Status == StatusSuccess
}
