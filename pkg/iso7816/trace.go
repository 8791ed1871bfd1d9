package iso7816

// A Transaction is one C-APDU and the R-APDU that answered it. A Trace is
// every transaction issued for a single logical command: the original one
// plus any GET RESPONSE (61XX) or Le correction (6CXX) that followed.

// Transaction represents a completed Command-Response pair.
type Transaction struct {
	Command  *CommandAPDU
	Response *ResponseAPDU
}

// IsSuccess checks if the transaction ended with a successful status.
// It returns false if the response is missing.
func (t *Transaction) IsSuccess() bool {
	if t.Response == nil {
		return false
	}
	return t.Response.Status.IsSuccess()
}

// Trace is a sequence of transactions in the order they were sent.
type Trace []Transaction

// Last returns the final transaction of the trace, or nil.
func (t Trace) Last() *Transaction {
	if len(t) == 0 {
		return nil
	}
	return &t[len(t)-1]
}

// IsSuccess reports the outcome of the final transaction.
func (t Trace) IsSuccess() bool {
	last := t.Last()
	if last == nil {
		return false
	}
	return last.IsSuccess()
}

// Status returns the final status word, or 0 for an empty trace.
func (t Trace) Status() StatusWord {
	last := t.Last()
	if last == nil || last.Response == nil {
		return 0
	}
	return last.Response.Status
}

// Data returns the data field of the final response.
func (t Trace) Data() []byte {
	last := t.Last()
	if last == nil || last.Response == nil {
		return nil
	}
	return last.Response.Data
}
