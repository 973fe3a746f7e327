package helius

// SignatureInfo is one entry from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string      `json:"signature"`
	Slot      int64       `json:"slot"`
	BlockTime *int64      `json:"blockTime"`
	Err       interface{} `json:"err"`
}

// SignaturesOpts defines optional pagination parameters for
// getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return (upstream cap 1000)
}

// Transaction type discriminator values used by the enhanced API.
const (
	TxTypeSwap     = "SWAP"
	TxTypeTransfer = "TRANSFER"
	TxTypeUnknown  = "UNKNOWN"
)

// Transaction is an enhanced (parsed) transaction record.
type Transaction struct {
	Signature        string      `json:"signature"`
	Slot             int64       `json:"slot"`
	Timestamp        int64       `json:"timestamp"` // Unix seconds
	Type             string      `json:"type"`
	Source           string      `json:"source"`
	FeePayer         string      `json:"feePayer"`
	TransactionError interface{} `json:"transactionError"`
	Events           Events      `json:"events"`
}

// Events holds the typed event substructures of an enhanced transaction.
// Only the swap event is consumed here.
type Events struct {
	Swap *SwapPayload `json:"swap"`
}

// SwapPayload describes one swap: what went in, what came out. Native SOL
// legs and SPL token legs are reported separately.
type SwapPayload struct {
	NativeInput  *NativeTransfer `json:"nativeInput"`
	NativeOutput *NativeTransfer `json:"nativeOutput"`
	TokenInputs  []TokenTransfer `json:"tokenInputs"`
	TokenOutputs []TokenTransfer `json:"tokenOutputs"`
}

// NativeTransfer is a native SOL leg of a swap. Amount is lamports as a
// decimal string.
type NativeTransfer struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

// TokenTransfer is an SPL token leg of a swap.
type TokenTransfer struct {
	UserAccount    string         `json:"userAccount"`
	Mint           string         `json:"mint"`
	RawTokenAmount RawTokenAmount `json:"rawTokenAmount"`
}

// RawTokenAmount is an integer token amount plus its mint decimals.
type RawTokenAmount struct {
	TokenAmount string `json:"tokenAmount"`
	Decimals    int32  `json:"decimals"`
}
