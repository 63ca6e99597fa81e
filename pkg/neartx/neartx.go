// Package neartx carries transaction batches to the wallet. The connector
// never interprets these payloads; they are serialized verbatim, signed, and
// passed through, and the execution outcomes come back equally opaque.
package neartx

import "encoding/json"

// Action type tags accepted by the wallet. The set is closed; anything else
// is rejected wallet-side.
const (
	ActionCreateAccount        = "CreateAccount"
	ActionDeployContract       = "DeployContract"
	ActionFunctionCall         = "FunctionCall"
	ActionTransfer             = "Transfer"
	ActionStake                = "Stake"
	ActionAddKey               = "AddKey"
	ActionDeleteKey            = "DeleteKey"
	ActionDeleteAccount        = "DeleteAccount"
	ActionUseGlobalContract    = "UseGlobalContract"
	ActionDeployGlobalContract = "DeployGlobalContract"
)

// Action is one tagged action variant with its uninterpreted parameters.
type Action struct {
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Transaction is one signed-and-sent unit of a batch.
type Transaction struct {
	SignerID   string   `json:"signerId"`
	ReceiverID string   `json:"receiverId"`
	Actions    []Action `json:"actions"`
}

// Outcome is one execution outcome as reported by the wallet, opaque to this
// layer.
type Outcome = json.RawMessage

// Outcomes is the ordered result of a batch, one entry per input transaction.
type Outcomes struct {
	Outcomes []Outcome `json:"outcomes"`
}

// Serialize renders the batch as the JSON array string embedded in the
// send-transactions payload.
func Serialize(transactions []Transaction) (string, error) {
	data, err := json.Marshal(transactions)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
