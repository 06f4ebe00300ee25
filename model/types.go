package model

// Property is the JSON form of an ovm.Property. Type selects which of the
// remaining fields are meaningful:
//
//	and, or                             Properties
//	not                                 Property
//	for_all_such_that                   Quantifier, Placeholder, Predicate
//	preimage_exists                     Hash
//	signed_by                           Message, PublicKey
//	has_lower_nonce                     Message, Nonce
//	included_in_interval_tree_at_block  Block, BlockVar, Start, End, Data
//
// JSON note: byte fields are encoded as base64 by encoding/json.
type Property struct {
	Type string `json:"type"`

	Properties  []Property  `json:"properties,omitempty"`
	Property    *Property   `json:"property,omitempty"`
	Quantifier  *Quantifier `json:"quantifier,omitempty"`
	Placeholder []byte      `json:"placeholder,omitempty"`
	Predicate   *Property   `json:"predicate,omitempty"`

	Hash      []byte `json:"hash,omitempty"`
	Message   []byte `json:"message,omitempty"`
	PublicKey string `json:"publicKey,omitempty"`
	Nonce     uint64 `json:"nonce,omitempty"`
	Block     uint64 `json:"block,omitempty"`
	BlockVar  []byte `json:"blockVar,omitempty"`
	Start     uint64 `json:"start,omitempty"`
	End       uint64 `json:"end,omitempty"`
	Data      []byte `json:"data,omitempty"`
}

const (
	QuantifierIntegerRange  = "integer_range"
	QuantifierSignedByRange = "signed_by_range"
)

type Quantifier struct {
	Type   string `json:"type"`
	Signer string `json:"signer,omitempty"`
	Start  uint64 `json:"start"`
	End    uint64 `json:"end"`
}

const (
	WitnessBytes          = "bytes"
	WitnessSignature      = "signature"
	WitnessList           = "list"
	WitnessCounterExample = "counter_example"
	WitnessInclusion      = "inclusion"
)

// Witness is the JSON form of an ovm.Witness. A nil *Witness is "no witness".
type Witness struct {
	Type    string          `json:"type"`
	Bytes   []byte          `json:"bytes,omitempty"`
	List    []*Witness      `json:"list,omitempty"`
	Item    *Item           `json:"item,omitempty"`
	Witness *Witness        `json:"witness,omitempty"`
	Proof   *InclusionProof `json:"proof,omitempty"`
}

// Item is a quantified item. Exactly one of Integer or Message MUST be set;
// Message is an encoded signed message.
type Item struct {
	Integer *uint64 `json:"integer,omitempty"`
	Message []byte  `json:"message,omitempty"`
}

type InclusionProof struct {
	Index    uint64 `json:"index"`
	Siblings []Node `json:"siblings"`
}

type Node struct {
	Hash []byte `json:"hash"`
	End  uint64 `json:"end"`
}

type DecideRequest struct {
	Property Property `json:"property"`
	Witness  *Witness `json:"witness,omitempty"`
}

const (
	StateTrue      = "true"
	StateFalse     = "false"
	StateUndecided = "undecided"
)

// DecideResponse reports one evaluation. Proof is empty when State is
// undecided; Reason then names the rule that left it undecided.
type DecideResponse struct {
	PropertyID string         `json:"propertyID"`
	State      string         `json:"state"`
	Reason     string         `json:"reason,omitempty"`
	Proof      []ProofElement `json:"proof"`
}

type ProofElement struct {
	PropertyID string   `json:"propertyID"`
	Property   Property `json:"property"`
	Witness    *Witness `json:"witness,omitempty"`
}
