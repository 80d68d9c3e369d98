package models

import "encoding/json"

// Message types understood on the WebSocket connection.
const (
	MsgAuth            = "Auth"
	MsgSubscribeBets   = "SubscribeBets"
	MsgUnsubscribeBets = "UnsubscribeBets"
	MsgSubscribeAll    = "SubscribeAllBets"
	MsgUnsubscribeAll  = "UnsubscribeAllBets"
	MsgPing            = "Ping"
	MsgNewClientSeed   = "NewClientSeed"
	MsgNewServerSeed   = "NewServerSeed"
	MsgMakeBet         = "MakeBet"
	MsgContinueGame    = "ContinueGame"
	MsgGetState        = "GetState"
	MsgCashout         = "Cashout"

	MsgPong           = "Pong"
	MsgAuthed         = "Authed"
	MsgSeeds          = "Seeds"
	MsgRevealedSeed   = "RevealedSeed"
	MsgServerSeedHash = "ServerSeedHash"
	MsgBetResult      = "BetResult"
	MsgState          = "State"
	MsgBet            = "Bet"
	MsgSubscribed     = "Subscribed"
	MsgError          = "Error"
)

// ClientMessage is the inbound envelope. Fields are read according to Type;
// bet payloads are decoded from Raw.
type ClientMessage struct {
	Type    string          `json:"type"`
	Token   string          `json:"token,omitempty"`
	Seed    string          `json:"seed,omitempty"`
	Payload []int64         `json:"payload,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

func (m *ClientMessage) UnmarshalJSON(b []byte) error {
	type plain ClientMessage
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*m = ClientMessage(p)
	m.Raw = append(json.RawMessage(nil), b...)
	return nil
}

type ServerMessage struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Message   string `json:"message,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func ErrorMessage(err error) ServerMessage {
	return ServerMessage{
		Type:      MsgError,
		Kind:      ErrorKind(err),
		Message:   err.Error(),
		Retryable: Retryable(err),
	}
}
