package session

// Awaiting is the single pending conversational expectation of a user.
type Awaiting int

const (
	AwaitingNone Awaiting = iota
	AwaitingAuth
	AwaitingWallet
	AwaitingAmount
	AwaitingVerify
	AwaitingSniperV1Address
	AwaitingConnectWallet
	AwaitingPair
	AwaitingAlertPrice
	AwaitingBuyAmount
	AwaitingSellAmount
	AwaitingDCASettings
	AwaitingToolName
)

var awaitingNames = map[Awaiting]string{
	AwaitingNone:            "none",
	AwaitingAuth:            "auth",
	AwaitingWallet:          "wallet",
	AwaitingAmount:          "amount",
	AwaitingVerify:          "verify",
	AwaitingSniperV1Address: "sniper_v1_address",
	AwaitingConnectWallet:   "connect_wallet",
	AwaitingPair:            "pair",
	AwaitingAlertPrice:      "alert_price",
	AwaitingBuyAmount:       "buy_amount",
	AwaitingSellAmount:      "sell_amount",
	AwaitingDCASettings:     "dca_settings",
	AwaitingToolName:        "tool_name",
}

func (a Awaiting) String() string {
	if name, ok := awaitingNames[a]; ok {
		return name
	}
	return "unknown"
}
