package models

import "time"

// Alert operators.
const (
	OpGreater      = "gt"
	OpLess         = "lt"
	OpGreaterEqual = "gte"
	OpLessEqual    = "lte"
	OpEqual        = "eq"
)

// Alert is a threshold rule on the latest spread z-score of a pair.
type Alert struct {
	ID        int64     `json:"id"`
	SymbolX   string    `json:"symbolX"`
	SymbolY   string    `json:"symbolY"`
	Metric    string    `json:"metric"`
	Operator  string    `json:"operator"`
	Threshold float64   `json:"threshold"`
	Message   string    `json:"message"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// TriggeredAlert is an alert whose rule matched, with the value that matched it.
type TriggeredAlert struct {
	Alert
	CurrentValue float64 `json:"currentValue"`
}

// Live message types pushed to websocket clients.
const (
	MessageLiveTick  = "liveTick"
	MessageAnalytics = "analytics"
	MessageAlert     = "alert"
)

// LiveMessage is the envelope of every server push.
type LiveMessage struct {
	Type         string      `json:"type"`
	Data         interface{} `json:"data,omitempty"`
	Payload      interface{} `json:"payload,omitempty"`
	Message      string      `json:"message,omitempty"`
	CurrentValue *float64    `json:"currentValue,omitempty"`
}
