package models

// Requests for the HTTP endpoints. Defined in domain for reuse by handlers and the live publisher.

type AnalyzeRequest struct {
	SymbolX   string `query:"symbolX" json:"symbolX" validate:"required,symbol"`
	SymbolY   string `query:"symbolY" json:"symbolY" validate:"required,symbol"`
	Timeframe string `query:"timeframe" json:"timeframe" default:"1m" validate:"oneof=1s 1m 5m"`
	Window    int    `query:"window" json:"window" default:"30" validate:"gte=1,lte=10000"`
	StartTime string `query:"startTime" json:"startTime" validate:"omitempty,timestamp"`
	EndTime   string `query:"endTime" json:"endTime" validate:"omitempty,timestamp"`
	Rolling   string `query:"rolling" json:"rolling" default:"global" validate:"oneof=global window"`
}

type ADFRequest struct {
	SymbolX   string `json:"symbolX" validate:"required,symbol"`
	SymbolY   string `json:"symbolY" validate:"required,symbol"`
	Timeframe string `json:"timeframe" default:"1m" validate:"oneof=1s 1m 5m"`
	StartTime string `json:"startTime" validate:"omitempty,timestamp"`
	EndTime   string `json:"endTime" validate:"omitempty,timestamp"`
}

type ExportRequest struct {
	SymbolX   string `query:"symbolX" validate:"required,symbol"`
	SymbolY   string `query:"symbolY" validate:"required,symbol"`
	Timeframe string `query:"timeframe" default:"1m" validate:"oneof=1s 1m 5m"`
	StartTime string `query:"startTime" validate:"omitempty,timestamp"`
	EndTime   string `query:"endTime" validate:"omitempty,timestamp"`
	Format    string `query:"format" default:"csv" validate:"oneof=csv xlsx"`
}

type BarsRequest struct {
	Symbol    string `query:"symbol" validate:"required,symbol"`
	Timeframe string `query:"timeframe" default:"1m" validate:"oneof=1s 1m 5m"`
	StartTime string `query:"startTime" validate:"omitempty,timestamp"`
	EndTime   string `query:"endTime" validate:"omitempty,timestamp"`
}

type CreateAlertRequest struct {
	SymbolX   string   `json:"symbolX" validate:"required,symbol"`
	SymbolY   string   `json:"symbolY" validate:"required,symbol"`
	Metric    string   `json:"metric" validate:"required"`
	Operator  string   `json:"operator" validate:"required,oneof=gt lt gte lte eq"`
	Threshold *float64 `json:"threshold" validate:"required"`
	Message   string   `json:"message"`
}

type DeleteAlertRequest struct {
	ID int64 `param:"id" validate:"gte=1"`
}
