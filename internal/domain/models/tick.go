package models

import "time"

// Tick is one observed trade: symbol, event time, price and size.
type Tick struct {
	Symbol string    `json:"symbol"`
	Time   time.Time `json:"ts"`
	Price  float64   `json:"price"`
	Size   float64   `json:"size"`
}

// Bar is an OHLCV summary of the ticks that share one bucket.
type Bar struct {
	BucketStart time.Time `json:"time"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      float64   `json:"volume"`
	Count       int       `json:"count"`
}

// AlignedPoint pairs the closes of two bars sharing a bucket.
type AlignedPoint struct {
	Time   time.Time `json:"time"`
	CloseX float64   `json:"closeX"`
	CloseY float64   `json:"closeY"`
}

// SymbolStats summarises what the tick store holds for one symbol.
type SymbolStats struct {
	Symbol    string    `json:"symbol"`
	Count     int64     `json:"count"`
	FirstTick time.Time `json:"firstTick"`
	LastTick  time.Time `json:"lastTick"`
}
