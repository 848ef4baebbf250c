package models

// Trade is a single print from the live trade stream.
type Trade struct {
	Symbol    string
	Timestamp int64 // unix milliseconds
	Price     float64
	Volume    float64
}
