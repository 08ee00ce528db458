package domain

// Image is an immutable blob keyed by id. Data is the base64 payload as the
// browser handed it over; the store never interprets it. Images carry no
// back-reference to their owner, so ownership lives entirely in the owning
// record's images list.
type Image struct {
	ID   string `json:"id"`
	Data string `json:"data"`
}
