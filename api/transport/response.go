package transport

// Envelope wraps every API response. Task lists and single tasks travel in
// Data; list fetch failures and relation counts travel in Meta.
type Envelope struct {
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  interface{} `json:"error,omitempty"`
	Meta   interface{} `json:"meta,omitempty"`
}

// ListMeta accompanies task lists. List fetches never fail outright, so a
// remote error is reported here next to whatever the store still holds.
type ListMeta struct {
	Count int    `json:"count,omitempty"`
	Error string `json:"error,omitempty"`
}

func NewSuccess(data interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "success",
		Data:   data,
		Meta:   meta,
	}
}

// NewList returns a success envelope for a list. A nil meta is omitted.
func NewList(data interface{}, meta *ListMeta) Envelope {
	if meta == nil {
		return NewSuccess(data, nil)
	}
	return NewSuccess(data, meta)
}

func NewError(code string, err interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "error",
		Code:   code,
		Error:  err,
		Meta:   meta,
	}
}
