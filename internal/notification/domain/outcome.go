package domain

import "errors"

// Outcome is one channel's result for one dispatch.
type Outcome struct {
	Channel        string `json:"channel"`
	Success        bool   `json:"success"`
	Detail         string `json:"detail,omitempty"`
	ItemsDelivered int    `json:"itemsDelivered"`
	// NoRecipients is set when the channel had nobody eligible to deliver to.
	NoRecipients bool `json:"noRecipients,omitempty"`
	// Err is the underlying failure, if any.
	Err error `json:"-"`
}

// Delivered reports a successful send to n recipients.
func Delivered(channel string, n int) Outcome {
	return Outcome{Channel: channel, Success: true, ItemsDelivered: n}
}

// Failed reports a channel failure.
func Failed(channel string, err error) Outcome {
	if err == nil {
		err = errors.New("unknown failure")
	}
	return Outcome{Channel: channel, Detail: err.Error(), Err: err}
}

// NoRecipients reports that the channel had nobody to deliver to.
func NoRecipients(channel string) Outcome {
	return Outcome{Channel: channel, Detail: "no eligible recipients", NoRecipients: true}
}

// Result is the dispatcher's answer: one outcome per channel plus the text that was sent.
type Result struct {
	Outcomes map[string]Outcome `json:"outcomes"`
	Success  bool               `json:"success"`
	Title    string             `json:"title"`
	Message  string             `json:"message"`
	// Generated is true when Message came from the text generator.
	Generated bool `json:"generated"`
}

// Delivered sums ItemsDelivered over successful channels.
func (r *Result) Delivered() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Success {
			n += o.ItemsDelivered
		}
	}
	return n
}
