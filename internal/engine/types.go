package engine

import "encoding/json"

// Message is the framed envelope every protocol message travels in.
type Message struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
}

// Op codes for the engine host protocol.
const (
	OpHello           = 0
	OpIdentify        = 1
	OpIdentified      = 2
	OpEvent           = 5
	OpRequest         = 6
	OpRequestResponse = 7
)

// HelloData is sent by the host immediately after the socket opens.
type HelloData struct {
	HostVersion    string `json:"hostVersion"`
	RPCVersion     int    `json:"rpcVersion"`
	Authentication struct {
		Challenge string `json:"challenge"`
		Salt      string `json:"salt"`
	} `json:"authentication"`
}

// IdentifyData is the client's reply to Hello. ChannelID uniquely names this
// process's connection; the host rejects a second Identify carrying the same
// channel id while the first is live.
type IdentifyData struct {
	RPCVersion     int    `json:"rpcVersion"`
	ChannelID      string `json:"channelId"`
	Authentication string `json:"authentication,omitempty"`
}

// Request asks the host to perform one operation.
type Request struct {
	RequestType string      `json:"requestType"`
	RequestID   string      `json:"requestId"`
	RequestData interface{} `json:"requestData,omitempty"`
}

// Response carries the outcome of a Request.
type Response struct {
	RequestType   string `json:"requestType"`
	RequestID     string `json:"requestId"`
	RequestStatus struct {
		Result  bool   `json:"result"`
		Code    int    `json:"code"`
		Comment string `json:"comment,omitempty"`
	} `json:"requestStatus"`
	ResponseData json.RawMessage `json:"responseData,omitempty"`
}

// Event is an unsolicited notification from the host.
type Event struct {
	EventType string          `json:"eventType"`
	EventData json.RawMessage `json:"eventData,omitempty"`
}

// Signal is one asynchronous output lifecycle notification. The recorder only
// consumes signals whose Type is SignalTypeRecording.
type Signal struct {
	Type   string `json:"type"`
	Signal string `json:"signal"`
}

// Signal values emitted around recording start and stop.
const (
	SignalTypeRecording = "recording"

	SignalStart    = "start"
	SignalStopping = "stopping"
	SignalStop     = "stop"
	SignalWrote    = "wrote"
)

// Parameter is one leaf of the host settings tree. Values lists the permitted
// values when the host constrains the parameter, in host order.
type Parameter struct {
	Name         string      `json:"name"`
	CurrentValue interface{} `json:"currentValue"`
	Values       []string    `json:"values,omitempty"`
}

// SubCategory groups parameters under a settings category.
type SubCategory struct {
	Name       string      `json:"name"`
	Parameters []Parameter `json:"parameters"`
}

// CategorySettings is the full settings tree for one category. Writes always
// send the whole tree back.
type CategorySettings struct {
	SubCategories []SubCategory `json:"subCategories"`
}

// Display describes one enumerable physical display.
type Display struct {
	Index  int `json:"index"` // zero-based
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Bounds is a pixel rectangle inside a host window, used for preview placement.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}
