package bridge

import "encoding/json"

// request is the envelope sent to the host for every action.
type request struct {
	ID      string          `json:"id"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// response is the envelope the host answers with. Data is decoded per
// action once Ok is confirmed.
type response struct {
	Ok    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// DocumentPayload mirrors one document in the host's fetch response.
type DocumentPayload struct {
	Name      string         `json:"name"`
	Path      string         `json:"path"`
	Opened    bool           `json:"opened"`
	Thumbnail string         `json:"thumbnail,omitempty"`
	Layers    []LayerPayload `json:"layers"`
}

// LayerPayload mirrors one text layer in the host's fetch response.
// Markup is the layer's raw fragment, passed through untouched.
type LayerPayload struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Markup string `json:"markup"`
}

// LayerUpdate carries one replacement fragment in a write request.
type LayerUpdate struct {
	LayerID string `json:"layerId"`
	Markup  string `json:"markup"`
}

type fetchDocumentsData struct {
	Documents []DocumentPayload `json:"documents"`
}

type writeLayerUpdatesPayload struct {
	Path    string        `json:"path"`
	Name    string        `json:"name"`
	Updates []LayerUpdate `json:"updates"`
}

type documentRefPayload struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

type layerRefPayload struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	LayerID string `json:"layerId"`
}

type layerMarkupData struct {
	Markup string `json:"markup"`
}
