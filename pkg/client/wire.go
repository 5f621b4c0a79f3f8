package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/sd400mp/mp-go/pkg/events"
	"github.com/sd400mp/mp-go/pkg/timestamp"
)

// ID is an identifier. It is always sent as a string and accepts numbers
// on input.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Number is an integer that accepts numeric strings on input.
type Number int

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("number: %w", err)
		}
		*n = Number(v)
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("number: %w", err)
	}
	*n = Number(v)
	return nil
}

// IDRef is the {"id": ...} object used throughout the API.
type IDRef struct {
	ID ID `json:"id"`
}

// IDList is the {"items": [{"id": ...}]} object.
type IDList struct {
	Items []IDRef `json:"items"`
}

// NewIDList wraps ids.
func NewIDList(ids []string) IDList {
	return IDList{Items: refs(ids)}
}

func refs(ids []string) []IDRef {
	items := make([]IDRef, 0, len(ids))
	for _, id := range ids {
		items = append(items, IDRef{ID: ID(id)})
	}
	return items
}

// Request is the request envelope.
type Request struct {
	Token   *string `json:"token"`
	Data    any     `json:"data"`
	Culture string  `json:"culture,omitempty"`
}

// LoginRequest is the request of /api/auth.
type LoginRequest struct {
	Request
	User     *string `json:"user"`
	Password *string `json:"password"`
	Scheme   *string `json:"scheme"`
}

// Envelope is the response envelope.
type Envelope struct {
	Code  int             `json:"code"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OK reports whether the envelope carries code 200.
func (e *Envelope) OK() bool {
	return e.Code == 200
}

// Claim is a key/value pair returned on login.
type Claim struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Well-known claim keys.
const (
	ClaimName = "name"
	ClaimRole = "role"
	ClaimJWT  = "jwt"
)

// LoginResponse is the response of /api/auth.
type LoginResponse struct {
	Envelope
	Token  string  `json:"token"`
	Params []Claim `json:"params,omitempty"`
}

// VersionInfo is the response of /api/version. It is not enveloped.
type VersionInfo struct {
	API int `json:"api"`
}

// TagsData is the data of /api/tagsJson.
type TagsData struct {
	Items []events.Tag `json:"items"`
}

// PluginOptions are the capability flags of a plugin.
type PluginOptions struct {
	Cfg      bool `json:"cfg,omitempty"`
	CfgShare bool `json:"cfgShare,omitempty"`
	Proxy    bool `json:"proxy,omitempty"`
	Nav      bool `json:"nav,omitempty"`
	Prps     bool `json:"prps,omitempty"`
	Search   bool `json:"search,omitempty"`
}

// Plugin is one entry of /api/plugins.
type Plugin struct {
	Key     string        `json:"key"`
	Options PluginOptions `json:"options"`
}

// PluginsData is the data of /api/plugins.
type PluginsData struct {
	DataSources []Plugin `json:"datasources"`
}

// DataSourceRequest is the data of /api/datasource.
type DataSourceRequest struct {
	ID           ID      `json:"id"`
	NeedChildren bool    `json:"needChildren"`
	NeedAllData  bool    `json:"needAllData"`
	FullScope    bool    `json:"fullscope"`
	Children     []IDRef `json:"children"`
}

// DataSource is one entry of /api/datasource.
type DataSource struct {
	ID      ID     `json:"id"`
	Name    string `json:"name,omitempty"`
	Plugin  string `json:"plugin,omitempty"`
	Enabled bool   `json:"enabled"`
}

// EventRequest is the data of /api/events.
type EventRequest struct {
	ID                  ID        `json:"id"`
	From                time.Time `json:"from"`
	To                  time.Time `json:"to"`
	Type                int       `json:"type"`
	WithActive          bool      `json:"withActive"`
	WithConnectionState bool      `json:"withConnectionState"`
	TestPoints          IDList    `json:"testpoints"`
}

// Payload wraps a base64 binary series.
type Payload struct {
	Payload string `json:"payload"`
}

// EventSatellite is the satellite channel of an event tag.
type EventSatellite struct {
	Tag    string   `json:"tag"`
	Sensor Number   `json:"sns"`
	Unit   Number   `json:"unit"`
	Events *Payload `json:"events,omitempty"`
}

// EventTag is the event data of one tag.
type EventTag struct {
	Tag       string          `json:"tag"`
	Events    *Payload        `json:"events,omitempty"`
	Satellite *EventSatellite `json:"satelite,omitempty"`
}

// EventTestPoint groups the event tags of a test point.
type EventTestPoint struct {
	ID   ID         `json:"id"`
	Tags []EventTag `json:"tags"`
}

// EventEquipment groups the test points of an equipment.
type EventEquipment struct {
	ID         ID               `json:"id"`
	TestPoints []EventTestPoint `json:"testpoints"`
}

// EventsData is the data of /api/events.
type EventsData struct {
	Equipment []EventEquipment `json:"equipment"`
}

// PdClassInfo is one entry of /api/pdeClasses.
type PdClassInfo struct {
	NativeName string `json:"nativeName"`
	Name       string `json:"name,omitempty"`
	Desc       string `json:"desc,omitempty"`
	ClassID    *int   `json:"classId,omitempty"`
	ClassName  string `json:"className,omitempty"`
	Level      *int   `json:"level,omitempty"`
}

// Name is one entry of /api/nameseq and /api/namestp.
type Name struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// StreamRequest is the data of /api/stream.
type StreamRequest struct {
	Items       []IDRef    `json:"items"`
	Enable      bool       `json:"enable"`
	Rec         bool       `json:"rec"`
	Session     *string    `json:"session"`
	Download    bool       `json:"download"`
	DatasetTime *time.Time `json:"datasetTime"`
}

// StreamData is the data of /api/stream.
type StreamData struct {
	Enabled []IDRef `json:"enabled"`
}

// FrameEntry is one entry of /api/prps.
type FrameEntry struct {
	ID     ID              `json:"id"`
	Frames json.RawMessage `json:"frames"`
}

// StatRequest is the data of /api/stat.
type StatRequest struct {
	Items []IDRef `json:"items"`

	// DataSourceInfo asks for data source details.
	DataSourceInfo bool `json:"ids"`
}

// IndexRequest is the data of /api/index.
type IndexRequest struct {
	UniqueID string    `json:"uniqueId"`
	ID       *IDRef    `json:"id"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Tag      *string   `json:"tag"`
}

// IndexData is the data of /api/index.
type IndexData struct {
	Time []time.Time `json:"time"`
}

// UnmarshalJSON accepts dataset times with or without a zone.
func (d *IndexData) UnmarshalJSON(data []byte) error {
	var raw struct {
		Time []timestamp.Time `json:"time"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Time = timestamp.Times(raw.Time)
	return nil
}

// ArchiveRequest is the data of /api/archive.
type ArchiveRequest struct {
	ID   ID        `json:"id"`
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
	Type int       `json:"type"`
}

// ArchiveData is the data of /api/archive.
type ArchiveData struct {
	Payload string `json:"payload"`
}

// Text is a value rendered as a string. Numbers and booleans are kept in
// their JSON spelling.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	if len(data) == 0 || data[0] == '{' || data[0] == '[' {
		return fmt.Errorf("text: unexpected %q", data)
	}
	*t = Text(data)
	return nil
}

// DataRequest is the data of /api/data.
type DataRequest struct {
	TestPoints []IDRef    `json:"testpoints"`
	Include    []string   `json:"include"`
	Ignore     []string   `json:"ignore"`
	NoValue    bool       `json:"noValue"`
	Timestamp  *time.Time `json:"timestamp"`
}

// ValueEntry is one live or archived value.
type ValueEntry struct {
	ID   ID              `json:"id,omitempty"`
	Key  string          `json:"key"`
	Time *timestamp.Time `json:"dt,omitempty"`
	Type Number          `json:"type"`
	Val  *Text           `json:"val"`
}

// ValueGroup holds the values of one test point.
type ValueGroup struct {
	ID     ID           `json:"id"`
	Online []ValueEntry `json:"online"`
}

// ValuesData is the data of /api/data.
type ValuesData struct {
	Groups []ValueGroup `json:"groups"`
}

// SingleRequest is the data of /api/single and /api/pdAccumulate.
type SingleRequest struct {
	ID          ID         `json:"id"`
	From        time.Time  `json:"from"`
	To          time.Time  `json:"to"`
	Time        *time.Time `json:"time"`
	Left        bool       `json:"left"`
	Right       bool       `json:"right"`
	Tag         *string    `json:"tag"`
	Ignore      []string   `json:"ignore"`
	PostProcess bool       `json:"postProcess"`
}

// PdClassScore is one class of a PD expert result.
type PdClassScore struct {
	NativeName string  `json:"nativeName,omitempty"`
	Name       string  `json:"name,omitempty"`
	Value      float64 `json:"value"`
	State      int     `json:"state,omitempty"`
	ClassID    *int    `json:"classId,omitempty"`
	ClassName  string  `json:"className,omitempty"`
}

// PdResult is the PD expert part of an accumulation.
type PdResult struct {
	PdClassScore
	Service        int            `json:"service,omitempty"`
	StateTestPoint int            `json:"stateTestpoint"`
	Probability    []PdClassScore `json:"probability"`
	Other          []PdClassScore `json:"other"`
}

// AccumulateData is the data of /api/pdAccumulate.
type AccumulateData struct {
	Pde   *PdResult   `json:"pde"`
	Value *ValueEntry `json:"value"`
}

func decodeLogin(raw []byte) (LoginResponse, error) {
	var resp LoginResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return resp, fmt.Errorf("%s: decode: %w", endpointAuth, err)
	}
	return resp, nil
}
