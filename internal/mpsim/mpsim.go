// Package mpsim is an in-memory MP server. It speaks the enveloped JSON API
// the client uses and keeps all state in memory; tests seed it directly and
// cmd/mp-sim serves the demo dataset.
package mpsim

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/sd400mp/mp-go/pkg/client"
	"github.com/sd400mp/mp-go/pkg/events"
	"github.com/sd400mp/mp-go/pkg/series"
	"github.com/sd400mp/mp-go/pkg/stats"
	"github.com/sd400mp/mp-go/pkg/timestamp"
)

// APIVersion is the version reported by /api/version.
const APIVersion = 3

// Server is the simulated MP server. Exported fields may be set before the
// server handles its first request; use the methods afterwards.
type Server struct {
	mu sync.Mutex

	Logger *slog.Logger

	Users       map[string]string
	Tags        []events.Tag
	Plugins     []client.Plugin
	DataSources map[string][]client.DataSource
	Events      map[string]client.EventEquipment
	PdClasses   []client.PdClassInfo
	Names       map[string]string
	Stats       stats.List
	Index       map[string][]time.Time
	Archive     map[string][]series.Sample

	// Values holds the live values per test point.
	Values map[string][]client.ValueEntry

	// Accumulations holds the /api/pdAccumulate answer per test point.
	Accumulations map[string]client.AccumulateData

	// Refuse holds test point ids the stream endpoint will not enable.
	Refuse map[string]bool

	tokens    map[string]string
	streaming map[string]bool
	frames    []client.FrameEntry
	failures  map[string]int
	requests  map[string][]json.RawMessage
}

// New returns an empty server.
func New() *Server {
	return &Server{
		Users:         make(map[string]string),
		DataSources:   make(map[string][]client.DataSource),
		Events:        make(map[string]client.EventEquipment),
		Names:         make(map[string]string),
		Index:         make(map[string][]time.Time),
		Archive:       make(map[string][]series.Sample),
		Values:        make(map[string][]client.ValueEntry),
		Accumulations: make(map[string]client.AccumulateData),
		Refuse:        make(map[string]bool),
		tokens:        make(map[string]string),
		streaming:     make(map[string]bool),
		failures:      make(map[string]int),
		requests:      make(map[string][]json.RawMessage),
	}
}

// inbound is the request envelope as received.
type inbound struct {
	Token    *string         `json:"token"`
	Data     json.RawMessage `json:"data"`
	Culture  string          `json:"culture"`
	User     *string         `json:"user"`
	Password *string         `json:"password"`
	Scheme   *string         `json:"scheme"`
}

// apiError is a non-200 envelope.
type apiError struct {
	code int
	msg  string
}

// topLevel is written as the whole envelope instead of its data.
type topLevel map[string]any

type handlerFunc func(in *inbound) (any, *apiError)

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/version", s.version).Methods(http.MethodGet)
	r.HandleFunc("/api/auth", s.serve("/api/auth", s.auth, false)).Methods(http.MethodPost)

	routes := map[string]handlerFunc{
		"/api/tagsJson":     s.tags,
		"/api/plugins":      s.plugins,
		"/api/datasource":   s.dataSources,
		"/api/events":       s.events,
		"/api/pdeClasses":   s.pdClasses,
		"/api/nameseq":      s.names,
		"/api/namestp":      s.names,
		"/api/stream":       s.stream,
		"/api/prps":         s.prps,
		"/api/stat":         s.stat,
		"/api/index":        s.index,
		"/api/archive":      s.archive,
		"/api/data":         s.data,
		"/api/single":       s.single,
		"/api/pdAccumulate": s.accumulate,
	}
	for path, h := range routes {
		r.HandleFunc(path, s.serve(path, h, true)).Methods(http.MethodPost)
	}
	return r
}

// serve decodes the envelope, checks the token and writes the response envelope.
func (s *Server) serve(path string, h handlerFunc, authenticated bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in inbound
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeEnvelope(w, nil, &apiError{code: http.StatusBadRequest, msg: "malformed request"})
			return
		}

		s.mu.Lock()
		s.requests[path] = append(s.requests[path], in.Data)
		code, fail := s.failures[path]
		var user string
		var known bool
		if t := token(r, &in); t != "" {
			user, known = s.tokens[t]
		}
		s.mu.Unlock()

		if fail {
			writeEnvelope(w, nil, &apiError{code: code, msg: "simulated failure"})
			return
		}
		if authenticated && !known {
			writeEnvelope(w, nil, &apiError{code: http.StatusUnauthorized, msg: "unauthorized"})
			return
		}
		s.logger().Debug("request", "path", path, "user", user)

		data, aerr := h(&in)
		writeEnvelope(w, data, aerr)
	}
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// token returns the session token from the Authorization header or the envelope.
func token(r *http.Request, in *inbound) string {
	if scheme, t, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && scheme == client.SchemeToken && t != "" {
		return t
	}
	if in.Token != nil {
		return *in.Token
	}
	return ""
}

func writeEnvelope(w http.ResponseWriter, data any, aerr *apiError) {
	body := map[string]any{"code": http.StatusOK, "data": data}
	if m, ok := data.(topLevel); ok {
		body = map[string]any(m)
		body["code"] = http.StatusOK
	}
	if aerr != nil {
		body = map[string]any{"code": aerr.code, "error": aerr.msg}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func decode[T any](in *inbound) (T, *apiError) {
	var v T
	if len(in.Data) == 0 || string(in.Data) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(in.Data, &v); err != nil {
		return v, &apiError{code: http.StatusBadRequest, msg: err.Error()}
	}
	return v, nil
}

func (s *Server) version(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(client.VersionInfo{API: APIVersion})
}

// auth answers with the token next to the code.
func (s *Server) auth(in *inbound) (any, *apiError) {
	if in.User == nil || in.Password == nil {
		return nil, &apiError{code: http.StatusUnauthorized, msg: "credentials required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if pw, ok := s.Users[*in.User]; !ok || pw != *in.Password {
		return nil, &apiError{code: http.StatusUnauthorized, msg: "invalid credentials"}
	}
	t := uuid.NewString()
	s.tokens[t] = *in.User
	return topLevel{
		"token": t,
		"params": []client.Claim{
			{Key: client.ClaimName, Value: *in.User},
			{Key: client.ClaimRole, Value: "0"},
		},
	}, nil
}

func (s *Server) tags(*inbound) (any, *apiError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return client.TagsData{Items: slices.Clone(s.Tags)}, nil
}

func (s *Server) plugins(*inbound) (any, *apiError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return client.PluginsData{DataSources: slices.Clone(s.Plugins)}, nil
}

func (s *Server) dataSources(in *inbound) (any, *apiError) {
	req, aerr := decode[client.DataSourceRequest](in)
	if aerr != nil {
		return nil, aerr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []client.DataSource{}
	for _, ds := range s.DataSources[string(req.ID)] {
		if req.Children == nil || slices.Contains(req.Children, client.IDRef{ID: ds.ID}) {
			out = append(out, ds)
		}
	}
	return out, nil
}

func (s *Server) events(in *inbound) (any, *apiError) {
	req, aerr := decode[client.EventRequest](in)
	if aerr != nil {
		return nil, aerr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data := client.EventsData{Equipment: []client.EventEquipment{}}
	eq, ok := s.Events[string(req.ID)]
	if !ok {
		return data, nil
	}
	if len(req.TestPoints.Items) > 0 {
		filtered := client.EventEquipment{ID: eq.ID}
		for _, tp := range eq.TestPoints {
			if slices.Contains(req.TestPoints.Items, client.IDRef{ID: tp.ID}) {
				filtered.TestPoints = append(filtered.TestPoints, tp)
			}
		}
		eq = filtered
	}
	data.Equipment = append(data.Equipment, eq)
	return data, nil
}

func (s *Server) pdClasses(*inbound) (any, *apiError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.PdClasses), nil
}

func (s *Server) names(in *inbound) (any, *apiError) {
	req, aerr := decode[client.IDList](in)
	if aerr != nil {
		return nil, aerr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []client.Name{}
	for _, item := range req.Items {
		if name, ok := s.Names[string(item.ID)]; ok {
			out = append(out, client.Name{ID: item.ID, Name: name})
		}
	}
	return out, nil
}

func (s *Server) stream(in *inbound) (any, *apiError) {
	req, aerr := decode[client.StreamRequest](in)
	if aerr != nil {
		return nil, aerr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	enabled := []client.IDRef{}
	for _, item := range req.Items {
		id := string(item.ID)
		if !req.Enable {
			delete(s.streaming, id)
			continue
		}
		if s.Refuse[id] {
			continue
		}
		s.streaming[id] = true
		enabled = append(enabled, item)
	}
	return client.StreamData{Enabled: enabled}, nil
}

func (s *Server) prps(*inbound) (any, *apiError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.frames
	s.frames = nil
	if out == nil {
		out = []client.FrameEntry{}
	}
	return out, nil
}

func (s *Server) stat(in *inbound) (any, *apiError) {
	req, aerr := decode[client.StatRequest](in)
	if aerr != nil {
		return nil, aerr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := stats.List{ServerStart: s.Stats.ServerStart, Entries: []stats.EquipmentStat{}}
	for _, e := range s.Stats.Entries {
		if len(req.Items) == 0 || slices.Contains(req.Items, client.IDRef{ID: client.ID(e.ID)}) {
			out.Entries = append(out.Entries, e)
		}
	}
	return out, nil
}

func (s *Server) index(in *inbound) (any, *apiError) {
	req, aerr := decode[client.IndexRequest](in)
	if aerr != nil {
		return nil, aerr
	}
	if req.ID == nil {
		return nil, &apiError{code: http.StatusBadRequest, msg: "id required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := client.IndexData{Time: []time.Time{}}
	for _, t := range s.Index[string(req.ID.ID)] {
		if within(t, req.From, req.To) {
			out.Time = append(out.Time, t)
		}
	}
	return out, nil
}

func (s *Server) archive(in *inbound) (any, *apiError) {
	req, aerr := decode[client.ArchiveRequest](in)
	if aerr != nil {
		return nil, aerr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var samples []series.Sample
	for _, smp := range s.Archive[string(req.ID)] {
		if within(smp.Timestamp, req.From, req.To) {
			samples = append(samples, smp)
		}
	}
	return client.ArchiveData{Payload: series.Encode(samples, 0)}, nil
}

// data answers with the live values of the requested test points. Unknown
// test points are left out.
func (s *Server) data(in *inbound) (any, *apiError) {
	req, aerr := decode[client.DataRequest](in)
	if aerr != nil {
		return nil, aerr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := client.ValuesData{Groups: []client.ValueGroup{}}
	for _, ref := range req.TestPoints {
		values, ok := s.Values[string(ref.ID)]
		if !ok {
			continue
		}
		g := client.ValueGroup{ID: ref.ID, Online: []client.ValueEntry{}}
		for _, v := range values {
			if len(req.Include) > 0 && !slices.Contains(req.Include, v.Key) {
				continue
			}
			if slices.Contains(req.Ignore, v.Key) {
				continue
			}
			if req.NoValue {
				v.Val = nil
			}
			g.Online = append(g.Online, v)
		}
		out.Groups = append(out.Groups, g)
	}
	return out, nil
}

// single picks one archived sample. Without a time it is the last sample in
// range; Left and Right fall back to the nearest sample outside it.
func (s *Server) single(in *inbound) (any, *apiError) {
	req, aerr := decode[client.SingleRequest](in)
	if aerr != nil {
		return nil, aerr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		pick   *series.Sample
		before *series.Sample
		after  *series.Sample
	)
	for i, smp := range s.Archive[string(req.ID)] {
		switch {
		case smp.Timestamp.Before(req.From):
			before = &s.Archive[string(req.ID)][i]
		case smp.Timestamp.After(req.To):
			if after == nil {
				after = &s.Archive[string(req.ID)][i]
			}
		case req.Time != nil:
			if pick == nil || absDuration(smp.Timestamp.Sub(*req.Time)) < absDuration(pick.Timestamp.Sub(*req.Time)) {
				pick = &s.Archive[string(req.ID)][i]
			}
		default:
			pick = &s.Archive[string(req.ID)][i]
		}
	}
	if pick == nil && req.Left {
		pick = before
	}
	if pick == nil && req.Right {
		pick = after
	}
	if pick == nil {
		return nil, nil
	}

	key := events.TagAverageAmplitude
	if req.Tag != nil {
		key = *req.Tag
	}
	return sampleValue(key, *pick), nil
}

func (s *Server) accumulate(in *inbound) (any, *apiError) {
	req, aerr := decode[client.SingleRequest](in)
	if aerr != nil {
		return nil, aerr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.Accumulations[string(req.ID)]
	if !ok {
		return nil, nil
	}
	if acc.Value != nil && req.Tag != nil && acc.Value.Key != *req.Tag {
		acc.Value = nil
	}
	return acc, nil
}

func sampleValue(key string, smp series.Sample) client.ValueEntry {
	val := client.Text(strconv.FormatFloat(smp.Value, 'g', -1, 64))
	return client.ValueEntry{
		Key:  key,
		Time: &timestamp.Time{Time: smp.Timestamp},
		Type: client.Number(client.ValueFloat),
		Val:  &val,
	}
}

func absDuration(d time.Duration) time.Duration {
	return max(d, -d)
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
