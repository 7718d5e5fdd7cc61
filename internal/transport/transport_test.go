package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/leandrodaf/midisynth/internal/dispatch"
	"github.com/leandrodaf/midisynth/internal/enginetest"
	"github.com/leandrodaf/midisynth/internal/logger"
	"github.com/leandrodaf/midisynth/sdk/contracts"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	opts := &contracts.Options{
		Logger:     logger.NewNopLogger(),
		Engine:     enginetest.NewEngine(),
		BankLoader: enginetest.Loader{},
	}
	contracts.WithSettleDelay(0)(opts)
	svc := NewService(context.Background(), dispatch.New(opts), opts.Logger)
	h, err := NewHandler(svc)
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestRPCRoundTrip(t *testing.T) {
	srv := newServer(t)
	c, err := Dial(srv.Listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	res, err := c.Call(dispatch.CmdLoadSoundfont, map[string]any{"data": enginetest.BankData("gm", 3)})
	if err != nil {
		t.Fatal(err)
	}
	id, ok := res.(int)
	if !ok || id != 1 {
		t.Fatalf("loadSoundfont = %#v", res)
	}

	res, err = c.Call(dispatch.CmdPlayNote, map[string]any{"sfId": id, "channel": 0, "key": 60, "velocity": 100})
	if err != nil || res != "Playing: 60" {
		t.Errorf("playNote = %v, %v", res, err)
	}
	res, err = c.Call(dispatch.CmdGetInstruments, map[string]any{"sfId": id})
	if err != nil || !reflect.DeepEqual(res, []string{"gm-0", "gm-1", "gm-2"}) {
		t.Errorf("getInstruments = %#v, %v", res, err)
	}

	_, err = c.Call(dispatch.CmdStopAllNotes, map[string]any{"sfId": 99})
	if !errors.Is(err, contracts.ErrNotFound) {
		t.Errorf("stopAllNotes on unknown id = %v, want NOT_FOUND", err)
	}
}

func postJSON(t *testing.T, url string, body string) (int, Response) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, out
}

func TestJSONCommands(t *testing.T) {
	srv := newServer(t)
	data := base64.StdEncoding.EncodeToString(enginetest.BankData("piano", 2))

	status, resp := postJSON(t, srv.URL+"/v1/commands/loadSoundfont", `{"data":"`+data+`","program":1}`)
	if status != http.StatusOK || resp.Result != float64(1) {
		t.Fatalf("load = %d %+v", status, resp)
	}

	tests := []struct {
		name   string
		method string
		body   string
		status int
		code   contracts.Code
	}{
		{"play", "playNote", `{"sfId":1,"channel":0,"key":60,"velocity":100}`, http.StatusOK, ""},
		{"unknown id", "playNote", `{"sfId":9,"channel":0,"key":60,"velocity":100}`, http.StatusNotFound, contracts.CodeNotFound},
		{"bad velocity", "playNote", `{"sfId":1,"channel":0,"key":60,"velocity":200}`, http.StatusBadRequest, contracts.CodeInvalidArgument},
		{"unknown command", "reverb", `{}`, http.StatusBadRequest, contracts.CodeInvalidArgument},
		{"not base64", "loadSoundfont", `{"data":"%%%"}`, http.StatusBadRequest, contracts.CodeInvalidArgument},
		{"corrupt bank", "loadSoundfont", `{"data":"` + base64.StdEncoding.EncodeToString([]byte("corrupt")) + `"}`, http.StatusUnprocessableEntity, contracts.CodeLoadFailed},
		{"not an object", "playNote", `[1,2]`, http.StatusBadRequest, contracts.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := postJSON(t, srv.URL+"/v1/commands/"+tt.method, tt.body)
			if status != tt.status || contracts.Code(resp.Code) != tt.code {
				t.Errorf("got %d %+v, want %d %s", status, resp, tt.status, tt.code)
			}
		})
	}
}

func TestListInstances(t *testing.T) {
	srv := newServer(t)
	for i := 0; i < 2; i++ {
		postJSON(t, srv.URL+"/v1/commands/create", "")
	}
	resp, err := http.Get(srv.URL + "/v1/instances")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	if got := strings.TrimSpace(buf.String()); got != `{"result":[1,2]}` {
		t.Errorf("body = %s", got)
	}
}
