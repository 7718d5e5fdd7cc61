package transport

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/rpc"

	"github.com/gorilla/mux"

	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// CommandPath is the route of the JSON command API.
const CommandPath = "/v1/commands/{method}"

var statusByCode = map[contracts.Code]int{
	contracts.CodeInvalidArgument:   http.StatusBadRequest,
	contracts.CodeNotFound:          http.StatusNotFound,
	contracts.CodeNotInitialized:    http.StatusConflict,
	contracts.CodeLoadFailed:        http.StatusUnprocessableEntity,
	contracts.CodeEngineUnavailable: http.StatusServiceUnavailable,
}

// NewHandler serves s as JSON under CommandPath and as net/rpc on
// rpc.DefaultRPCPath.
func NewHandler(s *Service) (http.Handler, error) {
	server := rpc.NewServer()
	if err := server.RegisterName(ServiceName, s); err != nil {
		return nil, err
	}

	router := mux.NewRouter()
	router.Handle(rpc.DefaultRPCPath, server)
	router.HandleFunc(CommandPath, s.handleCommand).Methods(http.MethodPost)
	router.HandleFunc("/v1/instances", s.handleList).Methods(http.MethodGet)
	return router, nil
}

func (s *Service) handleCommand(w http.ResponseWriter, r *http.Request) {
	method := mux.Vars(r)["method"]
	args := map[string]any{}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
			writeJSON(w, http.StatusBadRequest, Response{
				Code:    string(contracts.CodeInvalidArgument),
				Message: "request body must be a JSON object",
			})
			return
		}
	}
	// JSON has no byte strings; soundfont data arrives base64 encoded.
	if v, ok := args["data"].(string); ok {
		data, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Response{
				Code:    string(contracts.CodeInvalidArgument),
				Message: "data must be base64",
			})
			return
		}
		args["data"] = data
	}
	s.reply(w, s.run(r.Context(), method, args, "http"))
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	s.reply(w, s.run(r.Context(), "listInstances", nil, "http"))
}

func (s *Service) reply(w http.ResponseWriter, resp Response) {
	status := http.StatusOK
	if resp.Code != "" {
		if st, ok := statusByCode[contracts.Code(resp.Code)]; ok {
			status = st
		} else {
			status = http.StatusInternalServerError
		}
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
