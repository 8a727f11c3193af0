package server

import (
	"encoding/json"
	stdhttp "net/http"

	"videomod/internal/conf"
	"videomod/internal/service"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/gorilla/mux"
)

// NewHTTPServer creates the HTTP server exposing the processing API.
func NewHTTPServer(bc *conf.Bootstrap, svc *service.ProcessingService, logger log.Logger) *http.Server {
	var opts []http.ServerOption
	if bc.Server.HTTP.Addr != "" {
		opts = append(opts, http.Address(bc.Server.HTTP.Addr))
	}
	srv := http.NewServer(opts...)
	srv.HandlePrefix("/", newRouter(svc))
	return srv
}

func newRouter(svc *service.ProcessingService) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", handleHealth).Methods(stdhttp.MethodGet)
	r.HandleFunc("/v1/videos/{id}/process", handleStartProcessing(svc)).Methods(stdhttp.MethodPost)
	r.HandleFunc("/v1/videos/{id}/reprocess", handleReprocess(svc)).Methods(stdhttp.MethodPost)
	r.HandleFunc("/v1/videos/{id}/status", handleGetStatus(svc)).Methods(stdhttp.MethodGet)
	return r
}

func handleHealth(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	writeJSON(w, stdhttp.StatusOK, map[string]string{"status": "ok"})
}

func handleStartProcessing(svc *service.ProcessingService) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		reply, err := svc.StartProcessing(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, stdhttp.StatusAccepted, reply)
	}
}

func handleReprocess(svc *service.ProcessingService) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		reply, err := svc.Reprocess(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, stdhttp.StatusAccepted, reply)
	}
}

func handleGetStatus(svc *service.ProcessingService) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		reply, err := svc.GetStatus(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, stdhttp.StatusOK, reply)
	}
}

type errorBody struct {
	Code    int    `json:"code"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func writeError(w stdhttp.ResponseWriter, err error) {
	e := errors.FromError(err)
	writeJSON(w, int(e.Code), &errorBody{
		Code:    int(e.Code),
		Reason:  e.Reason,
		Message: e.Message,
	})
}

func writeJSON(w stdhttp.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
