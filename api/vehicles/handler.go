// Package vehicles exposes the charging-slot workflows over HTTP.
//
//	POST   /data              import a remote http(s) source {"url": ...}
//	GET    /data              plates whose charge target is met
//	GET    /vehicle/{plate}   predicted completion of one vehicle
//	DELETE /vehicle/{plate}   release the slot and report the final charge
//	GET    /vehicles          ledger records, optionally ?status=occupied|retired
package vehicles

import (
	"context"
	"errors"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/kilianp07/evslot/core/ledger"
	"github.com/kilianp07/evslot/core/logger"
	"github.com/kilianp07/evslot/core/model"
	"github.com/kilianp07/evslot/core/reconcile"
	"github.com/kilianp07/evslot/infra/source"
)

// Service is the subset of the reconciliation engine used by the handlers.
type Service interface {
	ImportURL(ctx context.Context, src string) (int, error)
	ListReady(ctx context.Context) ([]model.Record, error)
	GetStatus(ctx context.Context, plate string) (reconcile.Status, error)
	Retire(ctx context.Context, plate string) (int, error)
	Vehicles(ctx context.Context, f ledger.Filter) ([]model.Record, error)
}

// maxBodyBytes bounds request bodies; they only carry a URL.
const maxBodyBytes = 64 << 10

type handler struct {
	svc Service
	log logger.Logger
}

// NewRouter returns a router serving the vehicle endpoints.
func NewRouter(svc Service, log logger.Logger) *mux.Router {
	r := mux.NewRouter()
	Register(r, svc, log)
	return r
}

// Register mounts the vehicle endpoints on r.
func Register(r *mux.Router, svc Service, log logger.Logger) {
	h := &handler{svc: svc, log: log}
	r.HandleFunc("/data", h.postData).Methods(http.MethodPost)
	r.HandleFunc("/data", h.getData).Methods(http.MethodGet)
	r.HandleFunc("/vehicle/{plate}", h.getVehicle).Methods(http.MethodGet)
	r.HandleFunc("/vehicle/{plate}", h.deleteVehicle).Methods(http.MethodDelete)
	r.HandleFunc("/vehicles", h.listVehicles).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
}

type postDataBody struct {
	URL string `json:"url"`
}

type postDataResponse struct {
	Imported int `json:"imported"`
}

type getDataResponse struct {
	Ready []string `json:"ready"`
}

type getVehicleResponse struct {
	Estimated time.Time `json:"estimated"`
	Completed bool      `json:"completed"`
}

type deleteVehicleResponse struct {
	CurrentCharge int `json:"current_charge"`
}

type vehicleView struct {
	ID                int64     `json:"id"`
	Plate             string    `json:"plate"`
	CurrentCharge     int       `json:"current_charge"`
	TotalCharge       int       `json:"total_charge"`
	DesiredPercentage int       `json:"desired_percentage"`
	StartTime         time.Time `json:"start_time"`
	Status            string    `json:"status"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (h *handler) postData(w http.ResponseWriter, r *http.Request) {
	var body postDataBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil || body.URL == "" {
		writeError(w, http.StatusBadRequest, "body must be {\"url\": \"...\"}")
		return
	}
	if !source.IsRemote(body.URL) {
		writeError(w, http.StatusBadRequest, "url must be an http or https URL")
		return
	}
	n, err := h.svc.ImportURL(r.Context(), body.URL)
	if err != nil {
		h.log.Warnf("import %s stopped after %d vehicles: %v", body.URL, n, err)
		writeError(w, http.StatusBadRequest, "could not import vehicles")
		return
	}
	if n == 0 {
		writeError(w, http.StatusBadRequest, "could not import vehicles")
		return
	}
	writeJSON(w, http.StatusCreated, postDataResponse{Imported: n})
}

func (h *handler) getData(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.ListReady(r.Context())
	if err != nil {
		h.fail(w, "list ready", err)
		return
	}
	out := getDataResponse{Ready: make([]string, 0, len(recs))}
	for _, rec := range recs {
		out.Ready = append(out.Ready, rec.Plate)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) getVehicle(w http.ResponseWriter, r *http.Request) {
	plate := mux.Vars(r)["plate"]
	st, err := h.svc.GetStatus(r.Context(), plate)
	if errors.Is(err, reconcile.ErrNotFound) {
		writeError(w, http.StatusNotFound, plate+" not found")
		return
	}
	if err != nil {
		h.fail(w, "status", err)
		return
	}
	writeJSON(w, http.StatusOK, getVehicleResponse{Estimated: st.EstimatedAt, Completed: st.Completed})
}

func (h *handler) deleteVehicle(w http.ResponseWriter, r *http.Request) {
	plate := mux.Vars(r)["plate"]
	charge, err := h.svc.Retire(r.Context(), plate)
	if errors.Is(err, reconcile.ErrNotFound) {
		writeError(w, http.StatusNotFound, plate+" not found")
		return
	}
	if err != nil {
		h.fail(w, "retire", err)
		return
	}
	writeJSON(w, http.StatusOK, deleteVehicleResponse{CurrentCharge: charge})
}

func (h *handler) listVehicles(w http.ResponseWriter, r *http.Request) {
	var f ledger.Filter
	if s := r.URL.Query().Get("status"); s != "" {
		st, err := model.ParseStatus(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.Status = st
	}
	recs, err := h.svc.Vehicles(r.Context(), f)
	if err != nil {
		h.fail(w, "list vehicles", err)
		return
	}
	out := make([]vehicleView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, vehicleView{
			ID:                rec.ID,
			Plate:             rec.Plate,
			CurrentCharge:     rec.CurrentCharge,
			TotalCharge:       rec.TotalCharge,
			DesiredPercentage: rec.DesiredPercentage,
			StartTime:         rec.StartTime,
			Status:            string(rec.Status),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) fail(w http.ResponseWriter, op string, err error) {
	h.log.Errorf("%s: %v", op, err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, errorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
