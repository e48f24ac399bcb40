package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Cristobalca/shield-browser-app/database"
	"github.com/Cristobalca/shield-browser-app/log"

	"github.com/gorilla/mux"
)

// CoreAPI exposes the engine contract to the surrounding UI layer over a
// loopback REST surface.
type CoreAPI struct {
	router     *mux.Router
	cfg        *Config
	identities *IdentitySynthesizer
	proxies    *ProxyManager
	apiKey     string
	srv        *http.Server
}

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type allocateRequest struct {
	LocationTag string `json:"location_tag"`
}

type policiesRequest struct {
	Count int `json:"count"`
}

type importRequest struct {
	Path       string `json:"path"`
	RegionCode string `json:"region_code"`
}

func NewCoreAPI(cfg *Config, identities *IdentitySynthesizer, proxies *ProxyManager) *CoreAPI {
	a := &CoreAPI{
		router:     mux.NewRouter(),
		cfg:        cfg,
		identities: identities,
		proxies:    proxies,
		apiKey:     cfg.GetGeneral().ApiKey,
	}
	a.setupRoutes()
	return a
}

func (a *CoreAPI) setupRoutes() {
	api := a.router.PathPrefix("/api").Subrouter()
	api.Use(a.authMiddleware)

	api.HandleFunc("/identity/geo", a.handleIdentityGeo).Methods("GET")
	api.HandleFunc("/identity/local", a.handleIdentityLocal).Methods("GET")
	api.HandleFunc("/anchors", a.handleAnchors).Methods("GET")

	api.HandleFunc("/proxies", a.handleProxyList).Methods("GET")
	api.HandleFunc("/proxies/summary", a.handleProxySummary).Methods("GET")
	api.HandleFunc("/proxies/allocate", a.handleProxyAllocate).Methods("POST")
	api.HandleFunc("/proxies/import", a.handleProxyImport).Methods("POST")
	api.HandleFunc("/proxies/{id:[0-9]+}", a.handleProxyGet).Methods("GET")
	api.HandleFunc("/proxies/{id:[0-9]+}/session", a.handleProxySession).Methods("POST")
	api.HandleFunc("/proxies/{id:[0-9]+}/policies", a.handleProxyPolicies).Methods("POST")
	api.HandleFunc("/proxies/{id:[0-9]+}/toggle", a.handleProxyToggle).Methods("POST")
	api.HandleFunc("/proxies/{id:[0-9]+}/abuse", a.handleProxyAbuse).Methods("GET")
}

func (a *CoreAPI) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.apiKey != "" && r.Header.Get("X-API-Key") != a.apiKey {
			a.sendError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *CoreAPI) handleIdentityGeo(w http.ResponseWriter, r *http.Request) {
	anchor := r.URL.Query().Get("anchor")
	if anchor == "" {
		anchor = a.cfg.GetFingerprint().DefaultAnchor
	}
	ident := a.identities.SynthesizeGeo(anchor)
	a.sendJSON(w, http.StatusOK, &APIResponse{Success: true, Data: ident})
}

func (a *CoreAPI) handleIdentityLocal(w http.ResponseWriter, r *http.Request) {
	ident := a.identities.SynthesizeLocal(r.Context())
	a.sendJSON(w, http.StatusOK, &APIResponse{Success: true, Data: ident})
}

func (a *CoreAPI) handleAnchors(w http.ResponseWriter, r *http.Request) {
	a.sendJSON(w, http.StatusOK, &APIResponse{Success: true, Data: AnchorNames()})
}

func (a *CoreAPI) handleProxyList(w http.ResponseWriter, r *http.Request) {
	nodes, err := a.proxies.ListByRegion(r.URL.Query().Get("region"))
	if err != nil {
		a.sendCoreError(w, err)
		return
	}
	a.sendJSON(w, http.StatusOK, &APIResponse{Success: true, Data: nodes})
}

func (a *CoreAPI) handleProxySummary(w http.ResponseWriter, r *http.Request) {
	summaries, err := a.proxies.SummaryByRegion()
	if err != nil {
		a.sendCoreError(w, err)
		return
	}
	a.sendJSON(w, http.StatusOK, &APIResponse{Success: true, Data: summaries})
}

func (a *CoreAPI) handleProxyAllocate(w http.ResponseWriter, r *http.Request) {
	var req allocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := a.proxies.Allocate(req.LocationTag)
	if err != nil {
		a.sendCoreError(w, err)
		return
	}
	// Exhaustion and unknown regions are normal outcomes, not HTTP errors.
	a.sendJSON(w, http.StatusOK, &APIResponse{Success: result.Reason == AllocOk, Data: result})
}

func (a *CoreAPI) handleProxyImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result := a.proxies.ImportFromFile(req.Path, req.RegionCode)
	a.sendJSON(w, http.StatusOK, &APIResponse{Success: result.Success, Message: result.Message, Data: result})
}

func (a *CoreAPI) handleProxyGet(w http.ResponseWriter, r *http.Request) {
	node, err := a.proxies.GetNode(a.pathId(r))
	if err != nil {
		a.sendCoreError(w, err)
		return
	}
	a.sendJSON(w, http.StatusOK, &APIResponse{Success: true, Data: node})
}

func (a *CoreAPI) handleProxySession(w http.ResponseWriter, r *http.Request) {
	node, err := a.proxies.CreditSession(a.pathId(r))
	if err != nil {
		a.sendCoreError(w, err)
		return
	}
	a.sendJSON(w, http.StatusOK, &APIResponse{Success: true, Data: node})
}

func (a *CoreAPI) handleProxyPolicies(w http.ResponseWriter, r *http.Request) {
	var req policiesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	node, err := a.proxies.CreditPolicies(a.pathId(r), req.Count)
	if err != nil {
		a.sendCoreError(w, err)
		return
	}
	a.sendJSON(w, http.StatusOK, &APIResponse{Success: true, Data: node})
}

func (a *CoreAPI) handleProxyToggle(w http.ResponseWriter, r *http.Request) {
	node, err := a.proxies.ToggleDisabled(a.pathId(r))
	if err != nil {
		a.sendCoreError(w, err)
		return
	}
	a.sendJSON(w, http.StatusOK, &APIResponse{Success: true, Data: node})
}

func (a *CoreAPI) handleProxyAbuse(w http.ResponseWriter, r *http.Request) {
	alert, err := a.proxies.EvaluateAbuse(a.pathId(r))
	if err != nil {
		a.sendCoreError(w, err)
		return
	}
	a.sendJSON(w, http.StatusOK, &APIResponse{Success: true, Data: alert})
}

func (a *CoreAPI) pathId(r *http.Request) int {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	return id
}

// sendCoreError maps the engine's error taxonomy onto HTTP status codes.
func (a *CoreAPI) sendCoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrProxyNotFound):
		a.sendError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidRegion), errors.Is(err, ErrInvalidPolicyCount):
		a.sendError(w, http.StatusBadRequest, err.Error())
	default:
		a.sendError(w, http.StatusInternalServerError, err.Error())
	}
}

func (a *CoreAPI) sendJSON(w http.ResponseWriter, status int, resp *APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func (a *CoreAPI) sendError(w http.ResponseWriter, status int, message string) {
	a.sendJSON(w, status, &APIResponse{Success: false, Error: message})
}

func (a *CoreAPI) Start() error {
	general := a.cfg.GetGeneral()
	addr := fmt.Sprintf("%s:%d", general.BindIpv4, general.ApiPort)
	a.srv = &http.Server{
		Addr:         addr,
		Handler:      a.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	log.Important("core api listening on: http://%s", addr)
	return a.srv.ListenAndServe()
}

func (a *CoreAPI) Handler() http.Handler {
	return a.router
}
