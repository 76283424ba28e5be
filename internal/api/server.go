package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/chatlens/chatlens/internal/insights"
	"github.com/chatlens/chatlens/internal/live"
)

// Server wires the HTTP surface of the service: dashboard queries, job
// control, and the live progress socket.
type Server struct {
	insights *insights.Service
	hub      *live.Hub
}

// NewServer creates the HTTP server facade.
func NewServer(insightsService *insights.Service, hub *live.Hub) *Server {
	return &Server{insights: insightsService, hub: hub}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.HandleFunc("/metrics", s.handleMetrics).Methods("GET")

	router.HandleFunc("/api/chats/{id}/process", s.handleProcess).Methods("POST")
	router.HandleFunc("/api/chats/{id}/process", s.handleCancel).Methods("DELETE")
	router.HandleFunc("/api/chats/{id}/status", s.handleStatus).Methods("GET")
	router.HandleFunc("/api/chats/{id}/participants", s.handleParticipants).Methods("GET")
	router.HandleFunc("/api/chats/{id}/dashboard", s.handleDashboard).Methods("GET")
	router.HandleFunc("/api/chats/{id}/sentiment", s.handleSentiment).Methods("GET")
	router.HandleFunc("/ws/chats/{id}", s.handleSocket).Methods("GET")

	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(s.insights.GetMetrics()))
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["id"]

	job, err := s.insights.ProcessChat(r.Context(), chatID)
	if err != nil {
		logrus.Errorf("Failed to start processing chat %s: %v", chatID, err)
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["id"]

	if err := s.insights.CancelChat(chatID); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "cancellation requested"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["id"]

	job, ok := s.insights.Status(chatID)
	if !ok {
		writeError(w, http.StatusNotFound, "no job for chat "+chatID)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleParticipants(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["id"]

	participants, err := s.insights.Participants(r.Context(), chatID)
	if err != nil {
		logrus.Errorf("Failed to load participants for chat %s: %v", chatID, err)
		writeError(w, http.StatusBadGateway, "failed to load chat records")
		return
	}
	writeJSON(w, http.StatusOK, participants)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["id"]

	spec, err := parseFilterSpec(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dashboard, err := s.insights.GeneralDashboard(r.Context(), chatID, spec)
	if err != nil {
		logrus.Errorf("Failed to build dashboard for chat %s: %v", chatID, err)
		writeError(w, http.StatusBadGateway, "failed to load chat records")
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (s *Server) handleSentiment(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["id"]

	spec, err := parseFilterSpec(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dashboard, err := s.insights.SentimentDashboard(r.Context(), chatID, spec)
	if err != nil {
		logrus.Errorf("Failed to build sentiment dashboard for chat %s: %v", chatID, err)
		writeError(w, http.StatusBadGateway, "failed to load chat records")
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	s.hub.Serve(w, r, mux.Vars(r)["id"])
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
