package api

import (
	"errors"
	"net/http"

	"github.com/tiaan720/generic-agent-app/internal/registry"
)

type agentList struct {
	Agents     []registry.AgentInfo `json:"agents"`
	Categories []string             `json:"categories"`
}

func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	agents := s.catalog.List()
	if cat := r.URL.Query().Get("category"); cat != "" {
		agents = s.catalog.ByCategory(cat)
	}
	out := agentList{
		Agents:     make([]registry.AgentInfo, 0, len(agents)),
		Categories: s.catalog.Categories(),
	}
	for _, a := range agents {
		out.Agents = append(out.Agents, a.Info())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getAgent(w http.ResponseWriter, r *http.Request) {
	a, err := s.catalog.Lookup(r.PathValue("agent_id"))
	if errors.Is(err, registry.ErrAgentNotFound) {
		writeError(w, http.StatusNotFound, "Agent not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a.Info())
}
