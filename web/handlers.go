package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"f0oster/userreport/database"
	"f0oster/userreport/snapshot"
)

// Response types for JSON serialization

type RunListResponse struct {
	Runs  []database.RunRecord `json:"runs"`
	Limit int                  `json:"limit"`
}

type GroupSummary struct {
	Name    string `json:"name"`
	Members int    `json:"members"`
	Added   int    `json:"added"`
}

type SnapshotSummaryResponse struct {
	Date      string         `json:"date"`
	Path      string         `json:"path"`
	UserCount int            `json:"user_count"`
	Groups    []GroupSummary `json:"groups"`
}

type UserResponse struct {
	UserName string               `json:"user_name"`
	Date     string               `json:"snapshot_date"`
	Record   *snapshot.UserRecord `json:"record"`
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// Handlers

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "report archive is not configured")
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		s.log.ErrorContext(r.Context(), "list runs", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []database.RunRecord{}
	}

	writeJSON(w, http.StatusOK, RunListResponse{Runs: runs, Limit: limit})
}

func (s *Server) handleLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.latest(w, r)
	if !ok {
		return
	}

	groups := map[string]*GroupSummary{}
	for _, user := range snap.Users {
		for name, state := range user.Groups {
			g, ok := groups[name]
			if !ok {
				g = &GroupSummary{Name: name}
				groups[name] = g
			}
			g.Members++
			if state.Added() {
				g.Added++
			}
		}
	}

	resp := SnapshotSummaryResponse{
		Date:      snap.Date.String(),
		Path:      s.snapshots.Path(snap),
		UserCount: len(snap.Users),
		Groups:    make([]GroupSummary, 0, len(groups)),
	}
	for _, g := range groups {
		resp.Groups = append(resp.Groups, *g)
	}
	sort.Slice(resp.Groups, func(i, j int) bool { return resp.Groups[i].Name < resp.Groups[j].Name })

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLatestUser(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.latest(w, r)
	if !ok {
		return
	}

	name := r.PathValue("name")
	record, found := snap.Users[name]
	if !found {
		writeError(w, http.StatusNotFound, "user not found in latest snapshot")
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{
		UserName: name,
		Date:     snap.Date.String(),
		Record:   record,
	})
}

func (s *Server) latest(w http.ResponseWriter, r *http.Request) (*snapshot.Snapshot, bool) {
	snap, err := s.snapshots.Latest()
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		writeError(w, http.StatusNotFound, "no snapshot has been taken yet")
		return nil, false
	}
	if err != nil {
		s.log.ErrorContext(r.Context(), "load latest snapshot", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to load latest snapshot")
		return nil, false
	}
	return snap, true
}
