package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"boardd/internal/kanban"
	"boardd/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFrom(r))
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var creds kanban.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		s.writeError(w, r, &kanban.AuthError{Reason: "malformed credentials"})
		return
	}
	user, err := s.sessions.Create(r.Context(), creds)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"token": user.Token, "id": user.ID})
}

func (s *Server) handleListBoards(w http.ResponseWriter, r *http.Request) {
	boards, err := s.svc.ListBoards(r.Context(), userFrom(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"boards": boards})
}

func (s *Server) handleCreateBoard(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, &kanban.ValidationError{Reason: "malformed board body"})
		return
	}
	board, err := s.svc.CreateBoard(r.Context(), body.Name, userFrom(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"board": map[string]string{"id": board.ID}})
}

func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Snapshot(r.Context(), mux.Vars(r)["id"], userFrom(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"board": snap})
}

func (s *Server) handleDeleteBoard(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteBoard(r.Context(), mux.Vars(r)["id"], userFrom(r).ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExportBoard serves the full board as a pretty-printed JSON
// attachment.
func (s *Server) handleExportBoard(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Snapshot(r.Context(), mux.Vars(r)["id"], userFrom(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", snap.Name+".json"))
	w.Write(data)
}

func (s *Server) handleUpdateLinks(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	// The body nests repos under the provider name: {"github": [...]}.
	var body map[string][]model.RemoteRepo
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, &kanban.ValidationError{Reason: "malformed links body"})
		return
	}
	links, err := s.svc.UpdateLinks(r.Context(), vars["id"], userFrom(r).ID, vars["provider"], body[vars["provider"]])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"links": links})
}

func (s *Server) handleImportCards(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.svc.ImportCards(r.Context(), vars["id"], userFrom(r).ID, vars["provider"], body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"board": map[string]any{"columns": snap.Columns}})
}

func (s *Server) handleMoveCard(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var body struct {
		OldColumn string `json:"old_column"`
		NewColumn string `json:"new_column"`
		NewIndex  int    `json:"new_index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, &kanban.ValidationError{Reason: "malformed move body"})
		return
	}
	err := s.svc.MoveCard(r.Context(), vars["id"], userFrom(r).ID, vars["cardId"], body.OldColumn, body.NewColumn, body.NewIndex)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddAuthorizedUser(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	users, err := s.svc.AddAuthorizedUser(r.Context(), vars["id"], userFrom(r).ID, vars["userId"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authorizedUsers": users})
}

func (s *Server) handleRemoveAuthorizedUser(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	users, err := s.svc.RemoveAuthorizedUser(r.Context(), vars["id"], userFrom(r).ID, vars["userId"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authorizedUsers": users})
}

func (s *Server) handleAddCard(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	col, err := pathIndex(vars["col"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, &kanban.ValidationError{Reason: "malformed card body"})
		return
	}
	snap, err := s.svc.AddCard(r.Context(), vars["id"], userFrom(r).ID, col, model.CardAttributes{Title: body.Title, Body: body.Body})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"board": map[string]any{"columns": snap.Columns}})
}

func (s *Server) handleRemoveCard(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	col, err := pathIndex(vars["col"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	row, err := pathIndex(vars["row"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.svc.RemoveCard(r.Context(), vars["id"], userFrom(r).ID, col, row)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"board": map[string]any{"columns": snap.Columns}})
}

func (s *Server) handleRemoveColumn(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	col, err := pathIndex(vars["col"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.svc.RemoveColumn(r.Context(), vars["id"], userFrom(r).ID, col)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"board": map[string]any{"columns": snap.Columns}})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var body struct {
		Action string             `json:"action"`
		Issue  *model.RemoteIssue `json:"issue"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, &kanban.ValidationError{Reason: "malformed webhook payload"})
		return
	}
	err := s.svc.Webhook(r.Context(), vars["id"], vars["provider"], vars["repoId"], body.Action, body.Issue)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathIndex(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &kanban.ValidationError{Reason: fmt.Sprintf("malformed index %q", raw)}
	}
	return n, nil
}
