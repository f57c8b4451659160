package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"skladtrack/internal/engine"
	"skladtrack/internal/xlsx"
	"skladtrack/models"
	"skladtrack/store"
)

// maxImportSize bounds an uploaded workbook at 16 MiB.
const maxImportSize = 16 << 20

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.TaskFilter{
		Archived:    q.Get("archived") == "true",
		Search:      q.Get("search"),
		Status:      q.Get("status"),
		Priority:    q.Get("priority"),
		Responsible: q.Get("responsible"),
	}
	if q.Get("overdue") == "true" {
		filter.OverdueAt = s.clock.Now()
	}
	sort := store.TaskSort{
		Column:     q.Get("sort_by"),
		Descending: q.Get("sort_order") != "asc",
	}
	if sort.Column == "" {
		sort = store.DefaultTaskSort
	}

	tasks, err := s.store.ListTasks(filter, sort)
	if err != nil {
		writeError(w, err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var input engine.TaskInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	task, err := s.engine.Create(input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid task id")
		return
	}
	task, err := s.store.GetTask(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid task id")
		return
	}
	var patch engine.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	task, err := s.engine.Update(id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid task id")
		return
	}
	if err := s.engine.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("task %d deleted", id)})
}

type bulkUpdateRequest struct {
	TaskIDs []int64 `json:"taskIds"`
	engine.TaskPatch
}

func (s *Server) handleBulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req bulkUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	result, err := s.engine.BulkUpdate(req.TaskIDs, req.TaskPatch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type bulkDeleteRequest struct {
	TaskIDs []int64 `json:"taskIds"`
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	result, err := s.engine.BulkDelete(req.TaskIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTaskHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid task id")
		return
	}
	// The task must still exist to browse its history over the API; ledger
	// rows for deleted tasks stay queryable in the database for audit.
	if _, err := s.store.GetTask(id); err != nil {
		writeError(w, err)
		return
	}
	entries, err := s.store.ForTask(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleRevert(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid task id")
		return
	}
	historyID, err := pathID(r, "historyID")
	if err != nil {
		badRequest(w, "invalid history id")
		return
	}
	result, err := s.engine.Revert(taskID, historyID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message string `json:"message"`
		engine.RevertResult
	}{
		Message:      "change reverted",
		RevertResult: result,
	})
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	count, err := s.archiver.Run()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"archivedCount": count,
		"message":       fmt.Sprintf("archived %d tasks", count),
	})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		badRequest(w, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "missing file field")
		return
	}
	defer func() { _ = file.Close() }()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".xlsx" && ext != ".xls" {
		badRequest(w, "only Excel files (.xlsx, .xls) are supported")
		return
	}

	src, err := xlsx.New(file)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	defer func() { _ = src.Close() }()

	result, err := s.engine.ImportBatch(src, header.Filename)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(s.clock.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListReceptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	receptions, err := s.store.ListReceptions(q.Get("search"), q.Get("status"))
	if err != nil {
		writeError(w, err)
		return
	}
	if receptions == nil {
		receptions = []models.Reception{}
	}
	writeJSON(w, http.StatusOK, receptions)
}

func (s *Server) handleCreateReception(w http.ResponseWriter, r *http.Request) {
	var reception models.Reception
	if err := json.NewDecoder(r.Body).Decode(&reception); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	now := s.clock.Now()
	if reception.Date.IsZero() {
		reception.Date = now
	}
	reception.CreatedAt = now
	if err := models.ValidateStruct(reception); err != nil {
		badRequest(w, err.Error())
		return
	}
	created, err := s.store.CreateReception(reception)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListFilters(w http.ResponseWriter, r *http.Request) {
	filters, err := s.store.ListFilters()
	if err != nil {
		writeError(w, err)
		return
	}
	if filters == nil {
		filters = []models.SavedFilter{}
	}
	writeJSON(w, http.StatusOK, filters)
}

func (s *Server) handleCreateFilter(w http.ResponseWriter, r *http.Request) {
	var filter models.SavedFilter
	if err := json.NewDecoder(r.Body).Decode(&filter); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	filter.CreatedAt = s.clock.Now()
	if err := models.ValidateStruct(filter); err != nil {
		badRequest(w, err.Error())
		return
	}
	created, err := s.store.CreateFilter(filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteFilter(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid filter id")
		return
	}
	if err := s.store.DeleteFilter(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("filter %d deleted", id)})
}
