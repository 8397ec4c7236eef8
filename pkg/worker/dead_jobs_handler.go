package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

type DeadJobManager interface {
	DeadJobs(ctx context.Context, size, offset int) ([]Job, error)
	Resurrect(ctx context.Context, jobIDs []string) error
	ClearDeadJobs(ctx context.Context, jobIDs []string) error
}

// DeadJobManagementHandler serves dead job management under prefix:
//   - GET  <prefix>/dead-jobs?size=&offset= lists dead jobs.
//   - POST <prefix>/resurrect-jobs with job_ids form values queues them again.
//   - POST <prefix>/clear-jobs with job_ids form values drops them.
func DeadJobManagementHandler(prefix string, mgr DeadJobManager) http.Handler {
	router := mux.NewRouter().PathPrefix(prefix).Subrouter()
	router.HandleFunc("/dead-jobs", deadJobsHandler(mgr)).Methods(http.MethodGet)
	router.HandleFunc("/resurrect-jobs", jobIDsHandler(mgr.Resurrect)).Methods(http.MethodPost)
	router.HandleFunc("/clear-jobs", jobIDsHandler(mgr.ClearDeadJobs)).Methods(http.MethodPost)
	return router
}

func deadJobsHandler(mgr DeadJobManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qry := r.URL.Query()
		size, err := strconv.Atoi(qry.Get("size"))
		if err != nil || size <= 0 {
			size = 20
		}
		offset, err := strconv.Atoi(qry.Get("offset"))
		if err != nil || offset < 0 {
			offset = 0
		}

		jobs, err := mgr.DeadJobs(r.Context(), size, offset)
		if err != nil {
			writeJSONResponse(w, http.StatusInternalServerError, err)
			return
		}
		writeJSONResponse(w, http.StatusOK, jobs)
	}
}

func jobIDsHandler(fn func(context.Context, []string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONResponse(w, http.StatusBadRequest, err)
			return
		}

		jobIDs := r.Form["job_ids"]
		if len(jobIDs) == 0 {
			writeJSONResponse(w, http.StatusBadRequest, map[string]string{"error": "no job IDs specified"})
			return
		}
		if err := fn(r.Context(), jobIDs); err != nil {
			writeJSONResponse(w, http.StatusBadRequest, err)
			return
		}
		writeJSONResponse(w, http.StatusOK, map[string]int{"jobs": len(jobIDs)})
	}
}

func writeJSONResponse(w http.ResponseWriter, status int, v interface{}) {
	if err, ok := v.(error); ok {
		v = map[string]string{"error": err.Error()}
	}

	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "encode response failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
