package bulk_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"sfbulk/pkg/bulk"
	"sfbulk/pkg/logging"
)

const apiPrefix = "/services/async/37.0/"

var stateRe = regexp.MustCompile(`<state>([^<]+)</state>`)

// fakeAPI is an in-process Bulk API: it assigns job and batch ids, tracks
// job states, serves batch status from per-test fixtures, and echoes each
// batch's submitted payload back as its operation result.
type fakeAPI struct {
	t   *testing.T
	mu  sync.Mutex
	srv *httptest.Server

	jobCreateDocs []string
	jobState      map[string]string
	jobBatches    map[string][]string
	batchJob      map[string]string
	batchState    map[string]string
	batchMsg      map[string]string
	batchBody     map[string]string
	resultIDs     map[string][]string
	resultData    map[string]string
	statusCalls   map[string]int

	failNext int // HTTP status to return for the next request, 0 = off
}

func newFakeAPI(t *testing.T) *fakeAPI {
	f := &fakeAPI{
		t:           t,
		jobState:    make(map[string]string),
		jobBatches:  make(map[string][]string),
		batchJob:    make(map[string]string),
		batchState:  make(map[string]string),
		batchMsg:    make(map[string]string),
		batchBody:   make(map[string]string),
		resultIDs:   make(map[string][]string),
		resultData:  make(map[string]string),
		statusCalls: make(map[string]int),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func newTestClient(t *testing.T, f *fakeAPI, batchSize int) *bulk.Client {
	c, err := bulk.NewClient(bulk.Config{
		Session:   bulk.Session{ID: "test-session", Host: f.srv.URL},
		BatchSize: batchSize,
		Logger:    logging.Nop(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func (f *fakeAPI) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failNext != 0 {
		code := f.failNext
		f.failNext = 0
		http.Error(w, "forced failure", code)
		return
	}
	if r.Header.Get("X-SFDC-Session") == "" {
		http.Error(w, "missing session header", http.StatusUnauthorized)
		return
	}
	if !strings.HasPrefix(r.URL.Path, apiPrefix) {
		http.NotFound(w, r)
		return
	}

	segs := strings.Split(strings.TrimPrefix(r.URL.Path, apiPrefix), "/")
	body, _ := io.ReadAll(r.Body)

	switch {
	case r.Method == http.MethodPost && len(segs) == 1 && segs[0] == "job":
		f.jobCreateDocs = append(f.jobCreateDocs, string(body))
		id := "750-" + uuid.NewString()[:8]
		f.jobState[id] = "Open"
		f.writeXML(w, f.jobInfoXML(id))

	case r.Method == http.MethodPost && len(segs) == 2 && segs[0] == "job":
		id := segs[1]
		m := stateRe.FindStringSubmatch(string(body))
		if m == nil {
			http.Error(w, "no state in document", http.StatusBadRequest)
			return
		}
		f.jobState[id] = m[1]
		f.writeXML(w, f.jobInfoXML(id))

	case r.Method == http.MethodPost && len(segs) == 3 && segs[0] == "job" && segs[2] == "batch":
		jobID := segs[1]
		id := "751-" + uuid.NewString()[:8]
		f.batchJob[id] = jobID
		f.jobBatches[jobID] = append(f.jobBatches[jobID], id)
		f.batchState[id] = "Queued"
		f.batchBody[id] = string(body)
		f.writeXML(w, f.batchInfoXML(id))

	case r.Method == http.MethodGet && len(segs) == 2 && segs[0] == "job":
		f.writeXML(w, f.jobInfoXML(segs[1]))

	case r.Method == http.MethodGet && len(segs) == 4 && segs[2] == "batch":
		id := segs[3]
		f.statusCalls[id]++
		f.writeXML(w, f.batchInfoXML(id))

	case r.Method == http.MethodGet && len(segs) == 5 && segs[4] == "result":
		id := segs[3]
		if ids, ok := f.resultIDs[id]; ok {
			var b strings.Builder
			b.WriteString(`<result-list xmlns="http://www.force.com/2009/06/asyncapi/dataload">`)
			for _, rid := range ids {
				b.WriteString("<result>" + rid + "</result>")
			}
			b.WriteString(`</result-list>`)
			f.writeXML(w, b.String())
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, f.batchBody[id])

	case r.Method == http.MethodGet && len(segs) == 6 && segs[4] == "result":
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, f.resultData[segs[5]])

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeAPI) writeXML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/xml")
	_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>`+body)
}

func (f *fakeAPI) jobInfoXML(id string) string {
	return `<jobInfo xmlns="http://www.force.com/2009/06/asyncapi/dataload">` +
		`<id>` + id + `</id><state>` + f.jobState[id] + `</state></jobInfo>`
}

func (f *fakeAPI) batchInfoXML(id string) string {
	s := `<batchInfo xmlns="http://www.force.com/2009/06/asyncapi/dataload">` +
		`<id>` + id + `</id><jobId>` + f.batchJob[id] + `</jobId>` +
		`<state>` + f.batchState[id] + `</state>`
	if msg := f.batchMsg[id]; msg != "" {
		s += `<stateMessage>` + msg + `</stateMessage>`
	}
	return s + `</batchInfo>`
}

func (f *fakeAPI) setBatch(id, state, msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchState[id] = state
	f.batchMsg[id] = msg
}

func (f *fakeAPI) completeBatches(ids ...string) {
	for _, id := range ids {
		f.setBatch(id, "Completed", "")
	}
}

// setQueryResults registers the segment ids the server lists for a query
// batch, in listing order, and the CSV body of each segment.
func (f *fakeAPI) setQueryResults(batchID string, ids []string, data map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resultIDs[batchID] = ids
	for id, csv := range data {
		f.resultData[id] = csv
	}
}

func (f *fakeAPI) calls(batchID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls[batchID]
}

func (f *fakeAPI) stateOfJob(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobState[id]
}

func (f *fakeAPI) submittedBody(batchID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batchBody[batchID]
}

func (f *fakeAPI) createDoc(i int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.jobCreateDocs) {
		return ""
	}
	return f.jobCreateDocs[i]
}
