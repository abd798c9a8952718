package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dops/internal/core"
	"dops/internal/services"
	"dops/internal/storage"
)

type fakeTasks struct {
	tasks   map[int64]core.Task
	nextID  int64
	settled []int64
}

func newFakeTasks() *fakeTasks {
	return &fakeTasks{tasks: make(map[int64]core.Task), nextID: 1}
}

func (f *fakeTasks) CreateTask(_ context.Context, t core.Task) (core.Task, error) {
	prepared, err := services.PrepareTask(t, core.Settings{
		DesignRate:      core.Money{Won: 50000},
		DevelopmentRate: core.Money{Won: 60000},
		OperationRate:   core.Money{Won: 40000},
	})
	if err != nil {
		return core.Task{}, err
	}
	prepared.ID = f.nextID
	f.nextID++
	f.tasks[prepared.ID] = prepared
	return prepared, nil
}

func (f *fakeTasks) UpdateTask(_ context.Context, t core.Task) (core.Task, error) {
	if _, ok := f.tasks[t.ID]; !ok {
		return core.Task{}, core.ErrNotFound
	}
	f.tasks[t.ID] = t
	return t, nil
}

func (f *fakeTasks) GetTask(_ context.Context, id int64) (core.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return core.Task{}, core.ErrNotFound
	}
	return t, nil
}

func (f *fakeTasks) ListTasks(_ context.Context, _ storage.TaskFilter) ([]core.Task, error) {
	var out []core.Task
	for _, t := range f.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTasks) DeleteTask(_ context.Context, id int64) error {
	if _, ok := f.tasks[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeTasks) SettleTasks(_ context.Context, ids []int64, status core.SettleStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, core.ErrMissingField
	}
	if err := status.Validate(); err != nil {
		return 0, err
	}
	f.settled = append(f.settled, ids...)
	return int64(len(ids)), nil
}

func (f *fakeTasks) SummarizeTasks(ctx context.Context, filter storage.TaskFilter, key core.SummaryKey) ([]core.Bucket, error) {
	tasks, err := f.ListTasks(ctx, filter)
	if err != nil {
		return nil, err
	}
	return core.SummarizeTasks(tasks, key), nil
}

type fakeLedger struct {
	entries map[int64]core.LedgerEntry
	nextID  int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: make(map[int64]core.LedgerEntry), nextID: 1}
}

func (f *fakeLedger) CreateEntry(_ context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	e.Amounts = core.BalancePayer(e.Amounts, e.Payer)
	if err := e.Validate(); err != nil {
		return core.LedgerEntry{}, err
	}
	e.ID = f.nextID
	f.nextID++
	f.entries[e.ID] = e
	return e, nil
}

func (f *fakeLedger) CreateDutchPay(ctx context.Context, in services.DutchPayInput) (core.LedgerEntry, error) {
	amounts, err := core.DutchPay(in.Total, core.NormalizeManagers(in.Participants), in.Payer)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	return f.CreateEntry(ctx, core.LedgerEntry{
		Date:    in.Date,
		Kind:    in.Kind,
		Title:   in.Title,
		Payer:   in.Payer,
		Amounts: amounts,
	})
}

func (f *fakeLedger) UpdateEntry(_ context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	if _, ok := f.entries[e.ID]; !ok {
		return core.LedgerEntry{}, core.ErrNotFound
	}
	f.entries[e.ID] = e
	return e, nil
}

func (f *fakeLedger) DeleteEntry(_ context.Context, id int64) error {
	if _, ok := f.entries[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.entries, id)
	return nil
}

func (f *fakeLedger) GetEntry(_ context.Context, id int64) (core.LedgerEntry, error) {
	e, ok := f.entries[id]
	if !ok {
		return core.LedgerEntry{}, core.ErrNotFound
	}
	return e, nil
}

func (f *fakeLedger) ListEntries(_ context.Context, _ storage.LedgerFilter) ([]core.LedgerEntry, error) {
	var out []core.LedgerEntry
	for _, e := range f.entries {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeLedger) SummarizeLedger(ctx context.Context, filter storage.LedgerFilter, key core.LedgerKey) ([]core.LedgerBucket, error) {
	entries, err := f.ListEntries(ctx, filter)
	if err != nil {
		return nil, err
	}
	return core.SummarizeLedger(entries, key), nil
}

type fakeStore struct {
	clients      map[int64]core.Client
	templates    map[int64]core.RecurringTemplate
	birthdays    map[int64]storage.BirthdayRow
	settings     core.Settings
	nextID       int64
	listCalls    int
	clientInUse  int64
	pingErr      error
	templateSets map[int64]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		clients:      make(map[int64]core.Client),
		templates:    make(map[int64]core.RecurringTemplate),
		birthdays:    make(map[int64]storage.BirthdayRow),
		settings:     core.Settings{DesignRate: core.Money{Won: 50000}},
		nextID:       1,
		templateSets: make(map[int64]bool),
	}
}

func (f *fakeStore) CreateClient(_ context.Context, c core.Client) (core.Client, error) {
	c.ID = f.nextID
	f.nextID++
	f.clients[c.ID] = c
	return c, nil
}

func (f *fakeStore) GetClient(_ context.Context, id int64) (core.Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return core.Client{}, core.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) ListClients(_ context.Context) ([]core.Client, error) {
	f.listCalls++
	var out []core.Client
	for _, c := range f.clients {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeStore) UpdateClient(_ context.Context, c core.Client) error {
	if _, ok := f.clients[c.ID]; !ok {
		return core.ErrNotFound
	}
	f.clients[c.ID] = c
	return nil
}

func (f *fakeStore) DeleteClient(_ context.Context, id int64) error {
	if id == f.clientInUse {
		return core.ErrClientInUse
	}
	if _, ok := f.clients[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.clients, id)
	return nil
}

func (f *fakeStore) GetSettings(_ context.Context) (core.Settings, error) {
	return f.settings, nil
}

func (f *fakeStore) UpdateSettings(_ context.Context, s core.Settings) error {
	f.settings = s
	return nil
}

func (f *fakeStore) CreateTemplate(_ context.Context, rt core.RecurringTemplate) (core.RecurringTemplate, error) {
	rt.ID = f.nextID
	f.nextID++
	f.templates[rt.ID] = rt
	return rt, nil
}

func (f *fakeStore) GetTemplate(_ context.Context, id int64) (core.RecurringTemplate, error) {
	rt, ok := f.templates[id]
	if !ok {
		return core.RecurringTemplate{}, core.ErrNotFound
	}
	return rt, nil
}

func (f *fakeStore) ListTemplates(_ context.Context, activeOnly bool) ([]core.RecurringTemplate, error) {
	var out []core.RecurringTemplate
	for _, rt := range f.templates {
		if activeOnly && !rt.Active {
			continue
		}
		out = append(out, rt)
	}
	return out, nil
}

func (f *fakeStore) UpdateTemplate(_ context.Context, rt core.RecurringTemplate) error {
	if _, ok := f.templates[rt.ID]; !ok {
		return core.ErrNotFound
	}
	f.templates[rt.ID] = rt
	return nil
}

func (f *fakeStore) SetTemplateActive(_ context.Context, id int64, active bool) error {
	rt, ok := f.templates[id]
	if !ok {
		return core.ErrNotFound
	}
	rt.Active = active
	f.templates[id] = rt
	f.templateSets[id] = active
	return nil
}

func (f *fakeStore) UpsertBirthday(_ context.Context, b core.BirthdaySetting) (core.BirthdaySetting, error) {
	for id, row := range f.birthdays {
		if row.User == b.User {
			b.ID = id
			f.birthdays[id] = storage.BirthdayRow{BirthdaySetting: b}
			return b, nil
		}
	}
	b.ID = f.nextID
	f.nextID++
	f.birthdays[b.ID] = storage.BirthdayRow{BirthdaySetting: b}
	return b, nil
}

func (f *fakeStore) ListBirthdays(_ context.Context) ([]storage.BirthdayRow, error) {
	var out []storage.BirthdayRow
	for _, row := range f.birthdays {
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeStore) DeleteBirthday(_ context.Context, id int64) error {
	if _, ok := f.birthdays[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.birthdays, id)
	return nil
}

func (f *fakeStore) Ping(_ context.Context) error { return f.pingErr }

func newTestServer(t *testing.T) (*Server, *fakeTasks, *fakeLedger, *fakeStore) {
	t.Helper()
	tasks := newFakeTasks()
	ledger := newFakeLedger()
	store := newFakeStore()
	srv := NewServer(":0", tasks, ledger, store)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, tasks, ledger, store
}

func do(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthAndReady(t *testing.T) {
	srv, _, _, store := newTestServer(t)

	rr := do(srv, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("healthz status=%d body=%q", rr.Code, rr.Body.String())
	}

	rr = do(srv, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusOK || rr.Body.String() != "ready" {
		t.Fatalf("readyz status=%d body=%q", rr.Code, rr.Body.String())
	}

	store.pingErr = errors.New("database is locked")
	rr = do(srv, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing ping status=%d", rr.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	rr := do(srv, http.MethodGet, "/clients", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options=%q", got)
	}
	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options=%q", got)
	}
}

func TestCreateTaskValidationAndSuccess(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	rr := do(srv, http.MethodPost, "/tasks", "{not json")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status=%d", rr.Code)
	}

	rr = do(srv, http.MethodPost, "/tasks", `{"title":"Banner","client_id":1,"category":"design","duration_value":4,"duration_unit":"hour","task_date":"09/01/2026"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad date status=%d", rr.Code)
	}

	rr = do(srv, http.MethodPost, "/tasks", `{"title":"Banner","client_id":1,"category":"design","managers":["jay"],"duration_value":4,"duration_unit":"hour","task_date":"2026-09-01"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp taskResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID == 0 {
		t.Error("expected assigned id")
	}
	if resp.RateWon != 50000 {
		t.Errorf("rate=%d, want default design rate 50000", resp.RateWon)
	}
	if resp.PriceWon != 200000 {
		t.Errorf("price=%d, want 200000", resp.PriceWon)
	}
	if resp.Status != string(core.SettlePending) {
		t.Errorf("status=%q, want pending", resp.Status)
	}
}

func TestGetTaskNotFoundAndBadID(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	rr := do(srv, http.MethodGet, "/tasks/99", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing task status=%d", rr.Code)
	}

	rr = do(srv, http.MethodGet, "/tasks/abc", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad id status=%d", rr.Code)
	}
}

func TestSettleTasks(t *testing.T) {
	srv, tasks, _, _ := newTestServer(t)

	rr := do(srv, http.MethodPost, "/tasks/settle", `{"ids":[],"status":"completed"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty ids status=%d", rr.Code)
	}

	rr = do(srv, http.MethodPost, "/tasks/settle", `{"ids":[1,2,3],"status":"done"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad status status=%d", rr.Code)
	}

	rr = do(srv, http.MethodPost, "/tasks/settle", `{"ids":[1,2,3],"status":"completed"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("settle status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp settleResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Updated != 3 {
		t.Errorf("updated=%d, want 3", resp.Updated)
	}
	if len(tasks.settled) != 3 {
		t.Errorf("settled ids=%v", tasks.settled)
	}
}

func TestClientListCache(t *testing.T) {
	srv, _, _, store := newTestServer(t)

	if rr := do(srv, http.MethodGet, "/clients", ""); rr.Code != http.StatusOK {
		t.Fatalf("list status=%d", rr.Code)
	}
	if rr := do(srv, http.MethodGet, "/clients", ""); rr.Code != http.StatusOK {
		t.Fatalf("list status=%d", rr.Code)
	}
	if store.listCalls != 1 {
		t.Fatalf("listCalls=%d, want 1 (second hit served from cache)", store.listCalls)
	}

	rr := do(srv, http.MethodPost, "/clients", `{"name":"Acme"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}

	if rr := do(srv, http.MethodGet, "/clients", ""); rr.Code != http.StatusOK {
		t.Fatalf("list status=%d", rr.Code)
	}
	if store.listCalls != 2 {
		t.Fatalf("listCalls=%d, want 2 after invalidation", store.listCalls)
	}
}

func TestDeleteClientInUse(t *testing.T) {
	srv, _, _, store := newTestServer(t)

	created, _ := store.CreateClient(context.Background(), core.Client{Name: "Acme"})
	store.clientInUse = created.ID

	rr := do(srv, http.MethodDelete, "/clients/1", "")
	if rr.Code != http.StatusConflict {
		t.Fatalf("delete in-use client status=%d", rr.Code)
	}
}

func TestDutchPayEndpoint(t *testing.T) {
	srv, _, ledger, _ := newTestServer(t)

	rr := do(srv, http.MethodPost, "/ledger/dutch-pay", `{"date":"2026-09-01","kind":"meal","title":"lunch","total_won":50000,"participants":[],"payer":"jay"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("no participants status=%d", rr.Code)
	}

	rr = do(srv, http.MethodPost, "/ledger/dutch-pay", `{"date":"2026-09-01","kind":"meal","title":"lunch","total_won":50000,"participants":["jay","kim","lee"],"payer":"jay"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("dutch pay status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp entryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Amounts) != 3 {
		t.Fatalf("amounts=%d, want 3", len(resp.Amounts))
	}
	entry := ledger.entries[resp.ID]
	if got := entry.Total(); got.Won != 0 {
		// Net positions must cancel out when a payer fronted the bill.
		t.Errorf("entry total=%d, want 0", got.Won)
	}
}

func TestDeactivateTemplate(t *testing.T) {
	srv, _, _, store := newTestServer(t)

	created, _ := store.CreateTemplate(context.Background(), core.RecurringTemplate{
		Kind:       core.KindRecurring,
		Title:      "office rent",
		Amounts:    []core.UserAmount{{User: "jay", Amount: core.Money{Won: -500000}}},
		DayOfMonth: 1,
		Active:     true,
	})

	rr := do(srv, http.MethodDelete, "/recurring/1", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("deactivate status=%d", rr.Code)
	}
	if active, ok := store.templateSets[created.ID]; !ok || active {
		t.Errorf("template should be flagged inactive, got %v", store.templateSets)
	}
}

func TestSummaryValidation(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	rr := do(srv, http.MethodGet, "/summary/tasks?by=owner", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown task key status=%d", rr.Code)
	}

	rr = do(srv, http.MethodGet, "/summary/ledger?by=payer", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown ledger key status=%d", rr.Code)
	}

	rr = do(srv, http.MethodGet, "/summary/tasks?by=category", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("task summary status=%d", rr.Code)
	}
}

func TestRateLimiterAllow(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	for i := 0; i < 60; i++ {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.allow("10.0.0.1") {
		t.Fatal("61st request should be rejected")
	}
	if !rl.allow("10.0.0.2") {
		t.Fatal("other clients are limited independently")
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrNotFound, http.StatusNotFound},
		{core.ErrClientInUse, http.StatusConflict},
		{core.ErrInvalidRate, http.StatusUnprocessableEntity},
		{core.ErrNoParticipants, http.StatusUnprocessableEntity},
		{core.ErrUnbalanced, http.StatusUnprocessableEntity},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v)=%d, want %d", tt.err, got, tt.want)
		}
	}
}
