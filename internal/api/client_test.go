package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/tasksync/internal/api/apitest"
	"github.com/sandeepkv93/tasksync/internal/model"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

func setupClient(t *testing.T) (*apitest.Backend, *Client, apitest.User) {
	t.Helper()
	backend := apitest.NewBackend()
	t.Cleanup(backend.Close)
	user, token := backend.AddUser("ada@example.com", "secret1")
	client := New(backend.URL(), WithTokenSource(staticToken(token)))
	return backend, client, user
}

func TestCreateTaskDefaultsAndTags(t *testing.T) {
	backend, client, user := setupClient(t)
	backend.AddTag(apitest.Tag{ID: 1, Name: "errand"})
	backend.AddTag(apitest.Tag{ID: 2, Name: "home"})

	task, err := client.CreateTask(context.Background(), user.ID, model.TaskInput{Title: "  Buy milk "}, []int64{1, 2})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.ID == 0 || task.Completed || task.Priority != model.PriorityMedium || task.Title != "Buy milk" {
		t.Fatalf("unexpected created task: %+v", task)
	}
	if !task.UpdatedAt.Equal(task.CreatedAt) {
		t.Fatalf("expected updated_at == created_at, got %s vs %s", task.UpdatedAt, task.CreatedAt)
	}
	if ids := task.TagIDs(); len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("unexpected tag ids: %v", ids)
	}

	reqs := backend.Requests()
	if last := reqs[len(reqs)-1]; !strings.Contains(last, "tag_ids=1%2C2") {
		t.Fatalf("expected comma separated tag_ids query, got %q", last)
	}
}

func TestCreateTaskRejectsBlankTitleWithoutRequest(t *testing.T) {
	backend, client, user := setupClient(t)
	_, err := client.CreateTask(context.Background(), user.ID, model.TaskInput{Title: "   "}, nil)
	var vf *ValidationFailed
	if !errors.As(err, &vf) || vf.Field != model.FieldTitle {
		t.Fatalf("expected ValidationFailed on title, got %v", err)
	}
	if n := len(backend.Requests()); n != 0 {
		t.Fatalf("expected no requests, got %d", n)
	}
}

func TestListTasksEncodesFilter(t *testing.T) {
	backend, client, user := setupClient(t)
	backend.SeedTask(apitest.Task{UserID: user.ID, Title: "a", Priority: "high", TagIDs: []int64{3}})
	backend.SeedTask(apitest.Task{UserID: user.ID, Title: "b", Priority: "low"})

	cat := int64(9)
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	tasks, err := client.ListTasks(context.Background(), user.ID, model.TaskFilter{
		Status:       model.StatusPending,
		CategoryID:   &cat,
		TagIDs:       []int64{3, 4},
		DueDateStart: &start,
		Priority:     model.PriorityHigh,
		Limit:        20,
	})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected no task to carry both tags, got %d", len(tasks))
	}
	reqs := backend.Requests()
	last := reqs[len(reqs)-1]
	for _, want := range []string{"status=pending", "category_id=9", "tag_ids=3", "tag_ids=4", "priority=high", "limit=20", "due_date_start=2026-02-01T00%3A00%3A00Z"} {
		if !strings.Contains(last, want) {
			t.Fatalf("query %q missing %q", last, want)
		}
	}
	if strings.Contains(last, "offset") {
		t.Fatalf("zero offset should not be sent: %q", last)
	}

	tasks, err = client.ListTasks(context.Background(), user.ID, model.TaskFilter{Priority: model.PriorityHigh})
	if err != nil || len(tasks) != 1 || tasks[0].Title != "a" {
		t.Fatalf("unexpected filtered tasks: %+v err=%v", tasks, err)
	}
}

func TestListTasksRejectsInvalidFilter(t *testing.T) {
	_, client, user := setupClient(t)
	_, err := client.ListTasks(context.Background(), user.ID, model.TaskFilter{Status: "archived"})
	var vf *ValidationFailed
	if !errors.As(err, &vf) {
		t.Fatalf("expected ValidationFailed, got %v", err)
	}
}

func TestSearchTasksSendsQueryAndSort(t *testing.T) {
	backend, client, user := setupClient(t)
	backend.SeedTask(apitest.Task{UserID: user.ID, Title: "Write report"})
	backend.SeedTask(apitest.Task{UserID: user.ID, Title: "Read report"})
	backend.SeedTask(apitest.Task{UserID: user.ID, Title: "Walk dog"})

	tasks, err := client.SearchTasks(context.Background(), user.ID, model.TaskFilter{Query: "report", SortBy: model.SortByTitle, SortOrder: model.SortAsc})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(tasks) != 2 || tasks[0].Title != "Read report" {
		t.Fatalf("unexpected search result: %+v", tasks)
	}
	reqs := backend.Requests()
	if last := reqs[len(reqs)-1]; !strings.Contains(last, "/tasks/search?") || !strings.Contains(last, "query=report") {
		t.Fatalf("unexpected search request %q", last)
	}
}

func TestNon2xxBecomesRequestFailed(t *testing.T) {
	backend, client, user := setupClient(t)
	seeded := backend.SeedTask(apitest.Task{UserID: user.ID, Title: "x"})
	backend.FailNextWith(http.StatusInternalServerError)

	_, err := client.UpdateTask(context.Background(), user.ID, seeded.ID, map[string]any{"title": "y"}, nil)
	var rf *RequestFailed
	if !errors.As(err, &rf) || rf.Status != http.StatusInternalServerError || rf.Message != "injected failure" {
		t.Fatalf("expected RequestFailed 500 with detail, got %v", err)
	}
	if StatusOf(err) != http.StatusInternalServerError {
		t.Fatalf("StatusOf = %d", StatusOf(err))
	}
}

func TestGetMissingTaskIs404(t *testing.T) {
	_, client, user := setupClient(t)
	_, err := client.GetTask(context.Background(), user.ID, 4242)
	if StatusOf(err) != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestUnauthorizedMatchesErrUnauthenticated(t *testing.T) {
	backend := apitest.NewBackend()
	defer backend.Close()
	user, _ := backend.AddUser("ada@example.com", "secret1")
	client := New(backend.URL(), WithTokenSource(staticToken("forged")))

	_, err := client.ListTasks(context.Background(), user.ID, model.TaskFilter{})
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestDeleteShimTreats404And422AsNoop(t *testing.T) {
	backend, client, user := setupClient(t)
	ctx := context.Background()

	applied, err := client.DeleteTask(ctx, user.ID, 999)
	if err != nil || applied {
		t.Fatalf("404 delete should be a no-op success, applied=%v err=%v", applied, err)
	}

	seeded := backend.SeedTask(apitest.Task{UserID: user.ID, Title: "legacy"})
	backend.SetLegacy(true)
	applied, err = client.DeleteTask(ctx, user.ID, seeded.ID)
	if err != nil || applied {
		t.Fatalf("422 delete should be a no-op success, applied=%v err=%v", applied, err)
	}
	if _, ok := backend.Task(seeded.ID); !ok {
		t.Fatal("legacy backend should not have deleted the task")
	}

	backend.SetLegacy(false)
	applied, err = client.DeleteTask(ctx, user.ID, seeded.ID)
	if err != nil || !applied {
		t.Fatalf("expected applied delete, applied=%v err=%v", applied, err)
	}
}

func TestDeletePropagatesOtherStatuses(t *testing.T) {
	backend, client, user := setupClient(t)
	seeded := backend.SeedTask(apitest.Task{UserID: user.ID, Title: "x"})
	backend.FailNextWith(http.StatusServiceUnavailable)
	if _, err := client.DeleteTask(context.Background(), user.ID, seeded.ID); StatusOf(err) != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 to propagate, got %v", err)
	}
}

func TestToggleTwiceRestoresCompletion(t *testing.T) {
	backend, client, user := setupClient(t)
	seeded := backend.SeedTask(apitest.Task{UserID: user.ID, Title: "flip"})
	ctx := context.Background()

	first, applied, err := client.ToggleCompletion(ctx, user.ID, seeded.ID)
	if err != nil || !applied || !first.Completed {
		t.Fatalf("first toggle: %+v applied=%v err=%v", first, applied, err)
	}
	second, applied, err := client.ToggleCompletion(ctx, user.ID, seeded.ID)
	if err != nil || !applied || second.Completed != seeded.Completed {
		t.Fatalf("second toggle: %+v applied=%v err=%v", second, applied, err)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Fatalf("updated_at must increase: %s then %s", first.UpdatedAt, second.UpdatedAt)
	}

	backend.SetLegacy(true)
	_, applied, err = client.ToggleCompletion(ctx, user.ID, seeded.ID)
	if err != nil || applied {
		t.Fatalf("legacy toggle should be a no-op success, applied=%v err=%v", applied, err)
	}
}

func TestUpdateReplacesTagsWhenProvided(t *testing.T) {
	backend, client, user := setupClient(t)
	seeded := backend.SeedTask(apitest.Task{UserID: user.ID, Title: "tagged", TagIDs: []int64{1, 2}})
	ctx := context.Background()

	kept, err := client.UpdateTask(ctx, user.ID, seeded.ID, map[string]any{"title": "renamed"}, nil)
	if err != nil || len(kept.Tags) != 2 || kept.Title != "renamed" {
		t.Fatalf("tags must be untouched without tag_ids: %+v err=%v", kept, err)
	}

	cleared := []int64{}
	updated, err := client.UpdateTask(ctx, user.ID, seeded.ID, nil, &cleared)
	if err != nil || len(updated.Tags) != 0 {
		t.Fatalf("expected tags cleared: %+v err=%v", updated, err)
	}
}

func TestLoginRegisterAndMe(t *testing.T) {
	backend := apitest.NewBackend()
	defer backend.Close()
	anon := New(backend.URL())
	ctx := context.Background()

	if _, err := anon.Me(ctx); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated without token, got %v", err)
	}
	if n := len(backend.Requests()); n != 0 {
		t.Fatalf("Me without token must not hit the network, got %d requests", n)
	}

	user, err := anon.Register(ctx, model.Registration{Name: "Grace", Email: "grace@example.com", Password: "hopper1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == 0 || user.Email != "grace@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}

	if _, err := anon.Login(ctx, model.Credentials{Email: "grace@example.com", Password: "wrong"}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected 401 on bad password, got %v", err)
	}
	tok, err := anon.Login(ctx, model.Credentials{Email: "grace@example.com", Password: "hopper1"})
	if err != nil || tok.AccessToken == "" {
		t.Fatalf("login: %+v err=%v", tok, err)
	}

	authed := New(backend.URL(), WithTokenSource(staticToken(tok.AccessToken)))
	me, err := authed.Me(ctx)
	if err != nil || me.ID != user.ID {
		t.Fatalf("me: %+v err=%v", me, err)
	}
}

func TestRegisterValidatesLocally(t *testing.T) {
	client := New("http://127.0.0.1:1")
	_, err := client.Register(context.Background(), model.Registration{Email: "bad", Password: "secret1"})
	var vf *ValidationFailed
	if !errors.As(err, &vf) || vf.Field != "email" {
		t.Fatalf("expected email ValidationFailed, got %v", err)
	}
}

func TestPhase2RevisionSkipsExtendedEndpoints(t *testing.T) {
	backend, _, user := setupClient(t)
	_, token := backend.AddUser("old@example.com", "secret1")
	client := New(backend.URL(), WithTokenSource(staticToken(token)), WithRevision(RevisionPhase2))
	ctx := context.Background()

	reminders, err := client.UpcomingReminders(ctx, user.ID, 5)
	if err != nil || len(reminders) != 0 {
		t.Fatalf("expected empty reminders, got %v err=%v", reminders, err)
	}
	suggestions, err := client.Suggestions(ctx, user.ID, 5)
	if err != nil || len(suggestions) != 0 {
		t.Fatalf("expected empty suggestions, got %v err=%v", suggestions, err)
	}
	if n := len(backend.Requests()); n != 0 {
		t.Fatalf("phase2 client must not call extended endpoints, got %d requests", n)
	}
}

func TestRemindersAndInsights(t *testing.T) {
	backend, client, user := setupClient(t)
	ctx := context.Background()
	at := time.Date(2026, 2, 9, 18, 0, 0, 0, time.UTC)
	r := backend.SeedReminder(apitest.Reminder{TaskID: 5, UserID: user.ID, ReminderTime: at})
	for i := 0; i < 2; i++ {
		backend.SeedTask(apitest.Task{UserID: user.ID, Title: "Water plants", Completed: true})
	}

	upcoming, err := client.UpcomingReminders(ctx, user.ID, 5)
	if err != nil || len(upcoming) != 1 || !upcoming[0].ReminderTime.Equal(at) {
		t.Fatalf("unexpected upcoming reminders: %+v err=%v", upcoming, err)
	}
	if err := client.MarkReminderSent(ctx, user.ID, r.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if got, _ := backend.Reminder(r.ID); !got.Sent {
		t.Fatal("reminder not marked sent")
	}

	suggestions, err := client.Suggestions(ctx, user.ID, 5)
	if err != nil || len(suggestions) != 1 || suggestions[0].Title != "water plants" {
		t.Fatalf("unexpected suggestions: %+v err=%v", suggestions, err)
	}
	analysis, err := client.Analysis(ctx, user.ID)
	if err != nil || analysis.TotalTasks != 2 || analysis.CompletedTasks != 2 {
		t.Fatalf("unexpected analysis: %+v err=%v", analysis, err)
	}
}

func TestReminderAndRecurringLifecycle(t *testing.T) {
	backend, client, user := setupClient(t)
	ctx := context.Background()
	task := backend.SeedTask(apitest.Task{UserID: user.ID, Title: "Stretch"})
	at := time.Date(2026, 2, 10, 7, 30, 0, 0, time.UTC)

	created, err := client.CreateReminder(ctx, user.ID, task.ID, at)
	if err != nil || created.ID == 0 || created.TaskID != task.ID || !created.ReminderTime.Equal(at) {
		t.Fatalf("unexpected reminder %+v err=%v", created, err)
	}
	if _, err := client.CreateReminder(ctx, user.ID, 0, at); err == nil {
		t.Fatal("reminder without task should fail validation")
	}
	all, err := client.ListReminders(ctx, user.ID)
	if err != nil || len(all) != 1 {
		t.Fatalf("unexpected reminders %+v err=%v", all, err)
	}
	if err := client.DeleteReminder(ctx, user.ID, created.ID); err != nil {
		t.Fatalf("delete reminder: %v", err)
	}
	if _, ok := backend.Reminder(created.ID); ok {
		t.Fatal("reminder survived delete")
	}

	rec, err := client.CreateRecurring(ctx, user.ID, model.RecurringTask{OriginalTaskID: task.ID, Pattern: model.RecurrenceWeekly, Interval: 2})
	if err != nil || rec.Pattern != model.RecurrenceWeekly || rec.Interval != 2 {
		t.Fatalf("unexpected recurring %+v err=%v", rec, err)
	}
	list, err := client.ListRecurring(ctx, user.ID)
	if err != nil || len(list) != 1 || list[0].OriginalTaskID != task.ID {
		t.Fatalf("unexpected recurring list %+v err=%v", list, err)
	}

	ids, err := client.GenerateInstances(ctx, user.ID, rec.ID, 3)
	if err != nil || len(ids) != 3 {
		t.Fatalf("unexpected generated ids %v err=%v", ids, err)
	}
	first, err := client.GetTask(ctx, user.ID, ids[0])
	if err != nil || first.Title != "Stretch" || first.DueDate == nil || first.Completed {
		t.Fatalf("unexpected generated task %+v err=%v", first, err)
	}
	second, _ := client.GetTask(ctx, user.ID, ids[1])
	if second.DueDate == nil || second.DueDate.Sub(*first.DueDate) != 14*24*time.Hour {
		t.Fatalf("instances not two weeks apart: %v then %v", first.DueDate, second.DueDate)
	}

	if err := client.DeleteRecurring(ctx, user.ID, rec.ID); err != nil {
		t.Fatalf("delete recurring: %v", err)
	}
	if _, ok := backend.Recurring(rec.ID); ok {
		t.Fatal("recurring rule survived delete")
	}
	var rf *RequestFailed
	if _, err := client.GenerateInstances(ctx, user.ID, rec.ID, 1); !errors.As(err, &rf) || rf.Status != http.StatusNotFound {
		t.Fatalf("generate from deleted rule: %v", err)
	}
}

func TestParseWireTime(t *testing.T) {
	cases := map[string]string{
		"2026-02-09T10:00:00":       "2026-02-09T10:00:00Z",
		"2026-02-09T10:00:00.25":    "2026-02-09T10:00:00.25Z",
		"2026-02-09T10:00:00+02:00": "2026-02-09T08:00:00Z",
		"2026-02-09":                "2026-02-09T00:00:00Z",
	}
	for in, want := range cases {
		got, err := parseWireTime(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got.Format(time.RFC3339Nano) != want {
			t.Fatalf("parse %q = %s, want %s", in, got.Format(time.RFC3339Nano), want)
		}
	}
	if _, err := parseWireTime("yesterday"); err == nil {
		t.Fatal("expected error for unrecognized timestamp")
	}
}
