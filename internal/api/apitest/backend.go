// Package apitest provides an in-memory imitation of the to-do REST backend
// for tests, served by gin behind httptest.
package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const wireLayout = "2006-01-02T15:04:05"

type Category struct {
	ID    int64
	Name  string
	Color string
}

type Tag struct {
	ID   int64
	Name string
}

type User struct {
	ID       int64
	Email    string
	Name     string
	Password string
}

type Task struct {
	ID          int64
	UserID      int64
	Title       string
	Description string
	Completed   bool
	CategoryID  *int64
	DueDate     *time.Time
	Priority    string
	TagIDs      []int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Reminder struct {
	ID           int64
	TaskID       int64
	UserID       int64
	ReminderTime time.Time
	Sent         bool
}

type Recurring struct {
	ID             int64
	UserID         int64
	OriginalTaskID int64
	Pattern        string
	Interval       int
}

// Backend is safe for concurrent use.
type Backend struct {
	Server *httptest.Server

	mu sync.Mutex
	// Legacy makes delete and toggle answer 422 like an older revision.
	Legacy bool
	// FailNext, when non-zero, is returned as the status of the next task
	// mutation.
	FailNext   int
	clock      time.Time
	nextID     int64
	users      map[int64]*User
	tokens     map[string]int64
	tasks      map[int64]*Task
	categories map[int64]Category
	tags       map[int64]Tag
	reminders  map[int64]*Reminder
	recurring  map[int64]Recurring
	requests   []string
}

func NewBackend() *Backend {
	gin.SetMode(gin.TestMode)
	b := &Backend{
		clock:      time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC),
		nextID:     100,
		users:      make(map[int64]*User),
		tokens:     make(map[string]int64),
		tasks:      make(map[int64]*Task),
		categories: make(map[int64]Category),
		tags:       make(map[int64]Tag),
		reminders:  make(map[int64]*Reminder),
		recurring:  make(map[int64]Recurring),
	}
	b.Server = httptest.NewServer(b.router())
	return b
}

func (b *Backend) Close() { b.Server.Close() }

func (b *Backend) URL() string { return b.Server.URL }

// AddUser registers a user and returns a valid token for it.
func (b *Backend) AddUser(email, password string) (User, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := &User{ID: b.allocID(), Email: email, Name: strings.Split(email, "@")[0], Password: password}
	b.users[u.ID] = u
	token := fmt.Sprintf("tok-%d", u.ID)
	b.tokens[token] = u.ID
	return *u, token
}

func (b *Backend) AddCategory(c Category) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.categories[c.ID] = c
}

func (b *Backend) AddTag(t Tag) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tags[t.ID] = t
}

// SeedTask stores t as-is, assigning an id and timestamps when missing.
func (b *Backend) SeedTask(t Task) Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t.ID == 0 {
		t.ID = b.allocID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = b.tick()
		t.UpdatedAt = t.CreatedAt
	}
	if t.Priority == "" {
		t.Priority = "medium"
	}
	cp := t
	b.tasks[t.ID] = &cp
	return t
}

func (b *Backend) SeedReminder(r Reminder) Reminder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r.ID == 0 {
		r.ID = b.allocID()
	}
	cp := r
	b.reminders[r.ID] = &cp
	return r
}

func (b *Backend) SeedRecurring(r Recurring) Recurring {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r.ID == 0 {
		r.ID = b.allocID()
	}
	if r.Interval == 0 {
		r.Interval = 1
	}
	b.recurring[r.ID] = r
	return r
}

func (b *Backend) Recurring(id int64) (Recurring, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.recurring[id]
	return r, ok
}

func (b *Backend) Task(id int64) (Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

func (b *Backend) Reminder(id int64) (Reminder, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.reminders[id]
	if !ok {
		return Reminder{}, false
	}
	return *r, true
}

// Requests lists "METHOD path?query" for every request received.
func (b *Backend) Requests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

func (b *Backend) SetLegacy(v bool) {
	b.mu.Lock()
	b.Legacy = v
	b.mu.Unlock()
}

func (b *Backend) FailNextWith(status int) {
	b.mu.Lock()
	b.FailNext = status
	b.mu.Unlock()
}

func (b *Backend) allocID() int64 {
	b.nextID++
	return b.nextID
}

func (b *Backend) tick() time.Time {
	b.clock = b.clock.Add(time.Second)
	return b.clock
}

func (b *Backend) router() *gin.Engine {
	r := gin.New()
	r.Use(b.record)

	auth := r.Group("/auth")
	auth.POST("/login", b.login)
	auth.POST("/register", b.register)
	auth.GET("/me", b.authenticate, b.me)

	api := r.Group("/api/:uid", b.authenticate, b.scope)
	api.GET("/tasks", b.listTasks)
	api.GET("/tasks/search", b.listTasks)
	api.GET("/tasks/suggest", b.suggest)
	api.POST("/tasks", b.createTask)
	api.GET("/tasks/:id", b.getTask)
	api.PUT("/tasks/:id", b.updateTask)
	api.DELETE("/tasks/:id", b.deleteTask)
	api.PATCH("/tasks/:id/complete", b.toggleTask)
	api.GET("/reminders", b.listReminders)
	api.POST("/reminders", b.createReminder)
	api.DELETE("/reminders/:id", b.deleteReminder)
	api.GET("/reminders/upcoming", b.upcomingReminders)
	api.POST("/reminders/:id/mark-sent", b.markSent)
	api.GET("/recurring", b.listRecurring)
	api.POST("/recurring", b.createRecurring)
	api.DELETE("/recurring/:id", b.deleteRecurring)
	api.POST("/recurring/:id/generate-instances", b.generateInstances)
	api.GET("/analysis", b.analysis)
	return r
}

func (b *Backend) record(c *gin.Context) {
	b.mu.Lock()
	entry := c.Request.Method + " " + c.Request.URL.Path
	if c.Request.URL.RawQuery != "" {
		entry += "?" + c.Request.URL.RawQuery
	}
	b.requests = append(b.requests, entry)
	b.mu.Unlock()
	c.Next()
}

func (b *Backend) authenticate(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	b.mu.Lock()
	uid, ok := b.tokens[token]
	b.mu.Unlock()
	if header == "" || !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
		return
	}
	c.Set("user_id", uid)
	c.Next()
}

func (b *Backend) scope(c *gin.Context) {
	uid, err := strconv.ParseInt(c.Param("uid"), 10, 64)
	if err != nil || uid != c.GetInt64("user_id") {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "Not enough permissions"})
		return
	}
	c.Next()
}

func (b *Backend) login(c *gin.Context) {
	email := c.PostForm("username")
	password := c.PostForm("password")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if u.Email == email && u.Password == password {
			c.JSON(http.StatusOK, gin.H{"access_token": fmt.Sprintf("tok-%d", u.ID), "token_type": "bearer"})
			return
		}
	}
	c.JSON(http.StatusUnauthorized, gin.H{"detail": "Incorrect email or password"})
}

func (b *Backend) register(c *gin.Context) {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if u.Email == body.Email {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Email already registered"})
			return
		}
	}
	u := &User{ID: b.allocID(), Email: body.Email, Name: body.Name, Password: body.Password}
	b.users[u.ID] = u
	b.tokens[fmt.Sprintf("tok-%d", u.ID)] = u.ID
	c.JSON(http.StatusOK, b.userJSON(u))
}

func (b *Backend) me(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.users[c.GetInt64("user_id")]
	c.JSON(http.StatusOK, b.userJSON(u))
}

func (b *Backend) userJSON(u *User) gin.H {
	return gin.H{"id": u.ID, "email": u.Email, "name": u.Name, "created_at": b.clock.Format(wireLayout), "updated_at": b.clock.Format(wireLayout)}
}

func (b *Backend) listTasks(c *gin.Context) {
	uid := c.GetInt64("user_id")
	status := c.Query("status")
	query := strings.ToLower(c.Query("query"))
	priority := c.Query("priority")
	tagFilter := c.QueryArray("tag_ids")

	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Task, 0)
	for _, t := range b.tasks {
		if t.UserID != uid {
			continue
		}
		if status == "completed" && !t.Completed || status == "pending" && t.Completed {
			continue
		}
		if priority != "" && t.Priority != priority {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(t.Title+" "+t.Description), query) {
			continue
		}
		if !hasAllTags(t.TagIDs, tagFilter) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if c.Query("sort_by") == "title" {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	}
	if c.Query("sort_order") == "desc" {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	body := make([]gin.H, 0, len(out))
	for _, t := range out {
		body = append(body, b.taskJSON(t))
	}
	c.JSON(http.StatusOK, body)
}

func hasAllTags(have []int64, want []string) bool {
	for _, raw := range want {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return false
		}
		found := false
		for _, h := range have {
			if h == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (b *Backend) createTask(c *gin.Context) {
	var body struct {
		Title       string  `json:"title"`
		Description string  `json:"description"`
		Completed   bool    `json:"completed"`
		CategoryID  *int64  `json:"category_id"`
		DueDate     *string `json:"due_date"`
		Priority    string  `json:"priority"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Title) == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "title is required"})
		return
	}
	tagIDs, ok := parseTagIDs(c.Query("tag_ids"))
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid tag_ids"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failNext(c) {
		return
	}
	now := b.tick()
	t := &Task{
		ID:          b.allocID(),
		UserID:      c.GetInt64("user_id"),
		Title:       body.Title,
		Description: body.Description,
		Completed:   body.Completed,
		CategoryID:  body.CategoryID,
		Priority:    body.Priority,
		TagIDs:      tagIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Priority == "" {
		t.Priority = "medium"
	}
	if body.DueDate != nil {
		if due, err := time.Parse(time.RFC3339, *body.DueDate); err == nil {
			t.DueDate = &due
		}
	}
	b.tasks[t.ID] = t
	c.JSON(http.StatusOK, b.taskJSON(t))
}

func (b *Backend) getTask(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.ownedTask(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, b.taskJSON(t))
}

// updateTask only understands title, description and completed, like the
// older backend contract. Extra fields are ignored.
func (b *Backend) updateTask(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failNext(c) {
		return
	}
	t, ok := b.ownedTask(c)
	if !ok {
		return
	}
	if v, ok := body["title"].(string); ok {
		t.Title = v
	}
	if v, ok := body["description"].(string); ok {
		t.Description = v
	}
	if v, ok := body["completed"].(bool); ok {
		t.Completed = v
	}
	if v, ok := body["priority"].(string); ok {
		t.Priority = v
	}
	if raw, present := c.GetQuery("tag_ids"); present {
		ids, ok := parseTagIDs(raw)
		if !ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid tag_ids"})
			return
		}
		t.TagIDs = ids
	}
	t.UpdatedAt = b.tick()
	c.JSON(http.StatusOK, b.taskJSON(t))
}

func (b *Backend) deleteTask(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Legacy {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "Method not supported"})
		return
	}
	if b.failNext(c) {
		return
	}
	t, ok := b.ownedTask(c)
	if !ok {
		return
	}
	delete(b.tasks, t.ID)
	c.Status(http.StatusNoContent)
}

func (b *Backend) toggleTask(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Legacy {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "Method not supported"})
		return
	}
	if b.failNext(c) {
		return
	}
	t, ok := b.ownedTask(c)
	if !ok {
		return
	}
	t.Completed = !t.Completed
	t.UpdatedAt = b.tick()
	c.JSON(http.StatusOK, b.taskJSON(t))
}

func (b *Backend) suggest(c *gin.Context) {
	uid := c.GetInt64("user_id")
	b.mu.Lock()
	defer b.mu.Unlock()
	counts := make(map[string]int)
	for _, t := range b.tasks {
		if t.UserID == uid && t.Completed {
			counts[strings.ToLower(t.Title)]++
		}
	}
	titles := make([]string, 0, len(counts))
	for title, n := range counts {
		if n > 1 {
			titles = append(titles, title)
		}
	}
	sort.Strings(titles)
	out := make([]gin.H, 0, len(titles))
	for _, title := range titles {
		out = append(out, gin.H{
			"id": 0, "user_id": uid, "title": title, "completed": false, "priority": "medium",
			"description": "Suggested task based on your previous work",
			"created_at":  b.clock.Format(wireLayout), "updated_at": b.clock.Format(wireLayout), "tags": []gin.H{},
		})
	}
	c.JSON(http.StatusOK, out)
}

func (b *Backend) analysis(c *gin.Context) {
	uid := c.GetInt64("user_id")
	b.mu.Lock()
	defer b.mu.Unlock()
	total, done := 0, 0
	for _, t := range b.tasks {
		if t.UserID != uid {
			continue
		}
		total++
		if t.Completed {
			done++
		}
	}
	c.JSON(http.StatusOK, gin.H{"total_tasks": total, "completed_tasks": done, "pending_tasks": total - done})
}

func (b *Backend) reminderJSON(r *Reminder) gin.H {
	return gin.H{
		"id": r.ID, "task_id": r.TaskID, "user_id": r.UserID, "sent": r.Sent,
		"reminder_time": r.ReminderTime.UTC().Format(wireLayout),
		"created_at":    b.clock.Format(wireLayout),
	}
}

func (b *Backend) listReminders(c *gin.Context) {
	uid := c.GetInt64("user_id")
	b.mu.Lock()
	defer b.mu.Unlock()
	items := make([]*Reminder, 0)
	for _, r := range b.reminders {
		if r.UserID == uid {
			items = append(items, r)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ReminderTime.Before(items[j].ReminderTime) })
	out := make([]gin.H, 0, len(items))
	for _, r := range items {
		out = append(out, b.reminderJSON(r))
	}
	c.JSON(http.StatusOK, out)
}

func (b *Backend) createReminder(c *gin.Context) {
	var body struct {
		TaskID       int64  `json:"task_id"`
		ReminderTime string `json:"reminder_time"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid reminder"})
		return
	}
	at, err := time.Parse(time.RFC3339, body.ReminderTime)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid reminder_time"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failNext(c) {
		return
	}
	if t, ok := b.tasks[body.TaskID]; !ok || t.UserID != c.GetInt64("user_id") {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Task not found"})
		return
	}
	r := &Reminder{ID: b.allocID(), TaskID: body.TaskID, UserID: c.GetInt64("user_id"), ReminderTime: at}
	b.reminders[r.ID] = r
	c.JSON(http.StatusOK, b.reminderJSON(r))
}

func (b *Backend) deleteReminder(c *gin.Context) {
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.reminders[id]
	if !ok || r.UserID != c.GetInt64("user_id") {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Reminder not found"})
		return
	}
	delete(b.reminders, id)
	c.JSON(http.StatusOK, gin.H{"message": "Reminder deleted"})
}

func (b *Backend) recurringJSON(r Recurring) gin.H {
	return gin.H{
		"id": r.ID, "original_task_id": r.OriginalTaskID, "recurrence_pattern": r.Pattern,
		"interval": r.Interval, "end_date": nil,
		"created_at": b.clock.Format(wireLayout), "updated_at": b.clock.Format(wireLayout),
	}
}

func (b *Backend) listRecurring(c *gin.Context) {
	uid := c.GetInt64("user_id")
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]int64, 0)
	for id, r := range b.recurring {
		if r.UserID == uid {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]gin.H, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.recurringJSON(b.recurring[id]))
	}
	c.JSON(http.StatusOK, out)
}

func (b *Backend) createRecurring(c *gin.Context) {
	var body struct {
		OriginalTaskID int64  `json:"original_task_id"`
		Pattern        string `json:"recurrence_pattern"`
		Interval       int    `json:"interval"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Interval < 1 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid recurrence"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.tasks[body.OriginalTaskID]; !ok || t.UserID != c.GetInt64("user_id") {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Task not found"})
		return
	}
	r := Recurring{ID: b.allocID(), UserID: c.GetInt64("user_id"), OriginalTaskID: body.OriginalTaskID, Pattern: body.Pattern, Interval: body.Interval}
	b.recurring[r.ID] = r
	c.JSON(http.StatusOK, b.recurringJSON(r))
}

func (b *Backend) deleteRecurring(c *gin.Context) {
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.recurring[id]
	if !ok || r.UserID != c.GetInt64("user_id") {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Recurring task not found"})
		return
	}
	delete(b.recurring, id)
	c.JSON(http.StatusOK, gin.H{"message": "Recurring task deleted successfully"})
}

// generateInstances copies the original task count times with due dates
// stepping forward from the clock, and answers with the new ids only.
func (b *Backend) generateInstances(c *gin.Context) {
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
	count, err := strconv.Atoi(c.DefaultQuery("count", "10"))
	if err != nil || count < 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid count"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.recurring[id]
	if !ok || r.UserID != c.GetInt64("user_id") {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Recurring task not found"})
		return
	}
	orig, ok := b.tasks[r.OriginalTaskID]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Original task not found"})
		return
	}
	due := b.clock
	ids := make([]int64, 0, count)
	for i := 0; i < count; i++ {
		due = stepRecurrence(due, r.Pattern, r.Interval)
		next := due
		t := &Task{
			ID:          b.allocID(),
			UserID:      orig.UserID,
			Title:       orig.Title,
			Description: orig.Description,
			CategoryID:  orig.CategoryID,
			DueDate:     &next,
			Priority:    orig.Priority,
			TagIDs:      append([]int64(nil), orig.TagIDs...),
		}
		t.CreatedAt = b.tick()
		t.UpdatedAt = t.CreatedAt
		b.tasks[t.ID] = t
		ids = append(ids, t.ID)
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Generated %d task instances", len(ids)), "instances": ids})
}

func stepRecurrence(from time.Time, pattern string, interval int) time.Time {
	switch pattern {
	case "weekly":
		return from.AddDate(0, 0, 7*interval)
	case "monthly":
		return from.AddDate(0, interval, 0)
	case "yearly":
		return from.AddDate(interval, 0, 0)
	default:
		return from.AddDate(0, 0, interval)
	}
}

func (b *Backend) upcomingReminders(c *gin.Context) {
	uid := c.GetInt64("user_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	b.mu.Lock()
	defer b.mu.Unlock()
	items := make([]*Reminder, 0)
	for _, r := range b.reminders {
		if r.UserID == uid && !r.Sent {
			items = append(items, r)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ReminderTime.Before(items[j].ReminderTime) })
	if len(items) > limit {
		items = items[:limit]
	}
	out := make([]gin.H, 0, len(items))
	for _, r := range items {
		out = append(out, b.reminderJSON(r))
	}
	c.JSON(http.StatusOK, out)
}

func (b *Backend) markSent(c *gin.Context) {
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.reminders[id]
	if !ok || r.UserID != c.GetInt64("user_id") {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Reminder not found"})
		return
	}
	r.Sent = true
	c.JSON(http.StatusOK, gin.H{"message": "Reminder marked as sent"})
}

func (b *Backend) failNext(c *gin.Context) bool {
	if b.FailNext == 0 {
		return false
	}
	status := b.FailNext
	b.FailNext = 0
	c.JSON(status, gin.H{"detail": "injected failure"})
	return true
}

func (b *Backend) ownedTask(c *gin.Context) (*Task, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid task id"})
		return nil, false
	}
	t, ok := b.tasks[id]
	if !ok || t.UserID != c.GetInt64("user_id") {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Task not found"})
		return nil, false
	}
	return t, true
}

func (b *Backend) taskJSON(t *Task) gin.H {
	tags := make([]gin.H, 0, len(t.TagIDs))
	for _, id := range t.TagIDs {
		tag := b.tags[id]
		tags = append(tags, gin.H{"id": id, "user_id": t.UserID, "name": tag.Name, "created_at": t.CreatedAt.Format(wireLayout), "updated_at": t.CreatedAt.Format(wireLayout)})
	}
	out := gin.H{
		"id":          t.ID,
		"user_id":     t.UserID,
		"title":       t.Title,
		"description": t.Description,
		"completed":   t.Completed,
		"category_id": t.CategoryID,
		"priority":    t.Priority,
		"created_at":  t.CreatedAt.Format(wireLayout),
		"updated_at":  t.UpdatedAt.Format(wireLayout),
		"tags":        tags,
		"category":    nil,
		"due_date":    nil,
	}
	if t.CategoryID != nil {
		if cat, ok := b.categories[*t.CategoryID]; ok {
			out["category"] = gin.H{"id": cat.ID, "user_id": t.UserID, "name": cat.Name, "color": cat.Color, "created_at": t.CreatedAt.Format(wireLayout), "updated_at": t.CreatedAt.Format(wireLayout)}
		}
	}
	if t.DueDate != nil {
		out["due_date"] = t.DueDate.UTC().Format(time.DateOnly)
	}
	return out
}

func parseTagIDs(raw string) ([]int64, bool) {
	out := make([]int64, 0)
	if strings.TrimSpace(raw) == "" {
		return out, true
	}
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, false
		}
		out = append(out, id)
	}
	return out, true
}
